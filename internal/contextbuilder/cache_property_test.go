package contextbuilder

import (
	"reflect"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func genNonEmptyAlphaString() gopter.Gen {
	return gen.IntRange(1, 20).FlatMap(func(length any) gopter.Gen {
		return gen.SliceOfN(length.(int), gen.AlphaChar()).Map(func(chars []rune) string {
			return string(chars)
		})
	}, reflect.TypeOf(""))
}

// TestStableBlockCache_PutThenGetProperty mirrors the teacher registry
// cache's own property test: whatever was just stored under a key is what
// Get returns, before the TTL has had any chance to expire it.
func TestStableBlockCache_PutThenGetProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("a block just stored under a key is returned unchanged by Get", prop.ForAll(
		func(key, block string) bool {
			cache := NewStableBlockCache()
			cache.Put(key, block)
			got, ok := cache.Get(key)
			return ok && got == block
		},
		genNonEmptyAlphaString(),
		genNonEmptyAlphaString(),
	))

	properties.Property("the cache never grows past stableCacheMax entries", prop.ForAll(
		func(n int) bool {
			cache := NewStableBlockCache()
			for i := 0; i < n; i++ {
				cache.Put(string(rune('a'+(i%26)))+string(rune('A'+((i/26)%26))), "block")
			}
			return cache.Len() <= stableCacheMax
		},
		gen.IntRange(0, 400),
	))

	properties.TestingRun(t)
}

func TestStableBlockCache_MissOnUnknownKey(t *testing.T) {
	cache := NewStableBlockCache()
	_, ok := cache.Get("never-stored")
	if ok {
		t.Fatal("expected a miss for a key that was never stored")
	}
}
