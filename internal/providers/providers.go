// Package providers selects and constructs the concrete model.Client for a
// user's configured AI provider. Grounded on Python's ai/providers.py
// get_provider dispatcher, which maps a UserSettings.ai_provider string to
// one of a small set of adapter constructors.
package providers

import (
	"fmt"
	"strings"

	"github.com/jmouallem/claude-longevity-sub000/internal/model"
	"github.com/jmouallem/claude-longevity-sub000/internal/providers/anthropic"
	"github.com/jmouallem/claude-longevity-sub000/internal/providers/openai"
)

// Provider IDs recognized in UserSettings.AIProviderID.
const (
	Anthropic = "anthropic"
	OpenAI    = "openai"
	Bedrock   = "bedrock"
)

// Options carries the per-user model routing decrypted from UserSettings.
type Options struct {
	ReasoningModel string
	UtilityModel   string
	DeepModel      string
}

// Get builds a model.Client for providerID using apiKey, defaulting unset
// model tiers the way each adapter's constructor already does (reasoning
// required, utility/deep fall back inside the adapter's Complete/Stream
// call sites when empty). Bedrock is deliberately unsupported here: it
// authenticates via the AWS SDK credential chain, not a single bearer key,
// so a BYOK apiKey string cannot construct one.
func Get(providerID, apiKey string, opts Options) (model.Client, error) {
	switch strings.ToLower(strings.TrimSpace(providerID)) {
	case Anthropic, "":
		return anthropic.NewFromAPIKey(apiKey, anthropic.Options{
			ReasoningModel: opts.ReasoningModel,
			UtilityModel:   opts.UtilityModel,
			DeepModel:      opts.DeepModel,
		})
	case OpenAI:
		return openai.NewFromAPIKey(apiKey, openai.Options{
			ReasoningModel: opts.ReasoningModel,
			UtilityModel:   opts.UtilityModel,
			DeepModel:      opts.DeepModel,
		})
	case Bedrock:
		return nil, fmt.Errorf("providers: bedrock requires AWS credentials, not a bring-your-own-key string")
	default:
		return nil, fmt.Errorf("providers: unknown provider %q", providerID)
	}
}
