package turn

import "errors"

// ErrConfigMissing is returned by RunTurn's pre-flight step when the user
// has no encrypted provider API key configured yet (turn pipeline step 1).
var ErrConfigMissing = errors.New("turn: user has no configured provider API key")
