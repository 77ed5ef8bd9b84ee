package providers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGet_AnthropicDispatch(t *testing.T) {
	client, err := Get(Anthropic, "sk-test-key", Options{ReasoningModel: "claude-x"})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "claude-x", client.ReasoningModel())
}

func TestGet_EmptyProviderIDDefaultsToAnthropic(t *testing.T) {
	client, err := Get("", "sk-test-key", Options{ReasoningModel: "claude-x"})
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestGet_OpenAIDispatch(t *testing.T) {
	client, err := Get(OpenAI, "test-key", Options{UtilityModel: "gpt-x"})
	require.NoError(t, err)
	require.NotNil(t, client)
	assert.Equal(t, "gpt-x", client.UtilityModel())
}

func TestGet_IsCaseAndWhitespaceInsensitive(t *testing.T) {
	client, err := Get("  OpenAI  ", "test-key", Options{ReasoningModel: "gpt-x"})
	require.NoError(t, err)
	require.NotNil(t, client)
}

func TestGet_BedrockIsRejectedAsBringYourOwnKey(t *testing.T) {
	client, err := Get(Bedrock, "irrelevant", Options{})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestGet_UnknownProviderIsRejected(t *testing.T) {
	client, err := Get("not-a-real-provider", "key", Options{})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestGet_AnthropicMissingAPIKeyErrors(t *testing.T) {
	client, err := Get(Anthropic, "", Options{})
	require.Error(t, err)
	assert.Nil(t, client)
}

func TestGet_OpenAIMissingAPIKeyErrors(t *testing.T) {
	client, err := Get(OpenAI, "", Options{})
	require.Error(t, err)
	assert.Nil(t, client)
}
