package llmclient

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/ternarybob/atsforge/internal/common"
)

func TestNew_RequiresAPIKey(t *testing.T) {
	_, err := New(common.LLMConfig{}, nil)
	require.Error(t, err)
}

func TestNew_AppliesDefaults(t *testing.T) {
	c, err := New(common.LLMConfig{APIKey: "sk-ant-test"}, nil)
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.model)
	require.Equal(t, DefaultMaxTokens, c.maxTokens)
}

func TestExtractJSONBody_StripsCodeFence(t *testing.T) {
	require.Equal(t, `{"jobs":[]}`, extractJSONBody("```json\n{\"jobs\":[]}\n```"))
	require.Equal(t, `{"jobs":[]}`, extractJSONBody(`{"jobs":[]}`))
}
