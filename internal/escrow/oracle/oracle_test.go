package oracle

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseHandlesURLFeedIDWithEmbeddedColons(t *testing.T) {
	cfg, err := Parse("http://oracle.example.com/price:gt:100:data.price")
	require.NoError(t, err)
	require.Equal(t, "http", cfg.Source)
	require.Equal(t, "http://oracle.example.com/price", cfg.FeedID)
	require.Equal(t, "gt", cfg.Op)
	require.InDelta(t, 100, cfg.Target, 1e-9)
	require.Equal(t, "data.price", cfg.JSONPath)
}

func TestParseHandlesMixedSchemeTag(t *testing.T) {
	cfg, err := Parse("http:https://host/path:lt:100:data.price")
	require.NoError(t, err)
	require.Equal(t, "http", cfg.Source)
	require.Equal(t, "https://host/path", cfg.FeedID)
	require.Equal(t, "lt", cfg.Op)
	require.InDelta(t, 100, cfg.Target, 1e-9)
	require.Equal(t, "data.price", cfg.JSONPath)
}

func TestParsePythFeedWithoutJSONPath(t *testing.T) {
	cfg, err := Parse("pyth:ArgsFeedAccount111:gte:25000")
	require.NoError(t, err)
	require.Equal(t, "pyth", cfg.Source)
	require.Equal(t, "ArgsFeedAccount111", cfg.FeedID)
	require.Equal(t, "gte", cfg.Op)
	require.InDelta(t, 25000, cfg.Target, 1e-9)
	require.Empty(t, cfg.JSONPath)
}

func TestParseRejectsMissingOperator(t *testing.T) {
	_, err := Parse("pyth:feed:25000")
	require.Error(t, err)
}

func TestCompareEqUsesEpsilon(t *testing.T) {
	ok, err := Compare("eq", 100.0000001, 100)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = Compare("eq", 100.1, 100)
	require.NoError(t, err)
	require.False(t, ok)
}
