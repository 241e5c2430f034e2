package embed

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragerr "github.com/studydeck/studyrag/internal/errors"
)

func TestNewEmbedder_DefaultsToStatic(t *testing.T) {
	e, err := NewEmbedder(FactoryConfig{})

	require.NoError(t, err)
	defer func() { _ = e.Close() }()
	assert.Equal(t, StaticDimensions, e.Dimensions())
}

func TestNewEmbedder_OpenAIWithoutKeyFailsFast(t *testing.T) {
	_, err := NewEmbedder(FactoryConfig{Provider: ProviderOpenAI})

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeCredentialsMissing, ragerr.CodeOf(err))
}

func TestNewEmbedder_UnknownProviderIsConfigError(t *testing.T) {
	_, err := NewEmbedder(FactoryConfig{Provider: "mystery"})

	require.Error(t, err)
	assert.Equal(t, ragerr.ErrCodeConfigInvalid, ragerr.CodeOf(err))
}

func TestNewEmbedder_WrapsWithCacheByDefault(t *testing.T) {
	e, err := NewEmbedder(FactoryConfig{Provider: ProviderStatic})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, isCached := e.(*CachedEmbedder)
	assert.True(t, isCached)
}

func TestNewEmbedder_NegativeCacheSizeDisablesCache(t *testing.T) {
	e, err := NewEmbedder(FactoryConfig{Provider: ProviderStatic, CacheSize: -1})
	require.NoError(t, err)
	defer func() { _ = e.Close() }()

	_, isCached := e.(*CachedEmbedder)
	assert.False(t, isCached)
}
