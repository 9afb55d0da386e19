package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("NOTION_TOKEN", "secret_token")
	t.Setenv("NOTIONVEC_DB_PATH", t.TempDir()+"/index.db")
	t.Setenv("NOTIONVEC_EMBEDDING_PROVIDER", "local")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("NOTIONVEC_CHUNK_SIZE", "")
	t.Setenv("NOTIONVEC_EMBED_WORKERS", "")
	t.Setenv("NOTIONVEC_SEARCH_LIMIT", "")
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "secret_token", cfg.NotionToken)
	assert.Equal(t, "local", cfg.EmbeddingProvider)
	assert.Equal(t, DefaultChunkSize, cfg.ChunkSize)
	assert.Equal(t, DefaultEmbedWorkers, cfg.EmbedWorkers)
	assert.Equal(t, DefaultSearchLimit, cfg.SearchLimit)
}

func TestLoadMissingToken(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTION_TOKEN", "")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissing)
}

func TestLoadOpenAIRequiresKey(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTIONVEC_EMBEDDING_PROVIDER", "openai")

	_, err := Load()
	assert.ErrorIs(t, err, ErrMissing)

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "sk-test", cfg.OpenAIAPIKey)
}

func TestLoadUnknownProvider(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTIONVEC_EMBEDDING_PROVIDER", "cohere")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadIntOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTIONVEC_CHUNK_SIZE", "512")
	t.Setenv("NOTIONVEC_EMBED_WORKERS", "2")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 512, cfg.ChunkSize)
	assert.Equal(t, 2, cfg.EmbedWorkers)
}

func TestLoadMalformedInt(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTIONVEC_CHUNK_SIZE", "lots")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateNonPositiveChunkSize(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("NOTIONVEC_CHUNK_SIZE", "0")

	_, err := Load()
	assert.Error(t, err)
}
