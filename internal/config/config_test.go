package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 10, cfg.RAG.TopK)
	assert.Equal(t, "embedding", cfg.RAG.VectorField)
	assert.Equal(t, "embedding", cfg.OpenAI.EmbeddingDeployment)
	assert.Equal(t, 1536, cfg.OpenAI.EmbeddingDimensions)
	assert.Equal(t, "./docs/ihr", cfg.Ingest.DocRoot)
	assert.Equal(t, "ihr", cfg.Ingest.Source)
	assert.Equal(t, "sqlite", cfg.History.Driver)
	assert.Equal(t, "azure", cfg.Vector.Provider)
}

func TestLoad_File(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := []byte(`
server:
  port: 9090
rag:
  top_k: 4
search:
  service_name: acme
  index_name: faq
`)
	require.NoError(t, os.WriteFile(path, data, 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 4, cfg.RAG.TopK)
	assert.Equal(t, "https://acme.search.windows.net", cfg.SearchEndpoint())
	assert.Equal(t, "faq", cfg.Search.IndexName)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_OriginalEnvNames(t *testing.T) {
	t.Setenv("AZURE_OPENAI_API_KEY", "oa-key")
	t.Setenv("AZURE_OPENAI_API_INSTANCE_NAME", "contoso")
	t.Setenv("AZURE_SEARCH_NAME", "contoso-search")
	t.Setenv("AZURE_SEARCH_INDEX_NAME", "ihr-index")
	t.Setenv("AZURE_SEARCH_API_KEY", "search-key")
	t.Setenv("AZURE_SEARCH_API_VERSION", "2023-11-01")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "oa-key", cfg.OpenAI.APIKey)
	assert.Equal(t, "https://contoso.openai.azure.com", cfg.OpenAIEndpoint())
	assert.Equal(t, "https://contoso-search.search.windows.net", cfg.SearchEndpoint())
	assert.Equal(t, "ihr-index", cfg.Search.IndexName)
	assert.Equal(t, "search-key", cfg.Search.APIKey)
	assert.Equal(t, "2023-11-01", cfg.Search.APIVersion)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_PrefixedEnv(t *testing.T) {
	t.Setenv("RAGCHAT_RAG_TOP_K", "3")
	t.Setenv("RAGCHAT_HISTORY_DRIVER", "redis")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "redis", cfg.History.Driver)
}

func TestValidate(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai.api_key")
	assert.Contains(t, err.Error(), "search.index_name")

	cfg.OpenAI.APIKey = "k"
	cfg.OpenAI.Provider = "openai"
	cfg.Vector.Provider = "qdrant"
	assert.NoError(t, cfg.Validate())

	cfg.Vector.Provider = "pinecone"
	assert.Error(t, cfg.Validate())

	cfg.Vector.Provider = "qdrant"
	cfg.RAG.TopK = 0
	assert.Error(t, cfg.Validate())
}
