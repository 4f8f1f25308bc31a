package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for ragchat
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Admin    AdminConfig    `mapstructure:"admin"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	History  HistoryConfig  `mapstructure:"history"`
	Redis    RedisConfig    `mapstructure:"redis"`
	OpenAI   OpenAIConfig   `mapstructure:"openai"`
	Vector   VectorConfig   `mapstructure:"vector"`
	Search   SearchConfig   `mapstructure:"search"`
	Qdrant   QdrantConfig   `mapstructure:"qdrant"`
	RAG      RAGConfig      `mapstructure:"rag"`
	Ingest   IngestConfig   `mapstructure:"ingest"`
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// AdminConfig holds admin authentication configuration
type AdminConfig struct {
	APIKey string `mapstructure:"api_key"`
}

// LogConfig holds logger configuration
type LogConfig struct {
	Debug bool `mapstructure:"debug"`
}

// DatabaseConfig holds the SQLite history database configuration
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// HistoryConfig selects the chat history store
type HistoryConfig struct {
	Driver string `mapstructure:"driver"` // sqlite, redis
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr      string `mapstructure:"addr"`
	Password  string `mapstructure:"password"`
	DB        int    `mapstructure:"db"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// OpenAIConfig holds embedding and chat-completion provider configuration.
// With provider "azure" the endpoint is built from InstanceName unless
// Endpoint is set; deployments double as model names.
type OpenAIConfig struct {
	Provider            string `mapstructure:"provider"` // azure, openai
	BaseURL             string `mapstructure:"base_url"`
	InstanceName        string `mapstructure:"instance_name"`
	Endpoint            string `mapstructure:"endpoint"`
	APIKey              string `mapstructure:"api_key"`
	APIVersion          string `mapstructure:"api_version"`
	EmbeddingDeployment string `mapstructure:"embedding_deployment"`
	EmbeddingDimensions int    `mapstructure:"embedding_dimensions"`
	ChatDeployment      string `mapstructure:"chat_deployment"`
}

// VectorConfig selects the vector index backend
type VectorConfig struct {
	Provider string `mapstructure:"provider"` // azure, qdrant
}

// SearchConfig holds Azure Cognitive Search configuration
type SearchConfig struct {
	ServiceName string `mapstructure:"service_name"`
	Endpoint    string `mapstructure:"endpoint"`
	IndexName   string `mapstructure:"index_name"`
	APIKey      string `mapstructure:"api_key"`
	APIVersion  string `mapstructure:"api_version"`
}

// QdrantConfig holds Qdrant connection configuration
type QdrantConfig struct {
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	APIKey     string `mapstructure:"api_key"`
	UseTLS     bool   `mapstructure:"use_tls"`
	Collection string `mapstructure:"collection"`
}

// RAGConfig holds retrieval configuration
type RAGConfig struct {
	TopK        int    `mapstructure:"top_k"`
	VectorField string `mapstructure:"vector_field"`
}

// IngestConfig holds ingestion configuration
type IngestConfig struct {
	DocRoot string `mapstructure:"doc_root"`
	Source  string `mapstructure:"source"`
}

// envAliases maps config keys to the environment variable names used by the
// original deployment, so existing .env.local files keep working.
var envAliases = map[string][]string{
	"openai.api_key":         {"AZURE_OPENAI_API_KEY"},
	"openai.instance_name":   {"AZURE_OPENAI_API_INSTANCE_NAME"},
	"openai.api_version":     {"AZURE_OPENAI_API_VERSION"},
	"openai.chat_deployment": {"AZURE_OPENAI_API_DEPLOYMENT_NAME"},
	"search.service_name":    {"AZURE_SEARCH_NAME"},
	"search.index_name":      {"AZURE_SEARCH_INDEX_NAME"},
	"search.api_key":         {"AZURE_SEARCH_API_KEY"},
	"search.api_version":     {"AZURE_SEARCH_API_VERSION"},
}

// Load loads configuration from file and environment
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("RAGCHAT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, names := range envAliases {
		envVar := "RAGCHAT_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(append([]string{key, envVar}, names...)...); err != nil {
			return nil, fmt.Errorf("failed to bind env for %s: %w", key, err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)

	v.SetDefault("admin.api_key", "")
	v.SetDefault("log.debug", false)

	v.SetDefault("database.path", "./data/ragchat.db")
	v.SetDefault("history.driver", "sqlite")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.key_prefix", "ragchat")

	v.SetDefault("openai.provider", "azure")
	v.SetDefault("openai.base_url", "https://api.openai.com/v1")
	v.SetDefault("openai.instance_name", "")
	v.SetDefault("openai.endpoint", "")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.api_version", "2023-05-15")
	v.SetDefault("openai.embedding_deployment", "embedding")
	v.SetDefault("openai.embedding_dimensions", 1536)
	v.SetDefault("openai.chat_deployment", "gpt-35-turbo")

	v.SetDefault("vector.provider", "azure")

	v.SetDefault("search.service_name", "")
	v.SetDefault("search.endpoint", "")
	v.SetDefault("search.index_name", "")
	v.SetDefault("search.api_key", "")
	v.SetDefault("search.api_version", "2023-07-01-Preview")

	v.SetDefault("qdrant.host", "localhost")
	v.SetDefault("qdrant.port", 6334)
	v.SetDefault("qdrant.api_key", "")
	v.SetDefault("qdrant.use_tls", false)
	v.SetDefault("qdrant.collection", "ihr")

	v.SetDefault("rag.top_k", 10)
	v.SetDefault("rag.vector_field", "embedding")

	v.SetDefault("ingest.doc_root", "./docs/ihr")
	v.SetDefault("ingest.source", "ihr")
}

// Validate checks that the credentials required by the selected providers are present
func (c *Config) Validate() error {
	var missing []string

	if c.OpenAI.APIKey == "" {
		missing = append(missing, "openai.api_key")
	}
	switch c.OpenAI.Provider {
	case "azure":
		if c.OpenAI.Endpoint == "" && c.OpenAI.InstanceName == "" {
			missing = append(missing, "openai.instance_name or openai.endpoint")
		}
	case "openai":
	default:
		return fmt.Errorf("unknown openai provider: %s", c.OpenAI.Provider)
	}

	switch c.Vector.Provider {
	case "azure":
		if c.Search.Endpoint == "" && c.Search.ServiceName == "" {
			missing = append(missing, "search.service_name or search.endpoint")
		}
		if c.Search.IndexName == "" {
			missing = append(missing, "search.index_name")
		}
		if c.Search.APIKey == "" {
			missing = append(missing, "search.api_key")
		}
	case "qdrant":
		if c.Qdrant.Collection == "" {
			missing = append(missing, "qdrant.collection")
		}
	default:
		return fmt.Errorf("unknown vector provider: %s", c.Vector.Provider)
	}

	switch c.History.Driver {
	case "sqlite", "redis":
	default:
		return fmt.Errorf("unknown history driver: %s", c.History.Driver)
	}

	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be positive, got %d", c.RAG.TopK)
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required config: %s", strings.Join(missing, ", "))
	}
	return nil
}

// Address returns the server address
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// OpenAIEndpoint returns the Azure OpenAI endpoint
func (c *Config) OpenAIEndpoint() string {
	if c.OpenAI.Endpoint != "" {
		return c.OpenAI.Endpoint
	}
	return fmt.Sprintf("https://%s.openai.azure.com", c.OpenAI.InstanceName)
}

// SearchEndpoint returns the Azure Cognitive Search endpoint
func (c *Config) SearchEndpoint() string {
	if c.Search.Endpoint != "" {
		return c.Search.Endpoint
	}
	return fmt.Sprintf("https://%s.search.windows.net", c.Search.ServiceName)
}
