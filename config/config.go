package config

import (
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the tutor backend.
type Config struct {
	Embedding EmbeddingConfig `yaml:"embedding"`
	Index     IndexConfig     `yaml:"index"`
	Retrieve  RetrieveConfig  `yaml:"retrieve"`
	Generator GeneratorConfig `yaml:"generator"`
	Storage   StorageConfig   `yaml:"storage"`
}

// EmbeddingConfig holds embedding configuration.
type EmbeddingConfig struct {
	Provider  string `yaml:"provider"`    // "openai", "ollama", "hash"
	Model     string `yaml:"model"`       // e.g. "text-embedding-3-small"
	APIKeyEnv string `yaml:"api_key_env"` // environment variable holding the API key
	BaseURL   string `yaml:"base_url"`
	Dimension int    `yaml:"dimension"` // only consulted for the hash provider
}

// IndexConfig holds vector index configuration.
type IndexConfig struct {
	Provider   string `yaml:"provider"` // "qdrant", "bolt"
	Collection string `yaml:"collection"`
	URL        string `yaml:"url"`
	APIKeyEnv  string `yaml:"api_key_env"`
	BatchSize  int    `yaml:"batch_size"`
}

// RetrieveConfig holds query-time retrieval configuration.
type RetrieveConfig struct {
	TopK           int     `yaml:"top_k"`
	ScoreThreshold float64 `yaml:"score_threshold"`
}

// GeneratorConfig holds text-generation configuration.
type GeneratorConfig struct {
	Model              string `yaml:"model"`
	APIKeyEnv          string `yaml:"api_key_env"`
	BaseURL            string `yaml:"base_url"`
	AnswerMaxTokens    int    `yaml:"answer_max_tokens"`
	AdaptMaxTokens     int    `yaml:"adapt_max_tokens"`
	TranslateMaxTokens int    `yaml:"translate_max_tokens"`
	TargetLanguage     string `yaml:"target_language"`
	TimeoutSecs        int    `yaml:"timeout_secs"`
}

// StorageConfig holds local storage paths.
type StorageConfig struct {
	DataDir string `yaml:"data_dir"` // holds metadata.db and vectors.db
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() *Config {
	return &Config{
		Embedding: EmbeddingConfig{
			Provider:  "openai",
			Model:     "text-embedding-3-small",
			APIKeyEnv: "OPENAI_API_KEY",
			Dimension: 384,
		},
		Index: IndexConfig{
			Provider:   "bolt",
			Collection: "textbook_chunks",
			APIKeyEnv:  "QDRANT_API_KEY",
			BatchSize:  32,
		},
		Retrieve: RetrieveConfig{
			TopK:           5,
			ScoreThreshold: 0.7,
		},
		Generator: GeneratorConfig{
			Model:              "claude-3-5-sonnet-20241022",
			APIKeyEnv:          "ANTHROPIC_API_KEY",
			AnswerMaxTokens:    1000,
			AdaptMaxTokens:     2000,
			TranslateMaxTokens: 3000,
			TargetLanguage:     "Urdu",
			TimeoutSecs:        120,
		},
		Storage: StorageConfig{
			DataDir: ".tutor",
		},
	}
}

// Load reads configuration from the given path, falling back to
// defaults when the file does not exist.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	applyDefaults(cfg)
	return cfg, nil
}

// LoadFromDir loads tutor.yaml from the given directory.
func LoadFromDir(dir string) (*Config, error) {
	return Load(filepath.Join(dir, "tutor.yaml"))
}

// EnsureDataDir creates the data directory if needed and returns it.
func (c *Config) EnsureDataDir() (string, error) {
	if err := os.MkdirAll(c.Storage.DataDir, 0o700); err != nil {
		return "", err
	}
	return c.Storage.DataDir, nil
}

// MetadataDBPath returns the path of the SQLite metadata database.
func (c *Config) MetadataDBPath() string {
	return filepath.Join(c.Storage.DataDir, "metadata.db")
}

// VectorDBPath returns the path of the local vector index database.
func (c *Config) VectorDBPath() string {
	return filepath.Join(c.Storage.DataDir, "vectors.db")
}

func applyDefaults(cfg *Config) {
	def := DefaultConfig()
	if cfg.Embedding.Provider == "" {
		cfg.Embedding.Provider = def.Embedding.Provider
	}
	if cfg.Embedding.Model == "" {
		cfg.Embedding.Model = def.Embedding.Model
	}
	if cfg.Embedding.APIKeyEnv == "" {
		cfg.Embedding.APIKeyEnv = def.Embedding.APIKeyEnv
	}
	if cfg.Embedding.Dimension == 0 {
		cfg.Embedding.Dimension = def.Embedding.Dimension
	}
	if cfg.Index.Provider == "" {
		cfg.Index.Provider = def.Index.Provider
	}
	if cfg.Index.Collection == "" {
		cfg.Index.Collection = def.Index.Collection
	}
	if cfg.Index.APIKeyEnv == "" {
		cfg.Index.APIKeyEnv = def.Index.APIKeyEnv
	}
	if cfg.Index.BatchSize == 0 {
		cfg.Index.BatchSize = def.Index.BatchSize
	}
	if cfg.Retrieve.TopK == 0 {
		cfg.Retrieve.TopK = def.Retrieve.TopK
	}
	if cfg.Retrieve.ScoreThreshold == 0 {
		cfg.Retrieve.ScoreThreshold = def.Retrieve.ScoreThreshold
	}
	if cfg.Generator.Model == "" {
		cfg.Generator.Model = def.Generator.Model
	}
	if cfg.Generator.APIKeyEnv == "" {
		cfg.Generator.APIKeyEnv = def.Generator.APIKeyEnv
	}
	if cfg.Generator.AnswerMaxTokens == 0 {
		cfg.Generator.AnswerMaxTokens = def.Generator.AnswerMaxTokens
	}
	if cfg.Generator.AdaptMaxTokens == 0 {
		cfg.Generator.AdaptMaxTokens = def.Generator.AdaptMaxTokens
	}
	if cfg.Generator.TranslateMaxTokens == 0 {
		cfg.Generator.TranslateMaxTokens = def.Generator.TranslateMaxTokens
	}
	if cfg.Generator.TargetLanguage == "" {
		cfg.Generator.TargetLanguage = def.Generator.TargetLanguage
	}
	if cfg.Generator.TimeoutSecs == 0 {
		cfg.Generator.TimeoutSecs = def.Generator.TimeoutSecs
	}
	if cfg.Storage.DataDir == "" {
		cfg.Storage.DataDir = def.Storage.DataDir
	}
}
