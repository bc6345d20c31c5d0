package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

const (
	defaultChunkSize    = 1000
	defaultChunkOverlap = 200
	defaultTopK         = 10
)

// LLMConfig describes one model endpoint. Provider selects the langchaingo
// backend ("openai" or "ollama").
type LLMConfig struct {
	Provider string `yaml:"provider"`
	BaseURL  string `yaml:"base_url"`
	Model    string `yaml:"model"`
	Key      string `yaml:"key"`
}

// StorageConfig locates the persisted knowledge base. Backend selects the
// store implementation ("chromem" or "postgres").
type StorageConfig struct {
	Root       string `yaml:"root"`
	Collection string `yaml:"collection"`
	Backend    string `yaml:"backend"`
}

type DatabaseConfig struct {
	DSN      string `yaml:"dsn"`
	Password string `yaml:"password"`
	Debug    bool   `yaml:"debug"`
}

type RAGConfig struct {
	ChunkSize    int `yaml:"chunk_size"`
	ChunkOverlap int `yaml:"chunk_overlap"`
	TopK         int `yaml:"top_k"`
}

type Config struct {
	Storage   StorageConfig  `yaml:"storage"`
	Database  DatabaseConfig `yaml:"database"`
	EmbedLLM  LLMConfig      `yaml:"embedding"`
	GenLLM    LLMConfig      `yaml:"generation"`
	VisionLLM LLMConfig      `yaml:"vision"`
	RAG       RAGConfig      `yaml:"rag"`
}

// LoadConfig reads a YAML config file and fills in defaults for any
// unset RAG and storage values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config: %w", err)
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	cfg.ApplyDefaults()
	return &cfg, nil
}

// ApplyDefaults fills zero values with the built-in defaults.
func (c *Config) ApplyDefaults() {
	if c.RAG.ChunkSize <= 0 {
		c.RAG.ChunkSize = defaultChunkSize
	}
	if c.RAG.ChunkOverlap <= 0 || c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
		c.RAG.ChunkOverlap = defaultChunkOverlap
		if c.RAG.ChunkOverlap >= c.RAG.ChunkSize {
			c.RAG.ChunkOverlap = c.RAG.ChunkSize / 5
		}
	}
	if c.RAG.TopK <= 0 {
		c.RAG.TopK = defaultTopK
	}
	if c.Storage.Root == "" {
		c.Storage.Root = "./storage"
	}
	if c.Storage.Collection == "" {
		c.Storage.Collection = "multimodal_rag"
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "chromem"
	}
}
