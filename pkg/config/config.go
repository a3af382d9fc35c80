package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	LLM struct {
		BaseURL     string  `yaml:"base_url"`
		Model       string  `yaml:"model"`
		MaxTokens   int     `yaml:"max_tokens"`
		Temperature float64 `yaml:"temperature"`
	} `yaml:"llm"`

	Embedding struct {
		Model          string  `yaml:"model"`
		BaseURL        string  `yaml:"base_url"`
		DocPrefix      string  `yaml:"doc_prefix"`
		QueryPrefix    string  `yaml:"query_prefix"`
		MaxInputChars  int     `yaml:"max_input_chars"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
	} `yaml:"embedding"`

	Index struct {
		Backend    string `yaml:"backend"` // "file" or "postgres"
		PersistDir string `yaml:"persist_dir"`
		URL        string `yaml:"url"` // postgres backend only
		TableName  string `yaml:"table_name"`
		VectorDim  int    `yaml:"vector_dim"`
	} `yaml:"index"`

	Ingest struct {
		SourceDir    string `yaml:"source_dir"`
		ChunkSize    int    `yaml:"chunk_size"`
		ChunkOverlap int    `yaml:"chunk_overlap"`
		BatchSize    int    `yaml:"batch_size"`
		Workers      int    `yaml:"workers"`
	} `yaml:"ingest"`

	Query struct {
		TopN int `yaml:"top_n"`
	} `yaml:"query"`
}

func LoadConfig(path string) (*Config, error) {
	// Pick up a .env file first so its values are visible below.
	_ = godotenv.Load()

	// If no path provided, try default locations
	if path == "" {
		locations := []string{
			"config.yaml",
			"config.yml",
			filepath.Join(os.Getenv("HOME"), ".config/docsage/config.yaml"),
			"/etc/docsage/config.yaml",
		}

		for _, loc := range locations {
			if _, err := os.Stat(loc); err == nil {
				path = loc
				break
			}
		}
	}

	if path == "" {
		return getDefaultConfig()
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %v", err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("error parsing config file: %v", err)
	}

	mergeWithEnv(&config)
	applyDefaults(&config)

	return &config, nil
}

func getDefaultConfig() (*Config, error) {
	config := &Config{}
	mergeWithEnv(config)
	applyDefaults(config)
	return config, nil
}

func applyDefaults(config *Config) {
	if config.LLM.Model == "" {
		config.LLM.Model = "mistral"
	}
	if config.LLM.MaxTokens == 0 {
		config.LLM.MaxTokens = 2000
	}
	if config.LLM.Temperature == 0 {
		config.LLM.Temperature = 0.7
	}
	if config.LLM.BaseURL == "" {
		config.LLM.BaseURL = "http://localhost:11434"
	}

	if config.Embedding.Model == "" {
		config.Embedding.Model = "nomic-embed-text:latest"
	}
	if config.Embedding.BaseURL == "" {
		config.Embedding.BaseURL = config.LLM.BaseURL
	}
	if config.Embedding.DocPrefix == "" {
		config.Embedding.DocPrefix = "search_document: "
	}
	if config.Embedding.QueryPrefix == "" {
		config.Embedding.QueryPrefix = "search_query: "
	}
	if config.Embedding.MaxInputChars == 0 {
		config.Embedding.MaxInputChars = 8000
	}
	if config.Embedding.RequestsPerSec == 0 {
		config.Embedding.RequestsPerSec = 10
	}

	if config.Index.Backend == "" {
		config.Index.Backend = "file"
	}
	if config.Index.PersistDir == "" {
		config.Index.PersistDir = "db"
	}
	if config.Index.TableName == "" {
		config.Index.TableName = "chunks"
	}

	if config.Ingest.SourceDir == "" {
		config.Ingest.SourceDir = "source_documents"
	}
	if config.Ingest.ChunkSize == 0 {
		config.Ingest.ChunkSize = 1000
	}
	if config.Ingest.ChunkOverlap == 0 {
		config.Ingest.ChunkOverlap = 100
	}
	if config.Ingest.BatchSize == 0 {
		config.Ingest.BatchSize = 8
	}
	if config.Ingest.Workers == 0 {
		config.Ingest.Workers = 4
	}

	if config.Query.TopN == 0 {
		config.Query.TopN = 4
	}
}

func mergeWithEnv(config *Config) {
	if baseURL := os.Getenv("OLLAMA_BASE_URL"); baseURL != "" {
		config.LLM.BaseURL = baseURL
		config.Embedding.BaseURL = baseURL
	}
	if model := os.Getenv("MODEL_NAME"); model != "" {
		config.LLM.Model = model
	}
	if model := os.Getenv("EMBEDDINGS_MODEL_NAME"); model != "" {
		config.Embedding.Model = model
	}
	if dir := os.Getenv("PERSIST_DIRECTORY"); dir != "" {
		config.Index.PersistDir = dir
	}
	if dir := os.Getenv("SOURCE_DIRECTORY"); dir != "" {
		config.Ingest.SourceDir = dir
	}
	if dbURL := os.Getenv("DATABASE_URL"); dbURL != "" {
		config.Index.URL = dbURL
	}
	if n := os.Getenv("MODEL_N_CTX"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.LLM.MaxTokens = v
		}
	}
	if n := os.Getenv("MODEL_N_BATCH"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.Ingest.BatchSize = v
		}
	}
	if n := os.Getenv("TARGET_SOURCE_CHUNKS"); n != "" {
		if v, err := strconv.Atoi(n); err == nil {
			config.Query.TopN = v
		}
	}
}
