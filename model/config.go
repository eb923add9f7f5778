package model

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// SizeUnit selects how the context budget is measured
type SizeUnit string

const (
	SizeUnitChars  SizeUnit = "chars"
	SizeUnitTokens SizeUnit = "tokens"
)

// Backend selects the graph store implementation
type Backend string

const (
	BackendPostgres Backend = "postgres"
	BackendNeo4j    Backend = "neo4j"
	BackendMemory   Backend = "memory"
)

// EnvPrefix is the prefix of all environment variables read by LoadRetrieverConfig
const EnvPrefix = "GRAPHRAG_"

// RetrieverConfig represents the configuration of the retrieval engine
type RetrieverConfig struct {
	// Models
	EmbeddingModelName string `yaml:"embedding_model_name" json:"embedding_model_name" env:"EMBEDDING_MODEL_NAME"`
	EmbeddingOnnxPath  string `yaml:"embedding_onnx_path" json:"embedding_onnx_path" env:"EMBEDDING_ONNX_PATH"`
	EmbeddingDim       int    `yaml:"embedding_dim" json:"embedding_dim" env:"EMBEDDING_DIM"`
	NERModelName       string `yaml:"ner_model_name" json:"ner_model_name" env:"NER_MODEL_NAME"`
	NEROnnxPath        string `yaml:"ner_onnx_path" json:"ner_onnx_path" env:"NER_ONNX_PATH"`
	ModelDir           string `yaml:"model_dir" json:"model_dir" env:"MODEL_DIR"`
	UseNER             bool   `yaml:"use_ner" json:"use_ner" env:"USE_NER"`
	LazyLoadModel      bool   `yaml:"lazy_load_model" json:"lazy_load_model" env:"LAZY_LOAD_MODEL"`

	// Resolution
	TopKEntities        int     `yaml:"top_k_entities" json:"top_k_entities" env:"TOP_K_ENTITIES"`
	SimilarityThreshold float64 `yaml:"similarity_threshold" json:"similarity_threshold" env:"SIMILARITY_THRESHOLD"`
	NERMinScore         float64 `yaml:"ner_min_score" json:"ner_min_score" env:"NER_MIN_SCORE"`

	// Expansion
	GraphDepth          int       `yaml:"graph_depth" json:"graph_depth" env:"GRAPH_DEPTH"`
	MaxSeeds            int       `yaml:"max_seeds" json:"max_seeds" env:"MAX_SEEDS"`
	HighDegreeThreshold int       `yaml:"high_degree_threshold" json:"high_degree_threshold" env:"HIGH_DEGREE_THRESHOLD"`
	NeighborLimit       int       `yaml:"neighbor_limit" json:"neighbor_limit" env:"NEIGHBOR_LIMIT"`
	HubNeighborLimit    int       `yaml:"hub_neighbor_limit" json:"hub_neighbor_limit" env:"HUB_NEIGHBOR_LIMIT"`
	MaxEvidence         int       `yaml:"max_evidence" json:"max_evidence" env:"MAX_EVIDENCE"`
	HopDecay            float64   `yaml:"hop_decay" json:"hop_decay" env:"HOP_DECAY"`
	KeywordFilter       bool      `yaml:"keyword_filter" json:"keyword_filter" env:"KEYWORD_FILTER"`
	KeywordMatchMode    MatchMode `yaml:"keyword_match_mode" json:"keyword_match_mode" env:"KEYWORD_MATCH_MODE"`
	Concurrency         int       `yaml:"concurrency" json:"concurrency" env:"CONCURRENCY"`

	// Store access
	Backend      Backend       `yaml:"backend" json:"backend" env:"BACKEND"`
	StoreRetries int           `yaml:"store_retries" json:"store_retries" env:"STORE_RETRIES"`
	RetryBackoff time.Duration `yaml:"retry_backoff" json:"retry_backoff" env:"RETRY_BACKOFF"`
	Timeout      time.Duration `yaml:"timeout" json:"timeout" env:"TIMEOUT"`
	AllowPartial bool          `yaml:"allow_partial" json:"allow_partial" env:"ALLOW_PARTIAL"`

	// Context
	SizeBudget    int      `yaml:"size_budget" json:"size_budget" env:"SIZE_BUDGET"`
	SizeUnit      SizeUnit `yaml:"size_unit" json:"size_unit" env:"SIZE_UNIT"`
	TokenEncoding string   `yaml:"token_encoding" json:"token_encoding" env:"TOKEN_ENCODING"`
	ContextHeader string   `yaml:"context_header" json:"context_header" env:"CONTEXT_HEADER"`
}

// DefaultRetrieverConfig returns a sensible default configuration
func DefaultRetrieverConfig() RetrieverConfig {
	return RetrieverConfig{
		EmbeddingModelName:  "sentence-transformers/all-MiniLM-L6-v2",
		EmbeddingOnnxPath:   "onnx/model.onnx",
		EmbeddingDim:        384,
		NERModelName:        "KnightsAnalytics/distilbert-NER",
		NEROnnxPath:         "model.onnx",
		ModelDir:            "./models",
		UseNER:              true,
		LazyLoadModel:       true,
		TopKEntities:        20,
		SimilarityThreshold: 0.0,
		NERMinScore:         0.5,
		GraphDepth:          2,
		MaxSeeds:            10,
		HighDegreeThreshold: 50,
		NeighborLimit:       50,
		HubNeighborLimit:    5,
		MaxEvidence:         200,
		HopDecay:            0.8,
		KeywordFilter:       true,
		KeywordMatchMode:    MatchSubstring,
		Concurrency:         4,
		Backend:             BackendPostgres,
		StoreRetries:        2,
		RetryBackoff:        100 * time.Millisecond,
		Timeout:             30 * time.Second,
		AllowPartial:        true,
		SizeBudget:          4000,
		SizeUnit:            SizeUnitChars,
		TokenEncoding:       "cl100k_base",
		ContextHeader:       "## Retrieved evidence (ranked by relevance)",
	}
}

// Validate checks all fields and returns an error wrapping ErrInvalidConfig
func (c *RetrieverConfig) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...interface{}) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	check(c.EmbeddingModelName != "", "embedding_model_name must be set")
	check(!c.UseNER || c.NERModelName != "", "ner_model_name must be set when use_ner is enabled")
	check(c.TopKEntities > 0, "top_k_entities must be positive, got %d", c.TopKEntities)
	check(c.GraphDepth >= 0, "graph_depth must not be negative, got %d", c.GraphDepth)
	check(c.MaxSeeds > 0, "max_seeds must be positive, got %d", c.MaxSeeds)
	check(c.HighDegreeThreshold >= 0, "high_degree_threshold must not be negative, got %d", c.HighDegreeThreshold)
	check(c.NeighborLimit > 0, "neighbor_limit must be positive, got %d", c.NeighborLimit)
	check(c.HubNeighborLimit > 0 && c.HubNeighborLimit <= c.NeighborLimit,
		"hub_neighbor_limit must be in [1, neighbor_limit], got %d", c.HubNeighborLimit)
	check(c.MaxEvidence > 0, "max_evidence must be positive, got %d", c.MaxEvidence)
	check(c.HopDecay > 0 && c.HopDecay <= 1, "hop_decay must be in (0, 1], got %v", c.HopDecay)
	check(c.SimilarityThreshold >= 0 && c.SimilarityThreshold <= 1, "similarity_threshold must be in [0, 1], got %v", c.SimilarityThreshold)
	check(c.NERMinScore >= 0 && c.NERMinScore <= 1, "ner_min_score must be in [0, 1], got %v", c.NERMinScore)
	check(c.Concurrency > 0, "concurrency must be positive, got %d", c.Concurrency)
	check(c.StoreRetries >= 0, "store_retries must not be negative, got %d", c.StoreRetries)
	check(c.RetryBackoff >= 0, "retry_backoff must not be negative")
	check(c.Timeout >= 0, "timeout must not be negative")
	check(c.SizeBudget > 0, "size_budget must be positive, got %d", c.SizeBudget)

	if _, err := ParseMatchMode(string(c.KeywordMatchMode)); err != nil {
		errs = append(errs, err)
	}
	switch c.SizeUnit {
	case SizeUnitChars, SizeUnitTokens:
	default:
		errs = append(errs, fmt.Errorf("size_unit must be %q or %q, got %q", SizeUnitChars, SizeUnitTokens, c.SizeUnit))
	}
	switch c.Backend {
	case BackendPostgres, BackendNeo4j, BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q", c.Backend))
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// LoadRetrieverConfig builds a configuration from defaults, an optional YAML
// file, an optional .env file and GRAPHRAG_* environment variables, in that order.
func LoadRetrieverConfig(path string) (RetrieverConfig, error) {
	config := DefaultRetrieverConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return config, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return config, fmt.Errorf("parse config file: %w", err)
		}
	}

	// A missing .env file is fine
	_ = godotenv.Load()

	if err := env.Parse(&config, env.Options{Prefix: EnvPrefix}); err != nil {
		return config, fmt.Errorf("parse environment: %w", err)
	}

	if err := config.Validate(); err != nil {
		return config, err
	}
	return config, nil
}
