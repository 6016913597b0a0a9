package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/carenest/carenest/internal/logutil"
)

type Config struct {
	DBDSN         string            `json:"db_dsn"`
	Port          int               `json:"port"`
	MigrationsDir string            `json:"migrations_dir"`
	CORSOrigins   []string          `json:"cors_origins"`
	LogConfig     logutil.LogConfig `json:"log_config"`
	FileStore     FileStoreConfig   `json:"file_store"`
	AI            AIConfig          `json:"ai"`
	OCR           OCRConfig         `json:"ocr"`
	Extract       ExtractConfig     `json:"extract"`
	Retrieval     RetrievalConfig   `json:"retrieval"`
	Jobs          JobsConfig        `json:"jobs"`
}

type FileStoreConfig struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

type AIConfig struct {
	Provider       string      `json:"provider"`
	EmbedModel     string      `json:"embed_model"`
	TimeoutSeconds int         `json:"timeout_seconds"`
	CacheSize      int         `json:"cache_size"`
	CacheTTLHours  int         `json:"cache_ttl_hours"`
	Data           interface{} `json:"data"`
}

type OCRConfig struct {
	Provider string      `json:"provider"`
	Data     interface{} `json:"data"`
}

type ExtractConfig struct {
	MinTextChars       int     `json:"min_text_chars"`
	RenderDPI          float64 `json:"render_dpi"`
	PageTimeoutSeconds int     `json:"page_timeout_seconds"`
}

type RetrievalConfig struct {
	MaxDocuments        int      `json:"max_documents"`
	MaxContentChars     int      `json:"max_content_chars"`
	PrimaryShare        float64  `json:"primary_share"`
	UseSemantic         bool     `json:"use_semantic"`
	ConfidenceHigh      float64  `json:"confidence_high"`
	ConfidenceModerate  float64  `json:"confidence_moderate"`
	ConfidenceLow       float64  `json:"confidence_low"`
	SpecialtyTopics     []string `json:"specialty_topics"`
	DomainKeywords      []string `json:"domain_keywords"`
	QuestionPatterns    []string `json:"question_patterns"`
	EmotionalPhrases    []string `json:"emotional_phrases"`
	QuestionMarkers     []string `json:"question_markers"`
	EmergencyKeywords   []string `json:"emergency_keywords"`
	EmergencyExclusions []string `json:"emergency_exclusions"`
	DomainPhrases       []string `json:"domain_phrases"`
	RateLimitSeconds    int      `json:"rate_limit_seconds"`
}

type JobsConfig struct {
	EmbeddingSpec  string `json:"embedding_spec"`
	EmbeddingBatch int    `json:"embedding_batch"`
}

func Load(path string) (*Config, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if cfg.DBDSN == "" {
		return nil, fmt.Errorf("db_dsn is required")
	}
	if cfg.Port == 0 {
		return nil, fmt.Errorf("port is required")
	}
	if cfg.MigrationsDir == "" {
		cfg.MigrationsDir = "./migrations"
	}
	if cfg.LogConfig.Level == "" {
		cfg.LogConfig.Level = "info"
	}
	if cfg.FileStore.Type == "" {
		return nil, fmt.Errorf("file_store.type is required")
	}
	if cfg.AI.Provider == "" {
		return nil, fmt.Errorf("ai.provider is required")
	}
	if cfg.AI.EmbedModel == "" {
		return nil, fmt.Errorf("ai.embed_model is required")
	}
	if cfg.AI.TimeoutSeconds == 0 {
		cfg.AI.TimeoutSeconds = 30
	}
	if cfg.AI.CacheSize == 0 {
		cfg.AI.CacheSize = 10000
	}
	if cfg.AI.CacheTTLHours == 0 {
		cfg.AI.CacheTTLHours = 2
	}
	if cfg.OCR.Provider == "" {
		cfg.OCR.Provider = "tesseract"
	}
	if cfg.Extract.MinTextChars == 0 {
		cfg.Extract.MinTextChars = 100
	}
	if cfg.Extract.RenderDPI == 0 {
		cfg.Extract.RenderDPI = 144
	}
	if cfg.Extract.PageTimeoutSeconds == 0 {
		cfg.Extract.PageTimeoutSeconds = 30
	}
	applyRetrievalDefaults(&cfg.Retrieval)
	if cfg.Jobs.EmbeddingSpec == "" {
		cfg.Jobs.EmbeddingSpec = "* * * * *"
	}
	if cfg.Jobs.EmbeddingBatch == 0 {
		cfg.Jobs.EmbeddingBatch = 20
	}
	return &cfg, nil
}

func applyRetrievalDefaults(cfg *RetrievalConfig) {
	if cfg.MaxDocuments == 0 {
		cfg.MaxDocuments = 6
	}
	if cfg.MaxContentChars == 0 {
		cfg.MaxContentChars = 5000
	}
	if cfg.PrimaryShare == 0 {
		cfg.PrimaryShare = 0.9
	}
	if cfg.ConfidenceHigh == 0 {
		cfg.ConfidenceHigh = 0.95
	}
	if cfg.ConfidenceModerate == 0 {
		cfg.ConfidenceModerate = 0.8
	}
	if cfg.ConfidenceLow == 0 {
		cfg.ConfidenceLow = 0.3
	}
	if len(cfg.SpecialtyTopics) == 0 {
		cfg.SpecialtyTopics = []string{"breastfeeding", "nursing", "latch", "milk supply", "pumping"}
	}
	if cfg.RateLimitSeconds == 0 {
		cfg.RateLimitSeconds = 1
	}
}
