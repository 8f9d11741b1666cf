package config

import (
	"strings"
	"testing"
	"time"
)

func validConfig() Config {
	cfg := Config{
		HTTP: HTTPConfig{Port: 8080},
		Corpora: []CorpusConfig{
			{Name: "lore", Records: "data/lore.json", Vectors: "data/lore.vec"},
			{Name: "slang", Kind: "sqlite", Path: "data/slang.db"},
		},
	}
	cfg.ApplyDefaults()
	return cfg
}

func TestValidate_Valid(t *testing.T) {
	cfg := validConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidate_InvalidPort(t *testing.T) {
	cfg := validConfig()
	cfg.HTTP.Port = 70000

	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for invalid port")
	}
}

func TestValidate_Corpora(t *testing.T) {
	tests := []struct {
		name    string
		corpora []CorpusConfig
		wantErr string
	}{
		{"none", nil, "at least one corpus"},
		{"unknown name", []CorpusConfig{{Name: "memes", Kind: "file", Records: "r", Vectors: "v"}}, "unknown corpus"},
		{"file without vectors", []CorpusConfig{{Name: "lore", Kind: "file", Records: "r"}}, "records and vectors"},
		{"sqlite without path", []CorpusConfig{{Name: "lore", Kind: "sqlite"}}, "path is required"},
		{"bad kind", []CorpusConfig{{Name: "lore", Kind: "parquet"}}, "kind must be"},
		{"duplicate", []CorpusConfig{
			{Name: "lore", Kind: "sqlite", Path: "a"},
			{Name: "lore", Kind: "sqlite", Path: "b"},
		}, "duplicate corpus"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			cfg.Corpora = tt.corpora
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestValidate_Extractor(t *testing.T) {
	cfg := validConfig()
	cfg.Entities.Extractor = "spacy"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown extractor")
	}

	cfg.Entities.Extractor = ExtractorLLM
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for llm extractor without model")
	}

	cfg.Entities.Model = "llama3"
	if err := cfg.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestValidate_NegativeBoost(t *testing.T) {
	cfg := validConfig()
	cfg.Retrieval.TypeBoost = ptr(-0.1)
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for negative boost")
	}
}

func TestApplyDefaults(t *testing.T) {
	cfg := Config{Corpora: []CorpusConfig{{Name: "lore"}}}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 8080 {
		t.Errorf("expected Port=8080, got %d", cfg.HTTP.Port)
	}
	if cfg.HTTP.ReadTimeoutSec != 10 {
		t.Errorf("expected ReadTimeoutSec=10, got %d", cfg.HTTP.ReadTimeoutSec)
	}
	if cfg.Embedding.BaseURL != "http://localhost:11434/v1" {
		t.Errorf("unexpected embedding base URL %q", cfg.Embedding.BaseURL)
	}
	if cfg.Embedding.Dimensions != 768 {
		t.Errorf("expected Dimensions=768, got %d", cfg.Embedding.Dimensions)
	}
	if cfg.Entities.Extractor != ExtractorGazetteer {
		t.Errorf("expected gazetteer extractor, got %q", cfg.Entities.Extractor)
	}
	if cfg.Retrieval.TopK != 7 || cfg.Retrieval.MaxResults != 4 {
		t.Errorf("unexpected retrieval defaults: %+v", cfg.Retrieval)
	}
	if *cfg.Retrieval.TypeBoost != 0.2 || *cfg.Retrieval.EntityBoost != 0.05 {
		t.Errorf("unexpected boosts: %v / %v", *cfg.Retrieval.TypeBoost, *cfg.Retrieval.EntityBoost)
	}
	if cfg.Retrieval.Timeout() != 10*time.Second {
		t.Errorf("expected 10s timeout, got %v", cfg.Retrieval.Timeout())
	}
	if cfg.Corpora[0].Kind != "file" {
		t.Errorf("expected default kind file, got %q", cfg.Corpora[0].Kind)
	}
}

func TestApplyDefaults_NoOverride(t *testing.T) {
	cfg := Config{
		HTTP:      HTTPConfig{Port: 9090, ReadTimeoutSec: 30},
		Retrieval: RetrievalConfig{TopK: 12, TypeBoost: ptr(0.0)},
		Entities:  EntitiesConfig{Extractor: ExtractorNone},
	}
	cfg.ApplyDefaults()

	if cfg.HTTP.Port != 9090 || cfg.HTTP.ReadTimeoutSec != 30 {
		t.Errorf("http overridden: %+v", cfg.HTTP)
	}
	if cfg.Retrieval.TopK != 12 {
		t.Errorf("expected TopK=12, got %d", cfg.Retrieval.TopK)
	}
	if *cfg.Retrieval.TypeBoost != 0 {
		t.Errorf("explicit zero boost must survive, got %v", *cfg.Retrieval.TypeBoost)
	}
	if cfg.Entities.Extractor != ExtractorNone {
		t.Errorf("expected none extractor, got %q", cfg.Entities.Extractor)
	}
}

func TestParse_ExpandsEnv(t *testing.T) {
	t.Setenv("ORACLE_TEST_KEY", "sk-test")
	yaml := `
http:
  port: 8081
embedding:
  api_key: ${ORACLE_TEST_KEY}
  model: ${ORACLE_TEST_MODEL:-nomic-embed-text}
corpora:
  - name: lore
    records: lore.json
    vectors: lore.vec
`
	cfg, err := Parse([]byte(yaml))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Embedding.APIKey != "sk-test" {
		t.Errorf("expected expanded api key, got %q", cfg.Embedding.APIKey)
	}
	if cfg.Embedding.Model != "nomic-embed-text" {
		t.Errorf("expected default model, got %q", cfg.Embedding.Model)
	}
	if cfg.Entities.APIKey != "sk-test" {
		t.Errorf("expected entities key inherited, got %q", cfg.Entities.APIKey)
	}
}

func TestParse_Invalid(t *testing.T) {
	if _, err := Parse([]byte("http: [")); err == nil {
		t.Error("expected YAML error")
	}
	if _, err := Parse([]byte("http:\n  port: 8080\n")); err == nil {
		t.Error("expected validation error without corpora")
	}
}
