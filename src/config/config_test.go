package config

import (
	"strings"
	"testing"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("MEDIRAG_PROVIDER", "dummy")
	t.Setenv("GROQ_MODEL", "")
	t.Setenv("MODEL_TEMPERATURE", "")
	t.Setenv("MAX_CONVERSATION_HISTORY", "")
	t.Setenv("RETRIEVER_K", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Model != "llama-3.3-70b-versatile" {
		t.Errorf("Model = %q", cfg.Model)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("Temperature = %v", cfg.Temperature)
	}
	if cfg.MaxHistory != 10 {
		t.Errorf("MaxHistory = %d", cfg.MaxHistory)
	}
	if cfg.RetrieverK != 5 {
		t.Errorf("RetrieverK = %d", cfg.RetrieverK)
	}
	if cfg.MemoryPath != "memory/users" {
		t.Errorf("MemoryPath = %q", cfg.MemoryPath)
	}
	if cfg.VectorDBPath != "vector_db" {
		t.Errorf("VectorDBPath = %q", cfg.VectorDBPath)
	}
}

func TestLoadMissingCredentialIsFatal(t *testing.T) {
	t.Setenv("MEDIRAG_PROVIDER", "groq")
	t.Setenv("GROQ_API_KEY", "")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for missing GROQ_API_KEY")
	} else if !strings.Contains(err.Error(), "GROQ_API_KEY") {
		t.Fatalf("error should name the missing variable, got: %v", err)
	}
}

func TestValidateUnknownProvider(t *testing.T) {
	cfg := &Config{Provider: "watson"}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestValidateClampsBounds(t *testing.T) {
	cfg := &Config{Provider: "dummy", MaxHistory: -1, RetrieverK: 0}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if cfg.MaxHistory != 10 || cfg.RetrieverK != 5 {
		t.Errorf("bounds not defaulted: MaxHistory=%d RetrieverK=%d", cfg.MaxHistory, cfg.RetrieverK)
	}
}
