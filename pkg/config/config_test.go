package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := len(cfg.Experiment.Models); got != 9 {
		t.Errorf("default models = %d, want 9", got)
	}
	if cfg.Experiment.Models[8].DisplayName() != "BM25 (k1=0.9,b=0.3)" {
		t.Errorf("tuned BM25 label = %q", cfg.Experiment.Models[8].DisplayName())
	}
	if strings.Join(cfg.Index.Variants, ",") != "original,stemmed,lemmatized" {
		t.Errorf("variants = %v", cfg.Index.Variants)
	}
	if cfg.Experiment.ReportTopK != 3 {
		t.Errorf("reportTopK = %d, want 3", cfg.Experiment.ReportTopK)
	}
}

func TestLoadYAML(t *testing.T) {
	path := writeConfig(t, `
index:
  variants: [original, stemmed]
  stopWords: false
experiment:
  workers: 2
  topN: 50
  timeout: 90s
  models:
    - name: BM25
      label: bm25-tuned
      params: {k1: 0.9, b: 0.3}
    - name: DirichletLM
      params: {mu: 1500}
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Index.StopWords {
		t.Error("stopWords should be disabled")
	}
	if len(cfg.Index.Variants) != 2 {
		t.Errorf("variants = %v", cfg.Index.Variants)
	}
	if cfg.Experiment.Workers != 2 || cfg.Experiment.TopN != 50 {
		t.Errorf("experiment = %+v", cfg.Experiment)
	}
	if cfg.Experiment.Timeout != 90*time.Second {
		t.Errorf("timeout = %v", cfg.Experiment.Timeout)
	}
	if len(cfg.Experiment.Models) != 2 {
		t.Fatalf("models = %+v", cfg.Experiment.Models)
	}
	if cfg.Experiment.Models[0].DisplayName() != "bm25-tuned" || cfg.Experiment.Models[0].Params["k1"] != 0.9 {
		t.Errorf("model[0] = %+v", cfg.Experiment.Models[0])
	}
	if cfg.Experiment.Models[1].DisplayName() != "DirichletLM" || cfg.Experiment.Models[1].Params["mu"] != 1500 {
		t.Errorf("model[1] = %+v", cfg.Experiment.Models[1])
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("RE_EXPERIMENT_WORKERS", "3")
	t.Setenv("RE_INDEX_VARIANTS", "stemmed")
	t.Setenv("RE_DATA_QRELS", "/tmp/q.txt")
	t.Setenv("RE_REDIS_ENABLED", "true")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Experiment.Workers != 3 {
		t.Errorf("workers = %d", cfg.Experiment.Workers)
	}
	if len(cfg.Index.Variants) != 1 || cfg.Index.Variants[0] != "stemmed" {
		t.Errorf("variants = %v", cfg.Index.Variants)
	}
	if cfg.Data.Qrels != "/tmp/q.txt" {
		t.Errorf("qrels = %q", cfg.Data.Qrels)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis should be enabled")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"no workers", func(c *Config) { c.Experiment.Workers = 0 }, "workers"},
		{"no models", func(c *Config) { c.Experiment.Models = nil }, "at least one model"},
		{"duplicate label", func(c *Config) {
			c.Experiment.Models = []ModelConfig{{Name: "BM25"}, {Name: "BM25"}}
		}, "duplicate label"},
		{"no variants", func(c *Config) { c.Index.Variants = nil }, "variants"},
		{"limits", func(c *Config) { c.Search.MaxResults = 1 }, "maxResults"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("Validate() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}
