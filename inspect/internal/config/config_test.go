package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func TestApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	if cfg.Aggregation.Interval != 2*time.Second {
		t.Errorf("interval: got %v", cfg.Aggregation.Interval)
	}
	if cfg.Aggregation.MaxContextSize != 50000 {
		t.Errorf("max context size: got %d", cfg.Aggregation.MaxContextSize)
	}
	if cfg.Tracker.MaxTrackedElements != 1000 || cfg.Tracker.EvictBatch != 100 {
		t.Errorf("tracker: %+v", cfg.Tracker)
	}
	if cfg.Debounce.Window != 250*time.Millisecond {
		t.Errorf("debounce window: got %v", cfg.Debounce.Window)
	}
	if cfg.Extraction.MaxDepth != 15 {
		t.Errorf("max depth: got %d", cfg.Extraction.MaxDepth)
	}
	if cfg.Browser.Stealth != "headless" {
		t.Errorf("stealth: got %q", cfg.Browser.Stealth)
	}
}

func TestApplyDefaults_KeepsExplicitValues(t *testing.T) {
	cfg := Config{}
	cfg.Aggregation.Interval = 5 * time.Second
	cfg.Tracker.MaxTrackedElements = 10
	cfg.ApplyDefaults()

	if cfg.Aggregation.Interval != 5*time.Second {
		t.Errorf("interval overwritten: %v", cfg.Aggregation.Interval)
	}
	if cfg.Tracker.MaxTrackedElements != 10 {
		t.Errorf("max tracked overwritten: %d", cfg.Tracker.MaxTrackedElements)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "domscope.yaml")
	data := []byte(`
page:
  url: https://shop.example/checkout
  chat_id: chat-42
aggregation:
  interval: 10s
  max_context_size: 1234
tracker:
  max_tracked_elements: 50
sinks:
  - type: stdout
  - type: webhook
    url: https://hooks.example/ctx
store:
  path: /tmp/domscope.db
`)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Page.URL != "https://shop.example/checkout" || cfg.Page.ChatID != "chat-42" {
		t.Errorf("page: %+v", cfg.Page)
	}
	if cfg.Aggregation.Interval != 10*time.Second {
		t.Errorf("interval: got %v", cfg.Aggregation.Interval)
	}
	if cfg.Aggregation.MaxContextSize != 1234 {
		t.Errorf("max context size: got %d", cfg.Aggregation.MaxContextSize)
	}
	if cfg.Tracker.MaxTrackedElements != 50 {
		t.Errorf("max tracked: got %d", cfg.Tracker.MaxTrackedElements)
	}
	if len(cfg.Sinks) != 2 || cfg.Sinks[1].URL != "https://hooks.example/ctx" {
		t.Errorf("sinks: %+v", cfg.Sinks)
	}
	// Unset fields picked up defaults.
	if cfg.Aggregation.HistoryLimit != 50 {
		t.Errorf("history limit default: got %d", cfg.Aggregation.HistoryLimit)
	}
}

func TestLoadFile_Missing(t *testing.T) {
	if _, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("want error for missing file")
	}
}

func TestLoadFile_Invalid(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("aggregation: ["), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFile(path); err == nil {
		t.Error("want error for malformed yaml")
	}
}

func TestExportImportRoundTrip(t *testing.T) {
	cfg := Config{}
	cfg.Page = PageConfig{ID: "p1", URL: "https://shop.example", ChatID: "chat-9"}
	cfg.Sinks = []SinkConfig{{Type: "webhook", URL: "https://hooks.example"}}
	cfg.Extraction.TestGeneration = true
	cfg.ApplyDefaults()

	data, err := cfg.Export()
	if err != nil {
		t.Fatalf("export: %v", err)
	}

	got, err := Import(data)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if !reflect.DeepEqual(*got, cfg) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", *got, cfg)
	}
}

func TestImport_Invalid(t *testing.T) {
	if _, err := Import([]byte(`{"aggregation": 7}`)); err == nil {
		t.Error("want error for malformed import")
	}
}
