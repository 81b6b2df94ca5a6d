package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(file, []byte(content), 0o644); err != nil {
		t.Fatalf("write sources file: %v", err)
	}
	return file
}

func TestLoadRegistryYAML(t *testing.T) {
	file := writeFile(t, "sources.yaml", `
sources:
  - id: ibex
    name: IBEX
    source_url: https://seahorse-app-ehbvv.ondigitalocean.app/prices
  - id: mirror
    name: Mirror
    source_url: http://localhost:8080/prices
    config:
      user_agent: ibex-prices/1.0
`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}

	all := reg.All()
	if len(all) != 2 {
		t.Fatalf("expected 2 sources, got %d", len(all))
	}
	if all[0].ID != "ibex" || all[1].ID != "mirror" {
		t.Fatalf("unexpected order: %s, %s", all[0].ID, all[1].ID)
	}

	mirror, ok := reg.ByID("mirror")
	if !ok {
		t.Fatalf("expected source id mirror to be loaded")
	}
	if got := Headers(mirror)["User-Agent"]; got != "ibex-prices/1.0" {
		t.Fatalf("unexpected user agent header: %q", got)
	}
}

func TestLoadRegistryJSON(t *testing.T) {
	file := writeFile(t, "sources.json", `{"sources":[{"id":"ibex","source_url":"https://example.com/prices"}]}`)

	reg, err := LoadRegistry(file)
	if err != nil {
		t.Fatalf("LoadRegistry returned error: %v", err)
	}
	if _, ok := reg.ByID("ibex"); !ok {
		t.Fatalf("expected ibex source")
	}
}

func TestLoadRegistryDuplicateID(t *testing.T) {
	file := writeFile(t, "sources.yaml", `
sources:
  - id: duplicate
    source_url: https://p1.example/prices
  - id: duplicate
    source_url: https://p2.example/prices
`)

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected duplicate source error, got nil")
	}
}

func TestLoadRegistryRejectsRelativeURL(t *testing.T) {
	file := writeFile(t, "sources.yaml", `
sources:
  - id: local
    source_url: /prices
`)

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected error for relative source_url")
	}
}

func TestLoadRegistryEmpty(t *testing.T) {
	file := writeFile(t, "sources.yaml", "sources: []\n")

	if _, err := LoadRegistry(file); err == nil {
		t.Fatalf("expected error for empty registry")
	}
}

func TestLoadRegistryReportsDecodeError(t *testing.T) {
	file := writeFile(t, "sources.yaml", "sources:\n  - id: ibex\n    source_url: [unterminated\n")

	_, err := LoadRegistry(file)
	if err == nil {
		t.Fatalf("expected decode error")
	}
	if !strings.Contains(err.Error(), "decode yaml sources") {
		t.Fatalf("expected underlying yaml error in %q", err)
	}
}

func TestLoadRegistryUnsupportedExtension(t *testing.T) {
	file := writeFile(t, "sources.toml", "[sources]\n")

	_, err := LoadRegistry(file)
	if err == nil || !strings.Contains(err.Error(), ".toml") {
		t.Fatalf("expected unsupported extension error, got %v", err)
	}
}

func TestSingleSendsNoHeaders(t *testing.T) {
	reg, err := Single("https://example.com/prices")
	if err != nil {
		t.Fatalf("Single: %v", err)
	}
	src, ok := reg.ByID(DefaultSourceID)
	if !ok {
		t.Fatalf("expected default source")
	}
	if h := Headers(src); len(h) != 0 {
		t.Fatalf("expected no headers, got %v", h)
	}
}
