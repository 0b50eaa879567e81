package policy

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write %s: %v", path, err)
	}
}

func TestLoader_LoadFromDirectory(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "no-tamarins.rego"), "# Keeps tamarins out.\n# Second line.\n"+blockTamarins)
	writeFile(t, filepath.Join(dir, "custom.json"), `{
		"name": "json-policy",
		"description": "From JSON",
		"severity": "error",
		"rego": "package sanctuary.test.json_policy\n\nimport rego.v1\n\ndeny contains \"x\" if { false }\n"
	}`)
	writeFile(t, filepath.Join(dir, "README.md"), "ignored")

	loader := NewLoader(zerolog.Nop())
	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if len(policies) != 2 {
		t.Fatalf("Expected 2 policies, got %d", len(policies))
	}

	byName := make(map[string]Policy)
	for _, p := range policies {
		byName[p.Name] = p
	}

	rego, ok := byName["no-tamarins"]
	if !ok {
		t.Fatal("Expected policy named after the .rego file")
	}
	if rego.Description != "Keeps tamarins out. Second line." {
		t.Errorf("Unexpected description %q", rego.Description)
	}
	if rego.Severity != SeverityWarning || !rego.Enabled || rego.Builtin {
		t.Errorf("Unexpected defaults: %+v", rego)
	}

	js, ok := byName["json-policy"]
	if !ok {
		t.Fatal("Expected JSON policy")
	}
	if js.Severity != SeverityError || !js.Enabled {
		t.Errorf("Unexpected JSON policy: %+v", js)
	}
	if js.Source != filepath.Join(dir, "custom.json") {
		t.Errorf("Unexpected source %q", js.Source)
	}
}

func TestLoader_BadFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "broken.json"), "{not json")
	writeFile(t, filepath.Join(dir, "empty.json"), `{"name": "empty"}`)

	loader := NewLoader(zerolog.Nop())

	policies, err := loader.LoadFromPaths(context.Background(), []string{dir})
	if err != nil {
		t.Fatalf("Directory load should skip bad files: %v", err)
	}
	if len(policies) != 0 {
		t.Errorf("Expected no policies, got %d", len(policies))
	}

	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(dir, "broken.json")}); err == nil {
		t.Error("Expected error loading a broken file directly")
	}
	if _, err := loader.LoadFromPaths(context.Background(), []string{filepath.Join(dir, "missing.rego")}); err == nil {
		t.Error("Expected error for missing path")
	}
}

func TestLoader_Cache(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "p.rego")
	writeFile(t, path, blockTamarins)

	loader := NewLoader(zerolog.Nop())
	ctx := context.Background()
	if _, err := loader.LoadFromPaths(ctx, []string{path}); err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}

	writeFile(t, path, "# changed\n"+blockTamarins)
	policies, err := loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if policies[0].Description != "" {
		t.Error("Expected cached policy before ClearCache")
	}

	loader.ClearCache()
	policies, err = loader.LoadFromPaths(ctx, []string{path})
	if err != nil {
		t.Fatalf("LoadFromPaths failed: %v", err)
	}
	if policies[0].Description != "changed" {
		t.Errorf("Expected fresh policy after ClearCache, got %q", policies[0].Description)
	}
}

func TestEngine_LoadPolicies(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "no-tamarins.rego"), blockTamarins)

	eng := newTestEngine(t)
	if err := eng.LoadPolicies(context.Background(), []string{dir}); err != nil {
		t.Fatalf("LoadPolicies failed: %v", err)
	}

	p, err := eng.GetPolicy("no-tamarins")
	if err != nil {
		t.Fatalf("GetPolicy failed: %v", err)
	}
	if p.Builtin {
		t.Error("Loaded policy must not be builtin")
	}
}

func TestLoader_Watch(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.rego"), blockTamarins)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var reloaded []Policy
	done := make(chan struct{}, 1)

	loader := NewLoader(zerolog.Nop())
	err := loader.Watch(ctx, []string{dir}, func(policies []Policy) error {
		mu.Lock()
		reloaded = policies
		mu.Unlock()
		select {
		case done <- struct{}{}:
		default:
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch failed: %v", err)
	}

	writeFile(t, filepath.Join(dir, "b.rego"), blockTamarins)

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("Timed out waiting for reload")
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reloaded) != 2 {
		t.Errorf("Expected 2 policies after reload, got %d", len(reloaded))
	}
}
