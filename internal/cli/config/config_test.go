package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestValidate(t *testing.T) {
	tests := []struct {
		name        string
		cfg         Config
		shouldError bool
	}{
		{
			name: "valid http origin",
			cfg: Config{Servers: []Server{
				{Origin: "http://localhost:8080", Alias: "local"},
			}},
		},
		{
			name: "valid https origin",
			cfg: Config{Servers: []Server{
				{Origin: "https://diatrack.example.com", Alias: "production"},
			}},
		},
		{
			name: "empty origin",
			cfg: Config{Servers: []Server{
				{Origin: "", Alias: "broken"},
			}},
			shouldError: true,
		},
		{
			name: "missing scheme",
			cfg: Config{Servers: []Server{
				{Origin: "diatrack.example.com", Alias: "broken"},
			}},
			shouldError: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.shouldError && err == nil {
				t.Error("expected error but got none")
			}
			if !tt.shouldError && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}

func TestSaveAndLoad(t *testing.T) {
	tempDir := t.TempDir()
	path := filepath.Join(tempDir, ConfigFileName)

	original := &Config{Servers: []Server{
		{Origin: "https://diatrack.example.com", Alias: "production"},
		{Origin: "http://localhost:8080", Alias: "local"},
	}}

	if err := Save(path, original); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(loaded.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(loaded.Servers))
	}
	if loaded.Servers[0].Origin != "https://diatrack.example.com" {
		t.Errorf("origin = %q, want %q", loaded.Servers[0].Origin, "https://diatrack.example.com")
	}
	if loaded.Servers[1].Alias != "local" {
		t.Errorf("alias = %q, want %q", loaded.Servers[1].Alias, "local")
	}
}

func TestGetServerByAlias(t *testing.T) {
	cfg := &Config{Servers: []Server{
		{Origin: "https://diatrack.example.com", Alias: "production"},
		{Origin: "http://localhost:8080", Alias: "local"},
	}}

	server, err := cfg.GetServerByAlias("local")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if server.Origin != "http://localhost:8080" {
		t.Errorf("origin = %q, want %q", server.Origin, "http://localhost:8080")
	}

	if _, err := cfg.GetServerByAlias("staging"); err == nil {
		t.Error("expected error for unknown alias")
	}
}

func TestFindConfigFileSearchesParents(t *testing.T) {
	tempDir := t.TempDir()
	nested := filepath.Join(tempDir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatalf("failed to create nested dirs: %v", err)
	}

	cfgPath := filepath.Join(tempDir, ConfigFileName)
	if err := Save(cfgPath, DefaultConfig()); err != nil {
		t.Fatalf("failed to save config: %v", err)
	}

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	t.Cleanup(func() { os.Chdir(originalDir) })

	if err := os.Chdir(nested); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}

	found, err := FindConfigFile()
	if err != nil {
		t.Fatalf("expected to find config in parent directory: %v", err)
	}

	resolved, _ := filepath.EvalSymlinks(found)
	expected, _ := filepath.EvalSymlinks(cfgPath)
	if resolved != expected {
		t.Errorf("found = %q, want %q", resolved, expected)
	}
}
