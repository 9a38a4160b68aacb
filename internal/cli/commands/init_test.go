package commands

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/diatrack-dev/diatrack/internal/cli/config"
)

func chdirTemp(t *testing.T) string {
	t.Helper()

	tempDir := t.TempDir()
	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	t.Cleanup(func() { os.Chdir(originalDir) })

	if err := os.Chdir(tempDir); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	return tempDir
}

func TestInitCreatesConfig(t *testing.T) {
	tempDir := chdirTemp(t)

	cmd := NewInitCmd()
	cmd.SetArgs([]string{"https://diatrack.example.com"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	cfg, err := config.Load(filepath.Join(tempDir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("failed to load created config: %v", err)
	}

	if len(cfg.Servers) != 1 {
		t.Fatalf("servers = %d, want 1", len(cfg.Servers))
	}
	if cfg.Servers[0].Origin != "https://diatrack.example.com" {
		t.Errorf("origin = %q, want %q", cfg.Servers[0].Origin, "https://diatrack.example.com")
	}
	if cfg.Servers[0].Alias != "production" {
		t.Errorf("alias = %q, want %q", cfg.Servers[0].Alias, "production")
	}
}

func TestInitAddsSecondServer(t *testing.T) {
	tempDir := chdirTemp(t)

	first := NewInitCmd()
	first.SetArgs([]string{"https://diatrack.example.com"})
	if err := first.Execute(); err != nil {
		t.Fatalf("first init failed: %v", err)
	}

	second := NewInitCmd()
	second.SetArgs([]string{"http://localhost:8080"})
	if err := second.Execute(); err != nil {
		t.Fatalf("second init failed: %v", err)
	}

	cfg, err := config.Load(filepath.Join(tempDir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if len(cfg.Servers) != 2 {
		t.Fatalf("servers = %d, want 2", len(cfg.Servers))
	}
	if cfg.Servers[1].Alias != "server-2" {
		t.Errorf("alias = %q, want %q", cfg.Servers[1].Alias, "server-2")
	}
}

func TestInitIsIdempotentPerOrigin(t *testing.T) {
	tempDir := chdirTemp(t)

	for i := 0; i < 2; i++ {
		cmd := NewInitCmd()
		cmd.SetArgs([]string{"https://diatrack.example.com"})
		if err := cmd.Execute(); err != nil {
			t.Fatalf("init run %d failed: %v", i+1, err)
		}
	}

	cfg, err := config.Load(filepath.Join(tempDir, config.ConfigFileName))
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if len(cfg.Servers) != 1 {
		t.Errorf("servers = %d, want 1", len(cfg.Servers))
	}
}

func TestInitRejectsBareHost(t *testing.T) {
	chdirTemp(t)

	cmd := NewInitCmd()
	cmd.SetArgs([]string{"diatrack.example.com"})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for origin without scheme")
	}
}
