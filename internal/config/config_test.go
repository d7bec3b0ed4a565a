package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danmuck/instrctl/internal/send"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "station.toml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaultsWithoutFile(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Head != "0xEB90" || cfg.Tail != "0xDEAD" {
		t.Fatalf("unexpected markers: %q %q", cfg.Head, cfg.Tail)
	}
	if got := cfg.StorePath(); got != "ControlDemoViewModelCommandList.xml" {
		t.Fatalf("unexpected store path: %q", got)
	}
	if cfg.SendConfig().LengthPolicy != send.LengthPolicyDeclared {
		t.Fatalf("unexpected policy: %q", cfg.SendConfig().LengthPolicy)
	}
}

func TestLoadTemplateParses(t *testing.T) {
	cfg, err := Load(writeConfig(t, Template()))
	if err != nil {
		t.Fatalf("load template: %v", err)
	}
	if cfg.BoardID != 0 || cfg.StoreFormat != "xml" || cfg.JournalSize != 500 {
		t.Fatalf("unexpected template config: %+v", cfg)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
owner = "Bench"
board_id = 3
store_dir = "state"
store_format = ".YAML"
length_policy = "strict"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BoardID != 3 || cfg.SendConfig().Board != 3 {
		t.Fatalf("unexpected board: %d", cfg.BoardID)
	}
	if got := cfg.StorePath(); got != filepath.Join("state", "BenchCommandList.yaml") {
		t.Fatalf("unexpected store path: %q", got)
	}
	if cfg.SendConfig().LengthPolicy != send.LengthPolicyStrict {
		t.Fatalf("unexpected policy: %q", cfg.LengthPolicy)
	}
	if cfg.Head != "0xEB90" {
		t.Fatalf("undefined keys must keep defaults: %q", cfg.Head)
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	path := writeConfig(t, "board_id = 3\n")
	t.Setenv("INSTRCTL_BOARD_ID", "7")
	t.Setenv("INSTRCTL_CORS_ORIGINS", "http://a,http://b")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.BoardID != 7 {
		t.Fatalf("env override ignored: %d", cfg.BoardID)
	}
	if len(cfg.CorsOrigins) != 2 || cfg.CorsOrigins[1] != "http://b" {
		t.Fatalf("unexpected cors origins: %v", cfg.CorsOrigins)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	cases := map[string]string{
		"unknown key":   "boardid = 3\n",
		"board range":   "board_id = 256\n",
		"bad head":      "head = \"0xEB9\"\n",
		"empty tail":    "tail = \"0x\"\n",
		"bad format":    "store_format = \"ini\"\n",
		"bad policy":    "length_policy = \"auto\"\n",
		"empty owner":   "owner = \" \"\n",
		"negative size": "journal_size = -1\n",
		"not toml":      "board_id = = 3\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("expected error for %q", strings.TrimSpace(body))
			}
		})
	}
}

func TestWriteTemplateRefusesOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "station.toml")
	if err := WriteTemplate(path, false); err != nil {
		t.Fatalf("write template: %v", err)
	}
	if err := WriteTemplate(path, false); err == nil {
		t.Fatalf("expected overwrite refusal")
	}
	if err := WriteTemplate(path, true); err != nil {
		t.Fatalf("forced write: %v", err)
	}
}
