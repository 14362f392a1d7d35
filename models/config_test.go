package models

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "bootstrap.yaml"))
	if err != nil {
		t.Fatalf("missing config must not error: %v", err)
	}
	if cfg.InstallPrefix != "/usr/local" {
		t.Fatalf("unexpected install prefix %q", cfg.InstallPrefix)
	}
	if len(cfg.Tools) == 0 {
		t.Fatal("default tool targets missing")
	}
	if len(cfg.SignatureRepos) == 0 {
		t.Fatal("default signature repos missing")
	}
	for _, tool := range cfg.Tools {
		if tool.Retries != 3 {
			t.Fatalf("tool %s: default retries = %d, want 3", tool.Name, tool.Retries)
		}
		if tool.Dest == "" {
			t.Fatalf("tool %s: destination not defaulted", tool.Name)
		}
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bootstrap.yaml")
	doc := `
project_root: /opt/multiscanner
install_prefix: /opt/ms
steps:
  source_build: true
  tools: false
tools:
  - name: floss
    url: https://mirror.internal/floss
    dest: /opt/multiscanner/tools/floss
    retries: 5
    check: binary
    executable: true
signature_repos:
  - name: internal-rules
    url: https://git.internal/rules.git
`
	if err := os.WriteFile(path, []byte(doc), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Toggles.SourceBuild == nil || !*cfg.Toggles.SourceBuild {
		t.Fatal("source_build toggle lost")
	}
	if cfg.Toggles.Tools == nil || *cfg.Toggles.Tools {
		t.Fatal("tools toggle lost")
	}
	if cfg.Toggles.Signatures != nil {
		t.Fatal("unset toggle must stay unset so the prompt can decide")
	}
	if len(cfg.Tools) != 1 || cfg.Tools[0].Retries != 5 {
		t.Fatalf("tool override lost: %+v", cfg.Tools)
	}
	if cfg.Tools[0].Check != PostConditionBinary {
		t.Fatalf("post-condition lost: %q", cfg.Tools[0].Check)
	}
	if cfg.RequirementsFile != filepath.Join("/opt/multiscanner", "requirements.txt") {
		t.Fatalf("requirements file not derived from project root: %q", cfg.RequirementsFile)
	}
	if len(cfg.SignatureRepos) != 1 || cfg.SignatureRepos[0].Name != "internal-rules" {
		t.Fatalf("signature repo override lost: %+v", cfg.SignatureRepos)
	}
}

func TestDownloadTargetURLOrder(t *testing.T) {
	target := DownloadTarget{
		URL:     "https://primary/a",
		Mirrors: []string{"https://m1/a", "https://m2/a"},
	}
	urls := target.URLs()
	if len(urls) != 3 || urls[0] != "https://primary/a" || urls[2] != "https://m2/a" {
		t.Fatalf("fallback order wrong: %v", urls)
	}
}
