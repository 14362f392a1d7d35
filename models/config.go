package models

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// LoadConfig reads a bootstrap configuration file and fills in defaults for
// anything the file leaves unset. A missing file is not an error: the
// defaults alone describe a usable bootstrap.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.ProjectRoot == "" {
		if wd, err := os.Getwd(); err == nil {
			c.ProjectRoot = wd
		} else {
			c.ProjectRoot = "."
		}
	}
	if c.RequirementsFile == "" {
		c.RequirementsFile = filepath.Join(c.ProjectRoot, "requirements.txt")
	}
	if c.InstallPrefix == "" {
		c.InstallPrefix = "/usr/local"
	}
	if c.ToolsDir == "" {
		c.ToolsDir = filepath.Join(c.ProjectRoot, "tools")
	}
	if c.SignaturesDir == "" {
		c.SignaturesDir = filepath.Join(c.ProjectRoot, "etc", "yarasigs")
	}
	if len(c.Tools) == 0 {
		c.Tools = defaultTools(c.ToolsDir)
	}
	if len(c.SignatureRepos) == 0 {
		c.SignatureRepos = defaultSignatureRepos()
	}
	for i := range c.Tools {
		if c.Tools[i].Retries == 0 {
			c.Tools[i].Retries = 3
		}
		if c.Tools[i].Check == "" {
			c.Tools[i].Check = PostConditionNone
		}
		if c.Tools[i].Dest == "" {
			c.Tools[i].Dest = filepath.Join(c.ToolsDir, c.Tools[i].Name)
		}
	}
}

// The stock external tools and rule sets the scanning platform expects.
// Overridable per deployment through bootstrap.yaml.
func defaultTools(toolsDir string) []DownloadTarget {
	return []DownloadTarget{
		{
			Name: "floss",
			URL:  "github:mandiant/flare-floss#floss.*linux",
			Mirrors: []string{
				"https://s3.amazonaws.com/build-artifacts.floss.flare.fireeye.com/travis/linux/dist/floss",
			},
			Dest:       filepath.Join(toolsDir, "floss"),
			Retries:    3,
			Check:      PostConditionBinary,
			Executable: true,
		},
		{
			Name: "pdf-parser",
			URL:  "https://didierstevens.com/files/software/pdf-parser_V0_7_8.zip",
			Mirrors: []string{
				"https://blog.didierstevens.com/files/software/pdf-parser_V0_7_8.zip",
			},
			Dest:    filepath.Join(toolsDir, "pdf-parser.zip"),
			Retries: 3,
			Check:   PostConditionArchive,
		},
	}
}

func defaultSignatureRepos() []SignatureRepo {
	return []SignatureRepo{
		{Name: "rules", URL: "https://github.com/Yara-Rules/rules.git"},
	}
}
