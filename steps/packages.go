package steps

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/platform"
	"github.com/multiscanner/msbootstrap/utils"
)

// Fixed per-platform system package manifests. The build chain and header
// packages here are prerequisites for both the interpreter-level install
// and the optional source build.
var osPackages = map[models.Platform][]string{
	models.PlatformRPM: {
		"autoconf", "automake", "curl", "file-devel", "gcc", "git",
		"libffi-devel", "libtool", "make", "openssl-devel",
		"python3", "python3-devel", "python3-pip", "tar", "unzip",
	},
	models.PlatformDeb: {
		"autoconf", "automake", "build-essential", "curl", "git",
		"libffi-dev", "libmagic-dev", "libssl-dev", "libtool",
		"python3", "python3-dev", "python3-pip", "tar", "unzip",
	},
}

// PackageInstallStep installs the platform's system package manifest and
// the interpreter-level requirements file. It is the one required step of
// the pipeline: a failing package-manager or pip invocation halts the run
// with the platform and command named.
type PackageInstallStep struct {
	*StepBase
	cfg      *models.Config
	platform models.Platform
}

func init() {
	Register(OSPackages, func(env Env) Step {
		return &PackageInstallStep{
			StepBase: NewStepBase(OSPackages, true, true, "", env.Logger),
			cfg:      env.Config,
			platform: env.Platform,
		}
	})
}

func (s *PackageInstallStep) Run(ctx context.Context) error {
	if s.platform == models.PlatformUnknown {
		// Unrecognized platforms downgrade this step to a warned skip
		// instead of failing the run.
		s.Logger.Warnf("Unrecognized platform, skipping package installation; install the prerequisites manually")
		return nil
	}
	if err := s.installOSPackages(ctx); err != nil {
		return err
	}
	return s.installRequirements(ctx)
}

func (s *PackageInstallStep) installOSPackages(ctx context.Context) error {
	manager := platform.PackageManager(s.platform)
	if manager == nil {
		s.Logger.Warnf("No package manager found for platform %s, skipping OS packages", s.platform)
		return nil
	}

	packages := osPackages[s.platform]
	s.Logger.Infof("Installing %d system packages for platform %s", len(packages), s.platform)
	args := append(manager[1:], packages...)
	cmd := exec.CommandContext(ctx, manager[0], args...)
	if err := utils.RunCommand(cmd, s.Logger); err != nil {
		return fmt.Errorf("system package installation failed on platform %s (%s): %w", s.platform, manager[0], err)
	}
	return nil
}

func (s *PackageInstallStep) installRequirements(ctx context.Context) error {
	reqs, err := ParseManifest(s.cfg.RequirementsFile)
	if err != nil {
		return fmt.Errorf("failed to read requirements manifest: %w", err)
	}
	if len(reqs) == 0 {
		s.Logger.Warnf("Requirements manifest %s lists no packages", s.cfg.RequirementsFile)
		return nil
	}

	s.Logger.Infof("Installing %d interpreter-level packages from %s", len(reqs), s.cfg.RequirementsFile)
	cmd := exec.CommandContext(ctx, "python3", "-m", "pip", "install", "-r", s.cfg.RequirementsFile)
	if err := utils.RunCommand(cmd, s.Logger); err != nil {
		return fmt.Errorf("interpreter package installation failed (pip, manifest %s): %w", s.cfg.RequirementsFile, err)
	}
	return nil
}

// ParseManifest reads a flat requirements file: one name with optional
// version constraint per line, # comments and blank lines ignored.
func ParseManifest(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		entries = append(entries, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}
