package steps

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/utils"
)

// Pinned versions of the native dependency chain. The packaged yara of the
// supported distributions is known-unusable for the scanning engine, so the
// chain is built from source in strict dependency order: jansson, then yara
// linking against it, then the yara-python binding.
const (
	janssonVersion    = "2.10"
	yaraVersion       = "3.6.3"
	yaraPythonVersion = "3.6.3"
	yaraSoName        = "libyara.so.3"
)

// SourceBuildStep compiles the jansson -> yara -> yara-python chain from
// source. The step never runs without the operator opting in, but once
// entered every sub-step is fatal: a half built native library is worse
// than a missing one, so the first failure halts the run. Rebuilding over
// an existing install is not guaranteed safe; Check skips the step when
// the target yara version is already present.
type SourceBuildStep struct {
	*StepBase
	cfg *models.Config
	env Env

	// Seams for tests; nil means the real fetcher and exec runner.
	fetchFn       func(ctx context.Context, target models.DownloadTarget) error
	runFn         func(ctx context.Context, dir string, args ...string) error
	compatLinkDir string
}

func init() {
	Register(SourceBuild, func(env Env) Step {
		base := NewStepBase(SourceBuild, false, false,
			"Compile the native scanning library chain (jansson, yara, yara-python) from source?", env.Logger)
		base.fatal = true
		return &SourceBuildStep{
			StepBase:      base,
			cfg:           env.Config,
			env:           env,
			compatLinkDir: "/usr/lib",
		}
	})
}

// Check probes the installed yara version and reports done when it already
// matches the pinned one.
func (s *SourceBuildStep) Check(ctx context.Context) (bool, error) {
	if _, err := exec.LookPath("yara"); err != nil {
		return false, nil
	}
	out, err := exec.CommandContext(ctx, "yara", "--version").Output()
	if err != nil {
		return false, nil
	}
	if strings.TrimSpace(string(out)) == yaraVersion {
		s.Logger.Infof("yara %s already installed, skipping source build", yaraVersion)
		return true, nil
	}
	return false, nil
}

func (s *SourceBuildStep) Run(ctx context.Context) error {
	buildDir, err := os.MkdirTemp("", "msbootstrap-src-")
	if err != nil {
		return fmt.Errorf("failed to create build directory: %w", err)
	}
	defer os.RemoveAll(buildDir)

	prefix := s.cfg.InstallPrefix

	// Dependency order is mandatory: yara's cuckoo module links against
	// jansson, yara-python links against yara.
	if err := s.buildJansson(ctx, buildDir, prefix); err != nil {
		return fmt.Errorf("jansson build failed: %w", err)
	}
	if err := s.buildYara(ctx, buildDir, prefix); err != nil {
		return fmt.Errorf("yara build failed: %w", err)
	}
	if err := s.runIn(ctx, "", "ldconfig"); err != nil {
		return fmt.Errorf("ldconfig failed: %w", err)
	}
	if err := s.buildYaraPython(ctx, buildDir); err != nil {
		return fmt.Errorf("yara-python build failed: %w", err)
	}

	// Distribution loaders expect the versioned shared object under
	// /usr/lib as well.
	link := filepath.Join(s.compatLinkDir, yaraSoName)
	target := filepath.Join(prefix, "lib", yaraSoName)
	if err := utils.ForceSymlink(target, link); err != nil {
		return err
	}
	s.Logger.Infof("Source build complete: yara %s installed under %s", yaraVersion, prefix)
	return nil
}

func (s *SourceBuildStep) buildJansson(ctx context.Context, buildDir, prefix string) error {
	src, err := s.fetchAndUnpack(ctx, buildDir, models.DownloadTarget{
		Name: "jansson",
		URL:  fmt.Sprintf("https://digip.org/jansson/releases/jansson-%s.tar.gz", janssonVersion),
		Mirrors: []string{
			fmt.Sprintf("https://github.com/akheron/jansson/archive/v%s.tar.gz", janssonVersion),
		},
		Dest:  filepath.Join(buildDir, fmt.Sprintf("jansson-%s.tar.gz", janssonVersion)),
		Check: models.PostConditionArchive,
	}, fmt.Sprintf("jansson-%s", janssonVersion))
	if err != nil {
		return err
	}
	for _, args := range [][]string{
		{"./configure", "--prefix=" + prefix},
		{"make"},
		{"make", "install"},
	} {
		if err := s.runIn(ctx, src, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceBuildStep) buildYara(ctx context.Context, buildDir, prefix string) error {
	src, err := s.fetchAndUnpack(ctx, buildDir, models.DownloadTarget{
		Name:  "yara",
		URL:   fmt.Sprintf("https://github.com/VirusTotal/yara/archive/v%s.tar.gz", yaraVersion),
		Dest:  filepath.Join(buildDir, fmt.Sprintf("yara-%s.tar.gz", yaraVersion)),
		Check: models.PostConditionArchive,
	}, fmt.Sprintf("yara-%s", yaraVersion))
	if err != nil {
		return err
	}
	for _, args := range [][]string{
		{"./bootstrap.sh"},
		{"./configure", "--enable-cuckoo", "--enable-magic", "--prefix=" + prefix},
		{"make"},
		{"make", "install"},
	} {
		if err := s.runIn(ctx, src, args...); err != nil {
			return err
		}
	}
	return nil
}

func (s *SourceBuildStep) buildYaraPython(ctx context.Context, buildDir string) error {
	src, err := s.fetchAndUnpack(ctx, buildDir, models.DownloadTarget{
		Name:  "yara-python",
		URL:   fmt.Sprintf("https://github.com/VirusTotal/yara-python/archive/v%s.tar.gz", yaraPythonVersion),
		Dest:  filepath.Join(buildDir, fmt.Sprintf("yara-python-%s.tar.gz", yaraPythonVersion)),
		Check: models.PostConditionArchive,
	}, fmt.Sprintf("yara-python-%s", yaraPythonVersion))
	if err != nil {
		return err
	}
	for _, args := range [][]string{
		{"python3", "setup.py", "build", "--dynamic-linking"},
		{"python3", "setup.py", "install"},
	} {
		if err := s.runIn(ctx, src, args...); err != nil {
			return err
		}
	}
	return nil
}

// fetchAndUnpack downloads a source tarball through the retrying fetcher
// and extracts it, returning the extracted source directory.
func (s *SourceBuildStep) fetchAndUnpack(ctx context.Context, buildDir string, target models.DownloadTarget, srcDir string) (string, error) {
	if target.Retries == 0 {
		target.Retries = 3
	}
	if err := s.fetch(ctx, target); err != nil {
		return "", err
	}
	if err := s.runIn(ctx, buildDir, "tar", "xzf", target.Dest); err != nil {
		return "", fmt.Errorf("failed to unpack %s: %w", target.Dest, err)
	}
	return filepath.Join(buildDir, srcDir), nil
}

func (s *SourceBuildStep) fetch(ctx context.Context, target models.DownloadTarget) error {
	if s.fetchFn != nil {
		return s.fetchFn(ctx, target)
	}
	return s.env.Fetcher.Fetch(ctx, target)
}

func (s *SourceBuildStep) runIn(ctx context.Context, dir string, args ...string) error {
	if s.runFn != nil {
		return s.runFn(ctx, dir, args...)
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Dir = dir
	return utils.RunCommand(cmd, s.Logger)
}
