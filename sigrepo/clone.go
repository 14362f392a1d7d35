// Package sigrepo clones external rule-set repositories into the local
// signature directory consumed by the scanning engine.
package sigrepo

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/utils"
)

// ErrDestinationExists is returned when the clone destination is already
// populated. The caller decides whether to remove it and retry; nothing is
// overwritten or silently skipped here.
var ErrDestinationExists = errors.New("destination already exists")

// Clone performs a shallow clone (latest revision only) of repo into
// destRoot/<name>. Rule syntax is not validated; the directory tree is
// handed to the scanning engine as-is.
func Clone(ctx context.Context, repo models.SignatureRepo, destRoot string, logger *logrus.Logger) error {
	name := repo.Name
	if name == "" {
		name = repoDirName(repo.URL)
	}
	dest := filepath.Join(destRoot, name)

	if _, err := os.Stat(dest); err == nil {
		return fmt.Errorf("%w: %s", ErrDestinationExists, dest)
	}
	if err := utils.EnsureDir(destRoot); err != nil {
		return err
	}

	cmd := exec.CommandContext(ctx, "git", "clone", "--depth", "1", repo.URL, dest)
	if err := utils.RunCommand(cmd, logger); err != nil {
		return fmt.Errorf("failed to clone %s: %w", repo.URL, err)
	}
	logger.Infof("Cloned signature repository %s into %s", repo.URL, dest)
	return nil
}

func repoDirName(url string) string {
	base := filepath.Base(strings.TrimSuffix(url, "/"))
	return strings.TrimSuffix(base, ".git")
}
