package steps

import (
	"context"
	"fmt"
	"os/exec"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/utils"
)

// DevelopInstallStep registers the checkout as an editable system library
// so the scanning platform imports it straight from this directory.
type DevelopInstallStep struct {
	*StepBase
	cfg *models.Config
}

func init() {
	Register(DevelopInstall, func(env Env) Step {
		return &DevelopInstallStep{
			StepBase: NewStepBase(DevelopInstall, false, true,
				"Install this checkout as a system library (development mode)?", env.Logger),
			cfg: env.Config,
		}
	})
}

func (s *DevelopInstallStep) Run(ctx context.Context) error {
	cmd := exec.CommandContext(ctx, "python3", "-m", "pip", "install", "-e", s.cfg.ProjectRoot)
	if err := utils.RunCommand(cmd, s.Logger); err != nil {
		return fmt.Errorf("development install of %s failed: %w", s.cfg.ProjectRoot, err)
	}
	s.Logger.Warnf("Installed %s in development mode; other users of this host need filesystem access to that path", s.cfg.ProjectRoot)
	return nil
}
