package steps

import (
	"context"
	"fmt"
	"strings"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/utils"
)

// ToolsStep fetches the optional external analysis tool binaries. Every
// target is attempted even when earlier ones exhaust their mirrors; the
// step reports the exhausted targets and the pipeline records them as a
// warning, never a halt.
type ToolsStep struct {
	*StepBase
	cfg *models.Config
	env Env
}

func init() {
	Register(Tools, func(env Env) Step {
		return &ToolsStep{
			StepBase: NewStepBase(Tools, false, true,
				"Download the optional external analysis tools?", env.Logger),
			cfg: env.Config,
			env: env,
		}
	})
}

func (s *ToolsStep) Run(ctx context.Context) error {
	if err := utils.EnsureDir(s.cfg.ToolsDir); err != nil {
		return err
	}

	var failed []string
	for _, target := range s.cfg.Tools {
		if err := s.env.Fetcher.Fetch(ctx, target); err != nil {
			s.Logger.Warnf("Tool %s could not be fetched: %v", target.Name, err)
			failed = append(failed, target.Name)
			continue
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d tool downloads exhausted all sources: %s",
			len(failed), len(s.cfg.Tools), strings.Join(failed, ", "))
	}
	return nil
}
