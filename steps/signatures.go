package steps

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/sigrepo"
)

// SignaturesStep clones the configured rule-set repositories into the
// signature directory. An already populated destination is reported, not
// overwritten; the operator removes it and reruns to refresh.
type SignaturesStep struct {
	*StepBase
	cfg *models.Config
}

func init() {
	Register(Signatures, func(env Env) Step {
		return &SignaturesStep{
			StepBase: NewStepBase(Signatures, false, false,
				"Clone the signature rule repositories?", env.Logger),
			cfg: env.Config,
		}
	})
}

func (s *SignaturesStep) Run(ctx context.Context) error {
	var failed []string
	for _, repo := range s.cfg.SignatureRepos {
		err := sigrepo.Clone(ctx, repo, s.cfg.SignaturesDir, s.Logger)
		if err == nil {
			continue
		}
		if errors.Is(err, sigrepo.ErrDestinationExists) {
			s.Logger.Warnf("Signature repository %s: %v; remove the directory to refresh", repo.URL, err)
		} else {
			s.Logger.Warnf("Signature repository %s could not be cloned: %v", repo.URL, err)
		}
		failed = append(failed, repo.URL)
	}
	if len(failed) > 0 {
		return fmt.Errorf("%d of %d signature repositories not cloned: %s",
			len(failed), len(s.cfg.SignatureRepos), strings.Join(failed, ", "))
	}
	return nil
}
