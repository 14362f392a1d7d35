// Package steps holds the provisioning step implementations the bootstrap
// pipeline sequences. Each step is registered by name, mirrors the
// required/optional failure policy, and shells out through the shared
// command runner.
package steps

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/multiscanner/msbootstrap/fetch"
	"github.com/multiscanner/msbootstrap/models"
)

// Step is a named unit of provisioning work. A required step's failure
// halts the pipeline; an optional step's failure is reported and the run
// continues. Optional steps are gated by a confirmation before Run is
// called. An optional step may still declare its failure fatal: it only
// runs once the operator opts in, but a failure after that halts the run.
type Step interface {
	Name() string
	Required() bool
	Idempotent() bool
	// FatalOnFailure reports whether a failure halts the run even for an
	// opt-in step.
	FatalOnFailure() bool
	// Prompt is the confirmation question for optional steps.
	Prompt() string
	// Check reports whether the step's work is already done and Run can be
	// skipped.
	Check(ctx context.Context) (bool, error)
	Run(ctx context.Context) error
}

// Env carries the shared dependencies step constructors need.
type Env struct {
	Config   *models.Config
	Platform models.Platform
	Fetcher  *fetch.Fetcher
	Logger   *logrus.Logger
}

// StepBase carries the metadata and logger common to every step.
type StepBase struct {
	name       string
	required   bool
	idempotent bool
	fatal      bool
	prompt     string
	Logger     *logrus.Logger
}

// NewStepBase builds the common step scaffolding with a JSON-structured
// logger when the environment does not supply one.
func NewStepBase(name string, required, idempotent bool, prompt string, log *logrus.Logger) *StepBase {
	if log == nil {
		log = logrus.New()
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetLevel(logrus.InfoLevel)
	}
	return &StepBase{
		name:       name,
		required:   required,
		idempotent: idempotent,
		prompt:     prompt,
		Logger:     log,
	}
}

func (b *StepBase) Name() string         { return b.name }
func (b *StepBase) Required() bool       { return b.required }
func (b *StepBase) Idempotent() bool     { return b.idempotent }
func (b *StepBase) FatalOnFailure() bool { return b.required || b.fatal }
func (b *StepBase) Prompt() string       { return b.prompt }

// Check defaults to "not done": steps that cannot probe their own state
// always run.
func (b *StepBase) Check(ctx context.Context) (bool, error) {
	return false, nil
}
