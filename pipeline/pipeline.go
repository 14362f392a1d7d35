// Package pipeline sequences the bootstrap steps. The run is strictly
// single-threaded: each step fully completes before the next begins, and
// the pipeline assumes exclusive access to the host (one bootstrap run per
// host, never concurrent).
package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/multiscanner/msbootstrap/logger"
	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/steps"
)

// ConfirmFunc decides whether an optional step proceeds. It is consulted
// once per optional step, before the step starts.
type ConfirmFunc func(step steps.Step) bool

// Pipeline executes an ordered list of steps, halting on a required step's
// failure and continuing past optional failures.
type Pipeline struct {
	Steps   []steps.Step
	Logger  logger.Logger
	Confirm ConfirmFunc

	platform models.Platform
}

// New assembles a pipeline over the default step order.
func New(env steps.Env, log logger.Logger, confirm ConfirmFunc) (*Pipeline, error) {
	built, err := steps.BuildAll(env)
	if err != nil {
		return nil, err
	}
	return &Pipeline{
		Steps:    built,
		Logger:   log,
		Confirm:  confirm,
		platform: env.Platform,
	}, nil
}

// Run executes the pipeline and reports every step's outcome. Already
// applied side effects are never rolled back; a required failure stops the
// run where it stands.
func (p *Pipeline) Run(ctx context.Context) *models.RunReport {
	report := &models.RunReport{
		RunID:    uuid.New().String(),
		Platform: p.platform,
	}
	p.Logger.Info("Starting bootstrap run", "run_id", report.RunID, "platform", string(p.platform), "steps", len(p.Steps))

	for _, step := range p.Steps {
		result := p.runStep(ctx, step)
		report.Steps = append(report.Steps, result)
		if result.Status == models.StepFailed {
			report.Failed = true
			p.Logger.Error("Fatal step failure, halting pipeline",
				"run_id", report.RunID, "step", step.Name(), "error", result.Error)
			break
		}
	}

	if !report.Failed {
		p.Logger.Info("Bootstrap run complete", "run_id", report.RunID, "warnings", len(report.Failures()))
	}
	return report
}

func (p *Pipeline) runStep(ctx context.Context, step steps.Step) models.StepResult {
	result := models.StepResult{Name: step.Name()}

	if !step.Required() && p.Confirm != nil && !p.Confirm(step) {
		p.Logger.Info("Step skipped by operator", "step", step.Name())
		result.Status = models.StepSkipped
		return result
	}

	if done, err := step.Check(ctx); err != nil {
		p.Logger.Warn("Step state probe failed, running step anyway", "step", step.Name(), "error", err.Error())
	} else if done {
		p.Logger.Info("Step already done, skipping", "step", step.Name())
		result.Status = models.StepSkipped
		return result
	}

	p.Logger.Info("Running step", "step", step.Name(), "required", step.Required())
	start := time.Now()
	err := step.Run(ctx)
	result.Duration = time.Since(start)

	if err == nil {
		result.Status = models.StepOK
		return result
	}

	result.Error = err.Error()
	if step.FatalOnFailure() {
		// Covers required steps and opt-in steps whose partial results
		// leave the host broken (the source build).
		result.Status = models.StepFailed
		return result
	}
	result.Status = models.StepWarned
	p.Logger.Warn("Optional step failed, continuing", "step", step.Name(), "error", err.Error())
	return result
}
