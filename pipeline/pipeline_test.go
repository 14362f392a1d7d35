package pipeline

import (
	"context"
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"github.com/multiscanner/msbootstrap/logger"
	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/steps"
)

type fakeStep struct {
	name     string
	required bool
	fatal    bool
	done     bool
	err      error
	ran      *[]string
}

func (f *fakeStep) Name() string         { return f.name }
func (f *fakeStep) Required() bool       { return f.required }
func (f *fakeStep) Idempotent() bool     { return true }
func (f *fakeStep) FatalOnFailure() bool { return f.required || f.fatal }
func (f *fakeStep) Prompt() string       { return "Run " + f.name + "?" }

func (f *fakeStep) Check(ctx context.Context) (bool, error) {
	return f.done, nil
}

func (f *fakeStep) Run(ctx context.Context) error {
	*f.ran = append(*f.ran, f.name)
	return f.err
}

func nopLogger() logger.Logger {
	return logger.NewZapAdapter(zap.NewNop())
}

func confirmAll(steps.Step) bool  { return true }
func confirmNone(steps.Step) bool { return false }

func newTestPipeline(confirm ConfirmFunc, fakes ...*fakeStep) (*Pipeline, *[]string) {
	ran := &[]string{}
	p := &Pipeline{Logger: nopLogger(), Confirm: confirm, platform: models.PlatformDeb}
	for _, f := range fakes {
		f.ran = ran
		p.Steps = append(p.Steps, f)
	}
	return p, ran
}

func TestRequiredFailureHaltsPipeline(t *testing.T) {
	p, ran := newTestPipeline(confirmAll,
		&fakeStep{name: "one", required: true},
		&fakeStep{name: "two", required: true, err: errors.New("boom")},
		&fakeStep{name: "three", required: false},
	)
	report := p.Run(context.Background())

	if !report.Failed {
		t.Fatal("report must be marked failed")
	}
	if got := strings.Join(*ran, ","); got != "one,two" {
		t.Fatalf("steps after a required failure must not run, ran: %s", got)
	}
	if len(report.Steps) != 2 {
		t.Fatalf("expected 2 recorded steps, got %d", len(report.Steps))
	}
	last := report.Steps[1]
	if last.Status != models.StepFailed || !strings.Contains(last.Error, "boom") {
		t.Fatalf("failing step recorded as %+v", last)
	}
}

func TestOptionalFailureWarnsAndContinues(t *testing.T) {
	p, ran := newTestPipeline(confirmAll,
		&fakeStep{name: "one", required: true},
		&fakeStep{name: "two", required: false, err: errors.New("mirror down")},
		&fakeStep{name: "three", required: false},
	)
	report := p.Run(context.Background())

	if report.Failed {
		t.Fatal("optional failure must not fail the run")
	}
	if got := strings.Join(*ran, ","); got != "one,two,three" {
		t.Fatalf("pipeline should continue past optional failure, ran: %s", got)
	}
	if report.Steps[1].Status != models.StepWarned {
		t.Fatalf("optional failure recorded as %s", report.Steps[1].Status)
	}
	if len(report.Failures()) != 1 {
		t.Fatalf("expected exactly one warning, got %d", len(report.Failures()))
	}
}

func TestDeclinedOptionalStepsAreSkipped(t *testing.T) {
	// The decline-everything scenario: only the required step runs.
	p, ran := newTestPipeline(confirmNone,
		&fakeStep{name: "os-packages", required: true},
		&fakeStep{name: "source-build", required: false},
		&fakeStep{name: "tools", required: false},
		&fakeStep{name: "signatures", required: false},
		&fakeStep{name: "develop-install", required: false},
	)
	report := p.Run(context.Background())

	if report.Failed {
		t.Fatalf("run failed: %+v", report.Steps)
	}
	if got := strings.Join(*ran, ","); got != "os-packages" {
		t.Fatalf("only the required step should run, ran: %s", got)
	}
	for _, res := range report.Steps[1:] {
		if res.Status != models.StepSkipped {
			t.Fatalf("declined step %s recorded as %s", res.Name, res.Status)
		}
	}
}

func TestAlreadyDoneStepIsSkipped(t *testing.T) {
	p, ran := newTestPipeline(confirmAll,
		&fakeStep{name: "source-build", required: false, done: true},
	)
	report := p.Run(context.Background())

	if len(*ran) != 0 {
		t.Fatalf("done step must not run, ran: %v", *ran)
	}
	if report.Steps[0].Status != models.StepSkipped {
		t.Fatalf("done step recorded as %s", report.Steps[0].Status)
	}
}

func TestSourceBuildIsGatedByConfirmation(t *testing.T) {
	// The real registry-built source build step: opt-in, never automatic,
	// but fatal once entered.
	log := logrus.New()
	log.SetOutput(io.Discard)
	step, err := steps.New(steps.SourceBuild, steps.Env{
		Config:   &models.Config{},
		Platform: models.PlatformDeb,
		Logger:   log,
	})
	if err != nil {
		t.Fatal(err)
	}
	if step.Required() {
		t.Fatal("source build must be optional so the confirmer gates it")
	}
	if !step.FatalOnFailure() {
		t.Fatal("source build failure must halt the run once opted in")
	}

	consulted := 0
	decline := func(steps.Step) bool {
		consulted++
		return false
	}
	p := &Pipeline{Steps: []steps.Step{step}, Logger: nopLogger(), Confirm: decline, platform: models.PlatformDeb}
	report := p.Run(context.Background())

	if consulted != 1 {
		t.Fatalf("confirmer consulted %d times, want 1", consulted)
	}
	if report.Failed {
		t.Fatal("declined source build must not fail the run")
	}
	if report.Steps[0].Status != models.StepSkipped {
		t.Fatalf("declined source build recorded as %s", report.Steps[0].Status)
	}
}

func TestFatalOptInStepHaltsOnFailure(t *testing.T) {
	p, ran := newTestPipeline(confirmAll,
		&fakeStep{name: "source-build", fatal: true, err: errors.New("make failed")},
		&fakeStep{name: "tools"},
	)
	report := p.Run(context.Background())

	if !report.Failed {
		t.Fatal("a fatal opt-in step's failure must fail the run")
	}
	if report.Steps[0].Status != models.StepFailed {
		t.Fatalf("fatal step recorded as %s", report.Steps[0].Status)
	}
	if got := strings.Join(*ran, ","); got != "source-build" {
		t.Fatalf("steps after a fatal failure must not run, ran: %s", got)
	}
}

func TestRunReportCarriesRunID(t *testing.T) {
	p, _ := newTestPipeline(confirmAll, &fakeStep{name: "one", required: true})
	report := p.Run(context.Background())
	if report.RunID == "" {
		t.Fatal("run id missing")
	}
	if report.Platform != models.PlatformDeb {
		t.Fatalf("platform not carried, got %s", report.Platform)
	}
}
