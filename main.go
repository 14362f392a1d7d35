package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	flag "github.com/spf13/pflag"

	"github.com/multiscanner/msbootstrap/fetch"
	"github.com/multiscanner/msbootstrap/logger"
	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/pipeline"
	"github.com/multiscanner/msbootstrap/platform"
	"github.com/multiscanner/msbootstrap/steps"
	"github.com/multiscanner/msbootstrap/topology"
)

func main() {
	configPath := flag.String("config", "bootstrap.yaml", "bootstrap configuration file")
	nonInteractive := flag.BoolP("non-interactive", "n", false, "never prompt; unset optional steps are skipped")
	debug := flag.Bool("debug", false, "verbose logging")

	sourceBuild := flag.Bool("source-build", false, "build the native library chain from source")
	tools := flag.Bool("tools", false, "download the external analysis tools")
	signatures := flag.Bool("signatures", false, "clone the signature rule repositories")
	developInstall := flag.Bool("develop-install", false, "install the checkout as an editable system library")

	topologyPath := flag.String("topology", "", "validate a deployment descriptor instead of bootstrapping")
	composeOut := flag.String("compose-out", "", "write the orchestrator file for a validated topology ('-' for stdout)")
	flag.Parse()

	log, err := logger.NewDefault(*debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if *topologyPath != "" {
		if err := validateTopology(ctx, *topologyPath, *composeOut); err != nil {
			log.Error("Deployment topology rejected", "descriptor", *topologyPath, "error", err.Error())
			os.Exit(1)
		}
		log.Info("Deployment topology is valid", "descriptor", *topologyPath)
		return
	}

	cfg, err := models.LoadConfig(*configPath)
	if err != nil {
		log.Error("Failed to load configuration", "config", *configPath, "error", err.Error())
		os.Exit(1)
	}
	if *nonInteractive {
		cfg.NonInteractive = true
	}
	applyFlagToggles(&cfg.Toggles, sourceBuild, tools, signatures, developInstall)

	stepLogger := logrus.New()
	stepLogger.SetFormatter(&logrus.JSONFormatter{})
	stepLogger.SetLevel(logrus.InfoLevel)
	if *debug {
		stepLogger.SetLevel(logrus.DebugLevel)
	}

	detected := platform.Detect()
	env := steps.Env{
		Config:   cfg,
		Platform: detected,
		Fetcher:  fetch.New(stepLogger),
		Logger:   stepLogger,
	}
	confirm := pipeline.NewConfirmer(cfg.Toggles, cfg.NonInteractive, os.Stdin, os.Stdout)

	p, err := pipeline.New(env, log, confirm)
	if err != nil {
		log.Error("Failed to assemble pipeline", "error", err.Error())
		os.Exit(1)
	}

	report := p.Run(ctx)
	for _, res := range report.Failures() {
		log.Warn("Step did not complete cleanly", "step", res.Name, "status", string(res.Status), "error", res.Error)
	}
	if report.Failed {
		os.Exit(1)
	}
}

// applyFlagToggles promotes explicitly passed step flags over the config
// file's toggles. Flags the operator did not pass leave the config values
// alone.
func applyFlagToggles(t *models.Toggles, sourceBuild, tools, signatures, developInstall *bool) {
	if flag.CommandLine.Changed("source-build") {
		t.SourceBuild = sourceBuild
	}
	if flag.CommandLine.Changed("tools") {
		t.Tools = tools
	}
	if flag.CommandLine.Changed("signatures") {
		t.Signatures = signatures
	}
	if flag.CommandLine.Changed("develop-install") {
		t.DevelopInstall = developInstall
	}
}

func validateTopology(ctx context.Context, path, composeOut string) error {
	descriptor, err := topology.Load(path)
	if err != nil {
		return err
	}
	if err := topology.Materialize(ctx, descriptor); err != nil {
		return err
	}
	topo, err := topology.Resolve(descriptor, os.LookupEnv)
	if err != nil {
		return err
	}

	if composeOut == "" {
		return nil
	}
	out := os.Stdout
	if composeOut != "-" {
		f, err := os.Create(composeOut)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", composeOut, err)
		}
		defer f.Close()
		out = f
	}
	return topology.WriteCompose(out, topo)
}
