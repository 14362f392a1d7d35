package steps

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/multiscanner/msbootstrap/models"
)

func newSourceBuildStep(t *testing.T) *SourceBuildStep {
	t.Helper()
	s, err := New(SourceBuild, Env{
		Config: &models.Config{InstallPrefix: "/usr/local"},
		Logger: quietLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return s.(*SourceBuildStep)
}

// fakeYara puts a stub yara binary printing version on a clean PATH.
func fakeYara(t *testing.T, version string) {
	t.Helper()
	dir := t.TempDir()
	script := fmt.Sprintf("#!/bin/sh\necho %s\n", version)
	if err := os.WriteFile(filepath.Join(dir, "yara"), []byte(script), 0755); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PATH", dir)
}

func TestSourceBuildCheckSkipsInstalledVersion(t *testing.T) {
	fakeYara(t, yaraVersion)
	done, err := newSourceBuildStep(t).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if !done {
		t.Fatalf("yara %s already present, Check must report done", yaraVersion)
	}
}

func TestSourceBuildCheckRebuildsOtherVersions(t *testing.T) {
	fakeYara(t, "3.5.0")
	done, err := newSourceBuildStep(t).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("an older yara must not satisfy the version probe")
	}

	t.Setenv("PATH", t.TempDir()) // no yara at all
	done, err = newSourceBuildStep(t).Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if done {
		t.Fatal("absent yara must not satisfy the version probe")
	}
}

// record wires the fetch/run seams to log the chain instead of executing it.
func record(s *SourceBuildStep, failOn string) *[]string {
	log := &[]string{}
	s.fetchFn = func(ctx context.Context, target models.DownloadTarget) error {
		*log = append(*log, "fetch "+target.Name)
		return nil
	}
	s.runFn = func(ctx context.Context, dir string, args ...string) error {
		cmd := strings.Join(args, " ")
		*log = append(*log, cmd)
		if failOn != "" && strings.Contains(cmd, failOn) {
			return errors.New("exit status 2")
		}
		return nil
	}
	return log
}

func TestSourceBuildRunsChainInDependencyOrder(t *testing.T) {
	s := newSourceBuildStep(t)
	s.compatLinkDir = t.TempDir()
	log := record(s, "")

	if err := s.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	// jansson fully built before yara is even fetched, yara before the
	// binding; ldconfig between the native libraries and the binding.
	sequence := strings.Join(*log, "\n")
	order := []string{"fetch jansson", "make install", "fetch yara", "./bootstrap.sh", "fetch yara-python", "setup.py install"}
	last := -1
	for _, marker := range order {
		idx := strings.Index(sequence, marker)
		if idx <= last {
			t.Fatalf("marker %q out of order in:\n%s", marker, sequence)
		}
		last = idx
	}

	link := filepath.Join(s.compatLinkDir, yaraSoName)
	target, err := os.Readlink(link)
	if err != nil {
		t.Fatalf("compat symlink missing: %v", err)
	}
	if target != filepath.Join("/usr/local/lib", yaraSoName) {
		t.Fatalf("compat symlink points at %q", target)
	}
}

func TestSourceBuildHaltsOnFirstFailure(t *testing.T) {
	s := newSourceBuildStep(t)
	s.compatLinkDir = t.TempDir()
	log := record(s, "./configure") // jansson's configure is the first

	err := s.Run(context.Background())
	if err == nil {
		t.Fatal("expected failure")
	}
	if !strings.Contains(err.Error(), "jansson") {
		t.Fatalf("error must name the failing library, got: %v", err)
	}
	for _, entry := range *log {
		if strings.Contains(entry, "yara") {
			t.Fatalf("yara work started after jansson failed: %v", *log)
		}
	}
	if _, err := os.Lstat(filepath.Join(s.compatLinkDir, yaraSoName)); !os.IsNotExist(err) {
		t.Fatal("compat symlink must not be created on failure")
	}
}
