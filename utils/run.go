package utils

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/sirupsen/logrus"
)

// RunCommand runs cmd, streaming stderr to the operator while capturing it,
// and returns an error summarizing the failure when the command exits
// non-zero.
func RunCommand(cmd *exec.Cmd, logger *logrus.Logger) error {
	var stderrBuf bytes.Buffer
	cmd.Stderr = io.MultiWriter(os.Stderr, &stderrBuf)

	logger.Infof("Running command: %s", strings.Join(cmd.Args, " "))

	err := cmd.Run()
	if err != nil {
		stderrStr := strings.TrimSpace(stderrBuf.String())
		logger.Errorf("Command failed: %v", err)
		if stderrStr != "" {
			stderrStr = extractError(stderrStr)
			logger.Errorf("stderr: %s", stderrStr)
		}
		return fmt.Errorf("command %q failed: %w\nstderr: %s", cmd.Args[0], err, stderrStr)
	}
	return nil
}

// extractError pulls the first "Error:" line out of stderr, falling back to
// a trimmed tail of the output.
func extractError(stderr string) string {
	lines := strings.Split(stderr, "\n")
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimSpace(line), "Error:") {
			return strings.TrimSpace(line)
		}
	}
	n := len(lines)
	if n >= 10 {
		return strings.TrimSpace(lines[n-10] + ": " + lines[n-1])
	}
	return strings.TrimSpace(stderr)
}
