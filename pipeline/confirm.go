package pipeline

import (
	"bufio"
	"fmt"
	"io"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/steps"
)

// NewConfirmer resolves optional-step confirmations in order of
// precedence: an explicit toggle from the configuration, then the
// interactive prompt. Non-interactive runs treat unset toggles as skip, so
// unattended bootstraps never block. The prompt accepts exactly the
// literal "y"; any other input skips the step.
func NewConfirmer(toggles models.Toggles, nonInteractive bool, in io.Reader, out io.Writer) ConfirmFunc {
	reader := bufio.NewReader(in)
	return func(step steps.Step) bool {
		if t := toggleFor(toggles, step.Name()); t != nil {
			return *t
		}
		if nonInteractive {
			return false
		}
		fmt.Fprintf(out, "%s [y/N]: ", step.Prompt())
		line, err := reader.ReadString('\n')
		if err != nil && line == "" {
			return false
		}
		return trimNewline(line) == "y"
	}
}

func toggleFor(t models.Toggles, name string) *bool {
	switch name {
	case steps.SourceBuild:
		return t.SourceBuild
	case steps.Tools:
		return t.Tools
	case steps.Signatures:
		return t.Signatures
	case steps.DevelopInstall:
		return t.DevelopInstall
	default:
		return nil
	}
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
