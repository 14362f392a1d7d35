package models

import "time"

// Platform identifies the host's OS package family.
type Platform string

const (
	PlatformRPM     Platform = "rpm"
	PlatformDeb     Platform = "deb"
	PlatformUnknown Platform = "unknown"
)

// PostCondition names the check a downloaded file must pass before it is
// moved into place.
type PostCondition string

const (
	PostConditionNone    PostCondition = "none"
	PostConditionArchive PostCondition = "archive"
	PostConditionBinary  PostCondition = "binary"
)

// DownloadTarget describes one remote asset fetch: a primary URL, ordered
// mirrors to fall back to, and the check the result must pass. A URL of the
// form github:owner/repo#pattern is resolved to a release asset URL first.
type DownloadTarget struct {
	Name       string        `yaml:"name"`
	URL        string        `yaml:"url"`
	Mirrors    []string      `yaml:"mirrors,omitempty"`
	Dest       string        `yaml:"dest"`
	Retries    int           `yaml:"retries,omitempty"` // per URL, default 3
	Check      PostCondition `yaml:"check,omitempty"`
	Executable bool          `yaml:"executable,omitempty"`
}

// URLs returns the primary URL followed by the mirrors, in fallback order.
func (t DownloadTarget) URLs() []string {
	urls := make([]string, 0, len(t.Mirrors)+1)
	urls = append(urls, t.URL)
	urls = append(urls, t.Mirrors...)
	return urls
}

// SignatureRepo is one external rule-set repository to shallow-clone.
type SignatureRepo struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

// Toggles enables each optional bootstrap step without an interactive
// prompt. An unset toggle falls back to asking on the terminal; in a
// non-interactive run it means skip.
type Toggles struct {
	SourceBuild    *bool `yaml:"source_build,omitempty"`
	Tools          *bool `yaml:"tools,omitempty"`
	Signatures     *bool `yaml:"signatures,omitempty"`
	DevelopInstall *bool `yaml:"develop_install,omitempty"`
}

// Config is the bootstrap configuration loaded from bootstrap.yaml.
type Config struct {
	ProjectRoot      string           `yaml:"project_root,omitempty"`
	RequirementsFile string           `yaml:"requirements_file,omitempty"`
	InstallPrefix    string           `yaml:"install_prefix,omitempty"`
	ToolsDir         string           `yaml:"tools_dir,omitempty"`
	SignaturesDir    string           `yaml:"signatures_dir,omitempty"`
	Toggles          Toggles          `yaml:"steps"`
	Tools            []DownloadTarget `yaml:"tools,omitempty"`
	SignatureRepos   []SignatureRepo  `yaml:"signature_repos,omitempty"`
	NonInteractive   bool             `yaml:"non_interactive,omitempty"`
}

// StepStatus is the terminal state of one executed pipeline step.
type StepStatus string

const (
	StepOK      StepStatus = "ok"
	StepSkipped StepStatus = "skipped"
	StepWarned  StepStatus = "warned" // optional step failed, run continued
	StepFailed  StepStatus = "failed" // required step failed, run halted
)

// StepResult records the outcome of a single step in a run.
type StepResult struct {
	Name     string        `json:"name"`
	Status   StepStatus    `json:"status"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// RunReport summarizes one bootstrap run.
type RunReport struct {
	RunID    string       `json:"run_id"`
	Platform Platform     `json:"platform"`
	Steps    []StepResult `json:"steps"`
	Failed   bool         `json:"failed"`
}

// Failures returns the results of steps that did not complete cleanly.
func (r *RunReport) Failures() []StepResult {
	var out []StepResult
	for _, s := range r.Steps {
		if s.Status == StepWarned || s.Status == StepFailed {
			out = append(out, s)
		}
	}
	return out
}
