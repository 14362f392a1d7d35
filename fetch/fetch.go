package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/multiscanner/msbootstrap/models"
	"github.com/multiscanner/msbootstrap/utils"
)

// Attempt records the final error for one URL after its retries ran out.
type Attempt struct {
	URL string
	Err error
}

// ExhaustedError reports that every URL of a target exhausted its retries.
type ExhaustedError struct {
	Target   string
	Attempts []Attempt
}

func (e *ExhaustedError) Error() string {
	urls := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		urls = append(urls, fmt.Sprintf("%s: %v", a.URL, a.Err))
	}
	return fmt.Sprintf("all sources exhausted for %s: [%s]", e.Target, strings.Join(urls, "; "))
}

// Fetcher downloads remote assets with bounded per-URL retries and ordered
// mirror fallback. The destination file appears only after a download passed
// its post-condition; failed attempts never leave partial files behind.
type Fetcher struct {
	Client  *http.Client
	Logger  *logrus.Logger
	Backoff time.Duration

	// resolve turns a github:owner/repo#pattern pseudo-URL into a release
	// asset URL. Overridable in tests.
	resolve func(ctx context.Context, ref string) (string, error)
}

// New returns a Fetcher with a JSON-logging logrus logger and default
// timeouts.
func New(logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})
		logger.SetLevel(logrus.InfoLevel)
	}
	return &Fetcher{
		Client:  &http.Client{Timeout: 5 * time.Minute},
		Logger:  logger,
		Backoff: 2 * time.Second,
		resolve: ResolveGitHubRef,
	}
}

// Fetch attempts target's primary URL up to target.Retries times, then each
// mirror in order, and reports success on the first download whose
// post-condition passes. On failure it returns an *ExhaustedError naming
// every URL tried.
func (f *Fetcher) Fetch(ctx context.Context, target models.DownloadTarget) error {
	retries := target.Retries
	if retries <= 0 {
		retries = 3
	}

	var attempts []Attempt
	for _, rawURL := range target.URLs() {
		url, err := f.resolveURL(ctx, rawURL)
		if err != nil {
			f.Logger.Warnf("Could not resolve source %s for %s: %v", rawURL, target.Name, err)
			attempts = append(attempts, Attempt{URL: rawURL, Err: err})
			continue
		}

		var lastErr error
		for attempt := 1; attempt <= retries; attempt++ {
			f.Logger.Infof("Fetching %s from %s (attempt %d/%d)", target.Name, url, attempt, retries)
			lastErr = f.fetchOnce(ctx, url, target)
			if lastErr == nil {
				f.Logger.Infof("Fetched %s to %s", target.Name, target.Dest)
				return nil
			}
			f.Logger.Warnf("Fetch of %s from %s failed: %v", target.Name, url, lastErr)
			if ctx.Err() != nil {
				break
			}
			if attempt < retries && f.Backoff > 0 {
				time.Sleep(f.Backoff * time.Duration(attempt))
			}
		}
		attempts = append(attempts, Attempt{URL: rawURL, Err: lastErr})
		f.Logger.Warnf("Source %s exhausted for %s, trying next mirror", rawURL, target.Name)
	}
	return &ExhaustedError{Target: target.Name, Attempts: attempts}
}

func (f *Fetcher) resolveURL(ctx context.Context, url string) (string, error) {
	if !strings.HasPrefix(url, githubScheme) {
		return url, nil
	}
	if f.resolve == nil {
		return ResolveGitHubRef(ctx, url)
	}
	return f.resolve(ctx, url)
}

// fetchOnce downloads url into a temp file, verifies the post-condition,
// and renames the result into target.Dest.
func (f *Fetcher) fetchOnce(ctx context.Context, url string, target models.DownloadTarget) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	if err := utils.EnsureDir(filepath.Dir(target.Dest)); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(target.Dest), filepath.Base(target.Dest)+".part*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := io.Copy(tmp, resp.Body); err != nil {
		tmp.Close()
		return fmt.Errorf("download interrupted: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close temp file: %w", err)
	}

	if err := verify(tmp.Name(), target.Check); err != nil {
		return fmt.Errorf("post-condition failed for %s: %w", target.Name, err)
	}

	perm := os.FileMode(0644)
	if target.Executable {
		perm = 0755
	}
	if err := os.Chmod(tmp.Name(), perm); err != nil {
		return fmt.Errorf("failed to set permissions: %w", err)
	}
	if err := os.Rename(tmp.Name(), target.Dest); err != nil {
		return fmt.Errorf("failed to move into place: %w", err)
	}
	return nil
}
