package fetch

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"regexp"
	"strings"

	"github.com/google/go-github/github"
	"golang.org/x/oauth2"
)

const githubScheme = "github:"

// NewGitHubClient creates a GitHub client, authenticated when GITHUB_TOKEN
// is set so release lookups are not throttled by the anonymous rate limit.
func NewGitHubClient(ctx context.Context) *github.Client {
	token := os.Getenv("GITHUB_TOKEN")
	if token == "" {
		return github.NewClient(http.DefaultClient)
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return github.NewClient(oauth2.NewClient(ctx, ts))
}

// ResolveGitHubRef resolves a github:owner/repo#pattern pseudo-URL to the
// download URL of the first latest-release asset whose name matches pattern.
func ResolveGitHubRef(ctx context.Context, ref string) (string, error) {
	spec := strings.TrimPrefix(ref, githubScheme)
	repoPart, pattern, ok := strings.Cut(spec, "#")
	if !ok || pattern == "" {
		return "", fmt.Errorf("github ref %q needs the form github:owner/repo#pattern", ref)
	}
	owner, repo, ok := strings.Cut(repoPart, "/")
	if !ok || owner == "" || repo == "" {
		return "", fmt.Errorf("github ref %q needs the form github:owner/repo#pattern", ref)
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return "", fmt.Errorf("invalid asset pattern in %q: %w", ref, err)
	}

	client := NewGitHubClient(ctx)
	release, _, err := client.Repositories.GetLatestRelease(ctx, owner, repo)
	if err != nil {
		return "", fmt.Errorf("failed to look up latest release of %s/%s: %w", owner, repo, err)
	}
	for _, asset := range release.Assets {
		if re.MatchString(asset.GetName()) {
			return asset.GetBrowserDownloadURL(), nil
		}
	}
	return "", fmt.Errorf("no asset of %s/%s release %s matches %q", owner, repo, release.GetTagName(), pattern)
}
