// Package githubimport pulls Solidity source files out of public GitHub
// repositories for auditing.
package githubimport

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/go-github/v68/github"

	"solaudit/internal/config"
)

var (
	ErrInvalidRepoURL = errors.New("invalid repository url")
	ErrNoSolidityFile = errors.New("no solidity file found in repository")
	ErrFetchFailed    = errors.New("failed to fetch repository contents")
)

// SourceFile is a fetched Solidity source file
type SourceFile struct {
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Fetcher lists repository contents and downloads raw files using an
// unauthenticated GitHub client.
type Fetcher struct {
	client     *github.Client
	httpClient *http.Client
}

// NewFetcher creates a fetcher against the public GitHub API
func NewFetcher(cfg *config.GitHubConfig) *Fetcher {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}
	return &Fetcher{
		client:     github.NewClient(httpClient),
		httpClient: httpClient,
	}
}

// NewFetcherWithClient creates a fetcher with a preconfigured GitHub client.
// Used by tests to point at a stub server.
func NewFetcherWithClient(client *github.Client, httpClient *http.Client) *Fetcher {
	return &Fetcher{client: client, httpClient: httpClient}
}

// FetchFirstSolidityFile lists the repository's top-level files and returns
// the raw text of the first one with a .sol extension.
func (f *Fetcher) FetchFirstSolidityFile(ctx context.Context, repoURL string) (*SourceFile, error) {
	owner, repo, err := parseRepoURL(repoURL)
	if err != nil {
		return nil, err
	}

	_, entries, _, err := f.client.Repositories.GetContents(ctx, owner, repo, "", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	for _, entry := range entries {
		if entry.GetType() != "file" || !strings.HasSuffix(entry.GetName(), ".sol") {
			continue
		}
		content, err := f.download(ctx, entry.GetDownloadURL())
		if err != nil {
			return nil, err
		}
		return &SourceFile{Name: entry.GetName(), Content: content}, nil
	}

	return nil, ErrNoSolidityFile
}

// download fetches the raw file text from its download URL
func (f *Fetcher) download(ctx context.Context, downloadURL string) (string, error) {
	if downloadURL == "" {
		return "", fmt.Errorf("%w: file has no download url", ErrFetchFailed)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, downloadURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: download returned status %d", ErrFetchFailed, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetchFailed, err)
	}

	return string(body), nil
}

// parseRepoURL extracts owner and repository from a GitHub URL or an
// "owner/repo" shorthand.
func parseRepoURL(raw string) (owner, repo string, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", "", ErrInvalidRepoURL
	}

	path := raw
	if strings.Contains(raw, "://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", "", fmt.Errorf("%w: %v", ErrInvalidRepoURL, err)
		}
		if u.Host != "github.com" && u.Host != "www.github.com" {
			return "", "", fmt.Errorf("%w: host %q is not github.com", ErrInvalidRepoURL, u.Host)
		}
		path = u.Path
	}

	parts := strings.Split(strings.Trim(path, "/"), "/")
	if len(parts) < 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("%w: expected owner/repo", ErrInvalidRepoURL)
	}

	return parts[0], strings.TrimSuffix(parts[1], ".git"), nil
}
