package articles

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/oauth2"
)

const defaultGitHubAPI = "https://api.github.com"

// ErrNotFound reports that the requested file or directory does not exist.
// It is an expected outcome, not a failure.
var ErrNotFound = errors.New("articles: not found")

// FetchError is a failed GitHub request: a non-2xx status other than 404, or
// a transport failure (Status 0).
type FetchError struct {
	URL     string
	Status  int
	Message string
	Err     error
}

func (e *FetchError) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("github fetch %s: %v", e.URL, e.Err)
	}
	return fmt.Sprintf("github fetch failed (%d): %s", e.Status, e.Message)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DirEntry is one element of a contents API directory listing.
type DirEntry struct {
	Type        string  `json:"type"` // file, dir, symlink, submodule
	Name        string  `json:"name"`
	Path        string  `json:"path"`
	SHA         string  `json:"sha"`
	Size        int64   `json:"size"`
	DownloadURL *string `json:"download_url"`
}

type fileResponse struct {
	DirEntry
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// GitHubClient reads repository contents through the GitHub REST API.
type GitHubClient struct {
	baseURL string
	hc      *http.Client
}

// GitHubOption configures a GitHubClient.
type GitHubOption func(*GitHubClient)

// WithBaseURL points the client at a different API root (GitHub Enterprise, tests).
func WithBaseURL(u string) GitHubOption {
	return func(c *GitHubClient) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// NewGitHubClient returns a client that authenticates with token when it is
// non-empty. A zero timeout leaves requests bounded only by their context.
func NewGitHubClient(token string, timeout time.Duration, opts ...GitHubOption) *GitHubClient {
	hc := &http.Client{Timeout: timeout}
	if token != "" {
		ctx := context.WithValue(context.Background(), oauth2.HTTPClient, hc)
		hc = oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
		hc.Timeout = timeout
	}
	c := &GitHubClient{baseURL: defaultGitHubAPI, hc: hc}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *GitHubClient) contentsURL(repo RepoRef, p string) string {
	return fmt.Sprintf("%s/repos/%s/%s/contents/%s",
		c.baseURL, url.PathEscape(repo.Owner), url.PathEscape(repo.Repo), encodePath(p))
}

// encodePath escapes each segment of a repository path, dropping empty ones.
func encodePath(p string) string {
	var segs []string
	for _, s := range strings.Split(p, "/") {
		if s != "" {
			segs = append(segs, url.PathEscape(s))
		}
	}
	return strings.Join(segs, "/")
}

// get performs a GET and returns the body of a 2xx response.
func (c *GitHubClient) get(ctx context.Context, u string, accept string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("new request: %w", err)
	}
	if accept != "" {
		req.Header.Set("Accept", accept)
		req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	}
	req.Header.Set("User-Agent", "folio")

	resp, err := c.hc.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &FetchError{URL: u, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, ErrNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		text := strings.TrimSpace(string(msg))
		if text == "" {
			text = http.StatusText(resp.StatusCode)
		}
		return nil, &FetchError{URL: u, Status: resp.StatusCode, Message: text}
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &FetchError{URL: u, Status: resp.StatusCode, Err: err}
	}
	return body, nil
}

// ListDir lists the entries of dir. A path that names a file yields no entries.
func (c *GitHubClient) ListDir(ctx context.Context, repo RepoRef, dir string) ([]DirEntry, error) {
	body, err := c.get(ctx, c.contentsURL(repo, dir), "application/vnd.github+json")
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		return nil, nil
	}
	var entries []DirEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("decode listing %s/%s: %w", repo, dir, err)
	}
	return entries, nil
}

// FileContent returns the text of the file at p. Inline base64 content is
// preferred; the download URL is used when the API omits it. A failed
// download reports ErrNotFound.
func (c *GitHubClient) FileContent(ctx context.Context, repo RepoRef, p string) (string, error) {
	body, err := c.get(ctx, c.contentsURL(repo, p), "application/vnd.github+json")
	if err != nil {
		return "", err
	}
	if strings.HasPrefix(strings.TrimSpace(string(body)), "[") {
		// p is a directory.
		return "", ErrNotFound
	}
	var f fileResponse
	if err := json.Unmarshal(body, &f); err != nil {
		return "", fmt.Errorf("decode contents %s/%s: %w", repo, p, err)
	}
	if f.Type != "file" {
		return "", ErrNotFound
	}
	if f.Encoding == "base64" && f.Content != "" {
		clean := strings.NewReplacer("\n", "", "\r", "").Replace(f.Content)
		raw, err := base64.StdEncoding.DecodeString(clean)
		if err != nil {
			return "", fmt.Errorf("decode base64 %s/%s: %w", repo, p, err)
		}
		return string(raw), nil
	}
	if f.DownloadURL != nil && *f.DownloadURL != "" {
		raw, err := c.get(ctx, *f.DownloadURL, "")
		if err != nil {
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			// An unusable download link costs only this file.
			return "", fmt.Errorf("download %s/%s: %w: %v", repo, p, ErrNotFound, err)
		}
		return string(raw), nil
	}
	return "", ErrNotFound
}
