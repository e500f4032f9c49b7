package publish

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"golang.org/x/oauth2"

	"github.com/eringen/mdblog/content"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// GitHubConfig locates the repository posts are committed to.
type GitHubConfig struct {
	Token  string
	Owner  string
	Repo   string
	Branch string
	// BaseURL overrides DefaultGitHubAPI, e.g. for GitHub Enterprise.
	BaseURL string
	// Dir is the directory inside the repository, "posts" when empty.
	Dir string
}

// GitHubPublisher commits each post file to a GitHub repository through
// the contents API. The site is expected to redeploy from that repository.
type GitHubPublisher struct {
	repo   *content.Repository
	client *http.Client
	cfg    GitHubConfig
}

// NewGitHubPublisher returns a publisher authenticating with cfg.Token.
// repo is used only to prepare documents.
func NewGitHubPublisher(ctx context.Context, repo *content.Repository, cfg GitHubConfig) (*GitHubPublisher, error) {
	if cfg.Token == "" {
		return nil, errors.New("publish: GitHub token not configured")
	}
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, errors.New("publish: GitHub owner and repository are required")
	}
	if cfg.Branch == "" {
		cfg.Branch = "master"
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultGitHubAPI
	}
	if cfg.Dir == "" {
		cfg.Dir = "posts"
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: cfg.Token}))
	return &GitHubPublisher{repo: repo, client: client, cfg: cfg}, nil
}

type contentsRequest struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch"`
	SHA     string `json:"sha,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
}

// Publish implements Publisher. An existing file with the same name is
// replaced.
func (p *GitHubPublisher) Publish(ctx context.Context, in content.NewPost) (content.Draft, error) {
	d, err := p.repo.Prepare(in)
	if err != nil {
		return content.Draft{}, err
	}
	endpoint := fmt.Sprintf("%s/repos/%s/%s/contents/%s/%s", p.cfg.BaseURL,
		url.PathEscape(p.cfg.Owner), url.PathEscape(p.cfg.Repo), p.cfg.Dir, url.PathEscape(d.Filename))

	sha, err := p.existingSHA(ctx, endpoint)
	if err != nil {
		return content.Draft{}, err
	}
	payload, err := json.Marshal(contentsRequest{
		Message: "Add new post: " + d.Filename,
		Content: base64.StdEncoding.EncodeToString(d.Document),
		Branch:  p.cfg.Branch,
		SHA:     sha,
	})
	if err != nil {
		return content.Draft{}, err
	}
	resp, err := p.do(ctx, http.MethodPut, endpoint, bytes.NewReader(payload))
	if err != nil {
		return content.Draft{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return content.Draft{}, responseError(resp)
	}
	return d, nil
}

func (p *GitHubPublisher) existingSHA(ctx context.Context, endpoint string) (string, error) {
	resp, err := p.do(ctx, http.MethodGet, endpoint+"?ref="+url.QueryEscape(p.cfg.Branch), nil)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	switch resp.StatusCode {
	case http.StatusOK:
		var file struct {
			SHA string `json:"sha"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
			return "", fmt.Errorf("publish: decode GitHub response: %w", err)
		}
		return file.SHA, nil
	case http.StatusNotFound:
		return "", nil
	default:
		return "", responseError(resp)
	}
}

func (p *GitHubPublisher) do(ctx context.Context, method, endpoint string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("publish: GitHub request: %w", err)
	}
	return resp, nil
}

func responseError(resp *http.Response) error {
	var e apiError
	_ = json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&e)
	if e.Message == "" {
		e.Message = http.StatusText(resp.StatusCode)
	}
	return fmt.Errorf("publish: GitHub API %d: %s", resp.StatusCode, e.Message)
}
