package publish

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultGitHubAPI is the public GitHub REST endpoint.
const DefaultGitHubAPI = "https://api.github.com"

// ErrCreateRepo wraps repository creation failures.
var ErrCreateRepo = errors.New("create repository failed")

// Repo identifies a created repository.
type Repo struct {
	Owner    string `json:"owner"`
	Name     string `json:"name"`
	CloneURL string `json:"cloneUrl"`
	HTMLURL  string `json:"url"`
}

// RepoCreator creates a remote repository on behalf of the token's owner.
type RepoCreator interface {
	CreateRepo(ctx context.Context, token, name, description string) (Repo, error)
}

// GitHub creates repositories through the GitHub REST API.
type GitHub struct {
	baseURL string
	client  *http.Client
}

// NewGitHub creates a client. An empty baseURL selects DefaultGitHubAPI.
func NewGitHub(baseURL string) *GitHub {
	if baseURL == "" {
		baseURL = DefaultGitHubAPI
	}
	return &GitHub{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{},
	}
}

type createRepoRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Private     bool   `json:"private"`
	AutoInit    bool   `json:"auto_init"`
}

type createRepoResponse struct {
	Name     string `json:"name"`
	CloneURL string `json:"clone_url"`
	HTMLURL  string `json:"html_url"`
	Owner    struct {
		Login string `json:"login"`
	} `json:"owner"`
	Message string `json:"message"`
}

// CreateRepo creates an empty public repository.
func (g *GitHub) CreateRepo(ctx context.Context, token, name, description string) (Repo, error) {
	body, err := json.Marshal(createRepoRequest{Name: name, Description: description})
	if err != nil {
		return Repo{}, fmt.Errorf("encode repository request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/user/repos", bytes.NewReader(body))
	if err != nil {
		return Repo{}, fmt.Errorf("build repository request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return Repo{}, fmt.Errorf("create repository: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return Repo{}, fmt.Errorf("read repository response: %w", err)
	}

	var out createRepoResponse
	decodeErr := json.Unmarshal(raw, &out)

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		msg := "Failed to create repository"
		if decodeErr == nil && out.Message != "" {
			msg = out.Message
		}
		return Repo{}, fmt.Errorf("%w: %s", ErrCreateRepo, msg)
	}
	if decodeErr != nil {
		return Repo{}, fmt.Errorf("decode repository response: %w", decodeErr)
	}

	return Repo{
		Owner:    out.Owner.Login,
		Name:     out.Name,
		CloneURL: out.CloneURL,
		HTMLURL:  out.HTMLURL,
	}, nil
}
