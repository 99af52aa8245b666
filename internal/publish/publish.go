// Package publish exports an agent as a source repository: it creates the
// remote repository, commits the agent's project files into an in-memory
// clone and pushes it.
package publish

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/ashureev/agent-factory/internal/domain"
	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	git "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/storage/memory"
)

const (
	// CommitMessage is the message of the single published commit.
	CommitMessage = "Initial commit from AgentFactory"
	// DefaultDescription is used when the agent has no role.
	DefaultDescription = "AI Agent created with AgentFactory"

	branch = "main"
)

// ErrNoToken is returned when no access token is supplied.
var ErrNoToken = errors.New("source control token is required")

var whitespace = regexp.MustCompile(`\s+`)

// RepoName derives the repository name from the agent name.
func RepoName(agentName string) string {
	return whitespace.ReplaceAllString(strings.ToLower(agentName), "-") + "-agent"
}

// pushFunc pushes repo to url.
type pushFunc func(ctx context.Context, repo *git.Repository, url, token string) error

// Publisher publishes agents.
type Publisher struct {
	creator RepoCreator
	author  object.Signature
	push    pushFunc
	now     func() time.Time
	logger  *slog.Logger
}

// NewPublisher creates a publisher that creates repositories with creator.
func NewPublisher(creator RepoCreator, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		creator: creator,
		author:  object.Signature{Name: "AgentFactory", Email: "agentfactory@users.noreply.github.com"},
		push:    pushRepo,
		now:     time.Now,
		logger:  logger,
	}
}

// Publish creates a repository for a and pushes its project files.
func (p *Publisher) Publish(ctx context.Context, token string, a domain.Agent) (Repo, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return Repo{}, ErrNoToken
	}

	description := a.Role
	if description == "" {
		description = DefaultDescription
	}

	repo, err := p.creator.CreateRepo(ctx, token, RepoName(a.Name), description)
	if err != nil {
		return Repo{}, err
	}

	files, err := ProjectFiles(a)
	if err != nil {
		return Repo{}, err
	}
	local, err := p.BuildRepository(files)
	if err != nil {
		return Repo{}, err
	}
	if err := p.push(ctx, local, repo.CloneURL, token); err != nil {
		return Repo{}, fmt.Errorf("push %s/%s: %w", repo.Owner, repo.Name, err)
	}

	p.logger.Info("Agent published", "agent_id", a.ID, "repo", repo.Owner+"/"+repo.Name)
	return repo, nil
}

// BuildRepository commits files into a new in-memory repository on main.
func (p *Publisher) BuildRepository(files map[string]string) (*git.Repository, error) {
	fs := memfs.New()
	repo, err := git.InitWithOptions(memory.NewStorage(), fs, git.InitOptions{
		DefaultBranch: plumbing.NewBranchReferenceName(branch),
	})
	if err != nil {
		return nil, fmt.Errorf("init repository: %w", err)
	}

	wt, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open worktree: %w", err)
	}

	paths := make([]string, 0, len(files))
	for path := range files {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	for _, path := range paths {
		if err := util.WriteFile(fs, path, []byte(files[path]), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", path, err)
		}
		if _, err := wt.Add(path); err != nil {
			return nil, fmt.Errorf("stage %s: %w", path, err)
		}
	}

	author := p.author
	author.When = p.now()
	if _, err := wt.Commit(CommitMessage, &git.CommitOptions{Author: &author}); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return repo, nil
}

func pushRepo(ctx context.Context, repo *git.Repository, url, token string) error {
	if _, err := repo.CreateRemote(&config.RemoteConfig{
		Name: git.DefaultRemoteName,
		URLs: []string{url},
	}); err != nil {
		return fmt.Errorf("add remote: %w", err)
	}

	ref := plumbing.NewBranchReferenceName(branch)
	err := repo.PushContext(ctx, &git.PushOptions{
		RemoteName: git.DefaultRemoteName,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
		Auth:       &githttp.BasicAuth{Username: "x-access-token", Password: token},
	})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return err
	}
	return nil
}
