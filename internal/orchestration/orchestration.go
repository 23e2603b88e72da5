// Package orchestration links pull request merges to ticket state in the
// issue tracker.
//
// Every exported entry point is total: remote failures, missing
// integrations and workflow mismatches are logged and reported through
// result values, never returned as errors.
package orchestration

import (
	"context"
	"time"

	"github.com/danielolaszy/covalynce/internal/github"
	"github.com/danielolaszy/covalynce/internal/integrations"
	"github.com/danielolaszy/covalynce/internal/jira"
	"github.com/danielolaszy/covalynce/pkg/models"
)

// Tracker is the subset of the issue tracker API the engine drives.
type Tracker interface {
	GetIssue(ctx context.Context, key string, fields ...string) (models.RemoteIssue, error)
	GetTransitions(ctx context.Context, key string) ([]models.Transition, error)
	DoTransition(ctx context.Context, key string, transitionID string) error
	AddComment(ctx context.Context, key string, body string) error
}

// TrackerFactory opens a tracker session for one user's instance.
type TrackerFactory func(baseURL string, token string) (Tracker, error)

// TrackerCredentials resolves a user's tracker token and base URL.
type TrackerCredentials interface {
	Resolve(ctx context.Context, userID string) (token string, baseURL string, err error)
}

// TokenSource resolves a user's token for a single provider.
type TokenSource interface {
	FetchToken(ctx context.Context, userID string) (string, error)
}

// PullRequestSource lists recently merged pull requests.
type PullRequestSource interface {
	RecentMergedPullRequests(ctx context.Context, limit int) ([]models.PullRequestRecord, error)
}

// PullRequestSourceFactory opens a VCS session for one user's token.
type PullRequestSourceFactory func(ctx context.Context, token string) (PullRequestSource, error)

// StatusSetter moves a ticket towards a semantic status.
type StatusSetter interface {
	UpdateStatus(ctx context.Context, ticketID, desiredStatus, userID, comment string) UpdateResult
}

// CompletionChecker reports whether a story is finished.
type CompletionChecker interface {
	IsStoryComplete(ctx context.Context, storyKey, userID string) bool
}

// Options configures an Engine.
type Options struct {
	ProductionBranches []string
	StatusAliases      map[string]string
	EventWindow        int
	Timeout            time.Duration
	GitHubDomain       string
}

// Engine bundles the orchestration components wired to real clients.
type Engine struct {
	Updater *StatusUpdater
	Checker *StoryChecker
	Merges  *MergeHandler
	Stories *Reconciler
}

// NewEngine wires the orchestration components to the provider adapters
// and to JIRA and GitHub clients built per call.
func NewEngine(opts Options, s integrations.Store) *Engine {
	creds := integrations.NewJiraAdapter(s)

	newTracker := func(baseURL, token string) (Tracker, error) {
		client, err := jira.NewClient(baseURL, token, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}
	newSource := func(ctx context.Context, token string) (PullRequestSource, error) {
		client, err := github.NewClient(ctx, token, opts.GitHubDomain, opts.Timeout)
		if err != nil {
			return nil, err
		}
		return client, nil
	}

	updater := NewStatusUpdater(creds, newTracker, opts.StatusAliases)
	checker := NewStoryChecker(creds, newTracker)

	return &Engine{
		Updater: updater,
		Checker: checker,
		Merges:  NewMergeHandler(updater, opts.ProductionBranches),
		Stories: NewReconciler(integrations.NewGitHubAdapter(s), newSource, checker, updater, opts.EventWindow),
	}
}

// connector opens tracker sessions for users.
type connector struct {
	creds      TrackerCredentials
	newTracker TrackerFactory
}

func (c connector) connect(ctx context.Context, userID string) (Tracker, error) {
	token, baseURL, err := c.creds.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}
	return c.newTracker(baseURL, token)
}
