// Package github provides functionality for interacting with the GitHub API.
package github

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/google/go-github/v41/github"
	"golang.org/x/oauth2"
)

const (
	eventTypePullRequest = "PullRequestEvent"
	actionClosed         = "closed"
)

// Client encapsulates the GitHub API client for a single user's token.
type Client struct {
	client  *github.Client
	timeout time.Duration
}

// APIURL returns the REST endpoint for a GitHub domain.
// An empty domain means github.com.
func APIURL(domain string) string {
	if domain == "" || domain == "github.com" {
		return "https://api.github.com/"
	}
	return fmt.Sprintf("https://%s/api/v3/", domain)
}

// NewClient creates a GitHub API client authenticated with token.
// Every request made through the client is bounded by timeout.
func NewClient(ctx context.Context, token string, domain string, timeout time.Duration) (*Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is empty")
	}

	ts := oauth2.StaticTokenSource(
		&oauth2.Token{AccessToken: token},
	)
	tc := oauth2.NewClient(ctx, ts)
	tc.Timeout = timeout

	return newClient(tc, APIURL(domain), timeout)
}

func newClient(httpClient *http.Client, apiURL string, timeout time.Duration) (*Client, error) {
	client := github.NewClient(httpClient)

	// Custom endpoints cover GitHub Enterprise and test servers
	if apiURL != APIURL("") {
		parsedURL, err := url.Parse(apiURL)
		if err != nil {
			return nil, fmt.Errorf("invalid github api url: %w", err)
		}
		client.BaseURL = parsedURL
		client.UploadURL = parsedURL
	}

	logging.Debug("github client configured", "api_url", client.BaseURL.String())

	return &Client{client: client, timeout: timeout}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// CurrentLogin returns the login of the authenticated user.
func (c *Client) CurrentLogin(ctx context.Context) (string, error) {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	user, resp, err := c.client.Users.Get(ctx, "")
	if err != nil {
		logging.Error("failed to get authenticated github user",
			"error", err,
			"status_code", statusCode(resp))
		return "", fmt.Errorf("failed to get authenticated user: %w", err)
	}

	login := user.GetLogin()
	if login == "" {
		return "", fmt.Errorf("authenticated user has no login")
	}
	return login, nil
}

// RecentMergedPullRequests returns the pull requests the authenticated user
// merged among their most recent limit activity events.
func (c *Client) RecentMergedPullRequests(ctx context.Context, limit int) ([]models.PullRequestRecord, error) {
	login, err := c.CurrentLogin(ctx)
	if err != nil {
		return nil, err
	}

	events, err := c.listUserEvents(ctx, login, limit)
	if err != nil {
		return nil, err
	}

	prs, err := MergedPullRequests(events)
	if err != nil {
		return nil, err
	}

	logging.Debug("scanned github events",
		"login", login,
		"event_count", len(events),
		"merged_pr_count", len(prs))

	return prs, nil
}

// listUserEvents fetches at most limit events, newest first.
func (c *Client) listUserEvents(ctx context.Context, login string, limit int) ([]*github.Event, error) {
	opts := &github.ListOptions{PerPage: 100}
	if limit < opts.PerPage {
		opts.PerPage = limit
	}

	var events []*github.Event
	for len(events) < limit {
		pageCtx, cancel := c.withTimeout(ctx)
		page, resp, err := c.client.Activity.ListEventsPerformedByUser(pageCtx, login, false, opts)
		cancel()
		if err != nil {
			logging.Error("failed to fetch github events",
				"login", login,
				"error", err,
				"status_code", statusCode(resp))
			return nil, fmt.Errorf("failed to fetch events for %s: %w", login, err)
		}

		events = append(events, page...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	if len(events) > limit {
		events = events[:limit]
	}
	return events, nil
}

// MergedPullRequests keeps the pull request events that closed a pull
// request by merging it and normalizes each one.
func MergedPullRequests(events []*github.Event) ([]models.PullRequestRecord, error) {
	var prs []models.PullRequestRecord
	for _, event := range events {
		if event.GetType() != eventTypePullRequest || event.RawPayload == nil {
			continue
		}

		payload, err := event.ParsePayload()
		if err != nil {
			return prs, fmt.Errorf("failed to parse event %s payload: %w", event.GetID(), err)
		}

		prEvent, ok := payload.(*github.PullRequestEvent)
		if !ok || prEvent.GetAction() != actionClosed {
			continue
		}

		pr := prEvent.GetPullRequest()
		if !pr.GetMerged() {
			continue
		}

		prs = append(prs, FromPullRequest(pr))
	}
	return prs, nil
}

func statusCode(resp *github.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
