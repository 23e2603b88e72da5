// Package jira provides functionality for interacting with the JIRA REST API.
package jira

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	jira "github.com/andygrunwald/go-jira"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/pkg/models"
)

// ErrUnexpectedStatus is returned when JIRA answers with a status code the
// operation does not treat as success.
var ErrUnexpectedStatus = errors.New("unexpected jira response status")

// Client handles interactions with one JIRA instance on behalf of one user.
type Client struct {
	client  *jira.Client
	baseURL string
	timeout time.Duration
}

// NewClient creates a JIRA client that authenticates with a bearer token.
// Every request made through the client is bounded by timeout.
func NewClient(baseURL string, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("jira base url is empty")
	}
	if token == "" {
		return nil, fmt.Errorf("jira token is empty")
	}

	tp := jira.BearerAuthTransport{
		Token: token,
	}
	httpClient := tp.Client()
	httpClient.Timeout = timeout

	client, err := jira.NewClient(httpClient, strings.TrimSuffix(baseURL, "/")+"/")
	if err != nil {
		return nil, fmt.Errorf("failed to create jira client: %w", err)
	}

	logging.Debug("jira client configured",
		"base_url", baseURL,
		"token", logging.MaskSensitive(token))

	return &Client{
		client:  client,
		baseURL: baseURL,
		timeout: timeout,
	}, nil
}

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// GetIssue fetches the live state of a ticket. When fields is empty only
// status and subtasks are requested.
func (c *Client) GetIssue(ctx context.Context, key string, fields ...string) (models.RemoteIssue, error) {
	if c.client == nil {
		return models.RemoteIssue{}, fmt.Errorf("jira client not initialized")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	if len(fields) == 0 {
		fields = []string{"status", "subtasks"}
	}
	opts := &jira.GetQueryOptions{Fields: strings.Join(fields, ",")}

	issue, resp, err := c.client.Issue.GetWithContext(ctx, key, opts)
	if err != nil {
		return models.RemoteIssue{}, fmt.Errorf("failed to get issue %s: %w (status: %d)", key, err, statusCode(resp))
	}

	return toRemoteIssue(issue), nil
}

func toRemoteIssue(issue *jira.Issue) models.RemoteIssue {
	remote := models.RemoteIssue{}
	if issue == nil {
		return remote
	}
	remote.Key = issue.Key
	if issue.Fields == nil {
		return remote
	}
	if issue.Fields.Status != nil {
		remote.Status = issue.Fields.Status.Name
	}
	for _, subtask := range issue.Fields.Subtasks {
		if subtask != nil && subtask.Key != "" {
			remote.Subtasks = append(remote.Subtasks, subtask.Key)
		}
	}
	return remote
}

// GetTransitions returns the transitions currently available on a ticket.
// The set depends on the ticket's current status.
func (c *Client) GetTransitions(ctx context.Context, key string) ([]models.Transition, error) {
	if c.client == nil {
		return nil, fmt.Errorf("jira client not initialized")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	transitions, resp, err := c.client.Issue.GetTransitionsWithContext(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to get transitions for %s: %w (status: %d)", key, err, statusCode(resp))
	}

	result := make([]models.Transition, 0, len(transitions))
	for _, t := range transitions {
		result = append(result, models.Transition{ID: t.ID, Name: t.Name})
	}
	return result, nil
}

// DoTransition executes a transition. JIRA signals success with
// 204 No Content; any other answer is an error.
func (c *Client) DoTransition(ctx context.Context, key string, transitionID string) error {
	if c.client == nil {
		return fmt.Errorf("jira client not initialized")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	resp, err := c.client.Issue.DoTransitionWithContext(ctx, key, transitionID)
	if err != nil {
		return fmt.Errorf("failed to transition %s with %s: %w (status: %d)", key, transitionID, err, statusCode(resp))
	}
	if code := statusCode(resp); code != http.StatusNoContent {
		return fmt.Errorf("transition %s on %s: %w: %d", transitionID, key, ErrUnexpectedStatus, code)
	}
	return nil
}

// AddComment posts a plain text comment on a ticket.
func (c *Client) AddComment(ctx context.Context, key string, body string) error {
	if c.client == nil {
		return fmt.Errorf("jira client not initialized")
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	_, resp, err := c.client.Issue.AddCommentWithContext(ctx, key, &jira.Comment{Body: body})
	if err != nil {
		return fmt.Errorf("failed to comment on %s: %w (status: %d)", key, err, statusCode(resp))
	}
	return nil
}

func statusCode(resp *jira.Response) int {
	if resp == nil || resp.Response == nil {
		return 0
	}
	return resp.StatusCode
}
