// Package models defines data structures shared across the application.
package models

import (
	"strings"
	"time"
)

// Provider names an external system a user can connect.
type Provider string

const (
	// ProviderGitHub is the version-control host.
	ProviderGitHub Provider = "github"
	// ProviderJira is the issue tracker.
	ProviderJira Provider = "jira"
)

// PullRequestRecord is the normalized view of a remote pull request.
// It is derived from a provider payload and never stored.
type PullRequestRecord struct {
	// Number is the pull request number (e.g., 42)
	Number int `json:"number"`

	// Title is the pull request title
	Title string `json:"title"`

	// Body is the pull request description
	Body string `json:"body"`

	// MergedAt is nil when the pull request was not merged
	MergedAt *time.Time `json:"merged_at"`

	// BaseRef is the branch the pull request targets
	BaseRef string `json:"base_ref"`

	// HeadRef is the branch the changes come from
	HeadRef string `json:"head_ref"`

	// Commits is the number of commits in the pull request
	Commits int `json:"commits"`

	// Author is the login of the pull request author
	Author string `json:"author"`
}

// IsMerged reports whether the pull request carries a merge timestamp.
func (p PullRequestRecord) IsMerged() bool {
	return p.MergedAt != nil
}

// Text returns the free text searched for ticket references.
func (p PullRequestRecord) Text() string {
	return p.Title + " " + p.Body
}

// RemoteIssue is the tracker's live view of a ticket.
type RemoteIssue struct {
	// Key is the full ticket identifier (e.g., "ABC-123")
	Key string

	// Status is the name of the ticket's current workflow status
	Status string

	// Subtasks holds the keys of the ticket's subtasks, if requested
	Subtasks []string
}

// HasDoneStatus reports whether the status name looks finished.
// The check is a loose substring match because workflow names differ
// between tracker configurations.
func (i RemoteIssue) HasDoneStatus() bool {
	return IsDoneStatus(i.Status)
}

// IsDoneStatus reports whether a status name contains "done" or "complete".
func IsDoneStatus(status string) bool {
	s := strings.ToLower(status)
	return strings.Contains(s, "done") || strings.Contains(s, "complete")
}

// Transition is a currently available workflow edge on a ticket.
type Transition struct {
	ID   string
	Name string
}

// TicketUpdate reports the outcome of one ticket update in a batch.
type TicketUpdate struct {
	TicketID string `json:"ticket_id"`
	Updated  bool   `json:"updated"`
	Reason   string `json:"reason,omitempty"`
}

// MergeStatus is the outcome class of a merge event.
type MergeStatus string

const (
	// MergeSkipped means no ticket was touched.
	MergeSkipped MergeStatus = "skipped"
	// MergeCompleted means ticket updates were attempted.
	MergeCompleted MergeStatus = "completed"
)

// MergeResult is returned for every merge event handled. PRNumber is set
// on every completed result, including pull request number 0, and on
// skips caused by an internal error.
type MergeResult struct {
	Status         MergeStatus    `json:"status"`
	Reason         string         `json:"reason,omitempty"`
	PRNumber       *int           `json:"pr_number,omitempty"`
	TicketsUpdated []TicketUpdate `json:"tickets_updated,omitempty"`
}

// StoryTrackingEntry aggregates the merged pull requests that reference
// a ticket during one reconciliation run.
type StoryTrackingEntry struct {
	TicketID  string `json:"ticket_id"`
	PRsMerged []int  `json:"prs_merged"`
	Completed bool   `json:"completed"`
}
