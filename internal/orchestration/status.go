package orchestration

import (
	"context"
	"errors"
	"strings"

	"github.com/danielolaszy/covalynce/internal/integrations"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/pkg/models"
)

// Reason explains why a ticket update did not happen.
type Reason string

const (
	// ReasonNone accompanies a successful update.
	ReasonNone Reason = ""
	// ReasonNotConfigured means the user has no tracker token or URL.
	ReasonNotConfigured Reason = "not_configured"
	// ReasonTrackerUnavailable means a tracker session could not be opened.
	ReasonTrackerUnavailable Reason = "tracker_unavailable"
	// ReasonIssueUnavailable means the live issue could not be fetched.
	ReasonIssueUnavailable Reason = "issue_unavailable"
	// ReasonTransitionsUnavailable means the available transitions could not be fetched.
	ReasonTransitionsUnavailable Reason = "transitions_unavailable"
	// ReasonNoMatchingTransition means the target status is unreachable from the current one.
	ReasonNoMatchingTransition Reason = "no_matching_transition"
	// ReasonTransitionFailed means the tracker rejected the transition.
	ReasonTransitionFailed Reason = "transition_failed"
)

// UpdateResult is the outcome of one status update.
type UpdateResult struct {
	// Updated is true only when the transition was executed
	Updated bool

	// Reason is set whenever Updated is false
	Reason Reason

	// FromStatus is the status the issue had before the update, when known
	FromStatus string

	// Transition is the name of the executed transition
	Transition string

	// Commented reports whether the audit comment was posted
	Commented bool
}

// StatusUpdater drives a ticket through the tracker workflow. It reads the
// available transitions and executes the one leading to the requested
// status rather than writing the status directly.
type StatusUpdater struct {
	connector
	aliases map[string]string
}

// NewStatusUpdater creates a StatusUpdater. Alias keys match
// case-insensitively; when two keys differ only in case, the lower case
// one wins.
func NewStatusUpdater(creds TrackerCredentials, newTracker TrackerFactory, aliases map[string]string) *StatusUpdater {
	normalized := make(map[string]string, len(aliases))
	for k, v := range aliases {
		lower := strings.ToLower(k)
		if _, taken := normalized[lower]; taken && k != lower {
			continue
		}
		normalized[lower] = v
	}
	return &StatusUpdater{
		connector: connector{creds: creds, newTracker: newTracker},
		aliases:   normalized,
	}
}

// TargetStatus maps a semantic status onto the workflow name searched for.
func (u *StatusUpdater) TargetStatus(desired string) string {
	if target, ok := u.aliases[strings.ToLower(desired)]; ok {
		return target
	}
	return desired
}

// UpdateStatus moves ticketID towards desiredStatus on behalf of userID and,
// after a successful transition, posts comment when it is not empty.
// A failed comment does not fail the update.
func (u *StatusUpdater) UpdateStatus(ctx context.Context, ticketID, desiredStatus, userID, comment string) UpdateResult {
	log := logging.With("ticket", ticketID, "user_id", userID, "desired_status", desiredStatus)

	tracker, err := u.connect(ctx, userID)
	if err != nil {
		if errors.Is(err, integrations.ErrNotConfigured) {
			log.Warn("jira integration not configured", "error", err)
			return UpdateResult{Reason: ReasonNotConfigured}
		}
		log.Error("failed to open jira session", "error", err)
		return UpdateResult{Reason: ReasonTrackerUnavailable}
	}

	issue, err := tracker.GetIssue(ctx, ticketID, "status")
	if err != nil {
		log.Error("failed to get jira issue", "error", err)
		return UpdateResult{Reason: ReasonIssueUnavailable}
	}
	result := UpdateResult{FromStatus: issue.Status}

	target := u.TargetStatus(desiredStatus)
	if strings.EqualFold(issue.Status, target) {
		log.Info("jira issue already in target status", "status", issue.Status)
	}

	transitions, err := tracker.GetTransitions(ctx, ticketID)
	if err != nil {
		log.Error("failed to get jira transitions", "error", err)
		result.Reason = ReasonTransitionsUnavailable
		return result
	}

	transition, ok := MatchTransition(transitions, target)
	if !ok {
		log.Warn("no jira transition matches target status",
			"current_status", issue.Status,
			"target_status", target,
			"available", transitionNames(transitions))
		result.Reason = ReasonNoMatchingTransition
		return result
	}

	if err := tracker.DoTransition(ctx, ticketID, transition.ID); err != nil {
		log.Error("failed to transition jira issue",
			"transition", transition.Name,
			"error", err)
		result.Reason = ReasonTransitionFailed
		return result
	}
	result.Updated = true
	result.Transition = transition.Name

	log.Info("transitioned jira issue",
		"from", issue.Status,
		"transition", transition.Name)

	if comment != "" {
		if err := tracker.AddComment(ctx, ticketID, comment); err != nil {
			log.Warn("failed to comment on jira issue", "error", err)
		} else {
			result.Commented = true
		}
	}

	return result
}

// MatchTransition returns the first transition whose name contains target,
// ignoring case.
func MatchTransition(transitions []models.Transition, target string) (models.Transition, bool) {
	needle := strings.ToLower(target)
	if needle == "" {
		return models.Transition{}, false
	}
	for _, t := range transitions {
		if strings.Contains(strings.ToLower(t.Name), needle) {
			return t, true
		}
	}
	return models.Transition{}, false
}

func transitionNames(transitions []models.Transition) []string {
	names := make([]string, 0, len(transitions))
	for _, t := range transitions {
		names = append(names, t.Name)
	}
	return names
}
