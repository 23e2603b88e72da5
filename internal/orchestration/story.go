package orchestration

import (
	"context"
	"errors"

	"github.com/danielolaszy/covalynce/internal/integrations"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/pkg/models"
)

// StoryChecker decides whether a story and its subtasks are finished.
// The tracker is queried on every call; nothing is cached.
type StoryChecker struct {
	connector
}

// NewStoryChecker creates a StoryChecker.
func NewStoryChecker(creds TrackerCredentials, newTracker TrackerFactory) *StoryChecker {
	return &StoryChecker{connector{creds: creds, newTracker: newTracker}}
}

// IsStoryComplete reports whether storyKey is done. A story without
// subtasks is done when its own status looks done; otherwise every subtask
// must look done. Checking stops at the first unfinished subtask, and a
// subtask that cannot be fetched counts as unfinished.
func (c *StoryChecker) IsStoryComplete(ctx context.Context, storyKey, userID string) bool {
	log := logging.With("story", storyKey, "user_id", userID)

	tracker, err := c.connect(ctx, userID)
	if err != nil {
		if errors.Is(err, integrations.ErrNotConfigured) {
			log.Debug("jira integration not configured", "error", err)
		} else {
			log.Error("failed to open jira session", "error", err)
		}
		return false
	}

	story, err := tracker.GetIssue(ctx, storyKey, "subtasks", "status")
	if err != nil {
		log.Error("failed to get jira story", "error", err)
		return false
	}

	if len(story.Subtasks) == 0 {
		return story.HasDoneStatus()
	}

	for _, key := range story.Subtasks {
		subtask, err := tracker.GetIssue(ctx, key, "status")
		if err != nil {
			log.Warn("failed to get jira subtask, treating as incomplete",
				"subtask", key,
				"error", err)
			return false
		}
		if !models.IsDoneStatus(subtask.Status) {
			log.Debug("story has unfinished subtask",
				"subtask", key,
				"status", subtask.Status)
			return false
		}
	}

	return true
}
