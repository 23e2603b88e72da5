package orchestration

import (
	"context"
	"errors"

	"github.com/danielolaszy/covalynce/internal/integrations"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/internal/tickets"
	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/google/uuid"
)

const (
	// StatusDevComplete is requested once a story's work is fully merged.
	StatusDevComplete = "Dev Complete"

	// StoryCompleteComment is the audit comment left on completed stories.
	StoryCompleteComment = "All related PRs merged. Story complete."

	defaultEventWindow = 50
)

// Reconciler scans a user's recent merges and completes the stories whose
// work is all merged.
type Reconciler struct {
	tokens    TokenSource
	newSource PullRequestSourceFactory
	checker   CompletionChecker
	updater   StatusSetter
	window    int
}

// NewReconciler creates a Reconciler scanning the last window events.
func NewReconciler(tokens TokenSource, newSource PullRequestSourceFactory, checker CompletionChecker, updater StatusSetter, window int) *Reconciler {
	if window <= 0 {
		window = defaultEventWindow
	}
	return &Reconciler{
		tokens:    tokens,
		newSource: newSource,
		checker:   checker,
		updater:   updater,
		window:    window,
	}
}

// Reconcile builds the run's ledger from the user's recently merged pull
// requests. For every referenced ticket it asks the checker whether the
// story is done and fires the "Dev Complete" update the first time it is.
// A user without a GitHub token gets an empty result. Any failure stops the
// scan and returns what was accumulated so far.
func (r *Reconciler) Reconcile(ctx context.Context, userID string) (entries []models.StoryTrackingEntry) {
	log := logging.With("run_id", uuid.NewString(), "user_id", userID)
	ledger := NewLedger()

	defer func() {
		if rec := recover(); rec != nil {
			log.Error("story reconciliation panicked", "panic", rec)
			entries = ledger.Entries()
		}
	}()

	token, err := r.tokens.FetchToken(ctx, userID)
	if err != nil {
		if errors.Is(err, integrations.ErrNotConfigured) {
			log.Info("github integration not configured, nothing to reconcile")
		} else {
			log.Error("failed to resolve github token", "error", err)
		}
		return ledger.Entries()
	}

	source, err := r.newSource(ctx, token)
	if err != nil {
		log.Error("failed to open github session", "error", err)
		return ledger.Entries()
	}

	prs, err := source.RecentMergedPullRequests(ctx, r.window)
	if err != nil {
		log.Error("failed to list merged pull requests", "error", err)
		return ledger.Entries()
	}

	log.Info("reconciling stories", "merged_pr_count", len(prs))

	completed := 0
	for _, pr := range prs {
		if err := ctx.Err(); err != nil {
			log.Warn("story reconciliation aborted", "error", err)
			return ledger.Entries()
		}

		for _, ticketID := range tickets.Extract(pr.Text()) {
			ledger.Upsert(ticketID, pr.Number)

			if !r.checker.IsStoryComplete(ctx, ticketID, userID) {
				continue
			}
			if !ledger.MarkCompleted(ticketID) {
				continue
			}

			res := r.updater.UpdateStatus(ctx, ticketID, StatusDevComplete, userID, StoryCompleteComment)
			completed++
			log.Info("story complete",
				"ticket", ticketID,
				"pr_number", pr.Number,
				"updated", res.Updated,
				"reason", string(res.Reason))
		}
	}

	log.Info("story reconciliation finished",
		"tickets_tracked", ledger.Len(),
		"stories_completed", completed)

	return ledger.Entries()
}
