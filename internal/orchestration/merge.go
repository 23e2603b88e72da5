package orchestration

import (
	"context"
	"fmt"

	"github.com/danielolaszy/covalynce/internal/github"
	"github.com/danielolaszy/covalynce/internal/logging"
	"github.com/danielolaszy/covalynce/internal/tickets"
	"github.com/danielolaszy/covalynce/pkg/models"
)

// Skip reasons reported by HandleMerge.
const (
	ReasonNotProductionBranch = "Not merged to production branch"
	ReasonNotMerged           = "PR not merged"
	ReasonNoTickets           = "No Jira tickets found"
	ReasonInternalError       = "Internal error"
)

// StatusDevDone is requested for every ticket referenced by a production merge.
const StatusDevDone = "Dev Done"

// MergeHandler reacts to pull requests merged into a production branch.
type MergeHandler struct {
	updater  StatusSetter
	branches map[string]bool
}

// NewMergeHandler creates a MergeHandler accepting merges into branches.
func NewMergeHandler(updater StatusSetter, branches []string) *MergeHandler {
	set := make(map[string]bool, len(branches))
	for _, b := range branches {
		set[b] = true
	}
	return &MergeHandler{updater: updater, branches: set}
}

// HandleMergePayload normalizes a loosely typed pull request payload and
// handles it.
func (h *MergeHandler) HandleMergePayload(ctx context.Context, raw map[string]any, userID string) models.MergeResult {
	return h.HandleMerge(ctx, github.NormalizePayload(raw), userID)
}

// HandleMerge moves every ticket referenced by pr to "Dev Done". Checks
// run in order: target branch, merge timestamp, ticket references. A
// ticket that fails to update is reported and does not stop the others.
func (h *MergeHandler) HandleMerge(ctx context.Context, pr models.PullRequestRecord, userID string) (result models.MergeResult) {
	defer func() {
		if r := recover(); r != nil {
			logging.Error("merge handling panicked",
				"pr_number", pr.Number,
				"user_id", userID,
				"panic", r)
			number := pr.Number
			result = models.MergeResult{Status: models.MergeSkipped, Reason: ReasonInternalError, PRNumber: &number}
		}
	}()

	if !h.branches[pr.BaseRef] {
		return models.MergeResult{Status: models.MergeSkipped, Reason: ReasonNotProductionBranch}
	}

	if !pr.IsMerged() {
		return models.MergeResult{Status: models.MergeSkipped, Reason: ReasonNotMerged}
	}

	ticketIDs := tickets.Extract(pr.Text())
	if len(ticketIDs) == 0 {
		logging.Info("no jira tickets found in pull request", "pr_number", pr.Number)
		return models.MergeResult{Status: models.MergeSkipped, Reason: ReasonNoTickets}
	}

	comment := MergeComment(pr)
	updates := make([]models.TicketUpdate, 0, len(ticketIDs))
	for _, ticketID := range ticketIDs {
		res := h.updater.UpdateStatus(ctx, ticketID, StatusDevDone, userID, comment)
		updates = append(updates, models.TicketUpdate{
			TicketID: ticketID,
			Updated:  res.Updated,
			Reason:   string(res.Reason),
		})

		logging.Info("processed jira ticket for merged pull request",
			"ticket", ticketID,
			"pr_number", pr.Number,
			"updated", res.Updated)
	}

	number := pr.Number
	return models.MergeResult{
		Status:         models.MergeCompleted,
		PRNumber:       &number,
		TicketsUpdated: updates,
	}
}

// MergeComment is the audit comment left on tickets of a merged pull request.
func MergeComment(pr models.PullRequestRecord) string {
	return fmt.Sprintf("PR #%d merged to %s. Changes: %s", pr.Number, pr.BaseRef, pr.Title)
}
