package orchestration

import "github.com/danielolaszy/covalynce/pkg/models"

// Ledger tracks, for one reconciliation run, which merged pull requests
// reference each ticket and whether the ticket's completion has fired.
// Each ticket has at most one entry and is completed at most once.
type Ledger struct {
	entries map[string]*models.StoryTrackingEntry
	order   []string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{entries: make(map[string]*models.StoryTrackingEntry)}
}

// Upsert records that pull request prNumber references ticketID, creating
// the entry on first sight.
func (l *Ledger) Upsert(ticketID string, prNumber int) {
	entry, ok := l.entries[ticketID]
	if !ok {
		entry = &models.StoryTrackingEntry{TicketID: ticketID, PRsMerged: []int{}}
		l.entries[ticketID] = entry
		l.order = append(l.order, ticketID)
	}
	entry.PRsMerged = append(entry.PRsMerged, prNumber)
}

// MarkCompleted flips the ticket's completed flag. It returns true only for
// the call that flips it; unknown tickets are never completed.
func (l *Ledger) MarkCompleted(ticketID string) bool {
	entry, ok := l.entries[ticketID]
	if !ok || entry.Completed {
		return false
	}
	entry.Completed = true
	return true
}

// Len returns the number of tracked tickets.
func (l *Ledger) Len() int {
	return len(l.order)
}

// Entries returns copies of the entries in first-seen order.
func (l *Ledger) Entries() []models.StoryTrackingEntry {
	out := make([]models.StoryTrackingEntry, 0, len(l.order))
	for _, id := range l.order {
		entry := *l.entries[id]
		entry.PRsMerged = append([]int(nil), entry.PRsMerged...)
		out = append(out, entry)
	}
	return out
}
