package orchestration

import (
	"testing"

	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/stretchr/testify/assert"
)

func TestLedgerUpsert(t *testing.T) {
	ledger := NewLedger()
	ledger.Upsert("ABC-2", 10)
	ledger.Upsert("ABC-1", 10)
	ledger.Upsert("ABC-2", 11)

	assert.Equal(t, 2, ledger.Len())
	assert.Equal(t, []models.StoryTrackingEntry{
		{TicketID: "ABC-2", PRsMerged: []int{10, 11}},
		{TicketID: "ABC-1", PRsMerged: []int{10}},
	}, ledger.Entries())
}

func TestLedgerMarkCompletedOnce(t *testing.T) {
	ledger := NewLedger()

	assert.False(t, ledger.MarkCompleted("ABC-1"), "unknown ticket")

	ledger.Upsert("ABC-1", 1)
	assert.False(t, ledger.Entries()[0].Completed)
	assert.True(t, ledger.MarkCompleted("ABC-1"))
	assert.False(t, ledger.MarkCompleted("ABC-1"))
	assert.True(t, ledger.Entries()[0].Completed)

	ledger.Upsert("ABC-1", 2)
	assert.Equal(t, []models.StoryTrackingEntry{
		{TicketID: "ABC-1", PRsMerged: []int{1, 2}, Completed: true},
	}, ledger.Entries(), "later merges keep the flag")
}

func TestLedgerEntriesAreCopies(t *testing.T) {
	ledger := NewLedger()
	ledger.Upsert("ABC-1", 1)

	entries := ledger.Entries()
	entries[0].PRsMerged[0] = 99
	entries[0].Completed = true

	assert.Equal(t, []int{1}, ledger.Entries()[0].PRsMerged)
	assert.False(t, ledger.Entries()[0].Completed)
	assert.NotNil(t, NewLedger().Entries())
}
