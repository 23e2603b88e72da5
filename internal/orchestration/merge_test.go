package orchestration

import (
	"context"
	"testing"
	"time"

	"github.com/danielolaszy/covalynce/internal/config"
	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mergedPR(number int, base, title, body string) models.PullRequestRecord {
	merged := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return models.PullRequestRecord{
		Number:   number,
		Title:    title,
		Body:     body,
		BaseRef:  base,
		MergedAt: &merged,
	}
}

func TestHandleMergeSkips(t *testing.T) {
	testCases := []struct {
		name       string
		pr         models.PullRequestRecord
		wantReason string
	}{
		{
			name:       "Feature branch even when merged with tickets",
			pr:         mergedPR(1, "feature/x", "Fix PROJ-1", ""),
			wantReason: ReasonNotProductionBranch,
		},
		{
			name:       "Empty base branch",
			pr:         models.PullRequestRecord{Title: "Fix PROJ-1"},
			wantReason: ReasonNotProductionBranch,
		},
		{
			name:       "Not merged",
			pr:         models.PullRequestRecord{Number: 2, BaseRef: "main", Title: "Fix PROJ-1"},
			wantReason: ReasonNotMerged,
		},
		{
			name:       "No tickets",
			pr:         mergedPR(3, "master", "Bump dependencies", "no references here proj-1"),
			wantReason: ReasonNoTickets,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			setter := &fakeSetter{}
			handler := NewMergeHandler(setter, config.DefaultProductionBranches)

			result := handler.HandleMerge(context.Background(), tc.pr, "u1")

			assert.Equal(t, models.MergeResult{Status: models.MergeSkipped, Reason: tc.wantReason}, result)
			assert.Empty(t, setter.calls)
		})
	}
}

func TestHandleMergeSingleTicket(t *testing.T) {
	setter := &fakeSetter{}
	handler := NewMergeHandler(setter, config.DefaultProductionBranches)

	result := handler.HandleMerge(context.Background(), mergedPR(5, "main", "Fix PROJ-1", ""), "u1")

	require.Len(t, setter.calls, 1)
	assert.Equal(t, setterCall{
		ticketID: "PROJ-1",
		status:   StatusDevDone,
		userID:   "u1",
		comment:  "PR #5 merged to main. Changes: Fix PROJ-1",
	}, setter.calls[0])

	assert.Equal(t, models.MergeCompleted, result.Status)
	require.NotNil(t, result.PRNumber)
	assert.Equal(t, 5, *result.PRNumber)
	assert.Equal(t, []models.TicketUpdate{{TicketID: "PROJ-1", Updated: true}}, result.TicketsUpdated)
}

func TestHandleMergePartialFailure(t *testing.T) {
	setter := &fakeSetter{results: map[string]UpdateResult{
		"OPS-2": {Reason: ReasonNoMatchingTransition},
	}}
	handler := NewMergeHandler(setter, config.DefaultProductionBranches)

	pr := mergedPR(9, "prod", "PROJ-1: new login", "Also fixes OPS-2 and PROJ-1")
	result := handler.HandleMerge(context.Background(), pr, "u1")

	assert.Equal(t, models.MergeCompleted, result.Status)
	assert.Equal(t, []models.TicketUpdate{
		{TicketID: "OPS-2", Updated: false, Reason: string(ReasonNoMatchingTransition)},
		{TicketID: "PROJ-1", Updated: true},
	}, result.TicketsUpdated)
	assert.Len(t, setter.calls, 2)
}

func TestHandleMergeCustomBranches(t *testing.T) {
	setter := &fakeSetter{}
	handler := NewMergeHandler(setter, []string{"release"})

	result := handler.HandleMerge(context.Background(), mergedPR(1, "main", "PROJ-1", ""), "u1")
	assert.Equal(t, ReasonNotProductionBranch, result.Reason)

	result = handler.HandleMerge(context.Background(), mergedPR(1, "release", "PROJ-1", ""), "u1")
	assert.Equal(t, models.MergeCompleted, result.Status)
}

func TestHandleMergePayload(t *testing.T) {
	setter := &fakeSetter{}
	handler := NewMergeHandler(setter, config.DefaultProductionBranches)

	raw := map[string]any{
		"number":    float64(12),
		"title":     "Fix PROJ-1",
		"body":      nil,
		"merged_at": "2024-05-01T10:00:00Z",
		"base":      map[string]any{"ref": "main"},
	}

	result := handler.HandleMergePayload(context.Background(), raw, "u1")
	assert.Equal(t, models.MergeCompleted, result.Status)
	require.NotNil(t, result.PRNumber)
	assert.Equal(t, 12, *result.PRNumber)
	require.Len(t, setter.calls, 1)
	assert.Equal(t, "PROJ-1", setter.calls[0].ticketID)

	result = handler.HandleMergePayload(context.Background(), map[string]any{}, "u1")
	assert.Equal(t, ReasonNotProductionBranch, result.Reason)
}

func TestHandleMergeRecoversFromPanic(t *testing.T) {
	handler := NewMergeHandler(&fakeSetter{panics: true}, config.DefaultProductionBranches)

	var result models.MergeResult
	assert.NotPanics(t, func() {
		result = handler.HandleMerge(context.Background(), mergedPR(3, "main", "PROJ-1", ""), "u1")
	})
	assert.Equal(t, models.MergeSkipped, result.Status)
	assert.Equal(t, ReasonInternalError, result.Reason)
}

func TestHandleMergePayloadWithoutNumber(t *testing.T) {
	handler := NewMergeHandler(&fakeSetter{}, config.DefaultProductionBranches)

	raw := map[string]any{
		"title":     "Fix PROJ-1",
		"merged_at": "2024-05-01T10:00:00Z",
		"base":      map[string]any{"ref": "main"},
	}
	result := handler.HandleMergePayload(context.Background(), raw, "u1")
	assert.Equal(t, models.MergeCompleted, result.Status)
	require.NotNil(t, result.PRNumber)
	assert.Equal(t, 0, *result.PRNumber)

	delete(raw, "merged_at")
	result = handler.HandleMergePayload(context.Background(), raw, "u1")
	assert.Equal(t, ReasonNotMerged, result.Reason)
	assert.Nil(t, result.PRNumber)
}
