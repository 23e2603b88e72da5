package github

import (
	"encoding/json"
	"math"
	"strconv"
	"time"

	"github.com/danielolaszy/covalynce/pkg/models"
	"github.com/google/go-github/v41/github"
)

// NormalizePayload builds a PullRequestRecord from a loosely typed pull
// request payload, such as a decoded webhook body. Missing or mistyped
// fields fall back to zero values; the function never panics.
func NormalizePayload(raw map[string]any) models.PullRequestRecord {
	return models.PullRequestRecord{
		Number:   intField(raw, "number"),
		Title:    stringField(raw, "title"),
		Body:     stringField(raw, "body"),
		MergedAt: timeField(raw, "merged_at"),
		BaseRef:  stringField(mapField(raw, "base"), "ref"),
		HeadRef:  stringField(mapField(raw, "head"), "ref"),
		Commits:  intField(raw, "commits"),
		Author:   stringField(mapField(raw, "user"), "login"),
	}
}

// FromPullRequest builds a PullRequestRecord from a typed go-github value.
// A nil pull request yields the zero record.
func FromPullRequest(pr *github.PullRequest) models.PullRequestRecord {
	if pr == nil {
		return models.PullRequestRecord{}
	}

	var mergedAt *time.Time
	if pr.MergedAt != nil && !pr.MergedAt.IsZero() {
		t := *pr.MergedAt
		mergedAt = &t
	}

	return models.PullRequestRecord{
		Number:   pr.GetNumber(),
		Title:    pr.GetTitle(),
		Body:     pr.GetBody(),
		MergedAt: mergedAt,
		BaseRef:  pr.GetBase().GetRef(),
		HeadRef:  pr.GetHead().GetRef(),
		Commits:  pr.GetCommits(),
		Author:   pr.GetUser().GetLogin(),
	}
}

func mapField(m map[string]any, key string) map[string]any {
	if m == nil {
		return nil
	}
	v, _ := m[key].(map[string]any)
	return v
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	v, _ := m[key].(string)
	return v
}

func intField(m map[string]any, key string) int {
	if m == nil {
		return 0
	}
	switch v := m[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return 0
		}
		return int(v)
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			return 0
		}
		return int(n)
	case string:
		n, err := strconv.Atoi(v)
		if err != nil {
			return 0
		}
		return n
	default:
		return 0
	}
}

// timeField accepts RFC 3339 strings and time values. Anything else,
// including an unparsable string, is treated as absent.
func timeField(m map[string]any, key string) *time.Time {
	if m == nil {
		return nil
	}
	switch v := m[key].(type) {
	case string:
		if v == "" {
			return nil
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			return nil
		}
		return &t
	case time.Time:
		if v.IsZero() {
			return nil
		}
		return &v
	case *time.Time:
		if v == nil || v.IsZero() {
			return nil
		}
		t := *v
		return &t
	default:
		return nil
	}
}
