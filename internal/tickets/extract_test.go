package tickets

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExtract(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "Empty text",
			text:     "",
			expected: []string{},
		},
		{
			name:     "No references",
			text:     "Refactor the login flow",
			expected: []string{},
		},
		{
			name:     "Lowercase ignored and duplicates collapsed",
			text:     "See PROJ-12 and proj-34 and PROJ-12",
			expected: []string{"PROJ-12"},
		},
		{
			name:     "Multiple projects sorted",
			text:     "[WEB-7] fix header, closes API-42 and WEB-3",
			expected: []string{"API-42", "WEB-3", "WEB-7"},
		},
		{
			name:     "Branch style reference",
			text:     "feature/ABC-1-login",
			expected: []string{"ABC-1"},
		},
		{
			name:     "Word boundary required",
			text:     "xABC-1 ABC-1x ABC-",
			expected: []string{},
		},
		{
			name:     "Mixed case prefix is not a reference",
			text:     "Proj-9",
			expected: []string{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.expected, Extract(tc.text))
		})
	}
}

func TestExtractMatchesOnlyReferences(t *testing.T) {
	text := "PROJ-1 PROJ-1 OPS-22 ops-3 A-0 -5 B- release 2024-01"
	refs := Extract(text)

	seen := make(map[string]bool)
	for _, ref := range refs {
		assert.False(t, seen[ref], "duplicate %s", ref)
		seen[ref] = true
	}
	assert.Equal(t, []string{"A-0", "OPS-22", "PROJ-1"}, refs)
}
