package aggregation

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRankComments_CompositeBeatsRecency(t *testing.T) {
	t1 := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(2 * time.Hour)

	ranked := RankComments([]Comment{
		{Text: "This is excellent and must be addressed urgently", SubmittedAt: t1},
		{Text: "ok", SubmittedAt: t2},
	})

	require.Len(t, ranked, 2)
	// Older comment wins: sentiment 5 + importance 3 + length 1 = 9
	// against the newer one's 3 + 1 + 1 = 5.
	assert.Equal(t, "This is excellent and must be addressed urgently", ranked[0].Text)
	assert.Equal(t, 9, ranked[0].Composite)
	assert.Equal(t, 5, ranked[1].Composite)
}

func TestRankComments_TieBreakMostRecentFirst(t *testing.T) {
	t1 := time.Date(2025, 9, 1, 10, 0, 0, 0, time.UTC)
	t2 := t1.Add(time.Hour)

	ranked := RankComments([]Comment{
		{Text: "fine", SubmittedAt: t1},
		{Text: "okay", SubmittedAt: t2},
	})

	require.Len(t, ranked, 2)
	assert.Equal(t, ranked[0].Composite, ranked[1].Composite)
	assert.Equal(t, "okay", ranked[0].Text)
}

func TestSentimentScore_FirstMatchingTierWins(t *testing.T) {
	testCases := []struct {
		text     string
		expected int
	}{
		{"An excellent course", 5},
		{"EXCELLENT", 5},
		{"quite good overall", 4},
		{"somewhat boring lectures", 2},
		{"a complete waste of time", 1},
		{"no opinion", 3},
		// Known limitation, preserved on purpose: no negation handling.
		{"not excellent", 5},
		// Tier order decides when tiers collide.
		{"excellent but boring", 5},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, sentimentScore(tc.text), "text %q", tc.text)
	}
}

func TestImportanceScore(t *testing.T) {
	assert.Equal(t, 3, importanceScore("this MUST change"))
	assert.Equal(t, 2, importanceScore("I suggest more examples"))
	assert.Equal(t, 1, importanceScore("nothing to add"))
	// Urgency outranks suggestion when both appear.
	assert.Equal(t, 3, importanceScore("I suggest you fix this immediately"))
}

func TestLengthScore(t *testing.T) {
	assert.Equal(t, 1, lengthScore(strings.Repeat("a", 100)))
	assert.Equal(t, 2, lengthScore(strings.Repeat("a", 101)))
	assert.Equal(t, 2, lengthScore(strings.Repeat("a", 200)))
	assert.Equal(t, 3, lengthScore(strings.Repeat("a", 201)))
}

func TestRankComments_Empty(t *testing.T) {
	assert.Empty(t, RankComments(nil))
}
