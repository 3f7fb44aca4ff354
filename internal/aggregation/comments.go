// internal/aggregation/comments.go
package aggregation

import (
	"sort"
	"strings"
	"time"
)

// Comment ranking is keyword triage, not sentiment analysis: first matching
// lexicon tier wins on a case-insensitive substring check, English only, no
// negation handling ("not excellent" scores as positive). Report consumers
// depend on this exact ordering, so it stays naive on purpose.

type Comment struct {
	Text        string    `json:"text"`
	SubmittedAt time.Time `json:"submitted_at"`
}

type RankedComment struct {
	Comment
	Sentiment  int `json:"sentiment"`
	Importance int `json:"importance"`
	Length     int `json:"length"`
	Composite  int `json:"composite"`
}

var sentimentTiers = []struct {
	score int
	words []string
}{
	{5, []string{"excellent", "outstanding", "exceptional", "amazing", "fantastic", "brilliant"}},
	{4, []string{"good", "great", "helpful", "useful", "effective", "clear", "engaging"}},
	{2, []string{"poor", "bad", "boring", "unhelpful", "confusing", "difficult to follow"}},
	{1, []string{"terrible", "worst", "horrible", "useless", "awful", "waste"}},
}

const sentimentNeutral = 3

var urgencyWords = []string{"urgent", "immediately", "must", "critical", "asap", "needs to"}
var suggestionWords = []string{"suggest", "recommend", "should", "could", "consider", "maybe"}

func sentimentScore(text string) int {
	lower := strings.ToLower(text)
	for _, tier := range sentimentTiers {
		for _, w := range tier.words {
			if strings.Contains(lower, w) {
				return tier.score
			}
		}
	}
	return sentimentNeutral
}

func importanceScore(text string) int {
	lower := strings.ToLower(text)
	for _, w := range urgencyWords {
		if strings.Contains(lower, w) {
			return 3
		}
	}
	for _, w := range suggestionWords {
		if strings.Contains(lower, w) {
			return 2
		}
	}
	return 1
}

func lengthScore(text string) int {
	switch {
	case len(text) > 200:
		return 3
	case len(text) > 100:
		return 2
	default:
		return 1
	}
}

// RankComments orders comments by composite score descending, most recent
// first on ties.
func RankComments(comments []Comment) []RankedComment {
	ranked := make([]RankedComment, 0, len(comments))
	for _, c := range comments {
		rc := RankedComment{
			Comment:    c,
			Sentiment:  sentimentScore(c.Text),
			Importance: importanceScore(c.Text),
			Length:     lengthScore(c.Text),
		}
		rc.Composite = rc.Sentiment + rc.Importance + rc.Length
		ranked = append(ranked, rc)
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Composite != ranked[j].Composite {
			return ranked[i].Composite > ranked[j].Composite
		}
		return ranked[i].SubmittedAt.After(ranked[j].SubmittedAt)
	})
	return ranked
}
