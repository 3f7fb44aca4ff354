// internal/aggregation/aggregator.go
package aggregation

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/campuspulse/semla/internal/models"
)

// Rating status bands. Lower bounds are inclusive.
const (
	StatusExcellent    = "Excellent"
	StatusVeryGood     = "Very Good"
	StatusGood         = "Good"
	StatusSatisfactory = "Satisfactory"
	StatusNeedsWork    = "Needs Improvement"
)

// IncompleteSubmissionError rejects a submission that cannot produce valid
// averages: a missing rating for an active statement, an out-of-range score,
// a duplicate, or a rating against an unknown/inactive statement.
type IncompleteSubmissionError struct {
	MissingStatements []int64
	InvalidScores     []int64
	UnknownStatements []int64
	DuplicateRatings  []int64
}

func (e *IncompleteSubmissionError) Error() string {
	var parts []string
	if len(e.MissingStatements) > 0 {
		parts = append(parts, fmt.Sprintf("missing ratings for statements %v", e.MissingStatements))
	}
	if len(e.InvalidScores) > 0 {
		parts = append(parts, fmt.Sprintf("scores out of range for statements %v", e.InvalidScores))
	}
	if len(e.UnknownStatements) > 0 {
		parts = append(parts, fmt.Sprintf("ratings for unknown or inactive statements %v", e.UnknownStatements))
	}
	if len(e.DuplicateRatings) > 0 {
		parts = append(parts, fmt.Sprintf("duplicate ratings for statements %v", e.DuplicateRatings))
	}
	return "incomplete submission: " + strings.Join(parts, "; ")
}

func (e *IncompleteSubmissionError) empty() bool {
	return len(e.MissingStatements) == 0 &&
		len(e.InvalidScores) == 0 &&
		len(e.UnknownStatements) == 0 &&
		len(e.DuplicateRatings) == 0
}

// roundHalfUp2 rounds to two decimals, half up. Done in decimal space: the
// float64 nearest to 4.565 is 4.5649…, so scaling and math.Round would land
// on 4.56 and violate the documented rounding mode.
func roundHalfUp2(d decimal.Decimal) float64 {
	f, _ := d.Round(2).Float64()
	return f
}

func meanOfInts(sum, n int64) float64 {
	return roundHalfUp2(decimal.NewFromInt(sum).Div(decimal.NewFromInt(n)))
}

// ComputeRecordAverages derives per-category and cumulative means for one
// submission against the set of statements active at submission time.
//
// The cumulative average is the mean of every individual rating, NOT the
// mean of the category means. The two diverge whenever categories carry
// unequal statement counts, and reports depend on the former.
func ComputeRecordAverages(ratings []models.Rating, active []models.Statement) (models.RecordAverages, error) {
	categoryOf := make(map[int64]models.Category, len(active))
	for _, st := range active {
		if !st.Active {
			continue
		}
		categoryOf[st.ID] = st.Category
	}

	subErr := &IncompleteSubmissionError{}

	seen := make(map[int64]bool, len(ratings))
	catSum := make(map[models.Category]int64)
	catCount := make(map[models.Category]int64)
	var total, count int64

	for _, r := range ratings {
		cat, known := categoryOf[r.StatementID]
		if !known {
			subErr.UnknownStatements = append(subErr.UnknownStatements, r.StatementID)
			continue
		}
		if seen[r.StatementID] {
			subErr.DuplicateRatings = append(subErr.DuplicateRatings, r.StatementID)
			continue
		}
		seen[r.StatementID] = true
		if r.Score < 1 || r.Score > 5 {
			subErr.InvalidScores = append(subErr.InvalidScores, r.StatementID)
			continue
		}
		catSum[cat] += int64(r.Score)
		catCount[cat]++
		total += int64(r.Score)
		count++
	}

	for id := range categoryOf {
		if !seen[id] {
			subErr.MissingStatements = append(subErr.MissingStatements, id)
		}
	}

	if !subErr.empty() {
		sort.Slice(subErr.MissingStatements, func(i, j int) bool {
			return subErr.MissingStatements[i] < subErr.MissingStatements[j]
		})
		return models.RecordAverages{}, subErr
	}

	avgs := models.RecordAverages{ByCategory: make(map[models.Category]float64)}
	for cat, n := range catCount {
		avgs.ByCategory[cat] = meanOfInts(catSum[cat], n)
	}
	if count > 0 {
		avgs.Cumulative = meanOfInts(total, count)
	}
	return avgs, nil
}

// ClassifyStatus maps a mean rating onto its report band.
func ClassifyStatus(mean float64) string {
	switch {
	case mean >= 4.5:
		return StatusExcellent
	case mean >= 4.0:
		return StatusVeryGood
	case mean >= 3.5:
		return StatusGood
	case mean >= 3.0:
		return StatusSatisfactory
	default:
		return StatusNeedsWork
	}
}

type group struct {
	key     map[models.Dimension]string
	records []*models.FeedbackRecord
}

// Aggregate rolls records up along the given dimensions. Per group, category
// means are means of the per-record category averages: each record already
// represents one student's complete view, so two-level averaging is the
// intended weighting here, unlike the single-level policy of
// ComputeRecordAverages. Empty input yields an empty, non-error result.
func Aggregate(records []models.FeedbackRecord, groupBy []models.Dimension) []models.AggregateRow {
	if len(records) == 0 {
		return []models.AggregateRow{}
	}

	groups := make(map[string]*group)
	var order []string
	for i := range records {
		r := &records[i]
		parts := make([]string, 0, len(groupBy))
		key := make(map[models.Dimension]string, len(groupBy))
		for _, d := range groupBy {
			v := r.DimensionValue(d)
			key[d] = v
			parts = append(parts, string(d)+"="+v)
		}
		ck := strings.Join(parts, "|")
		g, ok := groups[ck]
		if !ok {
			g = &group{key: key}
			groups[ck] = g
			order = append(order, ck)
		}
		g.records = append(g.records, r)
	}
	sort.Strings(order)

	rows := make([]models.AggregateRow, 0, len(order))
	for _, ck := range order {
		g := groups[ck]
		rows = append(rows, summarize(g))
	}
	return rows
}

func summarize(g *group) models.AggregateRow {
	row := models.AggregateRow{
		Key:           g.key,
		Count:         len(g.records),
		CategoryMeans: make(map[models.Category]float64),
	}

	for _, cat := range models.AllCategories {
		sum := decimal.Zero
		var n int64
		for _, r := range g.records {
			if v, ok := r.CategoryAvg(cat); ok {
				sum = sum.Add(decimal.NewFromFloat(v))
				n++
			}
		}
		if n > 0 {
			row.CategoryMeans[cat] = roundHalfUp2(sum.Div(decimal.NewFromInt(n)))
		}
	}

	cumSum := decimal.Zero
	row.Min = g.records[0].CumulativeAvg
	row.Max = g.records[0].CumulativeAvg
	for _, r := range g.records {
		cumSum = cumSum.Add(decimal.NewFromFloat(r.CumulativeAvg))
		if r.CumulativeAvg < row.Min {
			row.Min = r.CumulativeAvg
		}
		if r.CumulativeAvg > row.Max {
			row.Max = r.CumulativeAvg
		}
	}
	row.CumulativeMean = roundHalfUp2(cumSum.Div(decimal.NewFromInt(int64(len(g.records)))))
	row.Status = ClassifyStatus(row.CumulativeMean)
	return row
}
