// internal/eligibility/resolver.go
package eligibility

import (
	"sort"
	"time"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/campuspulse/semla/internal/metrics"
	"github.com/campuspulse/semla/internal/models"
)

// RuleSource is the slice of storage the resolver needs.
type RuleSource interface {
	FetchEligibilityRules(instrument string) ([]models.EligibilityRule, error)
	ListInstruments() ([]string, error)
}

// Resolver decides which instruments are currently collectible for a
// student context. Resolution is fail-open: no configuration at all means
// open, and a storage failure resolves to open with a logged error and a
// metric increment instead of a user-facing failure. Availability over
// strict gating is a product decision, not an oversight.
type Resolver struct {
	rules RuleSource
	now   func() time.Time

	ExitSurveyInstrument string
	TerminalYear         int64
	TerminalSemester     int64
	KnownInstruments     []string
}

func NewResolver(rules RuleSource, exitInstrument string, terminalYear, terminalSemester int64, known []string) *Resolver {
	return &Resolver{
		rules:                rules,
		now:                  time.Now,
		ExitSurveyInstrument: exitInstrument,
		TerminalYear:         terminalYear,
		TerminalSemester:     terminalSemester,
		KnownInstruments:     known,
	}
}

// WithClock fixes the resolver's notion of "today". Tests use this.
func (r *Resolver) WithClock(now func() time.Time) *Resolver {
	r.now = now
	return r
}

// IsOpen reports whether an instrument accepts submissions from this
// context. Open iff at least one active, date-valid rule matches every
// context dimension, with wildcards matching anything. An instrument with
// no rules at all is open; an instrument whose rules are all inactive or
// expired is closed.
func (r *Resolver) IsOpen(instrument string, ctx models.StudentContext) bool {
	rules, err := r.rules.FetchEligibilityRules(instrument)
	if err != nil {
		logger.Error.Printf("Eligibility fetch failed for %s, resolving open: %v", instrument, err)
		metrics.EligibilityFailOpenTotal.WithLabelValues(instrument).Inc()
		return true
	}

	if len(rules) == 0 {
		logger.Debug.Printf("No eligibility rules for %s, open by default", instrument)
		return true
	}

	now := r.now()
	for _, rule := range rules {
		if !rule.Active || !rule.InWindow(now) {
			continue
		}
		if rule.MatchesContext(ctx) {
			return true
		}
	}
	return false
}

// ListOpenInstruments evaluates every known instrument in one pass. The
// known set is the union of configured names and names present in storage,
// so an instrument configured but never scoped still shows up as open.
func (r *Resolver) ListOpenInstruments(ctx models.StudentContext) []string {
	known := make(map[string]bool, len(r.KnownInstruments))
	for _, name := range r.KnownInstruments {
		known[name] = true
	}

	stored, err := r.rules.ListInstruments()
	if err != nil {
		logger.Error.Printf("Instrument listing failed, using configured set only: %v", err)
		metrics.EligibilityFailOpenTotal.WithLabelValues("_list").Inc()
	} else {
		for _, name := range stored {
			known[name] = true
		}
	}

	var open []string
	for name := range known {
		if r.IsOpen(name, ctx) {
			open = append(open, name)
		}
	}
	sort.Strings(open)
	return open
}

// ShouldShowExitSurvey gates the exit survey on the configured terminal
// cohort on top of regular eligibility.
func (r *Resolver) ShouldShowExitSurvey(ctx models.StudentContext) bool {
	if ctx.YearOfStudy != r.TerminalYear || ctx.Semester != r.TerminalSemester {
		return false
	}
	return r.IsOpen(r.ExitSurveyInstrument, ctx)
}
