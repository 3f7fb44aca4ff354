package eligibility

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/campuspulse/semla/internal/models"
)

type MockRuleSource struct {
	mock.Mock
}

func (m *MockRuleSource) FetchEligibilityRules(instrument string) ([]models.EligibilityRule, error) {
	args := m.Called(instrument)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.EligibilityRule), args.Error(1)
}

func (m *MockRuleSource) ListInstruments() ([]string, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

var testNow = time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

func newTestResolver(src RuleSource) *Resolver {
	r := NewResolver(src, "exit_survey", 4, 8, []string{"regular_feedback", "exit_survey"})
	return r.WithClock(func() time.Time { return testNow })
}

func ctx() models.StudentContext {
	return models.StudentContext{
		DepartmentID: 5,
		BatchID:      12,
		YearOfStudy:  3,
		Semester:     6,
		AcademicYear: 2025,
	}
}

func wildcardRule(instrument string) models.EligibilityRule {
	return models.EligibilityRule{
		Instrument:   instrument,
		AcademicYear: models.AnyValue(),
		DepartmentID: models.AnyValue(),
		BatchID:      models.AnyValue(),
		YearOfStudy:  models.AnyValue(),
		Semester:     models.AnyValue(),
		Active:       true,
	}
}

func TestIsOpen_GlobalWildcardMatchesEverything(t *testing.T) {
	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{wildcardRule("regular_feedback")}, nil)

	r := newTestResolver(src)
	assert.True(t, r.IsOpen("regular_feedback", ctx()))
	src.AssertExpectations(t)
}

func TestIsOpen_PartialWildcard(t *testing.T) {
	rule := wildcardRule("regular_feedback")
	rule.DepartmentID = models.Exactly(5)

	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{rule}, nil)

	r := newTestResolver(src)

	t.Run("matching department, any batch/year/semester", func(t *testing.T) {
		assert.True(t, r.IsOpen("regular_feedback", ctx()))
	})

	t.Run("other department closed", func(t *testing.T) {
		other := ctx()
		other.DepartmentID = 6
		assert.False(t, r.IsOpen("regular_feedback", other))
	})
}

func TestIsOpen_NoRulesAtAllFailsOpen(t *testing.T) {
	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{}, nil)

	r := newTestResolver(src)
	assert.True(t, r.IsOpen("regular_feedback", ctx()),
		"absence of configuration is not a denial")
}

func TestIsOpen_OnlyInactiveOrExpiredRulesCloses(t *testing.T) {
	inactive := wildcardRule("regular_feedback")
	inactive.Active = false

	expired := wildcardRule("regular_feedback")
	past := testNow.Add(-48 * time.Hour)
	expired.EndDate = &past

	notYet := wildcardRule("regular_feedback")
	future := testNow.Add(48 * time.Hour)
	notYet.StartDate = &future

	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{inactive, expired, notYet}, nil)

	r := newTestResolver(src)
	assert.False(t, r.IsOpen("regular_feedback", ctx()),
		"rules exist but none is live, so the instrument is closed")
}

func TestIsOpen_DateWindow(t *testing.T) {
	rule := wildcardRule("regular_feedback")
	start := testNow.Add(-24 * time.Hour)
	end := testNow.Add(24 * time.Hour)
	rule.StartDate = &start
	rule.EndDate = &end

	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{rule}, nil)

	r := newTestResolver(src)
	assert.True(t, r.IsOpen("regular_feedback", ctx()))
}

func TestIsOpen_StorageFailureResolvesOpen(t *testing.T) {
	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return(nil, errors.New("connection refused"))

	r := newTestResolver(src)
	assert.True(t, r.IsOpen("regular_feedback", ctx()),
		"storage failure must not close collection or surface to the caller")
}

func TestIsOpen_AnyMatchingRuleSuffices(t *testing.T) {
	miss := wildcardRule("regular_feedback")
	miss.DepartmentID = models.Exactly(99)
	hit := wildcardRule("regular_feedback")
	hit.BatchID = models.Exactly(12)

	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{miss, hit}, nil)

	r := newTestResolver(src)
	assert.True(t, r.IsOpen("regular_feedback", ctx()))
}

func TestShouldShowExitSurvey(t *testing.T) {
	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "exit_survey").
		Return([]models.EligibilityRule{wildcardRule("exit_survey")}, nil)

	r := newTestResolver(src)

	testCases := []struct {
		name     string
		year     int64
		semester int64
		expected bool
	}{
		{"terminal cohort", 4, 8, true},
		{"final year wrong semester", 4, 7, false},
		{"terminal semester wrong year", 3, 8, false},
		{"early cohort", 1, 2, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := ctx()
			c.YearOfStudy = tc.year
			c.Semester = tc.semester
			assert.Equal(t, tc.expected, r.ShouldShowExitSurvey(c))
		})
	}
}

func TestShouldShowExitSurvey_ClosedInstrument(t *testing.T) {
	rule := wildcardRule("exit_survey")
	rule.Active = false

	src := new(MockRuleSource)
	src.On("FetchEligibilityRules", "exit_survey").
		Return([]models.EligibilityRule{rule}, nil)

	r := newTestResolver(src)
	c := ctx()
	c.YearOfStudy = 4
	c.Semester = 8
	assert.False(t, r.ShouldShowExitSurvey(c),
		"terminal cohort alone is not enough, the instrument must be open")
}

func TestListOpenInstruments(t *testing.T) {
	deptRule := wildcardRule("course_exit_poll")
	deptRule.DepartmentID = models.Exactly(99)

	src := new(MockRuleSource)
	src.On("ListInstruments").Return([]string{"course_exit_poll"}, nil)
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{}, nil)
	src.On("FetchEligibilityRules", "exit_survey").
		Return([]models.EligibilityRule{wildcardRule("exit_survey")}, nil)
	src.On("FetchEligibilityRules", "course_exit_poll").
		Return([]models.EligibilityRule{deptRule}, nil)

	r := newTestResolver(src)
	open := r.ListOpenInstruments(ctx())

	// course_exit_poll is scoped to another department; the configured
	// instruments stay open (no rules and a wildcard respectively).
	assert.Equal(t, []string{"exit_survey", "regular_feedback"}, open)
	src.AssertExpectations(t)
}

func TestListOpenInstruments_ListingFailureUsesConfiguredSet(t *testing.T) {
	src := new(MockRuleSource)
	src.On("ListInstruments").Return(nil, errors.New("connection refused"))
	src.On("FetchEligibilityRules", "regular_feedback").
		Return([]models.EligibilityRule{}, nil)
	src.On("FetchEligibilityRules", "exit_survey").
		Return([]models.EligibilityRule{}, nil)

	r := newTestResolver(src)
	open := r.ListOpenInstruments(ctx())
	assert.Equal(t, []string{"exit_survey", "regular_feedback"}, open)
}
