package models

import (
	"database/sql/driver"
	"fmt"
	"strconv"
	"time"
)

// Scope is one eligibility rule dimension: either Any (stored as NULL, the
// wildcard) or a specific value. The SQL convention `col IS NULL OR
// col = ?` is easy to misread as "no rows match", so the wildcard is an
// explicit variant here instead of a bare nullable column.
type Scope struct {
	val int64
	any bool
}

func AnyValue() Scope            { return Scope{any: true} }
func Exactly(v int64) Scope      { return Scope{val: v} }
func (s Scope) IsAny() bool      { return s.any }
func (s Scope) Matches(v int64) bool {
	return s.any || s.val == v
}

// Int returns the specific value; ok is false for the wildcard.
func (s Scope) Int() (int64, bool) {
	if s.any {
		return 0, false
	}
	return s.val, true
}

func (s Scope) String() string {
	if s.any {
		return "any"
	}
	return strconv.FormatInt(s.val, 10)
}

// Scan maps a NULL column to the wildcard.
func (s *Scope) Scan(src interface{}) error {
	if src == nil {
		*s = Scope{any: true}
		return nil
	}
	switch v := src.(type) {
	case int64:
		*s = Scope{val: v}
	case []byte:
		n, err := strconv.ParseInt(string(v), 10, 64)
		if err != nil {
			return fmt.Errorf("scope: cannot scan %q: %w", string(v), err)
		}
		*s = Scope{val: n}
	default:
		return fmt.Errorf("scope: cannot scan %T", src)
	}
	return nil
}

func (s Scope) Value() (driver.Value, error) {
	if s.any {
		return nil, nil
	}
	return s.val, nil
}

// StudentContext is the already-authorized organizational context a caller
// passes in. All fields are required; the engine never consults session
// state to fill them.
type StudentContext struct {
	DepartmentID int64 `json:"department_id"`
	BatchID      int64 `json:"batch_id"`
	YearOfStudy  int64 `json:"year_of_study"`
	Semester     int64 `json:"semester"`
	AcademicYear int64 `json:"academic_year"`
}

// EligibilityRule scopes one instrument. A wildcard dimension matches any
// context value. Multiple rules per instrument are ORed together.
type EligibilityRule struct {
	ID           int64      `db:"id" json:"id"`
	Instrument   string     `db:"instrument" json:"instrument" validate:"required"`
	AcademicYear Scope      `db:"academic_year" json:"academic_year"`
	DepartmentID Scope      `db:"department_id" json:"department_id"`
	BatchID      Scope      `db:"batch_id" json:"batch_id"`
	YearOfStudy  Scope      `db:"year_of_study" json:"year_of_study"`
	Semester     Scope      `db:"semester" json:"semester"`
	Active       bool       `db:"is_active" json:"is_active"`
	StartDate    *time.Time `db:"start_date" json:"start_date,omitempty"`
	EndDate      *time.Time `db:"end_date" json:"end_date,omitempty"`
}

// MatchesContext reports whether every rule dimension accepts the context.
func (r EligibilityRule) MatchesContext(ctx StudentContext) bool {
	return r.AcademicYear.Matches(ctx.AcademicYear) &&
		r.DepartmentID.Matches(ctx.DepartmentID) &&
		r.BatchID.Matches(ctx.BatchID) &&
		r.YearOfStudy.Matches(ctx.YearOfStudy) &&
		r.Semester.Matches(ctx.Semester)
}

// InWindow reports whether now falls inside the rule's optional date window.
// An unset bound is open-ended on that side.
func (r EligibilityRule) InWindow(now time.Time) bool {
	if r.StartDate != nil && now.Before(*r.StartDate) {
		return false
	}
	if r.EndDate != nil && now.After(*r.EndDate) {
		return false
	}
	return true
}
