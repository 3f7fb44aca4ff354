package models

import (
	"strconv"
	"time"
)

// Dimension names a rollup axis for aggregate statistics.
type Dimension string

const (
	DimSubject      Dimension = "subject"
	DimFaculty      Dimension = "faculty"
	DimSection      Dimension = "section"
	DimSemester     Dimension = "semester"
	DimBatch        Dimension = "batch"
	DimAcademicYear Dimension = "academic_year"
	DimDepartment   Dimension = "department"
)

// DimensionValue extracts a record's value along one axis, as a string so
// numeric and textual dimensions key the same way.
func (r *FeedbackRecord) DimensionValue(d Dimension) string {
	switch d {
	case DimSubject:
		return strconv.FormatInt(r.SubjectID, 10)
	case DimFaculty:
		return strconv.FormatInt(r.FacultyID, 10)
	case DimSection:
		return r.Section
	case DimSemester:
		return strconv.FormatInt(r.Semester, 10)
	case DimBatch:
		return strconv.FormatInt(r.BatchID, 10)
	case DimAcademicYear:
		return strconv.FormatInt(r.AcademicYear, 10)
	case DimDepartment:
		return strconv.FormatInt(r.DepartmentID, 10)
	}
	return ""
}

// RecordFilter narrows a record fetch. Nil fields are not filtered on.
type RecordFilter struct {
	SubjectID    *int64
	FacultyID    *int64
	DepartmentID *int64
	BatchID      *int64
	AcademicYear *int64
	Semester     *int64
	Section      *string
	From         *time.Time
	To           *time.Time
}

// AggregateRow is one derived rollup group. It is always recomputed at query
// time and never persisted. A category absent from CategoryMeans had no data
// in any record of the group.
type AggregateRow struct {
	Key            map[Dimension]string `json:"key"`
	Count          int                  `json:"count"`
	CategoryMeans  map[Category]float64 `json:"category_means"`
	CumulativeMean float64              `json:"cumulative_mean"`
	Min            float64              `json:"min"`
	Max            float64              `json:"max"`
	Status         string               `json:"status"`
}
