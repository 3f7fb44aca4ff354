package models

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// FeedbackRecord is one completed submission: who submitted, which
// subject-offering was evaluated, and the precomputed averages. Category
// averages are pointers because a category with no active statements at
// submission time has no average at all, which is not the same as zero.
type FeedbackRecord struct {
	ID           int64     `db:"id" json:"id"`
	StudentID    int64     `db:"student_id" json:"student_id" validate:"required"`
	SubjectID    int64     `db:"subject_id" json:"subject_id" validate:"required"`
	FacultyID    int64     `db:"faculty_id" json:"faculty_id" validate:"required"`
	DepartmentID int64     `db:"department_id" json:"department_id" validate:"required"`
	BatchID      int64     `db:"batch_id" json:"batch_id" validate:"required"`
	AcademicYear int64     `db:"academic_year" json:"academic_year" validate:"required"`
	Semester     int64     `db:"semester" json:"semester" validate:"required,min=1,max=8"`
	Section      string    `db:"section" json:"section" validate:"required,max=4"`
	Comment      string    `db:"comment" json:"comment"`
	SubmittedAt  time.Time `db:"submitted_at" json:"submitted_at"`

	CourseAvg     *float64 `db:"course_avg" json:"course_avg,omitempty"`
	TeachingAvg   *float64 `db:"teaching_avg" json:"teaching_avg,omitempty"`
	ResourcesAvg  *float64 `db:"resources_avg" json:"resources_avg,omitempty"`
	AssessmentAvg *float64 `db:"assessment_avg" json:"assessment_avg,omitempty"`
	OutcomesAvg   *float64 `db:"outcomes_avg" json:"outcomes_avg,omitempty"`
	CumulativeAvg float64  `db:"cumulative_avg" json:"cumulative_avg"`
}

// RecordAverages holds the derived per-category and cumulative means for one
// record. A category absent from ByCategory had no ratings to average.
type RecordAverages struct {
	ByCategory map[Category]float64 `json:"by_category"`
	Cumulative float64              `json:"cumulative"`
}

func (r *FeedbackRecord) Validate() error {
	validate := validator.New()
	return validate.Struct(r)
}

// SetAverages copies computed averages onto the record's persisted columns.
func (r *FeedbackRecord) SetAverages(avgs RecordAverages) {
	set := func(c Category) *float64 {
		if v, ok := avgs.ByCategory[c]; ok {
			return &v
		}
		return nil
	}
	r.CourseAvg = set(CategoryCourse)
	r.TeachingAvg = set(CategoryTeaching)
	r.ResourcesAvg = set(CategoryResources)
	r.AssessmentAvg = set(CategoryAssessment)
	r.OutcomesAvg = set(CategoryOutcomes)
	r.CumulativeAvg = avgs.Cumulative
}

// CategoryAvg returns the stored average for one category, or false when the
// record carries no data for it.
func (r *FeedbackRecord) CategoryAvg(c Category) (float64, bool) {
	var p *float64
	switch c {
	case CategoryCourse:
		p = r.CourseAvg
	case CategoryTeaching:
		p = r.TeachingAvg
	case CategoryResources:
		p = r.ResourcesAvg
	case CategoryAssessment:
		p = r.AssessmentAvg
	case CategoryOutcomes:
		p = r.OutcomesAvg
	}
	if p == nil {
		return 0, false
	}
	return *p, true
}
