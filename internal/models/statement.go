package models

import (
	"github.com/go-playground/validator/v10"
)

// Statement is one evaluation prompt. Statements are immutable once ratings
// reference them; deactivation only hides them from new submissions.
type Statement struct {
	ID       int64    `db:"id" json:"id"`
	Text     string   `db:"text" json:"text" validate:"required"`
	Category Category `db:"category" json:"category" validate:"required"`
	Active   bool     `db:"is_active" json:"is_active"`
}

// Rating is one student's score for one statement inside one record.
type Rating struct {
	RecordID    int64    `db:"record_id" json:"-"`
	StatementID int64    `db:"statement_id" json:"statement_id" validate:"required"`
	Category    Category `db:"category" json:"category"`
	Score       int      `db:"score" json:"score" validate:"min=1,max=5"`
}

func (s *Statement) Validate() error {
	if !s.Category.Valid() {
		return &InvalidCategoryError{Category: string(s.Category)}
	}
	validate := validator.New()
	return validate.Struct(s)
}

type InvalidCategoryError struct {
	Category string
}

func (e *InvalidCategoryError) Error() string {
	return "invalid category: " + e.Category
}
