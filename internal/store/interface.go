package store

import (
	"database/sql"
	"fmt"
	"os"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/campuspulse/semla/internal/models"
)

type FeedbackStore interface {
	Close() error
	ApplyMigrations(dir string) error

	FetchEligibilityRules(instrument string) ([]models.EligibilityRule, error)
	ListInstruments() ([]string, error)
	CreateEligibilityRule(rule models.EligibilityRule) error

	FetchStatements(activeOnly bool) ([]models.Statement, error)
	CreateStatement(statement *models.Statement) error
	DeactivateStatement(id int64) error

	FetchRatingsForRecord(recordID int64) ([]models.Rating, error)
	FetchRecords(filter models.RecordFilter) ([]models.FeedbackRecord, error)
	InsertRecordAndRatings(record *models.FeedbackRecord, ratings []models.Rating) (int64, error)
}

// BaseStore provides common functionality for different DB implementations
type BaseStore struct {
	DB        *sqlx.DB
	Converter func(string) string
}

func (s *BaseStore) Close() error {
	if s.DB != nil {
		return s.DB.Close()
	}
	return nil
}

// ApplyMigrations applies SQL migrations from a directory, translating dialect if needed
func (s *BaseStore) ApplyMigrations(dir string, translateSQL func(string) string) error {
	files, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("failed to read migrations directory: %w", err)
	}

	for _, file := range files {
		if !strings.HasSuffix(file.Name(), ".sql") {
			continue
		}

		content, err := os.ReadFile(fmt.Sprintf("%s/%s", dir, file.Name()))
		if err != nil {
			return fmt.Errorf("failed to read migration %s: %w", file.Name(), err)
		}

		sql := string(content)
		if translateSQL != nil {
			sql = translateSQL(sql)
		}

		if _, err := s.DB.Exec(sql); err != nil {
			return fmt.Errorf("failed to apply migration %s: %w", file.Name(), err)
		}
	}

	return nil
}

func (s *BaseStore) FetchEligibilityRules(instrument string) ([]models.EligibilityRule, error) {
	var rules []models.EligibilityRule
	query := s.Converter(`
		SELECT id, instrument, academic_year, department_id, batch_id,
		       year_of_study, semester, is_active, start_date, end_date
		FROM eligibility_rules
		WHERE instrument = ?
		ORDER BY id ASC
	`)

	err := s.DB.Select(&rules, query, instrument)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch eligibility rules: %w", err)
	}
	return rules, nil
}

func (s *BaseStore) ListInstruments() ([]string, error) {
	var instruments []string
	err := s.DB.Select(&instruments, `
		SELECT DISTINCT instrument
		FROM eligibility_rules
		ORDER BY instrument
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list instruments: %w", err)
	}
	return instruments, nil
}

func (s *BaseStore) CreateEligibilityRule(rule models.EligibilityRule) error {
	_, err := s.DB.NamedExec(`
		INSERT INTO eligibility_rules
			(instrument, academic_year, department_id, batch_id,
			 year_of_study, semester, is_active, start_date, end_date)
		VALUES
			(:instrument, :academic_year, :department_id, :batch_id,
			 :year_of_study, :semester, :is_active, :start_date, :end_date)
	`, rule)
	if err != nil {
		return fmt.Errorf("failed to create eligibility rule: %w", err)
	}
	return nil
}

func (s *BaseStore) FetchStatements(activeOnly bool) ([]models.Statement, error) {
	query := `
		SELECT id, text, category, is_active
		FROM statements
	`
	if activeOnly {
		query += ` WHERE is_active = TRUE`
	}
	query += ` ORDER BY id ASC`

	var statements []models.Statement
	err := s.DB.Select(&statements, s.Converter(query))
	if err != nil {
		return nil, fmt.Errorf("failed to fetch statements: %w", err)
	}
	return statements, nil
}

func (s *BaseStore) DeactivateStatement(id int64) error {
	query := s.Converter(`UPDATE statements SET is_active = FALSE WHERE id = ?`)
	res, err := s.DB.Exec(query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate statement: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return sql.ErrNoRows
	}
	return nil
}

func (s *BaseStore) FetchRatingsForRecord(recordID int64) ([]models.Rating, error) {
	var ratings []models.Rating
	query := s.Converter(`
		SELECT r.record_id, r.statement_id, st.category, r.score
		FROM ratings r
		JOIN statements st ON st.id = r.statement_id
		WHERE r.record_id = ?
		ORDER BY r.statement_id ASC
	`)

	err := s.DB.Select(&ratings, query, recordID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch ratings: %w", err)
	}
	return ratings, nil
}

// FetchRecords returns records narrowed by the filter. Nil filter fields
// are left unconstrained.
func (s *BaseStore) FetchRecords(filter models.RecordFilter) ([]models.FeedbackRecord, error) {
	query := `
		SELECT id, student_id, subject_id, faculty_id, department_id, batch_id,
		       academic_year, semester, section, comment, submitted_at,
		       course_avg, teaching_avg, resources_avg, assessment_avg,
		       outcomes_avg, cumulative_avg
		FROM feedback_records
		WHERE 1=1
	`
	var args []interface{}

	addInt := func(column string, v *int64) {
		if v != nil {
			query += " AND " + column + " = ?"
			args = append(args, *v)
		}
	}
	addInt("subject_id", filter.SubjectID)
	addInt("faculty_id", filter.FacultyID)
	addInt("department_id", filter.DepartmentID)
	addInt("batch_id", filter.BatchID)
	addInt("academic_year", filter.AcademicYear)
	addInt("semester", filter.Semester)
	if filter.Section != nil {
		query += " AND section = ?"
		args = append(args, *filter.Section)
	}
	if filter.From != nil {
		query += " AND submitted_at >= ?"
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		query += " AND submitted_at <= ?"
		args = append(args, *filter.To)
	}
	query += " ORDER BY submitted_at ASC, id ASC"

	var records []models.FeedbackRecord
	err := s.DB.Select(&records, s.Converter(query), args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}
	return records, nil
}

// InsertRatingsTx writes the rating set for a record inside the caller's
// transaction. Shared by the dialect-specific InsertRecordAndRatings.
func (s *BaseStore) InsertRatingsTx(tx *sqlx.Tx, recordID int64, ratings []models.Rating) error {
	query := s.Converter(`
		INSERT INTO ratings (record_id, statement_id, score)
		VALUES (?, ?, ?)
	`)
	for _, r := range ratings {
		if _, err := tx.Exec(query, recordID, r.StatementID, r.Score); err != nil {
			return fmt.Errorf("failed to insert rating for statement %d: %w", r.StatementID, err)
		}
	}
	return nil
}
