// internal/store/sqlite/store.go
package sqlite

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"

	"github.com/campuspulse/semla/internal/models"
	"github.com/campuspulse/semla/internal/store"
)

type SQLiteStore struct {
	store.BaseStore
}

func NewSQLiteStore(dsn, migrationsDir string) (*SQLiteStore, error) {
	db, err := sqlx.Connect("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to sqlite: %w", err)
	}

	// PRAGMAs are per-connection and :memory: databases are too, so the
	// pool must not grow beyond the connection we configure here.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &SQLiteStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			return query
		},
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *SQLiteStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, translateToSQLite)
}

// translateToSQLite converts Postgres SQL to SQLite dialect. Replacements
// are ordered: BIGSERIAL must go before SERIAL and BIGINT.
func translateToSQLite(sql string) string {
	replacements := []struct {
		from, to string
	}{
		{"BIGSERIAL PRIMARY KEY,", "INTEGER PRIMARY KEY AUTOINCREMENT,"},
		{"BIGSERIAL", "INTEGER"},
		{"SERIAL", "INTEGER"},
		{"BIGINT", "INTEGER"},
		{"TIMESTAMPTZ", "TIMESTAMP"},
		{"now()", "CURRENT_TIMESTAMP"},
		{"TRUE", "1"},
		{"FALSE", "0"},
		{"VARCHAR(4)", "TEXT"},
		{"VARCHAR(64)", "TEXT"},
	}
	result := sql
	for _, r := range replacements {
		result = strings.ReplaceAll(result, r.from, r.to)
	}
	return result
}

func (s *SQLiteStore) CreateStatement(statement *models.Statement) error {
	res, err := s.DB.Exec(`
		INSERT INTO statements (text, category, is_active)
		VALUES (?, ?, ?)
	`, statement.Text, statement.Category, statement.Active)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	statement.ID, err = res.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to read statement id: %w", err)
	}
	return nil
}

// InsertRecordAndRatings persists a record and its full rating set as one
// transaction. A submission that fails partway leaves nothing behind.
func (s *SQLiteStore) InsertRecordAndRatings(record *models.FeedbackRecord, ratings []models.Rating) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(`
		INSERT INTO feedback_records
			(student_id, subject_id, faculty_id, department_id, batch_id,
			 academic_year, semester, section, comment, submitted_at,
			 course_avg, teaching_avg, resources_avg, assessment_avg,
			 outcomes_avg, cumulative_avg)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		record.StudentID, record.SubjectID, record.FacultyID,
		record.DepartmentID, record.BatchID, record.AcademicYear,
		record.Semester, record.Section, record.Comment, record.SubmittedAt,
		record.CourseAvg, record.TeachingAvg, record.ResourcesAvg,
		record.AssessmentAvg, record.OutcomesAvg, record.CumulativeAvg,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
	}

	recordID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to read record id: %w", err)
	}

	if err := s.InsertRatingsTx(tx, recordID, ratings); err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit submission: %w", err)
	}

	record.ID = recordID
	return recordID, nil
}
