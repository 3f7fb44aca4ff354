package postgres

import (
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/campuspulse/semla/internal/models"
	"github.com/campuspulse/semla/internal/store"
)

type PostgresStore struct {
	store.BaseStore
}

func NewPostgresStore(dsn, migrationsDir string) (*PostgresStore, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	s := &PostgresStore{BaseStore: store.BaseStore{
		DB: db,
		Converter: func(query string) string {
			out := query
			for i := 1; strings.Contains(out, "?"); i++ {
				out = strings.Replace(out, "?", fmt.Sprintf("$%d", i), 1)
			}
			return out
		},
	}}

	if err := s.ApplyMigrations(migrationsDir); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply migrations: %w", err)
	}

	return s, nil
}

func (s *PostgresStore) ApplyMigrations(dir string) error {
	return s.BaseStore.ApplyMigrations(dir, nil)
}

func (s *PostgresStore) CreateStatement(statement *models.Statement) error {
	err := s.DB.QueryRowx(`
		INSERT INTO statements (text, category, is_active)
		VALUES ($1, $2, $3)
		RETURNING id
	`, statement.Text, statement.Category, statement.Active).Scan(&statement.ID)
	if err != nil {
		return fmt.Errorf("failed to create statement: %w", err)
	}
	return nil
}

// InsertRecordAndRatings persists a record and its full rating set as one
// transaction. A submission that fails partway leaves nothing behind.
func (s *PostgresStore) InsertRecordAndRatings(record *models.FeedbackRecord, ratings []models.Rating) (int64, error) {
	tx, err := s.DB.Beginx()
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	var recordID int64
	err = tx.QueryRowx(`
		INSERT INTO feedback_records
			(student_id, subject_id, faculty_id, department_id, batch_id,
			 academic_year, semester, section, comment, submitted_at,
			 course_avg, teaching_avg, resources_avg, assessment_avg,
			 outcomes_avg, cumulative_avg)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING id
	`,
		record.StudentID, record.SubjectID, record.FacultyID,
		record.DepartmentID, record.BatchID, record.AcademicYear,
		record.Semester, record.Section, record.Comment, record.SubmittedAt,
		record.CourseAvg, record.TeachingAvg, record.ResourcesAvg,
		record.AssessmentAvg, record.OutcomesAvg, record.CumulativeAvg,
	).Scan(&recordID)
	if err != nil {
		return 0, fmt.Errorf("failed to insert record: %w", err)
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
