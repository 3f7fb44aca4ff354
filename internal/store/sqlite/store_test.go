// internal/store/sqlite/store_test.go
package sqlite

import (
	"database/sql"
	"log"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campuspulse/semla/internal/models"
)

// setupTestDB creates an in-memory SQLite database with the full schema
func setupTestDB(t *testing.T) (*SQLiteStore, func()) {
	s, err := NewSQLiteStore(":memory:", "../../../migrations")
	require.NoError(t, err, "Failed to create store")

	cleanup := func() {
		err := s.Close()
		require.NoError(t, err, "Failed to close database")
	}

	return s, cleanup
}

type testData struct {
	store      *SQLiteStore
	now        time.Time
	statements []models.Statement
}

func setupTestData(t *testing.T) (*testData, func()) {
	s, cleanup := setupTestDB(t)
	now := time.Date(2025, 9, 15, 12, 0, 0, 0, time.UTC)

	statements := []models.Statement{
		{Text: "The syllabus was covered in depth", Category: models.CategoryCourse, Active: true},
		{Text: "The instructor explained concepts clearly", Category: models.CategoryTeaching, Active: true},
		{Text: "Lab equipment was adequate", Category: models.CategoryResources, Active: true},
	}
	for i := range statements {
		err := s.CreateStatement(&statements[i])
		require.NoError(t, err, "Failed to create statement")
	}

	return &testData{
		store:      s,
		now:        now,
		statements: statements,
	}, cleanup
}

func TestMain(m *testing.M) {
	log.Println("Starting SQLite store tests...")
	code := m.Run()
	log.Println("Finished SQLite store tests")
	os.Exit(code)
}

func testRecord(td *testData) models.FeedbackRecord {
	course, teaching := 4.5, 4.0
	return models.FeedbackRecord{
		StudentID:     101,
		SubjectID:     7,
		FacultyID:     3,
		DepartmentID:  5,
		BatchID:       12,
		AcademicYear:  2025,
		Semester:      6,
		Section:       "A",
		Comment:       "good course",
		SubmittedAt:   td.now,
		CourseAvg:     &course,
		TeachingAvg:   &teaching,
		CumulativeAvg: 4.25,
	}
}

func TestStatementOperations(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	t.Run("create assigns id", func(t *testing.T) {
		st := models.Statement{Text: "Assessment was fair", Category: models.CategoryAssessment, Active: true}
		err := td.store.CreateStatement(&st)
		require.NoError(t, err)
		assert.NotZero(t, st.ID)
	})

	t.Run("deactivate hides from active set", func(t *testing.T) {
		err := td.store.DeactivateStatement(td.statements[2].ID)
		require.NoError(t, err)

		active, err := td.store.FetchStatements(true)
		require.NoError(t, err)
		for _, st := range active {
			assert.NotEqual(t, td.statements[2].ID, st.ID)
		}

		all, err := td.store.FetchStatements(false)
		require.NoError(t, err)
		assert.Greater(t, len(all), len(active))
	})

	t.Run("deactivate unknown id", func(t *testing.T) {
		err := td.store.DeactivateStatement(9999)
		assert.ErrorIs(t, err, sql.ErrNoRows)
	})
}

func TestInsertRecordAndRatings(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	record := testRecord(td)
	ratings := []models.Rating{
		{StatementID: td.statements[0].ID, Score: 5},
		{StatementID: td.statements[1].ID, Score: 4},
		{StatementID: td.statements[2].ID, Score: 4},
	}

	recordID, err := td.store.InsertRecordAndRatings(&record, ratings)
	require.NoError(t, err, "Failed to insert record")
	assert.Equal(t, recordID, record.ID)

	t.Run("record round-trip", func(t *testing.T) {
		got, err := td.store.FetchRecords(models.RecordFilter{})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, record.StudentID, got[0].StudentID)
		assert.Equal(t, record.Section, got[0].Section)
		assert.Equal(t, record.CumulativeAvg, got[0].CumulativeAvg)
		require.NotNil(t, got[0].CourseAvg)
		assert.Equal(t, 4.5, *got[0].CourseAvg)
		assert.Nil(t, got[0].OutcomesAvg, "column without data stays NULL")
	})

	t.Run("ratings carry category from join", func(t *testing.T) {
		got, err := td.store.FetchRatingsForRecord(recordID)
		require.NoError(t, err)
		require.Len(t, got, 3)
		assert.Equal(t, models.CategoryCourse, got[0].Category)
		assert.Equal(t, 5, got[0].Score)
	})
}

func TestInsertRecordAndRatings_RollsBackOnBadRating(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	record := testRecord(td)
	ratings := []models.Rating{
		{StatementID: td.statements[0].ID, Score: 5},
		{StatementID: 9999, Score: 4},
	}

	_, err := td.store.InsertRecordAndRatings(&record, ratings)
	require.Error(t, err, "unknown statement must violate the foreign key")

	got, err := td.store.FetchRecords(models.RecordFilter{})
	require.NoError(t, err)
	assert.Empty(t, got, "failed submission must not leave a record behind")
}

func TestFetchRecordsFilters(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	insert := func(faculty, semester int64, section string, submitted time.Time) {
		r := testRecord(td)
		r.FacultyID = faculty
		r.Semester = semester
		r.Section = section
		r.SubmittedAt = submitted
		_, err := td.store.InsertRecordAndRatings(&r, []models.Rating{
			{StatementID: td.statements[0].ID, Score: 4},
		})
		require.NoError(t, err)
	}

	insert(3, 6, "A", td.now)
	insert(3, 6, "B", td.now.Add(time.Hour))
	insert(4, 6, "A", td.now.Add(2*time.Hour))
	insert(3, 5, "A", td.now.Add(3*time.Hour))

	t.Run("by faculty", func(t *testing.T) {
		faculty := int64(3)
		got, err := td.store.FetchRecords(models.RecordFilter{FacultyID: &faculty})
		require.NoError(t, err)
		assert.Len(t, got, 3)
	})

	t.Run("by faculty and semester", func(t *testing.T) {
		faculty, semester := int64(3), int64(6)
		got, err := td.store.FetchRecords(models.RecordFilter{FacultyID: &faculty, Semester: &semester})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("by section", func(t *testing.T) {
		section := "B"
		got, err := td.store.FetchRecords(models.RecordFilter{Section: &section})
		require.NoError(t, err)
		require.Len(t, got, 1)
		assert.Equal(t, "B", got[0].Section)
	})

	t.Run("by time window", func(t *testing.T) {
		from := td.now.Add(30 * time.Minute)
		to := td.now.Add(150 * time.Minute)
		got, err := td.store.FetchRecords(models.RecordFilter{From: &from, To: &to})
		require.NoError(t, err)
		assert.Len(t, got, 2)
	})

	t.Run("ordered by submission time", func(t *testing.T) {
		got, err := td.store.FetchRecords(models.RecordFilter{})
		require.NoError(t, err)
		require.Len(t, got, 4)
		for i := 1; i < len(got); i++ {
			assert.False(t, got[i].SubmittedAt.Before(got[i-1].SubmittedAt))
		}
	})
}

func TestEligibilityRuleOperations(t *testing.T) {
	td, cleanup := setupTestData(t)
	defer cleanup()

	start := td.now.Add(-24 * time.Hour)
	rules := []models.EligibilityRule{
		{
			Instrument:   "regular_feedback",
			AcademicYear: models.AnyValue(),
			DepartmentID: models.Exactly(5),
			BatchID:      models.AnyValue(),
			YearOfStudy:  models.AnyValue(),
			Semester:     models.Exactly(6),
			Active:       true,
			StartDate:    &start,
		},
		{
			Instrument:   "exit_survey",
			AcademicYear: models.AnyValue(),
			DepartmentID: models.AnyValue(),
			BatchID:      models.AnyValue(),
			YearOfStudy:  models.AnyValue(),
			Semester:     models.AnyValue(),
			Active:       true,
		},
	}
	for _, r := range rules {
		require.NoError(t, td.store.CreateEligibilityRule(r))
	}

	t.Run("wildcards survive the NULL round-trip", func(t *testing.T) {
		got, err := td.store.FetchEligibilityRules("regular_feedback")
		require.NoError(t, err)
		require.Len(t, got, 1)

		assert.True(t, got[0].AcademicYear.IsAny())
		assert.True(t, got[0].BatchID.IsAny())
		dept, ok := got[0].DepartmentID.Int()
		require.True(t, ok)
		assert.Equal(t, int64(5), dept)
		sem, ok := got[0].Semester.Int()
		require.True(t, ok)
		assert.Equal(t, int64(6), sem)
		require.NotNil(t, got[0].StartDate)
		assert.Nil(t, got[0].EndDate)
	})

	t.Run("unknown instrument has no rules", func(t *testing.T) {
		got, err := td.store.FetchEligibilityRules("not_a_survey")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("list instruments", func(t *testing.T) {
		got, err := td.store.ListInstruments()
		require.NoError(t, err)
		assert.Equal(t, []string{"exit_survey", "regular_feedback"}, got)
	})
}
