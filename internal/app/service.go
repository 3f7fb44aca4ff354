package app

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/campuspulse/semla/internal/aggregation"
	"github.com/campuspulse/semla/internal/eligibility"
	"github.com/campuspulse/semla/internal/metrics"
	"github.com/campuspulse/semla/internal/models"
	"github.com/campuspulse/semla/internal/store"
)

// Service is the thin orchestration layer: it wires storage, the
// eligibility resolver, and the aggregation functions together and shapes
// results for external renderers. No averaging or gating rules live here.
type Service struct {
	Config   *Config
	Store    store.FeedbackStore
	Auth     *Auth
	Resolver *eligibility.Resolver
}

func NewService(configPath string) (*Service, error) {
	config, err := LoadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	feedbackStore, err := NewStore(config.Database.DSN, config.Database.MigrationsDir)
	if err != nil {
		return nil, fmt.Errorf("failed to init store: %w", err)
	}

	auth, err := NewAuth(config)
	if err != nil {
		return nil, fmt.Errorf("failed to init auth: %w", err)
	}

	resolver := eligibility.NewResolver(
		feedbackStore,
		config.Eligibility.ExitSurveyInstrument,
		config.Eligibility.TerminalYear,
		config.Eligibility.TerminalSemester,
		config.Eligibility.Instruments,
	)

	return &Service{
		Config:   config,
		Store:    feedbackStore,
		Auth:     auth,
		Resolver: resolver,
	}, nil
}

// Report is the shaped structure handed to an external renderer.
type Report struct {
	GeneratedAt time.Time                   `json:"generated_at"`
	GroupBy     []models.Dimension          `json:"group_by"`
	Rows        []models.AggregateRow       `json:"rows"`
	Comments    []aggregation.RankedComment `json:"comments"`
}

// InstrumentAvailability is the dashboard view of what a student can
// currently submit.
type InstrumentAvailability struct {
	Open           []string `json:"open"`
	ShowExitSurvey bool     `json:"show_exit_survey"`
}

func (s *Service) ValidateAuthAndStudent(r *http.Request, student string) error {
	if !s.Config.Server.EnableAuth {
		return nil
	}

	authHeader := r.Header.Get(s.Auth.tokenHeader)
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return fmt.Errorf("Invalid authorization header format")
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")

	return s.Auth.ValidateToken(r.Context(), student, token)
}

func (s *Service) ValidateHeaders(headers map[string][]string) bool {
	for _, required := range s.Config.API.RequiredHeaders {
		value := headers[http.CanonicalHeaderKey(required.Name)]
		if len(value) == 0 || !strings.EqualFold(value[0], required.Value) {
			return false
		}
	}
	return true
}

// SubmitFeedback validates a submission against the currently active
// statements, derives its averages, and persists the record together with
// every rating in one transaction. An incomplete submission is rejected and
// nothing persists.
func (s *Service) SubmitFeedback(record *models.FeedbackRecord, ratings []models.Rating) (int64, error) {
	if err := record.Validate(); err != nil {
		metrics.RejectedSubmissionsTotal.WithLabelValues("invalid_record").Inc()
		return 0, fmt.Errorf("invalid record: %w", err)
	}

	active, err := s.Store.FetchStatements(true)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch statements: %w", err)
	}

	avgs, err := aggregation.ComputeRecordAverages(ratings, active)
	if err != nil {
		var incomplete *aggregation.IncompleteSubmissionError
		if errors.As(err, &incomplete) {
			metrics.RejectedSubmissionsTotal.WithLabelValues("incomplete").Inc()
		}
		return 0, err
	}
	record.SetAverages(avgs)

	if record.SubmittedAt.IsZero() {
		record.SubmittedAt = time.Now().UTC()
	}

	recordID, err := s.Store.InsertRecordAndRatings(record, ratings)
	if err != nil {
		return 0, fmt.Errorf("failed to persist submission: %w", err)
	}

	department := strconv.FormatInt(record.DepartmentID, 10)
	metrics.SubmissionsTotal.WithLabelValues(
		department,
		strconv.FormatInt(record.Semester, 10),
	).Inc()
	metrics.CumulativeRatingHistogram.WithLabelValues(department).Observe(record.CumulativeAvg)

	return recordID, nil
}

// OpenInstruments evaluates every known instrument for one context.
func (s *Service) OpenInstruments(ctx models.StudentContext) InstrumentAvailability {
	return InstrumentAvailability{
		Open:           s.Resolver.ListOpenInstruments(ctx),
		ShowExitSurvey: s.Resolver.ShouldShowExitSurvey(ctx),
	}
}

// BuildReport fetches records for the filter and rolls them up along the
// given dimensions. Zero matching records yields an empty report, not an
// error.
func (s *Service) BuildReport(filter models.RecordFilter, groupBy []models.Dimension) (*Report, error) {
	records, err := s.Store.FetchRecords(filter)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch records: %w", err)
	}

	var comments []aggregation.Comment
	for _, r := range records {
		if r.Comment != "" {
			comments = append(comments, aggregation.Comment{
				Text:        r.Comment,
				SubmittedAt: r.SubmittedAt,
			})
		}
	}

	return &Report{
		GeneratedAt: time.Now().UTC(),
		GroupBy:     groupBy,
		Rows:        aggregation.Aggregate(records, groupBy),
		Comments:    aggregation.RankComments(comments),
	}, nil
}

// FacultyReport summarizes one faculty member's offerings in one academic
// year, split per subject, semester and section.
func (s *Service) FacultyReport(facultyID, academicYear int64) (*Report, error) {
	return s.BuildReport(
		models.RecordFilter{FacultyID: &facultyID, AcademicYear: &academicYear},
		[]models.Dimension{models.DimSubject, models.DimSemester, models.DimSection},
	)
}

// SubjectReport compares every offering of one subject in one academic
// year across faculty and sections.
func (s *Service) SubjectReport(subjectID, academicYear int64) (*Report, error) {
	return s.BuildReport(
		models.RecordFilter{SubjectID: &subjectID, AcademicYear: &academicYear},
		[]models.Dimension{models.DimFaculty, models.DimSection},
	)
}

// DepartmentReport rolls one department's year up per subject and semester.
func (s *Service) DepartmentReport(departmentID, academicYear int64) (*Report, error) {
	return s.BuildReport(
		models.RecordFilter{DepartmentID: &departmentID, AcademicYear: &academicYear},
		[]models.Dimension{models.DimSubject, models.DimSemester},
	)
}

// BatchReport tracks one batch across academic years and semesters.
func (s *Service) BatchReport(batchID int64) (*Report, error) {
	return s.BuildReport(
		models.RecordFilter{BatchID: &batchID},
		[]models.Dimension{models.DimAcademicYear, models.DimSemester},
	)
}

func (s *Service) Close() error {
	var errs []error

	if err := s.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("store: %w", err))
	}
	if err := s.Auth.Close(); err != nil {
		errs = append(errs, fmt.Errorf("auth: %w", err))
	}

	if len(errs) > 0 {
		return fmt.Errorf("errors while closing: %v", errs)
	}
	return nil
}
