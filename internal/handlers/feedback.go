package handlers

import (
	"bytes"
	"errors"
	"io"
	"strconv"
	"time"

	"encoding/json"
	"net/http"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/campuspulse/semla/internal/aggregation"
	"github.com/campuspulse/semla/internal/app"
	"github.com/campuspulse/semla/internal/metrics"
	"github.com/campuspulse/semla/internal/models"
)

type FeedbackHandler struct {
	service *app.Service
}

func NewFeedbackHandler(service *app.Service) *FeedbackHandler {
	return &FeedbackHandler{
		service: service,
	}
}

type submissionPayload struct {
	models.FeedbackRecord
	Ratings []models.Rating `json:"ratings"`
}

func (h *FeedbackHandler) HandleSubmitFeedback(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	defer func() {
		duration := time.Since(start).Seconds()
		metrics.APIRequestDuration.WithLabelValues(
			r.URL.Path,
			r.Method,
			"200",
		).Observe(duration)
	}()
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusForbidden)
		return
	}

	student := r.Header.Get(h.service.Config.API.StudentIDHeader)
	if student == "" {
		http.Error(w, "Invalid student id specified", http.StatusUnauthorized)
		return
	}

	if err := h.service.ValidateAuthAndStudent(r, student); err != nil {
		logger.Error.Printf("Auth failed: %v", err)
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		logger.Error.Printf("Failed to read request body: %v", err)
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	logger.Debug.Printf("Received request body: %s", string(body))

	r.Body = io.NopCloser(bytes.NewBuffer(body))

	var payload submissionPayload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	recordID, err := h.service.SubmitFeedback(&payload.FeedbackRecord, payload.Ratings)
	if err != nil {
		var incomplete *aggregation.IncompleteSubmissionError
		if errors.As(err, &incomplete) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnprocessableEntity)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"error":              incomplete.Error(),
				"missing_statements": incomplete.MissingStatements,
				"invalid_scores":     incomplete.InvalidScores,
				"unknown_statements": incomplete.UnknownStatements,
				"duplicate_ratings":  incomplete.DuplicateRatings,
			})
			return
		}
		logger.Error.Printf("Failed to save submission: %v", err)
		http.Error(w, "Failed to save submission", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]interface{}{
		"record_id": recordID,
	})
}

// parseContext reads the five required context fields from query params.
func parseContext(r *http.Request) (models.StudentContext, error) {
	var ctx models.StudentContext
	fields := []struct {
		name string
		dst  *int64
	}{
		{"department_id", &ctx.DepartmentID},
		{"batch_id", &ctx.BatchID},
		{"year_of_study", &ctx.YearOfStudy},
		{"semester", &ctx.Semester},
		{"academic_year", &ctx.AcademicYear},
	}
	for _, f := range fields {
		raw := r.URL.Query().Get(f.name)
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return ctx, errors.New("missing or invalid " + f.name)
		}
		*f.dst = v
	}
	return ctx, nil
}

func (h *FeedbackHandler) HandleOpenInstruments(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	ctx, err := parseContext(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	availability := h.service.OpenInstruments(ctx)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(availability); err != nil {
		logger.Error.Printf("Failed to encode availability: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

// reportFn builds one shaped report from a path id and academic year.
type reportFn func(id, academicYear int64) (*app.Report, error)

func (h *FeedbackHandler) handleReport(w http.ResponseWriter, r *http.Request, idParam string, build reportFn) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	id, err := strconv.ParseInt(r.PathValue(idParam), 10, 64)
	if err != nil {
		logger.Error.Printf("Failed to extract %s from path: %s", idParam, r.URL.Path)
		http.Error(w, "Invalid "+idParam, http.StatusBadRequest)
		return
	}

	academicYear, err := strconv.ParseInt(r.URL.Query().Get("academic_year"), 10, 64)
	if err != nil {
		http.Error(w, "missing or invalid academic_year", http.StatusBadRequest)
		return
	}

	report, err := build(id, academicYear)
	if err != nil {
		logger.Error.Printf("Failed to build report: %v", err)
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Error.Printf("Failed to encode report: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}

func (h *FeedbackHandler) HandleFacultyReport(w http.ResponseWriter, r *http.Request) {
	h.handleReport(w, r, "faculty_id", h.service.FacultyReport)
}

func (h *FeedbackHandler) HandleSubjectReport(w http.ResponseWriter, r *http.Request) {
	h.handleReport(w, r, "subject_id", h.service.SubjectReport)
}

func (h *FeedbackHandler) HandleDepartmentReport(w http.ResponseWriter, r *http.Request) {
	h.handleReport(w, r, "department_id", h.service.DepartmentReport)
}

// HandleBatchReport spans academic years, so unlike the other reports it
// takes no academic_year parameter.
func (h *FeedbackHandler) HandleBatchReport(w http.ResponseWriter, r *http.Request) {
	if !h.service.ValidateHeaders(r.Header) {
		http.Error(w, "these are not the droids you are looking for", http.StatusNotFound)
		return
	}

	batchID, err := strconv.ParseInt(r.PathValue("batch_id"), 10, 64)
	if err != nil {
		http.Error(w, "Invalid batch_id", http.StatusBadRequest)
		return
	}

	report, err := h.service.BatchReport(batchID)
	if err != nil {
		logger.Error.Printf("Failed to build report: %v", err)
		http.Error(w, "Failed to build report", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		logger.Error.Printf("Failed to encode report: %v", err)
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
	}
}
