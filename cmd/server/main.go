package main

import (
	"flag"
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/campuspulse/semla/internal/app"
	"github.com/campuspulse/semla/internal/handlers"
)

func main() {
	var configPath = flag.String("config", "config.toml", "Path to config file")
	flag.Parse()

	service, err := app.NewService(*configPath)
	if err != nil {
		logger.Error.Fatalf("Failed to start service: %v", err)
	}
	defer service.Close()

	feedbackHandler := handlers.NewFeedbackHandler(service)

	http.HandleFunc("POST /api/v1/feedback", feedbackHandler.HandleSubmitFeedback)
	http.HandleFunc("GET /api/v1/instruments", feedbackHandler.HandleOpenInstruments)
	http.HandleFunc("GET /api/v1/reports/faculty/{faculty_id}", feedbackHandler.HandleFacultyReport)
	http.HandleFunc("GET /api/v1/reports/subject/{subject_id}", feedbackHandler.HandleSubjectReport)
	http.HandleFunc("GET /api/v1/reports/department/{department_id}", feedbackHandler.HandleDepartmentReport)
	http.HandleFunc("GET /api/v1/reports/batch/{batch_id}", feedbackHandler.HandleBatchReport)

	http.Handle("/metrics", promhttp.Handler())

	logger.Info.Printf("Starting semla server on %s", service.Config.Server.Port)
	logger.Debug.Println("Requiring headers:")
	for _, h := range service.Config.API.RequiredHeaders {
		logger.Debug.Printf("  %s: %s", h.Name, h.Value)
	}
	if err := http.ListenAndServe(service.Config.Server.Port, nil); err != nil {
		logger.Error.Fatalf("Semla server failed: %v", err)
	}
}
