package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type HeaderConfig struct {
	Name  string `toml:"name"`
	Value string `toml:"value"`
}

// SheetExportConfig describes one scheduled report export to Google Sheets.
type SheetExportConfig struct {
	CredentialsPath string `toml:"credentials_path"`
	SheetID         string `toml:"sheet_id"`
	SheetName       string `toml:"sheet_name"`
	StartCell       string `toml:"start_cell"`
	TimestampCell   string `toml:"timestamp_cell"`
	Schedule        string `toml:"schedule"`
	FacultyID       int64  `toml:"faculty_id"`
	AcademicYear    int64  `toml:"academic_year"`
}

type Config struct {
	Server struct {
		Port       string `toml:"port"`
		EnableAuth bool   `toml:"enable_auth"`
	} `toml:"server"`

	Auth struct {
		RedisURL         string `toml:"redis_url"`
		TokenHeader      string `toml:"token_header"`
		TokenKeyTemplate string `toml:"token_key_template"`
	} `toml:"auth"`

	API struct {
		StudentIDHeader string         `toml:"student_id_header"`
		RequiredHeaders []HeaderConfig `toml:"required_headers"`
	} `toml:"api"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Display struct {
		TimestampFormat string `toml:"timestamp_format"`
	} `toml:"display"`

	// Eligibility keeps gating knobs out of the code. The exit-survey
	// terminal cohort is configuration, never a literal in the resolver.
	Eligibility struct {
		Instruments          []string `toml:"instruments"`
		ExitSurveyInstrument string   `toml:"exit_survey_instrument"`
		TerminalYear         int64    `toml:"terminal_year"`
		TerminalSemester     int64    `toml:"terminal_semester"`
	} `toml:"eligibility"`

	GSheet map[string][]SheetExportConfig `toml:"gsheet"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}
	if config.Eligibility.ExitSurveyInstrument == "" {
		config.Eligibility.ExitSurveyInstrument = "exit_survey"
	}
	if config.Eligibility.TerminalYear == 0 {
		config.Eligibility.TerminalYear = 4
	}
	if config.Eligibility.TerminalSemester == 0 {
		config.Eligibility.TerminalSemester = 8
	}

	logger.Debug.Printf("Loaded eligibility config: %+v", config.Eligibility)

	return &config, nil
}
