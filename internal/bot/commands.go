package bot

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/shrimpsizemoose/trekker/logger"

	"github.com/campuspulse/semla/internal/aggregation"
	"github.com/campuspulse/semla/internal/models"
)

const (
	studentHelp = `Available commands:
/token - Get an API token for feedback submission
/help - Show this message`

	adminHelp = `Available commands:
/token - Get an API token
/rule add <instrument> [dept=N] [batch=N] [year=N] [sem=N] [ay=N] [from=YYYY-MM-DD] [to=YYYY-MM-DD] - Add an eligibility rule
/rule list <instrument> - List rules for an instrument
/statement add <category> <text> - Add an evaluation statement
/statement retire <id> - Deactivate a statement
/statement list - List statements
/open dept=N batch=N year=N sem=N ay=N - Show open instruments for a context
/report faculty <faculty_id> <academic_year> - Faculty summary
/register <tg_username> <student_id> - Map a telegram user to a student
/help - Show this message

Examples:
/rule add regular_feedback dept=5 sem=6 from=2025-09-01 to=2025-09-30
/rule list exit_survey
/statement add teaching_effectiveness The faculty member explains concepts clearly
/open dept=5 batch=12 year=4 sem=8 ay=2025
/report faculty 17 2025`
)

type commandHandler func(*tgbotapi.Message) error

func (b *Bot) routeStudentCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"start": b.handleStart,
		"token": b.handleToken,
		"help":  b.handleHelp,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) routeAdminCommands(cmd string) (commandHandler, bool) {
	commands := map[string]commandHandler{
		"rule":      b.handleRule,
		"statement": b.handleStatement,
		"open":      b.handleOpen,
		"report":    b.handleReport,
		"register":  b.handleRegister,
	}
	handler, found := commands[cmd]
	return handler, found
}

func (b *Bot) handleMessage(msg *tgbotapi.Message) {
	if !msg.IsCommand() {
		b.sendHelp(msg.Chat.ID)
		return
	}

	cmd := msg.Command()

	if handler, ok := b.routeStudentCommands(cmd); ok {
		if err := handler(msg); err != nil {
			logger.Error.Printf("Command error: %v", err)
			b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
		}
		return
	}

	if b.admins[msg.From.ID] {
		if handler, ok := b.routeAdminCommands(cmd); ok {
			if err := handler(msg); err != nil {
				logger.Error.Printf("Command error: %v", err)
				b.sendMessage(msg.Chat.ID, fmt.Sprintf("Error: %v", err))
			}
		}
		return
	}

	b.sendHelp(msg.Chat.ID)
}

func (b *Bot) handleHelp(msg *tgbotapi.Message) error {
	var text string
	if b.admins[msg.From.ID] {
		text = adminHelp
	} else {
		text = studentHelp
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) sendHelp(chatID int64) error {
	return b.sendMessage(chatID, "Use commands to interact with the bot. Send /help for the list.")
}

func (b *Bot) handleStart(msg *tgbotapi.Message) error {
	text := "Hi! I manage the feedback portal.\n\n"
	if b.admins[msg.From.ID] {
		text += "You are an administrator. Use /help for the command list."
	} else {
		text += "Use /token to get an API token."
	}

	return b.sendMessage(msg.Chat.ID, text)
}

func (b *Bot) handleToken(msg *tgbotapi.Message) error {
	if b.tokens == nil {
		return b.sendMessage(msg.Chat.ID, "Token issuing is disabled")
	}

	ctx := context.Background()
	studentID, err := b.tokens.FetchStudentIDByTelegram(ctx, msg.From.UserName)
	if err != nil {
		return b.sendMessage(msg.Chat.ID,
			"You are not registered yet. Ask an administrator to /register you.")
	}

	info, isNew, err := b.tokens.FetchOrCreateStudentToken(ctx, studentID)
	if err != nil {
		return fmt.Errorf("failed to fetch token: %v", err)
	}

	status := "Your existing token"
	if isNew {
		status = "Your new token"
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("%s:\n%s", status, info.Token))
}

func (b *Bot) handleRegister(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 2 {
		return fmt.Errorf("usage: /register <tg_username> <student_id>")
	}
	if b.tokens == nil {
		return b.sendMessage(msg.Chat.ID, "Token issuing is disabled")
	}

	if err := b.tokens.SaveStudentTelegramMapping(context.Background(), args[0], args[1]); err != nil {
		return fmt.Errorf("failed to save mapping: %v", err)
	}
	return b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Mapped @%s to student %s", args[0], args[1]))
}

func (b *Bot) handleRule(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		return b.sendMessage(msg.Chat.ID, "Usage:\n"+
			"/rule add <instrument> [dept=N] [batch=N] [year=N] [sem=N] [ay=N] [from=date] [to=date]\n"+
			"/rule list <instrument>")
	}

	switch args[0] {
	case "add":
		if len(args) < 2 {
			return fmt.Errorf("specify an instrument: /rule add regular_feedback dept=5")
		}
		return b.handleRuleAdd(msg.Chat.ID, args[1], args[2:])
	case "list":
		if len(args) < 2 {
			return fmt.Errorf("specify an instrument: /rule list regular_feedback")
		}
		return b.handleRuleList(msg.Chat.ID, args[1])
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (b *Bot) handleRuleAdd(chatID int64, instrument string, args []string) error {
	rule := models.EligibilityRule{
		Instrument:   instrument,
		AcademicYear: models.AnyValue(),
		DepartmentID: models.AnyValue(),
		BatchID:      models.AnyValue(),
		YearOfStudy:  models.AnyValue(),
		Semester:     models.AnyValue(),
		Active:       true,
	}

	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return fmt.Errorf("expected key=value, got %q", arg)
		}

		switch key {
		case "from", "to":
			date, err := time.Parse("2006-01-02", value)
			if err != nil {
				return fmt.Errorf("bad date %q (use YYYY-MM-DD): %v", value, err)
			}
			if key == "from" {
				rule.StartDate = &date
			} else {
				end := time.Date(date.Year(), date.Month(), date.Day(), 23, 59, 59, 0, date.Location())
				rule.EndDate = &end
			}
		default:
			n, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return fmt.Errorf("bad value for %s: %v", key, err)
			}
			scope := models.Exactly(n)
			switch key {
			case "dept":
				rule.DepartmentID = scope
			case "batch":
				rule.BatchID = scope
			case "year":
				rule.YearOfStudy = scope
			case "sem":
				rule.Semester = scope
			case "ay":
				rule.AcademicYear = scope
			default:
				return fmt.Errorf("unknown parameter: %s", key)
			}
		}
	}

	if err := b.store.CreateEligibilityRule(rule); err != nil {
		return fmt.Errorf("failed to save rule: %v", err)
	}

	return b.sendMessage(chatID, fmt.Sprintf("✅ Rule added for %s:\n"+
		"dept=%s batch=%s year=%s sem=%s ay=%s",
		instrument,
		rule.DepartmentID, rule.BatchID, rule.YearOfStudy,
		rule.Semester, rule.AcademicYear,
	))
}

func (b *Bot) handleRuleList(chatID int64, instrument string) error {
	rules, err := b.store.FetchEligibilityRules(instrument)
	if err != nil {
		return fmt.Errorf("failed to fetch rules: %v", err)
	}

	if len(rules) == 0 {
		return b.sendMessage(chatID, fmt.Sprintf(
			"No rules for %s. The instrument is open for everyone by default.", instrument))
	}

	var msg strings.Builder
	msg.WriteString(fmt.Sprintf("Rules for %s:\n\n", instrument))
	for _, rule := range rules {
		state := "active"
		if !rule.Active {
			state = "inactive"
		}
		msg.WriteString(fmt.Sprintf("#%d [%s] dept=%s batch=%s year=%s sem=%s ay=%s\n",
			rule.ID, state,
			rule.DepartmentID, rule.BatchID, rule.YearOfStudy,
			rule.Semester, rule.AcademicYear,
		))
		if rule.StartDate != nil || rule.EndDate != nil {
			from, to := "...", "..."
			if rule.StartDate != nil {
				from = rule.StartDate.Format("2006-01-02")
			}
			if rule.EndDate != nil {
				to = rule.EndDate.Format("2006-01-02")
			}
			msg.WriteString(fmt.Sprintf("📅 %s — %s\n", from, to))
		}
		msg.WriteString("\n")
	}

	return b.sendMessage(chatID, msg.String())
}

func (b *Bot) handleStatement(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) < 1 {
		return b.sendMessage(msg.Chat.ID, "Usage:\n"+
			"/statement add <category> <text>\n"+
			"/statement retire <id>\n"+
			"/statement list")
	}

	switch args[0] {
	case "add":
		if len(args) < 3 {
			return fmt.Errorf("usage: /statement add <category> <text>")
		}
		return b.handleStatementAdd(msg.Chat.ID, args[1], strings.Join(args[2:], " "))
	case "retire":
		if len(args) < 2 {
			return fmt.Errorf("usage: /statement retire <id>")
		}
		id, err := strconv.ParseInt(args[1], 10, 64)
		if err != nil {
			return fmt.Errorf("bad statement id: %v", err)
		}
		if err := b.store.DeactivateStatement(id); err != nil {
			return fmt.Errorf("failed to retire statement: %v", err)
		}
		return b.sendMessage(msg.Chat.ID, fmt.Sprintf("✅ Statement %d retired", id))
	case "list":
		return b.handleStatementList(msg.Chat.ID)
	default:
		return fmt.Errorf("unknown subcommand: %s", args[0])
	}
}

func (b *Bot) handleStatementAdd(chatID int64, category, text string) error {
	cat, err := models.ParseCategory(category)
	if err != nil {
		valid := make([]string, 0, len(models.AllCategories))
		for _, c := range models.AllCategories {
			valid = append(valid, string(c))
		}
		return fmt.Errorf("%v\nvalid categories: %s", err, strings.Join(valid, ", "))
	}

	statement := models.Statement{Text: text, Category: cat, Active: true}
	if err := b.store.CreateStatement(&statement); err != nil {
		return fmt.Errorf("failed to save statement: %v", err)
	}

	return b.sendMessage(chatID, fmt.Sprintf("✅ Statement %d added to %s", statement.ID, cat))
}

func (b *Bot) handleStatementList(chatID int64) error {
	statements, err := b.store.FetchStatements(false)
	if err != nil {
		return fmt.Errorf("failed to fetch statements: %v", err)
	}

	if len(statements) == 0 {
		return b.sendMessage(chatID, "No statements configured")
	}

	var msg strings.Builder
	msg.WriteString("Statements:\n\n")
	for _, st := range statements {
		marker := "📝"
		if !st.Active {
			marker = "🗑"
		}
		msg.WriteString(fmt.Sprintf("%s #%d [%s] %s\n", marker, st.ID, st.Category, st.Text))
	}

	return b.sendMessage(chatID, msg.String())
}

func parseContextArgs(args []string) (models.StudentContext, error) {
	var ctx models.StudentContext
	seen := map[string]bool{}
	for _, arg := range args {
		key, value, found := strings.Cut(arg, "=")
		if !found {
			return ctx, fmt.Errorf("expected key=value, got %q", arg)
		}
		n, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return ctx, fmt.Errorf("bad value for %s: %v", key, err)
		}
		switch key {
		case "dept":
			ctx.DepartmentID = n
		case "batch":
			ctx.BatchID = n
		case "year":
			ctx.YearOfStudy = n
		case "sem":
			ctx.Semester = n
		case "ay":
			ctx.AcademicYear = n
		default:
			return ctx, fmt.Errorf("unknown parameter: %s", key)
		}
		seen[key] = true
	}
	for _, key := range []string{"dept", "batch", "year", "sem", "ay"} {
		if !seen[key] {
			return ctx, fmt.Errorf("missing %s=N", key)
		}
	}
	return ctx, nil
}

func (b *Bot) handleOpen(msg *tgbotapi.Message) error {
	ctx, err := parseContextArgs(strings.Fields(msg.CommandArguments()))
	if err != nil {
		return err
	}

	open := b.resolver.ListOpenInstruments(ctx)
	if len(open) == 0 {
		return b.sendMessage(msg.Chat.ID, "Nothing is open for this context")
	}

	var out strings.Builder
	out.WriteString("Open instruments:\n")
	for _, name := range open {
		out.WriteString("• " + name + "\n")
	}
	if b.resolver.ShouldShowExitSurvey(ctx) {
		out.WriteString("\nThis context also gets the exit survey.")
	}

	return b.sendMessage(msg.Chat.ID, out.String())
}

func (b *Bot) handleReport(msg *tgbotapi.Message) error {
	args := strings.Fields(msg.CommandArguments())
	if len(args) != 3 || args[0] != "faculty" {
		return fmt.Errorf("usage: /report faculty <faculty_id> <academic_year>")
	}

	facultyID, err := strconv.ParseInt(args[1], 10, 64)
	if err != nil {
		return fmt.Errorf("bad faculty id: %v", err)
	}
	academicYear, err := strconv.ParseInt(args[2], 10, 64)
	if err != nil {
		return fmt.Errorf("bad academic year: %v", err)
	}

	records, err := b.store.FetchRecords(models.RecordFilter{
		FacultyID:    &facultyID,
		AcademicYear: &academicYear,
	})
	if err != nil {
		return fmt.Errorf("failed to fetch records: %v", err)
	}

	rows := aggregation.Aggregate(records, []models.Dimension{models.DimSubject, models.DimSemester})
	if len(rows) == 0 {
		return b.sendMessage(msg.Chat.ID, "No feedback recorded yet")
	}

	var out strings.Builder
	out.WriteString(fmt.Sprintf("Faculty %d, %d:\n\n", facultyID, academicYear))
	for _, row := range rows {
		out.WriteString(fmt.Sprintf("📊 subject %s, semester %s: %.2f (%s, n=%d)\n",
			row.Key[models.DimSubject],
			row.Key[models.DimSemester],
			row.CumulativeMean,
			row.Status,
			row.Count,
		))
	}

	return b.sendMessage(msg.Chat.ID, out.String())
}

func (b *Bot) sendMessage(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	_, err := b.api.Send(msg)
	return err
}
