// Package ingest turns uploaded spreadsheets into events. Each data row
// becomes one upsert keyed by (file, event name); malformed rows are
// collected as row-indexed errors and never abort the rest of the batch.
package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"

	"github.com/mkazakova/remindbot/internal/models"
)

// Required column headers, matched case-insensitively on the first row.
const (
	ColumnEvent        = "Event"
	ColumnDate         = "Date"
	ColumnTime         = "Time"
	ColumnRemindBefore = "Remind before (days)"
	ColumnRepeat       = "Repeat"
	ColumnPeriodicity  = "Periodicity (months)"
	ColumnChatIDs      = "Responsible IDs"
	ColumnEmail        = "Email"
)

var requiredColumns = []string{
	ColumnEvent, ColumnDate, ColumnTime, ColumnRemindBefore,
	ColumnRepeat, ColumnPeriodicity, ColumnChatIDs, ColumnEmail,
}

var dateLayouts = []string{"02.01.2006", "2006-01-02", "2006-01-02 15:04:05"}

// RowError ties a validation failure to its spreadsheet row (1-based,
// counting the header) so the user can fix the right line.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e RowError) Unwrap() error {
	return e.Err
}

// Result summarizes one processed file.
type Result struct {
	Created int
	Errors  []RowError
}

type eventStore interface {
	Upsert(ctx context.Context, event *models.Event) error
}

type jobScheduler interface {
	Schedule(ctx context.Context, event *models.Event) error
}

type Service struct {
	events      eventStore
	scheduler   jobScheduler
	validate    *validator.Validate
	defaultTime models.ClockTime
	loc         *time.Location
	log         zerolog.Logger
}

func NewService(events eventStore, scheduler jobScheduler, defaultTime models.ClockTime, loc *time.Location, log zerolog.Logger) *Service {
	return &Service{
		events:      events,
		scheduler:   scheduler,
		validate:    validator.New(),
		defaultTime: defaultTime,
		loc:         loc,
		log:         log,
	}
}

// ProcessFile parses the spreadsheet at path and upserts one event per
// valid row under the given file label. A file-level problem (unreadable,
// missing columns) is returned as an error; row-level problems land in
// Result.Errors.
func (s *Service) ProcessFile(ctx context.Context, path string, creatorID int64, fileName string) (Result, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("open spreadsheet: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, fmt.Errorf("spreadsheet has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	if len(rows) == 0 {
		return Result{}, fmt.Errorf("spreadsheet is empty")
	}

	columns, err := MapHeader(rows[0])
	if err != nil {
		return Result{}, err
	}

	var result Result
	for i, cells := range rows[1:] {
		rowNum := i + 2 // 1-based plus header row

		event, err := s.ParseRow(cells, columns)
		if err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: err})
			continue
		}
		event.CreatorID = creatorID
		event.FileName = fileName

		if err := s.events.Upsert(ctx, event); err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: fmt.Errorf("save event: %w", err)})
			continue
		}
		if err := s.scheduler.Schedule(ctx, event); err != nil {
			result.Errors = append(result.Errors, RowError{Row: rowNum, Err: fmt.Errorf("schedule reminder: %w", err)})
			continue
		}

		result.Created++
		s.log.Info().
			Int64("event_id", event.EventID).
			Str("event", event.EventName).
			Str("file", fileName).
			Msg("event ingested")
	}

	return result, nil
}

// MapHeader resolves required column names to cell indexes.
func MapHeader(header []string) (map[string]int, error) {
	index := make(map[string]int, len(header))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}

	columns := make(map[string]int, len(requiredColumns))
	var missing []string
	for _, name := range requiredColumns {
		i, ok := index[strings.ToLower(name)]
		if !ok {
			missing = append(missing, name)
			continue
		}
		columns[name] = i
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}
	return columns, nil
}

// ParseRow validates one data row and builds the event it describes,
// including the derived next_reminder.
func (s *Service) ParseRow(cells []string, columns map[string]int) (*models.Event, error) {
	name := strings.TrimSpace(cellAt(cells, columns[ColumnEvent]))
	if name == "" {
		return nil, fmt.Errorf("event name is empty")
	}

	date, err := ParseDate(cellAt(cells, columns[ColumnDate]))
	if err != nil {
		return nil, err
	}

	clock := s.defaultTime
	if raw := strings.TrimSpace(cellAt(cells, columns[ColumnTime])); raw != "" {
		clock, err = models.ParseClock(raw)
		if err != nil {
			return nil, err
		}
	}

	remindBefore := 0
	if raw := strings.TrimSpace(cellAt(cells, columns[ColumnRemindBefore])); raw != "" {
		remindBefore, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid remind-before days %q", raw)
		}
	}
	if err := s.validate.Var(remindBefore, "gte=0"); err != nil {
		return nil, fmt.Errorf("remind-before days must not be negative, got %d", remindBefore)
	}

	repeat := models.ParseRepeatType(cellAt(cells, columns[ColumnRepeat]))
	periodicity := 0
	if raw := strings.TrimSpace(cellAt(cells, columns[ColumnPeriodicity])); raw != "" {
		periodicity, err = strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid periodicity %q", raw)
		}
	}
	// The recurrence engine refuses a non-positive period; coercing bad
	// input to a safe default is ingestion's job.
	if repeat == models.RepeatMonthly && periodicity <= 0 {
		periodicity = 1
	}
	if repeat == models.RepeatNone {
		periodicity = 0
	}

	chatIDs, err := parseChatIDs(cellAt(cells, columns[ColumnChatIDs]))
	if err != nil {
		return nil, err
	}

	email := strings.TrimSpace(cellAt(cells, columns[ColumnEmail]))
	if err := s.validate.Var(email, "omitempty,email"); err != nil {
		return nil, fmt.Errorf("invalid email %q", email)
	}

	if chatIDs == "" && email == "" {
		return nil, fmt.Errorf("no recipients: need at least one chat id or an email")
	}

	event := &models.Event{
		EventName:        name,
		EventDate:        models.DateOnly(date),
		EventTime:        clock,
		RemindBefore:     remindBefore,
		RepeatType:       repeat,
		Periodicity:      periodicity,
		IsActive:         true,
		RecipientChatIDs: chatIDs,
		RecipientEmail:   email,
	}
	event.NextReminder = event.ReminderAt(event.EventDate, s.loc)
	return event, nil
}

// ParseDate accepts the supported spreadsheet date formats.
func ParseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid date %q (expected DD.MM.YYYY or YYYY-MM-DD)", s)
}

func parseChatIDs(raw string) (string, error) {
	var ids []string
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		if _, err := strconv.ParseInt(part, 10, 64); err != nil {
			return "", fmt.Errorf("invalid chat id %q", part)
		}
		ids = append(ids, part)
	}
	return strings.Join(ids, ","), nil
}

func cellAt(cells []string, i int) string {
	if i < 0 || i >= len(cells) {
		return ""
	}
	return cells[i]
}
