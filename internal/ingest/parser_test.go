package ingest

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/mkazakova/remindbot/internal/models"
)

type fakeEventStore struct {
	upserted []models.Event
	nextID   int64
}

func (f *fakeEventStore) Upsert(ctx context.Context, event *models.Event) error {
	f.nextID++
	event.EventID = f.nextID
	f.upserted = append(f.upserted, *event)
	return nil
}

type fakeJobScheduler struct {
	scheduled []int64
}

func (f *fakeJobScheduler) Schedule(ctx context.Context, event *models.Event) error {
	f.scheduled = append(f.scheduled, event.EventID)
	return nil
}

func newTestService() (*Service, *fakeEventStore, *fakeJobScheduler) {
	events := &fakeEventStore{}
	sched := &fakeJobScheduler{}
	svc := NewService(events, sched, models.ClockTime{Hour: 9}, time.UTC, zerolog.Nop())
	return svc, events, sched
}

var testHeader = []string{
	ColumnEvent, ColumnDate, ColumnTime, ColumnRemindBefore,
	ColumnRepeat, ColumnPeriodicity, ColumnChatIDs, ColumnEmail,
}

func testColumns(t *testing.T) map[string]int {
	t.Helper()
	columns, err := MapHeader(testHeader)
	require.NoError(t, err)
	return columns
}

func TestParseDate(t *testing.T) {
	want := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"15.07.2025", "2025-07-15", "2025-07-15 00:00:00"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, models.DateOnly(got), in)
	}

	_, err := ParseDate("15/07/2025")
	assert.Error(t, err)
}

func TestMapHeaderIsCaseInsensitive(t *testing.T) {
	header := []string{"event", " DATE ", "time", "remind before (days)", "repeat", "periodicity (months)", "responsible ids", "email"}
	columns, err := MapHeader(header)
	require.NoError(t, err)
	assert.Equal(t, 0, columns[ColumnEvent])
	assert.Equal(t, 1, columns[ColumnDate])
}

func TestMapHeaderReportsMissingColumns(t *testing.T) {
	_, err := MapHeader([]string{ColumnEvent, ColumnDate})
	require.Error(t, err)
	assert.Contains(t, err.Error(), ColumnRepeat)
	assert.Contains(t, err.Error(), ColumnEmail)
}

func TestParseRowValid(t *testing.T) {
	svc, _, _ := newTestService()
	row := []string{"Quarterly audit", "15.07.2025", "14:30", "5", "monthly", "3", "111, 222", "ops@example.com"}

	event, err := svc.ParseRow(row, testColumns(t))
	require.NoError(t, err)

	assert.Equal(t, "Quarterly audit", event.EventName)
	assert.Equal(t, time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC), event.EventDate)
	assert.Equal(t, models.ClockTime{Hour: 14, Minute: 30}, event.EventTime)
	assert.Equal(t, models.RepeatMonthly, event.RepeatType)
	assert.Equal(t, 3, event.Periodicity)
	assert.Equal(t, "111,222", event.RecipientChatIDs)
	assert.True(t, event.IsActive)

	// next_reminder = event date minus lead days, at the event time.
	assert.Equal(t, time.Date(2025, 7, 10, 14, 30, 0, 0, time.UTC), event.NextReminder)
}

func TestParseRowDefaultsTimeAndLead(t *testing.T) {
	svc, _, _ := newTestService()
	row := []string{"Payday", "2025-07-15", "", "", "", "", "111", ""}

	event, err := svc.ParseRow(row, testColumns(t))
	require.NoError(t, err)

	assert.Equal(t, models.ClockTime{Hour: 9}, event.EventTime)
	assert.Equal(t, 0, event.RemindBefore)
	assert.Equal(t, models.RepeatNone, event.RepeatType)
	assert.Equal(t, time.Date(2025, 7, 15, 9, 0, 0, 0, time.UTC), event.NextReminder)
}

func TestParseRowPeriodicityCoercion(t *testing.T) {
	svc, _, _ := newTestService()
	columns := testColumns(t)

	// Monthly with no period gets the safe default.
	event, err := svc.ParseRow([]string{"a", "15.07.2025", "", "", "monthly", "", "111", ""}, columns)
	require.NoError(t, err)
	assert.Equal(t, 1, event.Periodicity)

	// One-shot rows never carry a period.
	event, err = svc.ParseRow([]string{"b", "15.07.2025", "", "", "", "6", "111", ""}, columns)
	require.NoError(t, err)
	assert.Equal(t, 0, event.Periodicity)
}

func TestParseRowRejectsBadInput(t *testing.T) {
	svc, _, _ := newTestService()
	columns := testColumns(t)

	tests := []struct {
		name string
		row  []string
	}{
		{"empty name", []string{"", "15.07.2025", "", "", "", "", "111", ""}},
		{"bad date", []string{"a", "soon", "", "", "", "", "111", ""}},
		{"negative lead", []string{"a", "15.07.2025", "", "-1", "", "", "111", ""}},
		{"bad chat id", []string{"a", "15.07.2025", "", "", "", "", "abc", ""}},
		{"bad email", []string{"a", "15.07.2025", "", "", "", "", "", "not-an-email"}},
		{"no recipients", []string{"a", "15.07.2025", "", "", "", "", "", ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ParseRow(tt.row, columns)
			assert.Error(t, err)
		})
	}
}

func writeSpreadsheet(t *testing.T, rows [][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow("Sheet1", cell, &row))
	}
	path := filepath.Join(t.TempDir(), "events.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func TestProcessFileMixedRows(t *testing.T) {
	svc, events, sched := newTestService()

	header := make([]interface{}, len(testHeader))
	for i, h := range testHeader {
		header[i] = h
	}
	path := writeSpreadsheet(t, [][]interface{}{
		header,
		{"Audit", "15.07.2025", "10:00", "5", "monthly", "1", "111", "ops@example.com"},
		{"", "15.07.2025", "", "", "", "", "111", ""}, // bad: empty name
		{"Payday", "2025-08-01", "", "", "", "", "222", ""},
	})

	result, err := svc.ProcessFile(context.Background(), path, 100, "events.xlsx")
	require.NoError(t, err)

	assert.Equal(t, 2, result.Created)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, 3, result.Errors[0].Row)

	require.Len(t, events.upserted, 2)
	assert.Equal(t, int64(100), events.upserted[0].CreatorID)
	assert.Equal(t, "events.xlsx", events.upserted[0].FileName)
	assert.Len(t, sched.scheduled, 2)
}

func TestProcessFileMissingColumnsFailsWholeFile(t *testing.T) {
	svc, events, _ := newTestService()
	path := writeSpreadsheet(t, [][]interface{}{
		{"Event", "Date"},
		{"Audit", "15.07.2025"},
	})

	_, err := svc.ProcessFile(context.Background(), path, 100, "events.xlsx")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "missing columns")
	assert.Empty(t, events.upserted)
}
