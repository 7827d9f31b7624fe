package server

import (
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"

	"github.com/mohammad-safakhou/scribe/internal/store"
)

func TestIsDue(t *testing.T) {
	ago := func(d time.Duration) *time.Time {
		ts := time.Now().Add(-d)
		return &ts
	}
	now := time.Now()

	cases := []struct {
		name string
		spec string
		last *time.Time
		want bool
	}{
		{"daily never run", "@daily", nil, true},
		{"daily too soon", "@daily", ago(23 * time.Hour), false},
		{"daily overdue", "@daily", ago(25 * time.Hour), true},
		{"hourly too soon", "@hourly", ago(30 * time.Minute), false},
		{"hourly overdue", "@hourly", ago(2 * time.Hour), true},
		{"cron never run", "*/5 * * * *", nil, true},
		{"cron overdue", "*/5 * * * *", ago(10 * time.Minute), true},
		{"cron not due", "0 0 1 1 *", &now, false},
		{"invalid never run", "not a cron", nil, true},
		{"invalid falls back to daily", "not a cron", ago(23 * time.Hour), false},
		{"invalid overdue", "not a cron", ago(25 * time.Hour), true},
	}
	for _, tc := range cases {
		if got := isDue(tc.spec, tc.last); got != tc.want {
			t.Errorf("%s: isDue(%q) = %v, want %v", tc.name, tc.spec, got, tc.want)
		}
	}
}

func TestSchedulerTickRunsCleanup(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := &Scheduler{
		Store:         &store.Store{DB: db},
		CronSpec:      "@hourly",
		RetentionDays: 30,
	}

	mock.ExpectExec(`DELETE FROM sessions`).
		WithArgs(30).
		WillReturnResult(sqlmock.NewResult(0, 3))

	s.tick()

	if s.lastRun == nil {
		t.Fatalf("expected lastRun set after a successful pass")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSchedulerTickFailureRetries(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	s := &Scheduler{
		Store:         &store.Store{DB: db},
		CronSpec:      "@hourly",
		RetentionDays: 30,
	}

	mock.ExpectExec(`DELETE FROM sessions`).
		WithArgs(30).
		WillReturnError(sqlmock.ErrCancelled)

	s.tick()

	if s.lastRun != nil {
		t.Fatalf("failed pass should leave lastRun unset so the next tick retries")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSchedulerTickSkipsWhenNotDue(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	recent := time.Now().Add(-time.Hour)
	s := &Scheduler{
		Store:         &store.Store{DB: db},
		CronSpec:      "@daily",
		RetentionDays: 30,
		lastRun:       &recent,
	}

	s.tick()

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
