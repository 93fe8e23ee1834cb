package analytics

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
)

func TestNewAggregator(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	aggregator := NewAggregator(db)
	if aggregator == nil {
		t.Error("Expected aggregator to be non-nil")
	}
	if aggregator.db != db {
		t.Error("Expected aggregator.db to match provided database")
	}
}

func TestAggregateClickStatsDaily(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	aggregator := NewAggregator(db)
	ctx := context.Background()
	date := time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC)

	// Expect the INSERT query to be executed
	mock.ExpectExec("INSERT INTO click_stats_daily").
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = aggregator.AggregateClickStatsDaily(ctx, date)
	if err != nil {
		t.Fatalf("AggregateClickStatsDaily failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestAggregateClickStatsWeekly(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	aggregator := NewAggregator(db)
	ctx := context.Background()
	weekStart := time.Date(2026, 1, 12, 0, 0, 0, 0, time.UTC)
	weekEnd := weekStart.AddDate(0, 0, 7)

	// Expect the INSERT query to be executed with weekStart and weekEnd
	mock.ExpectExec("INSERT INTO click_stats_weekly").
		WithArgs(weekStart, weekEnd).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = aggregator.AggregateClickStatsWeekly(ctx, weekStart)
	if err != nil {
		t.Fatalf("AggregateClickStatsWeekly failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestAggregateAll_RegularDay(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	aggregator := NewAggregator(db)
	ctx := context.Background()
	// Wednesday, Jan 14, 2026 - not Sunday
	date := time.Date(2026, 1, 14, 0, 0, 0, 0, time.UTC)

	// Expect the daily aggregation only
	mock.ExpectExec("INSERT INTO click_stats_daily").
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = aggregator.AggregateAll(ctx, date)
	if err != nil {
		t.Fatalf("AggregateAll failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestAggregateAll_Sunday(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	aggregator := NewAggregator(db)
	ctx := context.Background()
	// Sunday, Jan 18, 2026
	date := time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)
	weekStart := date.AddDate(0, 0, -6)
	weekEnd := weekStart.AddDate(0, 0, 7)

	// Expect daily aggregation
	mock.ExpectExec("INSERT INTO click_stats_daily").
		WithArgs(date).
		WillReturnResult(sqlmock.NewResult(1, 1))

	// Expect weekly aggregation
	mock.ExpectExec("INSERT INTO click_stats_weekly").
		WithArgs(weekStart, weekEnd).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = aggregator.AggregateAll(ctx, date)
	if err != nil {
		t.Fatalf("AggregateAll failed: %v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}

func TestAggregateAll_DailyError(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create mock database: %v", err)
	}
	defer db.Close()

	aggregator := NewAggregator(db)
	ctx := context.Background()
	date := time.Date(2026, 1, 18, 0, 0, 0, 0, time.UTC)

	mock.ExpectExec("INSERT INTO click_stats_daily").
		WillReturnError(sql.ErrConnDone)

	err = aggregator.AggregateAll(ctx, date)
	if err == nil {
		t.Fatal("Expected error from AggregateAll, got nil")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("Unmet expectations: %v", err)
	}
}
