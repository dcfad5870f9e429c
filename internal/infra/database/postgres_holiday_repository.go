package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

type PostgresHolidayRepository struct {
	db *sql.DB
}

func NewPostgresHolidayRepository(db *sql.DB) *PostgresHolidayRepository {
	return &PostgresHolidayRepository{db: db}
}

// ListByYear returns the registered holiday dates for a year. An empty
// result is valid: the calendar then skips weekends only.
func (r *PostgresHolidayRepository) ListByYear(ctx context.Context, year int) ([]time.Time, error) {
	query := `SELECT holiday_date FROM holidays
               WHERE holiday_date >= $1 AND holiday_date < $2
               ORDER BY holiday_date`
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	rows, err := r.db.QueryContext(ctx, query, start, end)
	if err != nil {
		return nil, fmt.Errorf("error querying holidays for year %d: %w", year, err)
	}
	defer rows.Close()

	holidays := make([]time.Time, 0)
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("error scanning holiday date: %w", err)
		}
		holidays = append(holidays, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating holiday dates: %w", err)
	}
	return holidays, nil
}
