package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"

	apperrors "github.com/Adithya-Monish-Kumar-K/review-scores/pkg/errors"
)

var tableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*(\.[A-Za-z_][A-Za-z0-9_]*)?$`)

// PostgresSource reads corpus lines from a table shaped like
//
//	CREATE TABLE review_lines (line_no BIGINT PRIMARY KEY, body TEXT NOT NULL);
//
// Rows are returned in line_no order, so line_no plays the role of the file
// line number.
type PostgresSource struct {
	db    *sql.DB
	table string
}

func NewPostgresSource(db *sql.DB, table string) (*PostgresSource, error) {
	if !tableName.MatchString(table) {
		return nil, fmt.Errorf("invalid corpus table name %q", table)
	}
	return &PostgresSource{db: db, table: table}, nil
}

// Lines returns the bodies of the first limit rows.
func (s *PostgresSource) Lines(ctx context.Context, limit int) ([]string, error) {
	lines := make([]string, 0)
	if limit <= 0 {
		return lines, nil
	}
	query := fmt.Sprintf(`SELECT body FROM %s ORDER BY line_no ASC LIMIT $1`, s.table)
	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("querying corpus table %s: %w: %w", s.table, apperrors.ErrSourceUnavailable, err)
	}
	defer rows.Close()
	for rows.Next() {
		var body sql.NullString
		if err := rows.Scan(&body); err != nil {
			return nil, fmt.Errorf("scanning corpus row: %w: %w", apperrors.ErrSourceUnavailable, err)
		}
		// NULL bodies still occupy a line; they are skipped by the index.
		lines = append(lines, body.String)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating corpus rows: %w: %w", apperrors.ErrSourceUnavailable, err)
	}
	return lines, nil
}

func (s *PostgresSource) String() string {
	return "postgres:" + s.table
}
