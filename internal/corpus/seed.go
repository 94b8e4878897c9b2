package corpus

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/review-scores/pkg/postgres"
)

// Seed replaces the contents of table with lines, numbering them from 1 in
// the order given. The table is created when missing. Everything happens in
// one transaction, so readers see either the old corpus or the new one.
func Seed(ctx context.Context, db *postgres.Client, table string, lines []string) (int, error) {
	if !tableName.MatchString(table) {
		return 0, fmt.Errorf("invalid corpus table name %q", table)
	}
	err := db.InTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(
			`CREATE TABLE IF NOT EXISTS %s (line_no BIGINT PRIMARY KEY, body TEXT)`, table)); err != nil {
			return fmt.Errorf("creating corpus table: %w", err)
		}
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`DELETE FROM %s`, table)); err != nil {
			return fmt.Errorf("clearing corpus table: %w", err)
		}
		stmt, err := tx.PrepareContext(ctx, fmt.Sprintf(`INSERT INTO %s (line_no, body) VALUES ($1, $2)`, table))
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()
		for i, line := range lines {
			if _, err := stmt.ExecContext(ctx, i+1, line); err != nil {
				return fmt.Errorf("inserting line %d: %w", i+1, err)
			}
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("seeding %s: %w", table, err)
	}
	slog.Info("corpus seeded", "table", table, "lines", len(lines))
	return len(lines), nil
}
