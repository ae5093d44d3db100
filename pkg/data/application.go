package data

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/frauddesk/fraudctl/pkg/preprocess"
	"github.com/frauddesk/fraudctl/pkg/schema"
)

// columns is the application table column list in schema order, label
// last. The DDL declares the same columns; the list here drives the
// generated INSERT and SELECT statements so the two cannot drift from
// the compiled schema.
func columns() []string {
	return append(schema.Fields(), schema.Label)
}

func insertApplicationSQL() string {
	cols := columns()
	return fmt.Sprintf(
		"INSERT INTO application (%s) VALUES (%s)",
		strings.Join(cols, ", "),
		strings.TrimSuffix(strings.Repeat("?, ", len(cols)), ", "),
	)
}

func selectApplicationsSQL() string {
	return fmt.Sprintf("SELECT %s FROM application ORDER BY id", strings.Join(columns(), ", "))
}

// ForEachApplication streams every stored application row, in
// insertion order, as a preprocess.Record. NULL columns are omitted
// from the record so downstream imputation applies. The label column
// is included under schema.Label.
func ForEachApplication(ctx context.Context, db *sql.DB, fn func(rec preprocess.Record) error) error {
	rows, err := db.QueryContext(ctx, selectApplicationsSQL())
	if err != nil {
		return fmt.Errorf("querying applications: %w", err)
	}
	defer rows.Close()

	cols := columns()
	for rows.Next() {
		nums := make([]sql.NullFloat64, len(schema.Numeric))
		strs := make([]sql.NullString, len(schema.Categorical))
		var label sql.NullInt64

		dest := make([]any, 0, len(cols))
		for i := range nums {
			dest = append(dest, &nums[i])
		}
		for i := range strs {
			dest = append(dest, &strs[i])
		}
		dest = append(dest, &label)

		if err := rows.Scan(dest...); err != nil {
			return fmt.Errorf("scanning application row: %w", err)
		}

		rec := make(preprocess.Record, len(cols))
		for i, name := range schema.Numeric {
			if nums[i].Valid {
				rec[name] = nums[i].Float64
			}
		}
		for i, name := range schema.Categorical {
			if strs[i].Valid {
				rec[name] = strs[i].String
			}
		}
		if label.Valid {
			rec[schema.Label] = float64(label.Int64)
		}

		if err := fn(rec); err != nil {
			return err
		}
	}
	return rows.Err()
}

// CountApplications returns the number of stored application rows.
func CountApplications(ctx context.Context, db *sql.DB) (int, error) {
	var n int
	if err := db.QueryRowContext(ctx, "SELECT COUNT(*) FROM application").Scan(&n); err != nil {
		return 0, fmt.Errorf("counting applications: %w", err)
	}
	return n, nil
}
