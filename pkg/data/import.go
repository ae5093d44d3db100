package data

import (
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"

	"golang.org/x/sync/errgroup"

	"github.com/frauddesk/fraudctl/pkg/schema"
)

const importBatchSize = 500

// ImportCSV loads historical application records from a CSV file into
// the application table. The header must cover every schema field; the
// label column is optional. Rows that are entirely empty are dropped.
// Returns the number of rows inserted.
//
// Parsing and inserting run as separate goroutines joined by an
// errgroup, with inserts batched into transactions.
func ImportCSV(ctx context.Context, db *sql.DB, csvPath string) (int, error) {
	file, err := os.Open(csvPath)
	if err != nil {
		return 0, fmt.Errorf("opening csv %s: %w", csvPath, err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	header, err := r.Read()
	if err != nil {
		return 0, fmt.Errorf("reading csv header: %w", err)
	}

	idx, err := headerIndex(header)
	if err != nil {
		return 0, err
	}

	rowCh := make(chan []any, importBatchSize)
	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		defer close(rowCh)
		line := 1
		for {
			record, err := r.Read()
			if err == io.EOF {
				return nil
			}
			if err != nil {
				return fmt.Errorf("reading csv line %d: %w", line+1, err)
			}
			line++

			args, empty, err := rowArgs(record, idx)
			if err != nil {
				return fmt.Errorf("csv line %d: %w", line, err)
			}
			if empty {
				continue
			}

			select {
			case rowCh <- args:
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	})

	var inserted int
	g.Go(func() error {
		stmt, err := db.PrepareContext(ctx, insertApplicationSQL())
		if err != nil {
			return fmt.Errorf("preparing insert: %w", err)
		}
		defer stmt.Close()

		var tx *sql.Tx
		batch := 0
		for args := range rowCh {
			if tx == nil {
				if tx, err = db.BeginTx(ctx, nil); err != nil {
					return fmt.Errorf("starting transaction: %w", err)
				}
			}
			if _, err := tx.StmtContext(ctx, stmt).ExecContext(ctx, args...); err != nil {
				tx.Rollback()
				return fmt.Errorf("inserting application: %w", err)
			}
			inserted++
			batch++
			if batch >= importBatchSize {
				if err := tx.Commit(); err != nil {
					return fmt.Errorf("committing batch: %w", err)
				}
				tx = nil
				batch = 0
				slog.Debug("import progress", "rows", inserted)
			}
		}
		if tx != nil {
			if err := tx.Commit(); err != nil {
				return fmt.Errorf("committing batch: %w", err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return 0, err
	}
	slog.Debug("import done", "rows", inserted)
	return inserted, nil
}

// headerIndex maps every schema column to its CSV position. Extra CSV
// columns are ignored; a missing feature column is an error.
func headerIndex(header []string) (map[string]int, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[name] = i
	}
	idx := make(map[string]int, len(columns()))
	for _, name := range schema.Fields() {
		i, ok := pos[name]
		if !ok {
			return nil, fmt.Errorf("csv is missing required column %q", name)
		}
		idx[name] = i
	}
	if i, ok := pos[schema.Label]; ok {
		idx[schema.Label] = i
	}
	return idx, nil
}

// rowArgs converts one CSV record into insert arguments in column
// order. Empty cells become NULL. Reports empty=true when every
// feature cell is blank.
func rowArgs(record []string, idx map[string]int) (args []any, empty bool, err error) {
	empty = true
	cols := columns()
	args = make([]any, 0, len(cols))

	cell := func(name string) string {
		i, ok := idx[name]
		if !ok || i >= len(record) {
			return ""
		}
		return record[i]
	}

	for _, name := range schema.Numeric {
		s := cell(name)
		if s == "" {
			args = append(args, nil)
			continue
		}
		empty = false
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false, fmt.Errorf("column %q: %q is not numeric", name, s)
		}
		args = append(args, v)
	}
	for _, name := range schema.Categorical {
		s := cell(name)
		if s == "" {
			args = append(args, nil)
			continue
		}
		empty = false
		args = append(args, s)
	}

	s := cell(schema.Label)
	if s == "" {
		args = append(args, nil)
	} else {
		v, err := strconv.Atoi(s)
		if err != nil {
			return nil, false, fmt.Errorf("column %q: %q is not an integer", schema.Label, s)
		}
		args = append(args, v)
	}

	return args, empty, nil
}
