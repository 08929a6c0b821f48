package datarecording

import (
	"context"
	"database/sql"
	"fmt"
)

// Reader runs aggregate queries over a recording.
type Reader struct {
	*sql.DB
}

// NewReader opens a recording written by a DataRecorder.
func NewReader(filename string) (*Reader, error) {
	db, err := sql.Open("sqlite3", filename)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", filename, err)
	}

	return &Reader{DB: db}, nil
}

// NewReaderWithDB creates a Reader over an already opened database.
func NewReaderWithDB(db *sql.DB) *Reader {
	return &Reader{DB: db}
}

// Count returns the number of rows of a table that satisfy the where clause.
// An empty where clause counts all rows.
func (r *Reader) Count(
	ctx context.Context,
	tableName string,
	where string,
	args ...any,
) (int, error) {
	query := "SELECT COUNT(*) FROM " + tableName
	if where != "" {
		query += " WHERE " + where
	}

	var n int
	if err := r.QueryRowContext(ctx, query, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting %s: %w", tableName, err)
	}

	return n, nil
}
