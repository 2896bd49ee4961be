package db

import (
	"context"
	"database/sql"
	"errors"
)

// GetMetaData returns the value stored under key and whether it exists.
func (d *DB) GetMetaData(ctx context.Context, key string) (string, bool, error) {
	var value string
	err := d.QueryRowContext(ctx, "SELECT value FROM metadata WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, opError("get metadata "+key, err)
	}
	return value, true, nil
}

// SetMetaData stores value under key, replacing any previous value.
func (d *DB) SetMetaData(ctx context.Context, key, value string) error {
	return opError("set metadata "+key, setMetaData(d.with(ctx), key, value))
}

// DeleteMetaData removes key. Removing a missing key is not an error.
func (d *DB) DeleteMetaData(ctx context.Context, key string) error {
	_, err := d.ExecContext(ctx, "DELETE FROM metadata WHERE key = ?", key)
	return opError("delete metadata "+key, err)
}

func setMetaData(q Queryer, key, value string) error {
	_, err := q.Exec(`
		INSERT INTO metadata (key, value) VALUES (?, ?)
		ON CONFLICT (key) DO UPDATE SET value = excluded.value`, key, value)
	return err
}
