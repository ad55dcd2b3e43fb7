/*
Package cache implements a persistent store for rendered identicons.

An identicon is a pure function of its digest and render parameters so
entries never go stale and there is no expiry; the store is a plain key
to PNG-bytes table in a single sqlite database file.
*/
package cache

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
)

// DB is a render cache backed by a sqlite database file.
type DB struct {
	db *sql.DB
}

// New opens the cache at file, creating the database and schema as
// needed.
func New(file string) (*DB, error) {
	db, err := sql.Open("sqlite3", fmt.Sprintf("%s?_busy_timeout=5000", file))
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(10)

	if _, err = db.Exec("CREATE TABLE IF NOT EXISTS render (key TEXT PRIMARY KEY NOT NULL, png BLOB NOT NULL)"); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{
		db: db,
	}, nil
}

// Key returns the cache key for a render: the digest in hex and the
// pixel width, with a marker for inverted colors.
func Key(digest string, width int, inverted bool) string {
	key := fmt.Sprintf("%s/%d", digest, width)
	if inverted {
		key += ".i"
	}
	return key
}

// Get returns the cached PNG for key, or nil when the key has not been
// rendered yet.
func (c *DB) Get(key string) ([]byte, error) {
	var png []byte
	switch err := c.db.QueryRow("SELECT png FROM render WHERE key = ?", key).Scan(&png); err {
	case sql.ErrNoRows:
		return nil, nil
	case nil:
		return png, nil
	default:
		return nil, err
	}
}

// Put stores the PNG for key, replacing any previous render.
func (c *DB) Put(key string, png []byte) error {
	if _, err := c.db.Exec("INSERT OR REPLACE INTO render (key, png) VALUES (?, ?)", key, png); err != nil {
		return err
	}
	return nil
}

func (c *DB) Close() error {
	return c.db.Close()
}
