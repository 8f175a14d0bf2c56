// Copyright (c) 2020 Siemens AG
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
//
// Author(s): Jonas Plum

package signalstore

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"
)

// Paths inside a Signal directory.
const (
	DatabaseFile   = "sql/db.sqlite"
	ConfigFile     = "config.json"
	AttachmentsDir = "attachments.noindex"
)

const driverName = "sqlite3"

var (
	ErrDatabaseNotFound = errors.New("database does not exist")
	ErrIncorrectKey     = errors.New("incorrect key")
	ErrClosed           = errors.New("store is closed")
)

// The Store is an open, unlocked Signal Desktop database. It is not safe for
// concurrent use.
type Store struct {
	dir    string
	fs     afero.Fs
	logger *zap.Logger

	db      *sql.DB
	conn    *sql.Conn
	version int
	layout  schemaLayout

	recipients *recipientCache
	stats      Stats
}

// Option configures a Store.
type Option func(*Store)

// WithFs sets the filesystem used for the key file and attachment files.
// The database itself is always read from the operating system.
func WithFs(fs afero.Fs) Option {
	return func(store *Store) {
		store.fs = fs
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(store *Store) {
		store.logger = logger
	}
}

// Open unlocks the database in the Signal directory dir.
func Open(ctx context.Context, dir string, opts ...Option) (*Store, error) {
	store := &Store{
		dir:    dir,
		fs:     afero.NewOsFs(),
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(store)
	}

	dbPath := filepath.Join(dir, filepath.FromSlash(DatabaseFile))
	if _, err := os.Stat(dbPath); err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(ErrDatabaseNotFound, dbPath)
		}
		return nil, err
	}

	dsn, err := store.keyedDSN(dbPath)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open(driverName, string(dsn))
	wipe(dsn)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open database")
	}
	db.SetMaxOpenConns(1)

	conn, err := db.Conn(ctx)
	if err != nil {
		db.Close() // nolint:errcheck
		if isNotADB(err) {
			return nil, ErrIncorrectKey
		}
		return nil, errors.Wrap(err, "cannot open database")
	}
	store.db = db
	store.conn = conn

	if err := store.unlock(ctx); err != nil {
		store.Close() // nolint:errcheck
		return nil, err
	}

	store.logger.Debug("opened database", zap.String("path", dbPath), zap.Int("version", store.version))
	return store, nil
}

func readOnlyDSN(path string) string {
	escape := strings.NewReplacer("%", "%25", "?", "%3f", "#", "%23")
	return "file:" + escape.Replace(filepath.ToSlash(path)) + "?mode=ro"
}

// unlock verifies the key and reads the database version.
func (store *Store) unlock(ctx context.Context) error {
	var n int64
	if err := store.conn.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return ErrIncorrectKey
	}

	version, err := pragma(ctx, store.conn, "user_version")
	if err != nil {
		return errors.Wrap(err, "cannot get database version")
	}
	store.layout, err = layoutFor(version)
	if err != nil {
		return err
	}
	store.version = int(version)
	return nil
}

// keyedDSN reads the key and returns the read-only DSN that applies it when
// a connection is opened. Every buffer that held key material except the
// returned one is wiped before returning.
func (store *Store) keyedDSN(dbPath string) ([]byte, error) {
	doc, err := readKeyFile(store.fs, filepath.Join(store.dir, ConfigFile))
	if err != nil {
		return nil, err
	}
	defer wipe(doc)

	start, end, err := extractString(doc, "key")
	if err != nil {
		return nil, errors.Wrap(err, "cannot get key")
	}

	dsn, err := keyDSN(readOnlyDSN(dbPath), doc[start:end])
	if err != nil {
		return nil, errors.Wrap(err, "cannot get key")
	}
	return dsn, nil
}

func isNotADB(err error) bool {
	var sqliteErr sqlite3.Error
	return errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrNotADB
}

func pragma(ctx context.Context, conn *sql.Conn, name string) (int64, error) {
	var i int64
	err := conn.QueryRowContext(ctx, "PRAGMA "+name).Scan(&i)
	return i, err
}

// Close releases the database and the recipient cache. It is safe to call
// more than once.
func (store *Store) Close() error {
	if store == nil || store.db == nil {
		return nil
	}
	connErr := store.conn.Close()
	dbErr := store.db.Close()
	store.conn = nil
	store.db = nil
	store.recipients = nil
	if connErr != nil {
		return connErr
	}
	return dbErr
}

func (store *Store) check() error {
	if store == nil || store.db == nil {
		return ErrClosed
	}
	return nil
}

// Version returns the database version.
func (store *Store) Version() int {
	return store.version
}

// Dir returns the Signal directory.
func (store *Store) Dir() string {
	return store.dir
}

// Stats returns counters collected since the store was opened.
func (store *Store) Stats() Stats {
	return store.stats
}

// Info counts conversations, messages and attachments.
func (store *Store) Info(ctx context.Context) (*Info, error) {
	if err := store.check(); err != nil {
		return nil, err
	}
	info := &Info{Directory: store.dir, Version: store.version}
	counts := []struct {
		query string
		dest  *int
	}{
		{"SELECT count(*) FROM conversations", &info.Conversations},
		{"SELECT count(*) FROM messages", &info.Messages},
		{"SELECT count(*) FROM messages WHERE hasAttachments = 1", &info.AttachmentMessages},
	}
	for _, c := range counts {
		if err := store.conn.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, errors.Wrapf(err, "cannot run %q", c.query)
		}
	}
	return info, nil
}
