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
	"fmt"

	sqlite3 "github.com/mutecomm/go-sqlcipher/v4"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	_ "modernc.org/sqlite" // plain sqlite driver
)

const plainDriverName = "sqlite"

// WriteDatabase writes an unencrypted copy of the database to path. The
// database is first copied into an in-memory database and then exported in
// one transaction, so a failure leaves no partial copy behind.
func (store *Store) WriteDatabase(ctx context.Context, path string) error {
	if err := store.check(); err != nil {
		return err
	}

	mem, err := sql.Open(driverName, ":memory:")
	if err != nil {
		return errors.Wrap(err, "cannot open in-memory database")
	}
	defer mem.Close()
	mem.SetMaxOpenConns(1)

	conn, err := mem.Conn(ctx)
	if err != nil {
		return errors.Wrap(err, "cannot open in-memory database")
	}
	defer conn.Close()

	// Any key works, it only makes the in-memory database encrypted.
	if _, err := conn.ExecContext(ctx, "PRAGMA key = 'x'"); err != nil {
		return errors.Wrap(err, "cannot set key")
	}

	if err := store.backup(conn); err != nil {
		return err
	}

	if _, err := conn.ExecContext(ctx, "ATTACH DATABASE ? AS plaintext KEY ''", path); err != nil {
		return errors.Wrap(err, "cannot attach database")
	}

	statements := []string{
		"BEGIN TRANSACTION",
		"SELECT sqlcipher_export('plaintext')",
		fmt.Sprintf("PRAGMA plaintext.user_version = %d", store.version),
		"END TRANSACTION",
	}
	for _, stmt := range statements {
		if _, err := conn.ExecContext(ctx, stmt); err != nil {
			conn.ExecContext(ctx, "ROLLBACK")                 // nolint:errcheck
			conn.ExecContext(ctx, "DETACH DATABASE plaintext") // nolint:errcheck
			return errors.Wrapf(err, "cannot export database (%s)", stmt)
		}
	}

	if _, err := conn.ExecContext(ctx, "DETACH DATABASE plaintext"); err != nil {
		return errors.Wrap(err, "cannot detach database")
	}
	store.logger.Debug("wrote plaintext database", zap.String("path", path))
	return nil
}

// backup copies all pages of the store into dst.
func (store *Store) backup(dst *sql.Conn) error {
	return dst.Raw(func(dstDriverConn interface{}) error {
		return store.conn.Raw(func(srcDriverConn interface{}) error {
			dstConn, ok := dstDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("unexpected driver connection")
			}
			srcConn, ok := srcDriverConn.(*sqlite3.SQLiteConn)
			if !ok {
				return errors.New("unexpected driver connection")
			}

			b, err := dstConn.Backup("main", srcConn, "main")
			if err != nil {
				return errors.Wrap(err, "cannot start backup")
			}
			done, err := b.Step(-1)
			if err != nil {
				b.Finish() // nolint:errcheck
				return errors.Wrap(err, "cannot copy database")
			}
			if !done {
				b.Finish() // nolint:errcheck
				return errors.New("incomplete database copy")
			}
			return errors.Wrap(b.Finish(), "cannot finish backup")
		})
	})
}

// VerifyDatabase opens an unencrypted database with a plain SQLite reader
// and returns its version.
func VerifyDatabase(ctx context.Context, path string) (int, error) {
	db, err := sql.Open(plainDriverName, readOnlyDSN(path))
	if err != nil {
		return 0, errors.Wrap(err, "cannot open database")
	}
	defer db.Close()

	conn, err := db.Conn(ctx)
	if err != nil {
		return 0, errors.Wrap(err, "cannot open database")
	}
	defer conn.Close()

	var n int64
	if err := conn.QueryRowContext(ctx, "SELECT count(*) FROM sqlite_master").Scan(&n); err != nil {
		return 0, errors.Wrap(err, "cannot read database")
	}
	version, err := pragma(ctx, conn, "user_version")
	if err != nil {
		return 0, errors.Wrap(err, "cannot get database version")
	}
	return int(version), nil
}
