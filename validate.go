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
	"fmt"
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
)

// Validate checks the database for corruption and the attachment directory
// for missing or truncated files. Attachments that were never downloaded
// are not flaws.
func (store *Store) Validate(ctx context.Context) (flaws []string, err error) {
	if err := store.check(); err != nil {
		return nil, err
	}
	flaws = []string{}

	integrity, err := store.integrityCheck(ctx)
	if err != nil {
		return nil, err
	}
	flaws = append(flaws, integrity...)

	conversations, err := store.Conversations(ctx)
	if err != nil {
		return nil, err
	}

	var missingFiles []string
	for _, cnv := range conversations {
		attachments, err := store.Attachments(ctx, cnv, Interval{})
		if err != nil {
			return nil, err
		}
		for _, att := range attachments {
			path, err := store.AttachmentPath(att)
			if err != nil {
				flaws = append(flaws, fmt.Sprintf("invalid path %s", att.Path.String))
				continue
			}
			if path == "" {
				continue
			}

			exists, err := afero.Exists(store.fs, path)
			if err != nil {
				return nil, err
			}
			if !exists {
				missingFiles = append(missingFiles, att.Path.String)
				continue
			}

			fi, err := store.fs.Stat(path)
			if err != nil {
				return nil, err
			}
			if att.Size > 0 && fi.Size() != att.Size {
				flaws = append(flaws, fmt.Sprintf("wrong size for %s (is %d, expected %d)", att.Path.String, fi.Size(), att.Size))
			}
		}
	}

	if len(missingFiles) > 0 {
		sort.Strings(missingFiles)
		flaws = append(flaws, fmt.Sprintf("missing files: ('%s')", strings.Join(missingFiles, "', '")))
	}
	return flaws, nil
}

func (store *Store) integrityCheck(ctx context.Context) ([]string, error) {
	rows, err := store.conn.QueryContext(ctx, "PRAGMA integrity_check")
	if err != nil {
		return nil, errors.Wrap(err, "cannot check integrity")
	}
	defer rows.Close()

	var flaws []string
	for rows.Next() {
		var result string
		if err := rows.Scan(&result); err != nil {
			return nil, err
		}
		if result != "ok" {
			flaws = append(flaws, "integrity: "+result)
		}
	}
	return flaws, rows.Err()
}
