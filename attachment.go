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
	"path/filepath"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
)

var ErrInvalidAttachmentPath = errors.New("invalid attachment path")

// Attachments returns the attachments of all messages of a conversation
// sent inside iv, ordered by received time.
func (store *Store) Attachments(ctx context.Context, cnv *Conversation, iv Interval) ([]*Attachment, error) {
	if err := store.check(); err != nil {
		return nil, err
	}

	query, args := store.layout.attachmentQuery(cnv.ID, iv)
	rows, err := store.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot query attachments")
	}
	defer rows.Close()

	attachments := []*Attachment{}
	for rows.Next() {
		var record sql.NullString
		var sent, received int64
		if err := rows.Scan(&record, &sent, &received); err != nil {
			return nil, errors.Wrap(err, "cannot decode attachment message")
		}
		if !record.Valid {
			continue
		}
		gjson.Get(record.String, "attachments").ForEach(func(_, value gjson.Result) bool {
			attachments = append(attachments, &Attachment{
				Path:        nullString(value.Get("path")),
				FileName:    nullString(value.Get("fileName")),
				ContentType: nullString(value.Get("contentType")),
				Size:        value.Get("size").Int(),
				TimeSent:    sent,
				TimeRecv:    received,
			})
			return true
		})
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read attachments")
	}
	return attachments, nil
}

func nullString(value gjson.Result) sql.NullString {
	if value.Type != gjson.String {
		return sql.NullString{}
	}
	return sql.NullString{String: value.Str, Valid: true}
}

// AttachmentPath returns the location of the attachment file. An empty
// path without error means Signal never downloaded the attachment.
func (store *Store) AttachmentPath(att *Attachment) (string, error) {
	if !att.Path.Valid || att.Path.String == "" {
		return "", nil
	}
	rel := filepath.FromSlash(att.Path.String)
	if !filepath.IsLocal(rel) {
		return "", errors.Wrap(ErrInvalidAttachmentPath, att.Path.String)
	}
	return filepath.Join(store.dir, AttachmentsDir, rel), nil
}
