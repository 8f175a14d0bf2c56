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

import "github.com/pkg/errors"

const (
	minVersion      = 19
	uuidJoinVersion = 20
)

var (
	ErrUnsupportedVersion = errors.New("unsupported database version")
	ErrInvalidVersion     = errors.New("invalid database version")
)

// schemaLayout selects the queries for a database version. It is resolved
// once when the store is opened.
type schemaLayout int

const (
	layout19 schemaLayout = iota
	layout20
)

func layoutFor(version int64) (schemaLayout, error) {
	switch {
	case version < 0:
		return 0, errors.Wrapf(ErrInvalidVersion, "version %d", version)
	case version < minVersion:
		return 0, errors.Wrapf(ErrUnsupportedVersion, "version %d", version)
	case version < uuidJoinVersion:
		return layout19, nil
	default:
		return layout20, nil
	}
}

// resolvesUUIDs reports whether conversations carry a uuid that messages
// reference.
func (l schemaLayout) resolvesUUIDs() bool {
	return l >= layout20
}

func (l schemaLayout) recipientQuery() string {
	if l.resolvesUUIDs() {
		return "SELECT id, type, name, profileName, profileFamilyName, profileFullName, e164, uuid " +
			"FROM conversations"
	}
	return "SELECT id, type, name, profileName, profileFamilyName, profileFullName, NULL, NULL " +
		"FROM conversations"
}

// messageQuery returns the message query restricted by iv.
func (l schemaLayout) messageQuery(iv Interval) (string, []interface{}) {
	if l.resolvesUUIDs() {
		where, args := iv.where("m.sent_at")
		query := "SELECT m.conversationId, c.id, m.type, m.body, m.json, m.sent_at, m.received_at " +
			"FROM messages AS m " +
			"LEFT JOIN conversations AS c ON m.sourceUuid = c.uuid"
		if where != "" {
			query += " WHERE " + where
		}
		return query + " ORDER BY m.received_at", args
	}

	where, args := iv.where("sent_at")
	query := "SELECT conversationId, source, type, body, json, sent_at, received_at FROM messages"
	if where != "" {
		query += " WHERE " + where
	}
	return query + " ORDER BY received_at", args
}

// attachmentQuery returns the query for messages with attachments in one
// conversation. Both layouts share it.
func (l schemaLayout) attachmentQuery(conversationID string, iv Interval) (string, []interface{}) {
	query := "SELECT json, sent_at, received_at FROM messages WHERE conversationId = ? AND hasAttachments = 1"
	args := []interface{}{conversationID}
	if where, whereArgs := iv.where("sent_at"); where != "" {
		query += " AND " + where
		args = append(args, whereArgs...)
	}
	return query + " ORDER BY received_at", args
}
