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
	"sort"
	"strings"

	"github.com/pkg/errors"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

var ErrInvalidMention = errors.New("invalid mention")

// Messages returns all messages sent inside iv ordered by received time.
// Messages whose conversation cannot be resolved are dropped and counted in
// Stats.
func (store *Store) Messages(ctx context.Context, iv Interval) ([]*Message, error) {
	if err := store.check(); err != nil {
		return nil, err
	}
	if err := store.buildRecipients(ctx); err != nil {
		return nil, err
	}

	query, args := store.layout.messageQuery(iv)
	rows, err := store.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "cannot query messages")
	}
	defer rows.Close()

	messages := []*Message{}
	dropped := 0
	for rows.Next() {
		msg, err := store.scanMessage(ctx, rows)
		if err != nil {
			return nil, err
		}
		if msg == nil {
			dropped++
			continue
		}
		messages = append(messages, msg)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "cannot read messages")
	}

	if dropped > 0 {
		store.stats.DroppedMessages += dropped
		store.logger.Warn("dropped messages without conversation", zap.Int("count", dropped))
	}
	return messages, nil
}

// scanMessage returns nil if the conversation of the row is unknown.
func (store *Store) scanMessage(ctx context.Context, rows *sql.Rows) (*Message, error) {
	var conversationID, sourceID, typ sql.NullString
	msg := &Message{}
	err := rows.Scan(&conversationID, &sourceID, &typ, &msg.Body, &msg.JSON, &msg.TimeSent, &msg.TimeRecv)
	if err != nil {
		return nil, errors.Wrap(err, "cannot decode message")
	}
	msg.Type = typ.String

	if !conversationID.Valid {
		return nil, nil
	}
	conversation, ok := store.recipients.byID.Get(conversationID.String)
	if !ok {
		return nil, nil
	}
	msg.Conversation = conversation

	if sourceID.Valid {
		msg.Source, _ = store.recipients.byID.Get(sourceID.String)
	}

	if msg.JSON.Valid && store.layout.resolvesUUIDs() {
		msg.Mentions, err = store.mentions(ctx, msg.JSON.String)
		if err != nil {
			return nil, err
		}
	}
	return msg, nil
}

func (store *Store) mentions(ctx context.Context, record string) ([]Mention, error) {
	var mentions []Mention
	var err error
	gjson.Get(record, "bodyRanges").ForEach(func(_, r gjson.Result) bool {
		uuid := r.Get("mentionUuid")
		if !uuid.Exists() {
			return true
		}
		var rcp *Recipient
		rcp, err = store.recipientByUUID(ctx, uuid.String())
		if err != nil {
			return false
		}
		if rcp == nil {
			store.logger.Warn("cannot find mention recipient", zap.String("uuid", uuid.String()))
		}
		mentions = append(mentions, Mention{
			Start:     int(r.Get("start").Int()),
			Length:    int(r.Get("length").Int()),
			Recipient: rcp,
		})
		return true
	})
	return mentions, err
}

// Text returns the body with every mention replaced by "@" and the display
// name of the mentioned recipient.
func (m *Message) Text() (string, error) {
	if len(m.Mentions) == 0 {
		return m.Body.String, nil
	}

	mentions := make([]Mention, len(m.Mentions))
	copy(mentions, m.Mentions)
	sort.SliceStable(mentions, func(i, j int) bool { return mentions[i].Start < mentions[j].Start })

	runes := []rune(m.Body.String)
	var text strings.Builder
	off := 0
	for _, mnt := range mentions {
		if mnt.Start < off || mnt.Length < 0 || mnt.Start+mnt.Length > len(runes) {
			return "", ErrInvalidMention
		}
		text.WriteString(string(runes[off:mnt.Start]))
		text.WriteString("@" + mnt.Recipient.DisplayName())
		off = mnt.Start + mnt.Length
	}
	text.WriteString(string(runes[off:]))
	return text.String(), nil
}
