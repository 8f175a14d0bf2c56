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

	"github.com/pkg/errors"
	"github.com/tidwall/btree"
	"go.uber.org/zap"
)

var ErrRecipientNotFound = errors.New("recipient not found")

const (
	privateType = "private"
	groupType   = "group"
)

// recipientCache maps conversation ids, and at layout20 also conversation
// uuids, to recipients.
type recipientCache struct {
	byID   btree.Map[string, *Recipient]
	byUUID btree.Map[string, *Recipient]
}

// buildRecipients fills the cache once per session. On error the partial
// cache is discarded.
func (store *Store) buildRecipients(ctx context.Context) error {
	if store.recipients != nil {
		return nil
	}

	rows, err := store.conn.QueryContext(ctx, store.layout.recipientQuery())
	if err != nil {
		return errors.Wrap(err, "cannot query recipients")
	}
	defer rows.Close()

	cache := &recipientCache{}
	for rows.Next() {
		id, uuid, rcp, err := scanRecipient(rows)
		if err != nil {
			return err
		}
		cache.byID.Set(id, rcp)
		if uuid.Valid && uuid.String != "" {
			cache.byUUID.Set(uuid.String, rcp)
		}
	}
	if err := rows.Err(); err != nil {
		return errors.Wrap(err, "cannot read recipients")
	}

	store.recipients = cache
	store.stats.RecipientBuilds++
	store.logger.Debug("built recipient cache", zap.Int("recipients", cache.byID.Len()))
	return nil
}

func scanRecipient(rows *sql.Rows) (id string, uuid sql.NullString, rcp *Recipient, err error) {
	var typ, name, profileName, profileFamilyName, profileFullName, phone sql.NullString
	err = rows.Scan(&id, &typ, &name, &profileName, &profileFamilyName, &profileFullName, &phone, &uuid)
	if err != nil {
		return "", uuid, nil, errors.Wrap(err, "cannot decode recipient")
	}

	switch typ.String {
	case privateType:
		rcp = &Recipient{Type: RecipientContact, Contact: &Contact{
			Name:              name,
			ProfileName:       profileName,
			ProfileFamilyName: profileFamilyName,
			ProfileJoinedName: profileFullName,
			Phone:             phone,
		}}
	case groupType:
		rcp = &Recipient{Type: RecipientGroup, Group: &Group{Name: name}}
	default:
		return "", uuid, nil, errors.Errorf("unknown recipient type %q for conversation %s", typ.String, id)
	}
	return id, uuid, rcp, nil
}

// Recipient returns the recipient of the conversation id.
func (store *Store) Recipient(ctx context.Context, id string) (*Recipient, error) {
	if err := store.check(); err != nil {
		return nil, err
	}
	if err := store.buildRecipients(ctx); err != nil {
		return nil, err
	}
	rcp, ok := store.recipients.byID.Get(id)
	if !ok {
		return nil, errors.Wrap(ErrRecipientNotFound, id)
	}
	return rcp, nil
}

// recipientByUUID returns nil if uuid is unknown or the layout has no uuids.
func (store *Store) recipientByUUID(ctx context.Context, uuid string) (*Recipient, error) {
	if !store.layout.resolvesUUIDs() {
		return nil, nil
	}
	if err := store.buildRecipients(ctx); err != nil {
		return nil, err
	}
	rcp, _ := store.recipients.byUUID.Get(uuid)
	return rcp, nil
}

// Conversations returns all conversations ordered by id.
func (store *Store) Conversations(ctx context.Context) ([]*Conversation, error) {
	if err := store.check(); err != nil {
		return nil, err
	}
	if err := store.buildRecipients(ctx); err != nil {
		return nil, err
	}
	conversations := make([]*Conversation, 0, store.recipients.byID.Len())
	store.recipients.byID.Scan(func(id string, rcp *Recipient) bool {
		conversations = append(conversations, &Conversation{ID: id, Recipient: rcp})
		return true
	})
	return conversations, nil
}
