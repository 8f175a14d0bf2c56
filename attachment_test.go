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
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/signalstore/signaltest"
)

func TestAttachments(t *testing.T) {
	b := signaltest.Setup(t, 20)
	alice, _ := addContact(t, b, signaltest.Contact{Name: "Alice"})
	bob, _ := addContact(t, b, signaltest.Contact{Name: "Bob"})
	addMessage(t, b, signaltest.Message{ConversationID: alice, Type: "incoming", SentAt: 100, ReceivedAt: 101,
		Attachments: []signaltest.Attachment{
			{Path: "aa/aabb", FileName: "photo.jpg", ContentType: "image/jpeg", Size: 3},
			{ContentType: "image/png", Size: 10},
		}})
	addMessage(t, b, signaltest.Message{ConversationID: alice, Type: "incoming", Body: "no attachment", SentAt: 200, ReceivedAt: 201})
	addMessage(t, b, signaltest.Message{ConversationID: alice, Type: "outgoing", SentAt: 300, ReceivedAt: 301,
		Attachments: []signaltest.Attachment{{Path: "cc/ccdd", Size: 5}}})
	addMessage(t, b, signaltest.Message{ConversationID: bob, Type: "incoming", SentAt: 400, ReceivedAt: 401,
		Attachments: []signaltest.Attachment{{Path: "ee/eeff"}}})
	store := open(t, b)
	ctx := context.Background()

	cnv := &Conversation{ID: alice}
	attachments, err := store.Attachments(ctx, cnv, Interval{})
	require.NoError(t, err)
	require.Len(t, attachments, 3)

	assert.Equal(t, "aa/aabb", attachments[0].Path.String)
	assert.Equal(t, "photo.jpg", attachments[0].FileName.String)
	assert.Equal(t, "image/jpeg", attachments[0].ContentType.String)
	assert.Equal(t, int64(3), attachments[0].Size)
	assert.Equal(t, int64(100), attachments[0].TimeSent)
	assert.Equal(t, int64(101), attachments[0].TimeRecv)

	assert.False(t, attachments[1].Path.Valid)
	assert.False(t, attachments[1].FileName.Valid)
	assert.Equal(t, int64(100), attachments[1].TimeSent)

	assert.Equal(t, int64(300), attachments[2].TimeSent)

	attachments, err = store.Attachments(ctx, cnv, Interval{Min: time.UnixMilli(150)})
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "cc/ccdd", attachments[0].Path.String)

	attachments, err = store.Attachments(ctx, cnv, Interval{Max: time.UnixMilli(150)})
	require.NoError(t, err)
	assert.Len(t, attachments, 2)
}

func TestAttachmentPath(t *testing.T) {
	b := signaltest.Setup(t, 19)
	store := open(t, b)

	tests := []struct {
		name    string
		path    sql.NullString
		want    string
		wantErr bool
	}{
		{"relative", str("aa/aabb"), filepath.Join(b.Dir, AttachmentsDir, "aa", "aabb"), false},
		{"absent", sql.NullString{}, "", false},
		{"empty", str(""), "", false},
		{"parent", str("../config.json"), "", true},
		{"absolute", str("/etc/passwd"), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.AttachmentPath(&Attachment{Path: tt.path})
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidAttachmentPath)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
