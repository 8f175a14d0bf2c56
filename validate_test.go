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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/signalstore/signaltest"
)

func TestValidate(t *testing.T) {
	b := signaltest.Setup(t, 20)
	alice, _ := addContact(t, b, signaltest.Contact{Name: "Alice"})
	addMessage(t, b, signaltest.Message{ConversationID: alice, Type: "incoming", SentAt: 1, ReceivedAt: 1,
		Attachments: []signaltest.Attachment{
			{Path: "aa/present", Size: 3},
			{Path: "bb/missing", Size: 3},
			{Path: "cc/short", Size: 10},
			{ContentType: "image/png"},
			{Path: "../escape"},
		}})
	require.NoError(t, b.WriteAttachment("aa/present", []byte("abc")))
	require.NoError(t, b.WriteAttachment("cc/short", []byte("abc")))
	store := open(t, b)

	flaws, err := store.Validate(context.Background())
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{
		"wrong size for cc/short (is 3, expected 10)",
		"invalid path ../escape",
		"missing files: ('bb/missing')",
	}, flaws)
}

func TestValidateClean(t *testing.T) {
	b := signaltest.Setup(t, 19)
	alice, _ := addContact(t, b, signaltest.Contact{Name: "Alice"})
	addMessage(t, b, signaltest.Message{ConversationID: alice, Type: "incoming", SentAt: 1, ReceivedAt: 1,
		Attachments: []signaltest.Attachment{{Path: "aa/present", Size: 3}}})
	require.NoError(t, b.WriteAttachment("aa/present", []byte("abc")))
	store := open(t, b)

	flaws, err := store.Validate(context.Background())
	require.NoError(t, err)
	assert.Empty(t, flaws)
}
