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
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func str(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

func TestRecipient_DisplayName(t *testing.T) {
	tests := []struct {
		name      string
		recipient *Recipient
		want      string
	}{
		{"name before joined name", &Recipient{Type: RecipientContact, Contact: &Contact{
			Name: str("Alice"), ProfileJoinedName: str("A. Smith"),
		}}, "Alice"},
		{"joined name", &Recipient{Type: RecipientContact, Contact: &Contact{
			ProfileJoinedName: str("A. Smith"), ProfileName: str("A."),
		}}, "A. Smith"},
		{"profile name", &Recipient{Type: RecipientContact, Contact: &Contact{
			ProfileName: str("A."), ProfileFamilyName: str("Smith"),
		}}, "A."},
		{"empty name is a name", &Recipient{Type: RecipientContact, Contact: &Contact{
			Name: str(""), ProfileJoinedName: str("A. Smith"),
		}}, ""},
		{"no contact names", &Recipient{Type: RecipientContact, Contact: &Contact{Phone: str("+15550100")}}, "Unknown"},
		{"group", &Recipient{Type: RecipientGroup, Group: &Group{Name: str("Friends")}}, "Friends"},
		{"group without name", &Recipient{Type: RecipientGroup, Group: &Group{}}, "Unknown"},
		{"group with empty name", &Recipient{Type: RecipientGroup, Group: &Group{Name: str("")}}, ""},
		{"nil", nil, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.recipient.DisplayName())
		})
	}
}

func TestMessage_Text(t *testing.T) {
	bob := &Recipient{Type: RecipientContact, Contact: &Contact{Name: str("Bob")}}
	carol := &Recipient{Type: RecipientContact, Contact: &Contact{Name: str("Carol")}}

	tests := []struct {
		name     string
		body     string
		mentions []Mention
		want     string
		wantErr  bool
	}{
		{"no mentions", "hello", nil, "hello", false},
		{"one mention", "￼ hi", []Mention{{Start: 0, Length: 1, Recipient: bob}}, "@Bob hi", false},
		{"unsorted", "ä ￼ and ￼!", []Mention{
			{Start: 8, Length: 1, Recipient: carol},
			{Start: 2, Length: 1, Recipient: bob},
		}, "ä @Bob and @Carol!", false},
		{"unknown recipient", "￼", []Mention{{Start: 0, Length: 1}}, "@Unknown", false},
		{"out of range", "hi", []Mention{{Start: 1, Length: 5, Recipient: bob}}, "", true},
		{"overlapping", "abcd", []Mention{
			{Start: 0, Length: 3, Recipient: bob},
			{Start: 1, Length: 1, Recipient: carol},
		}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := &Message{Body: str(tt.body), Mentions: tt.mentions}
			got, err := msg.Text()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidMention)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
