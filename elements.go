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

import "database/sql"

const unknownName = "Unknown"

// RecipientType distinguishes contacts from groups.
type RecipientType int

const (
	// RecipientContact is a single person.
	RecipientContact RecipientType = iota
	// RecipientGroup is a group conversation.
	RecipientGroup
)

func (t RecipientType) String() string {
	switch t {
	case RecipientContact:
		return "contact"
	case RecipientGroup:
		return "group"
	default:
		return "invalid"
	}
}

// Contact holds the names of a single person. Absent columns are invalid
// NullStrings, not empty strings.
type Contact struct {
	Name              sql.NullString
	ProfileName       sql.NullString
	ProfileFamilyName sql.NullString
	ProfileJoinedName sql.NullString
	Phone             sql.NullString
}

// Group holds the name of a group.
type Group struct {
	Name sql.NullString
}

// A Recipient is either a Contact or a Group. Exactly one of the two
// payloads is set, matching Type.
type Recipient struct {
	Type    RecipientType
	Contact *Contact
	Group   *Group
}

// DisplayName returns the first non-NULL name of the recipient. An empty
// name is returned as is.
func (r *Recipient) DisplayName() string {
	if r == nil {
		return unknownName
	}
	switch r.Type {
	case RecipientContact:
		if r.Contact == nil {
			return unknownName
		}
		return firstName(r.Contact.Name, r.Contact.ProfileJoinedName, r.Contact.ProfileName)
	case RecipientGroup:
		if r.Group == nil {
			return unknownName
		}
		return firstName(r.Group.Name)
	}
	return unknownName
}

func firstName(names ...sql.NullString) string {
	for _, name := range names {
		if name.Valid {
			return name.String
		}
	}
	return unknownName
}

// Conversation is the thread of one recipient.
type Conversation struct {
	ID        string
	Recipient *Recipient
}

// Mention references a recipient inside a message body. Start and Length
// count runes in the stored body.
type Mention struct {
	Start     int
	Length    int
	Recipient *Recipient
}

// Message is a single stored message. Times are milliseconds since the
// Unix epoch.
type Message struct {
	Conversation *Recipient
	Source       *Recipient
	Type         string
	Body         sql.NullString
	JSON         sql.NullString
	TimeSent     int64
	TimeRecv     int64
	Mentions     []Mention
}

// IsOutgoing reports whether the message was sent from this device.
func (m *Message) IsOutgoing() bool {
	return m.Type == "outgoing"
}

// Attachment is a file attached to a message. Path is the relative path
// below the attachment directory and is invalid if Signal never downloaded
// the file.
type Attachment struct {
	Path        sql.NullString
	FileName    sql.NullString
	ContentType sql.NullString
	Size        int64
	TimeSent    int64
	TimeRecv    int64
}

// Stats counts internal events of a Store.
type Stats struct {
	// RecipientBuilds is the number of times the recipient cache was built.
	RecipientBuilds int
	// DroppedMessages is the number of message rows without a resolvable
	// conversation.
	DroppedMessages int
}

// Info summarises the contents of a Signal directory.
type Info struct {
	Directory          string
	Version            int
	Conversations      int
	Messages           int
	AttachmentMessages int
}
