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

// Package signaltest creates encrypted Signal Desktop directories for tests.
package signaltest

import (
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlcipher"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "github.com/mutecomm/go-sqlcipher/v4" // sqlite3 driver with SQLCipher
	"github.com/pkg/errors"

	"github.com/forensicanalysis/signalstore/signaltest/migrations"
)

const keySize = 32

// Backup is a Signal directory under construction.
type Backup struct {
	Dir     string
	Key     string
	Version int

	db *sql.DB
}

// Contact describes a private conversation. Empty strings are stored as NULL.
type Contact struct {
	Name              string
	ProfileName       string
	ProfileFamilyName string
	ProfileFullName   string
	Phone             string
}

// Attachment describes an attachment record inside a message.
type Attachment struct {
	Path        string
	FileName    string
	ContentType string
	Size        int64
}

// Message describes a message row. Source is the sender's conversation id
// for version 19 databases, SourceUUID the sender's uuid for later ones.
type Message struct {
	ConversationID string
	Source         string
	SourceUUID     string
	Type           string
	Body           string
	SentAt         int64
	ReceivedAt     int64
	Attachments    []Attachment
	BodyRanges     []BodyRange
}

// BodyRange is a mention inside a message body.
type BodyRange struct {
	Start       int    `json:"start"`
	Length      int    `json:"length"`
	MentionUUID string `json:"mentionUuid,omitempty"`
}

// New creates a Signal directory in dir with a random key and an empty
// database of the given version.
func New(dir string, version int) (*Backup, error) {
	raw := make([]byte, keySize)
	if _, err := rand.Read(raw); err != nil {
		return nil, err
	}
	b := &Backup{Dir: dir, Key: hex.EncodeToString(raw), Version: version}

	if err := os.MkdirAll(filepath.Join(dir, "sql"), 0o755); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Join(dir, "attachments.noindex"), 0o755); err != nil {
		return nil, err
	}
	if err := b.WriteConfig(fmt.Sprintf("{\n  \"key\": %q\n}\n", b.Key)); err != nil {
		return nil, err
	}

	dsn := fmt.Sprintf("%s?_pragma_key=x'%s'&_pragma_cipher_page_size=4096",
		filepath.Join(dir, "sql", "db.sqlite"), b.Key)
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	b.db = db

	if err := b.migrate(); err != nil {
		b.Close() // nolint:errcheck
		return nil, err
	}
	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		b.Close() // nolint:errcheck
		return nil, err
	}
	return b, nil
}

// Setup creates a Backup in a temporary directory and closes it when the
// test ends.
func Setup(t testing.TB, version int) *Backup {
	t.Helper()
	b, err := New(t.TempDir(), version)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return b
}

// layout20 reports whether the database has the uuid columns.
func (b *Backup) layout20() bool {
	return b.Version >= 20
}

func (b *Backup) migrate() error {
	source, err := iofs.New(migrations.FS, ".")
	if err != nil {
		return errors.Wrap(err, "migration source")
	}
	driver, err := sqlcipher.WithInstance(b.db, &sqlcipher.Config{})
	if err != nil {
		return errors.Wrap(err, "migration driver")
	}
	m, err := migrate.NewWithInstance("iofs", source, "sqlcipher", driver)
	if err != nil {
		return errors.Wrap(err, "migration instance")
	}

	target := uint(1)
	if b.layout20() {
		target = 2
	}
	if err := m.Migrate(target); err != nil && err != migrate.ErrNoChange {
		return errors.Wrap(err, "migration")
	}
	return nil
}

// WriteConfig replaces config.json.
func (b *Backup) WriteConfig(content string) error {
	return os.WriteFile(filepath.Join(b.Dir, "config.json"), []byte(content), 0o600)
}

// WriteAttachment stores an attachment file under its relative path.
func (b *Backup) WriteAttachment(rel string, data []byte) error {
	name := filepath.Join(b.Dir, "attachments.noindex", filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return err
	}
	return os.WriteFile(name, data, 0o600)
}

// AddContact inserts a private conversation and returns its id and uuid.
func (b *Backup) AddContact(c Contact) (id, contactUUID string, err error) {
	id = uuid.NewString()
	contactUUID = uuid.NewString()
	err = b.insertConversation(id, contactUUID, "private", c.Name, c.ProfileName,
		c.ProfileFamilyName, c.ProfileFullName, c.Phone)
	return id, contactUUID, err
}

// AddGroup inserts a group conversation and returns its id.
func (b *Backup) AddGroup(name string) (string, error) {
	id := uuid.NewString()
	return id, b.insertConversation(id, "", "group", name, "", "", "", "")
}

// AddConversation inserts a conversation with an arbitrary type.
func (b *Backup) AddConversation(typ, name string) (string, error) {
	id := uuid.NewString()
	return id, b.insertConversation(id, "", typ, name, "", "", "", "")
}

func (b *Backup) insertConversation(id, conversationUUID, typ, name, profileName, profileFamilyName,
	profileFullName, phone string) error {
	columns := "id, type, name, profileName, profileFamilyName, profileFullName, e164"
	values := "?, ?, ?, ?, ?, ?, ?"
	args := []interface{}{id, typ, null(name), null(profileName), null(profileFamilyName),
		null(profileFullName), null(phone)}
	if b.layout20() {
		columns += ", uuid"
		values += ", ?"
		args = append(args, null(conversationUUID))
	}
	_, err := b.db.Exec("INSERT INTO conversations ("+columns+") VALUES ("+values+")", args...) // #nosec
	return errors.Wrap(err, "insert conversation")
}

type attachmentRecord struct {
	Path        string `json:"path,omitempty"`
	FileName    string `json:"fileName,omitempty"`
	ContentType string `json:"contentType,omitempty"`
	Size        int64  `json:"size"`
}

type messageRecord struct {
	ID             string             `json:"id"`
	ConversationID string             `json:"conversationId"`
	Type           string             `json:"type"`
	Body           string             `json:"body,omitempty"`
	SentAt         int64              `json:"sent_at"`
	ReceivedAt     int64              `json:"received_at"`
	Attachments    []attachmentRecord `json:"attachments"`
	BodyRanges     []BodyRange        `json:"bodyRanges,omitempty"`
}

// AddMessage inserts a message and returns its id.
func (b *Backup) AddMessage(m Message) (string, error) {
	record := messageRecord{
		ID:             uuid.NewString(),
		ConversationID: m.ConversationID,
		Type:           m.Type,
		Body:           m.Body,
		SentAt:         m.SentAt,
		ReceivedAt:     m.ReceivedAt,
		Attachments:    []attachmentRecord{},
		BodyRanges:     m.BodyRanges,
	}
	for _, att := range m.Attachments {
		record.Attachments = append(record.Attachments, attachmentRecord(att))
	}
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}

	hasAttachments := 0
	if len(m.Attachments) > 0 {
		hasAttachments = 1
	}

	columns := "id, json, conversationId, source, type, body, hasAttachments, sent_at, received_at"
	values := "?, ?, ?, ?, ?, ?, ?, ?, ?"
	args := []interface{}{record.ID, string(data), null(m.ConversationID), null(m.Source), m.Type,
		null(m.Body), hasAttachments, m.SentAt, m.ReceivedAt}
	if b.layout20() {
		columns += ", sourceUuid"
		values += ", ?"
		args = append(args, null(m.SourceUUID))
	}
	_, err = b.db.Exec("INSERT INTO messages ("+columns+") VALUES ("+values+")", args...) // #nosec
	return record.ID, errors.Wrap(err, "insert message")
}

// Close closes the database. The directory stays in place.
func (b *Backup) Close() error {
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func null(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
