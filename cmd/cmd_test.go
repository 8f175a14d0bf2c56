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

package cmd

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forensicanalysis/signalstore/signaltest"
)

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	partial := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(partial, []byte("signal_dir = \"/backup/Signal\"\nmtime_mode = \"sent\"\n"), 0o600))
	invalid := filepath.Join(dir, "invalid.toml")
	require.NoError(t, os.WriteFile(invalid, []byte("signal_dir = "), 0o600))

	defaults := DefaultConfig()
	tests := []struct {
		name    string
		path    string
		want    *Config
		wantErr bool
	}{
		{"missing file", filepath.Join(dir, "missing.toml"), defaults, false},
		{"no path", "", defaults, false},
		{"partial", partial, &Config{
			SignalDir:  "/backup/Signal",
			ExportMode: "copy",
			MtimeMode:  "sent",
			Format:     "text",
			LogLevel:   "info",
		}, false},
		{"invalid", invalid, nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := LoadConfig(tt.path)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger("loud")
	assert.Error(t, err)
}

// fixture returns a Signal directory with one conversation, two messages and
// one downloaded attachment.
func fixture(t *testing.T) string {
	t.Helper()
	b := signaltest.Setup(t, 20)
	alice, _, err := b.AddContact(signaltest.Contact{Name: "Alice"})
	require.NoError(t, err)
	_, err = b.AddMessage(signaltest.Message{ConversationID: alice, Type: "incoming", Body: "hi", SentAt: 1000, ReceivedAt: 2000})
	require.NoError(t, err)
	_, err = b.AddMessage(signaltest.Message{ConversationID: alice, Type: "incoming", SentAt: 3000, ReceivedAt: 4000,
		Attachments: []signaltest.Attachment{{Path: "aa/aabb", FileName: "photo.jpg", Size: 3}}})
	require.NoError(t, err)
	require.NoError(t, b.WriteAttachment("aa/aabb", []byte("jpg")))
	require.NoError(t, b.Close())
	return b.Dir
}

func run(t *testing.T, command *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	command.SetOut(&out)
	command.SetErr(&out)
	args = append(args, "--config", filepath.Join(t.TempDir(), "none.toml"), "--log-level", "error")
	command.SetArgs(args)
	err := command.ExecuteContext(context.Background())
	return out.String(), err
}

func TestAttachmentsCommand(t *testing.T) {
	dir := fixture(t)
	dst := t.TempDir()

	out, err := run(t, Attachments(), "-d", dir, "-L", "-M", dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported: 1, skipped: 0, failed: 0")

	srcInfo, err := os.Stat(filepath.Join(dir, "attachments.noindex", "aa", "aabb"))
	require.NoError(t, err)
	dstInfo, err := os.Stat(filepath.Join(dst, "Alice", "photo.jpg"))
	require.NoError(t, err)
	assert.True(t, os.SameFile(srcInfo, dstInfo))

	_, err = run(t, Attachments(), "-d", dir, "-L", "-l", dst)
	assert.Error(t, err)

	_, err = run(t, Attachments(), "-d", dir, "-s", "not an interval", dst)
	assert.Error(t, err)
}

func TestAttachmentsCommandNewDestination(t *testing.T) {
	dir := fixture(t)
	dst := filepath.Join(t.TempDir(), "out")

	out, err := run(t, Attachments(), "-d", dir, dst)
	require.NoError(t, err)
	assert.Contains(t, out, "Exported: 1, skipped: 0, failed: 0")
	assert.FileExists(t, filepath.Join(dst, "Alice", "photo.jpg"))

	// a second run reuses the directory and picks new names
	_, err = run(t, Attachments(), "-d", dir, dst)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dst, "Alice", "photo-2.jpg"))

	_, err = run(t, Attachments(), "-d", dir, filepath.Join(t.TempDir(), "missing", "out"))
	assert.Error(t, err)
}

func TestAttachmentsCommandFailure(t *testing.T) {
	dir := fixture(t)
	require.NoError(t, os.Remove(filepath.Join(dir, "attachments.noindex", "aa", "aabb")))

	out, err := run(t, Attachments(), "-d", dir, t.TempDir())
	assert.Error(t, err)
	assert.Contains(t, out, "failed: 1")
}

func TestMessagesCommand(t *testing.T) {
	dir := fixture(t)
	path := filepath.Join(t.TempDir(), "messages.json")

	_, err := run(t, Messages(), "-d", dir, "-f", "json", path)
	require.NoError(t, err)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var records []map[string]interface{}
	require.NoError(t, json.Unmarshal(data, &records))
	assert.Len(t, records, 2)

	// existing files are not overwritten
	_, err = run(t, Messages(), "-d", dir, path)
	assert.Error(t, err)

	out, err := run(t, Messages(), "-d", dir, "-s", "1970-01-01T00:00:00,")
	require.NoError(t, err)
	assert.Contains(t, out, "Conversation: Alice")
	assert.Contains(t, out, "\nhi\n")
}

func TestConversationsCommand(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, Conversations(), "-d", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "\tcontact\tAlice\n")
}

func TestExportDatabaseCommand(t *testing.T) {
	dir := fixture(t)
	path := filepath.Join(t.TempDir(), "plain.db")

	out, err := run(t, ExportDatabase(), "-d", dir, path)
	require.NoError(t, err)
	assert.Contains(t, out, "(version 20)")
	assert.FileExists(t, path)

	_, err = run(t, ExportDatabase(), "-d", dir, path)
	assert.Error(t, err)
	assert.FileExists(t, path)
}

func TestCheckCommand(t *testing.T) {
	dir := fixture(t)
	out, err := run(t, Check(), "-d", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Version: 20")

	require.NoError(t, os.Remove(filepath.Join(dir, "attachments.noindex", "aa", "aabb")))
	out, err = run(t, Check(), "-d", dir)
	assert.Error(t, err)
	assert.Contains(t, out, "missing files")

	_, err = run(t, Check(), "-d", dir, "--no-fail")
	assert.NoError(t, err)
}

func TestShowConfig(t *testing.T) {
	out, err := run(t, ShowConfig(), "-d", "/somewhere/Signal")
	require.NoError(t, err)
	assert.Contains(t, out, `signal_dir = "/somewhere/Signal"`)
}
