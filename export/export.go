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

// Package export writes the attachments of a Signal database into a
// directory tree with one directory per conversation.
package export

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/forensicanalysis/signalstore"
)

const copyBufferSize = 1 << 20

var ErrSourceNotExist = errors.New("attachment file does not exist")

// Mode is the way attachment files are materialized.
type Mode int

const (
	// Copy copies the attachment file.
	Copy Mode = iota
	// HardLink creates a hard link to the attachment file.
	HardLink
	// Symlink creates a symbolic link to the absolute attachment path.
	Symlink
)

// ParseMode parses "copy", "link" or "symlink".
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(s) {
	case "", "copy":
		return Copy, nil
	case "link", "hardlink":
		return HardLink, nil
	case "symlink":
		return Symlink, nil
	}
	return Copy, errors.Errorf("unknown export mode %q", s)
}

func (m Mode) String() string {
	switch m {
	case HardLink:
		return "link"
	case Symlink:
		return "symlink"
	default:
		return "copy"
	}
}

// MtimeMode selects the modification time of exported files.
type MtimeMode int

const (
	// MtimeNone keeps the time assigned by the filesystem.
	MtimeNone MtimeMode = iota
	// MtimeSent uses the time the message was sent.
	MtimeSent
	// MtimeReceived uses the time the message was received.
	MtimeReceived
)

// ParseMtimeMode parses "none", "sent" or "received".
func ParseMtimeMode(s string) (MtimeMode, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return MtimeNone, nil
	case "sent":
		return MtimeSent, nil
	case "received":
		return MtimeReceived, nil
	}
	return MtimeNone, errors.Errorf("unknown mtime mode %q", s)
}

func (m MtimeMode) String() string {
	switch m {
	case MtimeSent:
		return "sent"
	case MtimeReceived:
		return "received"
	default:
		return "none"
	}
}

// Source provides conversations and their attachments. *signalstore.Store
// implements it.
type Source interface {
	Conversations(ctx context.Context) ([]*signalstore.Conversation, error)
	Attachments(ctx context.Context, cnv *signalstore.Conversation, iv signalstore.Interval) ([]*signalstore.Attachment, error)
	AttachmentPath(att *signalstore.Attachment) (string, error)
}

// Options configure Run.
type Options struct {
	Mode     Mode
	Mtime    MtimeMode
	Interval signalstore.Interval
	// Location is used for generated file names. Defaults to time.Local.
	Location *time.Location
	// Fs is used to check and read attachment files. Defaults to the
	// operating system.
	Fs     afero.Fs
	Logger *zap.Logger
}

// Result summarises an export.
type Result struct {
	Exported int
	Skipped  int
	Failed   int
	Paths    []string
}

// OK reports whether every attachment was exported or skipped.
func (r *Result) OK() bool {
	return r.Failed == 0
}

type exporter struct {
	src    Source
	opts   Options
	result *Result
}

// Run exports the attachments of every conversation into dst. Failures of
// single attachments are logged and counted, the export continues. The
// returned error is only set if the export could not run at all or ctx was
// canceled.
func Run(ctx context.Context, src Source, dst string, opts Options) (*Result, error) {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}

	root, err := openDir(dst)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open destination")
	}
	defer root.Close()

	conversations, err := src.Conversations(ctx)
	if err != nil {
		return nil, err
	}

	e := &exporter{src: src, opts: opts, result: &Result{}}
	for _, cnv := range conversations {
		if err := ctx.Err(); err != nil {
			return e.result, err
		}
		if err := e.exportConversation(ctx, root, cnv); err != nil {
			return e.result, err
		}
	}
	return e.result, nil
}

// exportConversation returns an error only if ctx is done.
func (e *exporter) exportConversation(ctx context.Context, root *dir, cnv *signalstore.Conversation) error {
	log := e.opts.Logger.With(zap.String("conversation", cnv.Recipient.DisplayName()))

	attachments, err := e.src.Attachments(ctx, cnv, e.opts.Interval)
	if err != nil {
		log.Error("cannot get attachments", zap.Error(err))
		e.result.Failed++
		return nil
	}
	if len(attachments) == 0 {
		return nil
	}

	d, err := root.mkdir(sanitize(cnv.Recipient.DisplayName()))
	if err != nil {
		log.Error("cannot create directory", zap.Error(err))
		e.result.Failed++
		return nil
	}
	defer d.Close()

	for _, att := range attachments {
		if err := ctx.Err(); err != nil {
			return err
		}
		path, err := e.exportAttachment(d, att)
		switch {
		case err != nil:
			log.Error("cannot export attachment", zap.Int64("sent", att.TimeSent), zap.Error(err))
			e.result.Failed++
		case path == "":
			log.Warn("Skipping attachment; possibly it was not downloaded by Signal", zap.Int64("sent", att.TimeSent))
			e.result.Skipped++
		default:
			log.Debug("exported attachment", zap.String("path", path))
			e.result.Exported++
			e.result.Paths = append(e.result.Paths, path)
		}
	}
	return nil
}

// exportAttachment returns the created path, or "" if the attachment was
// never downloaded.
func (e *exporter) exportAttachment(d *dir, att *signalstore.Attachment) (string, error) {
	src, err := e.src.AttachmentPath(att)
	if err != nil {
		return "", err
	}
	if src == "" {
		return "", nil
	}

	exists, err := afero.Exists(e.opts.Fs, src)
	if err != nil {
		return "", err
	}
	if !exists {
		return "", errors.Wrap(ErrSourceNotExist, src)
	}

	name, err := uniqueName(d, attachmentName(att, e.opts.Location))
	if err != nil {
		return "", err
	}
	mtime := e.mtime(att)

	switch e.opts.Mode {
	case HardLink:
		err = d.link(src, name)
	case Symlink:
		var target string
		target, err = filepath.Abs(src)
		if err == nil {
			err = d.symlink(target, name, mtime)
		}
	default:
		err = e.copy(d, src, name, mtime)
	}
	if err != nil {
		return "", err
	}
	return filepath.Join(d.path, name), nil
}

func (e *exporter) copy(d *dir, src, name string, mtime time.Time) error {
	f, err := e.opts.Fs.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return d.copyFile(f, name, mtime)
}

// mtime returns the zero time if no time is to be set.
func (e *exporter) mtime(att *signalstore.Attachment) time.Time {
	switch e.opts.Mtime {
	case MtimeSent:
		return time.UnixMilli(att.TimeSent)
	case MtimeReceived:
		return time.UnixMilli(att.TimeRecv)
	default:
		return time.Time{}
	}
}
