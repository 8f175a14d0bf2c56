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

package export

import (
	"fmt"
	"mime"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/gabriel-vasile/mimetype"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/signalstore"
)

const (
	maxNameLength   = 255
	maxUniqueSuffix = 999
	// room for "-999" so every collision candidate of a sanitized name fits
	maxBaseLength = maxNameLength - 4
	maxExtLength  = 16
)

var (
	ErrNoUniqueName = errors.New("cannot generate unique filename")
	ErrNameTooLong  = errors.New("filename too long")
)

type namespace interface {
	exists(name string) (bool, error)
}

// sanitize turns s into a single path segment.
func sanitize(s string) string {
	s = strings.ToValidUTF8(s, string(utf8.RuneError))
	s = strings.Map(func(r rune) rune {
		if r == '/' || r == '\\' || unicode.IsControl(r) {
			return '_'
		}
		return r
	}, s)
	if strings.Trim(s, ".") == "" {
		s = strings.Repeat("_", max(len(s), 1))
	}
	return shorten(s, maxBaseLength)
}

// shorten cuts name to n bytes on a rune boundary and keeps a short
// extension.
func shorten(name string, n int) string {
	if len(name) <= n {
		return name
	}
	base, ext := splitExt(name)
	if len(ext) > maxExtLength {
		base, ext = name, ""
	}
	cut := n - len(ext)
	for cut > 0 && !utf8.RuneStart(base[cut]) {
		cut--
	}
	return base[:cut] + ext
}

// splitExt splits at the last dot unless it leads or ends the name.
func splitExt(name string) (base, ext string) {
	i := strings.LastIndexByte(name, '.')
	if i <= 0 || i == len(name)-1 {
		return name, ""
	}
	return name[:i], name[i:]
}

// extension returns the file extension for a content type or "".
func extension(contentType string) string {
	if contentType == "" {
		return ""
	}
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.ToLower(strings.TrimSpace(contentType))
	}
	m := mimetype.Lookup(mediaType)
	if m == nil {
		return ""
	}
	return m.Extension()
}

// attachmentName returns the sanitized suggested filename or a name built
// from the sent time.
func attachmentName(att *signalstore.Attachment, loc *time.Location) string {
	if att.FileName.Valid && att.FileName.String != "" {
		return sanitize(att.FileName.String)
	}
	sent := time.UnixMilli(att.TimeSent).In(loc)
	return sent.Format("attachment-2006-01-02-15-04-05") + extension(att.ContentType.String)
}

// uniqueName returns name or the first free "base-N.ext" with N from 2 to
// 999.
func uniqueName(ns namespace, name string) (string, error) {
	if len(name) > maxNameLength {
		return "", errors.Wrap(ErrNameTooLong, name)
	}
	exists, err := ns.exists(name)
	if err != nil {
		return "", err
	}
	if !exists {
		return name, nil
	}

	base, ext := splitExt(name)
	for i := 2; i <= maxUniqueSuffix; i++ {
		candidate := fmt.Sprintf("%s-%d%s", base, i, ext)
		if len(candidate) > maxNameLength {
			return "", errors.Wrap(ErrNameTooLong, candidate)
		}
		exists, err := ns.exists(candidate)
		if err != nil {
			return "", err
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", errors.Wrap(ErrNoUniqueName, name)
}
