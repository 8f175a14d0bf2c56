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
	"io"
	"unsafe"

	"github.com/pkg/errors"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
)

const (
	maxKeyFileSize = 2048
	maxKeyTokens   = 64
	maxKeyLength   = 128

	keyParamPrefix = "&_pragma_key=x'"
	keyParamSuffix = "'"
)

var (
	ErrKeyFileTooLarge = errors.New("key file too large")
	ErrKeyFileInvalid  = errors.New("key file is not a JSON object")
	ErrTooManyTokens   = errors.New("too many JSON tokens in key file")
	ErrKeyNotFound     = errors.New("key not found")
	ErrKeyNotString    = errors.New("key is not a string")
	ErrKeyTooLong      = errors.New("key too long")
	ErrKeyInvalid      = errors.New("key is not hex encoded")
)

// wipe overwrites secret material.
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// readKeyFile reads at most maxKeyFileSize bytes. The caller wipes the
// returned buffer.
func readKeyFile(fs afero.Fs, name string) ([]byte, error) {
	f, err := fs.Open(name)
	if err != nil {
		return nil, errors.Wrap(err, "cannot open key file")
	}
	defer f.Close()

	buf := make([]byte, maxKeyFileSize+1)
	n, err := io.ReadFull(f, buf)
	switch {
	case err == io.ErrUnexpectedEOF || err == io.EOF:
	case err != nil:
		wipe(buf)
		return nil, errors.Wrap(err, "cannot read key file")
	default:
		wipe(buf)
		return nil, ErrKeyFileTooLarge
	}
	return buf[:n], nil
}

// countTokens counts tokens the way a flat JSON tokenizer would: every
// object, array, key, string and primitive is one token. Counting stops
// once limit is exceeded.
func countTokens(value gjson.Result, count *int, limit int) {
	*count++
	if *count > limit {
		return
	}
	if !value.IsObject() && !value.IsArray() {
		return
	}
	isObject := value.IsObject()
	value.ForEach(func(_, child gjson.Result) bool {
		if isObject {
			*count++
		}
		countTokens(child, count, limit)
		return *count <= limit
	})
}

// extractString returns the byte range of the contents of the string
// value of field in the JSON object doc. No copy of doc is made.
func extractString(doc []byte, field string) (start, end int, err error) {
	if len(doc) > maxKeyFileSize {
		return 0, 0, ErrKeyFileTooLarge
	}
	if len(doc) == 0 || !gjson.ValidBytes(doc) {
		return 0, 0, ErrKeyFileInvalid
	}

	root := gjson.Parse(unsafe.String(&doc[0], len(doc)))
	if !root.IsObject() {
		return 0, 0, ErrKeyFileInvalid
	}

	count := 0
	countTokens(root, &count, maxKeyTokens)
	if count > maxKeyTokens {
		return 0, 0, ErrTooManyTokens
	}

	var value gjson.Result
	found := false
	root.ForEach(func(key, v gjson.Result) bool {
		if key.Str == field {
			value = v
			found = true
			return false
		}
		return true
	})
	if !found {
		return 0, 0, ErrKeyNotFound
	}
	if value.Type != gjson.String {
		return 0, 0, ErrKeyNotString
	}

	start = value.Index + 1
	end = value.Index + len(value.Raw) - 1
	if value.Index <= 0 || end > len(doc) || start > end || doc[start-1] != '"' || doc[end] != '"' {
		return 0, 0, ErrKeyFileInvalid
	}
	return start, end, nil
}

func isHex(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}

// keyDSN appends the raw hex key to dsn as the driver's key parameter. The
// caller wipes the returned buffer.
func keyDSN(dsn string, hex []byte) ([]byte, error) {
	if len(hex) == 0 {
		return nil, ErrKeyInvalid
	}
	if len(hex) > maxKeyLength {
		return nil, ErrKeyTooLong
	}
	for _, c := range hex {
		if !isHex(c) {
			return nil, ErrKeyInvalid
		}
	}

	buf := make([]byte, 0, len(dsn)+len(keyParamPrefix)+len(hex)+len(keyParamSuffix))
	buf = append(buf, dsn...)
	buf = append(buf, keyParamPrefix...)
	buf = append(buf, hex...)
	buf = append(buf, keyParamSuffix...)
	return buf, nil
}
