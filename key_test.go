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
	"fmt"
	"strings"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func manyKeys(n int) string {
	var fields []string
	for i := 0; i < n; i++ {
		fields = append(fields, fmt.Sprintf(`"k%d":%d`, i, i))
	}
	return "{" + strings.Join(fields, ",") + "}"
}

func TestExtractString(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		want    string
		wantErr error
	}{
		{"only key", `{"key":"0123abcd"}`, "0123abcd", nil},
		{"whitespace", "{\n  \"key\": \"0123abcd\"\n}\n", "0123abcd", nil},
		{"other fields", `{"a":[1,2,{"key":"x"}],"key":"ff","b":null}`, "ff", nil},
		{"first match", `{"key":"aa","key":"bb"}`, "aa", nil},
		{"nested key ignored", `{"a":{"key":"aa"}}`, "", ErrKeyNotFound},
		{"missing", `{"mediaPermissions":true}`, "", ErrKeyNotFound},
		{"number", `{"key":42}`, "", ErrKeyNotString},
		{"object", `{"key":{}}`, "", ErrKeyNotString},
		{"array root", `["key","aa"]`, "", ErrKeyFileInvalid},
		{"string root", `"key"`, "", ErrKeyFileInvalid},
		{"truncated", `{"key":"aa"`, "", ErrKeyFileInvalid},
		{"trailing garbage", `{"key":"aa"} x`, "", ErrKeyFileInvalid},
		{"empty", ``, "", ErrKeyFileInvalid},
		{"too large", `{"key":"` + strings.Repeat("a", maxKeyFileSize) + `"}`, "", ErrKeyFileTooLarge},
		{"token limit", manyKeys(31), "", ErrKeyNotFound},
		{"too many tokens", manyKeys(32), "", ErrTooManyTokens},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := []byte(tt.doc)
			start, end, err := extractString(doc, "key")
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(doc[start:end]))
		})
	}
}

func TestKeyDSN(t *testing.T) {
	const dsn = "file:/signal/sql/db.sqlite?mode=ro"
	tests := []struct {
		name    string
		hex     string
		want    string
		wantErr error
	}{
		{"hex", "00ffAB", dsn + "&_pragma_key=x'00ffAB'", nil},
		{"full key", strings.Repeat("a", 64), dsn + "&_pragma_key=x'" + strings.Repeat("a", 64) + "'", nil},
		{"largest", strings.Repeat("a", maxKeyLength), dsn + "&_pragma_key=x'" + strings.Repeat("a", maxKeyLength) + "'", nil},
		{"overflow", strings.Repeat("a", maxKeyLength+1), "", ErrKeyTooLong},
		{"quote", `aa'; DROP`, "", ErrKeyInvalid},
		{"parameter", "aa&mode=rw", "", ErrKeyInvalid},
		{"empty", "", "", ErrKeyInvalid},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := keyDSN(dsn, []byte(tt.hex))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				assert.Nil(t, got)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestWipe(t *testing.T) {
	b := []byte("secret")
	wipe(b)
	assert.Equal(t, make([]byte, 6), b)
}

func TestReadKeyFile(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/ok.json", []byte(`{"key":"aa"}`), 0o600))
	require.NoError(t, afero.WriteFile(fs, "/large.json", make([]byte, maxKeyFileSize+1), 0o600))

	doc, err := readKeyFile(fs, "/ok.json")
	require.NoError(t, err)
	assert.Equal(t, `{"key":"aa"}`, string(doc))

	_, err = readKeyFile(fs, "/large.json")
	assert.ErrorIs(t, err, ErrKeyFileTooLarge)

	_, err = readKeyFile(fs, "/missing.json")
	assert.Error(t, err)
}
