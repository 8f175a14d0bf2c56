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

//go:build linux

package export

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestDirMtime(t *testing.T) {
	mtime := time.Date(2020, 1, 2, 3, 4, 5, 123456789, time.UTC)
	path := t.TempDir()
	d, err := openDir(path)
	require.NoError(t, err)
	defer d.Close()

	require.NoError(t, d.copyFile(strings.NewReader("data"), "file", mtime))
	require.NoError(t, d.copyFile(strings.NewReader("data"), "plain", time.Time{}))
	require.NoError(t, d.symlink(filepath.Join(path, "file"), "link", mtime.Add(time.Hour)))

	tests := []struct {
		name string
		want time.Time
	}{
		{"file", mtime},
		{"link", mtime.Add(time.Hour)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var st unix.Stat_t
			require.NoError(t, unix.Lstat(filepath.Join(path, tt.name), &st))
			assert.Equal(t, tt.want.UnixNano(), time.Unix(st.Mtim.Unix()).UnixNano())
			assert.WithinDuration(t, time.Now(), time.Unix(st.Atim.Unix()), time.Hour)
		})
	}

	fi, err := os.Stat(filepath.Join(path, "plain"))
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now(), fi.ModTime(), time.Hour)

	assert.Error(t, d.copyFile(strings.NewReader("data"), "file", mtime))
}
