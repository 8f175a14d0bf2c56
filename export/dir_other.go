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

//go:build !linux

package export

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
)

var errSymlinkTimes = errors.New("cannot set symlink times on this platform")

// dir is an open directory. Without *at calls names are joined to the
// directory path.
type dir struct {
	f    *os.File
	path string
}

func openDir(path string) (*dir, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	fi, err := f.Stat()
	if err != nil {
		f.Close() // nolint:errcheck
		return nil, err
	}
	if !fi.IsDir() {
		f.Close() // nolint:errcheck
		return nil, &os.PathError{Op: "open", Path: path, Err: errors.New("not a directory")}
	}
	return &dir{f: f, path: path}, nil
}

func (d *dir) mkdir(name string) (*dir, error) {
	if err := os.Mkdir(filepath.Join(d.path, name), 0o777); err != nil && !os.IsExist(err) {
		return nil, err
	}
	return openDir(filepath.Join(d.path, name))
}

func (d *dir) exists(name string) (bool, error) {
	_, err := os.Lstat(filepath.Join(d.path, name))
	switch {
	case err == nil:
		return true, nil
	case os.IsNotExist(err):
		return false, nil
	default:
		return false, err
	}
}

func (d *dir) copyFile(src io.Reader, name string, mtime time.Time) error {
	f, err := os.OpenFile(filepath.Join(d.path, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o666)
	if err != nil {
		return err
	}
	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(struct{ io.Writer }{f}, src, buf); err != nil {
		f.Close() // nolint:errcheck
		return errors.Wrapf(err, "cannot copy to %s", f.Name())
	}
	if err := f.Close(); err != nil {
		return err
	}
	if mtime.IsZero() {
		return nil
	}
	return os.Chtimes(f.Name(), time.Time{}, mtime)
}

func (d *dir) link(src, name string) error {
	return os.Link(src, filepath.Join(d.path, name))
}

func (d *dir) symlink(target, name string, mtime time.Time) error {
	if err := os.Symlink(target, filepath.Join(d.path, name)); err != nil {
		return err
	}
	if !mtime.IsZero() {
		return errSymlinkTimes
	}
	return nil
}

func (d *dir) Close() error {
	return d.f.Close()
}
