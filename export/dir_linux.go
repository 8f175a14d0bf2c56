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
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/sys/unix"
)

// dir is an open directory. Names passed to its methods are single path
// segments resolved relative to the directory descriptor.
type dir struct {
	fd   int
	path string
}

func openDir(path string) (*dir, error) {
	fd, err := unix.Open(path, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
	return &dir{fd: fd, path: path}, nil
}

// mkdir creates the subdirectory name if needed and opens it.
func (d *dir) mkdir(name string) (*dir, error) {
	if err := unix.Mkdirat(d.fd, name, 0o777); err != nil && err != unix.EEXIST {
		return nil, &os.PathError{Op: "mkdir", Path: filepath.Join(d.path, name), Err: err}
	}
	fd, err := unix.Openat(d.fd, name, unix.O_RDONLY|unix.O_DIRECTORY|unix.O_CLOEXEC, 0)
	if err != nil {
		return nil, &os.PathError{Op: "open", Path: filepath.Join(d.path, name), Err: err}
	}
	return &dir{fd: fd, path: filepath.Join(d.path, name)}, nil
}

// exists does not follow symlinks, so a dangling link still occupies its
// name.
func (d *dir) exists(name string) (bool, error) {
	var st unix.Stat_t
	err := unix.Fstatat(d.fd, name, &st, unix.AT_SYMLINK_NOFOLLOW)
	switch err {
	case nil:
		return true, nil
	case unix.ENOENT:
		return false, nil
	default:
		return false, &os.PathError{Op: "stat", Path: filepath.Join(d.path, name), Err: err}
	}
}

// copyFile creates name exclusively and fills it from src. A non-zero mtime
// is set once the file is closed.
func (d *dir) copyFile(src io.Reader, name string, mtime time.Time) error {
	fd, err := unix.Openat(d.fd, name, unix.O_WRONLY|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o666)
	if err != nil {
		return &os.PathError{Op: "create", Path: filepath.Join(d.path, name), Err: err}
	}
	f := os.NewFile(uintptr(fd), filepath.Join(d.path, name))

	buf := make([]byte, copyBufferSize)
	if _, err := io.CopyBuffer(struct{ io.Writer }{f}, src, buf); err != nil {
		f.Close() // nolint:errcheck
		return errors.Wrapf(err, "cannot copy to %s", f.Name())
	}
	if err := f.Close(); err != nil {
		return err
	}
	return d.setMtime(name, mtime, 0)
}

func (d *dir) link(src, name string) error {
	if err := unix.Linkat(unix.AT_FDCWD, src, d.fd, name, 0); err != nil {
		return &os.LinkError{Op: "link", Old: src, New: filepath.Join(d.path, name), Err: err}
	}
	return nil
}

// symlink sets a non-zero mtime on the link itself.
func (d *dir) symlink(target, name string, mtime time.Time) error {
	if err := unix.Symlinkat(target, d.fd, name); err != nil {
		return &os.LinkError{Op: "symlink", Old: target, New: filepath.Join(d.path, name), Err: err}
	}
	return d.setMtime(name, mtime, unix.AT_SYMLINK_NOFOLLOW)
}

// setMtime sets a non-zero mtime on name and leaves the access time
// untouched.
func (d *dir) setMtime(name string, mtime time.Time, flags int) error {
	if mtime.IsZero() {
		return nil
	}
	ts := [2]unix.Timespec{
		{Nsec: unix.UTIME_OMIT},
		unix.NsecToTimespec(mtime.UnixNano()),
	}
	if err := unix.UtimesNanoAt(d.fd, name, ts[:], flags); err != nil {
		return &os.PathError{Op: "utimensat", Path: filepath.Join(d.path, name), Err: err}
	}
	return nil
}

func (d *dir) Close() error {
	return unix.Close(d.fd)
}
