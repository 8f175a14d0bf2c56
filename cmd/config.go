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
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/BurntSushi/toml"
	"github.com/imdario/mergo"
	"github.com/pkg/errors"
)

// Config represents the optional signalstore/config.toml in the user's
// configuration directory.
type Config struct {
	SignalDir  string `toml:"signal_dir"`
	ExportMode string `toml:"export_mode"`
	MtimeMode  string `toml:"mtime_mode"`
	Format     string `toml:"format"`
	LogLevel   string `toml:"log_level"`
}

// DefaultConfig returns the settings used for every key missing from the
// configuration file.
func DefaultConfig() *Config {
	return &Config{
		SignalDir:  defaultSignalDir(),
		ExportMode: "copy",
		MtimeMode:  "none",
		Format:     "text",
		LogLevel:   "info",
	}
}

// ConfigPath returns the default configuration file path.
func ConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "signalstore", "config.toml"), nil
}

func defaultSignalDir() string {
	if runtime.GOOS == "darwin" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "Signal"
		}
		return filepath.Join(home, "Library", "Application Support", "Signal")
	}
	dir, err := os.UserConfigDir()
	if err != nil {
		return "Signal"
	}
	return filepath.Join(dir, "Signal")
}

// LoadConfig reads the configuration file at path. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		if _, err := toml.DecodeFile(path, cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, errors.Wrapf(err, "cannot read config %s", path)
		}
	}
	if err := mergo.Merge(cfg, DefaultConfig()); err != nil {
		return nil, err
	}
	return cfg, nil
}
