// Copyright (c) 2019 Siemens AG
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
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forensicanalysis/signalstore"
	"github.com/forensicanalysis/signalstore/render"
)

// storeFlags are the flags shared by all commands that open a Signal
// directory.
type storeFlags struct {
	dir        string
	configPath string
	logLevel   string
}

func (f *storeFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&f.dir, "dir", "d", "", "Signal directory (default from config)")
	cmd.Flags().StringVar(&f.configPath, "config", "", "config file (default $XDG_CONFIG_HOME/signalstore/config.toml)")
	cmd.Flags().StringVar(&f.logLevel, "log-level", "", "log level (debug, info, warn, error)")
}

// setup loads the configuration and applies flag overrides.
func (f *storeFlags) setup() (*Config, *zap.Logger, error) {
	path := f.configPath
	if path == "" {
		var err error
		if path, err = ConfigPath(); err != nil {
			path = ""
		}
	}
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, nil, err
	}
	if f.dir != "" {
		cfg.SignalDir = f.dir
	}
	if f.logLevel != "" {
		cfg.LogLevel = f.logLevel
	}

	logger, err := NewLogger(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}
	return cfg, logger, nil
}

func (f *storeFlags) open(ctx context.Context) (*signalstore.Store, *Config, *zap.Logger, error) {
	cfg, logger, err := f.setup()
	if err != nil {
		return nil, nil, nil, err
	}
	store, err := signalstore.Open(ctx, cfg.SignalDir, signalstore.WithLogger(logger))
	if err != nil {
		logger.Sync() // nolint:errcheck
		return nil, nil, nil, err
	}
	return store, cfg, logger, nil
}

func parseInterval(s string) (signalstore.Interval, error) {
	if s == "" {
		return signalstore.Interval{}, nil
	}
	return signalstore.ParseInterval(s, time.Local)
}

// Check is the signalstore check commandline subcommand
func Check() *cobra.Command {
	var flags storeFlags
	var noFail bool
	checkCommand := &cobra.Command{
		Use:   "check",
		Short: "Check the database and the attachment files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, _, logger, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync() // nolint:errcheck
			defer store.Close()

			info, err := store.Info(cmd.Context())
			if err != nil {
				return err
			}
			if err := render.Fields(cmd.OutOrStdout(), info); err != nil {
				return err
			}

			flaws, err := store.Validate(cmd.Context())
			if err != nil {
				return err
			}
			if len(flaws) > 0 {
				for i, v := range flaws {
					flaws[i] = strings.ReplaceAll(v, "\"", "\\\"")
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[\"%s\"]\n", strings.Join(flaws, "\", \""))
				if noFail {
					return nil
				}
				return errors.Errorf("%d flaws found", len(flaws))
			}
			return nil
		},
	}
	flags.register(checkCommand)
	checkCommand.Flags().BoolVar(&noFail, "no-fail", false, "return exit code 0")
	return checkCommand
}

// ShowConfig is the signalstore config commandline subcommand
func ShowConfig() *cobra.Command {
	var flags storeFlags
	configCommand := &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := flags.setup()
			if err != nil {
				return err
			}
			return toml.NewEncoder(cmd.OutOrStdout()).Encode(cfg)
		},
	}
	flags.register(configCommand)
	return configCommand
}

// createExclusive creates an empty file that must not exist yet.
func createExclusive(path string) (*os.File, error) {
	return os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
}
