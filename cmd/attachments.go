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
	"fmt"
	"io/fs"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/forensicanalysis/signalstore/export"
)

// Attachments is the signalstore attachments commandline subcommand
func Attachments() *cobra.Command {
	var flags storeFlags
	var hardLink, symlink, mtimeSent, mtimeReceived bool
	var interval string
	attachmentsCommand := &cobra.Command{
		Use:     "attachments [directory]",
		Aliases: []string{"att"},
		Short:   "Export attachments into one directory per conversation",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dst := "."
			if len(args) == 1 {
				dst = args[0]
			}

			iv, err := parseInterval(interval)
			if err != nil {
				return err
			}

			store, cfg, logger, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync() // nolint:errcheck
			defer store.Close()

			opts := export.Options{Interval: iv, Logger: logger}
			if opts.Mode, err = export.ParseMode(cfg.ExportMode); err != nil {
				return err
			}
			switch {
			case hardLink:
				opts.Mode = export.HardLink
			case symlink:
				opts.Mode = export.Symlink
			}
			if opts.Mtime, err = export.ParseMtimeMode(cfg.MtimeMode); err != nil {
				return err
			}
			switch {
			case mtimeSent:
				opts.Mtime = export.MtimeSent
			case mtimeReceived:
				opts.Mtime = export.MtimeReceived
			}

			if err := os.Mkdir(dst, 0o777); err != nil && !errors.Is(err, fs.ErrExist) {
				return errors.Wrap(err, "cannot create destination")
			}
			result, err := export.Run(cmd.Context(), store, dst, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported: %d, skipped: %d, failed: %d\n",
				result.Exported, result.Skipped, result.Failed)
			if !result.OK() {
				return errors.Errorf("%d attachments could not be exported", result.Failed)
			}
			return nil
		},
	}

	flags.register(attachmentsCommand)
	attachmentsCommand.Flags().BoolVarP(&hardLink, "link", "L", false, "create hard links instead of copies")
	attachmentsCommand.Flags().BoolVarP(&symlink, "symlink", "l", false, "create symbolic links instead of copies")
	attachmentsCommand.Flags().BoolVarP(&mtimeSent, "mtime-sent", "M", false, "set the modification time to the sent time")
	attachmentsCommand.Flags().BoolVarP(&mtimeReceived, "mtime-received", "m", false,
		"set the modification time to the received time")
	attachmentsCommand.Flags().StringVarP(&interval, "interval", "s", "",
		"only export attachments sent in 'min,max' (format 2006-01-02T15:04:05, either side may be empty)")
	attachmentsCommand.MarkFlagsMutuallyExclusive("link", "symlink")
	attachmentsCommand.MarkFlagsMutuallyExclusive("mtime-sent", "mtime-received")
	return attachmentsCommand
}
