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
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/signalstore/render"
)

// Messages is the signalstore messages commandline subcommand
func Messages() *cobra.Command {
	var flags storeFlags
	var format, interval string
	messagesCommand := &cobra.Command{
		Use:     "messages [file]",
		Aliases: []string{"msg"},
		Short:   "Print messages as text or JSON",
		Args:    cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
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

			if format == "" {
				format = cfg.Format
			}
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			msgs, err := store.Messages(cmd.Context(), iv)
			if err != nil {
				return err
			}

			var w io.Writer = cmd.OutOrStdout()
			if len(args) == 1 {
				out, err := createExclusive(args[0])
				if err != nil {
					return err
				}
				defer out.Close()
				w = out
			}
			return render.Messages(w, msgs, f, time.Local)
		},
	}
	flags.register(messagesCommand)
	messagesCommand.Flags().StringVarP(&format, "format", "f", "", "output format (text, json)")
	messagesCommand.Flags().StringVarP(&interval, "interval", "s", "",
		"only print messages sent in 'min,max' (format 2006-01-02T15:04:05, either side may be empty)")
	return messagesCommand
}

// Conversations is the signalstore conversations commandline subcommand
func Conversations() *cobra.Command {
	var flags storeFlags
	var format string
	conversationsCommand := &cobra.Command{
		Use:     "conversations",
		Aliases: []string{"cnv"},
		Short:   "List conversations",
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, cfg, logger, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync() // nolint:errcheck
			defer store.Close()

			if format == "" {
				format = cfg.Format
			}
			f, err := render.ParseFormat(format)
			if err != nil {
				return err
			}

			cnvs, err := store.Conversations(cmd.Context())
			if err != nil {
				return err
			}
			return render.Conversations(cmd.OutOrStdout(), cnvs, f)
		},
	}
	flags.register(conversationsCommand)
	conversationsCommand.Flags().StringVarP(&format, "format", "f", "", "output format (text, json)")
	return conversationsCommand
}
