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
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/forensicanalysis/signalstore"
)

// ExportDatabase is the signalstore export-database commandline subcommand
func ExportDatabase() *cobra.Command {
	var flags storeFlags
	exportCommand := &cobra.Command{
		Use:     "export-database <file>",
		Aliases: []string{"db"},
		Short:   "Write an unencrypted copy of the database",
		Args:    cobra.ExactArgs(1), //nolint:gomnd
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			path := args[0]

			store, _, logger, err := flags.open(cmd.Context())
			if err != nil {
				return err
			}
			defer logger.Sync() // nolint:errcheck
			defer store.Close()

			f, err := createExclusive(path)
			if err != nil {
				return err
			}
			if err := f.Close(); err != nil {
				return err
			}
			defer func() {
				if err != nil {
					if rmErr := os.Remove(path); rmErr != nil {
						logger.Error("cannot remove database", zap.String("path", path), zap.Error(rmErr))
					}
				}
			}()

			if err := store.WriteDatabase(cmd.Context(), path); err != nil {
				return err
			}
			version, err := signalstore.VerifyDatabase(cmd.Context(), path)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s (version %d)\n", path, version)
			return nil
		},
	}
	flags.register(exportCommand)
	return exportCommand
}
