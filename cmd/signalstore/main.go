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

// Package main implements the signalstore command line tool, which reads the
// encrypted database of Signal Desktop.
//     attachments      Export attachments into one directory per conversation
//     messages         Print messages as text or JSON
//     conversations    List conversations
//     export-database  Write an unencrypted copy of the database
//     check            Check the database and the attachment files
//     config           Print the effective configuration
//
// Usage
//
// Export all attachments sent in 2023 as hard links
//     signalstore attachments -L -s 2023-01-01T00:00:00,2024-01-01T00:00:00 out
// Print all messages as JSON
//     signalstore messages -f json messages.json
// Write a plaintext database
//     signalstore export-database signal.db
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/forensicanalysis/signalstore/cmd"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	rootCmd := &cobra.Command{
		Use:           "signalstore",
		Short:         "Read Signal Desktop databases",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.AddCommand(cmd.Attachments(), cmd.Messages(), cmd.Conversations(),
		cmd.ExportDatabase(), cmd.Check(), cmd.ShowConfig())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Println("Error:", err)
		stop()
		os.Exit(1)
	}
}
