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

// Package render writes messages and conversations as text or JSON.
package render

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/structs"
	"github.com/pkg/errors"

	"github.com/forensicanalysis/signalstore"
)

// DateLayout is the layout of dates in text output.
const DateLayout = "Mon, 2 Jan 2006 15:04:05 -0700"

// Format is an output format.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ParseFormat parses "text" or "json".
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatText, FormatJSON:
		return Format(s), nil
	case "":
		return FormatText, nil
	}
	return "", errors.Errorf("unknown format %q", s)
}

// Messages writes msgs in the given format.
func Messages(w io.Writer, msgs []*signalstore.Message, format Format, loc *time.Location) error {
	if format == FormatJSON {
		return JSON(w, msgs)
	}
	return Text(w, msgs, loc)
}

// Text writes a header and the body of every message.
func Text(w io.Writer, msgs []*signalstore.Message, loc *time.Location) error {
	if loc == nil {
		loc = time.Local
	}
	bw := bufio.NewWriter(w)
	for _, msg := range msgs {
		fmt.Fprintf(bw, "Conversation: %s\n", msg.Conversation.DisplayName())
		switch {
		case msg.IsOutgoing():
			fmt.Fprintf(bw, "To: %s\n", msg.Conversation.DisplayName())
		case msg.Source != nil:
			fmt.Fprintf(bw, "From: %s\n", msg.Source.DisplayName())
		}

		fmt.Fprintf(bw, "Sent: %s\n", time.UnixMilli(msg.TimeSent).In(loc).Format(DateLayout))
		if !msg.IsOutgoing() {
			fmt.Fprintf(bw, "Received: %s\n", time.UnixMilli(msg.TimeRecv).In(loc).Format(DateLayout))
		}

		if msg.Body.Valid {
			text, err := msg.Text()
			if err != nil {
				return err
			}
			fmt.Fprintf(bw, "\n%s\n", text)
		}
		bw.WriteString("\n") // nolint:errcheck
	}
	return bw.Flush()
}

// JSON writes the stored records of msgs as a JSON array.
func JSON(w io.Writer, msgs []*signalstore.Message) error {
	bw := bufio.NewWriter(w)
	bw.WriteString("[\n") // nolint:errcheck
	for i, msg := range msgs {
		record := "null"
		if msg.JSON.Valid {
			record = msg.JSON.String
		}
		sep := ","
		if i == len(msgs)-1 {
			sep = ""
		}
		fmt.Fprintf(bw, "%s%s\n", record, sep)
	}
	bw.WriteString("]\n") // nolint:errcheck
	return bw.Flush()
}

type conversation struct {
	ID    string `json:"id"`
	Type  string `json:"type"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// Conversations writes one line or JSON object per conversation.
func Conversations(w io.Writer, cnvs []*signalstore.Conversation, format Format) error {
	rows := make([]conversation, 0, len(cnvs))
	for _, cnv := range cnvs {
		row := conversation{
			ID:   cnv.ID,
			Type: cnv.Recipient.Type.String(),
			Name: cnv.Recipient.DisplayName(),
		}
		if cnv.Recipient.Contact != nil {
			row.Phone = cnv.Recipient.Contact.Phone.String
		}
		rows = append(rows, row)
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(rows)
	}

	bw := bufio.NewWriter(w)
	for _, row := range rows {
		fmt.Fprintf(bw, "%s\t%s\t%s\n", row.ID, row.Type, row.Name)
	}
	return bw.Flush()
}

// Fields writes "Name: value" for every exported field of the struct v.
func Fields(w io.Writer, v interface{}) error {
	bw := bufio.NewWriter(w)
	for _, field := range structs.New(v).Fields() {
		if !field.IsExported() {
			continue
		}
		fmt.Fprintf(bw, "%s: %v\n", field.Name(), field.Value())
	}
	return bw.Flush()
}
