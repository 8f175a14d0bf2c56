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

// Package signalstore reads the encrypted database of a Signal Desktop
// installation and exposes its conversations, messages and attachments.
//
// The Signal directory
//
// A Signal Desktop directory contains the following entries:
//     - sql/db.sqlite is a SQLCipher database with conversations and messages.
//     - config.json holds the hex encoded database key in its "key" field.
//     - attachments.noindex holds the downloaded attachment files, addressed
//       by the relative path stored in each message's attachment records.
//
// Structure
//
// An example directory structure:
//     Signal/
//     ├── attachments.noindex
//     │   ├── 0a
//     │   │   └── 0a1f6c...
//     │   └── ...
//     ├── config.json
//     └── sql
//         └── db.sqlite
//
// Only database versions 19 and later are supported. Starting with version
// 20 message senders are resolved through the conversation uuid.
package signalstore
