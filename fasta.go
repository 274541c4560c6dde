// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"strings"
)

const (
	referenceMarker = '>'
	queryMarker     = '@'
)

type record struct {
	Name string
	Seq  []byte
}

// readRecords splits rdr into records. A line starting with marker
// begins a record, named by the rest of the line; the following lines
// up to the next marker line are concatenated to form its sequence.
// Surrounding whitespace is trimmed from names and sequence lines.
// Lines before the first marker line, and records with an empty name,
// are ignored.
func readRecords(rdr io.Reader, marker byte) ([]record, error) {
	var records []record
	var cur *record
	scanner := bufio.NewScanner(rdr)
	scanner.Buffer(make([]byte, 64*1024), 1<<30)
	for scanner.Scan() {
		buf := scanner.Bytes()
		if len(buf) > 0 && buf[0] == marker {
			records = append(records, record{Name: strings.TrimSpace(string(buf[1:]))})
			cur = &records[len(records)-1]
		} else if cur != nil {
			cur.Seq = append(cur.Seq, bytes.TrimSpace(buf)...)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	out := records[:0]
	for _, rec := range records {
		if rec.Name != "" {
			out = append(out, rec)
		}
	}
	return out, nil
}

// readRecordFile reads records from the named file, which may be
// gzip-compressed.
func readRecordFile(fnm string, marker byte) ([]record, error) {
	f, err := zopen(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	records, err := readRecords(f, marker)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return records, nil
}
