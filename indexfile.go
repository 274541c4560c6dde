// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package readmap

import (
	"bufio"
	"encoding/gob"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/arvados/readmap/fmindex"
	"github.com/klauspost/pgzip"
	"golang.org/x/crypto/blake2b"
)

// IndexEntry is one reference sequence's block in an index file.
type IndexEntry struct {
	Name    string
	Length  int // bases, sentinel excluded
	Blake2b [blake2b.Size256]byte
	Forward *fmindex.Index
	Reverse *fmindex.Index
}

// newIndexEntry builds the forward and reverse indexes of a
// reference record.
func newIndexEntry(rec record) (*IndexEntry, error) {
	seq, err := fmindex.NewSequence(rec.Name, rec.Seq)
	if err != nil {
		return nil, err
	}
	fwd, rev, err := fmindex.BuildPair(seq)
	if err != nil {
		return nil, err
	}
	return &IndexEntry{
		Name:    rec.Name,
		Length:  len(seq.Body()),
		Blake2b: blake2b.Sum256(seq.Body()),
		Forward: fwd,
		Reverse: rev,
	}, nil
}

// Validate checks that the entry's tables are consistent with each
// other and with its recorded length.
func (ent *IndexEntry) Validate() error {
	if ent.Forward == nil || ent.Reverse == nil {
		return fmt.Errorf("%s: %w: missing forward or reverse index", ent.Name, fmindex.ErrMalformedIndex)
	}
	if err := ent.Forward.Validate(); err != nil {
		return fmt.Errorf("%s: %w", ent.Name, err)
	}
	if err := ent.Reverse.Validate(); err != nil {
		return fmt.Errorf("%s (reverse): %w", ent.Name, err)
	}
	if ent.Forward.SA == nil {
		return fmt.Errorf("%s: %w: forward index has no suffix array", ent.Name, fmindex.ErrMalformedIndex)
	}
	if n := ent.Forward.Len(); n != ent.Length+1 || ent.Reverse.Len() != n {
		return fmt.Errorf("%s: %w: length %d does not match tables (%d, %d)", ent.Name, fmindex.ErrMalformedIndex, ent.Length, n-1, ent.Reverse.Len()-1)
	}
	for s := range ent.Forward.O {
		if ent.Forward.O[s][ent.Length+1] != ent.Reverse.O[s][ent.Length+1] {
			return fmt.Errorf("%s: %w: forward and reverse indexes have different %q counts", ent.Name, fmindex.ErrMalformedIndex, fmindex.Alphabet[s])
		}
	}
	return nil
}

// VerifyDigest recovers the reference from the forward index and
// checks it against the stored digest.
func (ent *IndexEntry) VerifyDigest() error {
	text := ent.Forward.Text()
	if blake2b.Sum256(text[:len(text)-1]) != ent.Blake2b {
		return fmt.Errorf("%s: %w: digest mismatch", ent.Name, fmindex.ErrMalformedIndex)
	}
	return nil
}

// EncodeIndex writes entries to w as a gob stream.
func EncodeIndex(w io.Writer, entries []*IndexEntry) error {
	enc := gob.NewEncoder(w)
	for _, ent := range entries {
		if err := enc.Encode(ent); err != nil {
			return fmt.Errorf("%s: %w", ent.Name, err)
		}
	}
	return nil
}

// DecodeIndex reads a gob stream written by EncodeIndex and calls cb
// for each entry, in order. Entries are not validated.
func DecodeIndex(rdr io.Reader, gz bool, cb func(*IndexEntry) error) error {
	zr := io.Reader(bufio.NewReaderSize(rdr, 4*1024*1024))
	if gz {
		gzr, err := pgzip.NewReader(zr)
		if err != nil {
			return err
		}
		defer gzr.Close()
		zr = gzr
	}
	dec := gob.NewDecoder(zr)
	for {
		var ent IndexEntry
		err := dec.Decode(&ent)
		if errors.Is(err, io.EOF) {
			return nil
		} else if err != nil {
			return fmt.Errorf("%w: %s", fmindex.ErrMalformedIndex, err)
		}
		if err := cb(&ent); err != nil {
			return err
		}
	}
}

// readIndexFile returns the valid entries of the named index file.
// Invalid entries are passed to reject and skipped.
func readIndexFile(fnm string, verifyDigest bool, reject func(error)) ([]*IndexEntry, error) {
	f, err := os.Open(fnm)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var entries []*IndexEntry
	err = DecodeIndex(f, strings.HasSuffix(fnm, ".gz"), func(ent *IndexEntry) error {
		err := ent.Validate()
		if err == nil && verifyDigest {
			err = ent.VerifyDigest()
		}
		if err != nil {
			reject(err)
			return nil
		}
		entries = append(entries, ent)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: %w", fnm, err)
	}
	return entries, nil
}

var referenceExtensions = []string{".fasta", ".fa", ".fna", ".txt"}

// defaultIndexPath returns the index file name used for the given
// reference file: its sequence extension (if any) is replaced by
// ".fmi.gob".
func defaultIndexPath(refPath string) string {
	base := strings.TrimSuffix(refPath, ".gz")
	ext := filepath.Ext(base)
	for _, known := range referenceExtensions {
		if strings.EqualFold(ext, known) {
			base = strings.TrimSuffix(base, ext)
			break
		}
	}
	return base + ".fmi.gob"
}
