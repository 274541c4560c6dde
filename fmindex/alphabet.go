// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

// Package fmindex builds FM-indexes over nucleotide sequences and
// finds exact and approximate (bounded edit distance) occurrences of
// short queries in them.
package fmindex

import (
	"errors"
	"fmt"
)

// Sentinel terminates every indexed text. It sorts before every
// alphabet symbol.
const Sentinel = '$'

// AlphabetSize is the number of symbols, sentinel included.
const AlphabetSize = 5

// Alphabet lists the symbols in sort order; a symbol's rank is its
// index here.
var Alphabet = [AlphabetSize]byte{Sentinel, 'A', 'C', 'G', 'T'}

var (
	ErrMalformedSequence = errors.New("malformed sequence")
	ErrMalformedIndex    = errors.New("malformed index")
	ErrSearchLimit       = errors.New("search state limit exceeded")
)

// rank maps a byte to its symbol rank, or -1. Lowercase bases map to
// the same rank as uppercase.
var rank = func() [256]int8 {
	var r [256]int8
	for i := range r {
		r[i] = -1
	}
	for i, b := range Alphabet {
		r[b] = int8(i)
		if b >= 'A' && b <= 'Z' {
			r[b+'a'-'A'] = int8(i)
		}
	}
	return r
}()

// Rank returns the rank of b in Alphabet. ok is false if b is not an
// alphabet symbol.
func Rank(b byte) (sym int, ok bool) {
	r := rank[b]
	return int(r), r >= 0
}

// isBase reports whether b is a non-sentinel alphabet symbol.
func isBase(b byte) bool {
	return rank[b] > 0
}

// A Sequence is a named text over Alphabet whose last (and only last)
// byte is Sentinel.
type Sequence struct {
	Name string
	Text []byte
}

// NewSequence returns a Sequence holding body, uppercased, with the
// sentinel appended.
func NewSequence(name string, body []byte) (*Sequence, error) {
	text := make([]byte, len(body)+1)
	for i, b := range body {
		if !isBase(b) {
			return nil, fmt.Errorf("%w: %s: invalid character %q at offset %d", ErrMalformedSequence, name, b, i)
		}
		text[i] = Alphabet[rank[b]]
	}
	text[len(body)] = Sentinel
	return &Sequence{Name: name, Text: text}, nil
}

// Body returns the text without its sentinel.
func (seq *Sequence) Body() []byte {
	return seq.Text[:len(seq.Text)-1]
}

// Reverse returns the sequence with its body reversed and a fresh
// sentinel appended.
func (seq *Sequence) Reverse() *Sequence {
	body := seq.Body()
	text := make([]byte, len(seq.Text))
	for i, b := range body {
		text[len(body)-1-i] = b
	}
	text[len(body)] = Sentinel
	return &Sequence{Name: seq.Name, Text: text}
}

// checkSentinel returns an error unless Sentinel occurs exactly once
// in text, as its last byte, and every other byte is a base.
func checkSentinel(text []byte) error {
	if len(text) == 0 || text[len(text)-1] != Sentinel {
		return fmt.Errorf("%w: text does not end with %q", ErrMalformedSequence, Sentinel)
	}
	for i, b := range text[:len(text)-1] {
		if b == Sentinel {
			return fmt.Errorf("%w: extra %q at offset %d", ErrMalformedSequence, Sentinel, i)
		} else if !isBase(b) {
			return fmt.Errorf("%w: invalid character %q at offset %d", ErrMalformedSequence, b, i)
		}
	}
	return nil
}
