// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fmindex

import (
	"fmt"
)

// Index is an FM-index of one text.
//
// C[s] is the number of suffixes that sort before every suffix
// starting with symbol s. O[s][i] is the number of occurrences of s
// in BWT[0:i], so each O[s] has Len()+1 entries.
//
// SA is nil in a reverse index, which is only used for bounds.
type Index struct {
	SA []int
	C  [AlphabetSize]int
	O  [AlphabetSize][]int
}

// Build returns the FM-index of text, which must end with the only
// Sentinel.
func Build(text []byte) (*Index, error) {
	sa, err := SuffixArray(text)
	if err != nil {
		return nil, err
	}
	n := len(text)
	idx := &Index{SA: sa}

	// First row of each symbol's block in sorted order. Symbols
	// that never occur start where the next present symbol does,
	// so stepping on them gives an empty range.
	var seen [AlphabetSize]bool
	for i, p := range sa {
		s := rank[text[p]]
		if !seen[s] {
			seen[s] = true
			idx.C[s] = i
		}
	}
	next := n
	for s := AlphabetSize - 1; s >= 0; s-- {
		if seen[s] {
			next = idx.C[s]
		} else {
			idx.C[s] = next
		}
	}

	var count [AlphabetSize]int
	for s := range idx.O {
		idx.O[s] = make([]int, n+1)
	}
	for i, p := range sa {
		count[rank[text[(p+n-1)%n]]]++
		for s := range idx.O {
			idx.O[s][i+1] = count[s]
		}
	}
	return idx, nil
}

// BuildPair returns the forward index of seq and the index of its
// reverse. The reverse index has no suffix array.
func BuildPair(seq *Sequence) (fwd, rev *Index, err error) {
	fwd, err = Build(seq.Text)
	if err != nil {
		return nil, nil, fmt.Errorf("%s: %w", seq.Name, err)
	}
	rev, err = Build(seq.Reverse().Text)
	if err != nil {
		return nil, nil, fmt.Errorf("%s (reverse): %w", seq.Name, err)
	}
	rev.SA = nil
	return fwd, rev, nil
}

// Len returns the length of the indexed text, sentinel included.
func (idx *Index) Len() int {
	return len(idx.O[0]) - 1
}

// Step narrows the suffix range [l,r) to the suffixes that are
// preceded by sym.
func (idx *Index) Step(sym int, l, r int) (int, int) {
	return idx.C[sym] + idx.O[sym][l], idx.C[sym] + idx.O[sym][r]
}

// BWT returns the Burrows-Wheeler transform, recovered from the
// occurrence table.
func (idx *Index) BWT() []byte {
	n := idx.Len()
	bwt := make([]byte, n)
	for i := 0; i < n; i++ {
		for s := range idx.O {
			if idx.O[s][i+1] > idx.O[s][i] {
				bwt[i] = Alphabet[s]
				break
			}
		}
	}
	return bwt
}

// Text inverts the transform by LF-mapping and returns the indexed
// text, sentinel included.
func (idx *Index) Text() []byte {
	n := idx.Len()
	bwt := idx.BWT()
	text := make([]byte, n)
	text[n-1] = Sentinel
	row := 0
	for k := n - 2; k >= 0; k-- {
		s := int(rank[bwt[row]])
		text[k] = bwt[row]
		row = idx.C[s] + idx.O[s][row]
	}
	return text
}

// Validate checks the structural invariants of an index that came
// from outside the process.
func (idx *Index) Validate() error {
	n := len(idx.O[0]) - 1
	if n < 1 {
		return fmt.Errorf("%w: empty occurrence table", ErrMalformedIndex)
	}
	for s := range idx.O {
		if len(idx.O[s]) != n+1 {
			return fmt.Errorf("%w: occurrence table for %q has %d entries, expected %d", ErrMalformedIndex, Alphabet[s], len(idx.O[s]), n+1)
		} else if idx.O[s][0] != 0 {
			return fmt.Errorf("%w: occurrence table for %q does not start at 0", ErrMalformedIndex, Alphabet[s])
		}
	}
	for i := 0; i < n; i++ {
		grew := 0
		for s := range idx.O {
			switch idx.O[s][i+1] - idx.O[s][i] {
			case 0:
			case 1:
				grew++
			default:
				return fmt.Errorf("%w: occurrence table for %q jumps at row %d", ErrMalformedIndex, Alphabet[s], i)
			}
		}
		if grew != 1 {
			return fmt.Errorf("%w: row %d of occurrence table counts %d symbols", ErrMalformedIndex, i, grew)
		}
	}
	if idx.O[0][n] != 1 {
		return fmt.Errorf("%w: text has %d sentinels", ErrMalformedIndex, idx.O[0][n])
	}
	start := 0
	for s := range idx.C {
		if idx.C[s] != start {
			return fmt.Errorf("%w: count table entry for %q is %d, expected %d", ErrMalformedIndex, Alphabet[s], idx.C[s], start)
		}
		start += idx.O[s][n]
	}
	bwt := idx.BWT()
	lf := func(i int) int {
		s := rank[bwt[i]]
		return idx.C[s] + idx.O[s][i]
	}
	// LF must be a single cycle through every row, or Text would
	// recover only part of the text.
	row := 0
	for k := 1; k < n; k++ {
		row = lf(row)
		if row == 0 {
			return fmt.Errorf("%w: text recovery returns to the first row after %d of %d symbols", ErrMalformedIndex, k, n)
		}
	}
	if lf(row) != 0 {
		return fmt.Errorf("%w: text recovery does not return to the first row", ErrMalformedIndex)
	}
	if idx.SA != nil {
		if len(idx.SA) != n {
			return fmt.Errorf("%w: suffix array has %d entries, expected %d", ErrMalformedIndex, len(idx.SA), n)
		}
		seen := make([]bool, n)
		for _, p := range idx.SA {
			if p < 0 || p >= n || seen[p] {
				return fmt.Errorf("%w: suffix array is not a permutation (entry %d)", ErrMalformedIndex, p)
			}
			seen[p] = true
		}
		if idx.SA[0] != n-1 {
			return fmt.Errorf("%w: suffix array does not start with the sentinel suffix", ErrMalformedIndex)
		}
		for i, p := range idx.SA {
			if idx.SA[lf(i)] != (p+n-1)%n {
				return fmt.Errorf("%w: suffix array row %d is inconsistent with the transform", ErrMalformedIndex, i)
			}
		}
	}
	return nil
}
