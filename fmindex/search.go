// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fmindex

import (
	"context"
	"fmt"
	"sort"
)

// DeletionPolicy selects which reference symbols a deletion may skip.
type DeletionPolicy int

const (
	// DeleteAnySymbol tries every alphabet symbol.
	DeleteAnySymbol DeletionPolicy = iota
	// DeleteQuerySymbol only skips a reference symbol equal to the
	// next query symbol.
	DeleteQuerySymbol
)

type SearchOptions struct {
	Budget    int // maximum substitutions+insertions+deletions
	Deletions DeletionPolicy
	MaxStates int // 0 means unlimited
}

// A Hit is a range [L,R) of suffix array rows that all align to the
// query with the same operations.
type Hit struct {
	Edits int
	L, R  int
	Ops   []Op // in query order
}

// trace is an edit trace built from the end of the query toward the
// front. Following next from the newest node yields the operations
// in query order.
type trace struct {
	op   Op
	next *trace
}

func (t *trace) ops() []Op {
	var ops []Op
	for ; t != nil; t = t.next {
		ops = append(ops, t.op)
	}
	return ops
}

type searchState struct {
	edits  int
	l, r   int
	cursor int // query symbols consumed, counted from the end
	trace  *trace
	// anchored is false until some reference symbol has been
	// consumed; a hit that never consumes one has no position.
	anchored bool
}

// Search finds all alignments of query within fwd using at most
// opts.Budget edits. D is the bound table returned by Bound for the
// same query and budget.
//
// The query is consumed from its last symbol to its first. From each
// state the search may match the next symbol, substitute any other
// base for it, skip it (insertion), or skip a reference symbol
// (deletion). A deletion is never the last operation of an
// alignment, and never follows a query symbol outside the alphabet.
// A branch is cut as soon as its edits plus the bound for the
// unconsumed part of the query exceed the budget.
//
// Hits are returned in order of increasing edit count. Within the
// same edit count, the order is deterministic.
func Search(ctx context.Context, fwd *Index, query []byte, D []int, opts SearchOptions) ([]Hit, error) {
	m := len(query)
	if m == 0 {
		return nil, fmt.Errorf("%w: empty query", ErrMalformedSequence)
	} else if len(D) != m {
		return nil, fmt.Errorf("bound table has %d entries for a query of length %d", len(D), m)
	} else if opts.Budget < 0 {
		return nil, fmt.Errorf("invalid edit budget %d", opts.Budget)
	}

	var hits []Hit
	stack := []searchState{{l: 0, r: fwd.Len()}}
	push := func(st searchState) {
		if st.l >= st.r {
			return
		}
		if st.edits+remaining(D, m-st.cursor) > opts.Budget {
			return
		}
		stack = append(stack, st)
	}
	for popped := 1; len(stack) > 0; popped++ {
		if opts.MaxStates > 0 && popped > opts.MaxStates {
			return nil, fmt.Errorf("%w (%d)", ErrSearchLimit, opts.MaxStates)
		}
		if popped%4096 == 1 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		st := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if st.cursor == m {
			if st.anchored {
				hits = append(hits, Hit{Edits: st.edits, L: st.l, R: st.r, Ops: st.trace.ops()})
			}
			continue
		}

		sym, valid := Rank(query[m-1-st.cursor])
		valid = valid && sym > 0

		if valid {
			l, r := fwd.Step(sym, st.l, st.r)
			push(searchState{st.edits, l, r, st.cursor + 1, &trace{Match, st.trace}, true})
		}
		if st.edits >= opts.Budget {
			continue
		}
		for s := 1; s < AlphabetSize; s++ {
			if valid && s == sym {
				continue
			}
			l, r := fwd.Step(s, st.l, st.r)
			push(searchState{st.edits + 1, l, r, st.cursor + 1, &trace{Mismatch, st.trace}, true})
		}
		push(searchState{st.edits + 1, st.l, st.r, st.cursor + 1, &trace{Insertion, st.trace}, st.anchored})
		// No deletion at cursor 0: an alignment never ends with a
		// reference-only gap.
		if st.cursor == 0 || !valid {
			continue
		}
		if opts.Deletions == DeleteQuerySymbol {
			l, r := fwd.Step(sym, st.l, st.r)
			push(searchState{st.edits + 1, l, r, st.cursor, &trace{Deletion, st.trace}, true})
		} else {
			for s := 1; s < AlphabetSize; s++ {
				l, r := fwd.Step(s, st.l, st.r)
				push(searchState{st.edits + 1, l, r, st.cursor, &trace{Deletion, st.trace}, true})
			}
		}
	}

	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Edits < hits[j].Edits })
	return hits, nil
}
