// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fmindex

// Bound returns the lower-bound table D for query: D[i] is a lower
// bound on the edits needed to align query[0:i+1] anywhere in the
// text indexed (reversed) by rev. D is non-decreasing.
//
// Each time the running range in rev becomes empty, or the query has
// a symbol outside the alphabet, the current segment of the query
// cannot occur verbatim, so one more edit is needed and the scan
// restarts after it.
//
// If more than budget edits are needed for the whole query, ok is
// false and the query cannot be mapped.
func Bound(rev *Index, query []byte, budget int) (D []int, ok bool) {
	n := rev.Len()
	D = make([]int, len(query))
	l, r := 0, n
	edits := 0
	for i, b := range query {
		sym, valid := Rank(b)
		if valid && sym > 0 {
			l, r = rev.Step(sym, l, r)
		}
		if !valid || sym == 0 || l >= r {
			edits++
			l, r = 0, n
		}
		if edits > budget {
			return nil, false
		}
		D[i] = edits
	}
	return D, true
}

// remaining returns the bound for a state in which the first rest
// symbols of the query are still unconsumed.
func remaining(D []int, rest int) int {
	if rest <= 0 {
		return 0
	}
	return D[rest-1]
}
