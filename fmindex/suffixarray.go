// Copyright (C) The Lightning Authors. All rights reserved.
//
// SPDX-License-Identifier: AGPL-3.0

package fmindex

import (
	"sort"
)

// SuffixArray returns the positions of text's suffixes in
// lexicographic order. text must end with the only Sentinel.
//
// Suffixes are sorted by prefix doubling: after the round with
// stride k, rank[i] orders suffixes by their first 2k symbols. The
// sentinel is unique, so all ranks are distinct after at most
// log2(n) rounds and the order matches a plain comparison sort.
func SuffixArray(text []byte) ([]int, error) {
	if err := checkSentinel(text); err != nil {
		return nil, err
	}
	n := len(text)
	sa := make([]int, n)
	rnk := make([]int, n)
	tmp := make([]int, n)
	for i, b := range text {
		sa[i] = i
		rnk[i] = int(rank[b])
	}
	for k := 1; ; k *= 2 {
		second := func(i int) int {
			if i+k < n {
				return rnk[i+k]
			}
			return -1
		}
		sort.Slice(sa, func(a, b int) bool {
			x, y := sa[a], sa[b]
			if rnk[x] != rnk[y] {
				return rnk[x] < rnk[y]
			}
			return second(x) < second(y)
		})
		tmp[sa[0]] = 0
		for i := 1; i < n; i++ {
			prev, cur := sa[i-1], sa[i]
			tmp[cur] = tmp[prev]
			if rnk[prev] != rnk[cur] || second(prev) != second(cur) {
				tmp[cur]++
			}
		}
		rnk, tmp = tmp, rnk
		if rnk[sa[n-1]] == n-1 {
			break
		}
	}
	return sa, nil
}
