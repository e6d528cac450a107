// Package filter defines the closed set of filter names sdstore knows
// how to run, and the per-filter counters used for admission and
// status reporting.
package filter

import (
	"fmt"
	"strings"
)

// Filter is one of the seven known transformation names. Each
// corresponds, by convention, to an executable of the same name in
// the server's configured filter-binary directory.
type Filter int

const (
	Nop Filter = iota
	Bcompress
	Bdecompress
	Gcompress
	Gdecompress
	Encrypt
	Decrypt

	numFilters = int(Decrypt) + 1
)

// All lists the seven filters in their fixed declaration order. Status
// reports and FilterCounts iterate in this order so that rendering is
// deterministic.
var All = [numFilters]Filter{Nop, Bcompress, Bdecompress, Gcompress, Gdecompress, Encrypt, Decrypt}

var names = [numFilters]string{
	Nop:         "nop",
	Bcompress:   "bcompress",
	Bdecompress: "bdecompress",
	Gcompress:   "gcompress",
	Gdecompress: "gdecompress",
	Encrypt:     "encrypt",
	Decrypt:     "decrypt",
}

// String returns the filter's canonical lowercase name.
func (f Filter) String() string {
	if int(f) < 0 || int(f) >= numFilters {
		return fmt.Sprintf("filter(%d)", int(f))
	}
	return names[f]
}

// Parse resolves a filter name, case-insensitively, to a Filter. It
// returns an error identifying the offending token when s does not
// name one of the seven known filters.
func Parse(s string) (Filter, error) {
	lower := strings.ToLower(s)
	for f, n := range names {
		if n == lower {
			return Filter(f), nil
		}
	}
	return 0, &ParseError{Token: s}
}

// ParseError reports an unrecognized filter name.
type ParseError struct {
	Token string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("unknown filter %q", e.Token)
}

// Counts is a mapping from each of the seven filters to a
// non-negative count. It is used both as the configured per-filter
// upper bound (immutable after startup) and as the currently running
// count (mutated only by the coordinator).
type Counts [numFilters]int

// Multiset builds a Counts from an ordered sequence of requested
// filters, counting repeats.
func Multiset(filters []Filter) Counts {
	var c Counts
	for _, f := range filters {
		c[f]++
	}
	return c
}

// Add returns the componentwise sum of c and other.
func (c Counts) Add(other Counts) Counts {
	var out Counts
	for i := range out {
		out[i] = c[i] + other[i]
	}
	return out
}

// Sub returns the componentwise difference of c and other. Callers
// must never let a result go negative; the coordinator's accounting
// invariant guarantees it (see internal/coordinator).
func (c Counts) Sub(other Counts) Counts {
	var out Counts
	for i := range out {
		out[i] = c[i] - other[i]
	}
	return out
}

// Dominates reports whether every component of limit is greater than
// or equal to the corresponding component of c, i.e. c <= limit.
func (c Counts) Dominates(limit Counts) bool {
	for i := range c {
		if c[i] > limit[i] {
			return false
		}
	}
	return true
}

// Get returns the count for a single filter.
func (c Counts) Get(f Filter) int { return c[f] }

// Set returns a copy of c with f's count set to n.
func (c Counts) Set(f Filter, n int) Counts {
	c[f] = n
	return c
}
