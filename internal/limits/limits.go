// Package limits parses the server's filter-limits configuration
// file: one "<filter-name> <non-negative-integer>" line per entry,
// ASCII, line-oriented. Unknown filter names are silently ignored;
// malformed lines are fatal at startup. Filters absent from the file
// default to a limit of 0.
//
// Ported line-for-line from the Rust original's
// FiltersConfig::parse (server_config.rs): split each line on
// whitespace, reject anything with fewer than a name and a count.
// Tokens after the count are ignored.
package limits

import (
	"bufio"
	"fmt"
	"strconv"
	"strings"

	"sdstore/internal/filter"
)

// ParseError reports the line that failed to parse and why.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("filter limits config, line %d (%q): %v", e.Line, e.Text, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

var errTooFewFields = fmt.Errorf("expected \"<filter-name> <count>\"")

// Parse reads a filter-limits file from r and returns the resulting
// Counts. Empty lines are skipped. Every non-empty line must start
// with a filter name and a non-negative integer count; failing that
// is fatal (ParseError). Any further tokens on the line are ignored. Names not among the seven known filters
// are accepted and ignored, matching spec behavior for forward
// compatibility with config files that mention filters this build
// doesn't know about.
func Parse(r *bufio.Reader) (filter.Counts, error) {
	var counts filter.Counts

	sc := bufio.NewScanner(r)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		if len(fields) < 2 {
			return filter.Counts{}, &ParseError{Line: lineNo, Text: line, Err: errTooFewFields}
		}

		name, countField := fields[0], fields[1]
		n, err := strconv.Atoi(countField)
		if err != nil || n < 0 {
			return filter.Counts{}, &ParseError{
				Line: lineNo, Text: line,
				Err: fmt.Errorf("invalid non-negative integer %q", countField),
			}
		}

		f, err := filter.Parse(name)
		if err != nil {
			// Unknown filter names are silently ignored (spec.md §6.2).
			continue
		}
		counts = counts.Set(f, n)
	}
	if err := sc.Err(); err != nil {
		return filter.Counts{}, fmt.Errorf("reading filter limits config: %w", err)
	}

	return counts, nil
}

// ParseString is a convenience wrapper around Parse for tests and
// small embedded configs.
func ParseString(s string) (filter.Counts, error) {
	return Parse(bufio.NewReader(strings.NewReader(s)))
}
