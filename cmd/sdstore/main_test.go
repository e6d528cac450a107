package main

import (
	"testing"

	"sdstore/internal/filter"
)

func TestParseProcFileAccepts(t *testing.T) {
	got, err := parseProcFile([]string{"5", "in.txt", "out.txt", "bcompress", "nop"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.priority != 5 || got.input != "in.txt" || got.output != "out.txt" {
		t.Fatalf("unexpected parse result: %+v", got)
	}
	want := []filter.Filter{filter.Bcompress, filter.Nop}
	if len(got.filters) != len(want) || got.filters[0] != want[0] || got.filters[1] != want[1] {
		t.Fatalf("expected filters %v, got %v", want, got.filters)
	}
}

func TestParseProcFileNoPriority(t *testing.T) {
	if _, err := parseProcFile(nil); err == nil {
		t.Fatal("expected an error for a missing priority")
	}
}

func TestParseProcFileInvalidPriority(t *testing.T) {
	_, err := parseProcFile([]string{"5a", "in", "out", "nop"})
	if err == nil {
		t.Fatal("expected an error for a non-integer priority")
	}
}

func TestParseProcFileMissingPaths(t *testing.T) {
	_, err := parseProcFile([]string{"5", "in"})
	if err == nil {
		t.Fatal("expected an error for a missing output path")
	}
}

func TestParseProcFileNoFilters(t *testing.T) {
	_, err := parseProcFile([]string{"5", "in", "out"})
	if err == nil {
		t.Fatal("expected an error for a request with no filters")
	}
}

func TestParseProcFileUnknownFilter(t *testing.T) {
	_, err := parseProcFile([]string{"5", "in", "out", "nopp"})
	if err == nil {
		t.Fatal("expected an error for an unknown filter name")
	}
}
