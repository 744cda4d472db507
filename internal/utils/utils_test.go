package utils

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsValidTerm(t *testing.T) {
	testCases := []struct {
		term     string
		expected bool
	}{
		{"ermiao", true},
		{"xi'an", true},
		{"bái tóu", true},
		{"", false},
		{"1234", false},
		{"aaa", false},
		{"he!", false},
		{"<script>", false},
	}
	for _, tc := range testCases {
		if got := IsValidTerm(tc.term); got != tc.expected {
			t.Errorf("IsValidTerm(%q) = %v, want %v", tc.term, got, tc.expected)
		}
	}
}

func TestCreateRankList(t *testing.T) {
	if got := CreateRankList(0); len(got) != 0 {
		t.Errorf("CreateRankList(0) = %v", got)
	}
	got := CreateRankList(3)
	if len(got) != 3 || got[0] != 1 || got[2] != 3 {
		t.Errorf("CreateRankList(3) = %v", got)
	}
}

func TestWriteFileAtomic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "cache.msgpack")
	if err := WriteFileAtomic(path, []byte("one"), 0o644); err != nil {
		t.Fatalf("first write: %v", err)
	}
	if err := WriteFileAtomic(path, []byte("two"), 0o644); err != nil {
		t.Fatalf("second write: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil || string(data) != "two" {
		t.Fatalf("read back %q, %v", data, err)
	}
	entries, _ := os.ReadDir(filepath.Dir(path))
	if len(entries) != 1 {
		t.Errorf("temp files left behind: %d entries", len(entries))
	}
}

func TestIsValidDataDir(t *testing.T) {
	dir := t.TempDir()
	if IsValidDataDir(dir) {
		t.Fatal("empty dir accepted")
	}
	if err := os.WriteFile(filepath.Join(dir, DataMarker), []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if !IsValidDataDir(dir) {
		t.Error("dir with birdMap.json rejected")
	}
}

func TestExtractHelpers(t *testing.T) {
	data := map[string]any{
		"name":  "x",
		"n":     int64(3),
		"on":    true,
		"list":  []any{"a", int64(1), "b"},
		"other": map[string]any{"k": "v"},
	}
	if s, ok := ExtractString(data, "name"); !ok || s != "x" {
		t.Errorf("ExtractString = %q, %v", s, ok)
	}
	if n, ok := ExtractInt64(data, "n"); !ok || n != 3 {
		t.Errorf("ExtractInt64 = %d, %v", n, ok)
	}
	if b, ok := ExtractBool(data, "on"); !ok || !b {
		t.Errorf("ExtractBool = %v, %v", b, ok)
	}
	if l, ok := ExtractStringSlice(data, "list"); !ok || len(l) != 2 || l[1] != "b" {
		t.Errorf("ExtractStringSlice = %v, %v", l, ok)
	}
	if _, ok := ExtractSection(data, "other"); !ok {
		t.Error("ExtractSection missed a table")
	}
	if _, ok := ExtractString(data, "n"); ok {
		t.Error("ExtractString accepted an int")
	}
}
