package typeahead

import (
	"fmt"
	"sync"
	"testing"
)

func names(entries []Entry) []string {
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.CommonName
	}
	return out
}

func equal(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func TestQueryRanking(t *testing.T) {
	idx := BuildGlobal([]Entry{
		{CommonName: "grehe", PhoneticKey: "grehe"},
		{CommonName: "heron", PhoneticKey: "heron"},
		{CommonName: "he", PhoneticKey: "he"},
	})

	got := names(idx.Query("he"))
	want := []string{"he", "heron", "grehe"}
	if !equal(got, want) {
		t.Errorf("Query(he) = %v, want %v", got, want)
	}
}

func TestQueryShortTermSuppression(t *testing.T) {
	var entries []Entry
	for i := 0; i < 6; i++ {
		entries = append(entries, Entry{
			CommonName:  fmt.Sprintf("bird %d", i),
			PhoneticKey: fmt.Sprintf("h%dabc", i),
		})
	}
	idx := BuildGlobal(entries)

	if got := idx.Query("h"); len(got) != 0 {
		t.Errorf("Query(h) = %v, want exact bucket only (empty)", names(got))
	}

	// five hits stay under the threshold
	small := BuildGlobal(entries[:5])
	if got := small.Query("h"); len(got) != 5 {
		t.Errorf("Query(h) on 5 entries returned %d, want 5", len(got))
	}

	// exact hits survive suppression
	withExact := BuildGlobal(append([]Entry{{CommonName: "exact", PhoneticKey: "x", InitialsKey: "h"}}, entries...))
	if got := names(withExact.Query("h")); !equal(got, []string{"exact"}) {
		t.Errorf("Query(h) = %v, want [exact]", got)
	}

	// three-letter terms are not suppressed
	if got := idx.Query("abc"); len(got) != 6 {
		t.Errorf("Query(abc) returned %d, want 6", len(got))
	}
}

func TestQueryMatchesBothKeys(t *testing.T) {
	idx := BuildGlobal([]Entry{
		{CommonName: "Oriental Magpie-Robin", PhoneticKey: "quequ", InitialsKey: "qq"},
		{CommonName: "Crested Myna", PhoneticKey: "bage", InitialsKey: "bg"},
		{CommonName: "Eurasian Magpie", PhoneticKey: "xique", InitialsKey: "xq"},
	})

	testCases := []struct {
		term        string
		expected    []string
		description string
	}{
		{"qq", []string{"Oriental Magpie-Robin"}, "Exact initials"},
		{"bage", []string{"Crested Myna"}, "Exact phonetic"},
		{"que", []string{"Oriental Magpie-Robin", "Eurasian Magpie"}, "Prefix before substring"},
		{"QUE", []string{"Oriental Magpie-Robin", "Eurasian Magpie"}, "Case folded"},
		{"xi que", []string{"Eurasian Magpie"}, "Spaces dropped"},
		{"", nil, "Empty term"},
		{"zzz", nil, "No hits"},
	}

	for _, tc := range testCases {
		if got := names(idx.Query(tc.term)); !equal(got, tc.expected) {
			t.Errorf("%s: Query(%q) = %v, want %v", tc.description, tc.term, got, tc.expected)
		}
	}
}

func TestQueryCap(t *testing.T) {
	var entries []Entry
	for i := 0; i < MaxResults+20; i++ {
		entries = append(entries, Entry{CommonName: fmt.Sprintf("n%03d", i), PhoneticKey: fmt.Sprintf("niao%03d", i)})
	}
	idx := BuildGlobal(entries)
	got := idx.Query("niao")
	if len(got) != MaxResults {
		t.Fatalf("Query(niao) returned %d, want %d", len(got), MaxResults)
	}
	if got[0].CommonName != "n000" || got[MaxResults-1].CommonName != "n049" {
		t.Errorf("cap did not keep index order: first=%s last=%s", got[0].CommonName, got[MaxResults-1].CommonName)
	}
}

func TestBuildVisible(t *testing.T) {
	global := BuildGlobal([]Entry{
		{CommonName: "Emu", PhoneticKey: "ermiao", InitialsKey: "em", Code: "emu1"},
		{CommonName: "Ostrich", PhoneticKey: "tuoniao", InitialsKey: "tn", Code: "ostric2"},
		{CommonName: "Great Tit", PhoneticKey: "dashanque", InitialsKey: "dsq", Code: "gretit1"},
	})

	visible := BuildVisible(global, []Visible{
		{Name: "Great Tit", Code: "row-7"},
		{Name: "Unknown Bird"},
		{Name: "Emu"},
		{Name: "Great Tit"},
	})

	if visible.Len() != 2 {
		t.Fatalf("visible Len() = %d, want 2", visible.Len())
	}
	if got := names(visible.Query("tn")); len(got) != 0 {
		t.Errorf("non-visible entry leaked into visible index: %v", got)
	}
	e, ok := visible.Lookup("Great Tit")
	if !ok || e.Code != "row-7" {
		t.Errorf("row code not applied: %+v", e)
	}
	e, _ = visible.Lookup("Emu")
	if e.Code != "emu1" {
		t.Errorf("entry code lost: %+v", e)
	}
	if got := names(visible.Query("em")); !equal(got, []string{"Emu"}) {
		t.Errorf("Query(em) = %v", got)
	}

	if BuildVisible(nil, []Visible{{Name: "Emu"}}).Len() != 0 {
		t.Error("visible index over nil global should be empty")
	}
}

func TestBuildGlobalDropsUnkeyed(t *testing.T) {
	idx := BuildGlobal([]Entry{
		{CommonName: "Keyless"},
		{CommonName: "", PhoneticKey: "nameless"},
		{CommonName: "Emu", PhoneticKey: "ér miáo"},
		{CommonName: "Emu", PhoneticKey: "duplicate"},
	})
	if idx.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", idx.Len())
	}
	e, _ := idx.Lookup("Emu")
	if e.PhoneticKey != "ermiao" {
		t.Errorf("PhoneticKey = %q, want normalized ermiao", e.PhoneticKey)
	}
}

func TestKeys(t *testing.T) {
	if got := NormalizeKey("Hè Ér'miáo"); got != "heermiao" {
		t.Errorf("NormalizeKey = %q", got)
	}
	if got := DeriveInitials("bái tóu hè"); got != "bth" {
		t.Errorf("DeriveInitials = %q", got)
	}
	if got := DeriveInitials("  "); got != "" {
		t.Errorf("DeriveInitials(blank) = %q", got)
	}
}

func TestKeysConcurrent(t *testing.T) {
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				if got := NormalizeKey("Bái Tóu Hè"); got != "baitouhe" {
					t.Errorf("NormalizeKey = %q", got)
					return
				}
				if got := DeriveInitials("bái tóu hè"); got != "bth" {
					t.Errorf("DeriveInitials = %q", got)
					return
				}
			}
		}()
	}
	wg.Wait()
}

func BenchmarkQuery(b *testing.B) {
	var entries []Entry
	for i := 0; i < 10000; i++ {
		entries = append(entries, Entry{
			CommonName:  fmt.Sprintf("bird %d", i),
			PhoneticKey: fmt.Sprintf("niao%dhe", i),
			InitialsKey: fmt.Sprintf("n%dh", i),
		})
	}
	idx := BuildGlobal(entries)
	terms := []string{"n", "ni", "nia", "niao1", "he", "9h"}

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		idx.Query(terms[i%len(terms)])
	}
}
