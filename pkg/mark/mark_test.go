package mark

import (
	"runtime"
	"testing"
	"time"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

func element(tag string) *html.Node {
	return &html.Node{Type: html.ElementNode, Data: tag, DataAtom: atom.Lookup([]byte(tag))}
}

func TestMarkIsOneShot(t *testing.T) {
	s := New(Rewrite)
	n := element("span")

	if s.IsMarked(n) {
		t.Fatal("fresh node reported as marked")
	}
	s.Mark(n)
	s.Mark(n)
	if !s.IsMarked(n) {
		t.Error("marked node reported as unmarked")
	}
	if s.Len() != 1 {
		t.Errorf("Len() = %d, want 1", s.Len())
	}

	// node identity, not content
	twin := element("span")
	if s.IsMarked(twin) {
		t.Error("structurally equal node shares the mark")
	}
}

func TestNamespacesAreIndependent(t *testing.T) {
	rewrite := New(Rewrite)
	unseen := New(Unseen)
	n := element("td")

	rewrite.Mark(n)
	if unseen.IsMarked(n) {
		t.Error("mark leaked from rewrite to unseen")
	}
	unseen.Mark(n)
	other := element("td")
	unseen.Mark(other)
	if rewrite.IsMarked(other) {
		t.Error("mark leaked from unseen to rewrite")
	}
	if rewrite.Namespace() != Rewrite || unseen.Namespace() != Unseen {
		t.Error("namespace names not kept")
	}
}

func TestNilSafety(t *testing.T) {
	var s *Set
	s.Mark(element("p"))
	if s.IsMarked(element("p")) || s.Len() != 0 {
		t.Error("nil set should be inert")
	}
	New(Rewrite).Mark(nil)
}

func markGarbage(s *Set, count int) {
	for i := 0; i < count; i++ {
		s.Mark(element("li"))
	}
}

func TestMarksDoNotOutliveNodes(t *testing.T) {
	s := New(Unseen)
	markGarbage(s, 64)

	deadline := time.Now().Add(5 * time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		runtime.GC()
		time.Sleep(10 * time.Millisecond)
	}
	if s.Len() > 0 {
		t.Skipf("runtime did not run cleanups within deadline (%d marks left)", s.Len())
	}
}
