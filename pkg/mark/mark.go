// Package mark keeps one-shot "already handled" marks for DOM nodes.
//
// Marks live in a side table keyed by weak pointers, so marking a node never extends its
// lifetime and never touches its attributes. When the node is collected the entry is
// dropped by a runtime cleanup.
package mark

import (
	"runtime"
	"sync"
	"weak"

	"golang.org/x/net/html"
)

// Namespaces used by the page passes.
const (
	Rewrite = "rewrite"
	Unseen  = "unseen"
)

// Set is one mark namespace. Two Sets never share marks.
type Set struct {
	namespace string
	mu        sync.Mutex
	marks     map[weak.Pointer[html.Node]]struct{}
}

// New returns an empty mark set for namespace.
func New(namespace string) *Set {
	return &Set{
		namespace: namespace,
		marks:     make(map[weak.Pointer[html.Node]]struct{}),
	}
}

// Namespace returns the name the set was created with.
func (s *Set) Namespace() string {
	return s.namespace
}

// IsMarked reports whether n was marked in this namespace.
func (s *Set) IsMarked(n *html.Node) bool {
	if s == nil || n == nil {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.marks[weak.Make(n)]
	return ok
}

// Mark records n as handled. Marking twice is a no-op.
func (s *Set) Mark(n *html.Node) {
	if s == nil || n == nil {
		return
	}
	p := weak.Make(n)

	s.mu.Lock()
	if _, ok := s.marks[p]; ok {
		s.mu.Unlock()
		return
	}
	s.marks[p] = struct{}{}
	s.mu.Unlock()

	runtime.AddCleanup(n, s.forget, p)
}

// Len returns the number of marks whose node has not been collected yet.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.marks)
}

func (s *Set) forget(p weak.Pointer[html.Node]) {
	s.mu.Lock()
	delete(s.marks, p)
	s.mu.Unlock()
}
