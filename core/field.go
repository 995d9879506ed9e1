package core

import "sync/atomic"

var liveFields atomic.Int64

// field is an address string owned by an action or a general work item.
// It must be released exactly once, by whichever path consumes the owner.
type field struct {
	s        string
	released bool
}

func newField(s string) *field {
	liveFields.Add(1)
	return &field{s: s}
}

func (f *field) String() string {
	return f.s
}

func (f *field) release() {
	if f == nil {
		return
	}
	if f.released {
		panic("field: double release")
	}
	f.released = true
	liveFields.Add(-1)
}
