// Package marker keeps a small bounded stack of stream offsets that delimit
// the structures a decoder is currently inside of.
package marker

import "errors"

// DefaultCapacity is the number of nesting levels tracked by default.
const DefaultCapacity = 4

var (
	// ErrCapacityExceeded is returned by a push on a full stack. The entries
	// already on the stack are left untouched.
	ErrCapacityExceeded = errors.New("marker: capacity exceeded")
	// ErrEmpty is returned by Pop and Peek on an empty stack.
	ErrEmpty = errors.New("marker: stack empty")
)

// Flag tags what kind of structure a marker belongs to.
type Flag uint8

const (
	FlagPacket Flag = iota
	FlagSubpacketArea
)

func (f Flag) String() string {
	switch f {
	case FlagPacket:
		return "packet"
	case FlagSubpacketArea:
		return "subpacket-area"
	default:
		return "unknown"
	}
}

// Marker is one recorded boundary.
type Marker struct {
	Offset int64
	Flag   Flag
}

// Cursor exposes the two stream positions a decoder can mark: Start is where
// the next structured read happens, End is how far the source has been
// pulled.
type Cursor interface {
	Start() int64
	End() int64
}

// Stack is a fixed-capacity LIFO of markers.
type Stack struct {
	cursor  Cursor
	entries []Marker
}

// New returns a stack holding at most capacity markers. Capacities below 1
// fall back to DefaultCapacity. cursor may be nil if only Mark is used.
func New(capacity int, cursor Cursor) *Stack {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	return &Stack{cursor: cursor, entries: make([]Marker, 0, capacity)}
}

// MarkStart pushes the cursor's start position.
func (s *Stack) MarkStart(flag Flag) error {
	return s.Mark(s.cursor.Start(), flag)
}

// MarkEnd pushes the cursor's end position.
func (s *Stack) MarkEnd(flag Flag) error {
	return s.Mark(s.cursor.End(), flag)
}

// Mark pushes an explicit offset.
func (s *Stack) Mark(offset int64, flag Flag) error {
	if len(s.entries) == cap(s.entries) {
		return ErrCapacityExceeded
	}
	s.entries = append(s.entries, Marker{Offset: offset, Flag: flag})
	return nil
}

// Pop removes and returns the most recent marker.
func (s *Stack) Pop() (Marker, error) {
	if len(s.entries) == 0 {
		return Marker{}, ErrEmpty
	}
	m := s.entries[len(s.entries)-1]
	s.entries = s.entries[:len(s.entries)-1]
	return m, nil
}

// Peek returns the most recent marker without removing it.
func (s *Stack) Peek() (Marker, error) {
	if len(s.entries) == 0 {
		return Marker{}, ErrEmpty
	}
	return s.entries[len(s.entries)-1], nil
}

// At returns the i-th marker counted from the bottom.
func (s *Stack) At(i int) (Marker, bool) {
	if i < 0 || i >= len(s.entries) {
		return Marker{}, false
	}
	return s.entries[i], true
}

func (s *Stack) Len() int { return len(s.entries) }

func (s *Stack) Cap() int { return cap(s.entries) }

// Reset drops every marker.
func (s *Stack) Reset() { s.entries = s.entries[:0] }
