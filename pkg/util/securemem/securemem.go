// Package securemem provides locked, guard-paged memory regions for staging
// packet bodies that may carry key material.
package securemem

import (
	"github.com/awnumar/memguard"
)

// Region wraps a memguard locked buffer.
type Region struct {
	buf *memguard.LockedBuffer
}

// New allocates a mutable locked region of n bytes.
func New(n int) *Region {
	return &Region{buf: memguard.NewBuffer(n)}
}

// Bytes returns the backing slice. It is invalid after Destroy.
func (r *Region) Bytes() []byte { return r.buf.Bytes() }

// Size reports the region size, 0 once destroyed.
func (r *Region) Size() int { return r.buf.Size() }

// Destroy wipes and unlocks the region. Safe to call more than once.
func (r *Region) Destroy() { r.buf.Destroy() }
