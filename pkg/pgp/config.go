package pgp

import (
	"github.com/sirupsen/logrus"

	"example.com/pgpscan/pkg/marker"
	"example.com/pgpscan/pkg/staging"
	"example.com/pgpscan/pkg/trace"
)

// DefaultMaxPacketSize bounds every allocation driven by a declared length.
const DefaultMaxPacketSize = 1 << 20

// Config tunes a Decoder. A nil *Config is valid and uses the defaults.
type Config struct {
	// MaxPacketSize caps the in-memory size of a reassembled partial body
	// and of any single field read from a packet.
	MaxPacketSize int
	// StagingCapacity is the size of the staging buffer. Packets with larger
	// bodies are streamed from the source.
	StagingCapacity int
	// MarkerDepth is the capacity of the marker stack.
	MarkerDepth int
	// LockedStaging places the staging buffer in locked, guarded memory.
	LockedStaging bool
	// Trace receives field dumps and diagnostics. Nil discards them.
	Trace trace.Sink
	// Logger is used for debug output about body acquisition.
	Logger *logrus.Entry
}

func (c *Config) maxPacketSize() int {
	if c == nil || c.MaxPacketSize <= 0 {
		return DefaultMaxPacketSize
	}
	return c.MaxPacketSize
}

func (c *Config) stagingCapacity() int {
	if c == nil || c.StagingCapacity <= 0 {
		return staging.DefaultCapacity
	}
	return c.StagingCapacity
}

func (c *Config) markerDepth() int {
	if c == nil || c.MarkerDepth <= 0 {
		return marker.DefaultCapacity
	}
	return c.MarkerDepth
}

func (c *Config) lockedStaging() bool {
	return c != nil && c.LockedStaging
}

func (c *Config) sink() trace.Sink {
	if c == nil || c.Trace == nil {
		return trace.Discard
	}
	return c.Trace
}

func (c *Config) logger() *logrus.Entry {
	if c == nil || c.Logger == nil {
		return logrus.NewEntry(logrus.StandardLogger())
	}
	return c.Logger
}
