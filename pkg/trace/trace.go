// Package trace is the presentation side of the decoder: a sink that receives
// labelled hex blocks, decoded fields and typed diagnostics. Decoding never
// depends on what a sink does with them.
package trace

import (
	"fmt"
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

const bytesPerLine = 16

// Diagnostic describes one decode problem.
type Diagnostic struct {
	Offset int64
	Tag    int // packet tag, -1 when not inside a packet
	Kind   string
	Err    error
}

// Sink receives trace output.
type Sink interface {
	Hex(label string, b []byte)
	Field(label string, value interface{})
	Diagnostic(d Diagnostic)
}

// Discard drops everything.
var Discard Sink = discard{}

type discard struct{}

func (discard) Hex(string, []byte)        {}
func (discard) Field(string, interface{}) {}
func (discard) Diagnostic(Diagnostic)     {}

// Writer dumps fields and hex blocks as text to w and reports diagnostics
// through a logrus entry.
type Writer struct {
	w      io.Writer
	log    *logrus.Entry
	hexOff bool
	err    error
}

// NewWriter returns a text sink. A nil log uses the standard logrus logger.
func NewWriter(w io.Writer, log *logrus.Entry) *Writer {
	if log == nil {
		log = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Writer{w: w, log: log}
}

// DisableHex suppresses hex blocks; fields and diagnostics still go out.
func (t *Writer) DisableHex() { t.hexOff = true }

// Err returns the first error hit while writing to the underlying writer.
func (t *Writer) Err() error { return t.err }

func (t *Writer) Hex(label string, b []byte) {
	if t.hexOff || len(b) == 0 {
		return
	}
	t.printf("%s", FormatHex(label, b))
}

func (t *Writer) Field(label string, value interface{}) {
	switch v := value.(type) {
	case []byte:
		t.printf("%s: %x\n", label, v)
	default:
		t.printf("%s: %v\n", label, v)
	}
}

func (t *Writer) Diagnostic(d Diagnostic) {
	fields := logrus.Fields{
		"offset": d.Offset,
		"kind":   d.Kind,
	}
	if d.Tag >= 0 {
		fields["tag"] = d.Tag
	}
	t.log.WithFields(fields).Warn(d.Err)
}

func (t *Writer) printf(format string, args ...interface{}) {
	if t.err != nil {
		return
	}
	_, t.err = fmt.Fprintf(t.w, format, args...)
}

// FormatHex renders b sixteen bytes per line, each line prefixed by label.
func FormatHex(label string, b []byte) string {
	var sb strings.Builder
	for i := 0; i < len(b); i += bytesPerLine {
		end := i + bytesPerLine
		if end > len(b) {
			end = len(b)
		}
		sb.WriteString(label)
		sb.WriteString(":")
		for _, c := range b[i:end] {
			fmt.Fprintf(&sb, " %02x", c)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}
