package pgp

import (
	"bufio"
	"bytes"
	"io"
	"os"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"example.com/pgpscan/pkg/armor"
	"example.com/pgpscan/pkg/marker"
	"example.com/pgpscan/pkg/staging"
	"example.com/pgpscan/pkg/trace"
	"example.com/pgpscan/pkg/util/securemem"
)

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("pgp: decoder closed")

type decoderState uint8

const (
	stateStart decoderState = iota
	stateReadHeader
	stateRoute
	stateDone
)

// Packet is one decoded packet. Offset is the stream offset of the tag byte
// and End the offset just past the body. BodyLength is the total body size,
// which for partial chains differs from Header.Length.
//
// Err holds a recoverable problem (structural, unsupported, capacity); Body
// is then as complete as the decoder could make it.
type Packet struct {
	Header
	Offset     int64
	End        int64
	BodyLength int64
	Body       Body
	Err        error
	Warnings   []error
}

// Decoder pulls packets from a byte source one at a time. It owns its
// staging buffer and marker stack; independent Decoders share nothing.
type Decoder struct {
	src    *source
	stage  *staging.Buffer
	region *securemem.Region
	marks  *marker.Stack
	sink   trace.Sink
	log    *logrus.Entry
	max    int

	end   int64
	state decoderState
	err   error
}

// NewDecoder returns a Decoder reading from r.
func NewDecoder(r io.Reader, cfg *Config) *Decoder {
	d := &Decoder{
		src:  &source{r: r},
		sink: cfg.sink(),
		log:  cfg.logger(),
		max:  cfg.maxPacketSize(),
	}
	if cfg.lockedStaging() {
		d.region = securemem.New(cfg.stagingCapacity())
		d.stage = staging.NewOn(d.region.Bytes())
	} else {
		d.stage = staging.New(cfg.stagingCapacity())
	}
	d.marks = marker.New(cfg.markerDepth(), d)
	return d
}

// Start is the stream offset of the next byte to be read.
func (d *Decoder) Start() int64 { return d.src.pos }

// End is the stream offset just past the current packet body.
func (d *Decoder) End() int64 { return d.end }

// Done reports whether the session has ended, cleanly or not.
func (d *Decoder) Done() bool { return d.state == stateDone }

// Next decodes the next packet. It returns io.EOF at a clean end of stream.
// Any other error is fatal: the packet decoded so far (possibly nil) is
// returned with it and every later call returns the same error.
func (d *Decoder) Next() (*Packet, error) {
	if d.err != nil {
		return nil, d.err
	}
	d.state = stateReadHeader
	d.marks.Reset()
	d.stage.Reset()
	ctx := &packetContext{marks: d.marks}

	start := d.src.pos
	startMarked := ctx.push(d.marks.MarkStart, marker.FlagPacket, start)
	hdr, _, err := readHeader(d.src)
	if err == io.EOF {
		d.state = stateDone
		d.err = io.EOF
		return nil, io.EOF
	}
	if err != nil {
		return nil, d.fail(atOffset(err, start), start, -1)
	}
	pkt := &Packet{Header: hdr, Offset: start}

	b, err := d.acquire(pkt, ctx)
	if fatal(err) {
		return pkt, d.fail(atOffset(err, start), start, int(hdr.Tag))
	}
	endMarked := ctx.push(d.marks.MarkEnd, marker.FlagPacket, d.end)

	d.state = stateRoute
	if b != nil {
		pkt.Body, err = route(b, hdr.Tag, ctx)
		if err == nil && b.remaining > 0 {
			err = structural("%s packet leaves %d of %d body bytes undecoded", TagName(hdr.Tag), b.remaining, pkt.BodyLength)
		}
		if !fatal(err) {
			if _, serr := b.skip(); serr != nil {
				err = serr
			}
		}
		if fatal(err) {
			return pkt, d.fail(atOffset(err, start), start, int(hdr.Tag))
		}
	}
	if pkt.Body == nil {
		pkt.Body = &Opaque{Tag: hdr.Tag, Length: pkt.BodyLength}
	}
	if err != nil {
		pkt.Err = atOffset(err, start)
	}
	pkt.Warnings = ctx.warnings

	pkt.End = d.end
	if endMarked {
		if m, err := d.marks.Pop(); err == nil {
			pkt.End = m.Offset
		}
	}
	if startMarked {
		if m, err := d.marks.Pop(); err == nil {
			pkt.Offset = m.Offset
		}
	}
	d.state = stateStart
	describe(d.sink, pkt)
	return pkt, nil
}

func (d *Decoder) fail(err error, off int64, tag int) error {
	d.err = err
	d.state = stateDone
	d.sink.Diagnostic(trace.Diagnostic{Offset: off, Tag: tag, Kind: kindLabel(err), Err: err})
	return err
}

// acquire positions a budgeted reader over the packet body. A nil body with
// a capacity error means the body was consumed but could not be held.
func (d *Decoder) acquire(pkt *Packet, ctx *packetContext) (*body, error) {
	off := d.src.pos
	switch {
	case pkt.Partial && pkt.Format == FormatOld:
		return d.readIndeterminate(pkt, off)
	case pkt.Partial:
		return d.readPartialChain(pkt, off)
	}

	n := int64(pkt.Length)
	pkt.BodyLength = n
	d.end = off + n
	if n <= int64(d.stage.Free()) {
		if _, err := d.stage.Fill(d.src, int(n)); err != nil {
			return nil, shortRead(err, "staging %d byte body at offset %d", n, off)
		}
		d.log.WithFields(logrus.Fields{"offset": off, "length": n}).Debug("staged packet body")
		return newBody(d.stage, n, off, d.max), nil
	}
	ctx.warn(capacity(staging.ErrFull, "%d byte body exceeds the %d byte staging buffer, streaming", n, d.stage.Cap()))
	d.log.WithFields(logrus.Fields{"offset": off, "length": n}).Debug("streaming packet body")
	return newBody(d.src, n, off, d.max), nil
}

// readPartialLength reads the length of the next segment of a partial chain.
func (d *Decoder) readPartialLength() (uint32, bool, error) {
	length, partial, _, err := decodeNewLength(d.src, true)
	return length, partial, err
}

// readPartialChain joins partial body segments until a definite length ends
// the chain. Segments past the packet size limit are discarded.
func (d *Decoder) readPartialChain(pkt *Packet, off int64) (*body, error) {
	var (
		buf      bytes.Buffer
		total    int64
		segments int
		overflow bool
	)
	seg, partial := pkt.Length, true
	for {
		segments++
		total += int64(seg)
		dst := io.Writer(&buf)
		if overflow || total > int64(d.max) {
			overflow = true
			dst = io.Discard
		}
		if _, err := io.CopyN(dst, d.src, int64(seg)); err != nil {
			return nil, shortRead(err, "reading %d byte partial body segment", seg)
		}
		if !partial {
			break
		}
		var err error
		if seg, partial, err = d.readPartialLength(); err != nil {
			return nil, err
		}
	}
	pkt.BodyLength = total
	d.end = d.src.pos
	d.log.WithFields(logrus.Fields{"offset": off, "length": total, "segments": segments}).Debug("reassembled partial body")
	if overflow {
		pkt.Body = &Opaque{Tag: pkt.Tag, Length: total}
		return nil, capacity(nil, "partial body of %d bytes exceeds the %d byte limit", total, d.max)
	}
	return newBody(bytes.NewReader(buf.Bytes()), total, off, d.max), nil
}

// readIndeterminate reads an old-format body that runs to the end of the
// stream.
func (d *Decoder) readIndeterminate(pkt *Packet, off int64) (*body, error) {
	data, err := io.ReadAll(io.LimitReader(d.src, int64(d.max)+1))
	if err != nil {
		return nil, shortRead(err, "reading indeterminate length body")
	}
	if len(data) > d.max {
		n, err := io.Copy(io.Discard, d.src)
		if err != nil {
			return nil, shortRead(err, "skipping indeterminate length body")
		}
		pkt.BodyLength = int64(len(data)) + n
		d.end = d.src.pos
		pkt.Body = &Opaque{Tag: pkt.Tag, Length: pkt.BodyLength}
		return nil, capacity(nil, "indeterminate body of %d bytes exceeds the %d byte limit", pkt.BodyLength, d.max)
	}
	pkt.BodyLength = int64(len(data))
	d.end = d.src.pos
	return newBody(bytes.NewReader(data), pkt.BodyLength, off, d.max), nil
}

func route(b *body, tag uint8, ctx *packetContext) (Body, error) {
	switch tag {
	case TAG_SIGNATURE:
		return parseSignature(b, ctx)
	case TAG_PUBLIC_KEY, TAG_PUBLIC_SUBKEY:
		return parsePublicKey(b, tag == TAG_PUBLIC_SUBKEY)
	case TAG_SECRET_KEY, TAG_SECRET_SUBKEY:
		return parseSecretKey(b, tag == TAG_SECRET_SUBKEY)
	case TAG_PKESK:
		return parseEncryptedKey(b)
	case TAG_SKESK:
		return parseSymmetricKeyEncrypted(b)
	case TAG_ONE_PASS_SIG:
		return parseOnePassSignature(b)
	case TAG_SED, TAG_SEIPD:
		return parseEncryptedData(b, tag)
	case TAG_USER_ID:
		return parseUserID(b)
	case TAG_LITERAL:
		return parseLiteralData(b)
	case TAG_COMPRESSED:
		return parseCompressedData(b)
	case TAG_MARKER:
		return parseMarker(b)
	case TAG_MDC:
		return parseMDC(b)
	default:
		return parseOpaque(b, tag)
	}
}

// Close releases the staging memory. Next returns ErrClosed afterwards.
func (d *Decoder) Close() error {
	if d.region != nil {
		d.region.Destroy()
		d.region = nil
	}
	d.state = stateDone
	if d.err == nil || d.err == io.EOF {
		d.err = ErrClosed
	}
	return nil
}

// Decode reads every packet from r and releases the decoder on every path.
// A clean end of stream returns a nil error.
func Decode(r io.Reader, cfg *Config) ([]*Packet, error) {
	d := NewDecoder(r, cfg)
	defer d.Close()

	var pkts []*Packet
	for {
		pkt, err := d.Next()
		if pkt != nil {
			pkts = append(pkts, pkt)
		}
		if err == io.EOF {
			return pkts, nil
		}
		if err != nil {
			return pkts, err
		}
	}
}

// DecodeFile decodes the file at path, unwrapping ASCII armor if present.
func DecodeFile(path string, cfg *Config) ([]*Packet, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "pgp: open %s", path)
	}
	defer f.Close()

	r, blockType, err := armor.Open(bufio.NewReader(f))
	if err != nil {
		return nil, err
	}
	if blockType != "" {
		cfg.logger().WithField("block", blockType).Debug("unwrapped armor")
	}
	return Decode(r, cfg)
}

// packetContext carries the per-packet marker stack and the non-fatal
// problems that do not belong to any one field.
type packetContext struct {
	marks    *marker.Stack
	warnings []error
}

func (c *packetContext) warn(err error) {
	if c != nil {
		c.warnings = append(c.warnings, err)
	}
}

func (c *packetContext) push(fn func(marker.Flag) error, flag marker.Flag, off int64) bool {
	if err := fn(flag); err != nil {
		c.warn(capacity(err, "marking %s at offset %d", flag, off))
		return false
	}
	return true
}

// mark records the start of a nested structure at off.
func (c *packetContext) mark(off int64, flag marker.Flag) bool {
	if c == nil || c.marks == nil {
		return false
	}
	return c.push(func(f marker.Flag) error { return c.marks.Mark(off, f) }, flag, off)
}

func (c *packetContext) unmark() (marker.Marker, bool) {
	if c == nil || c.marks == nil {
		return marker.Marker{}, false
	}
	m, err := c.marks.Pop()
	return m, err == nil
}
