// Package frame splits a MAVLink byte stream into frames.
//
// The reader makes a single forward pass over its source. It synchronizes
// on the v1 (0xFE) and v2 (0xFD) start bytes, checks the declared length
// and the X.25 checksum of every message id it has a CRC_EXTRA seed for,
// and reports corrupt frames as *FrameError without stopping. When checking
// is on, a frame with no seed is only accepted when the next start byte, or
// the end of the stream, follows it directly. After a rejected frame only the start byte
// is dropped, so a genuine frame that begins inside the rejected bytes is
// still found.
package frame

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

const (
	MagicV1 byte = 0xFE
	MagicV2 byte = 0xFD

	headerLenV1  = 6
	headerLenV2  = 10
	checksumLen  = 2
	signatureLen = 13

	incompatSigned = 0x01

	// MaxFrameLen is a v2 frame with a full payload and a signature.
	MaxFrameLen = headerLenV2 + 255 + checksumLen + signatureLen

	bufferSize = 64 * 1024
)

// ErrSourceUnavailable marks a failure of the underlying byte source. It
// ends the stream.
var ErrSourceUnavailable = errors.New("source unavailable")

// Reason classifies a corrupt frame.
type Reason string

const (
	ReasonTruncated     Reason = "truncated"
	ReasonInvalidLength Reason = "invalid_length"
	ReasonChecksum      Reason = "checksum"
	ReasonIncompatFlags Reason = "incompat_flags"
	// ReasonUnverified is a frame without a checksum seed that is not
	// followed by another start byte.
	ReasonUnverified Reason = "unverified"
)

// FrameError is a recoverable, per-frame failure.
type FrameError struct {
	Offset int64
	Reason Reason
	MsgID  uint32
	Detail string
}

func (e *FrameError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("frame at offset %d (msg %d): %s: %s", e.Offset, e.MsgID, e.Reason, e.Detail)
	}
	return fmt.Sprintf("frame at offset %d (msg %d): %s", e.Offset, e.MsgID, e.Reason)
}

// Frame is one structurally valid message as it appeared on the wire.
type Frame struct {
	Version uint8
	MsgID   uint32
	Seq     uint8
	SysID   uint8
	CompID  uint8
	// Length is the payload length declared in the header.
	Length  int
	Payload []byte
	Offset  int64
}

// ChecksumLookup supplies the CRC_EXTRA seed and the base payload length
// for a message id. A length of 0 skips the length check. Ids it does not
// know are only checked for a following start byte.
type ChecksumLookup interface {
	Checksum(msgID uint32) (crcExtra byte, length int, ok bool)
}

// Stats counts what the reader has seen so far.
type Stats struct {
	Frames     int64
	Errors     map[Reason]int64
	NoiseBytes int64
}

type Option func(*Reader)

// WithChecksums enables length and CRC validation for known message ids.
func WithChecksums(lookup ChecksumLookup) Option {
	return func(r *Reader) { r.lookup = lookup }
}

type Reader struct {
	br     *bufio.Reader
	lookup ChecksumLookup
	offset int64
	stats  Stats
	err    error
}

func NewReader(src io.Reader, opts ...Option) *Reader {
	r := &Reader{
		br:    bufio.NewReaderSize(src, bufferSize),
		stats: Stats{Errors: make(map[Reason]int64)},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Stats returns a copy of the reader counters.
func (r *Reader) Stats() Stats {
	stats := Stats{
		Frames:     r.stats.Frames,
		NoiseBytes: r.stats.NoiseBytes,
		Errors:     make(map[Reason]int64, len(r.stats.Errors)),
	}
	for reason, n := range r.stats.Errors {
		stats.Errors[reason] = n
	}
	return stats
}

// Offset is the number of bytes consumed from the source.
func (r *Reader) Offset() int64 { return r.offset }

// Next returns the next frame. A *FrameError reports one corrupt frame and
// the caller may keep calling Next. io.EOF ends the stream normally; an
// error wrapping ErrSourceUnavailable ends it abnormally. Both terminal
// errors are returned again on every later call.
func (r *Reader) Next() (Frame, error) {
	if r.err != nil {
		return Frame{}, r.err
	}

	for {
		head, err := r.br.Peek(1)
		if err != nil {
			return Frame{}, r.terminate(err)
		}

		magic := head[0]
		if magic != MagicV1 && magic != MagicV2 {
			r.discard(1)
			r.stats.NoiseBytes++
			continue
		}

		f, err := r.readFrame(magic)
		if err != nil {
			var frameErr *FrameError
			if errors.As(err, &frameErr) {
				r.stats.Errors[frameErr.Reason]++
				r.discard(1)
			}
			return Frame{}, err
		}
		return f, nil
	}
}

func (r *Reader) readFrame(magic byte) (Frame, error) {
	headerLen := headerLenV1
	if magic == MagicV2 {
		headerLen = headerLenV2
	}

	header, err := r.br.Peek(headerLen)
	if err != nil {
		return Frame{}, r.shortRead(err, 0, fmt.Sprintf("header needs %d bytes, have %d", headerLen, len(header)))
	}

	f := Frame{
		Offset: r.offset,
		Length: int(header[1]),
	}
	total := headerLen + f.Length + checksumLen

	if magic == MagicV1 {
		f.Version = 1
		f.Seq, f.SysID, f.CompID = header[2], header[3], header[4]
		f.MsgID = uint32(header[5])
	} else {
		f.Version = 2
		incompat := header[2]
		f.Seq, f.SysID, f.CompID = header[4], header[5], header[6]
		f.MsgID = uint32(header[7]) | uint32(header[8])<<8 | uint32(header[9])<<16
		if incompat&^incompatSigned != 0 {
			return Frame{}, &FrameError{
				Offset: f.Offset,
				Reason: ReasonIncompatFlags,
				MsgID:  f.MsgID,
				Detail: fmt.Sprintf("flags 0x%02x", incompat),
			}
		}
		if incompat&incompatSigned != 0 {
			total += signatureLen
		}
	}

	var (
		crcExtra byte
		known    bool
	)
	if r.lookup != nil {
		var length int
		crcExtra, length, known = r.lookup.Checksum(f.MsgID)
		// v2 senders trim trailing zero bytes and may append extension
		// fields, so only v1 lengths are exact.
		if known && length > 0 && f.Version == 1 && f.Length != length {
			return Frame{}, &FrameError{
				Offset: f.Offset,
				Reason: ReasonInvalidLength,
				MsgID:  f.MsgID,
				Detail: fmt.Sprintf("length %d, want %d", f.Length, length),
			}
		}
	}

	raw, err := r.br.Peek(total)
	if err != nil {
		return Frame{}, r.shortRead(err, f.MsgID, fmt.Sprintf("frame needs %d bytes, have %d", total, len(raw)))
	}

	// The source error, if any, is reported after this frame.
	var failed error
	if r.lookup != nil && !known {
		next, err := r.br.Peek(total + 1)
		// A refill may have moved the buffer under raw.
		raw = next[:total]
		switch {
		case err == nil:
			if b := next[total]; b != MagicV1 && b != MagicV2 {
				return Frame{}, &FrameError{
					Offset: f.Offset,
					Reason: ReasonUnverified,
					MsgID:  f.MsgID,
					Detail: fmt.Sprintf("no checksum seed and 0x%02x follows", b),
				}
			}
		case !errors.Is(err, io.EOF):
			failed = err
		}
	}

	payloadEnd := headerLen + f.Length
	if known {
		want := Checksum(raw[1:payloadEnd], crcExtra)
		got := uint16(raw[payloadEnd]) | uint16(raw[payloadEnd+1])<<8
		if want != got {
			return Frame{}, &FrameError{
				Offset: f.Offset,
				Reason: ReasonChecksum,
				MsgID:  f.MsgID,
				Detail: fmt.Sprintf("crc 0x%04x, want 0x%04x", got, want),
			}
		}
	}

	f.Payload = make([]byte, f.Length)
	copy(f.Payload, raw[headerLen:payloadEnd])

	r.discard(total)
	r.stats.Frames++
	if failed != nil {
		r.terminate(failed)
	}
	return f, nil
}

// shortRead turns a short Peek into a truncation at end of stream or a
// terminal source failure.
func (r *Reader) shortRead(err error, msgID uint32, detail string) error {
	if errors.Is(err, io.EOF) {
		return &FrameError{Offset: r.offset, Reason: ReasonTruncated, MsgID: msgID, Detail: detail}
	}
	return r.terminate(err)
}

func (r *Reader) terminate(err error) error {
	if errors.Is(err, io.EOF) {
		r.err = io.EOF
	} else {
		r.err = fmt.Errorf("%w: offset %d: %w", ErrSourceUnavailable, r.offset, err)
	}
	return r.err
}

func (r *Reader) discard(n int) {
	discarded, _ := r.br.Discard(n)
	r.offset += int64(discarded)
}
