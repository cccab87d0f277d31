// Package codec serializes stored sessions for download.
//
// An export is one CBOR document (Core Deterministic Encoding, RFC 8949
// §4.2) compressed with zstd. The same session always produces the same
// CBOR bytes, so exports can be compared by digest.
package codec

import (
	"fmt"
	"io"
	"reflect"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/klauspost/compress/zstd"

	"github.com/vainnor/flightlog/session"
	"github.com/vainnor/flightlog/summary"
	"github.com/vainnor/flightlog/types"
)

// ContentType is the media type of an export.
const ContentType = "application/cbor+zstd"

// FormatVersion is bumped when the export layout changes incompatibly.
const FormatVersion = 1

var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("codec: CBOR encoder initialization failed: " + err.Error())
	}

	decMode, err = cbor.DecOptions{
		// Messages are decoded into map[string]any; the CBOR default of
		// map[interface{}]interface{} does not round-trip through JSON.
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("codec: CBOR decoder initialization failed: " + err.Error())
	}
}

// Export is the downloadable form of a session.
type Export struct {
	Version   int              `cbor:"version"`
	SessionID string           `cbor:"session_id"`
	Filename  string           `cbor:"filename"`
	Digest    string           `cbor:"digest"`
	CreatedAt string           `cbor:"created_at"`
	Summary   types.Summary    `cbor:"summary"`
	Messages  []map[string]any `cbor:"messages"`
}

// NewExport flattens a session into its export form.
func NewExport(sess *session.Session) Export {
	messages := make([]map[string]any, len(sess.Messages))
	for i, msg := range sess.Messages {
		messages[i] = msg.Flat()
	}
	return Export{
		Version:   FormatVersion,
		SessionID: sess.ID,
		Filename:  sess.Filename,
		Digest:    sess.Digest,
		CreatedAt: sess.CreatedAt.UTC().Format(time.RFC3339Nano),
		Summary:   summary.WithSkipped(summary.Summarize(sess.Messages), sess.Skipped),
		Messages:  messages,
	}
}

// Write encodes sess to w as zstd-compressed CBOR.
func Write(w io.Writer, sess *session.Session) error {
	zw, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return fmt.Errorf("codec: zstd writer: %w", err)
	}
	if err := encMode.NewEncoder(zw).Encode(NewExport(sess)); err != nil {
		zw.Close()
		return fmt.Errorf("codec: encoding session %s: %w", sess.ID, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("codec: flushing zstd stream: %w", err)
	}
	return nil
}

// Read decodes an export written by Write.
func Read(r io.Reader) (*Export, error) {
	zr, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("codec: zstd reader: %w", err)
	}
	defer zr.Close()

	var export Export
	if err := decMode.NewDecoder(zr).Decode(&export); err != nil {
		return nil, fmt.Errorf("codec: decoding export: %w", err)
	}
	if export.Version != FormatVersion {
		return nil, fmt.Errorf("codec: unsupported export version %d", export.Version)
	}
	return &export, nil
}
