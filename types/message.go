package types

import (
	"bytes"
	"encoding/json"

	"github.com/vainnor/flightlog/models"
)

// DecodedMessage is one telemetry record built from a frame and its schema.
// It is not modified after the decoder returns it.
type DecodedMessage struct {
	Type      string
	ID        uint32
	Fields    Fields
	Timestamp *string
	Payload   models.Payload
}

// Flat returns the wire mapping: message_type, every schema field and the
// derived timestamp when present.
func (m DecodedMessage) Flat() map[string]any {
	flat := make(map[string]any, len(m.Fields)+2)
	for _, field := range m.Fields {
		flat[field.Name] = field.Value.Interface()
	}
	flat["message_type"] = m.Type
	if m.Timestamp != nil {
		flat["timestamp"] = *m.Timestamp
	}
	return flat
}

// MarshalJSON keeps schema field order so samples read naturally.
func (m DecodedMessage) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	writeKey := func(key string, value any) error {
		if buf.Len() > 1 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(key)
		if err != nil {
			return err
		}
		v, err := json.Marshal(value)
		if err != nil {
			return err
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
		return nil
	}

	if err := writeKey("message_type", m.Type); err != nil {
		return nil, err
	}
	for _, field := range m.Fields {
		if field.Name == "message_type" || field.Name == "timestamp" {
			continue
		}
		if err := writeKey(field.Name, field.Value); err != nil {
			return nil, err
		}
	}
	if m.Timestamp != nil {
		if err := writeKey("timestamp", *m.Timestamp); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
