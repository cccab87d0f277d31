package types

import "time"

// Summary is the aggregate view of a decoded message sequence.
type Summary struct {
	TotalMessages   int            `json:"total_messages"`
	MessageTypes    map[string]int `json:"message_types"`
	AverageAltitude *float64       `json:"average_altitude,omitempty"`
	Skipped         *SkipCounts    `json:"skipped,omitempty"`
}

// SkipCounts records what the skip-and-continue policy dropped.
type SkipCounts struct {
	FrameErrors  map[string]int `json:"frame_errors,omitempty"`
	UnknownTypes int            `json:"unknown_types"`
	Truncated    int            `json:"truncated"`
	Malformed    int            `json:"malformed"`
	NoiseBytes   int64          `json:"noise_bytes"`
}

// Total is the number of frames or messages dropped.
func (s SkipCounts) Total() int {
	total := s.UnknownTypes + s.Truncated + s.Malformed
	for _, n := range s.FrameErrors {
		total += n
	}
	return total
}

// CollectionStats tracks every log the collector has processed since start.
type CollectionStats struct {
	StartTime       time.Time `json:"start_time"`
	LastUpload      time.Time `json:"last_upload,omitempty"`
	LogsProcessed   int64     `json:"logs_processed"`
	LogsFailed      int64     `json:"logs_failed"`
	FramesRead      int64     `json:"frames_read"`
	MessagesDecoded int64     `json:"messages_decoded"`
	MessagesSkipped int64     `json:"messages_skipped"`
	ActiveSessions  int       `json:"active_sessions"`
}

// UploadRecord is the audit entry written for every successful upload.
type UploadRecord struct {
	SessionID       string         `json:"session_id"`
	Filename        string         `json:"filename"`
	Digest          string         `json:"digest"`
	SizeBytes       int64          `json:"size_bytes"`
	TotalMessages   int            `json:"total_messages"`
	MessageTypes    map[string]int `json:"message_types"`
	AverageAltitude *float64       `json:"average_altitude,omitempty"`
	Skipped         SkipCounts     `json:"skipped"`
	CreatedAt       time.Time      `json:"created_at"`
}
