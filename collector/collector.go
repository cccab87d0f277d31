package collector

import (
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/zeebo/blake3"

	"github.com/vainnor/flightlog/decoder"
	"github.com/vainnor/flightlog/frame"
	"github.com/vainnor/flightlog/metrics"
	"github.com/vainnor/flightlog/schema"
	"github.com/vainnor/flightlog/session"
	"github.com/vainnor/flightlog/summary"
	"github.com/vainnor/flightlog/types"
)

var (
	// ErrSourceUnavailable means the log could not be opened or read. The
	// upload fails as a whole.
	ErrSourceUnavailable = errors.New("source unavailable")
	// ErrLimitExceeded means the log hit the message or time bound.
	ErrLimitExceeded = errors.New("decode limit exceeded")
)

// Limits bounds the work done for a single log. Zero values disable a bound.
type Limits struct {
	MaxMessages int
	MaxDuration time.Duration
}

// Archiver records upload summaries somewhere durable.
type Archiver interface {
	RecordUpload(ctx context.Context, rec types.UploadRecord) error
}

// Result is the outcome of decoding one source.
type Result struct {
	Messages  []types.DecodedMessage
	Skipped   types.SkipCounts
	Frames    int64
	SizeBytes int64
	Digest    string
}

type Collector struct {
	registry *schema.Registry
	store    *session.Store
	limits   Limits
	logger   *slog.Logger
	metrics  *metrics.Metrics
	archive  Archiver
	now      func() time.Time

	mu    sync.Mutex
	stats types.CollectionStats
}

type Option func(*Collector)

func WithLimits(l Limits) Option {
	return func(c *Collector) { c.limits = l }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Collector) { c.logger = l }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Collector) { c.metrics = m }
}

func WithArchive(a Archiver) Option {
	return func(c *Collector) { c.archive = a }
}

func WithClock(now func() time.Time) Option {
	return func(c *Collector) { c.now = now }
}

func NewCollector(registry *schema.Registry, store *session.Store, opts ...Option) *Collector {
	c := &Collector{
		registry: registry,
		store:    store,
		logger:   slog.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.stats.StartTime = c.now()
	return c
}

func (c *Collector) GetStats() types.CollectionStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	stats := c.stats
	stats.ActiveSessions = c.store.Len()
	return stats
}

// Decode reads src once from the start and returns every message that
// decoded. Corrupt frames and undecodable messages are counted and skipped.
func (c *Collector) Decode(ctx context.Context, src Source) (*Result, error) {
	rc, err := src.Open()
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, src.Name(), err)
	}
	defer rc.Close()

	if c.limits.MaxDuration > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeoutCause(ctx, c.limits.MaxDuration,
			fmt.Errorf("%w: decode took longer than %s", ErrLimitExceeded, c.limits.MaxDuration))
		defer cancel()
	}

	hasher := blake3.New()
	reader := frame.NewReader(io.TeeReader(rc, hasher), frame.WithChecksums(c.registry))

	result := &Result{Messages: make([]types.DecodedMessage, 0, 1024)}
	for {
		if ctx.Err() != nil {
			return nil, context.Cause(ctx)
		}

		f, err := reader.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		var frameErr *frame.FrameError
		if errors.As(err, &frameErr) {
			c.logger.Debug("skipping corrupt frame", "source", src.Name(), "offset", frameErr.Offset,
				"reason", frameErr.Reason, "msg_id", frameErr.MsgID)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrSourceUnavailable, src.Name(), err)
		}

		msg, err := decoder.Decode(f, c.registry)
		if err != nil {
			reason := "malformed"
			switch {
			case errors.Is(err, decoder.ErrUnknownType):
				reason = "unknown_type"
				result.Skipped.UnknownTypes++
			case errors.Is(err, decoder.ErrTruncated):
				reason = "truncated"
				result.Skipped.Truncated++
			default:
				result.Skipped.Malformed++
			}
			c.metrics.MessageSkipped(reason)
			c.logger.Debug("skipping message", "source", src.Name(), "offset", f.Offset, "error", err)
			continue
		}

		result.Messages = append(result.Messages, msg)
		c.metrics.MessageDecoded(msg.Type)
		if c.limits.MaxMessages > 0 && len(result.Messages) > c.limits.MaxMessages {
			return nil, fmt.Errorf("%w: more than %d messages", ErrLimitExceeded, c.limits.MaxMessages)
		}
	}

	stats := reader.Stats()
	result.Frames = stats.Frames
	result.SizeBytes = reader.Offset()
	result.Skipped.NoiseBytes = stats.NoiseBytes
	if len(stats.Errors) > 0 {
		result.Skipped.FrameErrors = make(map[string]int, len(stats.Errors))
		for reason, n := range stats.Errors {
			result.Skipped.FrameErrors[string(reason)] = int(n)
			c.metrics.AddFrameErrors(string(reason), int(n))
		}
	}
	c.metrics.AddFrames(stats.Frames)
	result.Digest = hex.EncodeToString(hasher.Sum(nil))

	return result, nil
}

// Ingest decodes src, stores the messages as a new session and returns it
// with its summary.
func (c *Collector) Ingest(ctx context.Context, filename string, src Source) (*session.Session, types.Summary, error) {
	start := c.now()

	result, err := c.Decode(ctx, src)
	if err != nil {
		c.recordFailure()
		c.metrics.Upload("failed", c.now().Sub(start).Seconds())
		c.logger.Warn("decode failed", "filename", filename, "error", err)
		return nil, types.Summary{}, err
	}

	sess := &session.Session{
		ID:        session.NewID(),
		Filename:  filename,
		Digest:    result.Digest,
		CreatedAt: c.now(),
		Messages:  result.Messages,
		Skipped:   result.Skipped,
	}
	if err := c.store.Put(sess); err != nil {
		c.recordFailure()
		return nil, types.Summary{}, fmt.Errorf("storing session: %w", err)
	}

	sum := summary.WithSkipped(summary.Summarize(sess.Messages), sess.Skipped)
	elapsed := c.now().Sub(start)

	c.mu.Lock()
	c.stats.LogsProcessed++
	c.stats.LastUpload = sess.CreatedAt
	c.stats.FramesRead += result.Frames
	c.stats.MessagesDecoded += int64(len(result.Messages))
	c.stats.MessagesSkipped += int64(result.Skipped.Total())
	c.mu.Unlock()

	c.metrics.Upload("ok", elapsed.Seconds())
	c.metrics.SetSessions(c.store.Len())

	c.logger.Info("log decoded",
		"session_id", sess.ID,
		"filename", filename,
		"digest", sess.Digest,
		"messages", sum.TotalMessages,
		"types", len(sum.MessageTypes),
		"skipped", result.Skipped.Total(),
		"elapsed", elapsed.Round(time.Millisecond))

	if c.archive != nil {
		rec := types.UploadRecord{
			SessionID:       sess.ID,
			Filename:        filename,
			Digest:          sess.Digest,
			SizeBytes:       result.SizeBytes,
			TotalMessages:   sum.TotalMessages,
			MessageTypes:    sum.MessageTypes,
			AverageAltitude: sum.AverageAltitude,
			Skipped:         result.Skipped,
			CreatedAt:       sess.CreatedAt,
		}
		if err := c.archive.RecordUpload(ctx, rec); err != nil {
			c.logger.Error("archiving upload", "session_id", sess.ID, "error", err)
		}
	}

	return sess, sum, nil
}

func (c *Collector) recordFailure() {
	c.mu.Lock()
	c.stats.LogsFailed++
	c.mu.Unlock()
}
