// Package db archives upload summaries in Postgres. Decoded messages are
// never written here; sessions stay in memory.
package db

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/vainnor/flightlog/types"
)

// ErrDisabled is returned by Open when no database host is configured.
var ErrDisabled = errors.New("upload archive disabled")

// Settings are the connection parameters.
type Settings struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
	SSLMode  string
}

func (s Settings) connString() string {
	sslMode := s.SSLMode
	if sslMode == "" {
		sslMode = "disable"
	}
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		s.Host, s.Port, s.User, s.Password, s.Name, sslMode,
	)
}

type Archive struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Archive {
	return &Archive{db: db}
}

// Open connects, checks the connection and creates the tables.
func Open(ctx context.Context, settings Settings) (*Archive, error) {
	if settings.Host == "" {
		return nil, ErrDisabled
	}

	conn, err := sql.Open("postgres", settings.connString())
	if err != nil {
		return nil, fmt.Errorf("error opening database: %w", err)
	}

	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error connecting to the database: %w", err)
	}

	archive := New(conn)
	if err = archive.CreateTables(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("error creating tables: %w", err)
	}
	return archive, nil
}

var schemaQueries = []string{
	`CREATE TABLE IF NOT EXISTS uploads (
		id BIGSERIAL PRIMARY KEY,
		session_id UUID NOT NULL UNIQUE,
		filename TEXT NOT NULL,
		digest VARCHAR(64) NOT NULL,
		size_bytes BIGINT NOT NULL,
		total_messages INTEGER NOT NULL,
		message_types JSONB NOT NULL,
		average_altitude DOUBLE PRECISION,
		skipped JSONB NOT NULL,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_created_at ON uploads (created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS idx_uploads_digest ON uploads (digest)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id SERIAL PRIMARY KEY,
		key VARCHAR(64) NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
		last_used_at TIMESTAMP WITH TIME ZONE,
		is_active BOOLEAN NOT NULL DEFAULT true
	)`,
}

func (a *Archive) CreateTables(ctx context.Context) error {
	for _, query := range schemaQueries {
		if _, err := a.db.ExecContext(ctx, query); err != nil {
			return err
		}
	}
	return nil
}

const insertUpload = `INSERT INTO uploads
	(session_id, filename, digest, size_bytes, total_messages, message_types, average_altitude, skipped, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	ON CONFLICT (session_id) DO NOTHING`

// RecordUpload stores one upload summary. Re-recording a session id is a no-op.
func (a *Archive) RecordUpload(ctx context.Context, rec types.UploadRecord) error {
	messageTypes, err := json.Marshal(rec.MessageTypes)
	if err != nil {
		return fmt.Errorf("marshal message types: %w", err)
	}
	skipped, err := json.Marshal(rec.Skipped)
	if err != nil {
		return fmt.Errorf("marshal skip counts: %w", err)
	}

	var altitude sql.NullFloat64
	if rec.AverageAltitude != nil {
		altitude = sql.NullFloat64{Float64: *rec.AverageAltitude, Valid: true}
	}

	_, err = a.db.ExecContext(ctx, insertUpload,
		rec.SessionID,
		rec.Filename,
		rec.Digest,
		rec.SizeBytes,
		rec.TotalMessages,
		messageTypes,
		altitude,
		skipped,
		rec.CreatedAt,
	)
	if err != nil {
		return describe(err)
	}
	return nil
}

const selectRecent = `SELECT session_id, filename, digest, size_bytes, total_messages,
	message_types, average_altitude, skipped, created_at
	FROM uploads
	ORDER BY created_at DESC
	LIMIT $1`

// RecentUploads lists the newest uploads first.
func (a *Archive) RecentUploads(ctx context.Context, limit int) ([]types.UploadRecord, error) {
	rows, err := a.db.QueryContext(ctx, selectRecent, limit)
	if err != nil {
		return nil, describe(err)
	}
	defer rows.Close()

	records := make([]types.UploadRecord, 0, limit)
	for rows.Next() {
		var (
			rec          types.UploadRecord
			messageTypes []byte
			skipped      []byte
			altitude     sql.NullFloat64
		)
		err := rows.Scan(
			&rec.SessionID,
			&rec.Filename,
			&rec.Digest,
			&rec.SizeBytes,
			&rec.TotalMessages,
			&messageTypes,
			&altitude,
			&skipped,
			&rec.CreatedAt,
		)
		if err != nil {
			return nil, err
		}
		if err := json.Unmarshal(messageTypes, &rec.MessageTypes); err != nil {
			return nil, fmt.Errorf("session %s message types: %w", rec.SessionID, err)
		}
		if err := json.Unmarshal(skipped, &rec.Skipped); err != nil {
			return nil, fmt.Errorf("session %s skip counts: %w", rec.SessionID, err)
		}
		if altitude.Valid {
			alt := altitude.Float64
			rec.AverageAltitude = &alt
		}
		records = append(records, rec)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}

func (a *Archive) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// describe adds the Postgres error code and detail when the driver gives them.
func describe(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return fmt.Errorf("postgres %s (%s): %w", pqErr.Code, pqErr.Code.Name(), err)
	}
	return err
}
