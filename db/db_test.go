package db

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"

	"github.com/vainnor/flightlog/types"
)

func TestRecordUpload(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	archive := New(conn)
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	alt := 150.0

	mock.ExpectExec(regexp.QuoteMeta(insertUpload)).
		WithArgs(
			"0b7c6a7e-8f1c-4a53-9d43-0d1f3c1f8a11",
			"flight.bin",
			"abc123",
			int64(512),
			8,
			[]byte(`{"ATTITUDE":5,"GPS_RAW_INT":3}`),
			150.0,
			sqlmock.AnyArg(),
			created,
		).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = archive.RecordUpload(context.Background(), types.UploadRecord{
		SessionID:       "0b7c6a7e-8f1c-4a53-9d43-0d1f3c1f8a11",
		Filename:        "flight.bin",
		Digest:          "abc123",
		SizeBytes:       512,
		TotalMessages:   8,
		MessageTypes:    map[string]int{"ATTITUDE": 5, "GPS_RAW_INT": 3},
		AverageAltitude: &alt,
		CreatedAt:       created,
	})
	if err != nil {
		t.Fatalf("record upload: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordUploadWithoutAltitude(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertUpload)).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg(),
			sqlmock.AnyArg(), nil, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	if err := New(conn).RecordUpload(context.Background(), types.UploadRecord{SessionID: "s"}); err != nil {
		t.Fatalf("record upload: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestRecordUploadDescribesPostgresErrors(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec(regexp.QuoteMeta(insertUpload)).
		WillReturnError(&pq.Error{Code: "53300", Message: "too many connections"})

	err = New(conn).RecordUpload(context.Background(), types.UploadRecord{SessionID: "s"})
	if err == nil {
		t.Fatal("expected an error")
	}
	if !strings.Contains(err.Error(), "postgres 53300 (too_many_connections)") {
		t.Fatalf("unexpected error text: %v", err)
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		t.Fatalf("expected wrapped *pq.Error, got %T", err)
	}
}

func TestRecentUploads(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	columns := []string{"session_id", "filename", "digest", "size_bytes", "total_messages",
		"message_types", "average_altitude", "skipped", "created_at"}
	rows := sqlmock.NewRows(columns).
		AddRow("s-2", "b.bin", "d2", int64(64), int64(1), []byte(`{"HEARTBEAT":1}`), nil,
			[]byte(`{"unknown_types":0,"truncated":0,"malformed":0,"noise_bytes":0}`), created).
		AddRow("s-1", "a.bin", "d1", int64(512), int64(8), []byte(`{"ATTITUDE":5,"GPS_RAW_INT":3}`), 150.0,
			[]byte(`{"frame_errors":{"checksum":1},"unknown_types":2,"truncated":0,"malformed":0,"noise_bytes":3}`), created.Add(-time.Hour))

	mock.ExpectQuery(regexp.QuoteMeta(selectRecent)).WithArgs(10).WillReturnRows(rows)

	uploads, err := New(conn).RecentUploads(context.Background(), 10)
	if err != nil {
		t.Fatalf("recent uploads: %v", err)
	}
	if len(uploads) != 2 {
		t.Fatalf("expected 2 uploads, got %d", len(uploads))
	}
	if uploads[0].AverageAltitude != nil {
		t.Fatalf("expected no altitude for s-2, got %v", *uploads[0].AverageAltitude)
	}
	second := uploads[1]
	if second.AverageAltitude == nil || *second.AverageAltitude != 150 {
		t.Fatalf("expected altitude 150 for s-1, got %v", second.AverageAltitude)
	}
	if second.MessageTypes["GPS_RAW_INT"] != 3 {
		t.Fatalf("unexpected message types: %v", second.MessageTypes)
	}
	if second.Skipped.FrameErrors["checksum"] != 1 || second.Skipped.UnknownTypes != 2 {
		t.Fatalf("unexpected skip counts: %+v", second.Skipped)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestCreateTables(t *testing.T) {
	conn, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock: %v", err)
	}
	defer conn.Close()

	mock.ExpectExec("CREATE TABLE IF NOT EXISTS uploads").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_uploads_created_at").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE INDEX IF NOT EXISTS idx_uploads_digest").WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec("CREATE TABLE IF NOT EXISTS api_keys").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := New(conn).CreateTables(context.Background()); err != nil {
		t.Fatalf("create tables: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("unmet expectations: %v", err)
	}
}

func TestOpenWithoutHost(t *testing.T) {
	if _, err := Open(context.Background(), Settings{}); !errors.Is(err, ErrDisabled) {
		t.Fatalf("expected ErrDisabled, got %v", err)
	}
}

func TestConnString(t *testing.T) {
	got := Settings{Host: "db", Port: "5432", User: "u", Password: "p", Name: "flightlog"}.connString()
	want := "host=db port=5432 user=u password=p dbname=flightlog sslmode=disable"
	if got != want {
		t.Fatalf("conn string = %q, want %q", got, want)
	}
}
