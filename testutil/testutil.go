// Package testutil holds shared test helpers: a Postgres handle gated on
// TEST_PG_DSN and a fake match-data API server speaking the envelope format.
package testutil

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// PG opens the test database or skips the test when TEST_PG_DSN is unset.
func PG(t *testing.T) *sql.DB {
	t.Helper()
	dsn := os.Getenv("TEST_PG_DSN")
	if dsn == "" {
		t.Skip("TEST_PG_DSN not set")
	}
	conn, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// Envelope wraps a payload in the match API's response shape.
func Envelope(status string, data any) []byte {
	doc, _ := json.Marshal(map[string]any{"status": status, "data": data})
	return doc
}

// MockCODServer serves canned responses per path, plus a registerDevice
// endpoint so client login succeeds against it.
type MockCODServer struct {
	Server *httptest.Server
	// Responses maps URL paths to raw response bodies. Unknown paths get a
	// failure envelope.
	Responses map[string][]byte
	// Status optionally overrides the HTTP status per path.
	Status map[string]int
}

func NewMockCODServer(t *testing.T) *MockCODServer {
	t.Helper()
	m := &MockCODServer{
		Responses: make(map[string][]byte),
		Status:    make(map[string]int),
	}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/registerDevice" {
			_, _ = w.Write(Envelope("success", map[string]string{"authHeader": "test-auth"}))
			return
		}
		if code, ok := m.Status[r.URL.Path]; ok {
			w.WriteHeader(code)
		}
		if body, ok := m.Responses[r.URL.Path]; ok {
			_, _ = w.Write(body)
			return
		}
		_, _ = w.Write(Envelope("error", map[string]string{"message": "no canned response"}))
	}))
	t.Cleanup(m.Server.Close)
	return m
}

// URL returns the base URL with a trailing slash, matching how the client
// joins paths.
func (m *MockCODServer) URL() string {
	return m.Server.URL + "/"
}
