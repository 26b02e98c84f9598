// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package testutil

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/danielhkuo/quickly-elect/auth"
	"github.com/danielhkuo/quickly-elect/cliparse"
	"github.com/danielhkuo/quickly-elect/db"
	"github.com/danielhkuo/quickly-elect/election"
	"github.com/danielhkuo/quickly-elect/models"
)

// TestChurchID is the church every fixture belongs to unless stated otherwise
const TestChurchID int64 = 7

// AdminID is the member id of the fixture administrator
const AdminID int64 = 900

// Now is the fixed clock used by test services
var Now = time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)

// SetupTestDB creates a fresh, fully migrated SQLite database
func SetupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	path := filepath.Join(t.TempDir(), "quickly-elect.db")
	conn, err := db.Open(context.Background(), db.DriverSQLite, path)
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	if _, err := db.Migrate(context.Background(), conn); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}
	return conn
}

// GetTestConfig returns a standard test configuration
func GetTestConfig() cliparse.Config {
	return cliparse.Config{
		Port:         3318,
		DatabaseURL:  "file::memory:",
		DatabaseType: cliparse.DatabaseSQLite,
		LogLevel:     "debug",
	}
}

// NewTestService builds an engine over conn with a test logger and the fixed clock
func NewTestService(t *testing.T, conn *sql.DB) *election.Service {
	t.Helper()

	svc := election.NewService(conn, election.NewSQLDirectory(conn), zaptest.NewLogger(t))
	svc.SetClock(func() time.Time { return Now })
	return svc
}

// CreateTestMember writes m to the member directory. Zero fields get
// defaults: church TestChurchID and a name derived from the id.
func CreateTestMember(t *testing.T, conn *sql.DB, m models.Member) models.Member {
	t.Helper()

	if m.ChurchID == 0 {
		m.ChurchID = TestChurchID
	}
	if m.Name == "" {
		m.Name = "Member " + strconv.FormatInt(m.ID, 10)
	}
	if m.Role == "" {
		m.Role = auth.RoleMember
	}
	if err := election.UpsertMember(context.Background(), conn, m); err != nil {
		t.Fatalf("Failed to create test member: %v", err)
	}
	return m
}

// CreateTestMembers creates plain members with the given ids
func CreateTestMembers(t *testing.T, conn *sql.DB, ids ...int64) {
	t.Helper()
	for _, id := range ids {
		CreateTestMember(t, conn, models.Member{ID: id})
	}
}

// CreateTestAdmin creates the fixture administrator and returns its caller
func CreateTestAdmin(t *testing.T, conn *sql.DB) auth.Caller {
	t.Helper()
	m := CreateTestMember(t, conn, models.Member{ID: AdminID, Name: "Pastor", Role: auth.RolePastor})
	return auth.Caller{ID: m.ID, Name: m.Name, ChurchID: m.ChurchID, Role: m.Role}
}

// Caller returns a plain member caller of the test church
func Caller(id int64) auth.Caller {
	return auth.Caller{ID: id, ChurchID: TestChurchID, Role: auth.RoleMember}
}

// CreateTestConfig stores a config with no eligibility criteria
func CreateTestConfig(t *testing.T, svc *election.Service, admin auth.Caller, positions []string, voters []int64, maxNominations int) models.ElectionConfig {
	t.Helper()

	cfg, err := svc.CreateConfig(context.Background(), admin, models.ConfigRequest{
		ChurchName:             "Test Church",
		Title:                  "Test Election",
		Positions:              positions,
		Voters:                 voters,
		MaxNominationsPerVoter: maxNominations,
	})
	if err != nil {
		t.Fatalf("Failed to create test config: %v", err)
	}
	return cfg
}

// CallerHeaders returns the headers the gateway sets for callerID
func CallerHeaders(callerID int64) map[string]string {
	return map[string]string{auth.HeaderUserID: strconv.FormatInt(callerID, 10)}
}

// MakeRequest creates an HTTP test request
func MakeRequest(method, path string, body interface{}, headers map[string]string) *http.Request {
	var req *http.Request
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		req = httptest.NewRequest(method, path, bytes.NewReader(jsonBody))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}

	for k, v := range headers {
		req.Header.Set(k, v)
	}

	return req
}

// AssertStatus checks that the response has the expected status code
func AssertStatus(t *testing.T, w *httptest.ResponseRecorder, expected int) {
	t.Helper()
	if w.Code != expected {
		t.Errorf("Expected status %d, got %d. Body: %s", expected, w.Code, w.Body.String())
	}
}

// AssertJSON decodes the response body into the provided struct
func AssertJSON(t *testing.T, w *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(w.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode JSON response: %v", err)
	}
}
