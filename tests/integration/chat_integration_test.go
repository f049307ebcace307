package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// TestChatSessionFlow drives a full slot-filling conversation against a
// running API instance. It needs a live server (and its LLM provider keys),
// so it only runs when NAVMARG_API_BASE_URL is set.
func TestChatSessionFlow(t *testing.T) {
	loadDotEnv(t)

	baseURL := strings.TrimSpace(os.Getenv("NAVMARG_API_BASE_URL"))
	if baseURL == "" {
		t.Skip("NAVMARG_API_BASE_URL not set; skipping live chat flow test")
	}
	baseURL = strings.TrimRight(baseURL, "/")

	client := &http.Client{Timeout: 180 * time.Second}
	waitForAPIReady(t, client, baseURL)

	status, body := doJSON(t, client, http.MethodPost, baseURL+"/api/sessions", nil)
	if status != http.StatusCreated {
		t.Fatalf("create session: expected %d, got %d, body=%s", http.StatusCreated, status, string(body))
	}
	var created struct {
		SessionID string `json:"session_id"`
		State     string `json:"state"`
	}
	if err := json.Unmarshal(body, &created); err != nil {
		t.Fatalf("create session: unmarshal: %v, raw=%s", err, string(body))
	}
	if created.SessionID == "" || created.State != "awaiting_first_message" {
		t.Fatalf("create session: unexpected payload %s", string(body))
	}
	t.Logf("[TEST LOG] session %s created", created.SessionID)

	start := time.Now().AddDate(0, 1, 0).Format("2006-01-02")
	end := time.Now().AddDate(0, 1, 3).Format("2006-01-02")
	answers := []string{
		"hi, I want to plan a trip",
		"Mumbai", "Goa", start, end, "Couple",
		"2", "0", "40000", "Mid-range", "beaches, seafood", "Relaxed", "Mix",
	}

	var last struct {
		Replies []string `json:"replies"`
		State   string   `json:"state"`
		Version int      `json:"version"`
	}
	for _, answer := range answers {
		status, body = postMessage(t, client, baseURL, created.SessionID, answer)
		if status != http.StatusOK {
			t.Fatalf("message %q: expected 200, got %d, body=%s", answer, status, string(body))
		}
		if err := json.Unmarshal(body, &last); err != nil {
			t.Fatalf("message %q: unmarshal: %v, raw=%s", answer, err, string(body))
		}
		if len(last.Replies) == 0 {
			t.Fatalf("message %q: no assistant replies, raw=%s", answer, string(body))
		}
	}

	if last.State != "awaiting_changes" || last.Version != 1 {
		t.Fatalf("after final answer: state=%s version=%d, body=%s", last.State, last.Version, string(body))
	}
	if strings.TrimSpace(last.Replies[0]) == "" {
		t.Fatalf("expected a non-empty itinerary narrative, body=%s", string(body))
	}
	t.Logf("[TEST LOG] itinerary v1 (%d chars)", len(last.Replies[0]))

	// Accept the plan and confirm the session closes.
	status, body = postMessage(t, client, baseURL, created.SessionID, "yes")
	if status != http.StatusOK {
		t.Fatalf("accept plan: expected 200, got %d, body=%s", status, string(body))
	}
	if err := json.Unmarshal(body, &last); err != nil {
		t.Fatalf("accept plan: unmarshal: %v, raw=%s", err, string(body))
	}
	if last.State != "completed" {
		t.Fatalf("accept plan: state=%s, body=%s", last.State, string(body))
	}

	verifyAuditTrail(t, created.SessionID)
}

// verifyAuditTrail checks the postgres audit tables when a test DSN is
// available; without one the API-level assertions stand alone.
func verifyAuditTrail(t *testing.T, sessionID string) {
	t.Helper()

	dsn := firstNonEmpty(
		strings.TrimSpace(os.Getenv("NAVMARG_TEST_DSN")),
		strings.TrimSpace(os.Getenv("NAVMARG_DB_DSN")),
	)
	if dsn == "" {
		t.Log("no test DSN set; skipping audit trail verification")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	db, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("connect postgres (%s): %v", redactedDSN(dsn), err)
	}
	defer db.Close()

	var state string
	if err := db.QueryRow(ctx, "SELECT state FROM sessions WHERE id = $1", sessionID).Scan(&state); err != nil {
		t.Fatalf("query session row: %v", err)
	}
	if state != "completed" {
		t.Fatalf("audit session state = %q, want completed", state)
	}

	var messages int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM messages WHERE session_id = $1", sessionID).Scan(&messages); err != nil {
		t.Fatalf("count messages: %v", err)
	}
	if messages == 0 {
		t.Fatalf("no transcript rows recorded for session %s", sessionID)
	}

	var versions int
	if err := db.QueryRow(ctx, "SELECT COUNT(*) FROM itineraries WHERE session_id = $1", sessionID).Scan(&versions); err != nil {
		t.Fatalf("count itineraries: %v", err)
	}
	if versions != 1 {
		t.Fatalf("expected 1 itinerary version, got %d", versions)
	}
}

func postMessage(t *testing.T, client *http.Client, baseURL, sessionID, text string) (int, []byte) {
	t.Helper()
	return doJSON(t, client, http.MethodPost,
		fmt.Sprintf("%s/api/sessions/%s/messages", baseURL, sessionID),
		map[string]string{"message": text})
}

func doJSON(t *testing.T, client *http.Client, method, url string, payload any) (int, []byte) {
	t.Helper()

	var reqBody io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("marshal request: %v", err)
		}
		reqBody = bytes.NewReader(b)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("call %s: %v", url, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read response: %v", err)
	}
	return resp.StatusCode, body
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func redactedDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 || at <= scheme+3 {
		return dsn
	}
	return dsn[:scheme+3] + "***:***" + dsn[at:]
}

func waitForAPIReady(t *testing.T, client *http.Client, baseURL string) {
	t.Helper()

	deadline := time.Now().Add(20 * time.Second)
	for time.Now().Before(deadline) {
		req, err := http.NewRequest(http.MethodGet, baseURL+"/health", nil)
		if err == nil {
			resp, err := client.Do(req)
			if err == nil {
				_ = resp.Body.Close()
				if resp.StatusCode == http.StatusOK {
					return
				}
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	t.Fatalf("api not ready: GET %s/health did not return 200 in time", baseURL)
}

func loadDotEnv(t *testing.T) {
	t.Helper()

	dir, err := os.Getwd()
	if err != nil {
		return
	}
	path := ""
	for i := 0; i < 8; i++ {
		candidate := filepath.Join(dir, ".env")
		if _, err := os.Stat(candidate); err == nil {
			path = candidate
			break
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			break
		}
		dir = parent
	}
	if path == "" {
		return
	}

	b, err := os.ReadFile(path)
	if err != nil {
		return
	}
	for _, line := range strings.Split(string(b), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			continue
		}
		k := strings.TrimSpace(parts[0])
		v := strings.TrimSpace(parts[1])
		if k == "" {
			continue
		}
		if _, ok := os.LookupEnv(k); ok {
			continue
		}
		_ = os.Setenv(k, v)
	}
}
