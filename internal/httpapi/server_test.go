package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stoik/phish-verdict/internal/application"
	"github.com/stoik/phish-verdict/internal/domain"
	"github.com/stoik/phish-verdict/internal/feed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubScanner struct{}

func (stubScanner) Scan(_ context.Context, raw string) domain.RiskVerdict {
	if strings.Contains(raw, ".tk") {
		return domain.RiskVerdict{URL: raw, Label: domain.LabelPhishing, Score: 75, Reasons: []string{"Suspicious top-level domain: .tk"}}
	}
	return domain.RiskVerdict{URL: raw, Label: domain.LabelSafe, Reasons: []string{}}
}

type stubComposer struct{}

func (stubComposer) Compose(_ context.Context, msg domain.EmailContext) domain.EmailVerdict {
	return domain.EmailVerdict{Summary: msg.Subject, FinalScore: 45, FinalLabel: domain.LabelSuspicious}
}

type stubTracer struct{}

func (stubTracer) Trace(_ context.Context, raw string) domain.RedirectChain {
	return domain.RedirectChain{Target: raw, Chain: []domain.RedirectHop{{URL: raw, StatusCode: 301}, {URL: raw + "/next", StatusCode: 200}}}
}

type memStore struct {
	mu      sync.Mutex
	records []domain.ScanRecord
}

func (m *memStore) SaveScan(_ context.Context, rec *domain.ScanRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, *rec)
	return nil
}

func (m *memStore) ListScans(_ context.Context, userID string, limit int) ([]domain.ScanRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.ScanRecord, 0)
	for i := len(m.records) - 1; i >= 0 && len(out) < limit; i-- {
		if m.records[i].UserID == userID {
			out = append(out, m.records[i])
		}
	}
	return out, nil
}

func (m *memStore) Close() error { return nil }

type stubFeed struct{ status feed.Status }

func (f stubFeed) Status() feed.Status { return f.status }

func newTestServer(store *memStore, fs FeedStatus) *Server {
	svc := application.NewScanService(stubScanner{}, stubComposer{}, stubTracer{}, store, nil)
	return NewServer(svc, fs, nil)
}

func do(t *testing.T, h http.Handler, method, path, body string, header map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	for k, v := range header {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	tests := []struct {
		name           string
		feed           FeedStatus
		expectedStatus string
	}{
		{name: "No feed", expectedStatus: "ok"},
		{name: "Fresh feed", feed: stubFeed{feed.Status{Size: 10, LastRefreshed: time.Now()}}, expectedStatus: "ok"},
		{name: "Stale feed", feed: stubFeed{feed.Status{Stale: true, LastError: "feed unavailable"}}, expectedStatus: "degraded"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&memStore{}, tt.feed), http.MethodGet, "/health", "", nil)

			require.Equal(t, http.StatusOK, rec.Code)
			var body map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, tt.expectedStatus, body["status"])
			assert.Equal(t, tt.feed != nil, body["feed"] != nil)
		})
	}
}

func TestScanEndpoints(t *testing.T) {
	tests := []struct {
		name   string
		path   string
		body   string
		expect string
	}{
		{name: "URL", path: "/scan/url", body: `{"url":"http://paypal-secure-login.tk/verify"}`, expect: `"label":"phishing"`},
		{name: "Email", path: "/scan/email", body: `{"subject":"Invoice","attachments":[{"filename":"invoice.exe"}]}`, expect: `"final_email_risk_score":45`},
		{name: "QR text", path: "/scan/qr", body: `{"content":"urgent verify"}`, expect: `"type":"text"`},
		{name: "URL with redirect chain", path: "/scan/url", body: `{"url":"http://a.example"}`, expect: `"redirect_chain":{"target":"http://a.example"`},
		{name: "Trace", path: "/trace", body: `{"url":"http://a.example"}`, expect: `"status":301`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&memStore{}, nil), http.MethodPost, tt.path, tt.body, nil)

			assert.Equal(t, http.StatusOK, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Contains(t, rec.Body.String(), tt.expect)
		})
	}
}

func TestScanEndpoints_MalformedJSON(t *testing.T) {
	srv := newTestServer(&memStore{}, nil)

	for _, path := range []string{"/scan/url", "/scan/email", "/scan/qr", "/trace", "/history"} {
		t.Run(path, func(t *testing.T) {
			rec := do(t, srv, http.MethodPost, path, `{"url":`, nil)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), "invalid JSON")
		})
	}
}

func TestScanURL_RecordsHistoryForUser(t *testing.T) {
	store := &memStore{}
	srv := newTestServer(store, nil)

	do(t, srv, http.MethodPost, "/scan/url", `{"url":"http://paypal-secure-login.tk/verify"}`, map[string]string{UserIDHeader: "user-1"})
	do(t, srv, http.MethodPost, "/scan/url", `{"url":"https://example.com"}`, nil)

	rec := do(t, srv, http.MethodGet, "/history/user-1", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var records []domain.ScanRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "http://paypal-secure-login.tk/verify", records[0].Target)
	assert.Equal(t, domain.LabelPhishing, records[0].RiskLabel)
}

func TestCreateHistory(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
	}{
		{name: "Valid", body: `{"user_id":"user-1","scan_type":"qr","target":"hello","risk_score":10}`, expectedStatus: http.StatusCreated},
		{name: "Missing user", body: `{"scan_type":"qr","target":"hello"}`, expectedStatus: http.StatusBadRequest},
		{name: "Unknown type", body: `{"user_id":"user-1","scan_type":"sms"}`, expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, newTestServer(&memStore{}, nil), http.MethodPost, "/history", tt.body, nil)

			assert.Equal(t, tt.expectedStatus, rec.Code)
		})
	}
}

func TestListHistory_BadLimit(t *testing.T) {
	rec := do(t, newTestServer(&memStore{}, nil), http.MethodGet, "/history/user-1?limit=many", "", nil)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHistory_Disabled(t *testing.T) {
	svc := application.NewScanService(stubScanner{}, stubComposer{}, stubTracer{}, nil, nil)
	srv := NewServer(svc, nil, nil)

	rec := do(t, srv, http.MethodGet, "/history/user-1", "", nil)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
