package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trystantbm/portfolio-contact/internal/models"
	"github.com/trystantbm/portfolio-contact/internal/services"
	pkghttp "github.com/trystantbm/portfolio-contact/pkg/http"
	pkglogger "github.com/trystantbm/portfolio-contact/pkg/logger"
)

const (
	testOrigin    = "https://trystan-tbm.dev"
	testClientKey = "203.0.113.50"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// staticOrigins allows exactly one origin
type staticOrigins string

func (o staticOrigins) IsOriginAllowed(origin string) bool {
	return origin != "" && origin == string(o)
}

// MockVerifier implements services.CaptchaVerifier and counts calls
type MockVerifier struct {
	mu      sync.Mutex
	Outcome models.VerificationOutcome
	Calls   int
	Tokens  []string
}

func (m *MockVerifier) Verify(ctx context.Context, token, remoteIP string) models.VerificationOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Tokens = append(m.Tokens, token)
	return m.Outcome
}

// MockMailer implements services.EmailService and records composed bodies
type MockMailer struct {
	mu      sync.Mutex
	Outcome models.DeliveryOutcome
	Calls   int
	Bodies  []string
}

func (m *MockMailer) SendContactEmail(ctx context.Context, sub *models.ContactSubmission) models.DeliveryOutcome {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Calls++
	m.Bodies = append(m.Bodies, services.ComposeContactEmail(sub, time.Now()))
	return m.Outcome
}

// testGateway wires a ContactHandler to the real pipeline with mocked externals
type testGateway struct {
	handler  *ContactHandler
	verifier *MockVerifier
	mailer   *MockMailer
}

func newTestGateway(t *testing.T) *testGateway {
	t.Helper()

	logger := discardLogger()
	verifier := &MockVerifier{Outcome: models.VerificationOutcome{Success: true}}
	mailer := &MockMailer{Outcome: models.DeliveryOutcome{Success: true}}

	policy := services.DefaultRateLimitPolicy()
	policy.CleanupSample = 0
	store := services.NewMemoryRateLimitStore(policy)

	contact := services.NewContactService(verifier, mailer, services.DefaultMinSubmitTime, logger)
	handler := NewContactHandler(
		contact,
		services.NewRateLimitService(store, logger),
		staticOrigins(testOrigin),
		pkglogger.NewAuditLogger(logger),
	)

	return &testGateway{handler: handler, verifier: verifier, mailer: mailer}
}

func (g *testGateway) serve(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	g.handler.Submit(w, req)
	return w
}

// validPayload is a submission that passes every gate
func validPayload() map[string]any {
	return map[string]any{
		"name":           "Jane Doe",
		"email":          "jane@example.com",
		"message":        "Hello! I would like to discuss a project with you.",
		"turnstileToken": "valid-token",
		"timestamp":      time.Now().Add(-10 * time.Second).UnixMilli(),
	}
}

// NewContactRequest creates a JSON POST from the allowed origin and test client
func NewContactRequest(t *testing.T, body any) *http.Request {
	t.Helper()

	data, err := json.Marshal(body)
	require.NoError(t, err)

	return NewRawContactRequest(string(data), "application/json")
}

// NewRawContactRequest creates a POST with an arbitrary body and content type
func NewRawContactRequest(body, contentType string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/contact", strings.NewReader(body))
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Origin", testOrigin)
	req.Header.Set(pkghttp.HeaderConnectingIP, testClientKey)
	return req
}

// formBody encodes a payload as application/x-www-form-urlencoded
func formBody(payload map[string]any) string {
	values := url.Values{}
	for k, v := range payload {
		switch val := v.(type) {
		case string:
			values.Set(k, val)
		case int64:
			values.Set(k, strconv.FormatInt(val, 10))
		}
	}
	return values.Encode()
}

// AssertErrorResponse checks the status and the {"error": ...} body
func AssertErrorResponse(t *testing.T, w *httptest.ResponseRecorder, expectedStatus int, expectedError string) {
	t.Helper()

	assert.Equal(t, expectedStatus, w.Code, "Response status mismatch")
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))

	var resp pkghttp.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp), "Failed to decode error response")
	assert.Equal(t, expectedError, resp.Error)
}
