// Package testutil provides common test utilities and helpers for FutureMe tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/futureme-za/futureme/internal/agents"
	"github.com/futureme-za/futureme/internal/api"
	"github.com/futureme-za/futureme/internal/email"
	"github.com/futureme-za/futureme/internal/genai"
	"github.com/futureme-za/futureme/internal/messaging"
	"github.com/futureme-za/futureme/internal/store"
)

// TestDeps bundles the in-memory collaborators behind a test server so tests
// can inspect and prime them.
type TestDeps struct {
	Store  *store.InMemoryStore
	GenAI  *genai.MockClient
	Email  *email.MockSender
	MsgSvc *messaging.MockService
}

// NewTestServer creates a test API server with in-memory dependencies.
// This centralizes the test server creation logic used across multiple test files.
func NewTestServer() (*api.Server, *TestDeps) {
	deps := &TestDeps{
		Store:  store.NewInMemoryStore(),
		GenAI:  genai.NewMockClient(),
		Email:  &email.MockSender{},
		MsgSvc: messaging.NewMockService(),
	}
	brain := agents.NewBrain(deps.Store, deps.GenAI, deps.Email)
	notifier := agents.NewNotifier(deps.Store, deps.MsgSvc)
	return api.NewServer(deps.Store, brain, notifier), deps
}

// AssertHTTPStatus checks the HTTP status code and fails the test if it doesn't match.
func AssertHTTPStatus(t *testing.T, expected, actual int, context string) {
	t.Helper()
	if actual != expected {
		t.Errorf("%s: expected status %d, got %d", context, expected, actual)
	}
}

// AssertJSONResponse decodes a JSON response and validates the status field.
func AssertJSONResponse(t *testing.T, rr *httptest.ResponseRecorder, expectedStatus string) map[string]interface{} {
	t.Helper()
	var response map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&response); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}

	if status, ok := response["status"].(string); ok {
		if status != expectedStatus {
			t.Errorf("expected status '%s', got '%s'", expectedStatus, status)
		}
	} else {
		t.Error("response missing or invalid 'status' field")
	}

	return response
}

// CreateHTTPRequest creates an HTTP request with an optional JSON body for testing.
func CreateHTTPRequest(t *testing.T, method, url string, body interface{}) *http.Request {
	t.Helper()
	var reqBody *bytes.Buffer
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("failed to marshal request body: %v", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	} else {
		reqBody = bytes.NewBuffer(nil)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		t.Fatalf("failed to create HTTP request: %v", err)
	}
	return req
}
