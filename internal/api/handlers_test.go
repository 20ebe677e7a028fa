package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/futureme-za/futureme/internal/models"
	"github.com/futureme-za/futureme/internal/testutil"
)

func postWebhook(t *testing.T, handler http.Handler, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	return rr
}

func TestWebhookMethodHandling(t *testing.T) {
	srv, _ := testutil.NewTestServer()
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/webhook", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET /webhook")
	if allow := rr.Header().Get("Allow"); !strings.Contains(allow, http.MethodPost) {
		t.Errorf("expected Allow header with POST, got %q", allow)
	}

	// CORS preflight must succeed without a body.
	req = httptest.NewRequest(http.MethodOptions, "/webhook", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "OPTIONS /webhook")
	if rr.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("expected CORS headers on preflight")
	}
}

func TestWebhookRejectsBadPayloads(t *testing.T) {
	srv, _ := testutil.NewTestServer()
	handler := srv.Handler()

	rr := postWebhook(t, handler, `not json`)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "malformed body")
	testutil.AssertJSONResponse(t, rr, "error")

	rr = postWebhook(t, handler, `{"unrelated":"shape"}`)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "unrecognized shape")

	rr = postWebhook(t, handler, `{"subscriber_id":"27821234567","text":""}`)
	testutil.AssertHTTPStatus(t, http.StatusBadRequest, rr.Code, "empty text")
}

func TestWebhookManyChatTurn(t *testing.T) {
	srv, _ := testutil.NewTestServer()
	handler := srv.Handler()

	rr := postWebhook(t, handler, `{"subscriber_id":"27821234567","text":"Hi","first_name":"Thandi"}`)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "manychat turn")

	var reply models.ManyChatReply
	if err := json.NewDecoder(rr.Body).Decode(&reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if reply.Version != "v2" {
		t.Errorf("expected v2 envelope, got %s", reply.Version)
	}
	if len(reply.Content.Messages) != 1 {
		t.Fatalf("expected one message, got %d", len(reply.Content.Messages))
	}
	// A fresh user lands on onboarding.
	if !strings.Contains(reply.Content.Messages[0].Text, "Welcome to FutureMe Connect") {
		t.Errorf("unexpected first reply: %s", reply.Content.Messages[0].Text)
	}
	if reply.DebugInfo == nil || reply.DebugInfo.Agent != "onboarding" {
		t.Errorf("expected routing debug info in the envelope, got %+v", reply.DebugInfo)
	}
}

func TestWebhookWhatsAppCloudTurn(t *testing.T) {
	srv, _ := testutil.NewTestServer()
	handler := srv.Handler()

	body := `{
		"contact": {"wa_id": "27829876543", "name": "Sipho Dlamini"},
		"messages": [{"id": "wamid.1", "type": "text", "text": {"body": "Hello"}}]
	}`
	rr := postWebhook(t, handler, body)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "cloud turn")

	var reply models.WhatsAppReply
	if err := json.NewDecoder(rr.Body).Decode(&reply); err != nil {
		t.Fatalf("failed to decode reply: %v", err)
	}
	if reply.MessagingProduct != "whatsapp" || reply.To != "27829876543" {
		t.Errorf("unexpected envelope: %+v", reply)
	}
	if reply.Text.Body == "" {
		t.Error("expected a reply body")
	}
}

func TestNotificationsEndpoint(t *testing.T) {
	srv, deps := testutil.NewTestServer()
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/send-notifications", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusMethodNotAllowed, rr.Code, "GET /send-notifications")

	// Seed one idle waitlisted member so the sweep has work to do.
	now := time.Now()
	if err := deps.Store.SaveProfile(models.Profile{
		WaID:   "27820000001",
		Status: models.ProfileStatusWaitlisted,
		ProfileData: models.ProfileData{
			CurrentStage:     models.OnboardingComplete,
			ProgressiveStage: models.ProgressiveAwaitVision,
			Name:             "Thandi",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}

	req = httptest.NewRequest(http.MethodPost, "/send-notifications", nil)
	rr = httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "POST /send-notifications")
	response := testutil.AssertJSONResponse(t, rr, "ok")

	result, ok := response["result"].(map[string]interface{})
	if !ok {
		t.Fatalf("expected result object, got %v", response["result"])
	}
	if sent, _ := result["sent"].(float64); sent != 1 {
		t.Errorf("expected 1 send, got %v", result["sent"])
	}
	if len(deps.MsgSvc.Messages()) != 1 {
		t.Errorf("expected one outbound message, got %d", len(deps.MsgSvc.Messages()))
	}
}

func TestHealthEndpoint(t *testing.T) {
	srv, _ := testutil.NewTestServer()
	handler := srv.Handler()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	testutil.AssertHTTPStatus(t, http.StatusOK, rr.Code, "GET /health")
	testutil.AssertJSONResponse(t, rr, "ok")
}
