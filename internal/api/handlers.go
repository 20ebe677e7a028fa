// Package api provides HTTP handlers for FutureMe endpoints.
package api

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/futureme-za/futureme/internal/models"
)

// DefaultTurnTimeout bounds one webhook turn, model calls included.
const DefaultTurnTimeout = 30 * time.Second

// maxWebhookBodyBytes guards against oversized payloads.
const maxWebhookBodyBytes = 1 << 20

// turnApology is shown when a turn fails internally; the user's message was
// not processed and nothing was acknowledged.
const turnApology = "Sorry, something went wrong on our side. Please send that again in a moment. 🙏"

// webhookHandler accepts both ManyChat and WhatsApp Cloud payload shapes and
// answers in the matching reply envelope.
func (s *Server) webhookHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	slog.Debug("Server.webhookHandler: processing webhook request", "method", r.Method, "path", r.URL.Path)

	switch r.Method {
	case http.MethodOptions:
		// CORS preflight from the ManyChat console.
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		w.WriteHeader(http.StatusOK)
		return
	case http.MethodPost:
	default:
		w.Header().Set("Allow", "POST, OPTIONS")
		slog.Warn("Server.webhookHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBodyBytes))
	if err != nil {
		slog.Warn("Server.webhookHandler: failed to read body", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Failed to read request body"))
		return
	}

	inbound, err := models.ParseWebhookPayload(body)
	if err != nil {
		slog.Warn("Server.webhookHandler: unrecognized payload", "error", err)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("Unrecognized webhook payload"))
		return
	}
	if inbound.Text == "" {
		slog.Warn("Server.webhookHandler: payload carried no message text", "source", inbound.Source, "waID", inbound.WaID)
		writeJSONResponse(w, http.StatusBadRequest, models.Error("No message text in payload"))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), DefaultTurnTimeout)
	defer cancel()

	reply, err := s.brain.HandleMessage(ctx, inbound.WaID, inbound.Text)
	if err != nil {
		if errors.Is(err, models.ErrEmptyWaID) || errors.Is(err, models.ErrEmptyMessage) {
			writeJSONResponse(w, http.StatusBadRequest, models.Error(err.Error()))
			return
		}
		// The turn failed after validation: tell the user plainly instead of
		// pretending the message was handled. ManyChat only relays bodies on
		// 200 responses.
		slog.Error("Server.webhookHandler: turn failed", "error", err, "waID", inbound.WaID, "source", inbound.Source)
		reply = turnApology
	}

	switch inbound.Source {
	case models.SourceManyChat:
		resp := models.NewManyChatReply(reply)
		if sess, serr := s.store.GetSession(inbound.WaID); serr == nil && sess != nil {
			resp.DebugInfo = &models.ManyChatDebugInfo{
				Intent: string(sess.State.Intent),
				Agent:  sess.State.LastAgent,
			}
		}
		writeJSONResponse(w, http.StatusOK, resp)
	default:
		writeJSONResponse(w, http.StatusOK, models.NewWhatsAppReply(inbound.WaID, reply))
	}
	slog.Info("Server.webhookHandler: turn answered", "waID", inbound.WaID, "source", inbound.Source)
}

// notificationsHandler runs one idle-user notification sweep on demand. The
// same sweep also runs on the in-process cron schedule.
func (s *Server) notificationsHandler(w http.ResponseWriter, r *http.Request) {
	if r.Body != nil {
		defer r.Body.Close()
	}
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", http.MethodPost)
		slog.Warn("Server.notificationsHandler: method not allowed", "method", r.Method)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}

	result, err := s.notifier.Run(r.Context())
	if err != nil {
		slog.Error("Server.notificationsHandler: sweep failed", "error", err)
		writeJSONResponse(w, http.StatusInternalServerError, models.Error("Notification sweep failed"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.SuccessWithMessage("Notification job complete", result))
}

// healthHandler reports process and store health.
func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", http.MethodGet)
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	if err := s.store.Ping(); err != nil {
		slog.Error("Server.healthHandler: store ping failed", "error", err)
		writeJSONResponse(w, http.StatusServiceUnavailable, models.Error("store unavailable"))
		return
	}
	writeJSONResponse(w, http.StatusOK, models.Success(map[string]string{"status": "healthy"}))
}
