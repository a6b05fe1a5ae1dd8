package api

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/mnemocard/mnemocard/internal/api/respond"
	"github.com/mnemocard/mnemocard/internal/telegram"
)

// UpdateHandler consumes one decoded inbound update.
type UpdateHandler interface {
	HandleUpdate(ctx context.Context, u *telegram.Update)
}

// WebhookHandler receives webhook callbacks and hands the decoded
// update to the dispatcher.
type WebhookHandler struct {
	dispatcher UpdateHandler
	log        zerolog.Logger
}

func NewWebhookHandler(dispatcher UpdateHandler, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{dispatcher: dispatcher, log: log}
}

// Receive decodes the update and dispatches it. The response is 200
// regardless of the payload: a non-2xx status makes the platform
// redeliver the same update, and redelivery cannot fix a payload we
// already failed to decode or act on.
func (h *WebhookHandler) Receive(w http.ResponseWriter, r *http.Request) {
	var update telegram.Update
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		h.log.Warn().Err(err).Msg("undecodable webhook payload dropped")
	} else {
		h.dispatcher.HandleUpdate(r.Context(), &update)
	}

	respond.WriteJSON(w, http.StatusOK, map[string]bool{"ok": true})
}
