package handler

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	apimw "github.com/shiinazuki/zero2prod/internal/api/middleware"
	"github.com/shiinazuki/zero2prod/internal/domain"
	"github.com/shiinazuki/zero2prod/internal/service"
)

// NewsletterHandler handles the admin publish endpoint.
type NewsletterHandler struct {
	svc    *service.PublishService
	logger *zap.Logger
}

func NewNewsletterHandler(svc *service.PublishService, logger *zap.Logger) *NewsletterHandler {
	return &NewsletterHandler{svc: svc, logger: logger}
}

// Publish handles POST /admin/newsletters.
//
// Retries carrying the same idempotency key receive a byte-for-byte copy
// of the original response, so the stored response is written out exactly
// as recorded instead of being re-rendered.
func (h *NewsletterHandler) Publish(w http.ResponseWriter, r *http.Request) {
	userID, ok := apimw.GetUserID(r.Context())
	if !ok {
		mapError(w, domain.ErrMissingPrincipal)
		return
	}

	var req domain.PublishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	resp, replayed, err := h.svc.Publish(r.Context(), userID, req)
	if err != nil {
		h.logger.Warn("publish failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("user_id", userID.String()),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}

	if replayed {
		h.logger.Info("replayed stored publish response",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.String("user_id", userID.String()),
		)
	}
	writeStored(w, resp)
}

// writeStored replays a persisted response verbatim: headers first, then
// status, then the recorded body bytes.
func writeStored(w http.ResponseWriter, resp *domain.StoredResponse) {
	for _, h := range resp.Headers {
		w.Header().Add(h.Name, h.Value)
	}
	w.WriteHeader(resp.StatusCode)
	_, _ = w.Write(resp.Body)
}
