package gateway

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/astimpay-bridge/internal/common"
	"github.com/noah-isme/astimpay-bridge/internal/obs"
)

type replayStore interface {
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// CallbackHandler terminates both provider confirmation channels on one URL
// per gateway. A request carrying an invoice_id is the shopper's browser
// coming back and ends in a redirect; anything else is the provider's
// server-to-server notification and ends in an acknowledgement.
type CallbackHandler struct {
	Gateways  map[string]*Reconciler
	Replay    replayStore
	ReplayTTL time.Duration
	Logger    zerolog.Logger
}

// Handle processes a confirmation request for the gateway named in the route.
func (h CallbackHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if h.Gateways == nil {
		common.JSONError(w, http.StatusInternalServerError, "GATEWAY_NOT_CONFIGURED", "callback unavailable", nil)
		return
	}
	gatewayKey := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "gateway")))
	rec, ok := h.Gateways[gatewayKey]
	if !ok {
		common.JSONError(w, http.StatusNotFound, "GATEWAY_NOT_SUPPORTED", "unknown gateway", nil)
		return
	}

	if invoiceID := strings.TrimSpace(r.URL.Query().Get("invoice_id")); invoiceID != "" {
		h.handleVerification(w, r, gatewayKey, rec, invoiceID)
		return
	}
	h.handleNotification(w, r, gatewayKey, rec)
}

func (h CallbackHandler) handleVerification(w http.ResponseWriter, r *http.Request, gatewayKey string, rec *Reconciler, invoiceID string) {
	result := "error"
	defer func() {
		if obs.PaymentCallbackTotal != nil {
			obs.PaymentCallbackTotal.WithLabelValues(gatewayKey, "verification", result).Inc()
		}
	}()

	redirectURL, err := rec.VerifyAndApply(r.Context(), invoiceID)
	if err != nil {
		h.Logger.Error().Err(err).Str("gateway", gatewayKey).Str("invoice_id", invoiceID).Msg("redirect verification failed")
		writeCallbackError(w, err)
		return
	}
	result = "success"
	// This channel is a browser; it must end in a navigation.
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

func (h CallbackHandler) handleNotification(w http.ResponseWriter, r *http.Request, gatewayKey string, rec *Reconciler) {
	result := "error"
	defer func() {
		if obs.PaymentCallbackTotal != nil {
			obs.PaymentCallbackTotal.WithLabelValues(gatewayKey, "notification", result).Inc()
		}
	}()

	presentedKey := r.Header.Get(apiKeyHeader)
	// Key check runs before the body is read, let alone parsed.
	if !AuthenticateKey(presentedKey, rec.Cfg.APIKey) {
		h.Logger.Warn().Str("gateway", gatewayKey).Str("remote", common.ClientIP(r)).Msg("webhook authentication failed")
		writeCallbackError(w, ErrUnauthenticated)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "INVALID_BODY", "unable to read payload", nil)
		return
	}

	var replayKey string
	if h.Replay != nil && h.ReplayTTL > 0 {
		replayKey = fmt.Sprintf("wh:%s:%s", gatewayKey, common.Sha256Hex(string(body)))
		fresh, err := h.Replay.SetNX(r.Context(), replayKey, "1", h.ReplayTTL).Result()
		if err != nil {
			common.JSONError(w, http.StatusInternalServerError, "REPLAY_STORE_ERROR", err.Error(), nil)
			return
		}
		if !fresh {
			// Exact duplicate of a payload already applied; the terminal
			// guard would make it a no-op anyway, so acknowledge it.
			result = "duplicate"
			common.JSON(w, http.StatusOK, map[string]any{"acknowledged": true, "duplicate": true})
			return
		}
	}

	if err := rec.ApplyNotification(r.Context(), presentedKey, body); err != nil {
		// The payload was not applied, so the dedupe key must not outlive
		// this request: the provider retries the identical body and a stale
		// key would turn that retry into a duplicate ack, stranding the
		// order in its pre-confirmation status.
		if replayKey != "" {
			if delErr := h.Replay.Del(r.Context(), replayKey).Err(); delErr != nil {
				h.Logger.Error().Err(delErr).Str("gateway", gatewayKey).Str("key", replayKey).Msg("replay key release failed")
			}
		}
		h.Logger.Error().Err(err).Str("gateway", gatewayKey).Msg("webhook notification failed")
		writeCallbackError(w, err)
		return
	}
	result = "success"
	common.JSON(w, http.StatusOK, map[string]any{"acknowledged": true})
}

// writeCallbackError is intentionally loud: a silently dropped confirmation
// leaves an order stuck pending with no operator signal, and the provider's
// delivery log should show the rejection.
func writeCallbackError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrUnauthenticated):
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHENTICATED", err.Error(), nil)
	case errors.Is(err, ErrMalformedPayload):
		common.JSONError(w, http.StatusBadRequest, "MALFORMED_PAYLOAD", err.Error(), nil)
	case errors.Is(err, ErrInvalidOrder):
		common.JSONError(w, http.StatusInternalServerError, "ORDER_NOT_FOUND", err.Error(), nil)
	case errors.Is(err, ErrVerificationFailed):
		common.JSONError(w, http.StatusInternalServerError, "VERIFICATION_FAILED", err.Error(), nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", err.Error(), nil)
	}
}
