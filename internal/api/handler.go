package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"go.uber.org/zap"

	"github.com/lojasmm/wamsg/internal/dispatch"
	"github.com/lojasmm/wamsg/internal/metrics"
	"github.com/lojasmm/wamsg/internal/whatsapp"
)

// Intents may carry inline thumbnail bytes.
const maxBodyBytes = 8 << 20

type Handler struct {
	dispatcher *dispatch.Dispatcher
	log        *zap.Logger
}

func NewHandler(d *dispatch.Dispatcher, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{dispatcher: d, log: logger}
}

// NewRouter mounts the API, the relay webhook, health and metrics.
func NewRouter(h *Handler, webhook *whatsapp.WebhookHandler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowedHeaders: []string{"Content-Type", "Authorization"},
	}).Handler)
	r.Use(instrument)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())

	r.Post("/webhook", webhook.HandleIncoming)

	r.Post("/messages/{jid}", h.HandleSend)
	r.Post("/preview/{jid}", h.HandlePreview)
	r.Get("/sent/{id}", h.HandleGetSent)
	r.Put("/chats/{jid}/ephemeral", h.HandleSetEphemeral)

	return r
}

func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		metrics.HTTPRequestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	to, intent, ok := h.decodeIntent(w, r)
	if !ok {
		return
	}

	res, err := h.dispatcher.Send(r.Context(), to, intent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, map[string]any{
		"id":          res.ID,
		"to":          res.To,
		"contentType": res.ContentType,
		"variant":     res.Variant,
	})
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	to, intent, ok := h.decodeIntent(w, r)
	if !ok {
		return
	}

	res, err := h.dispatcher.Preview(r.Context(), to, intent)
	if err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleGetSent(w http.ResponseWriter, r *http.Request) {
	sent, err := h.dispatcher.GetSent(chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	if sent == nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "message not found"})
		return
	}
	writeJSON(w, http.StatusOK, sent)
}

func (h *Handler) HandleSetEphemeral(w http.ResponseWriter, r *http.Request) {
	jid, err := whatsapp.ParseJID(chi.URLParam(r, "jid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	var body struct {
		Expiration *uint32 `json:"expiration"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil || body.Expiration == nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "body must be {\"expiration\": seconds}"})
		return
	}

	if err := h.dispatcher.SetEphemeral(jid, *body.Expiration); err != nil {
		h.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"jid": jid, "expiration": *body.Expiration})
}

// decodeIntent rejects unknown fields so a misspelled intent field fails
// here instead of being silently ignored.
func (h *Handler) decodeIntent(w http.ResponseWriter, r *http.Request) (whatsapp.JID, *whatsapp.MessageIntent, bool) {
	to, err := whatsapp.ParseJID(chi.URLParam(r, "jid"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return "", nil, false
	}

	var intent whatsapp.MessageIntent
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&intent); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid intent: " + err.Error()})
		return "", nil, false
	}
	return to, &intent, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case whatsapp.IsCallerError(err):
		status = http.StatusBadRequest
	case errors.Is(err, dispatch.ErrTransport):
		status = http.StatusBadGateway
	}
	if status >= 500 {
		h.log.Error("request failed", zap.Int("status", status), zap.Error(err))
	}

	body := map[string]string{"error": err.Error()}
	if t := whatsapp.ErrorTypeOf(err); t != "" {
		body["type"] = string(t)
	}
	writeJSON(w, status, body)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
