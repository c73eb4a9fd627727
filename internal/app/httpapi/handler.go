// Package httpapi exposes the local control API: enqueue completed
// questionnaires, inspect delivery status, and drive the retry, wipe, and
// configuration flows.
package httpapi

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/dailypulse/relay/internal/app/domain/endpoints"
	"github.com/dailypulse/relay/internal/app/metrics"
	"github.com/dailypulse/relay/internal/app/services/account"
	"github.com/dailypulse/relay/internal/app/services/credentials"
	"github.com/dailypulse/relay/internal/app/services/settings"
	"github.com/dailypulse/relay/internal/app/services/status"
	"github.com/dailypulse/relay/internal/app/services/uploader"
	"github.com/dailypulse/relay/internal/httputil"
	"github.com/dailypulse/relay/pkg/logger"
)

// handler bundles the control API endpoints.
type handler struct {
	engine   *uploader.Engine
	hub      *status.Hub
	settings *settings.Settings
	account  *account.Service
	log      *logger.Logger
}

// NewHandler returns the control API router with logging, metrics, and
// rate-limit middleware applied.
func NewHandler(engine *uploader.Engine, hub *status.Hub, st *settings.Settings, acct *account.Service, limiter *RateLimiter, log *logger.Logger) http.Handler {
	if log == nil {
		log = logger.NewDefault("httpapi")
	}
	h := &handler{engine: engine, hub: hub, settings: st, account: acct, log: log}

	r := mux.NewRouter()
	r.HandleFunc("/healthz", h.health).Methods(http.MethodGet)
	r.Handle("/metrics", metrics.Handler()).Methods(http.MethodGet)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/responses", h.postResponses).Methods(http.MethodPost)
	api.HandleFunc("/status", h.getStatus).Methods(http.MethodGet)
	api.HandleFunc("/queue/retry", h.postRetry).Methods(http.MethodPost)
	api.HandleFunc("/queue", h.deleteQueue).Methods(http.MethodDelete)
	api.HandleFunc("/config", h.putConfig).Methods(http.MethodPut)
	api.HandleFunc("/forget-me", h.postForgetMe).Methods(http.MethodPost)

	r.Use(LoggingMiddleware(log))
	if limiter != nil {
		api.Use(limiter.Middleware)
	}

	return metrics.InstrumentHandler(r)
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// postResponses enqueues a completed answer-set. The response is always
// 202 for well-formed JSON: codec failures are absorbed by the engine and
// must never stall the caller.
func (h *handler) postResponses(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Answers map[string]int `json:"answers"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	responses := make(map[int]int, len(payload.Answers))
	for key, answer := range payload.Answers {
		id, err := strconv.Atoi(key)
		if err != nil {
			httputil.BadRequest(w, "answer keys must be question ids")
			return
		}
		responses[id] = answer
	}

	h.engine.Enqueue(responses)
	httputil.WriteJSON(w, http.StatusAccepted, h.engine.Status())
}

func (h *handler) getStatus(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, h.hub.Latest())
}

func (h *handler) postRetry(w http.ResponseWriter, r *http.Request) {
	h.engine.RetryNow()
	httputil.WriteJSON(w, http.StatusAccepted, h.engine.Status())
}

func (h *handler) deleteQueue(w http.ResponseWriter, r *http.Request) {
	h.engine.ClearQueue()
	httputil.WriteJSON(w, http.StatusOK, h.engine.Status())
}

// putConfig replaces the collection service address and, optionally, the
// credential, then wakes the uploader with reset backoff.
func (h *handler) putConfig(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		BaseURL string `json:"baseUrl"`
		APIKey  string `json:"apiKey"`
	}
	if err := httputil.DecodeJSON(r.Body, &payload); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	// Validate both inputs before installing either, so a rejected
	// request leaves the configuration untouched.
	if _, err := endpoints.Derive(payload.BaseURL); err != nil {
		httputil.BadRequest(w, "invalid base URL")
		return
	}
	if payload.APIKey != "" && !credentials.Valid(strings.TrimSpace(payload.APIKey)) {
		httputil.BadRequest(w, "invalid API key")
		return
	}

	eps, err := h.settings.SetBaseURL(payload.BaseURL)
	if err != nil {
		httputil.InternalError(w, err.Error())
		return
	}
	if payload.APIKey != "" {
		if err := h.settings.SetCredential(payload.APIKey); err != nil {
			httputil.InternalError(w, err.Error())
			return
		}
	}

	h.engine.ConfigurationDidChange()
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"base": eps.Base})
}

func (h *handler) postForgetMe(w http.ResponseWriter, r *http.Request) {
	if err := h.account.ForgetMe(r.Context()); err != nil {
		if errors.Is(err, account.ErrNotConfigured) {
			httputil.BadRequest(w, err.Error())
			return
		}
		h.log.WithError(err).Warn("forget-me request failed")
		httputil.WriteError(w, http.StatusBadGateway, err.Error())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, h.engine.Status())
}
