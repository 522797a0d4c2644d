/**
 * Copyright 2020 TryFix Engineering.
 * All rights reserved.
 * Authors:
 *    Gayan Yapa (gmbyapa@gmail.com)
 */

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/tryfix/averager/window"
	"github.com/tryfix/errors"
	"github.com/tryfix/log"
	"github.com/tryfix/traceable-context"
)

// Service is the window calculator behind the HTTP API.
type Service interface {
	Calculate(ctx context.Context, id string) (window.UpdateResult, error)
	Reset()
	Size() int
	State() ([]int, float64)
}

type Err struct {
	Err string `json:"error"`
}

type windowState struct {
	Size   int     `json:"size"`
	Length int     `json:"length"`
	Window []int   `json:"window"`
	Avg    float64 `json:"avg"`
}

type handler struct {
	service Service
	logger  log.Logger
}

func (h *handler) encode(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error(`server.encode`, err)
	}
}

func (h *handler) encodeError(w http.ResponseWriter, status int, e error) {
	h.encode(w, status, Err{Err: e.Error()})
}

// requestContext tags the request context with a fresh uuid for log correlation.
func (h *handler) requestContext(request *http.Request) context.Context {
	return traceable_context.FromContextWithUUID(request.Context(), uuid.New())
}

func (h *handler) numbers(writer http.ResponseWriter, request *http.Request) {
	id, ok := mux.Vars(request)[`numberid`]
	if !ok {
		h.logger.Error(`unknown route parameter`)
		h.encodeError(writer, http.StatusBadRequest, errors.New(`numberid required`))
		return
	}

	ctx := h.requestContext(request)
	res, err := h.service.Calculate(ctx, id)
	if err != nil {
		h.logger.WarnContext(ctx, fmt.Sprintf(`rejected number type [%s]: %s`, id, err))
		h.encodeError(writer, http.StatusBadRequest, err)
		return
	}

	h.encode(writer, http.StatusOK, res)
}

func (h *handler) window(writer http.ResponseWriter, _ *http.Request) {
	numbers, avg := h.service.State()
	h.encode(writer, http.StatusOK, windowState{
		Size:   h.service.Size(),
		Length: len(numbers),
		Window: numbers,
		Avg:    avg,
	})
}

func (h *handler) reset(writer http.ResponseWriter, _ *http.Request) {
	h.service.Reset()
	writer.WriteHeader(http.StatusNoContent)
}

// MakeHandler builds the API router.
func MakeHandler(service Service, logger log.Logger) http.Handler {
	r := mux.NewRouter()
	h := &handler{
		service: service,
		logger:  logger,
	}

	r.HandleFunc(`/numbers/{numberid}`, h.numbers).Methods(http.MethodGet)
	r.HandleFunc(`/window`, h.window).Methods(http.MethodGet)
	r.HandleFunc(`/window`, h.reset).Methods(http.MethodDelete)
	r.Handle(`/metrics`, promhttp.Handler()).Methods(http.MethodGet)

	return handlers.CORS(
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodDelete, http.MethodOptions}),
	)(r)
}
