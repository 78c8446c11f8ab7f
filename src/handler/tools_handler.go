package handler

import (
	"context"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	jsoniter "github.com/json-iterator/go"
	logger "github.com/sirupsen/logrus"

	"voicetrader/src/auth"
	"voicetrader/src/dispatcher"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const maxArgsBytes = 64 << 10

type toolDispatcher interface {
	Has(name string) bool
	Dispatch(ctx context.Context, name string, rawArgs []byte) map[string]interface{}
}

// ListToolsHandler serves the tool catalogue handed to the realtime speech session.
func ListToolsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]interface{}{"tools": dispatcher.Tools()})
	}
}

// CallToolHandler runs POST /tools/{name} with the request body as the tool arguments.
// Tool failures are part of the payload; only an unknown tool or an unreadable body
// change the status code.
func CallToolHandler(d toolDispatcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		caller, _ := auth.GetCallerFromContext(r.Context())
		log := logger.WithFields(logger.Fields{"tool": name, "caller": caller})

		if !d.Has(name) {
			log.Warn("unknown tool requested")
			writeJSON(w, http.StatusNotFound, map[string]interface{}{"error": "unknown tool: " + name})
			return
		}

		args, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxArgsBytes))
		if err != nil {
			log.WithError(err).Warn("invalid tool call payload")
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{"error": "invalid payload"})
			return
		}

		result := d.Dispatch(r.Context(), name, args)
		writeJSON(w, http.StatusOK, result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.WithError(err).Error("failed to encode response")
	}
}
