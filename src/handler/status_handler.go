package handler

import (
	"net/http"

	"voicetrader/src/connectors"
)

type statusReporter interface {
	Status() connectors.Status
}

// StatusHandler reports the gateway session state. A nil reporter means the
// trading client was not configured.
func StatusHandler(s statusReporter) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if s == nil {
			writeJSON(w, http.StatusServiceUnavailable, connectors.Status{State: "unconfigured"})
			return
		}
		status := s.Status()
		code := http.StatusOK
		if !status.Connected {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, status)
	}
}
