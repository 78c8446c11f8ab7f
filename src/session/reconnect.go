package session

import (
	"context"
	"time"

	logger "github.com/sirupsen/logrus"
)

func backoffDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// retryLocked schedules an automatic attempt after a failed connect unless the session is
// closing or one is already armed. Caller holds s.mu.
func (s *Session) retryLocked() {
	if s.closing || s.reconnectTimer != nil {
		return
	}
	s.scheduleReconnectLocked()
}

// scheduleReconnectLocked arms the next automatic attempt. Caller holds s.mu.
func (s *Session) scheduleReconnectLocked() {
	if s.reconnectAttempts >= s.cfg.MaxReconnectAttempts {
		s.log.WithFields(map[string]interface{}{
			"attempts": s.reconnectAttempts,
		}).Warn("gateway reconnect attempts exhausted")
		s.setStateLocked(StateDisconnected)
		return
	}

	s.reconnectAttempts++
	delay := backoffDelay(s.cfg.ReconnectBaseDelay, s.reconnectAttempts)
	reconnectsTotal.Inc()

	s.log.WithFields(logger.Fields{
		"attempt": s.reconnectAttempts,
		"delay":   delay.String(),
	}).Info("scheduling gateway reconnect")

	if s.reconnectTimer != nil {
		s.reconnectTimer.Stop()
	}
	s.reconnectTimer = s.afterFunc(delay, s.reconnect)
}

func (s *Session) reconnect() {
	s.mu.Lock()
	if s.closing {
		s.mu.Unlock()
		return
	}
	s.reconnectTimer = nil
	s.mu.Unlock()

	s.connectMu.Lock()
	defer s.connectMu.Unlock()
	if s.IsConnected() {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.cfg.HandshakeTimeout+s.cfg.RequestTimeout)
	defer cancel()

	// a failed dial schedules the next attempt itself
	if err := s.connect(ctx, false); err != nil {
		s.log.WithError(err).Warn("gateway reconnect failed")
	}
}
