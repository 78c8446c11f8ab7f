package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	logger "github.com/sirupsen/logrus"
)

type reply struct {
	resp *Response
	err  error
}

type pendingRequest struct {
	id     int64
	result chan reply
	timer  *time.Timer
	sentAt time.Time
}

// settle delivers r once; result is buffered and the record is only reachable by whoever took
// it out of the pending map.
func (p *pendingRequest) settle(r reply) {
	if p.timer != nil {
		p.timer.Stop()
	}
	p.result <- r
}

// Send connects if needed, writes req tagged with a fresh req_id and waits for the correlated
// reply. A reply carrying an error payload is returned as *APIError together with the frame.
func (s *Session) Send(ctx context.Context, req Request) (*Response, error) {
	if err := s.ensureConnected(ctx); err != nil {
		return nil, err
	}
	return s.roundTrip(ctx, req)
}

func (s *Session) roundTrip(ctx context.Context, req Request) (*Response, error) {
	l := s.currentLink()
	if l == nil {
		return nil, ErrNotConnected
	}

	if err := s.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	id := s.nextID.Add(1)
	payload, err := encodeRequest(req, id)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	p := &pendingRequest{
		id:     id,
		result: make(chan reply, 1),
		sentAt: time.Now(),
	}

	s.pendingMu.Lock()
	s.pending[id] = p
	p.timer = time.AfterFunc(s.cfg.RequestTimeout, func() {
		if s.take(id) != nil {
			p.result <- reply{err: ErrRequestTimeout}
		}
	})
	s.pendingMu.Unlock()
	pendingRequests.Inc()

	if err := l.write(payload); err != nil {
		if s.take(id) != nil {
			p.timer.Stop()
		}
		s.markTransportError(l, err)
		requestsTotal.WithLabelValues(outcomeWriteErr).Inc()
		return nil, fmt.Errorf("write request: %w", err)
	}

	select {
	case r := <-p.result:
		s.observe(p, r.err)
		return r.resp, r.err
	case <-ctx.Done():
		if s.take(id) != nil {
			p.timer.Stop()
			requestsTotal.WithLabelValues(outcomeCanceled).Inc()
			return nil, ctx.Err()
		}
		// settled concurrently with the cancellation
		r := <-p.result
		s.observe(p, r.err)
		return r.resp, r.err
	}
}

func (s *Session) observe(p *pendingRequest, err error) {
	var apiErr *APIError
	switch {
	case err == nil:
		requestsTotal.WithLabelValues(outcomeOK).Inc()
		requestDuration.Observe(time.Since(p.sentAt).Seconds())
	case errors.As(err, &apiErr):
		requestsTotal.WithLabelValues(outcomeAPIError).Inc()
		requestDuration.Observe(time.Since(p.sentAt).Seconds())
	case errors.Is(err, ErrRequestTimeout):
		requestsTotal.WithLabelValues(outcomeTimeout).Inc()
	case errors.Is(err, ErrConnectionClosed):
		requestsTotal.WithLabelValues(outcomeClosed).Inc()
	}
}

// take removes and returns the pending record for id, or nil if it was already settled.
func (s *Session) take(id int64) *pendingRequest {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()

	p, ok := s.pending[id]
	if !ok {
		return nil
	}
	delete(s.pending, id)
	pendingRequests.Dec()
	return p
}

// Pending returns the number of requests awaiting a reply.
func (s *Session) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

func (s *Session) dispatch(data []byte, log *logger.Entry) {
	resp, err := decodeResponse(data)
	if err != nil {
		log.WithError(err).Debug("dropping undecodable gateway frame")
		return
	}

	if resp.ReqID != 0 {
		if p := s.take(resp.ReqID); p != nil {
			if resp.Error != nil {
				p.settle(reply{resp: resp, err: resp.Error})
			} else {
				p.settle(reply{resp: resp})
			}
		}
	}

	s.publish(resp)
}

func (s *Session) rejectAll(err error) {
	s.pendingMu.Lock()
	records := make([]*pendingRequest, 0, len(s.pending))
	for id, p := range s.pending {
		delete(s.pending, id)
		records = append(records, p)
	}
	pendingRequests.Set(0)
	s.pendingMu.Unlock()

	for _, p := range records {
		p.settle(reply{err: err})
	}
}
