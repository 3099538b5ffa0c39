package fetch

import (
	"context"
	"log"
	"sync"
	"time"

	"orbsim/internal/model"
)

// BarEvent is one asynchronous delivery from a transport, correlated to
// its request by ReqID. A batch event carries bars; a final event sets
// Done (or Err) and ends the stream for that request.
type BarEvent struct {
	ReqID int
	Bars  []model.DailyBar
	Done  bool
	Err   error
}

// Transport issues bar requests and delivers the responses as events on
// a single channel. Implementations may answer out of order and in
// multiple batches.
type Transport interface {
	Request(reqID int, symbol string, days int) error
	Events() <-chan BarEvent
	Name() string
	Close() error
}

// Service resolves transport events into per-request futures. One
// event-processing goroutine consumes the transport stream; callers
// block on their own request's channel with a bounded wait instead of
// polling shared state.
type Service struct {
	tr      Transport
	timeout time.Duration

	mu      sync.Mutex
	nextID  int
	pending map[int]*pendingReq
}

type pendingReq struct {
	bars []model.DailyBar
	done chan error
}

// NewService starts the event loop over the transport. Timeout bounds
// each fetch; on expiry the partial data received so far is returned.
func NewService(tr Transport, timeout time.Duration) *Service {
	s := &Service{
		tr:      tr,
		timeout: timeout,
		pending: make(map[int]*pendingReq),
	}
	go s.loop()
	return s
}

func (s *Service) loop() {
	for ev := range s.tr.Events() {
		s.mu.Lock()
		req, ok := s.pending[ev.ReqID]
		if !ok {
			s.mu.Unlock()
			log.Printf("[WARN] fetch: event for unknown request %d", ev.ReqID)
			continue
		}
		req.bars = append(req.bars, ev.Bars...)
		s.mu.Unlock()
		if ev.Done || ev.Err != nil {
			req.done <- ev.Err
		}
	}
}

// FetchDailyBars requests the most recent daily bars for a symbol and
// waits for the stream to finish. On timeout or context cancellation it
// returns whatever bars arrived, without error: the caller decides
// whether a partial window is usable.
func (s *Service) FetchDailyBars(ctx context.Context, symbol string, days int) ([]model.DailyBar, error) {
	s.mu.Lock()
	s.nextID++
	reqID := s.nextID
	req := &pendingReq{done: make(chan error, 1)}
	s.pending[reqID] = req
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		delete(s.pending, reqID)
		s.mu.Unlock()
	}()

	if err := s.tr.Request(reqID, symbol, days); err != nil {
		return nil, err
	}

	timer := time.NewTimer(s.timeout)
	defer timer.Stop()

	var ferr error
	select {
	case ferr = <-req.done:
	case <-timer.C:
		log.Printf("[WARN] fetch: request %d (%s) timed out, returning partial data", reqID, symbol)
	case <-ctx.Done():
	}

	s.mu.Lock()
	bars := make([]model.DailyBar, len(req.bars))
	copy(bars, req.bars)
	s.mu.Unlock()

	if ferr != nil {
		return nil, ferr
	}
	return bars, nil
}

// Close shuts down the underlying transport.
func (s *Service) Close() error {
	return s.tr.Close()
}
