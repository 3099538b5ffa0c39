package fetch

import (
	"sync"
	"time"

	"orbsim/internal/model"
)

// MockTransport returns controllable fixed data for development and
// testing. Responses can be split into batches, delayed, or held back
// to exercise timeout paths.
type MockTransport struct {
	Bars      map[string][]model.DailyBar
	BatchSize int           // 0 means a single batch
	Silent    bool          // swallow requests entirely (never answers)
	Delay     time.Duration // wait before answering

	events    chan BarEvent
	done      chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

func NewMockTransport() *MockTransport {
	return &MockTransport{
		Bars:   make(map[string][]model.DailyBar),
		events: make(chan BarEvent, 16),
		done:   make(chan struct{}),
	}
}

func (m *MockTransport) Name() string { return "mock" }

func (m *MockTransport) Events() <-chan BarEvent { return m.events }

func (m *MockTransport) Request(reqID int, symbol string, days int) error {
	if m.Silent {
		return nil
	}
	bars := m.Bars[symbol]
	if len(bars) > days {
		bars = bars[len(bars)-days:]
	}
	batch := m.BatchSize
	if batch <= 0 {
		batch = len(bars)
	}
	m.wg.Add(1)
	go func() {
		defer m.wg.Done()
		if m.Delay > 0 {
			select {
			case <-time.After(m.Delay):
			case <-m.done:
				return
			}
		}
		for i := 0; i < len(bars); i += batch {
			end := i + batch
			if end > len(bars) {
				end = len(bars)
			}
			if !m.send(BarEvent{ReqID: reqID, Bars: bars[i:end]}) {
				return
			}
		}
		m.send(BarEvent{ReqID: reqID, Done: true})
	}()
	return nil
}

func (m *MockTransport) send(ev BarEvent) bool {
	select {
	case m.events <- ev:
		return true
	case <-m.done:
		return false
	}
}

// Close stops delivery, waits out in-flight answers, then closes the
// event channel.
func (m *MockTransport) Close() error {
	m.closeOnce.Do(func() {
		close(m.done)
		m.wg.Wait()
		close(m.events)
	})
	return nil
}
