// ABOUTME: Software clock for device-less streams
// ABOUTME: Calls the data callback at the rate a real device would
package output

import (
	"sync"
	"sync/atomic"
	"time"
)

// clockStream drives a data callback from a goroutine instead of a device
type clockStream struct {
	cfg      StreamConfig
	data     DataCallback
	realtime bool
	// sink receives every rendered buffer; it returns false to stop the clock
	sink func(buf []float32) bool

	started  atomic.Bool
	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

func newClockStream(cfg StreamConfig, data DataCallback, realtime bool, sink func([]float32) bool) *clockStream {
	return &clockStream{
		cfg:      cfg,
		data:     data,
		realtime: realtime,
		sink:     sink,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

func (s *clockStream) Play() error {
	if s.started.CompareAndSwap(false, true) {
		go s.run()
	}
	return nil
}

func (s *clockStream) run() {
	defer close(s.done)

	buf := make([]float32, s.cfg.BufferSize*s.cfg.Channels)
	period := time.Duration(s.cfg.BufferSize) * time.Second / time.Duration(s.cfg.SampleRate)

	var ticker *time.Ticker
	if s.realtime {
		ticker = time.NewTicker(period)
		defer ticker.Stop()
	}

	for {
		if ticker != nil {
			select {
			case <-s.stop:
				return
			case <-ticker.C:
			}
		} else {
			select {
			case <-s.stop:
				return
			default:
			}
		}

		clear(buf)
		s.data(buf, s.cfg.Channels)
		if s.sink != nil && !s.sink(buf) {
			return
		}
	}
}

func (s *clockStream) SampleRate() int { return s.cfg.SampleRate }

func (s *clockStream) Config() StreamConfig { return s.cfg }

// Close stops the clock and waits for the last callback to return
func (s *clockStream) Close() error {
	s.stopOnce.Do(func() { close(s.stop) })
	if s.started.Load() {
		<-s.done
	}
	return nil
}
