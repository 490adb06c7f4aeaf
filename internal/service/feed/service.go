package feed

import (
	"log/slog"
	"sync"

	"github.com/cmlabs-hris/geoclock-backend-go/internal/domain/clock"
	"github.com/cmlabs-hris/geoclock-backend-go/internal/pkg/sse"
)

const (
	EventClockEvent       = "clock_event"
	EventStaleTimeEntries = "stale_time_entries"
)

// Config holds feed service configuration
type Config struct {
	WorkerCount int // default: 1
	QueueSize   int // default: 256
}

// Service queues ledger activity and pushes it to the SSE hub from
// background workers, so a slow hub never delays a clock transaction.
type Service struct {
	hub    *sse.Hub
	config Config

	queue  chan sse.Event
	wg     sync.WaitGroup
	stopCh chan struct{}
	once   sync.Once
}

// NewService creates a feed service and starts its workers.
func NewService(hub *sse.Hub, cfg Config) *Service {
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = 1
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 256
	}

	s := &Service{
		hub:    hub,
		config: cfg,
		queue:  make(chan sse.Event, cfg.QueueSize),
		stopCh: make(chan struct{}),
	}

	for i := 0; i < cfg.WorkerCount; i++ {
		s.wg.Add(1)
		go s.worker(i)
	}

	slog.Info("Clock feed started", "workers", cfg.WorkerCount, "queue_size", cfg.QueueSize)

	return s
}

func (s *Service) worker(id int) {
	defer s.wg.Done()

	for {
		select {
		case ev := <-s.queue:
			s.hub.Publish(ev)
		case <-s.stopCh:
			// Drain what is already queued before exiting.
			for {
				select {
				case ev := <-s.queue:
					s.hub.Publish(ev)
				default:
					slog.Debug("Clock feed worker stopped", "worker", id)
					return
				}
			}
		}
	}
}

// ClockEventRecorded implements clock.Broadcaster. Granted events are not
// pushed; supervisors follow warnings, blocks and overrides.
func (s *Service) ClockEventRecorded(event clock.ClockEvent) {
	if event.Status == clock.EventStatusGranted {
		return
	}
	s.enqueue(sse.Event{
		ID:         event.ID,
		BusinessID: event.BusinessID,
		Event:      EventClockEvent,
		Data:       clock.NewClockEventResponse(event),
	})
}

// StaleTimeEntries implements clock.Broadcaster.
func (s *Service) StaleTimeEntries(businessID string, entries []clock.TimeEntry) {
	if len(entries) == 0 {
		return
	}
	data := make([]clock.TimeEntryResponse, len(entries))
	for i, e := range entries {
		data[i] = clock.NewTimeEntryResponse(e)
	}
	s.enqueue(sse.Event{
		BusinessID: businessID,
		Event:      EventStaleTimeEntries,
		Data:       data,
	})
}

func (s *Service) enqueue(ev sse.Event) {
	select {
	case s.queue <- ev:
	default:
		slog.Warn("Clock feed queue full, dropping event",
			"business_id", ev.BusinessID,
			"event", ev.Event,
			"id", ev.ID,
		)
	}
}

// Stop flushes queued events and waits for the workers to exit.
func (s *Service) Stop() {
	s.once.Do(func() {
		close(s.stopCh)
		s.wg.Wait()
		slog.Info("Clock feed stopped")
	})
}

var _ clock.Broadcaster = (*Service)(nil)
