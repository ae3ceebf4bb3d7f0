package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/aretw0/awaken/internal/logging"
	"github.com/aretw0/awaken/pkg/domain"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // FlowID -> Set of Channels
	logger      *slog.Logger
}

// NewStreamManager creates an empty StreamManager. A nil logger discards output.
func NewStreamManager(logger *slog.Logger) *StreamManager {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

// Subscribe registers a buffered channel for flowID. The returned func
// unregisters and closes it.
func (sm *StreamManager) Subscribe(flowID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[flowID]; !ok {
		sm.subscribers[flowID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[flowID][ch] = struct{}{}

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			sm.mu.Lock()
			defer sm.mu.Unlock()
			if subs, ok := sm.subscribers[flowID]; ok {
				delete(subs, ch)
				close(ch)
				if len(subs) == 0 {
					delete(sm.subscribers, flowID)
				}
			}
		})
	}
}

// Subscribers reports how many streams are open for flowID.
func (sm *StreamManager) Subscribers(flowID string) int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.subscribers[flowID])
}

// Broadcast never blocks: slow clients lose messages.
func (sm *StreamManager) Broadcast(flowID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	subs, ok := sm.subscribers[flowID]
	if !ok {
		return
	}
	sm.logger.Debug("StreamManager: Broadcasting", "flow_id", flowID, "subscribers", len(subs), "payload_size", len(msg))
	for ch := range subs {
		select {
		case ch <- msg:
		default:
			sm.logger.Warn("SSE: Client buffer full, dropping message", "flow_id", flowID)
		}
	}
}

// Hooks forwards every phase event of a flow to its subscribers as JSON.
// Pass them to the session manager so the stream sees its flows.
func (sm *StreamManager) Hooks() domain.LifecycleHooks {
	forward := func(_ context.Context, e *domain.PhaseEvent) {
		b, err := json.Marshal(e)
		if err != nil {
			sm.logger.Error("SSE: encode event failed", "err", err)
			return
		}
		sm.Broadcast(e.SessionID, string(b))
	}
	return domain.LifecycleHooks{
		OnPhaseEnter: forward,
		OnTick:       forward,
		OnEffect:     forward,
		OnComplete:   forward,
		OnCancel:     forward,
	}
}
