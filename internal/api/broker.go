package api

import (
	"sync"
)

// ProgressEvent is one stage-progress update streamed to observers.
type ProgressEvent struct {
	Stage   string `json:"stage"`
	Percent int    `json:"percent"`
	Message string `json:"message,omitempty"`
}

// EventBroker fans progress events out to observers of a group. Publishing
// is non-blocking; slow or absent subscribers lose events rather than stall
// the pipeline.
type EventBroker interface {
	Subscribe(groupID string) chan ProgressEvent
	Unsubscribe(groupID string, ch chan ProgressEvent)
	Publish(groupID string, evt ProgressEvent)
}

type Broker struct {
	mu   sync.Mutex
	subs map[string]map[chan ProgressEvent]struct{}
}

func NewBroker() *Broker {
	return &Broker{subs: map[string]map[chan ProgressEvent]struct{}{}}
}

func (b *Broker) Subscribe(groupID string) chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	b.mu.Lock()
	if b.subs[groupID] == nil {
		b.subs[groupID] = map[chan ProgressEvent]struct{}{}
	}
	b.subs[groupID][ch] = struct{}{}
	b.mu.Unlock()
	return ch
}

func (b *Broker) Unsubscribe(groupID string, ch chan ProgressEvent) {
	b.mu.Lock()
	if m := b.subs[groupID]; m != nil {
		delete(m, ch)
		if len(m) == 0 {
			delete(b.subs, groupID)
		}
	}
	b.mu.Unlock()
	close(ch)
}

func (b *Broker) Publish(groupID string, evt ProgressEvent) {
	b.mu.Lock()
	for ch := range b.subs[groupID] {
		select {
		case ch <- evt:
		default:
		}
	}
	b.mu.Unlock()
}
