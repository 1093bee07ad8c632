package api

import (
	"context"
	"encoding/json"
	"sync"

	redis "github.com/redis/go-redis/v9"
)

// RedisBroker implements EventBroker over Redis Pub/Sub so progress events
// reach observers connected to any API instance.
type RedisBroker struct {
	rdb *redis.Client
	mu  sync.Mutex
	ps  map[chan ProgressEvent]*redis.PubSub
}

func NewRedisBroker(url string) (*RedisBroker, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &RedisBroker{rdb: redis.NewClient(opt), ps: map[chan ProgressEvent]*redis.PubSub{}}, nil
}

func (b *RedisBroker) chanName(groupID string) string { return "tripnav:progress:" + groupID }

func (b *RedisBroker) Subscribe(groupID string) chan ProgressEvent {
	ch := make(chan ProgressEvent, 16)
	ctx := context.Background()
	ps := b.rdb.Subscribe(ctx, b.chanName(groupID))
	// initial receive confirms the subscription before events flow
	_, _ = ps.Receive(ctx)
	b.mu.Lock()
	b.ps[ch] = ps
	b.mu.Unlock()
	go func() {
		defer close(ch)
		for msg := range ps.Channel() {
			var evt ProgressEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err == nil {
				select {
				case ch <- evt:
				default:
				}
			}
		}
	}()
	return ch
}

func (b *RedisBroker) Unsubscribe(groupID string, ch chan ProgressEvent) {
	b.mu.Lock()
	ps := b.ps[ch]
	delete(b.ps, ch)
	b.mu.Unlock()
	if ps != nil {
		// closing the pubsub ends the reader goroutine, which closes ch
		_ = ps.Close()
	}
}

func (b *RedisBroker) Publish(groupID string, evt ProgressEvent) {
	payload, err := json.Marshal(evt)
	if err != nil {
		return
	}
	_ = b.rdb.Publish(context.Background(), b.chanName(groupID), payload).Err()
}
