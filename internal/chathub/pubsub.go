package chathub

import (
	"chatgraph/backend/internal/storage"
	"context"
	"encoding/json"
	"log"

	"github.com/redis/go-redis/v9"
)

// WatchEvents читає події з підписки Redis і передає їх у handle, доки не
// закриється ctx або підписка.
func WatchEvents(ctx context.Context, sub *redis.PubSub, handle func(storage.Event)) error {
	defer sub.Close()

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var event storage.Event
			if err := json.Unmarshal([]byte(msg.Payload), &event); err != nil {
				log.Printf("Error unmarshalling Redis event: %v", err)
				continue
			}
			handle(event)
		}
	}
}
