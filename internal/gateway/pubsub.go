package gateway

import (
	"context"
	"log"
	"strings"
	"time"

	"crypto-analyst/internal/model"
	redisstore "crypto-analyst/internal/store/redis"
)

// PubSubRouter relays view updates published on Redis to the Hub, so
// several gateway processes can serve one dashboard.
type PubSubRouter struct {
	hub   *Hub
	store *redisstore.Writer
}

// NewPubSubRouter creates a PubSubRouter feeding hub from store.
func NewPubSubRouter(hub *Hub, store *redisstore.Writer) *PubSubRouter {
	return &PubSubRouter{hub: hub, store: store}
}

// Run primes the hub with the stored latest views, then pattern-subscribes
// to every view channel. Blocks until ctx is cancelled.
func (r *PubSubRouter) Run(ctx context.Context) {
	r.prime(ctx)

	pubsub := r.store.Client().PSubscribe(ctx, redisstore.ViewChannelPrefix+"*")
	defer pubsub.Close()

	log.Printf("[gateway] subscribed to %s*", redisstore.ViewChannelPrefix)

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			channel := strings.TrimPrefix(msg.Channel, redisstore.ViewChannelPrefix)
			r.hub.Broadcaster.Broadcast(channel, []byte(msg.Payload))
		}
	}
}

func (r *PubSubRouter) prime(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	views, err := r.store.LatestViews(ctx)
	if err != nil {
		log.Printf("[gateway] WARNING: could not load latest views: %v", err)
		return
	}
	for channel, payload := range views {
		r.hub.Broadcaster.Broadcast(channel, payload)
	}
	if len(views) > 0 {
		log.Printf("[gateway] primed %d channels from redis", len(views))
	}
}

// RelayPublisher publishes through Remote (Redis) and falls back to the
// local hub when Remote fails, so this process's clients still get updates
// while Redis is unavailable.
type RelayPublisher struct {
	Remote model.Publisher
	Local  *Hub
}

// Publish implements model.Publisher.
func (p *RelayPublisher) Publish(ctx context.Context, channel string, payload []byte) error {
	err := p.Remote.Publish(ctx, channel, payload)
	if err == nil {
		return nil
	}
	log.Printf("[gateway] remote publish on %s failed, delivering locally: %v", channel, err)
	return p.Local.Publish(ctx, channel, payload)
}
