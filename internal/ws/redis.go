package ws

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/neuroforge/backend/internal/game"
	"github.com/neuroforge/backend/internal/logging"
)

const (
	matchChannelPrefix  = "duel:"
	playerChannelPrefix = "player:"
	publishTimeout      = 2 * time.Second
	publishBuffer       = 1024
)

func matchChannel(matchID string) string { return matchChannelPrefix + matchID }
func playerChannel(playerID int64) string {
	return playerChannelPrefix + strconv.FormatInt(playerID, 10)
}

// RedisBroadcaster publishes events on Redis so every instance's hub can
// deliver them. Callers never block: events go through one buffered queue
// drained by Run, so they reach Redis in the order they were published. When
// the queue is full the event is dropped.
type RedisBroadcaster struct {
	send    func(ctx context.Context, channel string, payload []byte) error
	pending chan outgoing
	log     *zap.Logger
}

type outgoing struct {
	channel   string
	eventType string
	payload   []byte
}

func NewRedisBroadcaster(rdb *redis.Client) *RedisBroadcaster {
	return newBroadcaster(func(ctx context.Context, channel string, payload []byte) error {
		return rdb.Publish(ctx, channel, payload).Err()
	})
}

func newBroadcaster(send func(ctx context.Context, channel string, payload []byte) error) *RedisBroadcaster {
	return &RedisBroadcaster{
		send:    send,
		pending: make(chan outgoing, publishBuffer),
		log:     logging.Named("ws"),
	}
}

// Run publishes queued events one at a time until ctx is done.
func (b *RedisBroadcaster) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-b.pending:
			pctx, cancel := context.WithTimeout(ctx, publishTimeout)
			if err := b.send(pctx, msg.channel, msg.payload); err != nil {
				b.log.Warn("publish event", zap.String("channel", msg.channel), zap.String("type", msg.eventType), zap.Error(err))
			}
			cancel()
		}
	}
}

func (b *RedisBroadcaster) PublishMatch(matchID string, ev game.Event) {
	b.publish(matchChannel(matchID), ev)
}

func (b *RedisBroadcaster) PublishPlayer(playerID int64, ev game.Event) {
	b.publish(playerChannel(playerID), ev)
}

func (b *RedisBroadcaster) publish(channel string, ev game.Event) {
	payload, err := json.Marshal(ev)
	if err != nil {
		b.log.Error("marshal event", zap.String("type", ev.Type), zap.Error(err))
		return
	}
	select {
	case b.pending <- outgoing{channel: channel, eventType: ev.Type, payload: payload}:
	default:
		b.log.Warn("publish queue full, dropping event", zap.String("channel", channel), zap.String("type", ev.Type))
	}
}

// route maps a bus channel to a hub delivery.
type route struct {
	matchID  string
	playerID int64
}

func parseChannel(channel string) (route, error) {
	switch {
	case strings.HasPrefix(channel, matchChannelPrefix):
		id := strings.TrimPrefix(channel, matchChannelPrefix)
		if id == "" {
			return route{}, fmt.Errorf("empty match id in %q", channel)
		}
		return route{matchID: id}, nil
	case strings.HasPrefix(channel, playerChannelPrefix):
		id, err := strconv.ParseInt(strings.TrimPrefix(channel, playerChannelPrefix), 10, 64)
		if err != nil {
			return route{}, fmt.Errorf("bad player id in %q: %w", channel, err)
		}
		return route{playerID: id}, nil
	}
	return route{}, fmt.Errorf("unknown channel %q", channel)
}

// StartSubscriber fans events from Redis out to the local hub until ctx is
// done.
func StartSubscriber(ctx context.Context, rdb *redis.Client, hub *Hub) {
	pubsub := rdb.PSubscribe(ctx, matchChannelPrefix+"*", playerChannelPrefix+"*")
	ch := pubsub.Channel()

	go func() {
		defer pubsub.Close()
		hub.log.Info("event subscriber started")
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				hub.deliver(msg.Channel, []byte(msg.Payload))
			}
		}
	}()
}

func (h *Hub) deliver(channel string, payload []byte) {
	r, err := parseChannel(channel)
	if err != nil {
		h.log.Warn("drop bus message", zap.Error(err))
		return
	}
	if r.matchID != "" {
		h.BroadcastToMatch(r.matchID, payload)
		return
	}
	h.SendToPlayer(r.playerID, payload)
}
