package notify

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

const publishTimeout = 2 * time.Second

// RedisNotifier publishes task events to a per-user Redis channel. Gateway
// processes subscribe and forward to their connected clients.
type RedisNotifier struct {
	client *redis.Client
	logger *logrus.Logger
}

// NewRedisNotifier connects to Redis at addr and verifies the connection.
func NewRedisNotifier(ctx context.Context, addr string, logger *logrus.Logger) (*RedisNotifier, error) {
	client := redis.NewClient(&redis.Options{Addr: addr})

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, err
	}

	logger.WithField("addr", addr).Info("Redis notifier connected")

	return &RedisNotifier{
		client: client,
		logger: logger,
	}, nil
}

type eventEnvelope struct {
	Event   string      `json:"event"`
	UserID  string      `json:"user_id"`
	At      time.Time   `json:"at"`
	Payload interface{} `json:"payload,omitempty"`
}

// Notify publishes the event. Failures are logged and dropped.
func (n *RedisNotifier) Notify(ctx context.Context, userID, event string, payload interface{}) {
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	data, err := json.Marshal(eventEnvelope{
		Event:   event,
		UserID:  userID,
		At:      time.Now(),
		Payload: payload,
	})
	if err != nil {
		n.logger.WithError(err).WithField("event", event).Warn("Failed to encode task event")
		return
	}

	channel := "autoreply:events:" + userID
	if err := n.client.Publish(ctx, channel, data).Err(); err != nil {
		n.logger.WithError(err).WithFields(logrus.Fields{
			"user_id": userID,
			"event":   event,
			"channel": channel,
		}).Warn("Failed to publish task event")
	}
}

// Close releases the underlying Redis connection.
func (n *RedisNotifier) Close() error {
	return n.client.Close()
}
