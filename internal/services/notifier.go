package services

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// Notifier pushes a human-readable event description to the owning principal.
// It is strictly best-effort: engines call it after the movement log append,
// never wait on it, and never fail an operation because of it.
type Notifier interface {
	Push(ctx context.Context, principalGUID, message, kind string, at time.Time) error
}

// Notification kinds.
const (
	NotifyDomiciliation = "domiciliacion"
	NotifyPayroll       = "nomina"
	NotifyCardPayment   = "tarjeta"
	NotifyTransfer      = "transferencia"
	NotifyRevocation    = "revocacion"
)

// RedisNotifier publishes to a per-principal channel the live gateway
// subscribes to.
type RedisNotifier struct {
	client *redis.Client
}

func NewRedisNotifier(client *redis.Client) *RedisNotifier {
	return &RedisNotifier{client: client}
}

type notificationPayload struct {
	Message   string    `json:"message"`
	Kind      string    `json:"kind"`
	Timestamp time.Time `json:"timestamp"`
}

func (n *RedisNotifier) Push(ctx context.Context, principalGUID, message, kind string, at time.Time) error {
	if n.client == nil {
		return nil
	}
	payload, err := json.Marshal(notificationPayload{Message: message, Kind: kind, Timestamp: at})
	if err != nil {
		return err
	}
	return n.client.Publish(ctx, "notificaciones:"+principalGUID, payload).Err()
}

// notify runs the push on its own goroutine and swallows failures with a log
// line, so a dead notification gateway can never block or fail an operation.
func notify(n Notifier, principalGUID, message, kind string) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := n.Push(ctx, principalGUID, message, kind, time.Now()); err != nil {
			log.Printf("[NOTIFY] Push to %s failed: %v", principalGUID, err)
		}
	}()
}
