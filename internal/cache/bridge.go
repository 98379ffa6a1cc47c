package cache

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// invalidateSubjectPrefix is the NATS subject prefix for invalidation
// events. The final token carries the subject kind, e.g.
// "analysis.invalidate.product".
const invalidateSubjectPrefix = "analysis.invalidate."

// StaleMarker is the narrow mutation surface the bridge needs. Store
// satisfies it for any payload type.
type StaleMarker interface {
	MarkStale(key string)
}

// Invalidation is the wire payload of an invalidation event.
//
// The publisher does not need to know whether the subject is currently
// displayed anywhere; the bridge derives the cache key and marks it
// stale, and observers pick the change up through the refresh counter.
type Invalidation struct {
	ID             string   `json:"id"`
	Discriminators []string `json:"discriminators,omitempty"`
}

// Bridge connects out-of-band invalidation events (a chat assistant
// acting on "refresh the analysis for X") to the in-process staleness
// tracker over NATS.
//
// The bridge is optional: when insightd runs without NATS, staleness
// marking stays in-process only.
type Bridge struct {
	nc     *nats.Conn
	marker StaleMarker
	logger *zap.Logger
	sub    *nats.Subscription
}

// NewBridge creates a bridge that marks keys stale on marker when
// invalidation events arrive on nc.
func NewBridge(nc *nats.Conn, marker StaleMarker, logger *zap.Logger) (*Bridge, error) {
	if nc == nil {
		return nil, fmt.Errorf("nats connection is required")
	}
	if marker == nil {
		return nil, fmt.Errorf("stale marker is required")
	}
	return &Bridge{
		nc:     nc,
		marker: marker,
		logger: logger,
	}, nil
}

// Start subscribes to invalidation events. Safe to call once.
func (b *Bridge) Start() error {
	sub, err := b.nc.Subscribe(invalidateSubjectPrefix+"*", b.handle)
	if err != nil {
		return fmt.Errorf("subscribing to invalidation events: %w", err)
	}
	b.sub = sub
	b.logger.Info("invalidation bridge started",
		zap.String("subject", invalidateSubjectPrefix+"*"))
	return nil
}

// Stop unsubscribes from invalidation events.
func (b *Bridge) Stop() {
	if b.sub != nil {
		_ = b.sub.Unsubscribe()
		b.sub = nil
	}
}

// handle processes a single invalidation message.
func (b *Bridge) handle(msg *nats.Msg) {
	kind := Kind(strings.TrimPrefix(msg.Subject, invalidateSubjectPrefix))

	var inv Invalidation
	if err := json.Unmarshal(msg.Data, &inv); err != nil {
		b.logger.Warn("malformed invalidation event",
			zap.String("subject", msg.Subject),
			zap.Error(err))
		return
	}
	if inv.ID == "" {
		b.logger.Warn("invalidation event without subject id",
			zap.String("subject", msg.Subject))
		return
	}

	key := DeriveKey(kind, inv.ID, inv.Discriminators...)
	b.marker.MarkStale(key)

	b.logger.Debug("marked key stale from invalidation event",
		zap.String("key", key))
}

// PublishInvalidation publishes an invalidation event for the given
// subject. Used by the daemon when a refresh command arrives on the
// chat side, so that every process sharing the NATS connection
// invalidates its own copy.
func PublishInvalidation(nc *nats.Conn, kind Kind, inv Invalidation) error {
	data, err := json.Marshal(inv)
	if err != nil {
		return fmt.Errorf("encoding invalidation event: %w", err)
	}
	if err := nc.Publish(invalidateSubjectPrefix+string(kind), data); err != nil {
		return fmt.Errorf("publishing invalidation event: %w", err)
	}
	return nil
}
