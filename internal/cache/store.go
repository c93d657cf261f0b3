// Package cache is the redis-backed local fallback for appointment and
// availability snapshots, namespaced per provider. It also carries the
// cross-process availability-changed signal.
package cache

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/brightpath-health/practice-dashboard/internal/schedule"
	"github.com/brightpath-health/practice-dashboard/pkg/logging"
)

// Store persists raw source snapshots so the dashboard can render something
// when the booking API is unreachable.
type Store struct {
	redis      *redis.Client
	providerID string
	logger     *logging.Logger
}

func NewStore(client *redis.Client, providerID string, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	return &Store{redis: client, providerID: providerID, logger: logger}
}

func (s *Store) appointmentsKey() string {
	return fmt.Sprintf("dashboard:%s:appointments", s.providerID)
}

func (s *Store) availabilityKey() string {
	return fmt.Sprintf("dashboard:%s:availability", s.providerID)
}

func (s *Store) changedChannel() string {
	return fmt.Sprintf("dashboard:%s:availability-changed", s.providerID)
}

// ReadAppointments returns the cached raw appointment snapshot. A missing key
// is an empty snapshot, not an error.
func (s *Store) ReadAppointments(ctx context.Context) ([]schedule.RawAppointment, error) {
	data, err := s.redis.Get(ctx, s.appointmentsKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read appointments: %w", err)
	}
	var raws []schedule.RawAppointment
	if err := json.Unmarshal(data, &raws); err != nil {
		return nil, fmt.Errorf("cache: unmarshal appointments: %w", err)
	}
	return raws, nil
}

// WriteAppointments replaces the cached appointment snapshot.
func (s *Store) WriteAppointments(ctx context.Context, raws []schedule.RawAppointment) error {
	data, err := json.Marshal(raws)
	if err != nil {
		return fmt.Errorf("cache: marshal appointments: %w", err)
	}
	if err := s.redis.Set(ctx, s.appointmentsKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("cache: write appointments: %w", err)
	}
	return nil
}

// ReadAvailability returns the cached weekly availability in wire shape.
func (s *Store) ReadAvailability(ctx context.Context) (map[string][]string, error) {
	data, err := s.redis.Get(ctx, s.availabilityKey()).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("cache: read availability: %w", err)
	}
	var raw map[string][]string
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("cache: unmarshal availability: %w", err)
	}
	return raw, nil
}

// WriteAvailability replaces the cached weekly availability.
func (s *Store) WriteAvailability(ctx context.Context, raw map[string][]string) error {
	data, err := json.Marshal(raw)
	if err != nil {
		return fmt.Errorf("cache: marshal availability: %w", err)
	}
	if err := s.redis.Set(ctx, s.availabilityKey(), data, 0).Err(); err != nil {
		return fmt.Errorf("cache: write availability: %w", err)
	}
	return nil
}

// PublishAvailabilityChanged signals every dashboard instance watching this
// provider to reconcile immediately.
func (s *Store) PublishAvailabilityChanged(ctx context.Context) error {
	if err := s.redis.Publish(ctx, s.changedChannel(), "changed").Err(); err != nil {
		return fmt.Errorf("cache: publish availability changed: %w", err)
	}
	return nil
}

// SubscribeAvailabilityChanged returns a channel that receives one value per
// availability-changed signal, plus a cancel func releasing the subscription.
func (s *Store) SubscribeAvailabilityChanged(ctx context.Context) (<-chan struct{}, func()) {
	sub := s.redis.Subscribe(ctx, s.changedChannel())
	out := make(chan struct{}, 1)

	go func() {
		defer close(out)
		for range sub.Channel() {
			select {
			case out <- struct{}{}:
			default:
				// A pending signal already forces a pass; coalesce.
			}
		}
	}()

	cancel := func() {
		if err := sub.Close(); err != nil {
			s.logger.Warn("closing availability subscription", "error", err)
		}
	}
	return out, cancel
}
