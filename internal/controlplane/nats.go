package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/t77yq/governance-reconciler/internal/model"
)

const (
	scheduleBucket = "GOVERNANCE_SCHEDULES"

	scheduleStreamName     = "SCHEDULES"
	scheduleCreatedSubject = "schedule.created"
	schedulePausedSubject  = "schedule.paused"
	scheduleResumedSubject = "schedule.resumed"

	streamMaxAge  = 24 * time.Hour
	streamMaxMsgs = -1
)

// NATSPort implements Port against an engine whose schedule registry is a
// JetStream key-value bucket keyed by schedule identity. Every mutation also
// publishes a lifecycle event so the engine and operators can observe
// reconciliation.
type NATSPort struct {
	js     nats.JetStreamContext
	kv     nats.KeyValue
	logger *zap.Logger
}

// NewNATSPort creates the adapter, ensuring the schedule bucket and the
// lifecycle stream exist.
func NewNATSPort(js nats.JetStreamContext, logger *zap.Logger) (*NATSPort, error) {
	kv, err := js.KeyValue(scheduleBucket)
	if err != nil {
		if !errors.Is(err, nats.ErrBucketNotFound) {
			return nil, fmt.Errorf("failed to open schedule bucket: %w", err)
		}
		kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
			Bucket:  scheduleBucket,
			Storage: nats.FileStorage,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create schedule bucket: %w", err)
		}
		logger.Info("Created schedule bucket", zap.String("bucket", scheduleBucket))
	}

	port := &NATSPort{
		js:     js,
		kv:     kv,
		logger: logger.Named("controlplane"),
	}

	if err := port.setupStream(); err != nil {
		return nil, fmt.Errorf("failed to setup stream: %w", err)
	}

	return port, nil
}

func (p *NATSPort) setupStream() error {
	_, err := p.js.AddStream(&nats.StreamConfig{
		Name:     scheduleStreamName,
		Subjects: []string{"schedule.*"},
		Storage:  nats.FileStorage,
		MaxAge:   streamMaxAge,
		MaxMsgs:  streamMaxMsgs,
	})
	if err != nil {
		if err == nats.ErrStreamNameAlreadyInUse {
			p.logger.Info("Using existing schedule stream", zap.String("stream", scheduleStreamName))
			return nil
		}
		return err
	}

	p.logger.Info("Created schedule stream", zap.String("stream", scheduleStreamName))
	return nil
}

// ListSchedules implements Port.ListSchedules. The bucket is read fresh on
// every call; observed state is never cached across passes.
func (p *NATSPort) ListSchedules(ctx context.Context, namespacePrefix string) ([]model.ObservedSchedule, error) {
	keys, err := p.kv.Keys()
	if err != nil {
		if errors.Is(err, nats.ErrNoKeysFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to list schedule keys: %w", err)
	}

	var observed []model.ObservedSchedule
	for _, key := range keys {
		if !strings.HasPrefix(key, namespacePrefix) {
			continue
		}

		entry, err := p.kv.Get(key)
		if err != nil {
			return nil, fmt.Errorf("failed to read schedule %s: %w", key, err)
		}

		var record model.ScheduleRecord
		if err := json.Unmarshal(entry.Value(), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal schedule %s: %w", key, err)
		}

		observed = append(observed, model.ObservedSchedule{
			Identity: record.Identity,
			Paused:   record.Paused,
		})
	}

	return observed, nil
}

// CreateSchedule implements Port.CreateSchedule. A pre-existing identity is
// treated as success so that overlapping deploys converge instead of racing.
func (p *NATSPort) CreateSchedule(ctx context.Context, req CreateRequest) error {
	now := time.Now()
	record := model.ScheduleRecord{
		Identity:   req.Identity,
		Expression: req.Expression,
		Timezone:   req.Timezone,
		Token:      req.Token,
		Paused:     false,
		Policy:     req.Policy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	if _, err := p.kv.Create(req.Identity, data); err != nil {
		if errors.Is(err, nats.ErrKeyExists) {
			p.logger.Info("Schedule already registered",
				zap.String("identity", req.Identity))
			return nil
		}
		return fmt.Errorf("failed to create schedule %s: %w", req.Identity, err)
	}

	p.publishEvent(ctx, scheduleCreatedSubject, &record)

	p.logger.Info("Created schedule",
		zap.String("identity", req.Identity),
		zap.String("expression", req.Expression),
		zap.String("timezone", req.Timezone))
	return nil
}

// PauseSchedule implements Port.PauseSchedule.
func (p *NATSPort) PauseSchedule(ctx context.Context, identity string) error {
	return p.setPaused(ctx, identity, true, schedulePausedSubject)
}

// ResumeSchedule implements Port.ResumeSchedule.
func (p *NATSPort) ResumeSchedule(ctx context.Context, identity string) error {
	return p.setPaused(ctx, identity, false, scheduleResumedSubject)
}

func (p *NATSPort) setPaused(ctx context.Context, identity string, paused bool, subject string) error {
	entry, err := p.kv.Get(identity)
	if err != nil {
		if errors.Is(err, nats.ErrKeyNotFound) {
			return fmt.Errorf("%w: %s", ErrScheduleNotFound, identity)
		}
		return fmt.Errorf("failed to read schedule %s: %w", identity, err)
	}

	var record model.ScheduleRecord
	if err := json.Unmarshal(entry.Value(), &record); err != nil {
		return fmt.Errorf("failed to unmarshal schedule %s: %w", identity, err)
	}

	if record.Paused == paused {
		return nil
	}

	record.Paused = paused
	record.UpdatedAt = time.Now()

	data, err := json.Marshal(&record)
	if err != nil {
		return fmt.Errorf("failed to marshal schedule: %w", err)
	}

	// Revision-guarded update so a concurrent writer surfaces as an error
	// instead of a lost write.
	if _, err := p.kv.Update(identity, data, entry.Revision()); err != nil {
		return fmt.Errorf("failed to update schedule %s: %w", identity, err)
	}

	p.publishEvent(ctx, subject, &record)

	p.logger.Info("Updated schedule",
		zap.String("identity", identity),
		zap.Bool("paused", paused))
	return nil
}

// publishEvent publishes a lifecycle event. Event delivery is best-effort:
// the registry write has already happened, so a publish failure is logged
// rather than surfaced as an action failure.
func (p *NATSPort) publishEvent(ctx context.Context, subject string, record *model.ScheduleRecord) {
	data, err := json.Marshal(record)
	if err != nil {
		p.logger.Error("Failed to marshal schedule event", zap.Error(err))
		return
	}

	if _, err := p.js.Publish(subject, data, nats.Context(ctx)); err != nil {
		p.logger.Error("Failed to publish schedule event",
			zap.String("subject", subject),
			zap.String("identity", record.Identity),
			zap.Error(err))
	}
}
