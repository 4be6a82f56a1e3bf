// Package bridge runs the poll-and-publish loop between the inverter and
// the MQTT broker.
package bridge

import (
	"context"
	"encoding/json"
	"time"

	"github.com/CataIana/solismqtt/hass"
	"github.com/CataIana/solismqtt/inverter"
	"github.com/CataIana/solismqtt/logger"
)

// discoveryRetryDelay is the pause before re-publishing a discovery batch
// that did not fully land
const discoveryRetryDelay = 60 * time.Second

// Reader polls the inverter for one status reading
type Reader interface {
	Poll() (inverter.Reading, error)
}

// Publisher sends one message and confirms delivery
type Publisher interface {
	Publish(topic string, payload []byte, retain bool) error
}

// Loop drives the bridge: wait out the inverter at startup, announce the
// sensors once, then publish state at a fixed cadence forever. A failed
// cycle is logged and skipped, never fatal.
type Loop struct {
	reader    Reader
	publisher Publisher
	prefix    string
	interval  time.Duration

	// captured once from the first successful reading
	meta       inverter.DeviceMetadata
	stateTopic string
	present    map[string]bool

	// sleep is replaced in tests to observe delays without waiting.
	// Returns false when ctx was cancelled during the wait.
	sleep func(ctx context.Context, d time.Duration) bool
}

// New creates a loop publishing state under the given topic prefix at the
// given interval
func New(reader Reader, publisher Publisher, prefix string, interval time.Duration) *Loop {
	return &Loop{
		reader:    reader,
		publisher: publisher,
		prefix:    prefix,
		interval:  interval,
		sleep:     sleepCtx,
	}
}

// Run blocks until ctx is cancelled. It moves through three phases:
// starting (retry the first poll with capped exponential backoff),
// discovering (publish retained discovery messages until the whole batch
// lands) and steady state (poll and publish every interval).
func (l *Loop) Run(ctx context.Context) error {
	first, err := l.starting(ctx)
	if err != nil {
		return err
	}

	if err := l.discovering(ctx, first); err != nil {
		return err
	}

	for {
		l.cycle().log()
		if !l.sleep(ctx, l.interval) {
			return ctx.Err()
		}
	}
}

// starting polls until the inverter answers, backing off exponentially up
// to the ceiling and then waiting at the ceiling for as long as it takes
func (l *Loop) starting(ctx context.Context) (inverter.Reading, error) {
	for attempt := 0; ; attempt++ {
		reading, err := l.reader.Poll()
		if err == nil {
			return reading, nil
		}

		delay := backoffDelay(attempt)
		logger.Warn("inverter not available (%v), retrying in %v", err, delay)
		if !l.sleep(ctx, delay) {
			return inverter.Reading{}, ctx.Err()
		}
	}
}

// discovering captures the device identity from the first reading and
// publishes the retained discovery batch. Sensors absent from the first
// reading are never announced for the rest of the run. The hub ignores
// state on un-announced sensors, so the whole batch must land before
// steady state begins.
func (l *Loop) discovering(ctx context.Context, first inverter.Reading) error {
	l.meta = first.Metadata()
	l.stateTopic = hass.StateTopic(l.prefix, l.meta.SerialNumber)

	l.present = make(map[string]bool)
	for _, spec := range hass.Sensors {
		if _, ok := first.Value(spec.Key); ok {
			l.present[spec.Key] = true
		}
	}

	descriptors := hass.BuildDescriptors(l.meta, l.present, l.prefix)
	logger.Info("announcing %d sensors for inverter %s", len(descriptors), l.meta.SerialNumber)

	for {
		err := l.publishBatch(descriptors)
		if err == nil {
			return nil
		}

		logger.Error("discovery publish failed (%v), retrying batch in %v", err, discoveryRetryDelay)
		if !l.sleep(ctx, discoveryRetryDelay) {
			return ctx.Err()
		}
	}
}

func (l *Loop) publishBatch(descriptors []hass.Descriptor) error {
	for _, d := range descriptors {
		if err := l.publisher.Publish(d.Topic, d.Payload, true); err != nil {
			return err
		}
	}
	return nil
}

// cycleResult is the outcome of one steady-state cycle
type cycleResult struct {
	topic   string
	payload []byte
	err     error
}

func (r cycleResult) log() {
	if r.err != nil {
		logger.Warn("cycle skipped: %v", r.err)
		return
	}
	logger.Info("published state to %s: %s", r.topic, r.payload)
}

// cycle performs one poll-and-publish round. Every failure is folded into
// the result; nothing escapes to crash the loop.
func (l *Loop) cycle() cycleResult {
	state, err := l.reader.Poll()
	if err != nil {
		return cycleResult{err: err}
	}

	telemetry := make(map[string]interface{})
	for _, spec := range hass.Sensors {
		if value, ok := state.Value(spec.Key); ok {
			telemetry[spec.Key] = value
		}
	}

	payload, err := json.Marshal(telemetry)
	if err != nil {
		return cycleResult{err: err}
	}

	if err := l.publisher.Publish(l.stateTopic, payload, false); err != nil {
		return cycleResult{err: err}
	}
	return cycleResult{topic: l.stateTopic, payload: payload}
}

// sleepCtx waits for d, returning false if ctx is cancelled first
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
