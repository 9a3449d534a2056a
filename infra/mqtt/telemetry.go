package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/monitoring"
	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/infra/logger"
)

// SnapshotSource provides the current simulation state.
type SnapshotSource interface {
	Snapshot() model.Snapshot
}

// StatePublisher publishes the retained vehicle state at a fixed period.
type StatePublisher struct {
	client   *Client
	source   SnapshotSource
	interval time.Duration
	log      logger.Logger
}

func NewStatePublisher(c *Client, src SnapshotSource, interval time.Duration) *StatePublisher {
	if interval <= 0 {
		interval = time.Second
	}
	return &StatePublisher{client: c, source: src, interval: interval, log: logger.New("mqtt_state")}
}

// PublishOnce sends the current snapshot.
func (p *StatePublisher) PublishOnce() error {
	payload, err := json.Marshal(p.source.Snapshot())
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	return p.client.Publish(TopicState, true, payload)
}

// Run publishes until ctx is cancelled.
func (p *StatePublisher) Run(ctx context.Context) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			if err := p.PublishOnce(); err != nil {
				p.log.Warnf("state publish failed: %v", err)
			}
		}
	}
}

// NoticeMessage is the wire form of a rejected command.
type NoticeMessage struct {
	Command string    `json:"command"`
	Message string    `json:"message"`
	Time    time.Time `json:"time"`
}

// ForwardNotices publishes every sim.Notice received on events until the
// channel closes or ctx is cancelled.
func ForwardNotices(ctx context.Context, c *Client, events <-chan sim.Event) {
	defer monitoring.Recover()
	log := logger.New("mqtt_notice")
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-events:
			if !ok {
				return
			}
			n, isNotice := ev.(sim.Notice)
			if !isNotice {
				continue
			}
			payload, err := json.Marshal(NoticeMessage{Command: n.Command, Message: n.Message(), Time: n.Time})
			if err != nil {
				log.Errorf("encode notice: %v", err)
				continue
			}
			if err := c.Publish(TopicNotice, false, payload); err != nil {
				log.Warnf("notice publish failed: %v", err)
			}
		}
	}
}
