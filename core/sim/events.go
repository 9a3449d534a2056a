package sim

import (
	"time"

	"github.com/kilianp07/evdash/core/model"
)

// Event is anything the engine reports to subscribers.
type Event interface {
	EventName() string
}

// Publisher receives engine events. Publish must not block.
type Publisher interface {
	Publish(Event)
}

type nopPublisher struct{}

func (nopPublisher) Publish(Event) {}

// Notice reports a rejected command.
type Notice struct {
	Command string
	Err     error
	Time    time.Time
}

func (Notice) EventName() string { return "notice" }

// Message is the user-facing text of the notice.
func (n Notice) Message() string {
	if n.Err == nil {
		return ""
	}
	return n.Err.Error()
}

// ChargeSessionClosed is published when a charging session ends.
type ChargeSessionClosed struct {
	Log     model.ChargeLog
	Clamped bool
}

func (ChargeSessionClosed) EventName() string { return "charge_session_closed" }

// SOHSampled is published when a battery health sample is recorded.
type SOHSampled struct {
	Sample model.SOHSample
}

func (SOHSampled) EventName() string { return "soh_sampled" }

// AdvisoryCall reports the outcome of one advisory endpoint call.
type AdvisoryCall struct {
	Endpoint string
	Duration time.Duration
	Err      error
	Time     time.Time
}

func (AdvisoryCall) EventName() string { return "advisory_call" }

// AdvisoryApplied is published when advisory results are merged.
type AdvisoryApplied struct {
	Task   string
	Fields []string
}

func (AdvisoryApplied) EventName() string { return "advisory_applied" }

// AdvisoryDiscarded is published when a late advisory result is dropped.
type AdvisoryDiscarded struct {
	Task   string
	Reason string
}

func (AdvisoryDiscarded) EventName() string { return "advisory_discarded" }
