package mqtt

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/evdash/core/model"
	"github.com/kilianp07/evdash/core/sim"
	"github.com/kilianp07/evdash/internal/eventbus"
)

func newEngine(opts ...sim.Option) *sim.Engine {
	p := sim.DefaultParams()
	return sim.NewEngine(sim.NewSnapshot(p, sim.DefaultInitialState()), p, opts...)
}

func lastResult(t *testing.T, mc *mockClient) CommandResult {
	t.Helper()
	msgs := mc.on("car1/command/result")
	require.NotEmpty(t, msgs)
	var res CommandResult
	require.NoError(t, json.Unmarshal(msgs[len(msgs)-1].payload, &res))
	return res
}

func TestCommandListenerExecutes(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	cli, err := NewClient(testConfig())
	require.NoError(t, err)
	eng := newEngine()
	require.NoError(t, NewCommandListener(cli, eng).Start())

	mc.deliver("car1/command", []byte(`{"id":"c1","command":"set_drive_mode","arg":"Sports"}`))
	res := lastResult(t, mc)
	assert.Equal(t, CommandResult{ID: "c1", Command: sim.CmdSetDriveMode, OK: true}, res)
	assert.Equal(t, model.ModeSports, eng.Snapshot().DriveMode)

	mc.deliver("car1/command", []byte(`{"command":"set_passengers","value":3}`))
	res = lastResult(t, mc)
	assert.True(t, res.OK)
	assert.NotEmpty(t, res.ID)
	assert.Equal(t, 3, eng.Snapshot().Passengers)
}

func TestCommandListenerRejects(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	cli, err := NewClient(testConfig())
	require.NoError(t, err)
	eng := newEngine()
	require.NoError(t, NewCommandListener(cli, eng).Start())

	mc.deliver("car1/command", []byte(`{"id":"c2","command":"switch_profile","arg":"Nobody"}`))
	res := lastResult(t, mc)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "Nobody")

	mc.deliver("car1/command", []byte(`not json`))
	res = lastResult(t, mc)
	assert.False(t, res.OK)
	assert.Contains(t, res.Error, "malformed")
}

func TestStatePublisher(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	cli, err := NewClient(testConfig())
	require.NoError(t, err)
	eng := newEngine()

	require.NoError(t, NewStatePublisher(cli, eng, time.Second).PublishOnce())
	msgs := mc.on("car1/state")
	require.Len(t, msgs, 1)
	assert.True(t, msgs[0].retained)

	var snap model.Snapshot
	require.NoError(t, json.Unmarshal(msgs[0].payload, &snap))
	assert.Equal(t, eng.Snapshot().BatterySOC, snap.BatterySOC)
	assert.Equal(t, sim.DefaultProfileName, snap.ActiveProfile)
}

func TestStatePublisherRun(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	cli, err := NewClient(testConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- NewStatePublisher(cli, newEngine(), 5*time.Millisecond).Run(ctx) }()
	require.Eventually(t, func() bool { return len(mc.on("car1/state")) >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	assert.NoError(t, <-done)
}

func TestForwardNotices(t *testing.T) {
	mc := &mockClient{}
	defer installMock(mc)()
	cli, err := NewClient(testConfig())
	require.NoError(t, err)

	bus := eventbus.NewTyped[sim.Event]()
	events := bus.Subscribe()
	eng := newEngine(sim.WithPublisher(bus))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan struct{})
	go func() {
		ForwardNotices(ctx, cli, events)
		close(done)
	}()

	require.Error(t, eng.DeleteProfile(sim.DefaultProfileName))
	require.Eventually(t, func() bool { return len(mc.on("car1/notice")) == 1 }, time.Second, 5*time.Millisecond)

	var n NoticeMessage
	require.NoError(t, json.Unmarshal(mc.on("car1/notice")[0].payload, &n))
	assert.Equal(t, sim.CmdDeleteProfile, n.Command)
	assert.NotEmpty(t, n.Message)

	bus.Close()
	<-done
}
