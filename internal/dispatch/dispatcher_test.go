// ABOUTME: Tests for the debounced command dispatcher
// ABOUTME: Debounce timing, min-interval gating, dedup and failure handling
package dispatch

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeTransport struct {
	sends   []sentCommand
	failErr error
}

type sentCommand struct {
	target  string
	payload []byte
}

func (f *fakeTransport) Send(target string, payload []byte) error {
	if f.failErr != nil {
		return f.failErr
	}
	cp := make([]byte, len(payload))
	copy(cp, payload)
	f.sends = append(f.sends, sentCommand{target: target, payload: cp})
	return nil
}

var t0 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func at(ms int) time.Time { return t0.Add(time.Duration(ms) * time.Millisecond) }

func TestNoSendBeforeDebounce(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	d.Submit("light", []byte{1, 2, 3}, at(0))

	d.Tick(at(10))
	d.Tick(at(50))
	d.Tick(at(99))

	assert.Empty(t, ft.sends, "no send may happen inside the debounce window")
}

func TestFirstSendAfterDebounceAndInterval(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	d.Submit("light", []byte{1, 2, 3}, at(0))

	// Debounce is satisfied at 100ms but the interval clock, which starts
	// when the target first appears, is not.
	d.Tick(at(100))
	assert.Empty(t, ft.sends)

	d.Tick(at(300))
	require.Len(t, ft.sends, 1)
	assert.Equal(t, []byte{1, 2, 3}, ft.sends[0].payload)
	assert.Equal(t, "light", ft.sends[0].target)

	// Flushed: further ticks send nothing.
	d.Tick(at(400))
	assert.Len(t, ft.sends, 1)
}

func TestCoalescedChangesSendLatestOnce(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	d.Submit("light", []byte{0xAA}, at(0))
	d.Submit("light", []byte{0xBB}, at(10))

	d.Tick(at(150))
	assert.Empty(t, ft.sends, "min interval from target start still applies")

	d.Tick(at(450))
	require.Len(t, ft.sends, 1)
	assert.Equal(t, []byte{0xBB}, ft.sends[0].payload, "latest payload wins")
}

func TestDuplicatePayloadIsDropped(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	d.Submit("light", []byte{7}, at(0))
	d.Tick(at(300))
	require.Len(t, ft.sends, 1)

	// Same payload again, well past both windows: dedup drops it.
	d.Submit("light", []byte{7}, at(700))
	d.Tick(at(1100))
	assert.Len(t, ft.sends, 1, "unchanged payload must not be re-sent")

	// A real change goes through.
	d.Submit("light", []byte{8}, at(1200))
	d.Tick(at(1600))
	require.Len(t, ft.sends, 2)
	assert.Equal(t, []byte{8}, ft.sends[1].payload)
}

func TestIdenticalResubmitKeepsDebounceClock(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	// A steady stream of identical decisions, as a master emits at 10Hz.
	d.Submit("light", []byte{5}, at(0))
	d.Submit("light", []byte{5}, at(100))
	d.Submit("light", []byte{5}, at(200))
	d.Submit("light", []byte{5}, at(300))

	d.Tick(at(310))
	require.Len(t, ft.sends, 1, "identical resubmits must not starve the debounce")
}

func TestMinIntervalBetweenSends(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	d.Submit("light", []byte{1}, at(0))
	d.Tick(at(300))
	require.Len(t, ft.sends, 1)

	d.Submit("light", []byte{2}, at(310))
	d.Tick(at(450))
	assert.Len(t, ft.sends, 1, "second send inside 300ms must wait")

	d.Tick(at(601))
	require.Len(t, ft.sends, 2)
}

func TestTargetsAreIndependent(t *testing.T) {
	ft := &fakeTransport{}
	d := New(ft)

	d.Submit("a", []byte{1}, at(0))
	d.Submit("b", []byte{2}, at(0))
	d.Tick(at(300))

	require.Len(t, ft.sends, 2)
}

func TestNilTransportDropsWithoutPanic(t *testing.T) {
	d := New(nil)

	d.Submit("light", []byte{1}, at(0))
	assert.NotPanics(t, func() { d.Tick(at(300)) })
}

func TestTransportErrorIsFireAndForget(t *testing.T) {
	ft := &fakeTransport{failErr: errors.New("radio down")}
	d := New(ft)

	d.Submit("light", []byte{9}, at(0))
	d.Tick(at(300))

	// The failed payload counts as sent; no retry on later ticks.
	d.Tick(at(700))
	assert.Empty(t, ft.sends)

	d.Submit("light", []byte{9}, at(800))
	d.Tick(at(1200))
	assert.Empty(t, ft.sends, "identical payload after failure is deduped, not retried")
}
