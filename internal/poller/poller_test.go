// internal/poller/poller_test.go
package poller

import (
	"bytes"
	"context"
	"errors"
	"io"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/go-cmp/cmp"

	"github.com/tamzrod/modbus-io/internal/session"
	"github.com/tamzrod/modbus-io/internal/status"
)

// ---- fakes ----

type fakeDevice struct {
	mu       sync.Mutex
	regs     map[uint16]uint16
	failAddr map[uint16]bool
	reads    int
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{regs: map[uint16]uint16{}, failAddr: map[uint16]bool{}}
}

func (f *fakeDevice) Exchange(fn func(tx session.Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fn(f)
}

func (f *fakeDevice) ReadRegisters(addr, count uint16) ([]uint16, error) {
	f.reads++
	if f.failAddr[addr] {
		return nil, &session.IoError{Op: "read", Address: addr, Code: 4, Err: errors.New("fail read")}
	}
	out := make([]uint16, count)
	for i := range out {
		out[i] = f.regs[addr+uint16(i)]
	}
	return out, nil
}

func (f *fakeDevice) WriteRegister(addr, value uint16) error {
	f.regs[addr] = value
	return nil
}

type fakeSink struct {
	snaps []Snapshot
	err   error
}

func (f *fakeSink) Publish(s Snapshot) error {
	f.snaps = append(f.snaps, s)
	return f.err
}

// scriptedClock returns the given offsets from a fixed base, then keeps the last one.
func scriptedClock(offsets ...time.Duration) func() time.Time {
	base := time.Unix(1000, 0)
	i := 0
	return func() time.Time {
		d := offsets[len(offsets)-1]
		if i < len(offsets) {
			d = offsets[i]
		}
		i++
		return base.Add(d)
	}
}

func testConfig() Config {
	return Config{
		Interval: 100 * time.Millisecond,
		Inputs:   Bank{Address: 0, Count: 8},
		Outputs:  Bank{Address: 100, Count: 8},
	}
}

func newTestPoller(t *testing.T, cfg Config, dev Device, sink Sink) (*Poller, *status.Diagnostics) {
	t.Helper()
	diag := status.New(10)
	p, err := New(cfg, dev, sink, diag, log.New(io.Discard))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}
	return p, diag
}

// ---- tests ----

func TestNew_Validation(t *testing.T) {
	diag := status.New(10)
	logger := log.New(io.Discard)

	if _, err := New(Config{}, newFakeDevice(), &fakeSink{}, diag, logger); err == nil {
		t.Fatalf("expected interval error")
	}
	if _, err := New(testConfig(), nil, &fakeSink{}, diag, logger); err == nil {
		t.Fatalf("expected device error")
	}
	if _, err := New(testConfig(), newFakeDevice(), nil, diag, logger); err == nil {
		t.Fatalf("expected sink error")
	}
}

func TestPollOnce_Success(t *testing.T) {
	dev := newFakeDevice()
	dev.regs[0] = 0b10000011
	dev.regs[100] = 0b00000101
	sink := &fakeSink{}

	p, diag := newTestPoller(t, testConfig(), dev, sink)

	var cs CycleState
	snap, err := p.PollOnce(&cs)
	if err != nil {
		t.Fatalf("PollOnce err=%v", err)
	}

	wantIn := []bool{true, true, false, false, false, false, false, true}
	wantOut := []bool{true, false, true, false, false, false, false, false}
	if diff := cmp.Diff(wantIn, snap.DigitalInputs); diff != "" {
		t.Fatalf("inputs mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(wantOut, snap.DigitalOutputs); diff != "" {
		t.Fatalf("outputs mismatch (-want +got):\n%s", diff)
	}
	if len(sink.snaps) != 1 {
		t.Fatalf("expected 1 published snapshot, got %d", len(sink.snaps))
	}

	if v, ok := p.Cache().Load(Outputs); !ok || v != 0b00000101 {
		t.Fatalf("outputs cache: v=%#04x ok=%v", v, ok)
	}
	if v, ok := p.Cache().Load(Inputs); !ok || v != 0b10000011 {
		t.Fatalf("inputs cache: v=%#04x ok=%v", v, ok)
	}
	if s := diag.Snapshot(); s.ErrorCount != 0 || s.SlowCount != 0 {
		t.Fatalf("unexpected counters %+v", s)
	}
}

func TestPollOnce_BigEndian(t *testing.T) {
	dev := newFakeDevice()
	dev.regs[0] = 0x0100 // bit 0 after swap
	dev.regs[100] = 0x0300

	cfg := testConfig()
	cfg.BigEndian = true
	p, _ := newTestPoller(t, cfg, dev, &fakeSink{})

	var cs CycleState
	snap, err := p.PollOnce(&cs)
	if err != nil {
		t.Fatalf("PollOnce err=%v", err)
	}
	if !snap.DigitalInputs[0] || snap.DigitalInputs[1] {
		t.Fatalf("inputs not normalized: %v", snap.DigitalInputs)
	}
	if !snap.DigitalOutputs[0] || !snap.DigitalOutputs[1] {
		t.Fatalf("outputs not normalized: %v", snap.DigitalOutputs)
	}
	if v, _ := p.Cache().Load(Outputs); v != 0x0003 {
		t.Fatalf("cache should hold normalized value, got %#04x", v)
	}
}

func TestPollOnce_Failure(t *testing.T) {
	dev := newFakeDevice()
	dev.failAddr[100] = true
	sink := &fakeSink{}

	p, diag := newTestPoller(t, testConfig(), dev, sink)

	var cs CycleState
	if _, err := p.PollOnce(&cs); err == nil {
		t.Fatalf("expected error, got nil")
	}
	if len(sink.snaps) != 0 {
		t.Fatalf("no snapshot may be published on failure")
	}
	if _, ok := p.Cache().Load(Inputs); ok {
		t.Fatalf("inputs cache must not commit a partial read")
	}
	s := diag.Snapshot()
	if s.ErrorCount != 1 {
		t.Fatalf("error count: got=%d want=1", s.ErrorCount)
	}
	if s.LastErrorCode != 4 {
		t.Fatalf("last error code: got=%d want=4", s.LastErrorCode)
	}
}

func TestPollOnce_PublishErrorIsNotFatal(t *testing.T) {
	p, diag := newTestPoller(t, testConfig(), newFakeDevice(), &fakeSink{err: errors.New("broker down")})

	var cs CycleState
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("publish error must not fail the cycle: %v", err)
	}
	if s := diag.Snapshot(); s.ErrorCount != 0 {
		t.Fatalf("publish error counted as device error")
	}
}

func TestPollOnce_SlowPhases(t *testing.T) {
	ms := time.Millisecond
	cfg := testConfig()
	// cycle 1: start=0 gathered=150 published=300 -> gather slow, publish slow
	// cycle 2: start=400 gathered=410 published=420 -> full cycle slow (prev total 300)
	// cycle 3: start=500 gathered=510 published=520 -> nothing (prev total 20)
	cfg.Now = scriptedClock(0, 150*ms, 300*ms, 400*ms, 410*ms, 420*ms, 500*ms, 510*ms, 520*ms)

	p, diag := newTestPoller(t, cfg, newFakeDevice(), &fakeSink{})

	var cs CycleState
	want := []uint64{2, 3, 3}
	reasons := []string{status.SlowPublish, status.SlowFullCycle, status.SlowFullCycle}

	for i := range want {
		if _, err := p.PollOnce(&cs); err != nil {
			t.Fatalf("cycle %d err=%v", i+1, err)
		}
		s := diag.Snapshot()
		if s.SlowCount != want[i] {
			t.Fatalf("cycle %d slow count: got=%d want=%d", i+1, s.SlowCount, want[i])
		}
		if s.LastSlowReason != reasons[i] {
			t.Fatalf("cycle %d reason: got=%q want=%q", i+1, s.LastSlowReason, reasons[i])
		}
	}
}

func TestPollOnce_GatherSlowOnly(t *testing.T) {
	ms := time.Millisecond
	cfg := testConfig()
	cfg.Now = scriptedClock(0, 250*ms, 260*ms)

	p, diag := newTestPoller(t, cfg, newFakeDevice(), &fakeSink{})

	var cs CycleState
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("PollOnce err=%v", err)
	}
	s := diag.Snapshot()
	if s.SlowCount != 1 || s.LastSlowReason != status.SlowGathering {
		t.Fatalf("expected exactly one gathering slow, got %+v", s)
	}
}

func TestRun_StopsOnCancel(t *testing.T) {
	sink := &countingSink{}
	cfg := testConfig()
	cfg.Interval = 5 * time.Millisecond
	p, _ := newTestPoller(t, cfg, newFakeDevice(), sink)

	ctx, cancel := context.WithCancel(context.Background())
	sink.onPublish = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	if err := p.Run(ctx); err != nil {
		t.Fatalf("Run err=%v", err)
	}
	if sink.n < 3 {
		t.Fatalf("expected at least 3 cycles, got %d", sink.n)
	}
}

func TestRun_ReturnsOnFailure(t *testing.T) {
	dev := newFakeDevice()
	dev.failAddr[0] = true
	cfg := testConfig()
	cfg.Interval = 5 * time.Millisecond
	p, _ := newTestPoller(t, cfg, dev, &fakeSink{})

	if err := p.Run(context.Background()); err == nil {
		t.Fatalf("expected Run to return the cycle error")
	}
}

type countingSink struct {
	n         int
	onPublish func(n int)
}

func (c *countingSink) Publish(Snapshot) error {
	c.n++
	if c.onPublish != nil {
		c.onPublish(c.n)
	}
	return nil
}

func TestPollOnce_FailureInvalidatesCache(t *testing.T) {
	dev := newFakeDevice()
	dev.regs[100] = 0x0001
	p, _ := newTestPoller(t, testConfig(), dev, &fakeSink{})

	var cs CycleState
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("first cycle err=%v", err)
	}
	if _, ok := p.Cache().Load(Outputs); !ok {
		t.Fatalf("outputs cache should be valid after a good read")
	}

	// The inputs read fails before outputs are touched; both must be forgotten.
	dev.failAddr[0] = true
	if _, err := p.PollOnce(&cs); err == nil {
		t.Fatalf("expected error")
	}
	for _, d := range []Direction{Inputs, Outputs} {
		if _, ok := p.Cache().Load(d); ok {
			t.Fatalf("%s cache still valid after a failed read", d)
		}
	}

	delete(dev.failAddr, 0)
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("recovery cycle err=%v", err)
	}
	if v, ok := p.Cache().Load(Outputs); !ok || v != 0x0001 {
		t.Fatalf("outputs cache after recovery: v=%#04x ok=%v", v, ok)
	}
}

func TestPollOnce_PublishFailureLoggedOncePerOutage(t *testing.T) {
	var buf bytes.Buffer
	sink := &fakeSink{err: errors.New("connection down")}

	p, err := New(testConfig(), newFakeDevice(), sink, status.New(10), log.New(&buf))
	if err != nil {
		t.Fatalf("New() err=%v", err)
	}

	var cs CycleState
	for i := 0; i < 5; i++ {
		if _, err := p.PollOnce(&cs); err != nil {
			t.Fatalf("cycle %d err=%v", i+1, err)
		}
	}
	if n := strings.Count(buf.String(), "publish failed"); n != 1 {
		t.Fatalf("publish failure logged %d times during one outage, want 1:\n%s", n, buf.String())
	}

	sink.err = nil
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("recovery cycle err=%v", err)
	}
	if !strings.Contains(buf.String(), "publish recovered") {
		t.Fatalf("recovery not logged:\n%s", buf.String())
	}

	sink.err = errors.New("connection down")
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("second outage cycle err=%v", err)
	}
	if n := strings.Count(buf.String(), "publish failed"); n != 2 {
		t.Fatalf("second outage should log again, got %d lines", n)
	}
}

func TestPollOnce_AllThreeSlowInOneCycle(t *testing.T) {
	ms := time.Millisecond
	cfg := testConfig()
	// cycle 1: start=0 gathered=150 published=300 -> gather slow, publish slow
	// cycle 2: start=400 gathered=550 published=700 -> full cycle, gather, publish slow
	cfg.Now = scriptedClock(0, 150*ms, 300*ms, 400*ms, 550*ms, 700*ms)

	p, diag := newTestPoller(t, cfg, newFakeDevice(), &fakeSink{})

	var cs CycleState
	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("cycle 1 err=%v", err)
	}
	before := diag.Snapshot().SlowCount
	if before != 2 {
		t.Fatalf("cycle 1 slow count: got=%d want=2", before)
	}

	if _, err := p.PollOnce(&cs); err != nil {
		t.Fatalf("cycle 2 err=%v", err)
	}
	s := diag.Snapshot()
	if s.SlowCount-before != 3 {
		t.Fatalf("cycle 2 slow increments: got=%d want=3", s.SlowCount-before)
	}
	if s.LastSlowReason != status.SlowPublish {
		t.Fatalf("last reason: got=%q want=%q", s.LastSlowReason, status.SlowPublish)
	}
}
