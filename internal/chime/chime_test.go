package chime

import (
	"bytes"
	"context"
	"encoding/binary"
	"errors"
	"math"
	"os"
	"sync"
	"testing"
)

func TestSynthesizeEnvelope(t *testing.T) {
	samples := Synthesize(8000)
	if len(samples) != 8000 {
		t.Fatalf("expected 1s of samples, got %d", len(samples))
	}
	if math.Abs(float64(samples[0])) > 10 {
		t.Fatalf("cue should start near silence, got %d", samples[0])
	}

	peak := func(from, to int) float64 {
		m := 0.0
		for _, s := range samples[from:to] {
			m = math.Max(m, math.Abs(float64(s)))
		}
		return m
	}
	loud := peak(240, 800)   // just after the 30ms attack
	tail := peak(7200, 8000) // last 100ms
	if loud < 5000 {
		t.Fatalf("peak after attack too quiet: %v", loud)
	}
	if tail > loud/10 {
		t.Fatalf("tail should decay: tail=%v loud=%v", tail, loud)
	}
}

func TestEnvelopeEndpoints(t *testing.T) {
	a, total := attack.Seconds(), length.Seconds()
	if g := envelope(0, a, total); math.Abs(g-floorGain) > 1e-9 {
		t.Fatalf("start gain = %v", g)
	}
	if g := envelope(a, a, total); math.Abs(g-peakGain) > 1e-9 {
		t.Fatalf("peak gain = %v", g)
	}
	if g := envelope(total, a, total); math.Abs(g-floorGain) > 1e-9 {
		t.Fatalf("end gain = %v", g)
	}
}

func TestEncodeWAV(t *testing.T) {
	var buf bytes.Buffer
	samples := []int16{0, 1000, -1000, 32767}
	if err := EncodeWAV(&buf, samples, 44100); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if len(data) != 44+8 {
		t.Fatalf("unexpected length %d", len(data))
	}
	if string(data[0:4]) != "RIFF" || string(data[8:12]) != "WAVE" || string(data[36:40]) != "data" {
		t.Fatal("bad chunk ids")
	}
	if rate := binary.LittleEndian.Uint32(data[24:28]); rate != 44100 {
		t.Fatalf("sample rate = %d", rate)
	}
	if size := binary.LittleEndian.Uint32(data[40:44]); size != 8 {
		t.Fatalf("data size = %d", size)
	}
}

type fakeRunner struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (f *fakeRunner) run(_ context.Context, name string, args ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, append([]string{name}, args...))
	return f.err
}

func TestPlayerUsesFirstAvailable(t *testing.T) {
	dir := t.TempDir()
	r := &fakeRunner{}
	look := func(name string) (string, error) {
		if name == "aplay" {
			return "/usr/bin/aplay", nil
		}
		return "", errors.New("not found")
	}
	var bell bytes.Buffer
	p := New(nil, WithRunner(look, r.run), WithDir(dir), WithBell(&bell))
	p.PlaySync()

	if len(r.calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(r.calls))
	}
	call := r.calls[0]
	if call[0] != "/usr/bin/aplay" || call[1] != "-q" {
		t.Fatalf("unexpected argv %v", call)
	}
	if _, err := os.Stat(call[2]); err != nil {
		t.Fatalf("rendered cue missing: %v", err)
	}
	if bell.Len() != 0 {
		t.Fatal("bell should not ring when a player works")
	}
}

func TestPlayerFallsBackToBell(t *testing.T) {
	var bell bytes.Buffer
	look := func(string) (string, error) { return "", errors.New("not found") }
	p := New(nil, WithRunner(look, (&fakeRunner{}).run), WithDir(t.TempDir()), WithBell(&bell))
	p.PlaySync()
	if bell.String() != "\a" {
		t.Fatalf("bell = %q", bell.String())
	}
}

func TestPlayerFailureRingsBell(t *testing.T) {
	var bell bytes.Buffer
	r := &fakeRunner{err: errors.New("no sink")}
	look := func(name string) (string, error) { return "/bin/" + name, nil }
	p := New(nil, WithRunner(look, r.run), WithDir(t.TempDir()), WithBell(&bell))
	p.PlaySync()
	if bell.String() != "\a" {
		t.Fatalf("bell = %q", bell.String())
	}
}
