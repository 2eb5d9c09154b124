// Package chime plays the two-tone cue heard when a cycle starts or ends.
package chime

import (
	"bytes"
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"
)

const (
	SampleRate = 44100

	toneLow    = 528.0
	toneHigh   = 660.0
	highDetune = -6.0 // cents
	peakGain   = 0.45
	floorGain  = 0.0001
	attack     = 30 * time.Millisecond
	length     = time.Second

	playTimeout = 3 * time.Second
)

// players are tried in order; the first found on PATH is used.
var players = [][]string{
	{"paplay"},
	{"pw-play"},
	{"aplay", "-q"},
	{"afplay"},
}

// Synthesize renders the cue as mono 16-bit samples: two sines with an
// exponential attack to the peak and an exponential decay over one second.
func Synthesize(rate int) []int16 {
	n := int(float64(rate) * length.Seconds())
	out := make([]int16, n)
	high := toneHigh * math.Pow(2, highDetune/1200)
	attackEnd := attack.Seconds()
	total := length.Seconds()

	for i := range out {
		t := float64(i) / float64(rate)
		g := envelope(t, attackEnd, total)
		v := g * (math.Sin(2*math.Pi*toneLow*t) + math.Sin(2*math.Pi*high*t))
		out[i] = int16(math.Max(-1, math.Min(1, v)) * math.MaxInt16)
	}
	return out
}

func envelope(t, attackEnd, total float64) float64 {
	if t < attackEnd {
		return floorGain * math.Pow(peakGain/floorGain, t/attackEnd)
	}
	return peakGain * math.Pow(floorGain/peakGain, (t-attackEnd)/(total-attackEnd))
}

// EncodeWAV writes samples as a PCM WAV stream.
func EncodeWAV(w io.Writer, samples []int16, rate int) error {
	dataLen := uint32(len(samples) * 2)
	header := struct {
		RIFF          [4]byte
		ChunkSize     uint32
		WAVE          [4]byte
		Fmt           [4]byte
		FmtSize       uint32
		Format        uint16
		Channels      uint16
		SampleRate    uint32
		ByteRate      uint32
		BlockAlign    uint16
		BitsPerSample uint16
		Data          [4]byte
		DataSize      uint32
	}{
		RIFF: [4]byte{'R', 'I', 'F', 'F'}, ChunkSize: 36 + dataLen,
		WAVE: [4]byte{'W', 'A', 'V', 'E'}, Fmt: [4]byte{'f', 'm', 't', ' '},
		FmtSize: 16, Format: 1, Channels: 1,
		SampleRate: uint32(rate), ByteRate: uint32(rate * 2), BlockAlign: 2, BitsPerSample: 16,
		Data: [4]byte{'d', 'a', 't', 'a'}, DataSize: dataLen,
	}
	if err := binary.Write(w, binary.LittleEndian, header); err != nil {
		return fmt.Errorf("write wav header: %w", err)
	}
	if err := binary.Write(w, binary.LittleEndian, samples); err != nil {
		return fmt.Errorf("write wav data: %w", err)
	}
	return nil
}

// Player plays the cue through a system audio player, falling back to the
// terminal bell. Play never blocks and never reports errors; overlapping
// calls are dropped.
type Player struct {
	log      *slog.Logger
	bell     io.Writer
	lookPath func(string) (string, error)
	run      func(ctx context.Context, name string, args ...string) error
	dir      string

	busy atomic.Bool
	once sync.Once
	argv []string
	wav  string
}

type Option func(*Player)

// WithBell sets where the fallback bell is written.
func WithBell(w io.Writer) Option {
	return func(p *Player) { p.bell = w }
}

// WithRunner replaces process lookup and execution.
func WithRunner(lookPath func(string) (string, error), run func(ctx context.Context, name string, args ...string) error) Option {
	return func(p *Player) {
		p.lookPath = lookPath
		p.run = run
	}
}

// WithDir sets where the rendered cue is cached.
func WithDir(dir string) Option {
	return func(p *Player) { p.dir = dir }
}

func New(logger *slog.Logger, opts ...Option) *Player {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	p := &Player{
		log:      logger,
		bell:     os.Stderr,
		lookPath: exec.LookPath,
		run: func(ctx context.Context, name string, args ...string) error {
			return exec.CommandContext(ctx, name, args...).Run()
		},
		dir: os.TempDir(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Player) Play() {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer p.busy.Store(false)
		p.play()
	}()
}

// PlaySync plays the cue and waits for it to finish.
func (p *Player) PlaySync() {
	if !p.busy.CompareAndSwap(false, true) {
		return
	}
	defer p.busy.Store(false)
	p.play()
}

func (p *Player) play() {
	p.once.Do(p.prepare)
	if p.argv == nil {
		p.ring()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), playTimeout)
	defer cancel()
	args := append(append([]string(nil), p.argv[1:]...), p.wav)
	if err := p.run(ctx, p.argv[0], args...); err != nil {
		p.log.Debug("chime player failed", "player", p.argv[0], "error", err)
		p.ring()
	}
}

func (p *Player) prepare() {
	for _, cand := range players {
		path, err := p.lookPath(cand[0])
		if err != nil {
			continue
		}
		wav, err := p.render()
		if err != nil {
			p.log.Debug("render chime", "error", err)
			return
		}
		p.argv = append([]string{path}, cand[1:]...)
		p.wav = wav
		return
	}
	p.log.Debug("no audio player found, using terminal bell")
}

func (p *Player) render() (string, error) {
	var buf bytes.Buffer
	if err := EncodeWAV(&buf, Synthesize(SampleRate), SampleRate); err != nil {
		return "", err
	}
	path := filepath.Join(p.dir, "pomotrack-chime.wav")
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		return "", fmt.Errorf("write chime: %w", err)
	}
	return path, nil
}

func (p *Player) ring() {
	if p.bell != nil {
		io.WriteString(p.bell, "\a")
	}
}

// Silent satisfies the timer's chime capability without making a sound.
type Silent struct{}

func (Silent) Play() {}
