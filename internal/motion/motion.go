// Package motion synthesizes human-like input timing: curved touch
// trajectories, typing sequences with corrected typos, and variable-speed
// scroll gestures. All synthesis is pure and safe for concurrent use;
// every call draws from its own random source. Passing WithSeed makes the
// output reproducible bit-for-bit, which the tests rely on.
package motion

import (
	"crypto/rand"
	"encoding/binary"
	"math"
	mrand "math/rand"
	"time"
)

type Config struct {
	TypingDelayMinMs     int
	TypingDelayMaxMs     int
	WordPauseExtraMs     int
	CorrectionDelayMinMs int
	CorrectionDelayMaxMs int

	ControlPointCount    int
	ControlPointVariance float64
	PressureStart        float64
	PressurePeak         float64
	PressureEnd          float64

	TapOffsetStdDev  float64
	TapOffsetMax     float64
	TapDurationMinMs int
	TapDurationMaxMs int
	LongPressMinMs   int
	LongPressMaxMs   int

	ScrollDistanceMin  int
	ScrollDistanceMax  int
	ScrollDurationMin  int
	ScrollDurationMax  int
	ScrollXVariance    int
	ReverseProbability float64
	PauseProbability   float64
	PauseMinMs         int
	PauseMaxMs         int
	ScreenWidth        int
	ScreenHeight       int
}

func DefaultConfig() Config {
	return Config{
		TypingDelayMinMs:     50,
		TypingDelayMaxMs:     500,
		WordPauseExtraMs:     150,
		CorrectionDelayMinMs: 100,
		CorrectionDelayMaxMs: 400,
		ControlPointCount:    2,
		ControlPointVariance: 20.0,
		PressureStart:        0.3,
		PressurePeak:         1.0,
		PressureEnd:          0.2,
		TapOffsetStdDev:      4.0,
		TapOffsetMax:         12.0,
		TapDurationMinMs:     50,
		TapDurationMaxMs:     150,
		LongPressMinMs:       500,
		LongPressMaxMs:       1200,
		ScrollDistanceMin:    500,
		ScrollDistanceMax:    800,
		ScrollDurationMin:    150,
		ScrollDurationMax:    350,
		ScrollXVariance:      30,
		ReverseProbability:   0.15,
		PauseProbability:     0.15,
		PauseMinMs:           300,
		PauseMaxMs:           800,
		ScreenWidth:          1080,
		ScreenHeight:         1920,
	}
}

type options struct {
	cfg    Config
	seed   int64
	seeded bool
}

type Option func(*options)

// WithSeed makes synthesis deterministic: the same seed and inputs yield
// the same output.
func WithSeed(seed int64) Option {
	return func(o *options) {
		o.seed = seed
		o.seeded = true
	}
}

func WithConfig(cfg Config) Option {
	return func(o *options) {
		o.cfg = cfg
	}
}

func resolve(opts []Option) (Config, *mrand.Rand) {
	o := options{cfg: DefaultConfig()}
	for _, opt := range opts {
		opt(&o)
	}

	seed := o.seed
	if !o.seeded {
		seed = entropySeed()
	}

	return o.cfg, mrand.New(mrand.NewSource(seed))
}

func entropySeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		return time.Now().UnixNano()
	}
	return int64(binary.LittleEndian.Uint64(buf[:]))
}

// gaussInRange draws from a normal distribution centered between min and
// max, clamped to the range.
func gaussInRange(rng *mrand.Rand, min, max int) int {
	mean := float64(min+max) / 2
	std := float64(max-min) / 4
	v := int(math.Round(rng.NormFloat64()*std + mean))
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

func intInRange(rng *mrand.Rand, min, max int) int {
	if max <= min {
		return min
	}
	return min + rng.Intn(max-min+1)
}
