package motion

import "math"

// Tap is a synthesized press at a jittered point. DurationMs separates a
// quick tap from a long press.
type Tap struct {
	X          int
	Y          int
	DurationMs int
}

// TapAt jitters the target with a gaussian offset clamped to the
// configured maximum, so repeated taps on the same control never land on
// the identical pixel.
func TapAt(x, y int, opts ...Option) Tap {
	cfg, rng := resolve(opts)

	return Tap{
		X:          x + tapOffset(rng.NormFloat64(), cfg),
		Y:          y + tapOffset(rng.NormFloat64(), cfg),
		DurationMs: intInRange(rng, cfg.TapDurationMinMs, cfg.TapDurationMaxMs),
	}
}

// LongPressAt is TapAt with a hold long enough to trigger long-press
// handlers.
func LongPressAt(x, y int, opts ...Option) Tap {
	cfg, rng := resolve(opts)

	return Tap{
		X:          x + tapOffset(rng.NormFloat64(), cfg),
		Y:          y + tapOffset(rng.NormFloat64(), cfg),
		DurationMs: intInRange(rng, cfg.LongPressMinMs, cfg.LongPressMaxMs),
	}
}

func tapOffset(normal float64, cfg Config) int {
	offset := normal * cfg.TapOffsetStdDev
	if offset > cfg.TapOffsetMax {
		offset = cfg.TapOffsetMax
	}
	if offset < -cfg.TapOffsetMax {
		offset = -cfg.TapOffsetMax
	}
	return int(math.Round(offset))
}
