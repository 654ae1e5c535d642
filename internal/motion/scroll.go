package motion

type Direction string

const (
	ScrollDown Direction = "down"
	ScrollUp   Direction = "up"
)

// ScrollStyle is a named preset over the scroll parameters, matching how
// a person scrolls in different modes of attention.
type ScrollStyle string

const (
	StyleNatural  ScrollStyle = "natural"
	StyleQuick    ScrollStyle = "quick"
	StyleReading  ScrollStyle = "reading"
	StyleBrowsing ScrollStyle = "browsing"
)

// Apply overlays the style's scroll parameters on cfg.
func (s ScrollStyle) Apply(cfg Config) Config {
	switch s {
	case StyleQuick:
		cfg.ScrollDistanceMin = 700
		cfg.ScrollDistanceMax = 1000
		cfg.ScrollDurationMin = 100
		cfg.ScrollDurationMax = 200
		cfg.ReverseProbability = 0.05
		cfg.PauseProbability = 0.05
	case StyleReading:
		cfg.ScrollDistanceMin = 300
		cfg.ScrollDistanceMax = 500
		cfg.ScrollDurationMin = 300
		cfg.ScrollDurationMax = 500
		cfg.ReverseProbability = 0.25
		cfg.PauseProbability = 0.4
		cfg.PauseMinMs = 800
		cfg.PauseMaxMs = 2500
	case StyleBrowsing:
		cfg.ScrollDistanceMin = 400
		cfg.ScrollDistanceMax = 700
		cfg.ScrollDurationMin = 200
		cfg.ScrollDurationMax = 400
		cfg.PauseProbability = 0.25
	}
	return cfg
}

// WithStyle overlays a scroll style on the effective config. Later
// options still win, so WithConfig after WithStyle overrides the preset.
func WithStyle(style ScrollStyle) Option {
	return func(o *options) {
		o.cfg = style.Apply(o.cfg)
	}
}

// ParseScrollStyle maps a user-supplied name to a style, defaulting to
// natural for unknown input.
func ParseScrollStyle(name string) ScrollStyle {
	switch ScrollStyle(name) {
	case StyleQuick, StyleReading, StyleBrowsing:
		return ScrollStyle(name)
	default:
		return StyleNatural
	}
}

// Swipe describes one scroll gesture, or a pause between gestures when
// Pause is set.
type Swipe struct {
	FromX      int
	FromY      int
	ToX        int
	ToY        int
	DurationMs int
	Pause      bool
	PauseMs    int
}

// Scroll synthesizes count swipes in the given direction with randomized
// per-swipe distance and duration. With the configured probability a
// shorter reverse-direction swipe is inserted after a gesture, the way a
// reader scrolls back up to re-read, and pauses are sprinkled in between.
func Scroll(direction Direction, count int, opts ...Option) []Swipe {
	cfg, rng := resolve(opts)

	sign := 1
	if direction == ScrollDown {
		// Scrolling content down means the finger travels up the screen.
		sign = -1
	}

	centerX := cfg.ScreenWidth / 2
	// Gestures anchor five sixths of the way down the screen, clear of
	// the navigation bar.
	baseY := cfg.ScreenHeight * 5 / 6

	swipes := make([]Swipe, 0, count)
	for i := 0; i < count; i++ {
		distance := intInRange(rng, cfg.ScrollDistanceMin, cfg.ScrollDistanceMax)
		swipes = append(swipes, Swipe{
			FromX:      centerX + intInRange(rng, -cfg.ScrollXVariance, cfg.ScrollXVariance),
			FromY:      baseY,
			ToX:        centerX + intInRange(rng, -cfg.ScrollXVariance, cfg.ScrollXVariance),
			ToY:        baseY + sign*distance,
			DurationMs: gaussInRange(rng, cfg.ScrollDurationMin, cfg.ScrollDurationMax),
		})

		if rng.Float64() < cfg.ReverseProbability {
			back := intInRange(rng, cfg.ScrollDistanceMin/2, cfg.ScrollDistanceMax/2)
			swipes = append(swipes, Swipe{
				FromX:      centerX + intInRange(rng, -cfg.ScrollXVariance, cfg.ScrollXVariance),
				FromY:      baseY + sign*back,
				ToX:        centerX + intInRange(rng, -cfg.ScrollXVariance, cfg.ScrollXVariance),
				ToY:        baseY,
				DurationMs: gaussInRange(rng, cfg.ScrollDurationMin, cfg.ScrollDurationMax),
			})
		}

		if i < count-1 && rng.Float64() < cfg.PauseProbability {
			swipes = append(swipes, Swipe{
				Pause:   true,
				PauseMs: intInRange(rng, cfg.PauseMinMs, cfg.PauseMaxMs),
			})
		}
	}

	return swipes
}
