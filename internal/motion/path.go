package motion

import "math"

type Point struct {
	X float64
	Y float64
}

// TouchSample is one point of a synthesized touch trajectory. T is a
// normalized, strictly increasing time value in [0, 1].
type TouchSample struct {
	X        float64
	Y        float64
	Pressure float64
	T        float64
}

// Path produces a curved trajectory from start to end with sampleCount+1
// samples. The curve is a bezier over randomized gaussian control points,
// so repeated calls with the same endpoints trace different paths.
// Pressure ramps up toward the middle of the stroke and back down,
// approximating finger contact.
func Path(start, end Point, sampleCount int, opts ...Option) []TouchSample {
	cfg, rng := resolve(opts)

	if sampleCount < 1 {
		sampleCount = 1
	}

	controls := make([]Point, 0, cfg.ControlPointCount+2)
	controls = append(controls, start)
	for i := 0; i < cfg.ControlPointCount; i++ {
		t := float64(i+1) / float64(cfg.ControlPointCount+1)
		controls = append(controls, Point{
			X: start.X + (end.X-start.X)*t + rng.NormFloat64()*cfg.ControlPointVariance,
			Y: start.Y + (end.Y-start.Y)*t + rng.NormFloat64()*cfg.ControlPointVariance,
		})
	}
	controls = append(controls, end)

	samples := make([]TouchSample, 0, sampleCount+1)
	for i := 0; i <= sampleCount; i++ {
		t := float64(i) / float64(sampleCount)
		p := deCasteljau(controls, t)
		samples = append(samples, TouchSample{
			X:        p.X,
			Y:        p.Y,
			Pressure: pressureAt(cfg, t),
			T:        t,
		})
	}

	return samples
}

// deCasteljau evaluates the bezier defined by the control polygon at t.
func deCasteljau(points []Point, t float64) Point {
	tmp := make([]Point, len(points))
	copy(tmp, points)

	for r := 1; r < len(tmp); r++ {
		for j := 0; j < len(tmp)-r; j++ {
			tmp[j] = Point{
				X: (1-t)*tmp[j].X + t*tmp[j+1].X,
				Y: (1-t)*tmp[j].Y + t*tmp[j+1].Y,
			}
		}
	}

	return tmp[0]
}

// pressureAt follows a sine arc: weak at touch-down and lift-off, peaking
// mid-stroke.
func pressureAt(cfg Config, t float64) float64 {
	floor := math.Min(cfg.PressureStart, cfg.PressureEnd)
	return floor + math.Sin(math.Pi*t)*(cfg.PressurePeak-floor)
}
