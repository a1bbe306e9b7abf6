package patchbay

import (
	"errors"
	"fmt"
	"math"

	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// evalUtility handles the stateful nodes. Each keeps a private state
// record on its node, created lazily on first evaluation and discarded
// with the node.
func evalUtility(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	switch n.TypeKey {
	case "accumulator":
		return evalAccumulator(n, in, fc), nil
	case "oscillator":
		return evalOscillator(n, in, fc)
	case "delay":
		return evalDelay(n, in, fc), nil
	case "trigger":
		return evalTrigger(n, in, fc)
	case "hold":
		return evalHold(n, in, fc), nil
	case "smooth":
		return evalSmooth(n, in, fc)
	case "random":
		return evalRandom(n, in, fc)
	case "expression":
		return evalExpression(n, in, fc)
	}
	return nil, fmt.Errorf("patchbay: unknown utility node %q", n.TypeKey)
}

// --- Accumulator ---

type accumulatorState struct {
	value     float64
	direction float64
	init      bool
}

// evalAccumulator integrates rate over time inside [min, max], with the
// wrap mode deciding what happens at the bounds. The reset input snaps
// back to min with forward direction.
func evalAccumulator(n *Node, in Inputs, fc FrameContext) Outputs {
	s := stateOf[accumulatorState](n)
	lo := in.Number("min", 0)
	hi := in.Number("max", 1)
	if !s.init || in.Bool("reset", false) {
		s.value = lo
		s.direction = 1
		s.init = true
	}

	s.value += in.Number("rate", 1) * fc.Delta * s.direction

	switch n.ConfigString("wrapMode", "none") {
	case "clamp":
		s.value = clamp(s.value, lo, hi)
	case "wrap":
		if s.value > hi {
			s.value = lo + (s.value - hi)
		} else if s.value < lo {
			s.value = hi - (lo - s.value)
		}
	case "pingpong":
		if s.value >= hi {
			s.value = hi
			s.direction = -s.direction
		} else if s.value <= lo {
			s.value = lo
			s.direction = -s.direction
		}
	}
	return Outputs{"output": s.value}
}

// --- Oscillator ---

// evalOscillator is a pure function of the frame clock: the waveform is
// sampled at t = (time*frequency + phase) mod 1, so two oscillators with
// equal settings stay phase-locked no matter when they were created.
func evalOscillator(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	freq := in.Number("frequency", 1)
	amp := in.Number("amplitude", 1)
	off := in.Number("offset", 0)
	t := math.Mod(fc.Time*freq+in.Number("phase", 0), 1)
	if t < 0 {
		t++
	}

	var wave float64
	switch n.ConfigString("waveform", "sine") {
	case "sine":
		wave = math.Sin(2 * math.Pi * t)
	case "square":
		if t < 0.5 {
			wave = 1
		} else {
			wave = -1
		}
	case "sawtooth":
		wave = 2*t - 1
	case "triangle":
		wave = math.Abs(4*t-2) - 1
	case "pulse":
		if t < in.Number("pulseWidth", 0.5) {
			wave = 1
		} else {
			wave = -1
		}
	default:
		return nil, fmt.Errorf("patchbay: oscillator: unknown waveform %q", n.ConfigString("waveform", ""))
	}
	return Outputs{"output": wave*amp + off}, nil
}

// --- Delay ---

// maxDelaySamples bounds the delay buffer. Beyond it the oldest samples
// go, shortening the effective delay rather than growing without limit.
const maxDelaySamples = 4096

type delaySample struct {
	t, v float64
}

type delayState struct {
	buf []delaySample
}

// evalDelay replays its input late: each tick records (time, value) and
// reports the most recent sample at least delayTime old. Until enough
// history exists it reports the oldest sample it has.
func evalDelay(n *Node, in Inputs, fc FrameContext) Outputs {
	s := stateOf[delayState](n)
	s.buf = append(s.buf, delaySample{t: fc.Time, v: in.Number("value", 0)})
	if len(s.buf) > maxDelaySamples {
		s.buf = s.buf[1:]
	}

	cutoff := fc.Time - in.Number("time", 0.5)
	for len(s.buf) >= 2 && s.buf[1].t <= cutoff {
		s.buf = s.buf[1:]
	}
	return Outputs{"output": s.buf[0].v}
}

// --- Trigger ---

type triggerState struct {
	prev   float64
	primed bool
}

// evalTrigger emits a one-frame pulse when its input crosses the
// threshold in the configured direction. The first frame only primes the
// comparison so a patch does not fire on load.
func evalTrigger(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	s := stateOf[triggerState](n)
	v := in.Number("value", 0)
	th := in.Number("threshold", 0.5)

	fired := false
	if s.primed {
		switch n.ConfigString("edge", "rising") {
		case "rising":
			fired = s.prev < th && v >= th
		case "falling":
			fired = s.prev > th && v <= th
		default:
			return nil, fmt.Errorf("patchbay: trigger: unknown edge %q", n.ConfigString("edge", ""))
		}
	}
	s.prev = v
	s.primed = true
	return Outputs{"output": fired}, nil
}

// --- Hold ---

type holdState struct {
	held   float64
	until  float64
	active bool
}

// evalHold latches its value input when triggered and keeps reporting it
// for at least the given duration. A re-trigger while active restarts the
// window with the freshly sampled value.
func evalHold(n *Node, in Inputs, fc FrameContext) Outputs {
	s := stateOf[holdState](n)
	v := in.Number("value", 0)

	if in.Bool("trigger", false) {
		s.held = v
		s.until = fc.Time + in.Number("duration", 0.5)
		s.active = true
	}
	if s.active && fc.Time >= s.until {
		s.active = false
	}

	out := v
	if s.active {
		out = s.held
	}
	return Outputs{"output": out, "active": s.active}
}

// --- Smooth ---

// easings names the curves the smooth node accepts.
var easings = map[string]ease.TweenFunc{
	"linear":     ease.Linear,
	"inQuad":     ease.InQuad,
	"outQuad":    ease.OutQuad,
	"inOutQuad":  ease.InOutQuad,
	"inCubic":    ease.InCubic,
	"outCubic":   ease.OutCubic,
	"outExpo":    ease.OutExpo,
	"outElastic": ease.OutElastic,
	"outBounce":  ease.OutBounce,
}

type smoothState struct {
	tween   *gween.Tween
	current float64
	target  float64
	init    bool
}

// evalSmooth chases its input through a tween instead of jumping: when
// the target moves, a new tween runs from the current position to it over
// the configured duration.
func evalSmooth(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	s := stateOf[smoothState](n)
	target := in.Number("value", 0)

	if !s.init {
		s.current = target
		s.target = target
		s.init = true
	}
	if target != s.target {
		fn, ok := easings[n.ConfigString("easing", "outQuad")]
		if !ok {
			return nil, fmt.Errorf("patchbay: smooth: unknown easing %q", n.ConfigString("easing", ""))
		}
		dur := in.Number("duration", 0.3)
		if dur <= 0 {
			s.current = target
			s.tween = nil
		} else {
			s.tween = gween.New(float32(s.current), float32(target), float32(dur), fn)
		}
		s.target = target
	}
	if s.tween != nil {
		cur, done := s.tween.Update(float32(fc.Delta))
		s.current = float64(cur)
		if done {
			s.tween = nil
		}
	}
	return Outputs{"output": s.current}, nil
}

// --- Random ---

var errNoRandSource = errors.New("patchbay: random node: frame context has no random source")

type randomState struct {
	value   float64
	prev    bool
	sampled bool
}

// evalRandom produces uniform values in [min, max]. Mode "frame" redraws
// every tick; mode "trigger" samples on the trigger input's rising edge
// and holds between pulses.
func evalRandom(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	if fc.Rand == nil {
		return nil, errNoRandSource
	}
	s := stateOf[randomState](n)
	lo := in.Number("min", 0)
	hi := in.Number("max", 1)
	draw := func() float64 { return lo + fc.Rand.Float64()*(hi-lo) }

	switch n.ConfigString("mode", "frame") {
	case "frame":
		s.value = draw()
	case "trigger":
		trig := in.Bool("trigger", false)
		if !s.sampled || (trig && !s.prev) {
			s.value = draw()
			s.sampled = true
		}
		s.prev = trig
	default:
		return nil, fmt.Errorf("patchbay: random: unknown mode %q", n.ConfigString("mode", ""))
	}
	return Outputs{"output": s.value}, nil
}

// --- Expression ---

type exprState struct {
	src        string
	prog       *exprProgram
	compileErr error
}

// evalExpression evaluates the node's formula against its a-d inputs and
// the frame clock. The formula compiles once and is reused until the text
// changes; a formula that fails to compile keeps the node errored without
// re-parsing every frame.
func evalExpression(n *Node, in Inputs, fc FrameContext) (Outputs, error) {
	s := stateOf[exprState](n)
	src := n.ConfigString("expression", "a")
	if s.prog == nil && s.compileErr == nil || s.src != src {
		s.src = src
		s.prog, s.compileErr = compileExpression(src)
	}
	if s.compileErr != nil {
		return nil, s.compileErr
	}

	v, err := s.prog.Eval(map[string]float64{
		"a":     in.Number("a", 0),
		"b":     in.Number("b", 0),
		"c":     in.Number("c", 0),
		"d":     in.Number("d", 0),
		"time":  fc.Time,
		"delta": fc.Delta,
		"frame": float64(fc.Frame),
	})
	if err != nil {
		return nil, err
	}
	return Outputs{"output": v}, nil
}
