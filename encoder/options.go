package encoder

import (
	"errors"
	"fmt"

	"github.com/cwbudde/algo-encoder/edge"
	"github.com/cwbudde/algo-encoder/scanio"
)

// Configuration errors, returned by New.
var (
	ErrNoChannel                 = errors.New("encoder: data channel must not be empty")
	ErrInvalidBackgroundMethod   = errors.New("encoder: unknown background removal method")
	ErrInvalidPolarity           = errors.New("encoder: unknown edge polarity")
	ErrStepLengthTooShort        = errors.New("encoder: a reasonable step length should be >= 4")
	ErrInvalidRefinement         = errors.New("encoder: refinement must be >= 1")
	ErrInvalidROI                = errors.New("encoder: invalid region of interest")
	ErrConflictingDarkStrategies = errors.New("encoder: events channel and dark-shot filter are mutually exclusive")
)

// BackgroundMethod selects the background removal operator.
type BackgroundMethod int

const (
	// Divide removes the background as data/reference - 1.
	Divide BackgroundMethod = iota

	// Subtract removes the background as data - reference.
	Subtract
)

// String returns the method name.
func (m BackgroundMethod) String() string {
	switch m {
	case Divide:
		return "div"
	case Subtract:
		return "sub"
	default:
		return fmt.Sprintf("BackgroundMethod(%d)", int(m))
	}
}

// ParseBackgroundMethod converts a method name to a BackgroundMethod.
func ParseBackgroundMethod(s string) (BackgroundMethod, error) {
	switch s {
	case "div":
		return Divide, nil
	case "sub":
		return Subtract, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrInvalidBackgroundMethod, s)
	}
}

// DarkShotFilter reports whether a pulse identifier belongs to a dark
// shot.
type DarkShotFilter func(pulseID uint64) bool

// defaultDarkShotEvent is the event-channel column conventionally
// carrying the dark-shot flag.
const defaultDarkShotEvent = 21

type config struct {
	channel       string
	roiLo, roiHi  int
	roiSet        bool
	method        BackgroundMethod
	stepLength    int
	polarity      edge.Polarity
	refinement    int
	eventsChannel string
	darkShotEvent int
	darkFilter    DarkShotFilter
	energyAxis    []float64
	reader        scanio.Reader
}

func defaultConfig(channel string) config {
	return config{
		channel:       channel,
		method:        Divide,
		stepLength:    50,
		polarity:      edge.Falling,
		refinement:    1,
		darkShotEvent: defaultDarkShotEvent,
	}
}

func (c config) validate() error {
	if c.channel == "" {
		return ErrNoChannel
	}

	if c.method != Divide && c.method != Subtract {
		return ErrInvalidBackgroundMethod
	}

	if c.polarity != edge.Falling && c.polarity != edge.Rising {
		return ErrInvalidPolarity
	}

	if c.stepLength < 4 {
		return ErrStepLengthTooShort
	}

	if c.refinement < 1 {
		return ErrInvalidRefinement
	}

	if c.roiSet && c.roiLo > c.roiHi {
		return ErrInvalidROI
	}

	if c.eventsChannel != "" && c.darkFilter != nil {
		return ErrConflictingDarkStrategies
	}

	return nil
}

// hasDarkStrategy reports whether a dark-shot discrimination strategy
// is configured.
func (c config) hasDarkStrategy() bool {
	return c.eventsChannel != "" || c.darkFilter != nil
}

// Option configures an Encoder at construction.
type Option func(*config)

// WithROI sets the image row slice projected onto the waveform axis.
// The bounds are carried for the recording reader; the engine itself
// consumes projected waveforms.
func WithROI(lo, hi int) Option {
	return func(c *config) {
		c.roiLo, c.roiHi = lo, hi
		c.roiSet = true
	}
}

// WithBackgroundMethod selects subtractive or divisive background
// removal.
func WithBackgroundMethod(m BackgroundMethod) Option {
	return func(c *config) {
		c.method = m
	}
}

// WithStepLength sets the step template length in pixels, >= 4.
func WithStepLength(n int) Option {
	return func(c *config) {
		c.stepLength = n
	}
}

// WithEdgePolarity selects the transition direction to search for.
func WithEdgePolarity(p edge.Polarity) Option {
	return func(c *config) {
		c.polarity = p
	}
}

// WithRefinement sets the interpolation upsampling factor for
// sub-pixel precision, >= 1.
func WithRefinement(r int) Option {
	return func(c *config) {
		c.refinement = r
	}
}

// WithEventsChannel enables event-based dark-shot discrimination:
// recordings carry a per-pulse dark mask derived from the named event
// channel. darkShotEvent is the event column holding the dark flag;
// pass a negative value to keep the conventional default.
//
// Mutually exclusive with WithDarkShotFilter.
func WithEventsChannel(name string, darkShotEvent int) Option {
	return func(c *config) {
		c.eventsChannel = name
		if darkShotEvent >= 0 {
			c.darkShotEvent = darkShotEvent
		}
	}
}

// WithDarkShotFilter enables predicate-based dark-shot discrimination
// over pulse identifiers.
//
// Mutually exclusive with WithEventsChannel.
func WithDarkShotFilter(f DarkShotFilter) Option {
	return func(c *config) {
		c.darkFilter = f
	}
}

// WithEnergyAxis attaches a calibration axis used by display clients
// for plotting. The engine never computes with it.
func WithEnergyAxis(axis []float64) Option {
	return func(c *config) {
		c.energyAxis = axis
	}
}

// WithReader sets the recording reader used by the file and scan
// operations.
func WithReader(r scanio.Reader) Option {
	return func(c *config) {
		c.reader = r
	}
}
