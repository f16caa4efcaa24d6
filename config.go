package respool

import (
	"fmt"
	"time"

	"go.uber.org/zap"
)

const (
	// DefaultGroupKey is the group used when Config.GroupKey is empty.
	DefaultGroupKey = "ResourcePool"

	DefaultMinimumAvailable    = 10
	DefaultBuffer              = 2
	DefaultRefillInterval      = 30 * time.Second
	DefaultMaxAllocateAttempts = 32
	DefaultInitialBackoff      = 5 * time.Millisecond
	DefaultMaxBackoff          = 250 * time.Millisecond
)

// RefillMode selects what a successful acquisition does about replenishing
// the pool.
type RefillMode int

const (
	// RefillBackground signals a Refiller and returns immediately.
	RefillBackground RefillMode = iota

	// RefillInline runs the refill check before TryAcquire returns, so a
	// winner pays the listing and insert cost whenever the pool is low.
	RefillInline

	// RefillDisabled never refills automatically. RefillPool still works.
	RefillDisabled
)

func (m RefillMode) String() string {
	switch m {
	case RefillBackground:
		return "background"
	case RefillInline:
		return "inline"
	case RefillDisabled:
		return "disabled"
	}
	return fmt.Sprintf("RefillMode(%d)", int(m))
}

// ParseRefillMode parses the String form of a RefillMode.
func ParseRefillMode(s string) (RefillMode, error) {
	for _, m := range []RefillMode{RefillBackground, RefillInline, RefillDisabled} {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("unknown refill mode %q", s)
}

// Config configures a Pool. MinimumAvailable and Buffer are used as given;
// start from DefaultConfig to get the standard refill threshold. Other zero
// fields fall back to their defaults.
type Config struct {
	// GroupKey identifies the pool inside the store. Defaults to
	// DefaultGroupKey.
	GroupKey string

	// MinimumAvailable is the number of available records a refill
	// restores. Zero is taken literally: refills never create records.
	MinimumAvailable int

	// Buffer is the number of extra records created on top of the deficit.
	// Zero is taken literally.
	Buffer int

	RefillMode RefillMode

	// Signaler, when set, is signalled after every successful acquisition
	// in background mode in addition to the pool's own Refiller. Use it to
	// wake refillers in other processes.
	Signaler Signaler

	// RefillInterval is how often the Refiller checks the pool without
	// being signalled. Zero means DefaultRefillInterval; negative disables
	// polling.
	RefillInterval time.Duration

	// NoStartRefiller keeps New from running the Refiller. The caller must
	// then call Refiller().Run itself.
	NoStartRefiller bool

	// MaxAllocateAttempts bounds the candidates AllocateRandom tries before
	// giving up with ErrContentionTimeout. Zero means
	// DefaultMaxAllocateAttempts.
	MaxAllocateAttempts int

	// InitialBackoff and MaxBackoff shape the exponential backoff between
	// AllocateRandom attempts.
	InitialBackoff time.Duration
	MaxBackoff     time.Duration

	// Logger receives the pool's logs. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns a Config for DefaultGroupKey that keeps
// DefaultMinimumAvailable records available with a buffer of DefaultBuffer.
func DefaultConfig() Config {
	return Config{
		GroupKey:         DefaultGroupKey,
		MinimumAvailable: DefaultMinimumAvailable,
		Buffer:           DefaultBuffer,
	}
}

func (c Config) withDefaults() Config {
	if c.GroupKey == "" {
		c.GroupKey = DefaultGroupKey
	}
	if c.RefillInterval == 0 {
		c.RefillInterval = DefaultRefillInterval
	}
	if c.MaxAllocateAttempts == 0 {
		c.MaxAllocateAttempts = DefaultMaxAllocateAttempts
	}
	if c.InitialBackoff == 0 {
		c.InitialBackoff = DefaultInitialBackoff
	}
	if c.MaxBackoff == 0 {
		c.MaxBackoff = DefaultMaxBackoff
	}
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	return c
}

func (c Config) Validate() error {
	if c.MinimumAvailable < 0 {
		return fmt.Errorf("minimum available cannot be negative: given %d", c.MinimumAvailable)
	}
	if c.Buffer < 0 {
		return fmt.Errorf("buffer cannot be negative: given %d", c.Buffer)
	}
	if c.MaxAllocateAttempts < 0 {
		return fmt.Errorf("max allocate attempts cannot be negative: given %d", c.MaxAllocateAttempts)
	}
	if c.InitialBackoff < 0 || c.MaxBackoff < 0 {
		return fmt.Errorf("backoff cannot be negative: given %s and %s", c.InitialBackoff, c.MaxBackoff)
	}
	if c.InitialBackoff > 0 && c.MaxBackoff > 0 && c.MaxBackoff < c.InitialBackoff {
		return fmt.Errorf("max backoff %s is shorter than initial backoff %s", c.MaxBackoff, c.InitialBackoff)
	}
	switch c.RefillMode {
	case RefillBackground, RefillInline, RefillDisabled:
	default:
		return fmt.Errorf("unknown refill mode %d", int(c.RefillMode))
	}
	return nil
}
