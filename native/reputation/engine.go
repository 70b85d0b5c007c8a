package reputation

import (
	"errors"
	"fmt"

	"github.com/google/uuid"

	"trustmart/core/types"
)

// ErrUserNotFound reports a missing user record during a trust adjustment.
var ErrUserNotFound = errors.New("reputation: user not found")

var errNilState = errors.New("reputation: state not configured")

const (
	minTrustScore = 0.0
	maxTrustScore = 100.0
)

// State is the persistence surface the reputation engine operates against.
type State interface {
	UserGet(id uuid.UUID) (*types.User, bool, error)
	UserPut(*types.User) error
}

// Config controls the trust score deltas applied on dispute resolution. The
// losing party is penalised by DisputePenalty points and the winning party
// rewarded by half of it; both adjustments are clamped to [0, 100].
type Config struct {
	DisputePenalty float64
}

// DefaultConfig returns the default dispute penalty.
func DefaultConfig() Config {
	return Config{DisputePenalty: 5.0}
}

// Validate checks the configuration for plausible values.
func (c Config) Validate() error {
	if c.DisputePenalty < 0 || c.DisputePenalty > maxTrustScore {
		return fmt.Errorf("reputation: dispute penalty %.2f out of range", c.DisputePenalty)
	}
	return nil
}

// Engine mutates user trust scores. It is the only component permitted to
// do so, alongside post-settlement feedback flows built on top of it.
type Engine struct {
	state State
	cfg   Config
}

// NewEngine constructs a reputation engine with the supplied configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{cfg: cfg}
}

// SetState configures the state backend used by the engine.
func (e *Engine) SetState(state State) { e.state = state }

// ApplyDisputeOutcome penalises the losing party and rewards the winning
// party of a resolved dispute. Both writes happen in the caller's atomic
// unit.
func (e *Engine) ApplyDisputeOutcome(winnerID, loserID uuid.UUID) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	if err := e.Adjust(loserID, -e.cfg.DisputePenalty); err != nil {
		return err
	}
	return e.Adjust(winnerID, e.cfg.DisputePenalty/2)
}

// Adjust shifts the user's trust score by delta, clamped to [0, 100].
func (e *Engine) Adjust(userID uuid.UUID, delta float64) error {
	if e == nil || e.state == nil {
		return errNilState
	}
	user, ok, err := e.state.UserGet(userID)
	if err != nil {
		return err
	}
	if !ok || user == nil {
		return fmt.Errorf("%w: %s", ErrUserNotFound, userID)
	}
	user = user.Clone()
	user.TrustScore = clamp(user.TrustScore + delta)
	return e.state.UserPut(user)
}

func clamp(score float64) float64 {
	if score < minTrustScore {
		return minTrustScore
	}
	if score > maxTrustScore {
		return maxTrustScore
	}
	return score
}
