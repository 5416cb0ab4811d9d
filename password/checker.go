package password

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"
)

// PolicySource returns the current password policy.
type PolicySource interface {
	Get(ctx context.Context) (*Policy, error)
}

// PolicyFetchError means no policy could be loaded. Passwords checked while
// it is returned are provisionally accepted.
type PolicyFetchError struct {
	Err error
}

func (e *PolicyFetchError) Error() string {
	return fmt.Sprintf("password: fetch policy: %v", e.Err)
}

func (e *PolicyFetchError) Unwrap() error { return e.Err }

var ErrPolicyNotLoaded = errors.New("password: policy not loaded")

// Checker validates passwords against a policy fetched on first use and
// cached for its lifetime. Concurrent first calls share one fetch.
type Checker struct {
	src   PolicySource
	log   zerolog.Logger
	group singleflight.Group

	mu     sync.RWMutex
	policy *Policy
}

func NewChecker(src PolicySource, log zerolog.Logger) *Checker {
	return &Checker{src: src, log: log.With().Str("component", "password").Logger()}
}

// Policy returns the cached policy, fetching it if none has loaded yet.
// Failed fetches are not cached.
func (c *Checker) Policy(ctx context.Context) (*Policy, error) {
	c.mu.RLock()
	p := c.policy
	c.mu.RUnlock()
	if p != nil {
		return p, nil
	}

	v, err, _ := c.group.Do("policy", func() (any, error) {
		p, err := c.src.Get(ctx)
		if err != nil {
			return nil, err
		}
		if p == nil {
			return nil, ErrPolicyNotLoaded
		}
		c.mu.Lock()
		c.policy = p
		c.mu.Unlock()
		return p, nil
	})
	if err != nil {
		c.log.Warn().Err(err).Msg("fetch password policy")
		return nil, &PolicyFetchError{Err: err}
	}
	return v.(*Policy), nil
}

// CanSubmit reports whether a policy has loaded at least once. Callers must
// not submit a password before it does.
func (c *Checker) CanSubmit() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.policy != nil
}

// Invalidate drops the cached policy so the next check fetches it again.
func (c *Checker) Invalidate() {
	c.mu.Lock()
	c.policy = nil
	c.mu.Unlock()
}

// Check validates password. When the policy is unavailable it returns a
// provisional, violation free result together with a *PolicyFetchError.
func (c *Checker) Check(ctx context.Context, password string) (Violations, error) {
	p, err := c.Policy(ctx)
	if err != nil {
		v := evaluated()
		v.provisional = true
		return v, err
	}
	return Validate(password, *p), nil
}

// CheckChange is Check plus the current and confirmation comparisons, which
// run even without a policy.
func (c *Checker) CheckChange(ctx context.Context, current, next, confirm string) (Violations, error) {
	v, err := c.Check(ctx, next)
	compare(&v, current, next, confirm)
	return v, err
}
