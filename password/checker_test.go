package password

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type source struct {
	calls  atomic.Int32
	policy *Policy
	err    error
	delay  time.Duration
}

func (s *source) Get(ctx context.Context) (*Policy, error) {
	s.calls.Add(1)
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	if s.err != nil {
		return nil, s.err
	}
	return s.policy, nil
}

func TestChecker_Check(t *testing.T) {
	src := &source{policy: &strict}
	c := NewChecker(src, zerolog.Nop())
	assert.False(t, c.CanSubmit())

	v, err := c.Check(context.Background(), "Abcdef12!")
	require.NoError(t, err)
	assert.True(t, v.Valid())
	assert.True(t, c.CanSubmit())

	v, err = c.Check(context.Background(), "short")
	require.NoError(t, err)
	assert.True(t, v.Has(MinLength))
	assert.Equal(t, int32(1), src.calls.Load(), "the policy is fetched once")

	c.Invalidate()
	assert.False(t, c.CanSubmit())
	_, err = c.Check(context.Background(), "x")
	require.NoError(t, err)
	assert.Equal(t, int32(2), src.calls.Load())
}

func TestChecker_PolicyUnavailable(t *testing.T) {
	src := &source{err: errors.New("timeout")}
	c := NewChecker(src, zerolog.Nop())

	v, err := c.Check(context.Background(), "x")
	var fetchErr *PolicyFetchError
	require.ErrorAs(t, err, &fetchErr)
	assert.EqualError(t, fetchErr.Err, "timeout")
	assert.True(t, v.Provisional())
	assert.True(t, v.Evaluated())
	assert.Zero(t, v.Len())
	assert.False(t, c.CanSubmit())

	// the failure is not cached
	src.err, src.policy = nil, &strict
	v, err = c.Check(context.Background(), "x")
	require.NoError(t, err)
	assert.False(t, v.Provisional())
	assert.False(t, v.Valid())
}

func TestChecker_NilPolicy(t *testing.T) {
	c := NewChecker(&source{}, zerolog.Nop())
	_, err := c.Policy(context.Background())
	assert.ErrorIs(t, err, ErrPolicyNotLoaded)
}

func TestChecker_CheckChange(t *testing.T) {
	c := NewChecker(&source{err: errors.New("down")}, zerolog.Nop())
	v, err := c.CheckChange(context.Background(), "same", "same", "other")
	assert.Error(t, err)
	assert.True(t, v.Provisional())
	assert.True(t, v.Has(SamePassword), "comparisons run without a policy")
	assert.True(t, v.Has(DifferencePassword))
}

func TestChecker_ConcurrentFetch(t *testing.T) {
	src := &source{policy: &strict, delay: 50 * time.Millisecond}
	c := NewChecker(src, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := c.Check(context.Background(), "Abcdef12!")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.LessOrEqual(t, src.calls.Load(), int32(2))
	assert.True(t, c.CanSubmit())
}
