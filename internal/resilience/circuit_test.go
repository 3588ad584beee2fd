package resilience

import (
	"context"
	"testing"
	"time"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBreaker(threshold int, reset time.Duration) (*Breaker, *time.Time) {
	now := time.Now()
	b := NewBreaker(BreakerConfig{FailureThreshold: threshold, ResetTimeout: reset})
	b.now = func() time.Time { return now }
	return b, &now
}

func fail(context.Context) error { return eris.New("down") }

func succeed(context.Context) error { return nil }

func TestBreaker_OpensAfterThreshold(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	for i := 0; i < 3; i++ {
		require.Error(t, b.Execute(context.Background(), fail))
	}
	assert.Equal(t, Open, b.State())

	err := b.Execute(context.Background(), succeed)
	assert.ErrorIs(t, err, ErrOpen)
}

func TestBreaker_SuccessResetsFailureRun(t *testing.T) {
	b, _ := testBreaker(3, time.Minute)

	require.Error(t, b.Execute(context.Background(), fail))
	require.Error(t, b.Execute(context.Background(), fail))
	require.NoError(t, b.Execute(context.Background(), succeed))
	require.Error(t, b.Execute(context.Background(), fail))

	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbeCloses(t *testing.T) {
	b, now := testBreaker(1, time.Minute)

	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, Open, b.State())

	*now = now.Add(2 * time.Minute)
	assert.Equal(t, HalfOpen, b.State())

	require.NoError(t, b.Execute(context.Background(), succeed))
	assert.Equal(t, Closed, b.State())
}

func TestBreaker_HalfOpenProbeFailureReopens(t *testing.T) {
	b, now := testBreaker(1, time.Minute)

	require.Error(t, b.Execute(context.Background(), fail))
	*now = now.Add(2 * time.Minute)

	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, Open, b.State())

	assert.ErrorIs(t, b.Execute(context.Background(), succeed), ErrOpen)
}

func TestBreaker_Reset(t *testing.T) {
	b, _ := testBreaker(1, time.Hour)
	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, Open, b.State())

	b.Reset()
	assert.Equal(t, Closed, b.State())
	require.NoError(t, b.Execute(context.Background(), succeed))
}

func TestExecuteVal_PassesValueThrough(t *testing.T) {
	b, _ := testBreaker(2, time.Minute)
	got, err := ExecuteVal(context.Background(), b, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
}

func TestBreaker_StateChangeCallback(t *testing.T) {
	var transitions []string
	b := NewBreaker(BreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Hour,
		OnStateChange: func(from, to State) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	require.Error(t, b.Execute(context.Background(), fail))
	assert.Equal(t, []string{"closed->open"}, transitions)
}
