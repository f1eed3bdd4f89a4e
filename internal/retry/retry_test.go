package retry

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastPolicy(maxAttempts int) Policy {
	return Policy{
		MaxAttempts: maxAttempts,
		BaseDelay:   time.Millisecond,
		Factor:      1.5,
		Jitter:      0,
	}
}

func TestDo_SucceedsFirstAttempt(t *testing.T) {
	attempts := 0
	got, err := Do(context.Background(), fastPolicy(3), func() (int, error) {
		attempts++
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.Equal(t, 1, attempts)
}

func TestDo_RetriesUntilSuccess(t *testing.T) {
	attempts := 0
	got, err := Do(context.Background(), fastPolicy(5), func() (string, error) {
		attempts++
		if attempts < 3 {
			return "", errors.New("transient")
		}
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, 3, attempts)
}

func TestDo_ExhaustsAttempts(t *testing.T) {
	attempts := 0
	boom := errors.New("boom")
	_, err := Do(context.Background(), fastPolicy(4), func() (int, error) {
		attempts++
		return 0, boom
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 4, attempts)
}

func TestDo_PermanentErrorStopsImmediately(t *testing.T) {
	attempts := 0
	fatal := errors.New("bad input")
	_, err := Do(context.Background(), fastPolicy(5), func() (int, error) {
		attempts++
		return 0, Permanent(fatal)
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, fatal)
	assert.Equal(t, 1, attempts)
}

func TestDo_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Do(ctx, fastPolicy(5), func() (int, error) {
		return 0, errors.New("transient")
	})
	require.Error(t, err)
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"defaults", DefaultPolicy(), false},
		{"zero attempts", Policy{MaxAttempts: 0, Factor: 2}, true},
		{"negative delay", Policy{MaxAttempts: 1, BaseDelay: -1, Factor: 2}, true},
		{"factor below one", Policy{MaxAttempts: 1, Factor: 0.5}, true},
		{"jitter out of range", Policy{MaxAttempts: 1, Factor: 2, Jitter: 1.5}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
