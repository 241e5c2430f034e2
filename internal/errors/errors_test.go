package errors

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_DerivesCategoryFromCode(t *testing.T) {
	tests := []struct {
		code     string
		category Category
	}{
		{ErrCodeConfigInvalid, CategoryConfig},
		{ErrCodeStoreOpen, CategoryStorage},
		{ErrCodeServiceTimeout, CategoryService},
		{ErrCodeDimensionMismatch, CategoryValidation},
		{ErrCodeEmbeddingFailed, CategoryInternal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test", nil)
			assert.Equal(t, tt.category, err.Category)
		})
	}
}

func TestNew_OnlyTransientServiceErrorsAreRetryable(t *testing.T) {
	assert.True(t, New(ErrCodeServiceTimeout, "timeout", nil).Retryable)
	assert.True(t, New(ErrCodeServiceUnavailable, "down", nil).Retryable)
	assert.False(t, New(ErrCodeCredentialsMissing, "no key", nil).Retryable)
	assert.False(t, New(ErrCodeDimensionMismatch, "dim", nil).Retryable)
}

func TestWrap_PreservesErrorChain(t *testing.T) {
	cause := fmt.Errorf("connection refused")
	err := Wrap(ErrCodeServiceUnavailable, cause)

	require.NotNil(t, err)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), ErrCodeServiceUnavailable)
}

func TestWrap_NilReturnsNil(t *testing.T) {
	assert.Nil(t, Wrap(ErrCodeInternal, nil))
}

func TestIs_MatchesByCode(t *testing.T) {
	err := New(ErrCodeDimensionMismatch, "expected 256, got 512", nil)
	target := New(ErrCodeDimensionMismatch, "", nil)

	assert.True(t, errors.Is(err, target))
	assert.False(t, errors.Is(err, New(ErrCodeInternal, "", nil)))
}

func TestWithDetail_Chains(t *testing.T) {
	err := New(ErrCodeUpsertFailed, "upsert failed", nil).
		WithDetail("collection", "documents").
		WithSuggestion("check store path")

	assert.Equal(t, "documents", err.Details["collection"])
	assert.Equal(t, "check store path", err.Suggestion)
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	cfg := RetryConfig{MaxRetries: 3, InitialDelay: time.Millisecond, MaxDelay: 5 * time.Millisecond, Multiplier: 2.0}

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		if attempts < 3 {
			return New(ErrCodeServiceTimeout, "timeout", nil)
		}
		return nil
	})

	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetry_AbortsOnNonRetryableError(t *testing.T) {
	cfg := DefaultRetryConfig()
	cfg.InitialDelay = time.Millisecond

	attempts := 0
	err := Retry(context.Background(), cfg, func() error {
		attempts++
		return New(ErrCodeCredentialsMissing, "no key", nil)
	})

	require.Error(t, err)
	assert.Equal(t, 1, attempts)
}

func TestRetry_RespectsContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := Retry(ctx, DefaultRetryConfig(), func() error {
		return New(ErrCodeServiceTimeout, "timeout", nil)
	})

	assert.ErrorIs(t, err, context.Canceled)
}
