package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartSearchError_Unwrap_PreservesOriginalError(t *testing.T) {
	originalErr := errors.New("original error")

	wrapped := New(ErrCodeDatasetNotFound, "dataset 42 not found", originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, originalErr, errors.Unwrap(wrapped))
	assert.True(t, errors.Is(wrapped, originalErr))
}

func TestPartSearchError_Error_ReturnsFormattedMessage(t *testing.T) {
	tests := []struct {
		name     string
		code     string
		message  string
		expected string
	}{
		{
			name:     "bad headers",
			code:     ErrCodeBadHeaders,
			message:  "missing required headers",
			expected: "[ERR_101_BAD_HEADERS] missing required headers",
		},
		{
			name:     "dataset not found",
			code:     ErrCodeDatasetNotFound,
			message:  "dataset 7 not found",
			expected: "[ERR_301_DATASET_NOT_FOUND] dataset 7 not found",
		},
		{
			name:     "index timeout",
			code:     ErrCodeIndexTimeout,
			message:  "search index timed out",
			expected: "[ERR_501_INDEX_TIMEOUT] search index timed out",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code, tt.message, nil)
			assert.Equal(t, tt.expected, err.Error())
		})
	}
}

func TestPartSearchError_Is_MatchesByCode(t *testing.T) {
	err1 := New(ErrCodeDatasetNotFound, "dataset A not found", nil)
	err2 := New(ErrCodeDatasetNotFound, "dataset B not found", nil)

	assert.True(t, errors.Is(err1, err2))
}

func TestPartSearchError_Is_DoesNotMatchDifferentCodes(t *testing.T) {
	err1 := New(ErrCodeDatasetNotFound, "dataset not found", nil)
	err2 := New(ErrCodeSessionNotFound, "session not found", nil)

	assert.False(t, errors.Is(err1, err2))
}

func TestPartSearchError_WithDetail_AddsContext(t *testing.T) {
	err := New(ErrCodeDatasetNotFound, "dataset not found", nil)

	err = err.WithDetail("file_id", "42")
	err = err.WithDetail("table", "ds_42")

	assert.Equal(t, "42", err.Details["file_id"])
	assert.Equal(t, "ds_42", err.Details["table"])
}

func TestPartSearchError_WithSuggestion_AddsSuggestion(t *testing.T) {
	err := New(ErrCodeIndexTimeout, "search index timed out", nil)

	err = err.WithSuggestion("retry or fall back to the relational backend")

	assert.Equal(t, "retry or fall back to the relational backend", err.Suggestion)
}

func TestPartSearchError_CategoryFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantCategory Category
	}{
		{ErrCodeBadHeaders, CategoryValidation},
		{ErrCodeInvalidPayload, CategoryValidation},
		{ErrCodeMissingToken, CategoryAuth},
		{ErrCodeInvalidToken, CategoryAuth},
		{ErrCodeDatasetNotFound, CategoryNotFound},
		{ErrCodeRateLimited, CategoryRateLimit},
		{ErrCodeIndexTimeout, CategoryTransient},
		{ErrCodeRowInvalid, CategoryRowInvalid},
		{ErrCodeDBUnavailable, CategoryFatal},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantCategory, err.Category)
		})
	}
}

func TestPartSearchError_SeverityFromCode(t *testing.T) {
	tests := []struct {
		code         string
		wantSeverity Severity
	}{
		{ErrCodeDBUnavailable, SeverityFatal},
		{ErrCodeDiskFull, SeverityFatal},
		{ErrCodeDatasetNotFound, SeverityError},
		{ErrCodeIndexTimeout, SeverityWarning},
		{ErrCodeDBDeadlock, SeverityWarning},
		{ErrCodeRowInvalid, SeverityInfo},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantSeverity, err.Severity)
		})
	}
}

func TestPartSearchError_RetryableFromCode(t *testing.T) {
	tests := []struct {
		code          string
		wantRetryable bool
	}{
		{ErrCodeIndexTimeout, true},
		{ErrCodeIndexUnavailable, true},
		{ErrCodeDBDeadlock, true},
		{ErrCodeCacheUnavailable, true},
		{ErrCodeDatasetNotFound, false},
		{ErrCodeDBUnavailable, false},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			err := New(tt.code, "test message", nil)
			assert.Equal(t, tt.wantRetryable, err.Retryable)
		})
	}
}

func TestWrap_CreatesPartSearchErrorFromError(t *testing.T) {
	originalErr := errors.New("something went wrong")

	wrapped := Wrap(ErrCodeInternal, originalErr)

	require.NotNil(t, wrapped)
	assert.Equal(t, ErrCodeInternal, wrapped.Code)
	assert.Equal(t, "something went wrong", wrapped.Message)
	assert.Equal(t, originalErr, wrapped.Cause)
}

func TestValidationError_CreatesValidationCategoryError(t *testing.T) {
	err := ValidationError("quantity must be a number", nil)

	assert.Equal(t, CategoryValidation, err.Category)
}

func TestTransientError_CreatesRetryableError(t *testing.T) {
	err := TransientError(ErrCodeIndexTimeout, "search index timed out", nil)

	assert.Equal(t, CategoryTransient, err.Category)
	assert.True(t, err.Retryable)
}

func TestRowInvalidError_CreatesRowInvalidCategoryError(t *testing.T) {
	err := RowInvalidError("quantity could not be coerced", nil)

	assert.Equal(t, CategoryRowInvalid, err.Category)
	assert.Equal(t, SeverityInfo, err.Severity)
}

func TestIsRetryable_ChecksRetryableFlag(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "retryable partsearch error",
			err:      New(ErrCodeIndexTimeout, "timeout", nil),
			expected: true,
		},
		{
			name:     "non-retryable partsearch error",
			err:      New(ErrCodeDatasetNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "wrapped retryable error",
			err:      Wrap(ErrCodeIndexTimeout, errors.New("wrapped")),
			expected: true,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsRetryable(tt.err))
		})
	}
}

func TestIsFatal_ChecksFatalSeverity(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "db unavailable is fatal",
			err:      New(ErrCodeDBUnavailable, "database unreachable", nil),
			expected: true,
		},
		{
			name:     "disk full is fatal",
			err:      New(ErrCodeDiskFull, "no space left", nil),
			expected: true,
		},
		{
			name:     "non-fatal error",
			err:      New(ErrCodeDatasetNotFound, "not found", nil),
			expected: false,
		},
		{
			name:     "standard error",
			err:      errors.New("standard error"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsFatal(tt.err))
		})
	}
}
