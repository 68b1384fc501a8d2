package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_FormatIncludesScope(t *testing.T) {
	err := NewDataSourceError("service:BigQuery", "2025-01-01..2025-03-31", stderrors.New("timeout"))

	assert.Contains(t, err.Error(), "DATA_SOURCE_FAILED")
	assert.Contains(t, err.Error(), "service:BigQuery")
	assert.Contains(t, err.Error(), "2025-01-01..2025-03-31")
}

func TestError_UnwrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection reset")
	err := NewModelFitError("global", cause)

	assert.True(t, stderrors.Is(err, cause))
}

func TestIsCode_MatchesThroughWrapping(t *testing.T) {
	err := NewInvalidInputError("days must be positive")
	wrapped := fmt.Errorf("request failed: %w", err)

	assert.True(t, IsCode(wrapped, ErrCodeInvalidInput))
	assert.False(t, IsCode(wrapped, ErrCodeDataSource))
	assert.False(t, IsCode(stderrors.New("plain"), ErrCodeInvalidInput))
	assert.False(t, IsCode(nil, ErrCodeInvalidInput))
}

func TestSeverity_String(t *testing.T) {
	require.Equal(t, "error", SeverityError.String())
	require.Equal(t, "fatal", SeverityFatal.String())
	require.Equal(t, "unknown", Severity(42).String())
}
