package domain

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestErrors_Existence tests that all error variables exist and are not nil
func TestErrors_Existence(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"ErrNotFound", ErrNotFound},
		{"ErrInvalidInput", ErrInvalidInput},
		{"ErrUnsupportedType", ErrUnsupportedType},
		{"ErrLLMUnavailable", ErrLLMUnavailable},
		{"ErrEmbeddingUnavailable", ErrEmbeddingUnavailable},
		{"ErrValidation", ErrValidation},
		{"ErrNoDocumentsIngested", ErrNoDocumentsIngested},
		{"ErrUnsupportedFileType", ErrUnsupportedFileType},
		{"ErrExtraction", ErrExtraction},
		{"ErrIndexIO", ErrIndexIO},
		{"ErrIndexCorrupt", ErrIndexCorrupt},
		{"ErrModelUnavailable", ErrModelUnavailable},
		{"ErrTimeout", ErrTimeout},
		{"ErrRetrieverNotFound", ErrRetrieverNotFound},
		{"ErrRetrieverNotAttached", ErrRetrieverNotAttached},
		{"ErrComparisonParse", ErrComparisonParse},
		{"ErrAnalysisParse", ErrAnalysisParse},
		{"ErrSessionNotFound", ErrSessionNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NotNil(t, tt.err)
			assert.NotEmpty(t, tt.err.Error())
		})
	}
}

func TestValidationErrors_WrapErrValidation(t *testing.T) {
	assert.ErrorIs(t, ErrNoDocumentsIngested, ErrValidation)
	assert.ErrorIs(t, ErrUnsupportedFileType, ErrValidation)
	assert.NotErrorIs(t, ErrExtraction, ErrValidation)
	assert.ErrorIs(t, ErrSessionNotFound, ErrNotFound)
}

func TestOpError(t *testing.T) {
	t.Run("with namespace", func(t *testing.T) {
		err := NewOpError("ingest", "session_1", ErrExtraction)
		assert.Equal(t, "ingest [session_1]: text extraction failed", err.Error())
		assert.ErrorIs(t, err, ErrExtraction)
	})

	t.Run("without namespace", func(t *testing.T) {
		err := NewOpError("compare", "", ErrComparisonParse)
		assert.Equal(t, "compare: comparison output could not be parsed", err.Error())
	})

	t.Run("nil error", func(t *testing.T) {
		assert.NoError(t, NewOpError("ingest", "ns", nil))
	})

	t.Run("no double wrap", func(t *testing.T) {
		inner := NewOpError("ingest", "ns", ErrIndexIO)
		outer := NewOpError("ingest", "ns", inner)
		assert.Same(t, inner, outer)
	})

	t.Run("errors.As exposes context", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", NewOpError("ask", "session_2", ErrTimeout))
		var opErr *OpError
		require.True(t, errors.As(err, &opErr))
		assert.Equal(t, "ask", opErr.Op)
		assert.Equal(t, "session_2", opErr.Namespace)
	})
}

func TestIsRetryable(t *testing.T) {
	assert.True(t, IsRetryable(ErrTimeout))
	assert.True(t, IsRetryable(fmt.Errorf("x: %w", ErrModelUnavailable)))
	assert.True(t, IsRetryable(NewOpError("ingest", "ns", ErrEmbeddingUnavailable)))
	assert.False(t, IsRetryable(ErrValidation))
	assert.False(t, IsRetryable(ErrIndexCorrupt))
	assert.False(t, IsRetryable(nil))
}

func TestClassifyCollaboratorError(t *testing.T) {
	assert.NoError(t, ClassifyCollaboratorError(nil, ErrModelUnavailable))

	deadline := ClassifyCollaboratorError(context.DeadlineExceeded, ErrModelUnavailable)
	assert.ErrorIs(t, deadline, ErrTimeout)
	assert.ErrorIs(t, deadline, context.DeadlineExceeded)

	other := ClassifyCollaboratorError(errors.New("boom"), ErrModelUnavailable)
	assert.ErrorIs(t, other, ErrModelUnavailable)
	assert.Contains(t, other.Error(), "boom")

	already := fmt.Errorf("%w: x", ErrExtraction)
	assert.Same(t, already, ClassifyCollaboratorError(already, ErrExtraction))
}
