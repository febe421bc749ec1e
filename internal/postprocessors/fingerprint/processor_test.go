package fingerprint

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/docportal/internal/core/domain"
	"github.com/custodia-labs/docportal/internal/fingerprint"
)

func TestProcessor_Name(t *testing.T) {
	assert.Equal(t, "fingerprint", New().Name())
}

func TestProcessor_Process(t *testing.T) {
	chunks := []domain.Chunk{
		{ID: "a", Content: "first"},
		{ID: "b", Content: "second"},
		{ID: "c", Content: "first"},
	}

	out, err := New().Process(context.Background(), &domain.Document{}, chunks)

	require.NoError(t, err)
	require.Len(t, out, 3)
	assert.Equal(t, fingerprint.Of("first"), out[0].Fingerprint)
	assert.Equal(t, fingerprint.Of("second"), out[1].Fingerprint)
	assert.Equal(t, out[0].Fingerprint, out[2].Fingerprint)
}

func TestProcessor_Process_Nil(t *testing.T) {
	out, err := New().Process(context.Background(), &domain.Document{}, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}
