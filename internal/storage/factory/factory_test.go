package factory_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DjordjeVuckovic/regkb/internal/storage"
	"github.com/DjordjeVuckovic/regkb/internal/storage/factory"
)

func TestNew_Memory(t *testing.T) {
	b, err := factory.New(context.Background(), factory.Config{Type: storage.InMem})
	require.NoError(t, err)
	defer b.Close()

	assert.NotNil(t, b.Store)
	assert.NotNil(t, b.Vectors)
	assert.Same(t, b.Store, b.Lexical)
	assert.Nil(t, b.Indexer)
	require.Len(t, b.Health, 1)
	assert.Equal(t, "memory", b.Health[0].Name())
	assert.True(t, b.Health[0].Healthy(context.Background()))
}

func TestNew_Unsupported(t *testing.T) {
	_, err := factory.New(context.Background(), factory.Config{Type: "sqlite"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported storage type")
}
