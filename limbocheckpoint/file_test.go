package limbocheckpoint

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"LIMBO/limboserde"
)

func TestFileBackendRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "checkpoint.json")
	b := NewFileBackend(path)
	defer b.Close()

	got, err := b.Load(context.Background())
	assert.NoError(t, err)
	assert.Empty(t, got.ConfirmedVClock)

	want := &limboserde.Request{
		Type: limboserde.Confirm, LSN: 42,
		ConfirmedVClock: map[string]int64{"r1": 42, "r2": 40},
	}
	assert.NoError(t, b.Save(context.Background(), want))

	got, err = b.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, want.LSN, got.LSN)
	assert.Equal(t, want.ConfirmedVClock, got.ConfirmedVClock)
}

func TestFileBackendOverwrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "checkpoint.json")
	b := NewFileBackend(path)
	defer b.Close()

	assert.NoError(t, b.Save(context.Background(), &limboserde.Request{LSN: 1}))
	assert.NoError(t, b.Save(context.Background(), &limboserde.Request{LSN: 2}))

	got, err := b.Load(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, int64(2), got.LSN)
}
