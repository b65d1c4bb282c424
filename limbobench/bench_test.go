package limbobench

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"LIMBO/limbo"
	"LIMBO/limboterm"
	"LIMBO/limbowal"
)

func TestRunCommitsUnderQuorum(t *testing.T) {
	l := limbo.New(limbo.Config{
		InstanceID:    "r1",
		Quorum:        2,
		Timeout:       2 * time.Second,
		ConfirmWindow: time.Millisecond,
		Journal:       limbowal.NewMem(64),
		Term:          limboterm.NewTracker(1),
		Replicas:      []string{"r1", "r2"},
	})
	defer l.Shutdown()
	assert.NoError(t, l.WritePromote(context.Background(), "r1", 0, 1))

	stat := Run(context.Background(), l, Config{
		Clients:  4,
		Duration: 100 * time.Millisecond,
		Replicas: []string{"r2"},
	})

	msg := stat.Log(100 * time.Millisecond)
	assert.Contains(t, msg, "total:")
	assert.NotContains(t, msg, ";commit:0;")
}
