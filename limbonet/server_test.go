package limbonet

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"

	"LIMBO/limbo"
	"LIMBO/limboserde"
	"LIMBO/limboterm"
	"LIMBO/limbotxn"
	"LIMBO/limbowal"
)

// testKit starts a real in-process gRPC server over bufconn and
// returns a connected Client plus the underlying Limbo and a closer.
func testKit(t *testing.T) (*Client, *limbo.Limbo, func()) {
	t.Helper()
	l := limbo.New(limbo.Config{
		InstanceID:    "r1",
		Quorum:        2,
		Timeout:       time.Second,
		ConfirmWindow: time.Millisecond,
		Journal:       limbowal.NewMem(64),
		Term:          limboterm.NewTracker(1),
		Replicas:      []string{"r1", "r2"},
	})
	// Claim ownership the same way a fresh cluster's first PROMOTE would,
	// rather than reaching into unexported state from outside the package.
	assert.NoError(t, l.WritePromote(context.Background(), "r1", 0, 1))

	lis := bufconn.Listen(1024 * 1024)
	gs := grpc.NewServer()
	Register(gs, &Server{L: l})
	go gs.Serve(lis)

	dialer := func(context.Context, string) (net.Conn, error) { return lis.Dial() }
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	conn, err := grpc.DialContext(ctx, "bufnet",
		grpc.WithContextDialer(dialer),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithBlock())
	assert.NoError(t, err)

	client := NewClient(conn)
	closer := func() {
		conn.Close()
		gs.Stop()
		l.Shutdown()
	}
	return client, l, closer
}

func pollUntil(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return cond()
}

func TestAckOverWire(t *testing.T) {
	client, l, closer := testKit(t)
	defer closer()

	txn := limbotxn.New(1, 10)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 7)

	err = client.Ack(context.Background(), "r2", 7)
	assert.NoError(t, err)

	ok := pollUntil(t, time.Second, func() bool { return e.IsCommit })
	assert.True(t, ok, "expected the remote ack to push the entry to quorum")
}

func TestSynchroOverWireRejectsSplitBrain(t *testing.T) {
	client, l, closer := testKit(t)
	defer closer()
	l.RestoreCheckpoint(&limboserde.Request{LSN: 10, ConfirmedVClock: map[string]int64{"r1": 10}})

	resp, err := client.Synchro(context.Background(), &SynchroRequest{
		Type: string(limboserde.Confirm), ReplicaID: "r1", OriginID: "r2", LSN: 5,
	})
	assert.NoError(t, err)
	assert.NotEmpty(t, resp.Error)
}

func TestSynchroOverWireAcceptsPromote(t *testing.T) {
	client, l, closer := testKit(t)
	defer closer()

	txn := limbotxn.New(1, 10)
	e, err := l.Append(txn, "r1", true)
	assert.NoError(t, err)
	l.AssignLocalLSN(e, 30)

	resp, err := client.Synchro(context.Background(), &SynchroRequest{
		Type: string(limboserde.Promote), OriginID: "r2", NewOwnerID: "r2", LSN: 30, Term: 2,
	})
	assert.NoError(t, err)
	assert.Empty(t, resp.Error)
	assert.Equal(t, "r2", l.OwnerID())
}
