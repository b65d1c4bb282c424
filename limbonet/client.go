package limbonet

import (
	"context"

	"google.golang.org/grpc"
)

// Client calls a remote Server's Ack/Synchro RPCs.
type Client struct {
	cc grpc.ClientConnInterface
}

// NewClient wraps an already-dialed connection.
func NewClient(cc grpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

// Dial opens a connection to addr wired for limbonet's JSON codec,
// mirroring the teacher's own `grpc.Dial(addr, grpc.WithInsecure())`
// call site in network/detector/qtable.go; callers supply opts (TLS or
// insecure credentials, keepalive, etc.) the same way.
func Dial(addr string, opts ...grpc.DialOption) (*grpc.ClientConn, *Client, error) {
	conn, err := grpc.Dial(addr, opts...)
	if err != nil {
		return nil, nil, err
	}
	return conn, NewClient(conn), nil
}

// Ack reports to the remote owner that replicaID has durably written
// through lsn.
func (c *Client) Ack(ctx context.Context, replicaID string, lsn int64) error {
	return c.cc.Invoke(ctx, "/"+ServiceName+"/Ack",
		&AckRequest{ReplicaID: replicaID, LSN: lsn}, new(AckResponse),
		grpc.CallContentSubtype(codecName))
}

// Synchro replicates a CONFIRM/ROLLBACK/PROMOTE/DEMOTE row to the
// remote instance.
func (c *Client) Synchro(ctx context.Context, req *SynchroRequest) (*SynchroResponse, error) {
	out := new(SynchroResponse)
	if err := c.cc.Invoke(ctx, "/"+ServiceName+"/Synchro", req, out, grpc.CallContentSubtype(codecName)); err != nil {
		return nil, err
	}
	return out, nil
}
