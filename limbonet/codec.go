// Package limbonet exposes the limbo core over gRPC: Ack and Synchro,
// the two operations a remote replica or the replication stream needs
// to drive (spec.md §6's network-consumed/exposed interfaces). The
// teacher declares google.golang.org/grpc but barely uses it
// (network/detector/qtable.go dials a hand-generated RL service); this
// package is what that dependency was always meant to become.
//
// Payloads are plain structs, not protoc-generated messages — there is
// no protoc invocation available in this environment, and the teacher
// itself encodes every wire body with goccy/go-json rather than
// protobuf (configs.JPrint/JToString, network/coordinator/msg.go).
// Registering a JSON grpc.encoding.Codec keeps the same wire-format
// choice while still running over real gRPC framing, keepalive, and
// multiplexing.
package limbonet

import (
	"fmt"

	"github.com/goccy/go-json"
	"google.golang.org/grpc/encoding"
)

const codecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("limbonet: marshal: %w", err)
	}
	return b, nil
}

func (jsonCodec) Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("limbonet: unmarshal: %w", err)
	}
	return nil
}

func (jsonCodec) Name() string { return codecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}
