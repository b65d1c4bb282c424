package limbonet

import "LIMBO/limboserde"

// AckRequest reports that ReplicaID has durably written through LSN in
// its own local WAL (spec.md §4.B ack aggregator input).
type AckRequest struct {
	ReplicaID string `json:"replica_id"`
	LSN       int64  `json:"lsn"`
}

type AckResponse struct{}

// SynchroRequest is the wire envelope for a CONFIRM/ROLLBACK/PROMOTE/
// DEMOTE row arriving from another instance (spec.md §4.F), mirroring
// limboserde.Request's fields so the two line up one-to-one.
type SynchroRequest struct {
	Type            string           `json:"type"`
	ReplicaID       string           `json:"replica_id"`
	OriginID        string           `json:"origin_id"`
	NewOwnerID      string           `json:"new_owner_id,omitempty"`
	LSN             int64            `json:"lsn"`
	Term            uint64           `json:"term"`
	ConfirmedVClock map[string]int64 `json:"confirmed_vclock,omitempty"`
}

type SynchroResponse struct {
	// Error carries a failed Process()'s message. gRPC status codes are
	// reserved for transport-level failures; a rejected synchro request
	// (split brain, unsupported) is a normal, expected outcome the caller
	// must branch on, so it travels as a response field instead.
	Error string `json:"error,omitempty"`
}

func toSerde(r *SynchroRequest) *limboserde.Request {
	return &limboserde.Request{
		Type:            limboserde.Type(r.Type),
		ReplicaID:       r.ReplicaID,
		OriginID:        r.OriginID,
		NewOwnerID:      r.NewOwnerID,
		LSN:             r.LSN,
		Term:            r.Term,
		ConfirmedVClock: r.ConfirmedVClock,
	}
}

func fromSerde(r *limboserde.Request) *SynchroRequest {
	return &SynchroRequest{
		Type:            string(r.Type),
		ReplicaID:       r.ReplicaID,
		OriginID:        r.OriginID,
		NewOwnerID:      r.NewOwnerID,
		LSN:             r.LSN,
		Term:            r.Term,
		ConfirmedVClock: r.ConfirmedVClock,
	}
}
