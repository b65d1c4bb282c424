// Package limboserde encodes and decodes the on-wire SynchroRequest row
// named in spec.md §6 ("Serializer: encodes a SynchroRequest{...} into
// a row body whose on-wire layout is defined by the serializer"). The
// teacher encodes every gossip/log body the same way — goccy/go-json
// over a plain struct (configs.JPrint/JToString, network/coordinator's
// CoordinatorGossip packs) — so this package follows suit rather than
// inventing a binary format.
package limboserde

import (
	"fmt"

	"github.com/goccy/go-json"
)

// Type enumerates the synchro request kinds (spec.md §4.F).
type Type string

const (
	Confirm  Type = "CONFIRM"
	Rollback Type = "ROLLBACK"
	Promote  Type = "PROMOTE"
	Demote   Type = "DEMOTE"
)

// Request is the wire row for a synchro request. ReplicaID is the
// generic filter's field (spec.md §4.F step 1): NIL for PROMOTE/DEMOTE,
// otherwise must equal the current owner. NewOwnerID is PROMOTE's own
// `owner_id` field (spec.md §3's PROMOTE{owner_id, lsn, term}) — the
// instance taking over ownership; unused by CONFIRM/ROLLBACK/DEMOTE.
type Request struct {
	Type            Type             `json:"type"`
	ReplicaID       string           `json:"replica_id"`
	OriginID        string           `json:"origin_id"`
	NewOwnerID      string           `json:"new_owner_id,omitempty"`
	LSN             int64            `json:"lsn"`
	Term            uint64           `json:"term"`
	ConfirmedVClock map[string]int64 `json:"confirmed_vclock,omitempty"`
}

// Encode renders a Request as its wire body.
func Encode(r *Request) ([]byte, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return nil, fmt.Errorf("limboserde: encode %+v: %w", r, err)
	}
	return b, nil
}

// Decode parses a wire body into a Request.
func Decode(body []byte) (*Request, error) {
	var r Request
	if err := json.Unmarshal(body, &r); err != nil {
		return nil, fmt.Errorf("limboserde: decode: %w", err)
	}
	return &r, nil
}
