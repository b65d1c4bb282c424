package limbovclock

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
)

func TestFollowIdempotentAndMonotone(t *testing.T) {
	v := New()
	prev, advanced := v.Follow("r2", 10)
	assert.Equal(t, int64(-1), prev)
	assert.True(t, advanced)
	assert.Equal(t, int64(10), v.Get("r2"))

	// L2 <= L1 is a no-op (Testable Property 5).
	prev, advanced = v.Follow("r2", 5)
	assert.Equal(t, int64(10), prev)
	assert.False(t, advanced)
	assert.Equal(t, int64(10), v.Get("r2"))

	prev, advanced = v.Follow("r2", 11)
	assert.Equal(t, int64(10), prev)
	assert.True(t, advanced)
	assert.Equal(t, int64(11), v.Get("r2"))
}

func TestQuorumLSN(t *testing.T) {
	v := New()
	v.Follow("r1", 10)
	v.Follow("r2", 8)
	v.Follow("r3", 12)

	// quorum=2 out of 3: the 1st-smallest (N-q=1) is the confirmable LSN.
	lsn, ok := v.QuorumLSN(2)
	if !ok || lsn != 10 {
		t.Fatalf("QuorumLSN(2) = (%v, %v), want (10, true)", lsn, ok)
	}

	// quorum=3 requires all three: the 0th-smallest.
	lsn, ok = v.QuorumLSN(3)
	if !ok || lsn != 8 {
		t.Fatalf("QuorumLSN(3) = (%v, %v), want (8, true)", lsn, ok)
	}

	// quorum exceeds tracked replicas.
	if _, ok := v.QuorumLSN(4); ok {
		t.Fatalf("QuorumLSN(4) should fail with only 3 replicas tracked")
	}
}

func TestCountGE(t *testing.T) {
	v := New()
	v.Follow("r1", 10)
	v.Follow("r2", 8)
	v.Follow("r3", 12)
	assert.Equal(t, 2, v.CountGE(10))
	assert.Equal(t, 3, v.CountGE(5))
	assert.Equal(t, 0, v.CountGE(13))
}

func TestCopyIsIndependent(t *testing.T) {
	v := New()
	v.Follow("r1", 10)
	snap := v.Copy()
	v.Follow("r1", 20)
	assert.Equal(t, int64(10), snap.Get("r1"))
	assert.Equal(t, int64(20), v.Get("r1"))
}

func TestSnapshotRoundTrip(t *testing.T) {
	v := New()
	v.Follow("r1", 10)
	v.Follow("r2", 20)
	restored := FromSnapshot(v.Snapshot())
	if diff := cmp.Diff(v.Snapshot(), restored.Snapshot()); diff != "" {
		t.Fatalf("snapshot round trip mismatch (-want +got):\n%s", diff)
	}
}
