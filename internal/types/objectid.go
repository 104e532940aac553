package types

import (
	"crypto/rand"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// ObjectID is the classic 12-byte MongoDB identifier: a 4-byte timestamp,
// a 5-byte random value drawn for each ID, and a 3-byte counter.
type ObjectID [12]byte

var objectIDCounter uint32

// NewObjectID generates a fresh ObjectID from the current time.
func NewObjectID() ObjectID {
	var id ObjectID

	ts := uint32(time.Now().Unix())
	id[0], id[1], id[2], id[3] = byte(ts>>24), byte(ts>>16), byte(ts>>8), byte(ts)

	_, _ = rand.Read(id[4:9])

	c := atomic.AddUint32(&objectIDCounter, 1)
	id[9], id[10], id[11] = byte(c>>16), byte(c>>8), byte(c)

	return id
}

// String returns the lowercase hex encoding of the ObjectID.
func (id ObjectID) String() string {
	return hex.EncodeToString(id[:])
}

// Timestamp returns the embedded creation time.
func (id ObjectID) Timestamp() time.Time {
	ts := uint32(id[0])<<24 | uint32(id[1])<<16 | uint32(id[2])<<8 | uint32(id[3])
	return time.Unix(int64(ts), 0).UTC()
}
