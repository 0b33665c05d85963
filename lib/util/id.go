package util

import (
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"github.com/google/uuid"
	"math/rand/v2"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const (
	// IDFormatHash derives ids from the clock, a random number and a sequence (default)
	IDFormatHash = "hash"
	// IDFormatUUID uses random (version 4) UUIDs without dashes
	IDFormatUUID = "uuid"
)

var (
	// idSeed is mixed into every hash so two processes started in the same
	// millisecond do not produce the same sequence of ids
	idSeed = GenerateSeed()

	// idSequence makes ids unique within one process even when the clock
	// and the random number repeat
	idSequence atomic.Uint64
)

// CreateID returns a 32 character lowercase hex correlation id.
//
// The id is derived from the current time in milliseconds, a random number in
// [10000, 19999] and a process wide sequence number. The concatenation is
// hashed, the decimal form of that hash is hashed again and both 64 bit values
// are written little endian into 16 bytes.
//
// The result is meant to avoid collisions between in-flight requests. It is
// not a secret and must not be used for authentication.
func CreateID() string {
	var sb strings.Builder
	sb.WriteString(strconv.FormatInt(time.Now().UnixMilli(), 10))
	sb.WriteString(strconv.Itoa(10000 + rand.IntN(10000)))
	sb.WriteString(strconv.FormatUint(idSequence.Add(1), 10))

	v1 := uint64(HashString(sb.String(), idSeed))
	v2 := uint64(HashString(strconv.FormatUint(v1, 10), idSeed))

	var b [16]byte
	binary.LittleEndian.PutUint64(b[:8], v1)
	binary.LittleEndian.PutUint64(b[8:], v2)
	return hex.EncodeToString(b[:])
}

// CreateUUID returns a random UUID rendered as 32 hex characters
func CreateUUID() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

// IDGenerator returns the id function for the given format ("" selects the default)
func IDGenerator(format string) (func() string, error) {
	switch strings.ToLower(format) {
	case "", IDFormatHash:
		return CreateID, nil
	case IDFormatUUID:
		return CreateUUID, nil
	default:
		return nil, fmt.Errorf("invalid id format %s (expected one of: %s, %s)", format, IDFormatHash, IDFormatUUID)
	}
}
