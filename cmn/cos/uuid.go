// Package cos: identifier generation for session and instance ids.
/*
 * Copyright (c) 2024, U.S. Naval Research Laboratory.
 */
package cos

import (
	"sync"

	"github.com/OneOfOne/xxhash"
	"github.com/teris-io/shortid"
)

const uuidABC = "-5nZJDft6LuzsjGNpPwY7rQa39vehq4i1cV2FROo8yHSlC0BUEdWbIxMmTgKXAk_"

var (
	sidOnce sync.Once
	sid     *shortid.Shortid
)

func initShortID() {
	sid = shortid.MustNew(1, uuidABC, 0)
}

// GenUUID returns a short, printable, collision-resistant string id, used
// for session trace tags and log correlation (not part of the wire format).
func GenUUID() string {
	sidOnce.Do(initShortID)
	return sid.MustGenerate()
}

// HashSeed derives a deterministic 32-bit seed from a string (xxhash32).
// session.New hashes its freshly generated trace id with it to derive
// LocalInstanceId; no other entropy is added.
func HashSeed(s string) uint32 {
	return xxhash.ChecksumString32(s)
}
