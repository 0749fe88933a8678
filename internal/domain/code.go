package domain

import "hash/fnv"

// codeAlphabet deliberately omits 0/O/1/I to keep codes readable when shared
// aloud or on a projector.
const codeAlphabet = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"

const codeLength = 6

// JoinCode derives the shareable 6-character code for a session ID. The
// derivation is deterministic so any node can recompute it without a lookup.
func JoinCode(sessionID string) string {
	h := fnv.New64a()
	h.Write([]byte(sessionID))
	sum := h.Sum64()

	buf := make([]byte, codeLength)
	for i := range buf {
		buf[i] = codeAlphabet[sum%uint64(len(codeAlphabet))]
		sum /= uint64(len(codeAlphabet))
	}
	return string(buf)
}
