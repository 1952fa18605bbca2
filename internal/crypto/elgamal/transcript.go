package elgamal

import (
	"crypto/sha512"
	"encoding/binary"
)

var transcriptPrefix = []byte("hidden-role|transcript|")

// transcript is a Fiat-Shamir transcript. It keeps the raw bytes because
// sha512 state cannot be cloned.
type transcript struct {
	state []byte
}

func newTranscript(domain string) *transcript {
	t := &transcript{state: append([]byte{}, transcriptPrefix...)}
	t.appendLen([]byte(domain))
	return t
}

func (t *transcript) appendLen(b []byte) {
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(b)))
	t.state = append(t.state, n[:]...)
	t.state = append(t.state, b...)
}

func (t *transcript) message(label string, msg []byte) *transcript {
	t.state = append(t.state, "msg"...)
	t.appendLen([]byte(label))
	t.appendLen(msg)
	return t
}

func (t *transcript) challenge(label string) scalar {
	h := sha512.New()
	h.Write(t.state)
	h.Write([]byte("challenge"))
	var n [4]byte
	binary.LittleEndian.PutUint32(n[:], uint32(len(label)))
	h.Write(n[:])
	h.Write([]byte(label))
	// 64 bytes in, so the error path cannot trigger.
	s, _ := scalarFromUniform(h.Sum(nil))
	return s
}
