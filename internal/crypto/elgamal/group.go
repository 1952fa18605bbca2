package elgamal

import (
	"fmt"
	"io"

	"github.com/gtank/ristretto255"
)

const pointBytes = 32
const scalarBytes = 32

type point struct {
	v ristretto255.Element
}

type scalar struct {
	v ristretto255.Scalar
}

func pointFromBytes(b []byte) (point, error) {
	if len(b) != pointBytes {
		return point{}, fmt.Errorf("point: expected %d bytes", pointBytes)
	}
	var p point
	if _, err := p.v.SetCanonicalBytes(b); err != nil {
		return point{}, fmt.Errorf("point: non-canonical: %w", err)
	}
	return p, nil
}

func (p point) bytes() []byte { return p.v.Bytes() }

func (p point) equal(q point) bool { return p.v.Equal(&q.v) == 1 }

func add(a, b point) point {
	var out point
	out.v.Add(&a.v, &b.v)
	return out
}

func sub(a, b point) point {
	var out point
	out.v.Subtract(&a.v, &b.v)
	return out
}

func mulBase(k scalar) point {
	var out point
	out.v.ScalarBaseMult(&k.v)
	return out
}

func mul(p point, k scalar) point {
	var out point
	out.v.ScalarMult(&k.v, &p.v)
	return out
}

func scalarFromUint64(x uint64) scalar {
	var b [scalarBytes]byte
	for i := 0; i < 8; i++ {
		b[i] = byte(x >> (8 * i))
	}
	var s scalar
	// Any uint64 is below the group order, so the encoding is canonical.
	_, _ = s.v.SetCanonicalBytes(b[:])
	return s
}

func scalarFromBytes(b []byte) (scalar, error) {
	if len(b) != scalarBytes {
		return scalar{}, fmt.Errorf("scalar: expected %d bytes", scalarBytes)
	}
	var s scalar
	if _, err := s.v.SetCanonicalBytes(b); err != nil {
		return scalar{}, fmt.Errorf("scalar: non-canonical: %w", err)
	}
	return s, nil
}

func scalarFromUniform(b []byte) (scalar, error) {
	if len(b) != 64 {
		return scalar{}, fmt.Errorf("scalar: expected 64 uniform bytes")
	}
	var s scalar
	s.v.FromUniformBytes(b)
	return s, nil
}

func (s scalar) bytes() []byte { return s.v.Bytes() }

func (s scalar) isZero() bool {
	var z ristretto255.Scalar
	return s.v.Equal(&z) == 1
}

func scalarAdd(a, b scalar) scalar {
	var out scalar
	out.v.Add(&a.v, &b.v)
	return out
}

func scalarMul(a, b scalar) scalar {
	var out scalar
	out.v.Multiply(&a.v, &b.v)
	return out
}

// randomScalar draws a non-zero scalar from r.
func randomScalar(r io.Reader) (scalar, error) {
	var buf [64]byte
	for {
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return scalar{}, fmt.Errorf("read randomness: %w", err)
		}
		s, err := scalarFromUniform(buf[:])
		if err != nil {
			return scalar{}, err
		}
		if !s.isZero() {
			return s, nil
		}
	}
}
