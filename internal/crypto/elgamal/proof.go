package elgamal

import "fmt"

const (
	inputDomain         = "hidden-role/v1/input"
	chaumPedersenDomain = "hidden-role/v1/chaum-pedersen-eqdl"

	inputProofBytes = pointBytes + scalarBytes
	// D(32) || A(32) || B(32) || s(32)
	shareProofBytes = 3*pointBytes + scalarBytes
)

// ciphertext is an ElGamal encryption under recipient key y:
//
//	c1 = r*G, c2 = m*G + r*y
type ciphertext struct {
	y  point
	c1 point
	c2 point
}

const handleBytes = 3 * pointBytes

func (c ciphertext) bytes() []byte {
	out := make([]byte, 0, handleBytes)
	out = append(out, c.y.bytes()...)
	out = append(out, c.c1.bytes()...)
	return append(out, c.c2.bytes()...)
}

func decodeCiphertext(b []byte) (ciphertext, error) {
	if len(b) != handleBytes {
		return ciphertext{}, fmt.Errorf("ciphertext: expected %d bytes, got %d", handleBytes, len(b))
	}
	y, err := pointFromBytes(b[0:32])
	if err != nil {
		return ciphertext{}, err
	}
	c1, err := pointFromBytes(b[32:64])
	if err != nil {
		return ciphertext{}, err
	}
	c2, err := pointFromBytes(b[64:96])
	if err != nil {
		return ciphertext{}, err
	}
	return ciphertext{y: y, c1: c1, c2: c2}, nil
}

// inputChallenge binds a knowledge-of-randomness proof to the contract and
// account so a sealed input cannot be replayed elsewhere.
func inputChallenge(ct ciphertext, a point, contract, account string) scalar {
	return newTranscript(inputDomain).
		message("contract", []byte(contract)).
		message("account", []byte(account)).
		message("y", ct.y.bytes()).
		message("c1", ct.c1.bytes()).
		message("c2", ct.c2.bytes()).
		message("a", a.bytes()).
		challenge("e")
}

// proveInput is a Schnorr proof of knowledge of r with c1 = r*G.
func proveInput(ct ciphertext, r, w scalar, contract, account string) []byte {
	a := mulBase(w)
	e := inputChallenge(ct, a, contract, account)
	s := scalarAdd(w, scalarMul(e, r))
	return append(a.bytes(), s.bytes()...)
}

func verifyInput(ct ciphertext, proof []byte, contract, account string) error {
	if len(proof) != inputProofBytes {
		return fmt.Errorf("input proof: expected %d bytes", inputProofBytes)
	}
	a, err := pointFromBytes(proof[:pointBytes])
	if err != nil {
		return err
	}
	s, err := scalarFromBytes(proof[pointBytes:])
	if err != nil {
		return err
	}
	e := inputChallenge(ct, a, contract, account)
	// s*G == a + e*c1
	if !mulBase(s).equal(add(a, mul(ct.c1, e))) {
		return fmt.Errorf("input proof does not verify")
	}
	return nil
}

type shareProof struct {
	d point // x*c1
	a point // w*G
	b point // w*c1
	s scalar
}

func shareChallenge(y, c1, d, a, b point) scalar {
	return newTranscript(chaumPedersenDomain).
		message("y", y.bytes()).
		message("c1", c1.bytes()).
		message("d", d.bytes()).
		message("a", a.bytes()).
		message("b", b.bytes()).
		challenge("e")
}

// proveShare shows log_G(y) == log_c1(d) without revealing x.
func proveShare(ct ciphertext, x, w scalar) shareProof {
	d := mul(ct.c1, x)
	a := mulBase(w)
	b := mul(ct.c1, w)
	e := shareChallenge(ct.y, ct.c1, d, a, b)
	return shareProof{d: d, a: a, b: b, s: scalarAdd(w, scalarMul(e, x))}
}

func (p shareProof) bytes() []byte {
	out := make([]byte, 0, shareProofBytes)
	out = append(out, p.d.bytes()...)
	out = append(out, p.a.bytes()...)
	out = append(out, p.b.bytes()...)
	return append(out, p.s.bytes()...)
}

func decodeShareProof(b []byte) (shareProof, error) {
	if len(b) != shareProofBytes {
		return shareProof{}, fmt.Errorf("share proof: expected %d bytes", shareProofBytes)
	}
	var p shareProof
	var err error
	if p.d, err = pointFromBytes(b[0:32]); err != nil {
		return shareProof{}, err
	}
	if p.a, err = pointFromBytes(b[32:64]); err != nil {
		return shareProof{}, err
	}
	if p.b, err = pointFromBytes(b[64:96]); err != nil {
		return shareProof{}, err
	}
	if p.s, err = scalarFromBytes(b[96:128]); err != nil {
		return shareProof{}, err
	}
	return p, nil
}

func verifyShare(ct ciphertext, p shareProof) bool {
	e := shareChallenge(ct.y, ct.c1, p.d, p.a, p.b)
	// s*G == a + e*y
	if !mulBase(p.s).equal(add(p.a, mul(ct.y, e))) {
		return false
	}
	// s*c1 == b + e*d
	return mul(ct.c1, p.s).equal(add(p.b, mul(p.d, e)))
}
