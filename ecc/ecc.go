// Copyright (c) 2025 The btcsuite developers
// Use of this source code is governed by an ISC
// license that can be found in the LICENSE file.

// Package ecc defines the elliptic curve backend consumed by the descriptor
// engine and provides the default secp256k1 implementation.
package ecc

import (
	"errors"
	"fmt"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
)

var (
	// ErrInvalidPoint is returned when a byte slice is not a valid
	// serialized curve point.
	ErrInvalidPoint = errors.New("invalid point")

	// ErrInvalidScalar is returned when a scalar is zero or not below the
	// curve order.
	ErrInvalidScalar = errors.New("invalid scalar")

	// ErrPointAtInfinity is returned when an operation results in the
	// point at infinity, which has no serialization.
	ErrPointAtInfinity = errors.New("point at infinity")
)

// Backend exposes the curve operations needed to expand descriptors. It is
// injected into the descriptor factory so callers can swap the
// implementation, e.g. for a hardware backed one.
type Backend interface {
	// IsPoint reports whether p is a valid compressed (33 bytes) or
	// uncompressed (65 bytes) point.
	IsPoint(p []byte) bool

	// PointCompress re-serializes p in compressed or uncompressed form.
	PointCompress(p []byte, compressed bool) ([]byte, error)

	// PointFromScalar returns d*G.
	PointFromScalar(d []byte, compressed bool) ([]byte, error)

	// PointAdd returns a+b.
	PointAdd(a, b []byte, compressed bool) ([]byte, error)

	// PointAddScalar returns p+t*G.
	PointAddScalar(p, tweak []byte, compressed bool) ([]byte, error)

	// SignSchnorr creates a BIP-340 signature over the 32 byte hash.
	SignSchnorr(hash, privKey []byte) ([]byte, error)

	// VerifySchnorr verifies a BIP-340 signature against an x-only public
	// key.
	VerifySchnorr(hash, xOnlyPubKey, sig []byte) bool
}

// secp256k1Backend is the btcec/dcrd based Backend.
type secp256k1Backend struct{}

// A compile-time assertion to ensure secp256k1Backend meets the Backend
// interface.
var _ Backend = (*secp256k1Backend)(nil)

// Secp256k1 returns the default Backend.
func Secp256k1() Backend {
	return &secp256k1Backend{}
}

// serialize encodes the public key in the requested form.
func serialize(pub *btcec.PublicKey, compressed bool) []byte {
	if compressed {
		return pub.SerializeCompressed()
	}

	return pub.SerializeUncompressed()
}

// parsePoint parses a compressed or uncompressed point.
func parsePoint(p []byte) (*btcec.PublicKey, error) {
	if len(p) != btcec.PubKeyBytesLenCompressed &&
		len(p) != secp256k1.PubKeyBytesLenUncompressed {

		return nil, fmt.Errorf("%w: length %d", ErrInvalidPoint, len(p))
	}

	pub, err := btcec.ParsePubKey(p)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPoint, err)
	}

	return pub, nil
}

// parseScalar parses a 32 byte scalar in [1, N).
func parseScalar(d []byte) (*secp256k1.ModNScalar, error) {
	if len(d) != 32 {
		return nil, fmt.Errorf("%w: length %d", ErrInvalidScalar, len(d))
	}

	var s secp256k1.ModNScalar
	if overflow := s.SetByteSlice(d); overflow || s.IsZero() {
		return nil, ErrInvalidScalar
	}

	return &s, nil
}

// fromJacobian converts the result of a Jacobian computation back into a
// public key.
func fromJacobian(p *secp256k1.JacobianPoint) (*btcec.PublicKey, error) {
	if (p.X.IsZero() && p.Y.IsZero()) || p.Z.IsZero() {
		return nil, ErrPointAtInfinity
	}
	p.ToAffine()

	return secp256k1.NewPublicKey(&p.X, &p.Y), nil
}

// IsPoint reports whether p is a valid serialized point.
func (s *secp256k1Backend) IsPoint(p []byte) bool {
	_, err := parsePoint(p)
	return err == nil
}

// PointCompress re-serializes p.
func (s *secp256k1Backend) PointCompress(p []byte,
	compressed bool) ([]byte, error) {

	pub, err := parsePoint(p)
	if err != nil {
		return nil, err
	}

	return serialize(pub, compressed), nil
}

// PointFromScalar returns d*G.
func (s *secp256k1Backend) PointFromScalar(d []byte,
	compressed bool) ([]byte, error) {

	if _, err := parseScalar(d); err != nil {
		return nil, err
	}

	_, pub := btcec.PrivKeyFromBytes(d)

	return serialize(pub, compressed), nil
}

// PointAdd returns a+b.
func (s *secp256k1Backend) PointAdd(a, b []byte,
	compressed bool) ([]byte, error) {

	pa, err := parsePoint(a)
	if err != nil {
		return nil, err
	}
	pb, err := parsePoint(b)
	if err != nil {
		return nil, err
	}

	var ja, jb, sum secp256k1.JacobianPoint
	pa.AsJacobian(&ja)
	pb.AsJacobian(&jb)
	secp256k1.AddNonConst(&ja, &jb, &sum)

	pub, err := fromJacobian(&sum)
	if err != nil {
		return nil, err
	}

	return serialize(pub, compressed), nil
}

// PointAddScalar returns p+t*G.
func (s *secp256k1Backend) PointAddScalar(p, tweak []byte,
	compressed bool) ([]byte, error) {

	pub, err := parsePoint(p)
	if err != nil {
		return nil, err
	}
	t, err := parseScalar(tweak)
	if err != nil {
		return nil, err
	}

	var jp, jt, sum secp256k1.JacobianPoint
	pub.AsJacobian(&jp)
	secp256k1.ScalarBaseMultNonConst(t, &jt)
	secp256k1.AddNonConst(&jp, &jt, &sum)

	res, err := fromJacobian(&sum)
	if err != nil {
		return nil, err
	}

	return serialize(res, compressed), nil
}

// SignSchnorr creates a BIP-340 signature.
func (s *secp256k1Backend) SignSchnorr(hash, privKey []byte) ([]byte, error) {
	if _, err := parseScalar(privKey); err != nil {
		return nil, err
	}

	priv, _ := btcec.PrivKeyFromBytes(privKey)
	sig, err := schnorr.Sign(priv, hash)
	if err != nil {
		return nil, err
	}

	return sig.Serialize(), nil
}

// VerifySchnorr verifies a BIP-340 signature.
func (s *secp256k1Backend) VerifySchnorr(hash, xOnlyPubKey, sig []byte) bool {
	pub, err := schnorr.ParsePubKey(xOnlyPubKey)
	if err != nil {
		return false
	}

	parsed, err := schnorr.ParseSignature(sig)
	if err != nil {
		return false
	}

	return parsed.Verify(hash, pub)
}
