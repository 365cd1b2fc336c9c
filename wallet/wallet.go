package wallet

import (
	"bytes"
	"crypto/sha256"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	secpecdsa "github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/fxamacker/cbor/v2"
	"golang.org/x/crypto/ripemd160"
)

// ECDSA over secp256k1. A private key serializes as its raw 32-byte scalar,
// a public key as a 33-byte compressed point, a signature as DER —
// consistently across the whole system, because keys and signatures are
// embedded in consensus records and must round-trip through the canonical
// codec byte-exactly.

const (
	version        = byte(0x00)
	checksumLength = 4
)

// PrivateKey is a secp256k1 signing key.
type PrivateKey struct {
	key *secp256k1.PrivateKey
}

// NewPrivateKey generates a fresh random key.
func NewPrivateKey() (PrivateKey, error) {
	key, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return PrivateKey{}, err
	}
	return PrivateKey{key: key}, nil
}

// PublicKey returns the verifying half of the key.
func (p PrivateKey) PublicKey() PublicKey {
	return PublicKey{key: p.key.PubKey()}
}

// Sign produces an ECDSA signature over msg — the 32 little-endian bytes of
// an output hash.
func (p PrivateKey) Sign(msg []byte) Signature {
	return Signature{sig: secpecdsa.Sign(p.key, msg)}
}

// MarshalCBOR encodes the raw scalar bytes.
func (p PrivateKey) MarshalCBOR() ([]byte, error) {
	if p.key == nil {
		return nil, fmt.Errorf("cannot encode a zero private key")
	}
	return cbor.Marshal(p.key.Serialize())
}

// UnmarshalCBOR decodes a raw 32-byte scalar.
func (p *PrivateKey) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	if len(raw) != 32 {
		return fmt.Errorf("private key must be 32 bytes, got %d", len(raw))
	}
	p.key = secp256k1.PrivKeyFromBytes(raw)
	return nil
}

// PublicKey is a secp256k1 verifying key, the owner identity on outputs.
type PublicKey struct {
	key *secp256k1.PublicKey
}

// Equal reports whether two public keys are the same point.
func (p PublicKey) Equal(other PublicKey) bool {
	if p.key == nil || other.key == nil {
		return p.key == other.key
	}
	return p.key.IsEqual(other.key)
}

// Serialize returns the 33-byte compressed point.
func (p PublicKey) Serialize() []byte {
	if p.key == nil {
		return nil
	}
	return p.key.SerializeCompressed()
}

// MarshalCBOR encodes the compressed point.
func (p PublicKey) MarshalCBOR() ([]byte, error) {
	if p.key == nil {
		return nil, fmt.Errorf("cannot encode a zero public key")
	}
	return cbor.Marshal(p.key.SerializeCompressed())
}

// UnmarshalCBOR decodes a compressed point.
func (p *PublicKey) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	key, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return fmt.Errorf("parsing public key: %w", err)
	}
	p.key = key
	return nil
}

// Signature is a DER-encoded ECDSA signature over an output hash.
type Signature struct {
	sig *secpecdsa.Signature
}

// Verify reports whether the signature is valid for msg under the given
// key. A zero or malformed signature verifies false; nothing panics or
// propagates.
func (s Signature) Verify(msg []byte, pub PublicKey) bool {
	if s.sig == nil || pub.key == nil {
		return false
	}
	return s.sig.Verify(msg, pub.key)
}

// MarshalCBOR encodes the DER form.
func (s Signature) MarshalCBOR() ([]byte, error) {
	if s.sig == nil {
		return nil, fmt.Errorf("cannot encode a zero signature")
	}
	return cbor.Marshal(s.sig.Serialize())
}

// UnmarshalCBOR decodes a DER signature.
func (s *Signature) UnmarshalCBOR(data []byte) error {
	var raw []byte
	if err := cbor.Unmarshal(data, &raw); err != nil {
		return err
	}
	sig, err := secpecdsa.ParseDERSignature(raw)
	if err != nil {
		return fmt.Errorf("parsing signature: %w", err)
	}
	s.sig = sig
	return nil
}

// Wallet is one keypair. Addresses derive from the public key the Bitcoin
// way: base58check over version ‖ ripemd160(sha256(pubkey)).
type Wallet struct {
	_ struct{} `cbor:",toarray"`

	PrivateKey PrivateKey
}

// MakeWallet generates a wallet around a fresh key.
func MakeWallet() (*Wallet, error) {
	key, err := NewPrivateKey()
	if err != nil {
		return nil, err
	}
	return &Wallet{PrivateKey: key}, nil
}

// Address derives the wallet's base58check address.
func (w *Wallet) Address() string {
	pubHash := PublicKeyHash(w.PrivateKey.PublicKey())

	versionedHash := append([]byte{version}, pubHash...)
	checksum := Checksum(versionedHash)

	fullHash := append(versionedHash, checksum...)
	return string(Base58Encode(fullHash))
}

// PublicKeyHash computes ripemd160(sha256(compressed point)), the 20-byte
// identity inside an address.
func PublicKeyHash(pub PublicKey) []byte {
	pubHash := sha256.Sum256(pub.Serialize())

	hasher := ripemd160.New()
	if _, err := hasher.Write(pubHash[:]); err != nil {
		panic(fmt.Sprintf("BUG: ripemd160 write failed: %v", err))
	}
	return hasher.Sum(nil)
}

// Checksum is the first 4 bytes of a double SHA-256 over the payload.
func Checksum(payload []byte) []byte {
	first := sha256.Sum256(payload)
	second := sha256.Sum256(first[:])
	return second[:checksumLength]
}

// ValidateAddress reports whether an address decodes cleanly and its
// checksum holds.
func ValidateAddress(address string) bool {
	decoded, err := base58Decode(address)
	if err != nil || len(decoded) < checksumLength+1 {
		return false
	}
	actualChecksum := decoded[len(decoded)-checksumLength:]
	versionByte := decoded[0]
	pubKeyHash := decoded[1 : len(decoded)-checksumLength]
	targetChecksum := Checksum(append([]byte{versionByte}, pubKeyHash...))
	return bytes.Equal(actualChecksum, targetChecksum)
}
