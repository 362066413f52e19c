package keystore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/cloudflare/circl/sign/mldsa/mldsa65"

	"medhe/bfv"
	"medhe/rlwe"
)

// sealContext binds the signatures of this package to sealed public keys.
var sealContext = []byte("medhe-public-key-v1")

var (
	// ErrBadSignature is returned when a sealed public key does not verify
	// under the authority key.
	ErrBadSignature = errors.New("invalid public key signature")

	errMissingAuthorityKey = errors.New("authority key is required")
)

// SealedPublicKey is a public key, the parameters it was generated for and an
// ML-DSA-65 signature over both by the decrypting party.
type SealedPublicKey struct {
	Params    bfv.ParametersLiteral `json:"params"`
	Key       []byte                `json:"key"`
	Signature []byte                `json:"signature"`
}

// GenerateAuthorityKey creates the ML-DSA-65 key pair sealing public keys.
func GenerateAuthorityKey() (*mldsa65.PublicKey, *mldsa65.PrivateKey, error) {
	return mldsa65.GenerateKey(rand.Reader)
}

// ParseAuthorityPublicKey decodes a packed ML-DSA-65 public key.
func ParseAuthorityPublicKey(data []byte) (*mldsa65.PublicKey, error) {
	pub := &mldsa65.PublicKey{}
	if err := pub.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return pub, nil
}

// ParseAuthorityPrivateKey decodes a packed ML-DSA-65 private key.
func ParseAuthorityPrivateKey(data []byte) (*mldsa65.PrivateKey, error) {
	priv := &mldsa65.PrivateKey{}
	if err := priv.UnmarshalBinary(data); err != nil {
		return nil, err
	}
	return priv, nil
}

// ReadAuthorityPublicKey reads a packed ML-DSA-65 public key file.
func ReadAuthorityPublicKey(path string) (*mldsa65.PublicKey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseAuthorityPublicKey(data)
}

// SealPublicKey signs the public key and its parameters with the authority key.
func SealPublicKey(priv *mldsa65.PrivateKey, params bfv.Parameters, pk *rlwe.PublicKey) (*SealedPublicKey, error) {

	if priv == nil {
		return nil, fmt.Errorf("cannot SealPublicKey: %w", errMissingAuthorityKey)
	}
	if err := pk.Validate(params.Parameters); err != nil {
		return nil, fmt.Errorf("cannot SealPublicKey: %w", err)
	}

	key, err := pk.MarshalBinary()
	if err != nil {
		return nil, fmt.Errorf("cannot SealPublicKey: %w", err)
	}

	sealed := &SealedPublicKey{Params: params.ParametersLiteral(), Key: key}

	msg, err := sealed.message()
	if err != nil {
		return nil, fmt.Errorf("cannot SealPublicKey: %w", err)
	}

	sealed.Signature = make([]byte, mldsa65.SignatureSize)
	if err = mldsa65.SignTo(priv, msg, sealContext, true, sealed.Signature); err != nil {
		return nil, fmt.Errorf("cannot SealPublicKey: %w", err)
	}

	return sealed, nil
}

// OpenPublicKey verifies the signature of the sealed key under the authority
// key and returns the parameters and the public key it carries.
func OpenPublicKey(sealed *SealedPublicKey, pub *mldsa65.PublicKey) (bfv.Parameters, *rlwe.PublicKey, error) {

	if pub == nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot OpenPublicKey: %w", errMissingAuthorityKey)
	}
	if sealed == nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot OpenPublicKey: nil sealed key: %w", ErrBadSignature)
	}

	msg, err := sealed.message()
	if err != nil {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot OpenPublicKey: %w", err)
	}
	if !mldsa65.Verify(pub, msg, sealContext, sealed.Signature) {
		return bfv.Parameters{}, nil, fmt.Errorf("cannot OpenPublicKey: %w", ErrBadSignature)
	}

	return sealed.decode()
}

// Fingerprint returns the fingerprint of the sealed public key.
func (sealed *SealedPublicKey) Fingerprint() (string, error) {
	_, pk, err := sealed.decode()
	if err != nil {
		return "", err
	}
	return pk.Fingerprint(), nil
}

// message returns the signed bytes: the JSON parameters followed by the key.
func (sealed *SealedPublicKey) message() ([]byte, error) {
	params, err := json.Marshal(sealed.Params)
	if err != nil {
		return nil, err
	}
	return append(params, sealed.Key...), nil
}

func (sealed *SealedPublicKey) decode() (bfv.Parameters, *rlwe.PublicKey, error) {
	params, err := bfv.NewParametersFromLiteral(sealed.Params)
	if err != nil {
		return bfv.Parameters{}, nil, err
	}
	pk := new(rlwe.PublicKey)
	if err = pk.UnmarshalBinary(sealed.Key); err != nil {
		return bfv.Parameters{}, nil, err
	}
	if err = pk.Validate(params.Parameters); err != nil {
		return bfv.Parameters{}, nil, err
	}
	return params, pk, nil
}
