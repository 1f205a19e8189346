// Package authorizer implements the purchase authorization scheme: an
// off-chain trusted signer signs (buyer, sale contract, chain id, box id,
// nonce) and the engine verifies the signature before a signature-gated
// purchase. The byte encoding is a frozen wire format shared with the
// on-chain contract and the off-chain signing service; changing the field
// order invalidates every previously issued authorization.
package authorizer

import (
	"crypto/ecdsa"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"

	"github.com/feral-file/ff-boxoffice/internal/domain"
)

// Authorizer verifies purchase authorizations for one sale contract
// identity. Verify has no side effects; nonce consumption is the store's
// job and happens inside the purchase transaction.
type Authorizer struct {
	contract common.Address
	chainID  *big.Int
}

// New creates an authorizer bound to the sale contract address and chain id
// that off-chain signers embed in their messages.
func New(contract common.Address, chainID *big.Int) *Authorizer {
	return &Authorizer{contract: contract, chainID: new(big.Int).Set(chainID)}
}

// Message builds the packed authorization message:
// buyer(20) || contract(20) || chainID(32) || boxID(32) || nonce(32).
func (a *Authorizer) Message(buyer common.Address, boxID domain.BoxID, nonce *big.Int) []byte {
	msg := make([]byte, 0, 20+20+32*3)
	msg = append(msg, buyer.Bytes()...)
	msg = append(msg, a.contract.Bytes()...)
	msg = append(msg, common.LeftPadBytes(a.chainID.Bytes(), 32)...)
	msg = append(msg, common.LeftPadBytes(new(big.Int).SetUint64(uint64(boxID)).Bytes(), 32)...)
	msg = append(msg, common.LeftPadBytes(nonce.Bytes(), 32)...)
	return msg
}

// Digest hashes the packed message and wraps it in the standard
// "\x19Ethereum Signed Message" envelope, matching what wallets produce for
// a 32-byte personal-sign payload.
func (a *Authorizer) Digest(buyer common.Address, boxID domain.BoxID, nonce *big.Int) []byte {
	return accounts.TextHash(crypto.Keccak256(a.Message(buyer, boxID, nonce)))
}

// Verify recovers the signing key from signature and reports whether it is
// the trusted signer. Malformed signatures verify as false with an error
// describing why.
func (a *Authorizer) Verify(buyer common.Address, boxID domain.BoxID, nonce *big.Int, signature []byte, trustedSigner common.Address) (bool, error) {
	if len(signature) != crypto.SignatureLength {
		return false, fmt.Errorf("signature must be %d bytes, got %d", crypto.SignatureLength, len(signature))
	}

	// Wallets emit V as 27/28; go-ethereum recovery expects 0/1.
	sig := make([]byte, crypto.SignatureLength)
	copy(sig, signature)
	if sig[crypto.RecoveryIDOffset] >= 27 {
		sig[crypto.RecoveryIDOffset] -= 27
	}

	pub, err := crypto.SigToPub(a.Digest(buyer, boxID, nonce), sig)
	if err != nil {
		return false, fmt.Errorf("failed to recover public key: %w", err)
	}

	return crypto.PubkeyToAddress(*pub) == trustedSigner, nil
}

// Sign produces an authorization signature with V in the 27/28 convention.
// It is the counterpart of Verify, used by the signing tool and by tests.
func (a *Authorizer) Sign(key *ecdsa.PrivateKey, buyer common.Address, boxID domain.BoxID, nonce *big.Int) ([]byte, error) {
	sig, err := crypto.Sign(a.Digest(buyer, boxID, nonce), key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign authorization: %w", err)
	}
	sig[crypto.RecoveryIDOffset] += 27
	return sig, nil
}

// DecodeSignature parses a 0x-prefixed hex signature.
func DecodeSignature(s string) ([]byte, error) {
	sig, err := hexutil.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid signature encoding: %w", err)
	}
	return sig, nil
}
