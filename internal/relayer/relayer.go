// Package relayer signs and submits transactions with the service's relayer
// key and waits for them to be mined. The item ledger and the payment
// settler both go through it.
package relayer

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"go.uber.org/zap"

	"github.com/feral-file/ff-boxoffice/internal/adapter"
	"github.com/feral-file/ff-boxoffice/internal/logger"
)

// Relayer submits transactions from a single hot wallet. It is safe for use
// from one purchase transaction at a time; the engine serializes purchases,
// so account nonces never race.
type Relayer struct {
	chainID         *big.Int
	key             *ecdsa.PrivateKey
	sender          common.Address
	client          adapter.EthClient
	clock           adapter.Clock
	gasLimit        uint64
	confirmTimeout  time.Duration
	confirmInterval time.Duration
}

// New creates a relayer bound to a chain and signing key.
func New(
	chainID *big.Int,
	key *ecdsa.PrivateKey,
	client adapter.EthClient,
	clock adapter.Clock,
	gasLimit uint64,
	confirmTimeout time.Duration,
	confirmInterval time.Duration,
) *Relayer {
	return &Relayer{
		chainID:         new(big.Int).Set(chainID),
		key:             key,
		sender:          crypto.PubkeyToAddress(key.PublicKey),
		client:          client,
		clock:           clock,
		gasLimit:        gasLimit,
		confirmTimeout:  confirmTimeout,
		confirmInterval: confirmInterval,
	}
}

// Sender returns the relayer wallet address.
func (r *Relayer) Sender() common.Address {
	return r.sender
}

// Submit signs and sends a transaction, then blocks until it is mined or
// the confirmation timeout expires. A reverted transaction is an error.
func (r *Relayer) Submit(ctx context.Context, to common.Address, value *big.Int, data []byte) (*types.Receipt, error) {
	nonce, err := r.client.PendingNonceAt(ctx, r.sender)
	if err != nil {
		return nil, fmt.Errorf("failed to get account nonce: %w", err)
	}

	gasPrice, err := r.client.SuggestGasPrice(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get gas price: %w", err)
	}

	tx := types.NewTx(&types.LegacyTx{
		Nonce:    nonce,
		To:       &to,
		Value:    value,
		Gas:      r.gasLimit,
		GasPrice: gasPrice,
		Data:     data,
	})
	signed, err := types.SignTx(tx, types.LatestSignerForChainID(r.chainID), r.key)
	if err != nil {
		return nil, fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := r.client.SendTransaction(ctx, signed); err != nil {
		return nil, fmt.Errorf("failed to send transaction: %w", err)
	}

	logger.DebugCtx(ctx, "Submitted transaction",
		zap.String("tx_hash", signed.Hash().Hex()),
		zap.String("to", to.Hex()),
	)

	return r.waitMined(ctx, signed.Hash())
}

func (r *Relayer) waitMined(ctx context.Context, txHash common.Hash) (*types.Receipt, error) {
	deadline := r.clock.Now().Add(r.confirmTimeout)
	for {
		receipt, err := r.client.TransactionReceipt(ctx, txHash)
		if err != nil && !errors.Is(err, ethereum.NotFound) {
			return nil, fmt.Errorf("failed to get transaction receipt: %w", err)
		}
		if receipt != nil {
			if receipt.Status != types.ReceiptStatusSuccessful {
				return nil, fmt.Errorf("transaction %s reverted", txHash.Hex())
			}
			return receipt, nil
		}

		if r.clock.Now().After(deadline) {
			return nil, fmt.Errorf("transaction %s not mined within %s", txHash.Hex(), r.confirmTimeout)
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-r.clock.After(r.confirmInterval):
		}
	}
}
