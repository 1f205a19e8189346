// Package payments is the settlement boundary of the purchase engine. Coin
// purchases are collected into the relayer custody wallet and forwarded to
// the payment address; token purchases pull the price from the buyer's
// ERC-20 allowance. Settlement runs inside the purchase transaction, so a
// failed transfer rolls the purchase back.
package payments

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-boxoffice/internal/adapter"
	"github.com/feral-file/ff-boxoffice/internal/relayer"
)

// Settler moves the purchase price to the payment address
//
//go:generate mockgen -source=settler.go -destination=../mocks/settler.go -package=mocks -mock_names=Settler=MockSettler
type Settler interface {
	// ForwardCoin forwards a native-currency payment received from the
	// buyer to the payment address.
	ForwardCoin(ctx context.Context, buyer common.Address, to common.Address, amount *big.Int) error

	// PullToken transfers the price from the buyer's ERC-20 balance to the
	// payment address using the allowance granted to the relayer wallet.
	PullToken(ctx context.Context, token common.Address, from common.Address, to common.Address, amount *big.Int) error
}

const transferFromABIJSON = `[{"constant":false,"inputs":[{"name":"from","type":"address"},{"name":"to","type":"address"},{"name":"value","type":"uint256"}],"name":"transferFrom","outputs":[{"name":"","type":"bool"}],"payable":false,"stateMutability":"nonpayable","type":"function"}]`

type ethereumSettler struct {
	transferFromABI abi.ABI
	client          adapter.EthClient
	relayer         *relayer.Relayer
}

// NewEthereumSettler creates a settler that moves funds through the relayer
// wallet.
func NewEthereumSettler(client adapter.EthClient, r *relayer.Relayer) (Settler, error) {
	transferFromABI, err := abi.JSON(strings.NewReader(transferFromABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return &ethereumSettler{transferFromABI: transferFromABI, client: client, relayer: r}, nil
}

func (s *ethereumSettler) ForwardCoin(ctx context.Context, buyer common.Address, to common.Address, amount *big.Int) error {
	balance, err := s.client.BalanceAt(ctx, s.relayer.Sender(), nil)
	if err != nil {
		return fmt.Errorf("failed to get custody balance: %w", err)
	}
	if balance.Cmp(amount) < 0 {
		return fmt.Errorf("payment from %s not received: custody balance %s below %s", buyer.Hex(), balance, amount)
	}

	if _, err := s.relayer.Submit(ctx, to, amount, nil); err != nil {
		return fmt.Errorf("failed to forward payment: %w", err)
	}
	return nil
}

func (s *ethereumSettler) PullToken(ctx context.Context, token common.Address, from common.Address, to common.Address, amount *big.Int) error {
	data, err := s.transferFromABI.Pack("transferFrom", from, to, amount)
	if err != nil {
		return fmt.Errorf("failed to pack data: %w", err)
	}

	// Preflight the transfer so a token that signals failure by returning
	// false is caught before spending gas.
	sender := s.relayer.Sender()
	result, err := s.client.CallContract(ctx, ethereum.CallMsg{
		From: sender,
		To:   &token,
		Data: data,
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to call token contract: %w", err)
	}
	if len(result) > 0 {
		var ok bool
		if err := s.transferFromABI.UnpackIntoInterface(&ok, "transferFrom", result); err != nil {
			return fmt.Errorf("failed to unpack result: %w", err)
		}
		if !ok {
			return fmt.Errorf("token transfer from %s rejected", from.Hex())
		}
	}

	if _, err := s.relayer.Submit(ctx, token, nil, data); err != nil {
		return fmt.Errorf("failed to transfer token payment: %w", err)
	}
	return nil
}
