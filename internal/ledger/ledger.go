// Package ledger is the boundary to the collection contract that records
// item ownership. The engine calls Issue once per issued item, inside the
// purchase transaction, so an issuance failure aborts the purchase.
package ledger

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"

	"github.com/feral-file/ff-boxoffice/internal/relayer"
)

// Ledger records ownership of a newly issued item
//
//go:generate mockgen -source=ledger.go -destination=../mocks/ledger.go -package=mocks -mock_names=Ledger=MockLedger
type Ledger interface {
	Issue(ctx context.Context, owner common.Address, itemID uint64) error
}

const issueABIJSON = `[{"inputs":[{"name":"to","type":"address"},{"name":"tokenId","type":"uint256"}],"name":"issue","outputs":[],"stateMutability":"nonpayable","type":"function"}]`

type ethereumLedger struct {
	collection common.Address
	issueABI   abi.ABI
	relayer    *relayer.Relayer
}

// NewEthereumLedger creates a ledger that mints items on the collection
// contract through the relayer wallet. The relayer must hold the contract's
// minter role.
func NewEthereumLedger(collection common.Address, r *relayer.Relayer) (Ledger, error) {
	issueABI, err := abi.JSON(strings.NewReader(issueABIJSON))
	if err != nil {
		return nil, fmt.Errorf("failed to parse ABI: %w", err)
	}
	return &ethereumLedger{collection: collection, issueABI: issueABI, relayer: r}, nil
}

func (l *ethereumLedger) Issue(ctx context.Context, owner common.Address, itemID uint64) error {
	data, err := l.issueABI.Pack("issue", owner, new(big.Int).SetUint64(itemID))
	if err != nil {
		return fmt.Errorf("failed to pack data: %w", err)
	}

	if _, err := l.relayer.Submit(ctx, l.collection, nil, data); err != nil {
		return fmt.Errorf("failed to issue item on collection contract: %w", err)
	}
	return nil
}
