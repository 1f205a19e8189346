// Package engine implements the purchase state machine: validation of a
// purchase request against the box's terms, signature authorization, supply
// reservation, item issuance and payment settlement. Every purchase runs in
// a single store transaction, so a failure at any step - including the
// external issuance and settlement calls - unwinds the whole purchase.
package engine

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-boxoffice/internal/authorizer"
	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/ledger"
	"github.com/feral-file/ff-boxoffice/internal/logger"
	"github.com/feral-file/ff-boxoffice/internal/payments"
	"github.com/feral-file/ff-boxoffice/internal/store"
)

// Engine coordinates purchases against the catalog, the item ledger and the
// payment settler.
type Engine struct {
	store   store.Store
	auth    *authorizer.Authorizer
	ledger  ledger.Ledger
	settler payments.Settler
}

// New creates a purchase engine
func New(st store.Store, auth *authorizer.Authorizer, lg ledger.Ledger, settler payments.Settler) *Engine {
	return &Engine{store: st, auth: auth, ledger: lg, settler: settler}
}

// Authorization carries the off-chain purchase authorization: a one-time
// nonce and the trusted signer's signature over (buyer, contract, chain,
// box, nonce).
type Authorization struct {
	Nonce     *big.Int
	Signature []byte
}

// CoinPurchaseRequest is a purchase settled in native currency. Amount must
// equal the box price exactly. Auth is required iff the box is
// signature-gated.
type CoinPurchaseRequest struct {
	BoxID  domain.BoxID
	Buyer  common.Address
	Amount *big.Int
	Auth   *Authorization
}

// TokenPurchaseRequest is a purchase settled by pulling the box price from
// the buyer's ERC-20 balance. Auth is required iff the box is
// signature-gated.
type TokenPurchaseRequest struct {
	BoxID domain.BoxID
	Buyer common.Address
	Auth  *Authorization
}

// FreePurchaseRequest is a signature-gated purchase with no payment step.
type FreePurchaseRequest struct {
	BoxID domain.BoxID
	Buyer common.Address
	Auth  Authorization
}

// PurchaseCoin executes a native-currency purchase. Mint happens before the
// payment is forwarded; a rejected transfer rolls the mint back.
func (e *Engine) PurchaseCoin(ctx context.Context, req CoinPurchaseRequest) (*domain.Receipt, error) {
	var receipt *domain.Receipt
	err := e.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, box, err := e.loadForPurchase(ctx, tx, req.BoxID)
		if err != nil {
			return err
		}
		if box.Free() {
			return domain.ErrBoxIsFree
		}
		if box.PaidWithToken {
			return domain.ErrWrongPaymentKind
		}

		if err := e.checkAuthorization(ctx, tx, state, box, req.Buyer, req.Auth); err != nil {
			return err
		}
		if req.Amount == nil || req.Amount.Cmp(box.Price) != 0 {
			return domain.ErrWrongAmount
		}
		if err := e.consumeAuthorization(ctx, tx, box, req.Auth); err != nil {
			return err
		}

		receipt, err = e.mint(ctx, tx, state, box, req.Buyer)
		if err != nil {
			return err
		}

		if err := e.settler.ForwardCoin(ctx, req.Buyer, state.PaymentAddress, req.Amount); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrPaymentForwardingFailed, err)
		}

		return tx.StageEvent(ctx, domain.NewEvent(domain.EventPurchaseCompleted, domain.PurchaseEventPayload(receipt)))
	})
	if err != nil {
		return nil, err
	}

	e.logPurchase(ctx, receipt)
	return receipt, nil
}

// PurchaseToken executes an ERC-20 purchase. The pull happens after the
// mint; a failed transfer rolls the mint back.
func (e *Engine) PurchaseToken(ctx context.Context, req TokenPurchaseRequest) (*domain.Receipt, error) {
	var receipt *domain.Receipt
	err := e.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, box, err := e.loadForPurchase(ctx, tx, req.BoxID)
		if err != nil {
			return err
		}
		if box.Free() {
			return domain.ErrBoxIsFree
		}
		if !box.PaidWithToken {
			return domain.ErrWrongPaymentKind
		}

		if err := e.checkAuthorization(ctx, tx, state, box, req.Buyer, req.Auth); err != nil {
			return err
		}
		if err := e.consumeAuthorization(ctx, tx, box, req.Auth); err != nil {
			return err
		}

		receipt, err = e.mint(ctx, tx, state, box, req.Buyer)
		if err != nil {
			return err
		}

		if err := e.settler.PullToken(ctx, *box.TokenContract, req.Buyer, state.PaymentAddress, box.Price); err != nil {
			return fmt.Errorf("%w: %s", domain.ErrPaymentTransferFailed, err)
		}

		return tx.StageEvent(ctx, domain.NewEvent(domain.EventPurchaseCompleted, domain.PurchaseEventPayload(receipt)))
	})
	if err != nil {
		return nil, err
	}

	e.logPurchase(ctx, receipt)
	return receipt, nil
}

// PurchaseFree executes a signature-gated purchase of a zero-price box.
// There is no payment step; the nonce is still consumed before minting.
func (e *Engine) PurchaseFree(ctx context.Context, req FreePurchaseRequest) (*domain.Receipt, error) {
	var receipt *domain.Receipt
	err := e.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, box, err := e.loadForPurchase(ctx, tx, req.BoxID)
		if err != nil {
			return err
		}
		if !box.Free() {
			return domain.ErrBoxNotFree
		}

		// Free boxes are always signature-gated.
		if err := e.verifyAndCheckNonce(ctx, tx, state, box.ID, req.Buyer, req.Auth); err != nil {
			return err
		}
		if err := tx.ConsumeNonce(ctx, req.Auth.Nonce); err != nil {
			return err
		}

		receipt, err = e.mint(ctx, tx, state, box, req.Buyer)
		if err != nil {
			return err
		}

		return tx.StageEvent(ctx, domain.NewEvent(domain.EventPurchaseCompleted, domain.PurchaseEventPayload(receipt)))
	})
	if err != nil {
		return nil, err
	}

	e.logPurchase(ctx, receipt)
	return receipt, nil
}

// VerifyAuthorization checks a signature without consuming the nonce or
// touching any state, so buyers can validate an authorization before
// submitting a purchase.
func (e *Engine) VerifyAuthorization(ctx context.Context, boxID domain.BoxID, buyer common.Address, auth Authorization) (bool, error) {
	state, err := e.store.GetSaleState(ctx)
	if err != nil {
		return false, err
	}
	ok, err := e.auth.Verify(buyer, boxID, auth.Nonce, auth.Signature, state.TrustedSigner)
	if err != nil {
		return false, nil
	}
	return ok, nil
}

// loadForPurchase locks the sale state and the box and applies the
// preconditions shared by all purchase variants, in a fixed order: paused,
// existence, enabled, sold out.
func (e *Engine) loadForPurchase(ctx context.Context, tx store.Store, boxID domain.BoxID) (*domain.SaleState, *domain.Box, error) {
	state, err := tx.GetSaleStateForUpdate(ctx)
	if err != nil {
		return nil, nil, err
	}
	if state.Paused {
		return nil, nil, domain.ErrSalePaused
	}

	box, err := tx.GetBoxForUpdate(ctx, boxID)
	if err != nil {
		return nil, nil, err
	}
	if box == nil {
		return nil, nil, domain.ErrBoxNotFound
	}
	if !box.Enabled {
		return nil, nil, domain.ErrBoxDisabled
	}
	if box.SoldOut() {
		return nil, nil, domain.ErrSoldOut
	}

	return state, box, nil
}

// checkAuthorization enforces the signature branch for priced boxes: a
// gated box rejects unsigned requests, an ungated box rejects signed ones,
// and a gated box with an authorization gets it verified.
func (e *Engine) checkAuthorization(ctx context.Context, tx store.Store, state *domain.SaleState, box *domain.Box, buyer common.Address, auth *Authorization) error {
	if !box.RequiresSignature {
		if auth != nil {
			return domain.ErrSignatureNotRequired
		}
		return nil
	}
	if auth == nil {
		return domain.ErrSignatureRequired
	}
	return e.verifyAndCheckNonce(ctx, tx, state, box.ID, buyer, *auth)
}

// verifyAndCheckNonce verifies the signature against the trusted signer and
// rejects already-consumed nonces. Consumption itself happens later, right
// before minting.
func (e *Engine) verifyAndCheckNonce(ctx context.Context, tx store.Store, state *domain.SaleState, boxID domain.BoxID, buyer common.Address, auth Authorization) error {
	if auth.Nonce == nil || len(auth.Signature) == 0 {
		return domain.ErrSignatureRequired
	}

	ok, err := e.auth.Verify(buyer, boxID, auth.Nonce, auth.Signature, state.TrustedSigner)
	if err != nil {
		return fmt.Errorf("%w: %s", domain.ErrInvalidSignature, err)
	}
	if !ok {
		return domain.ErrInvalidSignature
	}

	used, err := tx.IsNonceUsed(ctx, auth.Nonce)
	if err != nil {
		return err
	}
	if used {
		return domain.ErrNonceAlreadyUsed
	}
	return nil
}

// consumeAuthorization records the nonce for signature-gated boxes. It runs
// before the mint so a nonce can never produce more than one sold unit,
// even if settlement re-enters the purchase path.
func (e *Engine) consumeAuthorization(ctx context.Context, tx store.Store, box *domain.Box, auth *Authorization) error {
	if !box.RequiresSignature {
		return nil
	}
	return tx.ConsumeNonce(ctx, auth.Nonce)
}

// mint reserves supply and issues the box's quantity of items: one sold
// unit, one supply increment, quantityPerPurchase issued items. Counter
// updates stay monotonic because the sale-state row is locked.
func (e *Engine) mint(ctx context.Context, tx store.Store, state *domain.SaleState, box *domain.Box, buyer common.Address) (*domain.Receipt, error) {
	now := time.Now().UTC()

	state.CurrentSoldUnitID++
	unit := &domain.SoldUnit{
		ID:            state.CurrentSoldUnitID,
		BoxID:         box.ID,
		Buyer:         buyer,
		Price:         new(big.Int).Set(box.Price),
		PaymentKind:   box.PaymentKind(),
		TokenContract: box.TokenContract,
		CreatedAt:     now,
	}
	if err := tx.CreateSoldUnit(ctx, unit); err != nil {
		return nil, err
	}

	box.Supply++
	if err := tx.UpdateBox(ctx, box); err != nil {
		return nil, err
	}

	itemIDs := make([]uint64, 0, box.QuantityPerPurchase)
	for range box.QuantityPerPurchase {
		state.CurrentItemID++
		item := &domain.IssuedItem{
			ID:         state.CurrentItemID,
			SoldUnitID: unit.ID,
			Owner:      buyer,
			CreatedAt:  now,
		}
		if err := tx.CreateIssuedItem(ctx, item); err != nil {
			return nil, err
		}
		if err := e.ledger.Issue(ctx, buyer, item.ID); err != nil {
			return nil, fmt.Errorf("failed to issue item %d: %w", item.ID, err)
		}
		itemIDs = append(itemIDs, item.ID)
	}

	if err := tx.SaveSaleState(ctx, state); err != nil {
		return nil, err
	}

	return &domain.Receipt{
		SoldUnitID:    unit.ID,
		BoxID:         box.ID,
		Buyer:         buyer,
		Price:         unit.Price,
		PaymentKind:   unit.PaymentKind,
		TokenContract: unit.TokenContract,
		ItemIDs:       itemIDs,
	}, nil
}

func (e *Engine) logPurchase(ctx context.Context, r *domain.Receipt) {
	logger.InfoCtx(ctx, "Purchase completed",
		zap.Uint64("sold_unit_id", r.SoldUnitID),
		zap.Uint64("box_id", uint64(r.BoxID)),
		zap.String("buyer", r.Buyer.Hex()),
		zap.String("price", r.Price.String()),
		zap.String("payment_kind", string(r.PaymentKind)),
		zap.Uint64s("item_ids", r.ItemIDs),
	)
}
