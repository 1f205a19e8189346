// Package registry owns the box catalog and the owner-privileged sale
// administration operations. Privilege itself is enforced at the API layer;
// everything here assumes the caller is the owner.
package registry

import (
	"context"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/logger"
	"github.com/feral-file/ff-boxoffice/internal/store"
)

// Registry manages boxes and sale state. Every mutation runs in one store
// transaction together with the event it emits.
type Registry struct {
	store store.Store
}

// New creates a box registry backed by the given store
func New(st store.Store) *Registry {
	return &Registry{store: st}
}

// CreateBoxInput holds the caller-supplied attributes for a new box.
type CreateBoxInput struct {
	ID                  domain.BoxID
	Price               *big.Int
	QuantityPerPurchase uint32
	MaxSupply           uint64
	RequiresSignature   bool
}

// CreateCoinBox creates a box paid in native currency.
func (r *Registry) CreateCoinBox(ctx context.Context, input CreateBoxInput) (*domain.Box, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	box := &domain.Box{
		ID:                  input.ID,
		Price:               new(big.Int).Set(input.Price),
		MaxSupply:           input.MaxSupply,
		Enabled:             true,
		RequiresSignature:   input.RequiresSignature,
		QuantityPerPurchase: input.QuantityPerPurchase,
		CreatedAt:           time.Now().UTC(),
	}
	if err := r.insertBox(ctx, box, domain.EventBoxCreatedCoin); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Created coin box",
		zap.Uint64("box_id", uint64(box.ID)),
		zap.String("price", box.Price.String()),
	)
	return box, nil
}

// CreateTokenBox creates a box paid via an ERC-20 token.
func (r *Registry) CreateTokenBox(ctx context.Context, input CreateBoxInput, tokenContract common.Address) (*domain.Box, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	box := &domain.Box{
		ID:                  input.ID,
		Price:               new(big.Int).Set(input.Price),
		MaxSupply:           input.MaxSupply,
		Enabled:             true,
		PaidWithToken:       true,
		TokenContract:       &tokenContract,
		RequiresSignature:   input.RequiresSignature,
		QuantityPerPurchase: input.QuantityPerPurchase,
		CreatedAt:           time.Now().UTC(),
	}
	if err := r.insertBox(ctx, box, domain.EventBoxCreatedToken); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Created token box",
		zap.Uint64("box_id", uint64(box.ID)),
		zap.String("price", box.Price.String()),
		zap.String("token_contract", tokenContract.Hex()),
	)
	return box, nil
}

// CreateFreeBox creates a zero-price box. Free boxes are always enabled at
// creation and permanently signature-gated.
func (r *Registry) CreateFreeBox(ctx context.Context, id domain.BoxID, quantityPerPurchase uint32, maxSupply uint64) (*domain.Box, error) {
	if !id.Valid() {
		return nil, domain.ErrInvalidIdentifier
	}
	if quantityPerPurchase == 0 {
		return nil, domain.ErrInvalidQuantity
	}

	box := &domain.Box{
		ID:                  id,
		Price:               big.NewInt(0),
		MaxSupply:           maxSupply,
		Enabled:             true,
		RequiresSignature:   true,
		QuantityPerPurchase: quantityPerPurchase,
		CreatedAt:           time.Now().UTC(),
	}
	if err := r.insertBox(ctx, box, domain.EventBoxCreatedFree); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Created free box", zap.Uint64("box_id", uint64(box.ID)))
	return box, nil
}

// SetEnabled enables or disables a box. A no-op transition is rejected so
// indexers never see duplicate events.
func (r *Registry) SetEnabled(ctx context.Context, id domain.BoxID, target bool) error {
	if !id.Valid() {
		return domain.ErrInvalidIdentifier
	}

	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		box, err := tx.GetBoxForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if box == nil {
			return domain.ErrBoxNotFound
		}
		if box.Enabled == target {
			return domain.ErrAlreadyInState
		}

		box.Enabled = target
		if err := tx.UpdateBox(ctx, box); err != nil {
			return err
		}

		kind := domain.EventBoxDisabled
		if target {
			kind = domain.EventBoxEnabled
		}
		return tx.StageEvent(ctx, domain.NewEvent(kind, domain.BoxEventPayload(box)))
	})
}

// SetPrice changes the price of a priced box. Free boxes cannot become
// priced and priced boxes cannot become free.
func (r *Registry) SetPrice(ctx context.Context, id domain.BoxID, newPrice *big.Int) error {
	if newPrice == nil {
		newPrice = big.NewInt(0)
	}

	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		box, err := tx.GetBoxForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if box == nil {
			return domain.ErrBoxNotFound
		}
		if box.Free() {
			return domain.ErrBoxIsFree
		}
		if newPrice.Sign() == 0 {
			return domain.ErrInvalidPrice
		}

		box.Price = new(big.Int).Set(newPrice)
		if err := tx.UpdateBox(ctx, box); err != nil {
			return err
		}
		return tx.StageEvent(ctx, domain.NewEvent(domain.EventBoxPriceChanged, domain.BoxEventPayload(box)))
	})
}

// SetSignatureRequirement toggles the signature gate on a priced box. Free
// boxes are permanently signature-gated.
func (r *Registry) SetSignatureRequirement(ctx context.Context, id domain.BoxID, required bool) error {
	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		box, err := tx.GetBoxForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if box == nil {
			return domain.ErrBoxNotFound
		}
		if box.Free() {
			return domain.ErrBoxIsFree
		}

		box.RequiresSignature = required
		if err := tx.UpdateBox(ctx, box); err != nil {
			return err
		}
		return tx.StageEvent(ctx, domain.NewEvent(domain.EventBoxSignatureChanged, domain.BoxEventPayload(box)))
	})
}

// GetBox retrieves a box; returns domain.ErrBoxNotFound when absent.
func (r *Registry) GetBox(ctx context.Context, id domain.BoxID) (*domain.Box, error) {
	box, err := r.store.GetBox(ctx, id)
	if err != nil {
		return nil, err
	}
	if box == nil {
		return nil, domain.ErrBoxNotFound
	}
	return box, nil
}

// ListBoxes retrieves the full catalog.
func (r *Registry) ListBoxes(ctx context.Context) ([]domain.Box, error) {
	return r.store.ListBoxes(ctx)
}

func validateCreate(input CreateBoxInput) error {
	if !input.ID.Valid() {
		return domain.ErrInvalidIdentifier
	}
	if input.Price == nil || input.Price.Sign() == 0 {
		return domain.ErrInvalidPrice
	}
	if input.QuantityPerPurchase == 0 {
		return domain.ErrInvalidQuantity
	}
	return nil
}

func (r *Registry) insertBox(ctx context.Context, box *domain.Box, kind domain.EventKind) error {
	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		if err := tx.CreateBox(ctx, box); err != nil {
			return err
		}
		return tx.StageEvent(ctx, domain.NewEvent(kind, domain.BoxEventPayload(box)))
	})
}
