package registry

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/logger"
	"github.com/feral-file/ff-boxoffice/internal/store"
)

// SetPaused opens or closes the global sale gate.
func (r *Registry) SetPaused(ctx context.Context, paused bool) error {
	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, err := tx.GetSaleStateForUpdate(ctx)
		if err != nil {
			return err
		}
		if state.Paused == paused {
			return domain.ErrAlreadyInState
		}

		state.Paused = paused
		if err := tx.SaveSaleState(ctx, state); err != nil {
			return err
		}

		kind := domain.EventSaleUnpaused
		if paused {
			kind = domain.EventSalePaused
		}
		return tx.StageEvent(ctx, domain.NewEvent(kind, map[string]any{"paused": paused}))
	})
}

// SetPaymentAddress changes the payment destination. The zero address is
// rejected so funds can never be forwarded into the void.
func (r *Registry) SetPaymentAddress(ctx context.Context, addr common.Address) error {
	if domain.ZeroAddress(addr) {
		return domain.ErrInvalidPaymentAddress
	}

	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, err := tx.GetSaleStateForUpdate(ctx)
		if err != nil {
			return err
		}

		state.PaymentAddress = addr
		if err := tx.SaveSaleState(ctx, state); err != nil {
			return err
		}
		return tx.StageEvent(ctx, domain.NewEvent(domain.EventPaymentAddressChanged, map[string]any{
			"payment_address": addr.Hex(),
		}))
	})
}

// SetTrustedSigner changes the key identity authorizations are checked
// against. Signatures issued by the previous signer stop verifying.
func (r *Registry) SetTrustedSigner(ctx context.Context, addr common.Address) error {
	if domain.ZeroAddress(addr) {
		return domain.ErrInvalidSignerAddress
	}

	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, err := tx.GetSaleStateForUpdate(ctx)
		if err != nil {
			return err
		}

		state.TrustedSigner = addr
		if err := tx.SaveSaleState(ctx, state); err != nil {
			return err
		}
		return tx.StageEvent(ctx, domain.NewEvent(domain.EventSignerAddressChanged, map[string]any{
			"signer_address": addr.Hex(),
		}))
	})
}

// SetBaseURI changes the metadata base for issued items.
func (r *Registry) SetBaseURI(ctx context.Context, baseURI string) error {
	return r.store.WithinTransaction(ctx, func(tx store.Store) error {
		state, err := tx.GetSaleStateForUpdate(ctx)
		if err != nil {
			return err
		}

		state.BaseURI = baseURI
		if err := tx.SaveSaleState(ctx, state); err != nil {
			return err
		}
		return tx.StageEvent(ctx, domain.NewEvent(domain.EventBaseMetadataChanged, map[string]any{
			"base_uri": baseURI,
		}))
	})
}

// GetSaleState retrieves the current sale state.
func (r *Registry) GetSaleState(ctx context.Context) (*domain.SaleState, error) {
	return r.store.GetSaleState(ctx)
}

// RegisterWebhookEndpoint registers an event consumer and returns it with
// its assigned identifier.
func (r *Registry) RegisterWebhookEndpoint(ctx context.Context, url, secret string) (*domain.WebhookEndpoint, error) {
	endpoint := &domain.WebhookEndpoint{
		ID:        uuid.NewString(),
		URL:       url,
		Secret:    secret,
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.CreateWebhookEndpoint(ctx, endpoint); err != nil {
		return nil, err
	}

	logger.InfoCtx(ctx, "Registered webhook endpoint",
		zap.String("endpoint_id", endpoint.ID),
		zap.String("url", endpoint.URL),
	)
	return endpoint, nil
}
