package store

import (
	"context"
	"math/big"

	"github.com/feral-file/ff-boxoffice/internal/domain"
)

// Store defines the interface for sale-state persistence. Implementations
// must make WithinTransaction atomic: every mutation made through the
// transactional Store is either fully committed or fully discarded.
type Store interface {
	// WithinTransaction runs fn against a transactional view of the store.
	// Returning an error rolls back everything fn did. The engine runs its
	// external calls (issuance, settlement) inside fn so their failure
	// unwinds the purchase too.
	WithinTransaction(ctx context.Context, fn func(tx Store) error) error

	// InitSaleState creates the singleton sale-state row if it does not
	// exist yet. Existing state is left untouched.
	InitSaleState(ctx context.Context, state *domain.SaleState) error
	// GetSaleState retrieves the sale state
	GetSaleState(ctx context.Context) (*domain.SaleState, error)
	// GetSaleStateForUpdate retrieves the sale state and locks it for the
	// remainder of the transaction, serializing purchases
	GetSaleStateForUpdate(ctx context.Context) (*domain.SaleState, error)
	// SaveSaleState persists the sale state
	SaveSaleState(ctx context.Context, state *domain.SaleState) error

	// CreateBox stores a new box; returns domain.ErrBoxAlreadyExists if the
	// identifier is taken
	CreateBox(ctx context.Context, box *domain.Box) error
	// GetBox retrieves a box by identifier; returns (nil, nil) when absent
	GetBox(ctx context.Context, id domain.BoxID) (*domain.Box, error)
	// GetBoxForUpdate retrieves a box and locks its row for the transaction
	GetBoxForUpdate(ctx context.Context, id domain.BoxID) (*domain.Box, error)
	// UpdateBox persists mutable box fields (price, enabled, signature
	// requirement, supply)
	UpdateBox(ctx context.Context, box *domain.Box) error
	// ListBoxes retrieves all boxes ordered by identifier
	ListBoxes(ctx context.Context) ([]domain.Box, error)

	// IsNonceUsed reports whether the nonce was consumed by any purchase
	IsNonceUsed(ctx context.Context, nonce *big.Int) (bool, error)
	// ConsumeNonce records the nonce; returns domain.ErrNonceAlreadyUsed if
	// it was consumed before
	ConsumeNonce(ctx context.Context, nonce *big.Int) error

	// CreateSoldUnit stores a purchase record
	CreateSoldUnit(ctx context.Context, unit *domain.SoldUnit) error
	// GetSoldUnit retrieves a purchase record; returns (nil, nil) when absent
	GetSoldUnit(ctx context.Context, id uint64) (*domain.SoldUnit, error)
	// CreateIssuedItem stores a minted item record
	CreateIssuedItem(ctx context.Context, item *domain.IssuedItem) error
	// ListIssuedItemsBySoldUnit retrieves the items minted by one purchase
	ListIssuedItemsBySoldUnit(ctx context.Context, soldUnitID uint64) ([]domain.IssuedItem, error)

	// StageEvent inserts an event into the outbox
	StageEvent(ctx context.Context, event *domain.Event) error
	// ListPendingEvents retrieves undispatched events oldest-first
	ListPendingEvents(ctx context.Context, limit int) ([]domain.Event, error)
	// MarkEventDispatched records a successful delivery
	MarkEventDispatched(ctx context.Context, eventID string) error

	// CreateWebhookEndpoint registers a webhook consumer
	CreateWebhookEndpoint(ctx context.Context, endpoint *domain.WebhookEndpoint) error
	// ListWebhookEndpoints retrieves all registered webhook consumers
	ListWebhookEndpoints(ctx context.Context) ([]domain.WebhookEndpoint, error)
}
