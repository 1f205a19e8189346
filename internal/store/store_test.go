package store

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-boxoffice/internal/domain"
)

// StoreTestSuite provides the interface for running store tests against
// different implementations
type StoreTestSuite struct {
	Store Store
	// InitDB should be called before each test to initialize the database
	InitDB func(t *testing.T) Store
	// CleanupDB should be called after each test to clean up the database
	CleanupDB func(t *testing.T)
}

// =============================================================================
// Test Data Builders
// =============================================================================

func buildTestSaleState() *domain.SaleState {
	return &domain.SaleState{
		Paused:         false,
		PaymentAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TrustedSigner:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
		BaseURI:        "https://metadata.example.com/items/",
	}
}

func buildTestBox(id domain.BoxID, price int64) *domain.Box {
	return &domain.Box{
		ID:                  id,
		Price:               big.NewInt(price),
		MaxSupply:           100,
		Enabled:             true,
		QuantityPerPurchase: 1,
		CreatedAt:           time.Now().UTC(),
	}
}

func buildTestTokenBox(id domain.BoxID, price int64, token common.Address) *domain.Box {
	box := buildTestBox(id, price)
	box.PaidWithToken = true
	box.TokenContract = &token
	return box
}

func buildTestSoldUnit(id uint64, boxID domain.BoxID, buyer common.Address, price int64) *domain.SoldUnit {
	return &domain.SoldUnit{
		ID:          id,
		BoxID:       boxID,
		Buyer:       buyer,
		Price:       big.NewInt(price),
		PaymentKind: domain.PaymentKindCoin,
		CreatedAt:   time.Now().UTC(),
	}
}

// =============================================================================
// Test: SaleState
// =============================================================================

func testSaleState(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("init creates the singleton row", func(t *testing.T) {
		state := buildTestSaleState()
		require.NoError(t, store.InitSaleState(ctx, state))

		got, err := store.GetSaleState(ctx)
		require.NoError(t, err)
		assert.False(t, got.Paused)
		assert.Equal(t, state.PaymentAddress, got.PaymentAddress)
		assert.Equal(t, state.TrustedSigner, got.TrustedSigner)
		assert.Equal(t, state.BaseURI, got.BaseURI)
		assert.Equal(t, uint64(0), got.CurrentSoldUnitID)
		assert.Equal(t, uint64(0), got.CurrentItemID)
	})

	t.Run("re-init leaves existing state untouched", func(t *testing.T) {
		state, err := store.GetSaleState(ctx)
		require.NoError(t, err)
		state.CurrentSoldUnitID = 7
		state.CurrentItemID = 21
		require.NoError(t, store.SaveSaleState(ctx, state))

		other := buildTestSaleState()
		other.PaymentAddress = common.HexToAddress("0x9999999999999999999999999999999999999999")
		require.NoError(t, store.InitSaleState(ctx, other))

		got, err := store.GetSaleState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(7), got.CurrentSoldUnitID)
		assert.Equal(t, uint64(21), got.CurrentItemID)
		assert.Equal(t, buildTestSaleState().PaymentAddress, got.PaymentAddress)
	})

	t.Run("save persists mutations", func(t *testing.T) {
		state, err := store.GetSaleStateForUpdate(ctx)
		require.NoError(t, err)

		state.Paused = true
		state.BaseURI = "https://metadata.example.com/v2/"
		require.NoError(t, store.SaveSaleState(ctx, state))

		got, err := store.GetSaleState(ctx)
		require.NoError(t, err)
		assert.True(t, got.Paused)
		assert.Equal(t, "https://metadata.example.com/v2/", got.BaseURI)
	})
}

// =============================================================================
// Test: Boxes
// =============================================================================

func testBoxes(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		box := buildTestBox(1, 1000)
		box.RequiresSignature = true
		require.NoError(t, store.CreateBox(ctx, box))

		got, err := store.GetBox(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.BoxID(1), got.ID)
		assert.Equal(t, "1000", got.Price.String())
		assert.Equal(t, uint64(100), got.MaxSupply)
		assert.True(t, got.Enabled)
		assert.True(t, got.RequiresSignature)
		assert.False(t, got.PaidWithToken)
		assert.Nil(t, got.TokenContract)
	})

	t.Run("get missing box returns nil", func(t *testing.T) {
		got, err := store.GetBox(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, got)

		got, err = store.GetBoxForUpdate(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("duplicate identifier is rejected", func(t *testing.T) {
		err := store.CreateBox(ctx, buildTestBox(1, 2000))
		assert.ErrorIs(t, err, domain.ErrBoxAlreadyExists)

		// Original box is untouched.
		got, err := store.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "1000", got.Price.String())
	})

	t.Run("token box round-trips its contract", func(t *testing.T) {
		token := common.HexToAddress("0x3333333333333333333333333333333333333333")
		require.NoError(t, store.CreateBox(ctx, buildTestTokenBox(2, 500, token)))

		got, err := store.GetBox(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.PaidWithToken)
		require.NotNil(t, got.TokenContract)
		assert.Equal(t, token, *got.TokenContract)
	})

	t.Run("update persists mutable fields", func(t *testing.T) {
		box, err := store.GetBoxForUpdate(ctx, 1)
		require.NoError(t, err)

		box.Price = big.NewInt(5000)
		box.Enabled = false
		box.RequiresSignature = false
		box.Supply = 3
		require.NoError(t, store.UpdateBox(ctx, box))

		got, err := store.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "5000", got.Price.String())
		assert.False(t, got.Enabled)
		assert.False(t, got.RequiresSignature)
		assert.Equal(t, uint64(3), got.Supply)
	})

	t.Run("list returns boxes ordered by identifier", func(t *testing.T) {
		require.NoError(t, store.CreateBox(ctx, buildTestBox(10, 100)))

		boxes, err := store.ListBoxes(ctx)
		require.NoError(t, err)
		require.Len(t, boxes, 3)
		assert.Equal(t, domain.BoxID(1), boxes[0].ID)
		assert.Equal(t, domain.BoxID(2), boxes[1].ID)
		assert.Equal(t, domain.BoxID(10), boxes[2].ID)
	})
}

// =============================================================================
// Test: Nonces
// =============================================================================

func testNonces(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("fresh nonce is unused", func(t *testing.T) {
		used, err := store.IsNonceUsed(ctx, big.NewInt(42))
		require.NoError(t, err)
		assert.False(t, used)
	})

	t.Run("consume records the nonce", func(t *testing.T) {
		require.NoError(t, store.ConsumeNonce(ctx, big.NewInt(42)))

		used, err := store.IsNonceUsed(ctx, big.NewInt(42))
		require.NoError(t, err)
		assert.True(t, used)
	})

	t.Run("double consume is rejected", func(t *testing.T) {
		err := store.ConsumeNonce(ctx, big.NewInt(42))
		assert.ErrorIs(t, err, domain.ErrNonceAlreadyUsed)
	})

	t.Run("nonces larger than 64 bits round-trip", func(t *testing.T) {
		nonce, ok := new(big.Int).SetString("340282366920938463463374607431768211456", 10)
		require.True(t, ok)

		require.NoError(t, store.ConsumeNonce(ctx, nonce))
		used, err := store.IsNonceUsed(ctx, nonce)
		require.NoError(t, err)
		assert.True(t, used)
	})
}

// =============================================================================
// Test: SoldUnits and IssuedItems
// =============================================================================

func testSoldUnitsAndIssuedItems(t *testing.T, store Store) {
	ctx := context.Background()
	buyer := common.HexToAddress("0x4444444444444444444444444444444444444444")

	require.NoError(t, store.CreateBox(ctx, buildTestBox(1, 1000)))

	t.Run("create and get sold unit", func(t *testing.T) {
		unit := buildTestSoldUnit(1, 1, buyer, 1000)
		require.NoError(t, store.CreateSoldUnit(ctx, unit))

		got, err := store.GetSoldUnit(ctx, 1)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, uint64(1), got.ID)
		assert.Equal(t, domain.BoxID(1), got.BoxID)
		assert.Equal(t, buyer, got.Buyer)
		assert.Equal(t, "1000", got.Price.String())
		assert.Equal(t, domain.PaymentKindCoin, got.PaymentKind)
		assert.Nil(t, got.TokenContract)
	})

	t.Run("get missing sold unit returns nil", func(t *testing.T) {
		got, err := store.GetSoldUnit(ctx, 404)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("token-paid unit records its contract", func(t *testing.T) {
		token := common.HexToAddress("0x3333333333333333333333333333333333333333")
		unit := buildTestSoldUnit(2, 1, buyer, 500)
		unit.PaymentKind = domain.PaymentKindToken
		unit.TokenContract = &token
		require.NoError(t, store.CreateSoldUnit(ctx, unit))

		got, err := store.GetSoldUnit(ctx, 2)
		require.NoError(t, err)
		require.NotNil(t, got.TokenContract)
		assert.Equal(t, token, *got.TokenContract)
		assert.Equal(t, domain.PaymentKindToken, got.PaymentKind)
	})

	t.Run("issued items list by sold unit in item order", func(t *testing.T) {
		for _, id := range []uint64{1, 2, 3} {
			item := &domain.IssuedItem{
				ID:         id,
				SoldUnitID: 1,
				Owner:      buyer,
				CreatedAt:  time.Now().UTC(),
			}
			require.NoError(t, store.CreateIssuedItem(ctx, item))
		}
		require.NoError(t, store.CreateIssuedItem(ctx, &domain.IssuedItem{
			ID:         4,
			SoldUnitID: 2,
			Owner:      buyer,
			CreatedAt:  time.Now().UTC(),
		}))

		items, err := store.ListIssuedItemsBySoldUnit(ctx, 1)
		require.NoError(t, err)
		require.Len(t, items, 3)
		for i, item := range items {
			assert.Equal(t, uint64(i+1), item.ID)
			assert.Equal(t, uint64(1), item.SoldUnitID)
			assert.Equal(t, buyer, item.Owner)
		}

		items, err = store.ListIssuedItemsBySoldUnit(ctx, 404)
		require.NoError(t, err)
		assert.Empty(t, items)
	})
}

// =============================================================================
// Test: Outbox
// =============================================================================

func testOutbox(t *testing.T, store Store) {
	ctx := context.Background()

	first := domain.NewEvent(domain.EventBoxCreatedCoin, map[string]any{"box_id": float64(1)})
	second := domain.NewEvent(domain.EventPurchaseCompleted, map[string]any{"sold_unit_id": float64(1)})
	require.NoError(t, store.StageEvent(ctx, first))
	require.NoError(t, store.StageEvent(ctx, second))

	t.Run("pending events come back oldest-first", func(t *testing.T) {
		events, err := store.ListPendingEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 2)
		assert.Equal(t, first.ID, events[0].ID)
		assert.Equal(t, second.ID, events[1].ID)
		assert.Equal(t, domain.EventBoxCreatedCoin, events[0].Kind)
		assert.Equal(t, first.Payload, events[0].Payload)
	})

	t.Run("limit caps the batch", func(t *testing.T) {
		events, err := store.ListPendingEvents(ctx, 1)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, first.ID, events[0].ID)
	})

	t.Run("dispatched events leave the pending set", func(t *testing.T) {
		require.NoError(t, store.MarkEventDispatched(ctx, first.ID))

		events, err := store.ListPendingEvents(ctx, 10)
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, second.ID, events[0].ID)
	})

	t.Run("marking an unknown event is a no-op", func(t *testing.T) {
		require.NoError(t, store.MarkEventDispatched(ctx, "01ARZ3NDEKTSV4RRFFQ69G5FAV"))

		events, err := store.ListPendingEvents(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})
}

// =============================================================================
// Test: WebhookEndpoints
// =============================================================================

func testWebhookEndpoints(t *testing.T, store Store) {
	ctx := context.Background()

	t.Run("empty registry lists nothing", func(t *testing.T) {
		endpoints, err := store.ListWebhookEndpoints(ctx)
		require.NoError(t, err)
		assert.Empty(t, endpoints)
	})

	t.Run("registered endpoints round-trip", func(t *testing.T) {
		endpoint := &domain.WebhookEndpoint{
			ID:        "5f1c41b4-26a1-4a0a-9e4f-0c9a2d1b3e5d",
			URL:       "https://indexer.example.com/hooks/boxoffice",
			Secret:    "test-secret",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, store.CreateWebhookEndpoint(ctx, endpoint))

		endpoints, err := store.ListWebhookEndpoints(ctx)
		require.NoError(t, err)
		require.Len(t, endpoints, 1)
		assert.Equal(t, endpoint.ID, endpoints[0].ID)
		assert.Equal(t, endpoint.URL, endpoints[0].URL)
		assert.Equal(t, endpoint.Secret, endpoints[0].Secret)
	})
}

// =============================================================================
// Test: WithinTransaction
// =============================================================================

func testWithinTransaction(t *testing.T, store Store) {
	ctx := context.Background()
	require.NoError(t, store.InitSaleState(ctx, buildTestSaleState()))

	t.Run("commit persists every mutation", func(t *testing.T) {
		err := store.WithinTransaction(ctx, func(tx Store) error {
			if err := tx.CreateBox(ctx, buildTestBox(1, 1000)); err != nil {
				return err
			}
			if err := tx.ConsumeNonce(ctx, big.NewInt(1)); err != nil {
				return err
			}
			return tx.StageEvent(ctx, domain.NewEvent(domain.EventBoxCreatedCoin, map[string]any{"box_id": float64(1)}))
		})
		require.NoError(t, err)

		box, err := store.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.NotNil(t, box)

		used, err := store.IsNonceUsed(ctx, big.NewInt(1))
		require.NoError(t, err)
		assert.True(t, used)

		events, err := store.ListPendingEvents(ctx, 10)
		require.NoError(t, err)
		assert.Len(t, events, 1)
	})

	t.Run("error rolls back every mutation", func(t *testing.T) {
		boom := errors.New("settlement rejected")
		err := store.WithinTransaction(ctx, func(tx Store) error {
			if err := tx.CreateBox(ctx, buildTestBox(2, 500)); err != nil {
				return err
			}
			if err := tx.ConsumeNonce(ctx, big.NewInt(2)); err != nil {
				return err
			}
			state, err := tx.GetSaleStateForUpdate(ctx)
			if err != nil {
				return err
			}
			state.CurrentSoldUnitID = 99
			if err := tx.SaveSaleState(ctx, state); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		box, err := store.GetBox(ctx, 2)
		require.NoError(t, err)
		assert.Nil(t, box)

		used, err := store.IsNonceUsed(ctx, big.NewInt(2))
		require.NoError(t, err)
		assert.False(t, used)

		state, err := store.GetSaleState(ctx)
		require.NoError(t, err)
		assert.Equal(t, uint64(0), state.CurrentSoldUnitID)
	})
}

// RunStoreTests runs the shared suite against a store implementation
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	tests := []struct {
		name string
		fn   func(*testing.T, Store)
	}{
		{"SaleState", testSaleState},
		{"Boxes", testBoxes},
		{"Nonces", testNonces},
		{"SoldUnitsAndIssuedItems", testSoldUnitsAndIssuedItems},
		{"Outbox", testOutbox},
		{"WebhookEndpoints", testWebhookEndpoints},
		{"WithinTransaction", testWithinTransaction},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := initDB(t)
			defer cleanupDB(t)
			tt.fn(t, store)
		})
	}
}
