package registry

import (
	"context"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-boxoffice/internal/domain"
	"github.com/feral-file/ff-boxoffice/internal/store"
)

func newTestRegistry(t *testing.T) (*Registry, store.Store) {
	t.Helper()
	st := store.NewMemoryStore()
	require.NoError(t, st.InitSaleState(context.Background(), &domain.SaleState{
		PaymentAddress: common.HexToAddress("0x1111111111111111111111111111111111111111"),
		TrustedSigner:  common.HexToAddress("0x2222222222222222222222222222222222222222"),
	}))
	return New(st), st
}

func validInput(id domain.BoxID) CreateBoxInput {
	return CreateBoxInput{
		ID:                  id,
		Price:               big.NewInt(1000),
		QuantityPerPurchase: 1,
		MaxSupply:           10,
	}
}

func pendingEventKinds(t *testing.T, st store.Store) []domain.EventKind {
	t.Helper()
	events, err := st.ListPendingEvents(context.Background(), 100)
	require.NoError(t, err)
	kinds := make([]domain.EventKind, 0, len(events))
	for _, e := range events {
		kinds = append(kinds, e.Kind)
	}
	return kinds
}

func TestCreateCoinBox(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		reg, st := newTestRegistry(t)

		box, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)
		assert.Equal(t, domain.BoxID(1), box.ID)
		assert.True(t, box.Enabled)
		assert.False(t, box.PaidWithToken)
		assert.Equal(t, domain.PaymentKindCoin, box.PaymentKind())

		assert.Equal(t, []domain.EventKind{domain.EventBoxCreatedCoin}, pendingEventKinds(t, st))
	})

	t.Run("validation order", func(t *testing.T) {
		reg, _ := newTestRegistry(t)

		// Identifier is checked before price, price before quantity.
		input := validInput(0)
		input.Price = nil
		input.QuantityPerPurchase = 0
		_, err := reg.CreateCoinBox(ctx, input)
		assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

		input = validInput(1)
		input.Price = big.NewInt(0)
		input.QuantityPerPurchase = 0
		_, err = reg.CreateCoinBox(ctx, input)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)

		input = validInput(1)
		input.QuantityPerPurchase = 0
		_, err = reg.CreateCoinBox(ctx, input)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})

	t.Run("duplicate identifier", func(t *testing.T) {
		reg, st := newTestRegistry(t)

		_, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)

		_, err = reg.CreateCoinBox(ctx, validInput(1))
		assert.ErrorIs(t, err, domain.ErrBoxAlreadyExists)

		// The failed creation stages nothing.
		assert.Len(t, pendingEventKinds(t, st), 1)
	})
}

func TestCreateTokenBox(t *testing.T) {
	ctx := context.Background()
	token := common.HexToAddress("0x3333333333333333333333333333333333333333")

	t.Run("happy path", func(t *testing.T) {
		reg, st := newTestRegistry(t)

		box, err := reg.CreateTokenBox(ctx, validInput(1), token)
		require.NoError(t, err)
		assert.True(t, box.PaidWithToken)
		require.NotNil(t, box.TokenContract)
		assert.Equal(t, token, *box.TokenContract)
		assert.Equal(t, domain.PaymentKindToken, box.PaymentKind())

		assert.Equal(t, []domain.EventKind{domain.EventBoxCreatedToken}, pendingEventKinds(t, st))
	})

	t.Run("zero price is rejected", func(t *testing.T) {
		reg, _ := newTestRegistry(t)

		input := validInput(1)
		input.Price = big.NewInt(0)
		_, err := reg.CreateTokenBox(ctx, input, token)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})
}

func TestCreateFreeBox(t *testing.T) {
	ctx := context.Background()

	t.Run("free boxes are signature-gated from birth", func(t *testing.T) {
		reg, st := newTestRegistry(t)

		box, err := reg.CreateFreeBox(ctx, 1, 2, 50)
		require.NoError(t, err)
		assert.True(t, box.Free())
		assert.True(t, box.RequiresSignature)
		assert.True(t, box.Enabled)
		assert.Equal(t, uint32(2), box.QuantityPerPurchase)
		assert.Equal(t, uint64(50), box.MaxSupply)
		assert.Equal(t, domain.PaymentKindFree, box.PaymentKind())

		assert.Equal(t, []domain.EventKind{domain.EventBoxCreatedFree}, pendingEventKinds(t, st))
	})

	t.Run("validation", func(t *testing.T) {
		reg, _ := newTestRegistry(t)

		_, err := reg.CreateFreeBox(ctx, 0, 1, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)

		_, err = reg.CreateFreeBox(ctx, 1, 0, 0)
		assert.ErrorIs(t, err, domain.ErrInvalidQuantity)
	})
}

func TestSetEnabled(t *testing.T) {
	ctx := context.Background()

	t.Run("disable then enable", func(t *testing.T) {
		reg, st := newTestRegistry(t)
		_, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)

		require.NoError(t, reg.SetEnabled(ctx, 1, false))
		box, err := reg.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.False(t, box.Enabled)

		require.NoError(t, reg.SetEnabled(ctx, 1, true))
		box, err = reg.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.True(t, box.Enabled)

		assert.Equal(t, []domain.EventKind{
			domain.EventBoxCreatedCoin,
			domain.EventBoxDisabled,
			domain.EventBoxEnabled,
		}, pendingEventKinds(t, st))
	})

	t.Run("no-op transitions are rejected", func(t *testing.T) {
		reg, st := newTestRegistry(t)
		_, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)

		err = reg.SetEnabled(ctx, 1, true)
		assert.ErrorIs(t, err, domain.ErrAlreadyInState)

		// No duplicate event for the rejected transition.
		assert.Len(t, pendingEventKinds(t, st), 1)
	})

	t.Run("missing box", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		err := reg.SetEnabled(ctx, 404, false)
		assert.ErrorIs(t, err, domain.ErrBoxNotFound)
	})

	t.Run("invalid identifier", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		err := reg.SetEnabled(ctx, 0, false)
		assert.ErrorIs(t, err, domain.ErrInvalidIdentifier)
	})
}

func TestSetPrice(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		reg, st := newTestRegistry(t)
		_, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)

		require.NoError(t, reg.SetPrice(ctx, 1, big.NewInt(2500)))

		box, err := reg.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, "2500", box.Price.String())

		kinds := pendingEventKinds(t, st)
		assert.Equal(t, domain.EventBoxPriceChanged, kinds[len(kinds)-1])
	})

	t.Run("free box cannot be priced", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		_, err := reg.CreateFreeBox(ctx, 1, 1, 0)
		require.NoError(t, err)

		err = reg.SetPrice(ctx, 1, big.NewInt(100))
		assert.ErrorIs(t, err, domain.ErrBoxIsFree)
	})

	t.Run("priced box cannot become free", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		_, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)

		err = reg.SetPrice(ctx, 1, big.NewInt(0))
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)

		err = reg.SetPrice(ctx, 1, nil)
		assert.ErrorIs(t, err, domain.ErrInvalidPrice)
	})

	t.Run("missing box", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		err := reg.SetPrice(ctx, 404, big.NewInt(100))
		assert.ErrorIs(t, err, domain.ErrBoxNotFound)
	})
}

func TestSetSignatureRequirement(t *testing.T) {
	ctx := context.Background()

	t.Run("toggle on a priced box", func(t *testing.T) {
		reg, st := newTestRegistry(t)
		_, err := reg.CreateCoinBox(ctx, validInput(1))
		require.NoError(t, err)

		require.NoError(t, reg.SetSignatureRequirement(ctx, 1, true))
		box, err := reg.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.True(t, box.RequiresSignature)

		require.NoError(t, reg.SetSignatureRequirement(ctx, 1, false))
		box, err = reg.GetBox(ctx, 1)
		require.NoError(t, err)
		assert.False(t, box.RequiresSignature)

		kinds := pendingEventKinds(t, st)
		assert.Equal(t, domain.EventBoxSignatureChanged, kinds[len(kinds)-1])
	})

	t.Run("free boxes stay gated", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		_, err := reg.CreateFreeBox(ctx, 1, 1, 0)
		require.NoError(t, err)

		err = reg.SetSignatureRequirement(ctx, 1, false)
		assert.ErrorIs(t, err, domain.ErrBoxIsFree)
	})
}

func TestGetBox(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	_, err := reg.GetBox(ctx, 404)
	assert.ErrorIs(t, err, domain.ErrBoxNotFound)

	_, err = reg.CreateCoinBox(ctx, validInput(1))
	require.NoError(t, err)

	box, err := reg.GetBox(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, domain.BoxID(1), box.ID)
}

func TestListBoxes(t *testing.T) {
	ctx := context.Background()
	reg, _ := newTestRegistry(t)

	boxes, err := reg.ListBoxes(ctx)
	require.NoError(t, err)
	assert.Empty(t, boxes)

	for _, id := range []domain.BoxID{3, 1, 2} {
		_, err := reg.CreateCoinBox(ctx, validInput(id))
		require.NoError(t, err)
	}

	boxes, err = reg.ListBoxes(ctx)
	require.NoError(t, err)
	require.Len(t, boxes, 3)
	assert.Equal(t, domain.BoxID(1), boxes[0].ID)
	assert.Equal(t, domain.BoxID(3), boxes[2].ID)
}

func TestSetPaused(t *testing.T) {
	ctx := context.Background()

	t.Run("pause and unpause", func(t *testing.T) {
		reg, st := newTestRegistry(t)

		require.NoError(t, reg.SetPaused(ctx, true))
		state, err := reg.GetSaleState(ctx)
		require.NoError(t, err)
		assert.True(t, state.Paused)

		require.NoError(t, reg.SetPaused(ctx, false))
		state, err = reg.GetSaleState(ctx)
		require.NoError(t, err)
		assert.False(t, state.Paused)

		assert.Equal(t, []domain.EventKind{
			domain.EventSalePaused,
			domain.EventSaleUnpaused,
		}, pendingEventKinds(t, st))
	})

	t.Run("no-op transitions are rejected", func(t *testing.T) {
		reg, st := newTestRegistry(t)

		err := reg.SetPaused(ctx, false)
		assert.ErrorIs(t, err, domain.ErrAlreadyInState)
		assert.Empty(t, pendingEventKinds(t, st))
	})
}

func TestSetPaymentAddress(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		reg, st := newTestRegistry(t)
		addr := common.HexToAddress("0x4444444444444444444444444444444444444444")

		require.NoError(t, reg.SetPaymentAddress(ctx, addr))

		state, err := reg.GetSaleState(ctx)
		require.NoError(t, err)
		assert.Equal(t, addr, state.PaymentAddress)

		assert.Equal(t, []domain.EventKind{domain.EventPaymentAddressChanged}, pendingEventKinds(t, st))
	})

	t.Run("zero address is rejected", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		err := reg.SetPaymentAddress(ctx, common.Address{})
		assert.ErrorIs(t, err, domain.ErrInvalidPaymentAddress)
	})
}

func TestSetTrustedSigner(t *testing.T) {
	ctx := context.Background()

	t.Run("happy path", func(t *testing.T) {
		reg, st := newTestRegistry(t)
		addr := common.HexToAddress("0x5555555555555555555555555555555555555555")

		require.NoError(t, reg.SetTrustedSigner(ctx, addr))

		state, err := reg.GetSaleState(ctx)
		require.NoError(t, err)
		assert.Equal(t, addr, state.TrustedSigner)

		assert.Equal(t, []domain.EventKind{domain.EventSignerAddressChanged}, pendingEventKinds(t, st))
	})

	t.Run("zero address is rejected", func(t *testing.T) {
		reg, _ := newTestRegistry(t)
		err := reg.SetTrustedSigner(ctx, common.Address{})
		assert.ErrorIs(t, err, domain.ErrInvalidSignerAddress)
	})
}

func TestSetBaseURI(t *testing.T) {
	ctx := context.Background()
	reg, st := newTestRegistry(t)

	require.NoError(t, reg.SetBaseURI(ctx, "ipfs://QmNewBase/"))

	state, err := reg.GetSaleState(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ipfs://QmNewBase/", state.BaseURI)

	assert.Equal(t, []domain.EventKind{domain.EventBaseMetadataChanged}, pendingEventKinds(t, st))
}

func TestRegisterWebhookEndpoint(t *testing.T) {
	ctx := context.Background()
	reg, st := newTestRegistry(t)

	endpoint, err := reg.RegisterWebhookEndpoint(ctx, "https://indexer.example.com/hooks", "secret")
	require.NoError(t, err)
	assert.NotEmpty(t, endpoint.ID)
	assert.Equal(t, "https://indexer.example.com/hooks", endpoint.URL)

	endpoints, err := st.ListWebhookEndpoints(ctx)
	require.NoError(t, err)
	require.Len(t, endpoints, 1)
	assert.Equal(t, endpoint.ID, endpoints[0].ID)
}
