package ledger

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/feral-file/ff-boxoffice/internal/adapter"
	"github.com/feral-file/ff-boxoffice/internal/mocks"
	"github.com/feral-file/ff-boxoffice/internal/relayer"
)

var (
	testCollection = common.HexToAddress("0x5FbDB2315678afecb367f032d93F642f64180aa3")
	testOwner      = common.HexToAddress("0x70997970C51812dc3A010C7d01b50e0d17dc79C8")
)

func newTestLedger(t *testing.T, client adapter.EthClient) Ledger {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	r := relayer.New(big.NewInt(1), key, client, adapter.NewClock(), 100_000, 100*time.Millisecond, time.Millisecond)

	l, err := NewEthereumLedger(testCollection, r)
	require.NoError(t, err)
	return l
}

func TestIssue(t *testing.T) {
	ctx := context.Background()

	t.Run("submits an issue call to the collection contract", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		l := newTestLedger(t, client)

		var sent *types.Transaction
		client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(0), nil)
		client.EXPECT().SuggestGasPrice(gomock.Any()).Return(big.NewInt(1), nil)
		client.EXPECT().SendTransaction(gomock.Any(), gomock.Any()).
			DoAndReturn(func(ctx context.Context, tx *types.Transaction) error {
				sent = tx
				return nil
			})
		client.EXPECT().TransactionReceipt(gomock.Any(), gomock.Any()).
			Return(&types.Receipt{Status: types.ReceiptStatusSuccessful}, nil)

		require.NoError(t, l.Issue(ctx, testOwner, 42))

		require.NotNil(t, sent)
		assert.Equal(t, testCollection, *sent.To())
		assert.Equal(t, "0", sent.Value().String())

		issueABI, err := abi.JSON(strings.NewReader(issueABIJSON))
		require.NoError(t, err)
		expected, err := issueABI.Pack("issue", testOwner, big.NewInt(42))
		require.NoError(t, err)
		assert.Equal(t, expected, sent.Data())
	})

	t.Run("submission failure surfaces", func(t *testing.T) {
		ctrl := gomock.NewController(t)
		client := mocks.NewMockEthClient(ctrl)
		l := newTestLedger(t, client)

		client.EXPECT().PendingNonceAt(gomock.Any(), gomock.Any()).Return(uint64(0), errors.New("connection refused"))

		err := l.Issue(ctx, testOwner, 1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to issue item")
	})
}
