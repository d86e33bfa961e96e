package ledger

import (
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestDepositAndWithdraw(t *testing.T) {
	s := NewStore("0001", "Fazenda", d("100"))

	tx, err := s.Deposit(d("50"), "venda feira")
	require.NoError(t, err)
	assert.True(t, tx.BalanceAfter.Equal(d("150")))

	_, err = s.Withdraw(d("30"), "ração")
	require.NoError(t, err)

	snap := s.Snapshot()
	assert.True(t, snap.Balance.Equal(d("120")))
	assert.Len(t, snap.Transactions, 2)
}

func TestWithdrawBeyondBalanceFails(t *testing.T) {
	s := NewStore("0001", "Fazenda", d("10"))

	_, err := s.Withdraw(d("10.01"), "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	_, err = s.Transfer(d("11"), "0002", "")
	assert.ErrorIs(t, err, ErrInsufficientFunds)

	snap := s.Snapshot()
	assert.True(t, snap.Balance.Equal(d("10")))
	assert.Empty(t, snap.Transactions)
}

func TestRejectsNonPositiveAmounts(t *testing.T) {
	s := NewStore("0001", "Fazenda", decimal.Zero)
	_, err := s.Deposit(decimal.Zero, "")
	assert.ErrorIs(t, err, ErrInvalidAmount)
	_, err = s.Apply("refund", d("1"), "", "")
	assert.ErrorIs(t, err, ErrUnknownKind)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore("0001", "Fazenda", decimal.Zero)
	_, _ = s.Deposit(d("5"), "")
	snap := s.Snapshot()
	snap.Transactions[0].Amount = d("999")
	assert.True(t, s.Snapshot().Transactions[0].Amount.Equal(d("5")))
}

func TestConcurrentDepositsAreSerialized(t *testing.T) {
	s := NewStore("0001", "Fazenda", decimal.Zero)
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = s.Deposit(d("1"), "")
		}()
	}
	wg.Wait()
	assert.True(t, s.Snapshot().Balance.Equal(d("50")))
}
