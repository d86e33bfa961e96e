// Package ledger is the accounts/transactions context. It owns its state and
// shares nothing with the inventory and dashboard code.
package ledger

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrInsufficientFunds = errors.New("saldo insuficiente")
	ErrInvalidAmount     = errors.New("valor deve ser maior que zero")
	ErrUnknownKind       = errors.New("tipo de transação desconhecido")
)

type Kind string

const (
	KindDeposit  Kind = "deposit"
	KindWithdraw Kind = "withdraw"
	KindTransfer Kind = "transfer"
)

type Transaction struct {
	ID           string          `json:"id"`
	Kind         Kind            `json:"kind"`
	Amount       decimal.Decimal `json:"amount"`
	Description  string          `json:"description,omitempty"`
	Counterpart  string          `json:"counterpart,omitempty"`
	BalanceAfter decimal.Decimal `json:"balanceAfter"`
	At           time.Time       `json:"at"`
}

// Account is a point-in-time copy of the ledger state.
type Account struct {
	Number       string          `json:"number"`
	Name         string          `json:"name"`
	Balance      decimal.Decimal `json:"balance"`
	Transactions []Transaction   `json:"transactions"`
}

// Store holds a single account behind its own mutex.
type Store struct {
	mu      sync.Mutex
	account Account
	now     func() time.Time
}

func NewStore(number, name string, opening decimal.Decimal) *Store {
	return &Store{
		account: Account{Number: number, Name: name, Balance: opening},
		now:     time.Now,
	}
}

func (s *Store) SetName(name string) {
	s.mu.Lock()
	s.account.Name = name
	s.mu.Unlock()
}

func (s *Store) Deposit(amount decimal.Decimal, description string) (Transaction, error) {
	return s.apply(KindDeposit, amount, description, "")
}

func (s *Store) Withdraw(amount decimal.Decimal, description string) (Transaction, error) {
	return s.apply(KindWithdraw, amount, description, "")
}

// Transfer sends amount out of the account to counterpart.
func (s *Store) Transfer(amount decimal.Decimal, counterpart, description string) (Transaction, error) {
	return s.apply(KindTransfer, amount, description, counterpart)
}

// Apply dispatches on kind; used by the HTTP and CLI surfaces.
func (s *Store) Apply(kind Kind, amount decimal.Decimal, description, counterpart string) (Transaction, error) {
	switch kind {
	case KindDeposit, KindWithdraw, KindTransfer:
		return s.apply(kind, amount, description, counterpart)
	}
	return Transaction{}, ErrUnknownKind
}

func (s *Store) apply(kind Kind, amount decimal.Decimal, description, counterpart string) (Transaction, error) {
	if !amount.IsPositive() {
		return Transaction{}, ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	balance := s.account.Balance
	if kind == KindDeposit {
		balance = balance.Add(amount)
	} else {
		if balance.LessThan(amount) {
			return Transaction{}, ErrInsufficientFunds
		}
		balance = balance.Sub(amount)
	}

	tx := Transaction{
		ID:           uuid.NewString(),
		Kind:         kind,
		Amount:       amount,
		Description:  description,
		Counterpart:  counterpart,
		BalanceAfter: balance,
		At:           s.now(),
	}
	s.account.Balance = balance
	s.account.Transactions = append(s.account.Transactions, tx)
	return tx, nil
}

// Snapshot returns a copy; callers may not mutate the store through it.
func (s *Store) Snapshot() Account {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.account
	out.Transactions = append([]Transaction(nil), s.account.Transactions...)
	return out
}
