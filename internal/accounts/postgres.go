package accounts

import (
	"context"
	"errors"
	"fmt"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore is the production account store.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool as an account store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) ResolveCard(ctx context.Context, pan string) (Card, error) {
	var card Card
	err := s.db.QueryRow(ctx, `
		SELECT pan, cvc, expiry, account_ref, active
		FROM cards WHERE pan = $1
	`, pan).Scan(&card.PAN, &card.CVC, &card.Expiry, &card.AccountRef, &card.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Card{}, ErrCardNotFound
	}
	if err != nil {
		return Card{}, fmt.Errorf("resolve card: %w", err)
	}
	return card, nil
}

func (s *PostgresStore) ResolveMerchant(ctx context.Context, merchantID string) (Merchant, error) {
	var m Merchant
	err := s.db.QueryRow(ctx, `
		SELECT id, name, account_ref, active
		FROM merchants WHERE id = $1
	`, merchantID).Scan(&m.ID, &m.Name, &m.AccountRef, &m.Active)
	if errors.Is(err, pgx.ErrNoRows) {
		return Merchant{}, ErrMerchantNotFound
	}
	if err != nil {
		return Merchant{}, fmt.Errorf("resolve merchant: %w", err)
	}
	return m, nil
}

func (s *PostgresStore) GetBalance(ctx context.Context, accountRef string) (domain.Money, error) {
	var micros int64
	err := s.db.QueryRow(ctx,
		`SELECT balance_micros FROM accounts WHERE ref = $1`, accountRef).Scan(&micros)
	if errors.Is(err, pgx.ErrNoRows) {
		return 0, ErrAccountNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return domain.Money(micros), nil
}

// PairedTransfer debits fromRef and credits toRef inside one database
// transaction. Rows are locked in a consistent order to avoid deadlocks
// between concurrent transfers touching the same pair.
func (s *PostgresStore) PairedTransfer(ctx context.Context, fromRef, toRef string, amount domain.Money) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transfer: %w", err)
	}
	defer tx.Rollback(ctx)

	first, second := fromRef, toRef
	if first > second {
		first, second = second, first
	}
	for _, ref := range []string{first, second} {
		var locked string
		if err := tx.QueryRow(ctx, `SELECT ref FROM accounts WHERE ref = $1 FOR UPDATE`, ref).Scan(&locked); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return ErrAccountNotFound
			}
			return fmt.Errorf("lock account %s: %w", ref, err)
		}
	}

	var fromBalance int64
	if err := tx.QueryRow(ctx, `SELECT balance_micros FROM accounts WHERE ref = $1`, fromRef).Scan(&fromBalance); err != nil {
		return fmt.Errorf("fetch payer balance: %w", err)
	}
	if domain.Money(fromBalance) < amount {
		return ErrInsufficientFunds
	}

	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_micros = balance_micros - $1 WHERE ref = $2`, amount.Micros(), fromRef); err != nil {
		return fmt.Errorf("debit %s: %w", fromRef, err)
	}
	if _, err := tx.Exec(ctx, `UPDATE accounts SET balance_micros = balance_micros + $1 WHERE ref = $2`, amount.Micros(), toRef); err != nil {
		return fmt.Errorf("credit %s: %w", toRef, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transfer: %w", err)
	}
	return nil
}

func (s *PostgresStore) Credit(ctx context.Context, accountRef string, amount domain.Money) error {
	tag, err := s.db.Exec(ctx,
		`UPDATE accounts SET balance_micros = balance_micros + $1 WHERE ref = $2`,
		amount.Micros(), accountRef)
	if err != nil {
		return fmt.Errorf("credit %s: %w", accountRef, err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAccountNotFound
	}
	return nil
}
