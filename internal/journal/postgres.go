package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresRecorder writes journal entries to the transaction_journal table.
type PostgresRecorder struct {
	db *pgxpool.Pool
}

// NewPostgresRecorder wraps a pgx pool as a journal recorder.
func NewPostgresRecorder(db *pgxpool.Pool) *PostgresRecorder {
	return &PostgresRecorder{db: db}
}

func (r *PostgresRecorder) Record(ctx context.Context, entry Entry) error {
	if entry.RecordedAt.IsZero() {
		entry.RecordedAt = time.Now().UTC()
	}
	_, err := r.db.Exec(ctx, `
		INSERT INTO transaction_journal
			(id, transaction_id, kind, amount_micros, issuer_code, receiver_code,
			 masked_pan, status, error_code, message, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, uuid.New(), entry.TransactionID, entry.Kind, entry.AmountMicros,
		entry.IssuerCode, entry.ReceiverCode, entry.MaskedPAN,
		entry.Status, string(entry.ErrorCode), entry.Message, entry.RecordedAt)
	if err != nil {
		return fmt.Errorf("record journal entry: %w", err)
	}
	return nil
}
