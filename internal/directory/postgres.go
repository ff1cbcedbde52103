package directory

import (
	"context"
	"fmt"

	"github.com/austrobank/interswitch/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresStore persists directory nodes in the bank_nodes table.
type PostgresStore struct {
	db *pgxpool.Pool
}

// NewPostgresStore wraps a pgx pool as a directory store.
func NewPostgresStore(db *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Load() ([]domain.BankNode, error) {
	rows, err := s.db.Query(context.Background(), `
		SELECT code, name, legal_id, COALESCE(api_endpoint, ''), kind, status
		FROM bank_nodes
		ORDER BY seq ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("load bank nodes: %w", err)
	}
	defer rows.Close()

	var nodes []domain.BankNode
	for rows.Next() {
		var n domain.BankNode
		if err := rows.Scan(&n.Code, &n.Name, &n.LegalID, &n.APIEndpoint, &n.Kind, &n.Status); err != nil {
			return nil, fmt.Errorf("scan bank node: %w", err)
		}
		nodes = append(nodes, n)
	}
	return nodes, rows.Err()
}

func (s *PostgresStore) Append(node domain.BankNode) error {
	_, err := s.db.Exec(context.Background(), `
		INSERT INTO bank_nodes (code, name, legal_id, api_endpoint, kind, status, registered_at)
		VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`, node.Code, node.Name, node.LegalID, node.APIEndpoint, node.Kind, node.Status)
	if err != nil {
		return fmt.Errorf("insert bank node: %w", err)
	}
	return nil
}

func (s *PostgresStore) UpdateStatus(code, status string) error {
	tag, err := s.db.Exec(context.Background(),
		`UPDATE bank_nodes SET status = $1 WHERE code = $2`, status, code)
	if err != nil {
		return fmt.Errorf("update bank node status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
