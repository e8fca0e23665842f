package core

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document type codes used for numbering.
const (
	DocTypePurchaseRequest = "PR"
	DocTypePurchaseOrder   = "PO"
)

// DocumentService assigns gapless document numbers per type and year.
type DocumentService interface {
	// NextNumber allocates the next number in its own transaction. Use for standalone calls.
	NextNumber(ctx context.Context, typeCode string, year int) (string, error)
	// NextNumberTx allocates the next number inside the caller's transaction, so the
	// number is only consumed when the document insert commits.
	NextNumberTx(ctx context.Context, tx pgx.Tx, typeCode string, year int) (string, error)
}

type documentService struct {
	pool *pgxpool.Pool
}

func NewDocumentService(pool *pgxpool.Pool) DocumentService {
	return &documentService{pool: pool}
}

func (s *documentService) NextNumber(ctx context.Context, typeCode string, year int) (string, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	number, err := nextNumberWithTx(ctx, tx, typeCode, year)
	if err != nil {
		return "", err
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return number, nil
}

func (s *documentService) NextNumberTx(ctx context.Context, tx pgx.Tx, typeCode string, year int) (string, error) {
	return nextNumberWithTx(ctx, tx, typeCode, year)
}

// nextNumberWithTx bumps the sequence row for (typeCode, year), creating it on first use.
func nextNumberWithTx(ctx context.Context, tx pgx.Tx, typeCode string, year int) (string, error) {
	var lastNumber int64
	querySeq := `
		INSERT INTO document_sequences (type_code, year, last_number)
		VALUES ($1, $2, 1)
		ON CONFLICT (type_code, year)
		DO UPDATE SET last_number = document_sequences.last_number + 1
		RETURNING last_number
	`
	if err := tx.QueryRow(ctx, querySeq, typeCode, year).Scan(&lastNumber); err != nil {
		return "", fmt.Errorf("failed to generate gapless sequence number: %w", err)
	}
	return FormatDocumentNumber(typeCode, year, lastNumber), nil
}

// FormatDocumentNumber renders e.g. PO-2025-00001.
func FormatDocumentNumber(typeCode string, year int, n int64) string {
	return fmt.Sprintf("%s-%d-%05d", typeCode, year, n)
}
