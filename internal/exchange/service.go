package exchange

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/cache"
	"github.com/LordOfTheRobots/Book-Swap/internal/db"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/jackc/pgx/v5"
)

// Service drives exchange requests through their state machine. Every
// mutation runs in one transaction that locks the rows it touches, so the
// exchange status and the book availability flag always move together.
// Concurrent requests on the same book serialize on the book row; requests
// on different books do not contend.
type Service struct {
	DB    *db.DB
	Cache *cache.Cache
}

// NewService creates a new exchange service
func NewService(database *db.DB, bookCache *cache.Cache) *Service {
	return &Service{DB: database, Cache: bookCache}
}

const exchangeColumns = "id, book_id, owner_id, requester_id, status, exchange_type, owner_response, exchange_date, is_completed, created_at, updated_at"

func scanExchange(row pgx.Row) (*models.Exchange, error) {
	ex := &models.Exchange{}
	err := row.Scan(&ex.ID, &ex.BookID, &ex.OwnerID, &ex.RequesterID, &ex.Status,
		&ex.ExchangeType, &ex.OwnerResponse, &ex.ExchangeDate, &ex.Completed,
		&ex.CreatedAt, &ex.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return ex, nil
}

// CreateRequest creates a PENDING exchange for an AVAILABLE book and
// reserves the book, atomically. The book row is locked for the
// check-and-set: when two requesters race, exactly one sees AVAILABLE.
func (s *Service) CreateRequest(ctx context.Context, bookID int64, requesterUsername string) (*models.Exchange, error) {
	requester, err := s.DB.GetUserByUsername(ctx, requesterUsername)
	if err != nil {
		return nil, err
	}

	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var ownerID int64
	var status models.BookStatus
	err = tx.QueryRow(ctx,
		"SELECT owner_id, exchange_status FROM books WHERE id = $1 FOR UPDATE", bookID).
		Scan(&ownerID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.BookNotFound(bookID)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}

	if status != models.BookAvailable {
		log.Printf("Exchange request for book %d by %s refused: book is %s", bookID, requesterUsername, status)
		return nil, apperrors.BookNotAvailable(bookID)
	}
	if ownerID == requester.ID {
		log.Printf("Exchange request for book %d by %s refused: requester owns the book", bookID, requesterUsername)
		return nil, apperrors.OwnBookRequest()
	}

	row := tx.QueryRow(ctx,
		`INSERT INTO book_exchanges (book_id, owner_id, requester_id, status, exchange_type)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+exchangeColumns,
		bookID, ownerID, requester.ID, models.ExchangePending, models.BookForBook)
	ex, err := scanExchange(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create exchange: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE books SET exchange_status = $1, updated_at = NOW() WHERE id = $2",
		models.BookReserved, bookID)
	if err != nil {
		return nil, fmt.Errorf("failed to reserve book: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.Cache.InvalidateBook(ctx, bookID)
	log.Printf("Exchange %d created: book %d requested by %s, status %s", ex.ID, bookID, requesterUsername, ex.Status)
	return ex, nil
}

// Approve moves a PENDING exchange to ACCEPTED. Owner only. The book stays
// RESERVED until the exchange completes or is rejected.
func (s *Service) Approve(ctx context.Context, exchangeID int64, callerUsername string) (*models.Exchange, error) {
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ex, err := s.lockExchange(ctx, tx, exchangeID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, tx, ex, callerUsername); err != nil {
		return nil, err
	}
	if !ex.Status.CanBeAccepted() {
		log.Printf("Approve of exchange %d by %s refused: status is %s", exchangeID, callerUsername, ex.Status)
		return nil, apperrors.InvalidState("cannot approve exchange in status %s", ex.Status)
	}

	row := tx.QueryRow(ctx,
		`UPDATE book_exchanges SET status = $1, updated_at = NOW()
		 WHERE id = $2 RETURNING `+exchangeColumns,
		models.ExchangeAccepted, exchangeID)
	updated, err := scanExchange(row)
	if err != nil {
		return nil, fmt.Errorf("failed to approve exchange: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	log.Printf("Exchange %d approved by %s, status %s", exchangeID, callerUsername, updated.Status)
	return updated, nil
}

// Complete moves an ACCEPTED exchange to COMPLETED and marks the book
// EXCHANGED, atomically. Owner only.
func (s *Service) Complete(ctx context.Context, exchangeID int64, callerUsername string) (*models.Exchange, error) {
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ex, err := s.lockExchange(ctx, tx, exchangeID)
	if err != nil {
		return nil, err
	}
	if err := s.requireOwner(ctx, tx, ex, callerUsername); err != nil {
		return nil, err
	}
	if !ex.Status.CanBeCompleted() {
		log.Printf("Complete of exchange %d by %s refused: status is %s", exchangeID, callerUsername, ex.Status)
		return nil, apperrors.InvalidState("cannot complete exchange in status %s", ex.Status)
	}

	row := tx.QueryRow(ctx,
		`UPDATE book_exchanges
		 SET status = $1, is_completed = TRUE, exchange_date = NOW(), updated_at = NOW()
		 WHERE id = $2 RETURNING `+exchangeColumns,
		models.ExchangeCompleted, exchangeID)
	updated, err := scanExchange(row)
	if err != nil {
		return nil, fmt.Errorf("failed to complete exchange: %w", err)
	}

	if err := s.setBookStatus(ctx, tx, ex.BookID, models.BookExchanged); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.Cache.InvalidateBook(ctx, ex.BookID)
	log.Printf("Exchange %d completed by %s, book %d exchanged", exchangeID, callerUsername, ex.BookID)
	return updated, nil
}

// Reject moves a PENDING or ACCEPTED exchange to REJECTED and returns the
// book to AVAILABLE, atomically. Owner only. An optional reason is recorded
// as the owner's response.
func (s *Service) Reject(ctx context.Context, exchangeID int64, callerUsername, reason string) error {
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ex, err := s.lockExchange(ctx, tx, exchangeID)
	if err != nil {
		return err
	}
	if err := s.requireOwner(ctx, tx, ex, callerUsername); err != nil {
		return err
	}
	if !ex.Status.CanBeRejected() {
		log.Printf("Reject of exchange %d by %s refused: status is %s", exchangeID, callerUsername, ex.Status)
		return apperrors.InvalidState("cannot reject exchange in status %s", ex.Status)
	}

	_, err = tx.Exec(ctx,
		`UPDATE book_exchanges
		 SET status = $1, owner_response = CASE WHEN $2 <> '' THEN $2 ELSE owner_response END, updated_at = NOW()
		 WHERE id = $3`,
		models.ExchangeRejected, reason, exchangeID)
	if err != nil {
		return fmt.Errorf("failed to reject exchange: %w", err)
	}

	if err := s.setBookStatus(ctx, tx, ex.BookID, models.BookAvailable); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.Cache.InvalidateBook(ctx, ex.BookID)
	log.Printf("Exchange %d rejected by %s, book %d available again", exchangeID, callerUsername, ex.BookID)
	return nil
}

// Cancel lets the requester back out of a PENDING or ACCEPTED exchange.
// The book returns to AVAILABLE, atomically.
func (s *Service) Cancel(ctx context.Context, exchangeID int64, callerUsername string) error {
	tx, err := s.DB.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	ex, err := s.lockExchange(ctx, tx, exchangeID)
	if err != nil {
		return err
	}

	var requesterUsername string
	err = tx.QueryRow(ctx, "SELECT username FROM users WHERE id = $1", ex.RequesterID).Scan(&requesterUsername)
	if err != nil {
		return fmt.Errorf("failed to get requester: %w", err)
	}
	if requesterUsername != callerUsername {
		log.Printf("Cancel of exchange %d by %s refused: not the requester", exchangeID, callerUsername)
		return apperrors.Forbidden("only the requester may cancel an exchange")
	}

	if !ex.Status.CanBeCancelled() {
		log.Printf("Cancel of exchange %d by %s refused: status is %s", exchangeID, callerUsername, ex.Status)
		return apperrors.InvalidState("cannot cancel exchange in status %s", ex.Status)
	}

	_, err = tx.Exec(ctx,
		"UPDATE book_exchanges SET status = $1, updated_at = NOW() WHERE id = $2",
		models.ExchangeCancelled, exchangeID)
	if err != nil {
		return fmt.Errorf("failed to cancel exchange: %w", err)
	}

	if err := s.setBookStatus(ctx, tx, ex.BookID, models.BookAvailable); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	s.Cache.InvalidateBook(ctx, ex.BookID)
	log.Printf("Exchange %d cancelled by %s, book %d available again", exchangeID, callerUsername, ex.BookID)
	return nil
}

// lockExchange loads an exchange with its row locked for the transaction.
func (s *Service) lockExchange(ctx context.Context, tx pgx.Tx, exchangeID int64) (*models.Exchange, error) {
	row := tx.QueryRow(ctx,
		"SELECT "+exchangeColumns+" FROM book_exchanges WHERE id = $1 FOR UPDATE", exchangeID)
	ex, err := scanExchange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ExchangeNotFound(exchangeID)
		}
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}
	return ex, nil
}

// requireOwner verifies the caller is the exchange's owner.
func (s *Service) requireOwner(ctx context.Context, tx pgx.Tx, ex *models.Exchange, callerUsername string) error {
	var ownerUsername string
	err := tx.QueryRow(ctx, "SELECT username FROM users WHERE id = $1", ex.OwnerID).Scan(&ownerUsername)
	if err != nil {
		return fmt.Errorf("failed to get owner: %w", err)
	}
	if ownerUsername != callerUsername {
		log.Printf("Exchange %d: %s is not the owner", ex.ID, callerUsername)
		return apperrors.NotExchangeOwner()
	}
	return nil
}

// setBookStatus updates the availability flag inside the caller's
// transaction. The book row is locked to keep the write ordered with
// concurrent create requests.
func (s *Service) setBookStatus(ctx context.Context, tx pgx.Tx, bookID int64, to models.BookStatus) error {
	var current models.BookStatus
	err := tx.QueryRow(ctx, "SELECT exchange_status FROM books WHERE id = $1 FOR UPDATE", bookID).Scan(&current)
	if err != nil {
		return fmt.Errorf("failed to lock book: %w", err)
	}
	_, err = tx.Exec(ctx, "UPDATE books SET exchange_status = $1, updated_at = NOW() WHERE id = $2", to, bookID)
	if err != nil {
		return fmt.Errorf("failed to update book status: %w", err)
	}
	return nil
}
