package exchange

import (
	"context"
	"errors"
	"fmt"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/jackc/pgx/v5"
)

// PageRequest selects a page of a user's exchange history.
type PageRequest struct {
	Page int
	Size int
	Sort string
	Desc bool
}

var exchangeSortColumns = map[string]string{
	"created_at": "created_at",
	"updated_at": "updated_at",
	"status":     "status",
}

// GetForParticipant returns a single exchange. Only its owner or requester
// may see it.
func (s *Service) GetForParticipant(ctx context.Context, exchangeID int64, username string) (*models.Exchange, error) {
	user, err := s.DB.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	row := s.DB.Pool.QueryRow(ctx,
		"SELECT "+exchangeColumns+" FROM book_exchanges WHERE id = $1", exchangeID)
	ex, err := scanExchange(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ExchangeNotFound(exchangeID)
		}
		return nil, fmt.Errorf("failed to get exchange: %w", err)
	}

	if ex.OwnerID != user.ID && ex.RequesterID != user.ID {
		return nil, apperrors.Forbidden("only the owner or requester may view an exchange")
	}
	return ex, nil
}

// ListUserExchanges returns every exchange where the user is owner or
// requester, paginated, with the total count.
func (s *Service) ListUserExchanges(ctx context.Context, username string, p PageRequest) ([]models.Exchange, int64, error) {
	user, err := s.DB.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, 0, err
	}

	var total int64
	err = s.DB.Pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM book_exchanges WHERE owner_id = $1 OR requester_id = $1", user.ID).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count exchanges: %w", err)
	}

	sortCol, ok := exchangeSortColumns[p.Sort]
	if !ok {
		sortCol = "created_at"
		p.Desc = true
	}
	dir := "ASC"
	if p.Desc {
		dir = "DESC"
	}
	if p.Size <= 0 || p.Size > 100 {
		p.Size = 10
	}
	if p.Page < 0 {
		p.Page = 0
	}

	query := fmt.Sprintf(
		"SELECT %s FROM book_exchanges WHERE owner_id = $1 OR requester_id = $1 ORDER BY %s %s LIMIT $2 OFFSET $3",
		exchangeColumns, sortCol, dir)

	rows, err := s.DB.Pool.Query(ctx, query, user.ID, p.Size, p.Page*p.Size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list exchanges: %w", err)
	}
	defer rows.Close()

	exchanges, err := collectExchanges(rows)
	if err != nil {
		return nil, 0, err
	}
	return exchanges, total, nil
}

// ListIncoming returns the PENDING exchanges waiting on the user as owner.
func (s *Service) ListIncoming(ctx context.Context, username string) ([]models.Exchange, error) {
	user, err := s.DB.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Pool.Query(ctx,
		"SELECT "+exchangeColumns+` FROM book_exchanges
		 WHERE owner_id = $1 AND status = $2 ORDER BY created_at DESC`,
		user.ID, models.ExchangePending)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming requests: %w", err)
	}
	defer rows.Close()

	return collectExchanges(rows)
}

// ListOutgoing returns every exchange the user requested, any status.
func (s *Service) ListOutgoing(ctx context.Context, username string) ([]models.Exchange, error) {
	user, err := s.DB.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	rows, err := s.DB.Pool.Query(ctx,
		"SELECT "+exchangeColumns+" FROM book_exchanges WHERE requester_id = $1 ORDER BY created_at DESC",
		user.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list outgoing requests: %w", err)
	}
	defer rows.Close()

	return collectExchanges(rows)
}

func collectExchanges(rows pgx.Rows) ([]models.Exchange, error) {
	var exchanges []models.Exchange
	for rows.Next() {
		ex, err := scanExchange(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan exchange: %w", err)
		}
		exchanges = append(exchanges, *ex)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return exchanges, nil
}
