package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/jackc/pgx/v5"
)

const reviewColumns = "id, book_id, user_id, rating, comment, is_approved, created_at, updated_at"

func scanReview(row pgx.Row) (*models.Review, error) {
	review := &models.Review{}
	err := row.Scan(&review.ID, &review.BookID, &review.UserID, &review.Rating,
		&review.Comment, &review.Approved, &review.CreatedAt, &review.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return review, nil
}

// CreateReview inserts a review. One review per user and book.
func (db *DB) CreateReview(ctx context.Context, review *models.Review) (*models.Review, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO reviews (book_id, user_id, rating, comment, is_approved)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+reviewColumns,
		review.BookID, review.UserID, review.Rating, review.Comment, review.Approved)

	created, err := scanReview(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, apperrors.Conflict("book already reviewed by this user")
		}
		return nil, fmt.Errorf("failed to create review: %w", err)
	}
	return created, nil
}

// GetReview retrieves a review by id
func (db *DB) GetReview(ctx context.Context, id int64) (*models.Review, error) {
	row := db.Pool.QueryRow(ctx, "SELECT "+reviewColumns+" FROM reviews WHERE id = $1", id)
	review, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review %d not found", id)
		}
		return nil, fmt.Errorf("failed to get review: %w", err)
	}
	return review, nil
}

// UpdateReview replaces the rating and comment of a review
func (db *DB) UpdateReview(ctx context.Context, id int64, rating int, comment string) (*models.Review, error) {
	row := db.Pool.QueryRow(ctx,
		`UPDATE reviews SET rating = $1, comment = $2, updated_at = NOW()
		 WHERE id = $3 RETURNING `+reviewColumns,
		rating, comment, id)

	updated, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review %d not found", id)
		}
		return nil, fmt.Errorf("failed to update review: %w", err)
	}
	return updated, nil
}

// DeleteReview removes a review
func (db *DB) DeleteReview(ctx context.Context, id int64) error {
	tag, err := db.Pool.Exec(ctx, "DELETE FROM reviews WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("failed to delete review: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("review %d not found", id)
	}
	return nil
}

// SetReviewApproved sets the moderation flag on a review
func (db *DB) SetReviewApproved(ctx context.Context, id int64, approved bool) (*models.Review, error) {
	row := db.Pool.QueryRow(ctx,
		`UPDATE reviews SET is_approved = $1, updated_at = NOW()
		 WHERE id = $2 RETURNING `+reviewColumns,
		approved, id)

	updated, err := scanReview(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NotFound("review %d not found", id)
		}
		return nil, fmt.Errorf("failed to moderate review: %w", err)
	}
	return updated, nil
}

// ListBookReviews returns the approved reviews for a book with the average
// rating over the approved set.
func (db *DB) ListBookReviews(ctx context.Context, bookID int64, page, size int) ([]models.Review, float64, error) {
	if size <= 0 || size > 100 {
		size = 10
	}
	if page < 0 {
		page = 0
	}

	var avg float64
	err := db.Pool.QueryRow(ctx,
		"SELECT COALESCE(AVG(rating), 0) FROM reviews WHERE book_id = $1 AND is_approved", bookID).Scan(&avg)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to get average rating: %w", err)
	}

	rows, err := db.Pool.Query(ctx,
		"SELECT "+reviewColumns+` FROM reviews
		 WHERE book_id = $1 AND is_approved
		 ORDER BY created_at DESC LIMIT $2 OFFSET $3`,
		bookID, size, page*size)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return reviews, avg, nil
}

// ListUserReviews returns all reviews written by a user
func (db *DB) ListUserReviews(ctx context.Context, userID int64) ([]models.Review, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+reviewColumns+" FROM reviews WHERE user_id = $1 ORDER BY created_at DESC", userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list reviews: %w", err)
	}
	defer rows.Close()

	var reviews []models.Review
	for rows.Next() {
		review, err := scanReview(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan review: %w", err)
		}
		reviews = append(reviews, *review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return reviews, nil
}
