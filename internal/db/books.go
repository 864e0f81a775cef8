package db

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/jackc/pgx/v5"
)

const bookColumns = "id, owner_id, title, author, genre, isbn, description, publication_year, language, page_count, exchange_status, created_at, updated_at"

func scanBook(row pgx.Row) (*models.Book, error) {
	book := &models.Book{}
	err := row.Scan(&book.ID, &book.OwnerID, &book.Title, &book.Author, &book.Genre,
		&book.ISBN, &book.Description, &book.PublicationYear, &book.Language,
		&book.PageCount, &book.ExchangeStatus, &book.CreatedAt, &book.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return book, nil
}

// CreateBook inserts a new book for its owner
func (db *DB) CreateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	row := db.Pool.QueryRow(ctx,
		`INSERT INTO books (owner_id, title, author, genre, isbn, description, publication_year, language, page_count, exchange_status)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 RETURNING `+bookColumns,
		book.OwnerID, book.Title, book.Author, book.Genre, book.ISBN, book.Description,
		book.PublicationYear, book.Language, book.PageCount, book.ExchangeStatus)

	created, err := scanBook(row)
	if err != nil {
		return nil, fmt.Errorf("failed to create book: %w", err)
	}
	return created, nil
}

// GetBook retrieves a book by id
func (db *DB) GetBook(ctx context.Context, id int64) (*models.Book, error) {
	row := db.Pool.QueryRow(ctx, "SELECT "+bookColumns+" FROM books WHERE id = $1", id)
	book, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.BookNotFound(id)
		}
		return nil, fmt.Errorf("failed to get book: %w", err)
	}
	return book, nil
}

// UpdateBook updates the descriptive fields of a book. Ownership is checked
// by the caller; availability is managed separately.
func (db *DB) UpdateBook(ctx context.Context, book *models.Book) (*models.Book, error) {
	row := db.Pool.QueryRow(ctx,
		`UPDATE books
		 SET title = $1, author = $2, genre = $3, isbn = $4, description = $5,
		     publication_year = $6, language = $7, page_count = $8, updated_at = NOW()
		 WHERE id = $9
		 RETURNING `+bookColumns,
		book.Title, book.Author, book.Genre, book.ISBN, book.Description,
		book.PublicationYear, book.Language, book.PageCount, book.ID)

	updated, err := scanBook(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.BookNotFound(book.ID)
		}
		return nil, fmt.Errorf("failed to update book: %w", err)
	}
	return updated, nil
}

// SetBookAvailability flips a book between AVAILABLE and NOT_AVAILABLE.
// A RESERVED or EXCHANGED book belongs to the exchange workflow and cannot
// be flipped here. The row is locked for the check-and-set.
func (db *DB) SetBookAvailability(ctx context.Context, bookID int64, to models.BookStatus) error {
	if to != models.BookAvailable && to != models.BookNotAvailable {
		return apperrors.InvalidArgument("availability must be %s or %s", models.BookAvailable, models.BookNotAvailable)
	}

	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.BookStatus
	err = tx.QueryRow(ctx, "SELECT exchange_status FROM books WHERE id = $1 FOR UPDATE", bookID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.BookNotFound(bookID)
		}
		return fmt.Errorf("failed to get book: %w", err)
	}

	if status != models.BookAvailable && status != models.BookNotAvailable {
		return apperrors.Conflict("book %d has an active exchange", bookID)
	}

	_, err = tx.Exec(ctx, "UPDATE books SET exchange_status = $1, updated_at = NOW() WHERE id = $2", to, bookID)
	if err != nil {
		return fmt.Errorf("failed to update book status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteBook removes a book that is not currently reserved
func (db *DB) DeleteBook(ctx context.Context, bookID int64) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status models.BookStatus
	err = tx.QueryRow(ctx, "SELECT exchange_status FROM books WHERE id = $1 FOR UPDATE", bookID).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperrors.BookNotFound(bookID)
		}
		return fmt.Errorf("failed to get book: %w", err)
	}

	if status == models.BookReserved {
		return apperrors.Conflict("book %d has an active exchange", bookID)
	}

	if _, err := tx.Exec(ctx, "DELETE FROM books WHERE id = $1", bookID); err != nil {
		return fmt.Errorf("failed to delete book: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListBooksByOwner retrieves all books listed by a user, any status
func (db *DB) ListBooksByOwner(ctx context.Context, ownerID int64) ([]models.Book, error) {
	rows, err := db.Pool.Query(ctx,
		"SELECT "+bookColumns+" FROM books WHERE owner_id = $1 ORDER BY created_at DESC", ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list books: %w", err)
	}
	defer rows.Close()

	return collectBooks(rows)
}

// BookSearch holds the catalog search filters. Empty fields are ignored.
type BookSearch struct {
	Title  string
	Author string
	Genre  string
	Page   int
	Size   int
	Sort   string
	Desc   bool
}

var bookSortColumns = map[string]string{
	"created_at": "created_at",
	"title":      "title",
}

// SearchBooks returns AVAILABLE books matching the filters, with the total
// count for pagination.
func (db *DB) SearchBooks(ctx context.Context, q BookSearch) ([]models.Book, int64, error) {
	where := []string{"exchange_status = 'AVAILABLE'"}
	args := []any{}

	if q.Title != "" {
		args = append(args, "%"+q.Title+"%")
		where = append(where, fmt.Sprintf("title ILIKE $%d", len(args)))
	}
	if q.Author != "" {
		args = append(args, "%"+q.Author+"%")
		where = append(where, fmt.Sprintf("author ILIKE $%d", len(args)))
	}
	if q.Genre != "" {
		args = append(args, q.Genre)
		where = append(where, fmt.Sprintf("genre ILIKE $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int64
	err := db.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM books WHERE "+whereClause, args...).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count books: %w", err)
	}

	sortCol, ok := bookSortColumns[q.Sort]
	if !ok {
		sortCol = "created_at"
		q.Desc = true
	}
	dir := "ASC"
	if q.Desc {
		dir = "DESC"
	}

	if q.Size <= 0 || q.Size > 100 {
		q.Size = 10
	}
	if q.Page < 0 {
		q.Page = 0
	}
	args = append(args, q.Size, q.Page*q.Size)

	query := fmt.Sprintf("SELECT %s FROM books WHERE %s ORDER BY %s %s LIMIT $%d OFFSET $%d",
		bookColumns, whereClause, sortCol, dir, len(args)-1, len(args))

	rows, err := db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to search books: %w", err)
	}
	defer rows.Close()

	books, err := collectBooks(rows)
	if err != nil {
		return nil, 0, err
	}
	return books, total, nil
}

func collectBooks(rows pgx.Rows) ([]models.Book, error) {
	var books []models.Book
	for rows.Next() {
		book, err := scanBook(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan book: %w", err)
		}
		books = append(books, *book)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return books, nil
}
