package api

import (
	"net/http"
	"strconv"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/db"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"
)

type bookRequest struct {
	Title           string `json:"title" validate:"required,max=255"`
	Author          string `json:"author" validate:"max=255"`
	Genre           string `json:"genre" validate:"max=100"`
	ISBN            string `json:"isbn" validate:"max=20"`
	Description     string `json:"description" validate:"max=2000"`
	PublicationYear int    `json:"publication_year" validate:"gte=0,lte=2100"`
	Language        string `json:"language" validate:"max=50"`
	PageCount       int    `json:"page_count" validate:"gte=0"`
	Available       *bool  `json:"available"`
}

// CreateBook lists a new book owned by the caller
func (h *Handler) CreateBook(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	var req bookRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	status := models.BookAvailable
	if req.Available != nil && !*req.Available {
		status = models.BookNotAvailable
	}

	book, err := h.DB.CreateBook(r.Context(), &models.Book{
		OwnerID:         identity.UserID,
		Title:           req.Title,
		Author:          req.Author,
		Genre:           req.Genre,
		ISBN:            req.ISBN,
		Description:     req.Description,
		PublicationYear: req.PublicationYear,
		Language:        req.Language,
		PageCount:       req.PageCount,
		ExchangeStatus:  status,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// GetBook returns a single book, served from cache when possible
func (h *Handler) GetBook(w http.ResponseWriter, r *http.Request) {
	bookID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if book := h.Cache.GetBook(r.Context(), bookID); book != nil {
		writeJSON(w, http.StatusOK, book)
		return
	}

	book, err := h.DB.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Cache.SetBook(r.Context(), book)
	writeJSON(w, http.StatusOK, book)
}

// SearchBooks returns a filtered, paginated page of available books
func (h *Handler) SearchBooks(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 100 {
		size = 10
	}

	books, total, err := h.DB.SearchBooks(r.Context(), db.BookSearch{
		Title:  q.Get("title"),
		Author: q.Get("author"),
		Genre:  q.Get("genre"),
		Page:   page,
		Size:   size,
		Sort:   q.Get("sort"),
		Desc:   q.Get("dir") != "asc",
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"books": books,
		"page":  page,
		"size":  size,
		"total": total,
	})
}

// GetMyBooks returns all books listed by the caller, any status
func (h *Handler) GetMyBooks(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	books, err := h.DB.ListBooksByOwner(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, books)
}

// UpdateBook updates the descriptive fields of a book the caller owns
func (h *Handler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	bookID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req bookRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.DB.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	if book.OwnerID != identity.UserID {
		writeError(w, apperrors.Forbidden("only the owner may edit a book"))
		return
	}

	book.Title = req.Title
	book.Author = req.Author
	book.Genre = req.Genre
	book.ISBN = req.ISBN
	book.Description = req.Description
	book.PublicationYear = req.PublicationYear
	book.Language = req.Language
	book.PageCount = req.PageCount

	updated, err := h.DB.UpdateBook(r.Context(), book)
	if err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateBook(r.Context(), bookID)
	writeJSON(w, http.StatusOK, updated)
}

type availabilityRequest struct {
	Available *bool `json:"available" validate:"required"`
}

// SetBookAvailability flips the caller's book between AVAILABLE and
// NOT_AVAILABLE. Books with an active exchange cannot be flipped.
func (h *Handler) SetBookAvailability(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	bookID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req availabilityRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.DB.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	if book.OwnerID != identity.UserID {
		writeError(w, apperrors.Forbidden("only the owner may change availability"))
		return
	}

	to := models.BookAvailable
	if !*req.Available {
		to = models.BookNotAvailable
	}

	if err := h.DB.SetBookAvailability(r.Context(), bookID, to); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateBook(r.Context(), bookID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "availability updated"})
}

// DeleteBook removes a book the caller owns (admins may remove any book)
func (h *Handler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	bookID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	book, err := h.DB.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	if book.OwnerID != identity.UserID && identity.Role != models.RoleAdmin {
		writeError(w, apperrors.Forbidden("only the owner may delete a book"))
		return
	}

	if err := h.DB.DeleteBook(r.Context(), bookID); err != nil {
		writeError(w, err)
		return
	}
	h.Cache.InvalidateBook(r.Context(), bookID)
	writeJSON(w, http.StatusOK, map[string]string{"message": "book deleted"})
}

type reviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment" validate:"max=2000"`
}

// CreateReview adds a review for another user's book
func (h *Handler) CreateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	bookID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req reviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	book, err := h.DB.GetBook(r.Context(), bookID)
	if err != nil {
		writeError(w, err)
		return
	}
	if book.OwnerID == identity.UserID {
		writeError(w, apperrors.InvalidArgument("cannot review your own book"))
		return
	}

	review, err := h.DB.CreateReview(r.Context(), &models.Review{
		BookID:   bookID,
		UserID:   identity.UserID,
		Rating:   req.Rating,
		Comment:  req.Comment,
		Approved: true,
	})
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, review)
}

// GetBookReviews lists approved reviews for a book with the average rating
func (h *Handler) GetBookReviews(w http.ResponseWriter, r *http.Request) {
	bookID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if _, err := h.DB.GetBook(r.Context(), bookID); err != nil {
		writeError(w, err)
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))

	reviews, avg, err := h.DB.ListBookReviews(r.Context(), bookID, page, size)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"reviews":        reviews,
		"average_rating": avg,
	})
}

// UpdateReview edits a review the caller wrote
func (h *Handler) UpdateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	reviewID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req reviewRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	review, err := h.DB.GetReview(r.Context(), reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	if review.UserID != identity.UserID {
		writeError(w, apperrors.Forbidden("only the author may edit a review"))
		return
	}

	updated, err := h.DB.UpdateReview(r.Context(), reviewID, req.Rating, req.Comment)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteReview removes a review the caller wrote (admins may remove any)
func (h *Handler) DeleteReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	reviewID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	review, err := h.DB.GetReview(r.Context(), reviewID)
	if err != nil {
		writeError(w, err)
		return
	}
	if review.UserID != identity.UserID && identity.Role != models.RoleAdmin {
		writeError(w, apperrors.Forbidden("only the author may delete a review"))
		return
	}

	if err := h.DB.DeleteReview(r.Context(), reviewID); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "review deleted"})
}

// GetMyReviews lists every review the caller has written, any approval state
func (h *Handler) GetMyReviews(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	reviews, err := h.DB.ListUserReviews(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, reviews)
}

type moderateRequest struct {
	Approved *bool `json:"approved" validate:"required"`
}

// ModerateReview approves or hides a review. Moderators and admins only.
func (h *Handler) ModerateReview(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}
	if identity.Role != models.RoleModerator && identity.Role != models.RoleAdmin {
		writeError(w, apperrors.Forbidden("moderator role required"))
		return
	}

	reviewID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	var req moderateRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	review, err := h.DB.SetReviewApproved(r.Context(), reviewID, *req.Approved)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, review)
}
