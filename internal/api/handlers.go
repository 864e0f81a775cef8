package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/LordOfTheRobots/Book-Swap/internal/apperrors"
	"github.com/LordOfTheRobots/Book-Swap/internal/auth"
	"github.com/LordOfTheRobots/Book-Swap/internal/cache"
	"github.com/LordOfTheRobots/Book-Swap/internal/db"
	"github.com/LordOfTheRobots/Book-Swap/internal/exchange"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

type ctxKey int

const identityKey ctxKey = 0

// Handler contains dependencies for HTTP handlers
type Handler struct {
	DB          *db.DB
	Exchanges   *exchange.Service
	AuthService *auth.AuthService
	Cache       *cache.Cache
	validate    *validator.Validate
}

// NewHandler creates a new handler
func NewHandler(database *db.DB, ex *exchange.Service, authService *auth.AuthService, bookCache *cache.Cache) *Handler {
	return &Handler{
		DB:          database,
		Exchanges:   ex,
		AuthService: authService,
		Cache:       bookCache,
		validate:    validator.New(),
	}
}

// identityFrom pulls the authenticated caller out of the request context
func identityFrom(r *http.Request) (*auth.Identity, bool) {
	id, ok := r.Context().Value(identityKey).(*auth.Identity)
	return id, ok
}

// JWTAuthMiddleware verifies JWT tokens and stores the caller identity
// in the request context.
func (h *Handler) JWTAuthMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := r.Header.Get("Authorization")
		if tokenString == "" {
			writeError(w, apperrors.Unauthorized("authorization header required"))
			return
		}
		tokenString = strings.TrimPrefix(tokenString, "Bearer ")

		identity, err := h.AuthService.GetIdentityFromToken(tokenString)
		if err != nil {
			writeError(w, apperrors.Unauthorized("invalid or expired token"))
			return
		}

		ctx := context.WithValue(r.Context(), identityKey, identity)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

type registerRequest struct {
	Username  string `json:"username" validate:"required,min=3,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=6,max=100"`
	FirstName string `json:"first_name" validate:"max=100"`
	LastName  string `json:"last_name" validate:"max=100"`
	City      string `json:"city" validate:"max=100"`
}

// Register handles user registration
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	user, err := h.AuthService.Register(r.Context(), auth.RegisterParams{
		Username:  req.Username,
		Email:     req.Email,
		Password:  req.Password,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		City:      req.City,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"id":       user.ID,
		"username": user.Username,
	})
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// Login handles user login
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	token, err := h.AuthService.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, apperrors.Unauthorized("invalid credentials"))
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// Me returns the caller's profile
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	user, err := h.DB.GetUserByID(r.Context(), identity.UserID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func idParam(r *http.Request, name string) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, apperrors.InvalidArgument("invalid %s", name)
	}
	return id, nil
}

type createExchangeRequest struct {
	BookID int64 `json:"book_id" validate:"required,gt=0"`
}

// CreateExchange creates a new exchange request for a book
func (h *Handler) CreateExchange(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	var req createExchangeRequest
	if !h.decodeAndValidate(w, r, &req) {
		return
	}

	ex, err := h.Exchanges.CreateRequest(r.Context(), req.BookID, identity.Username)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"message":     "exchange request created",
		"exchange_id": ex.ID,
	})
}

// ApproveExchange approves a pending exchange request
func (h *Handler) ApproveExchange(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchangeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	ex, err := h.Exchanges.Approve(r.Context(), exchangeID, identity.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// CompleteExchange completes an accepted exchange
func (h *Handler) CompleteExchange(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchangeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	ex, err := h.Exchanges.Complete(r.Context(), exchangeID, identity.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

type rejectExchangeRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// RejectExchange rejects an exchange request with an optional reason
func (h *Handler) RejectExchange(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchangeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	// Body is optional for reject
	var req rejectExchangeRequest
	if r.Body != nil && r.ContentLength > 0 {
		if !h.decodeAndValidate(w, r, &req) {
			return
		}
	}

	if err := h.Exchanges.Reject(r.Context(), exchangeID, identity.Username, req.Reason); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "exchange rejected"})
}

// CancelExchange lets the requester withdraw an exchange request
func (h *Handler) CancelExchange(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchangeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.Exchanges.Cancel(r.Context(), exchangeID, identity.Username); err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "exchange cancelled"})
}

// GetExchange returns a single exchange, visible to its owner or requester
func (h *Handler) GetExchange(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchangeID, err := idParam(r, "id")
	if err != nil {
		writeError(w, err)
		return
	}

	ex, err := h.Exchanges.GetForParticipant(r.Context(), exchangeID, identity.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ex)
}

// GetMyExchanges returns the caller's exchange history, paginated
func (h *Handler) GetMyExchanges(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	size, _ := strconv.Atoi(q.Get("size"))
	if page < 0 {
		page = 0
	}
	if size <= 0 || size > 100 {
		size = 10
	}

	exchanges, total, err := h.Exchanges.ListUserExchanges(r.Context(), identity.Username, exchange.PageRequest{
		Page: page,
		Size: size,
		Sort: q.Get("sort"),
		Desc: q.Get("dir") != "asc",
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"exchanges": exchanges,
		"page":      page,
		"size":      size,
		"total":     total,
	})
}

// GetIncomingRequests returns pending requests for the caller's books
func (h *Handler) GetIncomingRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchanges, err := h.Exchanges.ListIncoming(r.Context(), identity.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exchanges)
}

// GetOutgoingRequests returns the caller's own exchange requests
func (h *Handler) GetOutgoingRequests(w http.ResponseWriter, r *http.Request) {
	identity, ok := identityFrom(r)
	if !ok {
		writeError(w, apperrors.Unauthorized("unauthorized"))
		return
	}

	exchanges, err := h.Exchanges.ListOutgoing(r.Context(), identity.Username)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, exchanges)
}
