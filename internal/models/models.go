package models

import "time"

// Role controls access to moderation endpoints
type Role string

const (
	RoleUser      Role = "USER"
	RoleAdmin     Role = "ADMIN"
	RoleModerator Role = "MODERATOR"
)

// BookStatus is the availability flag on a book. Only an AVAILABLE book can
// be requested; RESERVED and EXCHANGED are owned by the exchange workflow.
type BookStatus string

const (
	BookAvailable    BookStatus = "AVAILABLE"
	BookReserved     BookStatus = "RESERVED"
	BookExchanged    BookStatus = "EXCHANGED"
	BookNotAvailable BookStatus = "NOT_AVAILABLE"
)

// ExchangeStatus is the state of an exchange request.
// PENDING -> ACCEPTED -> COMPLETED, with REJECTED and CANCELLED as the
// other terminal states. No transition leaves a terminal state.
type ExchangeStatus string

const (
	ExchangePending   ExchangeStatus = "PENDING"
	ExchangeAccepted  ExchangeStatus = "ACCEPTED"
	ExchangeRejected  ExchangeStatus = "REJECTED"
	ExchangeCompleted ExchangeStatus = "COMPLETED"
	ExchangeCancelled ExchangeStatus = "CANCELLED"
)

// CanBeAccepted reports whether approve is a legal transition.
func (s ExchangeStatus) CanBeAccepted() bool {
	return s == ExchangePending
}

// CanBeCompleted reports whether complete is a legal transition.
func (s ExchangeStatus) CanBeCompleted() bool {
	return s == ExchangeAccepted
}

// CanBeRejected reports whether reject is a legal transition.
func (s ExchangeStatus) CanBeRejected() bool {
	return s == ExchangePending || s == ExchangeAccepted
}

// CanBeCancelled reports whether the requester may still back out.
func (s ExchangeStatus) CanBeCancelled() bool {
	return s == ExchangePending || s == ExchangeAccepted
}

// Terminal reports whether no further transition is defined for s.
func (s ExchangeStatus) Terminal() bool {
	return s == ExchangeRejected || s == ExchangeCompleted || s == ExchangeCancelled
}

// ExchangeType describes what the requester offers in return.
type ExchangeType string

const (
	BookForBook  ExchangeType = "BOOK_FOR_BOOK"
	BookForMoney ExchangeType = "BOOK_FOR_MONEY"
	FreeGift     ExchangeType = "FREE_GIFT"
)

// User represents a registered user
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	FirstName    string    `json:"first_name"`
	LastName     string    `json:"last_name"`
	City         string    `json:"city,omitempty"`
	Role         Role      `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Book represents a listed book
type Book struct {
	ID              int64      `json:"id"`
	OwnerID         int64      `json:"owner_id"`
	Title           string     `json:"title"`
	Author          string     `json:"author,omitempty"`
	Genre           string     `json:"genre,omitempty"`
	ISBN            string     `json:"isbn,omitempty"`
	Description     string     `json:"description,omitempty"`
	PublicationYear int        `json:"publication_year,omitempty"`
	Language        string     `json:"language,omitempty"`
	PageCount       int        `json:"page_count,omitempty"`
	ExchangeStatus  BookStatus `json:"exchange_status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// Exchange represents one exchange request. Records are never deleted;
// terminal statuses keep the ledger as an audit trail.
type Exchange struct {
	ID            int64          `json:"id"`
	BookID        int64          `json:"book_id"`
	OwnerID       int64          `json:"owner_id"`
	RequesterID   int64          `json:"requester_id"`
	Status        ExchangeStatus `json:"status"`
	ExchangeType  ExchangeType   `json:"exchange_type"`
	OwnerResponse string         `json:"owner_response,omitempty"`
	ExchangeDate  *time.Time     `json:"exchange_date,omitempty"`
	Completed     bool           `json:"completed"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`
}

// Review represents a user's review of another user's book
type Review struct {
	ID        int64     `json:"id"`
	BookID    int64     `json:"book_id"`
	UserID    int64     `json:"user_id"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment,omitempty"`
	Approved  bool      `json:"approved"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
