package cache

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/go-redis/redismock/v8"
	"github.com/stretchr/testify/assert"
)

func testBook() *models.Book {
	return &models.Book{
		ID:             42,
		OwnerID:        1,
		Title:          "The Master and Margarita",
		Author:         "Mikhail Bulgakov",
		ExchangeStatus: models.BookAvailable,
		CreatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		UpdatedAt:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func TestCache_GetBookHit(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client)

	book := testBook()
	data, err := json.Marshal(book)
	assert.NoError(t, err)
	mock.ExpectGet("book:42").SetVal(string(data))

	got := c.GetBook(context.Background(), 42)
	assert.NotNil(t, got)
	assert.Equal(t, book.ID, got.ID)
	assert.Equal(t, book.Title, got.Title)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetBookMiss(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client)

	mock.ExpectGet("book:42").RedisNil()

	got := c.GetBook(context.Background(), 42)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_GetBookCorruptEntryDropped(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client)

	mock.ExpectGet("book:42").SetVal("{not json")
	mock.ExpectDel("book:42").SetVal(1)

	got := c.GetBook(context.Background(), 42)
	assert.Nil(t, got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_SetBook(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client)

	book := testBook()
	data, err := json.Marshal(book)
	assert.NoError(t, err)
	mock.ExpectSet("book:42", data, bookTTL).SetVal("OK")

	c.SetBook(context.Background(), book)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_InvalidateBook(t *testing.T) {
	client, mock := redismock.NewClientMock()
	c := NewWithClient(client)

	mock.ExpectDel("book:42").SetVal(1)

	c.InvalidateBook(context.Background(), 42)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCache_NoClientIsNoOp(t *testing.T) {
	c := &Cache{}

	assert.Nil(t, c.GetBook(context.Background(), 1))
	c.SetBook(context.Background(), testBook())
	c.InvalidateBook(context.Background(), 1)
}
