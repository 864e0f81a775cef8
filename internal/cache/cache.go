package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/go-redis/redis/v8"
)

const bookTTL = 5 * time.Minute

// Cache is a read-through cache for book records. Every method is safe on a
// Cache with no backing client, so the service runs fine without Redis.
type Cache struct {
	client *redis.Client
}

// New connects to Redis. On failure the returned cache is a no-op.
func New(addr, password string, db int) *Cache {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		log.Printf("Redis connection failed, continuing without cache: %v", err)
		return &Cache{}
	}

	log.Println("Redis connection established")
	return &Cache{client: client}
}

// NewWithClient wraps an existing client, mainly for tests.
func NewWithClient(client *redis.Client) *Cache {
	return &Cache{client: client}
}

func bookKey(id int64) string {
	return fmt.Sprintf("book:%d", id)
}

// GetBook returns the cached book, or nil on a miss.
func (c *Cache) GetBook(ctx context.Context, id int64) *models.Book {
	if c.client == nil {
		return nil
	}

	data, err := c.client.Get(ctx, bookKey(id)).Bytes()
	if err != nil {
		if err != redis.Nil {
			log.Printf("Cache read failed for book %d: %v", id, err)
		}
		return nil
	}

	book := &models.Book{}
	if err := json.Unmarshal(data, book); err != nil {
		log.Printf("Cache entry for book %d is corrupt, dropping: %v", id, err)
		c.client.Del(ctx, bookKey(id))
		return nil
	}
	return book
}

// SetBook stores a book record.
func (c *Cache) SetBook(ctx context.Context, book *models.Book) {
	if c.client == nil {
		return
	}

	data, err := json.Marshal(book)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, bookKey(book.ID), data, bookTTL).Err(); err != nil {
		log.Printf("Cache write failed for book %d: %v", book.ID, err)
	}
}

// InvalidateBook drops a book entry. Called after every mutation that
// touches the book row, including workflow status flips.
func (c *Cache) InvalidateBook(ctx context.Context, id int64) {
	if c.client == nil {
		return
	}
	if err := c.client.Del(ctx, bookKey(id)).Err(); err != nil {
		log.Printf("Cache invalidation failed for book %d: %v", id, err)
	}
}
