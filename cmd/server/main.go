package main

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/LordOfTheRobots/Book-Swap/internal/api"
	"github.com/LordOfTheRobots/Book-Swap/internal/auth"
	"github.com/LordOfTheRobots/Book-Swap/internal/cache"
	"github.com/LordOfTheRobots/Book-Swap/internal/config"
	"github.com/LordOfTheRobots/Book-Swap/internal/db"
	"github.com/LordOfTheRobots/Book-Swap/internal/exchange"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true // Allow all origins in development
	},
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

var (
	clients   = make(map[*wsClient]bool)
	clientsMu sync.RWMutex
)

// broadcastListings pushes the newest available books to every connected
// client.
func broadcastListings(database *db.DB) {
	books, _, err := database.SearchBooks(context.Background(), db.BookSearch{Size: 20, Desc: true})
	if err != nil {
		log.Printf("Failed to load listings for broadcast: %v", err)
		return
	}

	feed := struct {
		Books []models.Book `json:"books"`
	}{Books: books}
	data, err := json.Marshal(feed)
	if err != nil {
		log.Printf("Failed to marshal listings: %v", err)
		return
	}

	clientsMu.RLock()
	var dead []*wsClient
	for client := range clients {
		client.mu.Lock()
		err := client.conn.WriteMessage(websocket.TextMessage, data)
		client.mu.Unlock()
		if err != nil {
			dead = append(dead, client)
		}
	}
	clientsMu.RUnlock()

	if len(dead) > 0 {
		clientsMu.Lock()
		for _, client := range dead {
			delete(clients, client)
		}
		clientsMu.Unlock()
	}
}

func handleWebSocket(database *db.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("Failed to upgrade connection: %v", err)
			return
		}

		client := &wsClient{conn: conn}
		clientsMu.Lock()
		clients[client] = true
		clientsMu.Unlock()

		// Send the current listings right away
		broadcastListings(database)

		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				clientsMu.Lock()
				delete(clients, client)
				clientsMu.Unlock()
				break
			}
		}
	}
}

// Main entry point: sets up database, cache, services, and HTTP server
func main() {
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	bookCache := cache.New(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)

	authService := auth.NewAuthService(database, cfg.JWTSecret)
	exchangeService := exchange.NewService(database, bookCache)
	handler := api.NewHandler(database, exchangeService, authService, bookCache)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// WebSocket feed of newly listed books
	r.Get("/ws", handleWebSocket(database))

	// Public endpoints
	r.Post("/auth/register", handler.Register)
	r.Post("/auth/login", handler.Login)
	r.Get("/books", handler.SearchBooks)
	r.Get("/books/{id}", handler.GetBook)
	r.Get("/books/{id}/reviews", handler.GetBookReviews)

	// Protected endpoints (require JWT)
	r.Group(func(r chi.Router) {
		r.Use(handler.JWTAuthMiddleware)

		r.Get("/users/me", handler.Me)
		r.Get("/users/me/reviews", handler.GetMyReviews)

		r.Post("/books", handler.CreateBook)
		r.Get("/books/mine", handler.GetMyBooks)
		r.Put("/books/{id}", handler.UpdateBook)
		r.Put("/books/{id}/availability", handler.SetBookAvailability)
		r.Delete("/books/{id}", handler.DeleteBook)
		r.Post("/books/{id}/reviews", handler.CreateReview)

		r.Post("/exchanges", handler.CreateExchange)
		r.Get("/exchanges/{id}", handler.GetExchange)
		r.Put("/exchanges/{id}/approve", handler.ApproveExchange)
		r.Put("/exchanges/{id}/complete", handler.CompleteExchange)
		r.Put("/exchanges/{id}/reject", handler.RejectExchange)
		r.Put("/exchanges/{id}/cancel", handler.CancelExchange)
		r.Get("/exchanges/my", handler.GetMyExchanges)
		r.Get("/exchanges/incoming", handler.GetIncomingRequests)
		r.Get("/exchanges/outgoing", handler.GetOutgoingRequests)

		r.Put("/reviews/{id}", handler.UpdateReview)
		r.Delete("/reviews/{id}", handler.DeleteReview)
		r.Put("/reviews/{id}/moderate", handler.ModerateReview)
	})

	// Periodic listings broadcast
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		for range ticker.C {
			clientsMu.RLock()
			n := len(clients)
			clientsMu.RUnlock()
			if n > 0 {
				broadcastListings(database)
			}
		}
	}()

	log.Printf("Starting server on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, r); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
