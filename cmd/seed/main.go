package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/LordOfTheRobots/Book-Swap/internal/config"
	"github.com/LordOfTheRobots/Book-Swap/internal/db"
	"github.com/LordOfTheRobots/Book-Swap/internal/models"

	"golang.org/x/crypto/bcrypt"
)

// Seed the database with test data
func main() {
	ctx := context.Background()
	cfg := config.Load()

	database, err := db.NewDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer database.Close()

	var bookCount int
	if err := database.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM books").Scan(&bookCount); err != nil {
		log.Fatalf("Failed to check books: %v", err)
	}
	if bookCount > 0 {
		fmt.Printf("Database already has %d books. No need to seed.\n", bookCount)
		os.Exit(0)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("Failed to hash password: %v", err)
	}

	users := []models.User{
		{Username: "alice", Email: "alice@example.com", FirstName: "Alice", LastName: "Reader", City: "Moscow", Role: models.RoleUser},
		{Username: "bob", Email: "bob@example.com", FirstName: "Bob", LastName: "Swapper", City: "Kazan", Role: models.RoleUser},
		{Username: "mod", Email: "mod@example.com", FirstName: "Maya", LastName: "Petrova", City: "", Role: models.RoleModerator},
	}

	userIDs := make(map[string]int64)
	for _, u := range users {
		u.PasswordHash = string(hash)
		created, err := ensureUser(ctx, database, &u)
		if err != nil {
			log.Fatalf("Failed to create user %s: %v", u.Username, err)
		}
		userIDs[u.Username] = created.ID
	}

	books := []models.Book{
		{OwnerID: userIDs["alice"], Title: "The Master and Margarita", Author: "Mikhail Bulgakov", Genre: "Fiction", Language: "Russian", PublicationYear: 1967, ExchangeStatus: models.BookAvailable},
		{OwnerID: userIDs["alice"], Title: "Crime and Punishment", Author: "Fyodor Dostoevsky", Genre: "Fiction", Language: "Russian", PublicationYear: 1866, ExchangeStatus: models.BookAvailable},
		{OwnerID: userIDs["bob"], Title: "The Go Programming Language", Author: "Alan Donovan", Genre: "Technical", Language: "English", PublicationYear: 2015, ExchangeStatus: models.BookAvailable},
		{OwnerID: userIDs["bob"], Title: "Dead Souls", Author: "Nikolai Gogol", Genre: "Fiction", Language: "Russian", PublicationYear: 1842, ExchangeStatus: models.BookNotAvailable},
	}

	for _, b := range books {
		created, err := database.CreateBook(ctx, &b)
		if err != nil {
			log.Fatalf("Failed to create book %q: %v", b.Title, err)
		}
		fmt.Printf("Created book %d: %s\n", created.ID, created.Title)
	}

	fmt.Println("Seed complete.")
}

func ensureUser(ctx context.Context, database *db.DB, u *models.User) (*models.User, error) {
	existing, err := database.GetUserByUsername(ctx, u.Username)
	if err == nil {
		return existing, nil
	}
	return database.CreateUser(ctx, u)
}
