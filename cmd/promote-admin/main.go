// Command promote-admin grants the site admin role to the account behind ADMIN_EMAIL,
// creating it (ADMIN_USERNAME, ADMIN_PASSWORD) when it does not exist yet. Roles can only be changed by an
// existing admin over the API, so the first one is made here.
package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/v2/bson"

	"github.com/muthuabi/coros-vite-sub000/bootstrap"
	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/database"
	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
)

func main() {
	cfg := config.LoadConfig()

	email := strings.ToLower(strings.TrimSpace(os.Getenv("ADMIN_EMAIL")))
	if email == "" {
		log.Fatal("please set ADMIN_EMAIL")
	}

	client, db := database.ConnectMongo(cfg.MongoURI, cfg.MongoDB)
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = client.Disconnect(ctx)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := bootstrap.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("ensure indexes failed: %v", err)
	}

	users := repository.NewUserRepository(db)
	u, err := users.FindByEmail(ctx, email)
	switch {
	case errors.Is(err, repository.ErrNotFound):
		u, err = create(ctx, users, email, os.Getenv("ADMIN_PASSWORD"))
		if err != nil {
			log.Fatalf("create admin: %v", err)
		}
		log.Printf("created %s (%s)", u.Username, u.ID.Hex())
	case err != nil:
		log.Fatalf("lookup %s: %v", email, err)
	}

	if u.IsSiteAdmin() {
		log.Printf("%s is already a site admin", email)
		return
	}
	u.Role = models.RoleAdmin
	u.UpdatedAt = time.Now().UTC()
	if err := users.Update(ctx, u); err != nil {
		log.Fatalf("promote %s: %v", email, err)
	}
	log.Printf("%s is now a site admin", email)
}

func create(ctx context.Context, users *repository.UserRepository, email, password string) (*models.User, error) {
	if len(password) < auth.MinPasswordLength {
		return nil, errors.Errorf("ADMIN_PASSWORD must be at least %d characters", auth.MinPasswordLength)
	}
	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	u := &models.User{
		Username:     config.GetEnv("ADMIN_USERNAME", "admin"),
		Email:        email,
		FullName:     "Administrator",
		PasswordHash: hash,
		Role:         models.RoleAdmin,
		Followers:    []bson.ObjectID{},
		Following:    []bson.ObjectID{},
		Rooms:        []bson.ObjectID{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := users.Create(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}
