// @title CoRoS API
// @version 1.0
// @description Community rooms, posts, Q&A and notifications.
// @host localhost:5000
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization

package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/muthuabi/coros-vite-sub000/docs"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlog "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/swagger"
	"go.mongodb.org/mongo-driver/v2/mongo/readpref"

	"github.com/muthuabi/coros-vite-sub000/bootstrap"
	"github.com/muthuabi/coros-vite-sub000/config"
	"github.com/muthuabi/coros-vite-sub000/database"
	"github.com/muthuabi/coros-vite-sub000/internal/auth"
	"github.com/muthuabi/coros-vite-sub000/internal/controllers"
	"github.com/muthuabi/coros-vite-sub000/internal/logger"
	"github.com/muthuabi/coros-vite-sub000/internal/models"
	"github.com/muthuabi/coros-vite-sub000/internal/repository"
	"github.com/muthuabi/coros-vite-sub000/internal/repository/inmem"
	"github.com/muthuabi/coros-vite-sub000/internal/routes"
	"github.com/muthuabi/coros-vite-sub000/internal/search"
	"github.com/muthuabi/coros-vite-sub000/internal/services"
	"github.com/muthuabi/coros-vite-sub000/internal/session"
	"github.com/muthuabi/coros-vite-sub000/internal/storage"
)

// stores is whichever persistence DATA_STORE selected.
type stores struct {
	users         services.UserStore
	rooms         services.RoomStore
	posts         services.PostStore
	comments      services.CommentStore
	notifications services.NotificationStore
	sessions      services.SessionStore
	checks        []controllers.ReadyCheck
	close         func()
}

func openStores(cfg config.Config) stores {
	if cfg.DataStore == "memory" {
		log.Println("DATA_STORE=memory: nothing is persisted")
		db := inmem.NewDB()
		return stores{
			users:         inmem.NewUserRepository(db),
			rooms:         inmem.NewRoomRepository(db),
			posts:         inmem.NewPostRepository(db),
			comments:      inmem.NewCommentRepository(db),
			notifications: inmem.NewNotificationRepository(db),
			sessions:      inmem.NewRefreshTokenRepository(db),
			close:         func() {},
		}
	}

	client, db := database.ConnectMongo(cfg.MongoURI, cfg.MongoDB)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := bootstrap.EnsureIndexes(ctx, db); err != nil {
		log.Fatalf("ensure indexes failed: %v", err)
	}

	return stores{
		users:         repository.NewUserRepository(db),
		rooms:         repository.NewRoomRepository(db),
		posts:         repository.NewPostRepository(db),
		comments:      repository.NewCommentRepository(db),
		notifications: repository.NewNotificationRepository(db),
		sessions:      repository.NewRefreshTokenRepository(db),
		checks: []controllers.ReadyCheck{{
			Name:  "mongo",
			Probe: func(ctx context.Context) error { return client.Ping(ctx, readpref.Primary()) },
		}},
		close: func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = client.Disconnect(ctx)
		},
	}
}

func openFiles(cfg config.Config) services.FileStore {
	if cfg.StorageDriver == "minio" {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()
		m, err := storage.NewMinio(ctx, storage.MinioConfig{
			Endpoint:  cfg.MinioEndpoint,
			AccessKey: cfg.MinioAccessKey,
			SecretKey: cfg.MinioSecretKey,
			Bucket:    cfg.MinioBucket,
			UseSSL:    cfg.MinioUseSSL,
			PublicURL: cfg.MinioPublicURL,
		})
		if err != nil {
			log.Fatalf("minio: %v", err)
		}
		return m
	}
	l, err := storage.NewLocal(cfg.FilesDir)
	if err != nil {
		log.Fatalf("local storage: %v", err)
	}
	return l
}

func main() {
	cfg := config.LoadConfig()
	if cfg.JWTSecret == "" {
		panic("JWT_SECRET is required")
	}

	std := log.New(os.Stdout, "", log.LstdFlags)
	var appLog logger.Logger = logger.NewStdLogger(std)
	if cfg.RollbarToken != "" {
		host, _ := os.Hostname()
		rb := logger.NewRollbarLogger(std, logger.RollbarConfig{
			Token:       cfg.RollbarToken,
			Environment: cfg.Env,
			Host:        host,
		})
		defer rb.Close()
		appLog = rb
	}

	st := openStores(cfg)
	defer st.close()

	if cfg.RedisURL != "" {
		rs, err := session.NewRedisStore(cfg.RedisURL)
		if err != nil {
			log.Fatalf("redis: %v", err)
		}
		defer rs.Close()
		st.sessions = rs
		st.checks = append(st.checks, controllers.ReadyCheck{Name: "redis", Probe: rs.Ping})
	}

	var backend search.Backend
	if cfg.MeiliURL != "" {
		m := search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey)
		defer m.Close()
		backend = m
		st.checks = append(st.checks, controllers.ReadyCheck{
			Name:     "meilisearch",
			Optional: true,
			Probe: func(context.Context) error {
				if !m.Healthy() {
					return search.ErrUnavailable
				}
				return nil
			},
		})
	}
	finder := search.NewService(backend, st.rooms, st.posts, st.users, appLog)
	go func() {
		if err := finder.Reindex(context.Background()); err != nil {
			appLog.Warn("search: reindex failed", "err", err)
		}
	}()

	issuer := auth.NewIssuer(cfg.JWTSecret, cfg.AccessTTL)
	svc := services.New(services.Deps{
		Users:         st.users,
		Rooms:         st.rooms,
		Posts:         st.posts,
		Comments:      st.comments,
		Notifications: st.notifications,
		Sessions:      st.sessions,
		Files:         openFiles(cfg),
		Index:         finder,
		Issuer:        issuer,
		RefreshTTL:    cfg.RefreshTTL,
		Log:           appLog,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: controllers.ErrorHandler(appLog),
		BodyLimit:    int(cfg.MaxUploadBytes)*models.MaxMediaPerPost + 1<<20,
	})
	app.Use(recover.New())
	app.Use(fiberlog.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     cfg.CORSOrigins,
		AllowMethods:     "GET,POST,PUT,PATCH,DELETE,OPTIONS",
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowCredentials: cfg.CORSOrigins != "*",
	}))

	// Swagger API document
	app.Get("/docs/*", swagger.HandlerDefault)

	if cfg.StorageDriver != "minio" {
		app.Static("/files", cfg.FilesDir)
	}

	routes.Register(app, routes.Deps{
		Services:       svc,
		Search:         finder,
		Issuer:         issuer,
		Users:          st.users,
		MaxUploadBytes: cfg.MaxUploadBytes,
		SecureCookie:   cfg.IsProduction(),
		ReadyChecks:    st.checks,
	})

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("listen: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit
	log.Println("shutting down")

	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		log.Printf("shutdown: %v", err)
	}
	finder.Wait()
}
