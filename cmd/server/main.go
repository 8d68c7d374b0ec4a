package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/mongo"
	mongoopts "go.mongodb.org/mongo-driver/mongo/options"

	"github.com/ayush/recipe-catalog/backend/internal/auth"
	"github.com/ayush/recipe-catalog/backend/internal/config"
	"github.com/ayush/recipe-catalog/backend/internal/logger"
	"github.com/ayush/recipe-catalog/backend/internal/middleware"
	"github.com/ayush/recipe-catalog/backend/internal/recipes"
	"github.com/ayush/recipe-catalog/backend/internal/store"
)

func main() {
	logger.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("config")
	}
	ctx := context.Background()

	// ── PostgreSQL ────────────────────────────────────────────
	pgPool, err := pgxpool.New(ctx, cfg.PostgresDSN)
	if err != nil {
		log.Fatal().Err(err).Msg("postgres connect")
	}
	defer pgPool.Close()
	userStore := store.NewPostgresStore(pgPool)
	if err := userStore.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("postgres migrate")
	}

	// ── MongoDB ──────────────────────────────────────────────
	mongoClient, err := mongo.Connect(ctx, mongoopts.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		log.Fatal().Err(err).Msg("mongo connect")
	}
	defer mongoClient.Disconnect(ctx)
	recipeStore := store.NewMongoStore(mongoClient.Database(cfg.MongoDB))

	// ── MinIO ────────────────────────────────────────────────
	imageStore, err := store.NewMinioStore(
		ctx, cfg.MinioEndpoint, cfg.MinioAccessKey,
		cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL,
	)
	if err != nil {
		log.Fatal().Err(err).Msg("minio connect")
	}

	// ── Handlers ─────────────────────────────────────────────
	tokens := auth.NewTokens(cfg.JWTSecret)
	authHandler := auth.NewHandler(userStore, recipeStore, tokens, cfg.AdminCode, cfg.FrontendURL)
	recipeHandler := recipes.NewHandler(recipeStore, userStore, imageStore)

	requireAuth := middleware.RequireAuth(tokens)

	// ── Router ───────────────────────────────────────────────
	r := chi.NewRouter()
	r.Use(chimw.Logger)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.FrontendURL},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/users", func(r chi.Router) {
		r.Post("/signup", authHandler.Signup)
		r.Post("/login", authHandler.Login)
		r.Post("/forgot-password", authHandler.ForgotPassword)
		r.Post("/reset-password", authHandler.ResetPassword)
		r.With(requireAuth).Post("/logout", authHandler.Logout)
		r.With(requireAuth).Get("/me", authHandler.Me)
		r.With(requireAuth, middleware.RequireAdmin).Get("/", authHandler.ListUsers)
	})

	r.Route("/api/recipes", func(r chi.Router) {
		r.Get("/", recipeHandler.List)
		r.Get("/{id}", recipeHandler.Get)
		r.Get("/{id}/image", recipeHandler.DownloadImage)
		r.Group(func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireAdmin)
			r.Post("/", recipeHandler.Create)
			r.Put("/{id}", recipeHandler.Update)
			r.Delete("/{id}", recipeHandler.Delete)
			r.Post("/{id}/image", recipeHandler.UploadImage)
		})
	})

	r.With(requireAuth, middleware.RequireAdmin).Get("/api/admin/dashboard", recipeHandler.Dashboard)

	// ── Server ───────────────────────────────────────────────
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  time.Minute,
		WriteTimeout: time.Minute,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("backend listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	srv.Shutdown(shutCtx)
}
