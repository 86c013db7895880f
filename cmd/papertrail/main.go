// Command papertrail runs the HTTP server: passwordless auth (email OTP and
// federated sign-in), session issuance and the note CRUD endpoints behind the
// auth guard.
package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/caarlos0/env/v11"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/papertrailhq/papertrail"
	"github.com/papertrailhq/papertrail/notes"
	ptoauth2 "github.com/papertrailhq/papertrail/oauth2"
	"github.com/papertrailhq/papertrail/stores"
	mongostore "github.com/papertrailhq/papertrail/stores/mongo"
)

type Config struct {
	Port        int    `env:"PORT" envDefault:"5000"`
	Environment string `env:"ENVIRONMENT" envDefault:"development"`

	JwtSecret   string `env:"JWT_SECRET"`
	FrontendURL string `env:"FRONTEND_URL" envDefault:"http://localhost:8080"`

	// MongoURL switches account and note storage from in-memory to MongoDB.
	MongoURL string `env:"MONGO_URL"`
	MongoDB  string `env:"MONGO_DB" envDefault:"papertrail"`

	GoogleClientID     string `env:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`
	GoogleCallbackURL  string `env:"GOOGLE_CALLBACK_URL"`

	GithubClientID     string `env:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GithubCallbackURL  string `env:"GITHUB_CALLBACK_URL"`

	PostmarkServerToken  string `env:"POSTMARK_SERVER_TOKEN"`
	PostmarkAccountToken string `env:"POSTMARK_ACCOUNT_TOKEN"`
	OtpFromEmail         string `env:"OTP_FROM_EMAIL" envDefault:"no-reply@papertrail.dev"`
}

func loadConfig() (*Config, error) {
	// .env is optional; real deployments set the environment directly
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("could not load .env file", "error", err)
	}

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("failed to parse environment: %w", err)
	}

	if cfg.JwtSecret == "" {
		if cfg.Environment == "production" {
			return nil, fmt.Errorf("JWT_SECRET is required in production")
		}
		slog.Warn("JWT_SECRET not set, using an insecure development secret")
		cfg.JwtSecret = "papertrail-dev-secret"
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	if err != nil {
		log.Fatal(err)
	}

	ctx := context.Background()

	var accountStore papertrail.AccountStore
	var noteStore notes.Store
	if cfg.MongoURL != "" {
		client, err := mongo.Connect(options.Client().ApplyURI(cfg.MongoURL))
		if err != nil {
			log.Fatal("failed to connect to mongo: ", err)
		}
		defer client.Disconnect(ctx)
		db := client.Database(cfg.MongoDB)
		mongoAccounts, err := mongostore.NewAccountStore(ctx, db)
		if err != nil {
			log.Fatal("failed to prepare account collection: ", err)
		}
		accountStore = mongoAccounts
		noteStore = mongostore.NewNoteStore(db)
		slog.Info("using mongodb storage", "db", cfg.MongoDB)
	} else {
		accountStore = stores.NewMemoryAccountStore()
		noteStore = stores.NewMemoryNoteStore()
		slog.Warn("MONGO_URL not set, using in-memory storage")
	}

	var sender papertrail.OtpSender
	if cfg.PostmarkServerToken != "" {
		postmarkSender, err := papertrail.NewPostmarkOtpSender(cfg.PostmarkServerToken, cfg.PostmarkAccountToken, cfg.OtpFromEmail)
		if err != nil {
			log.Fatal("failed to configure postmark: ", err)
		}
		sender = postmarkSender
		slog.Info("delivering OTP codes via postmark", "from", cfg.OtpFromEmail)
	} else {
		sender = &papertrail.ConsoleOtpSender{}
		slog.Warn("POSTMARK_SERVER_TOKEN not set, logging OTP codes to console")
	}

	sessionIssuer := &papertrail.SessionIssuer{SecretKey: cfg.JwtSecret, Issuer: "papertrail"}
	sessionValidator := &papertrail.SessionValidator{SecretKey: cfg.JwtSecret, Issuer: "papertrail"}

	webSession := scs.New()
	webSession.Lifetime = papertrail.DefaultSessionTTL
	webSession.Cookie.HttpOnly = true
	webSession.Cookie.Secure = cfg.Environment == "production"

	authHandler := &papertrail.AuthHandler{
		Issuer:      &papertrail.OtpIssuer{Store: accountStore, Sender: sender},
		Verifier:    &papertrail.OtpVerifier{Store: accountStore},
		Merger:      &papertrail.IdentityMerger{Store: accountStore},
		Sessions:    sessionIssuer,
		Store:       accountStore,
		FrontendURL: cfg.FrontendURL,
		WebSession:  webSession,
	}

	guard := &papertrail.Middleware{
		Validator:     sessionValidator,
		SessionGetter: papertrail.SessionClaimsGetter(webSession),
	}
	guard.EnsureReasonableDefaults()

	noteHandler := &notes.Handler{Store: noteStore}

	router := mux.NewRouter()
	router.HandleFunc("/auth/request-otp", authHandler.HandleRequestOtp).Methods(http.MethodPost)
	router.HandleFunc("/auth/verify-otp", authHandler.HandleVerifyOtp).Methods(http.MethodPost)
	router.Handle("/auth/me", guard.EnsureAccount(http.HandlerFunc(authHandler.HandleMe))).Methods(http.MethodGet)

	if cfg.GoogleClientID != "" {
		google := ptoauth2.NewGoogleOAuth2(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleCallbackURL, authHandler.HandleAssertion)
		router.PathPrefix("/auth/google/").Handler(http.StripPrefix("/auth/google", google.Handler()))
	}
	if cfg.GithubClientID != "" {
		github := ptoauth2.NewGithubOAuth2(cfg.GithubClientID, cfg.GithubClientSecret, cfg.GithubCallbackURL, authHandler.HandleAssertion)
		router.PathPrefix("/auth/github/").Handler(http.StripPrefix("/auth/github", github.Handler()))
	}

	notesRouter := router.PathPrefix("/notes").Subrouter()
	notesRouter.Use(guard.EnsureAccount)
	notesRouter.HandleFunc("", noteHandler.HandleCreate).Methods(http.MethodPost)
	notesRouter.HandleFunc("", noteHandler.HandleList).Methods(http.MethodGet)
	notesRouter.HandleFunc("/{id}", noteHandler.HandleDelete).Methods(http.MethodDelete)

	handler := corsMiddleware(cfg.FrontendURL, webSession.LoadAndSave(router))

	addr := fmt.Sprintf(":%d", cfg.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
	}
	slog.Info("papertrail server listening", "addr", addr, "env", cfg.Environment)
	if err := server.ListenAndServe(); err != nil {
		log.Fatal(err)
	}
}

func corsMiddleware(allowedOrigin string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", allowedOrigin)
		w.Header().Set("Access-Control-Allow-Credentials", "true")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}
