package server

import (
	"crypto/rand"
	"io"
	"log/slog"

	"github.com/sauldoescode/saul.app/internal/config"
	"github.com/sauldoescode/saul.app/internal/db"
	apperrors "github.com/sauldoescode/saul.app/internal/errors"
	"github.com/sauldoescode/saul.app/pkg/auth"
	"github.com/sauldoescode/saul.app/pkg/upload"
	"github.com/sauldoescode/saul.app/pkg/writ"
)

// OpenDeps opens the database and builds the stores described by cfg. The
// returned closer releases the database.
func OpenDeps(cfg *config.Config, logger *slog.Logger) (Deps, io.Closer, error) {
	if logger == nil {
		logger = slog.Default()
	}

	secret, err := tokenSecret(cfg, logger)
	if err != nil {
		return Deps{}, nil, err
	}

	database, err := db.Open(cfg.DatabasePath())
	if err != nil {
		return Deps{}, nil, apperrors.New("E080").Wrap(err).
			WithSuggestion("Check that " + cfg.DatabasePath() + " is writable.")
	}

	uploads, err := openUploads(cfg)
	if err != nil {
		database.Close()
		return Deps{}, nil, apperrors.New("E083").Wrap(err)
	}

	users := auth.NewStore(database)
	service := auth.NewService(users,
		auth.NewTokens(secret, cfg.TokenTTL()),
		mailer(cfg, logger),
		auth.Config{AppName: cfg.AppName, BaseURL: cfg.BaseURL()},
		auth.WithLogger(logger.With("component", "auth")),
	)
	writs := writ.NewStore(database, users, writ.WithLogger(logger.With("component", "writ")))

	logger.Info("stores opened",
		"database", database.Path(),
		"uploads", cfg.Uploads.Backend)
	return Deps{Writs: writs, Auth: service, Uploads: uploads}, database, nil
}

// tokenSecret returns the configured signing secret. Dev mode falls back to
// a random secret, which logs everyone out on restart.
func tokenSecret(cfg *config.Config, logger *slog.Logger) ([]byte, error) {
	if cfg.Auth.TokenSecret != "" {
		return []byte(cfg.Auth.TokenSecret), nil
	}
	if !cfg.DevMode {
		return nil, apperrors.New("E121").
			WithDetail("auth.tokenSecret is required outside dev mode.").
			WithSuggestion("Set SAULAPP_TOKEN_SECRET or auth.tokenSecret in saulapp.json.")
	}
	logger.Warn("no token secret configured, using a random one")
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		return nil, err
	}
	return secret, nil
}

func mailer(cfg *config.Config, logger *slog.Logger) auth.Mailer {
	if cfg.Mail.SMTPAddr == "" {
		return auth.LogMailer{Logger: logger.With("component", "mail")}
	}
	return &auth.SMTPMailer{
		Addr:     cfg.Mail.SMTPAddr,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.From,
	}
}

func openUploads(cfg *config.Config) (upload.Store, error) {
	if cfg.Uploads.Backend == "s3" {
		s3cfg := upload.S3Config(cfg.Uploads.S3)
		return upload.NewS3Store(upload.NewS3Client(s3cfg), s3cfg), nil
	}
	return upload.NewDiskStore(cfg.UploadsPath(), cfg.Uploads.URLPrefix)
}
