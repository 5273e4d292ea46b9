// PSN Rwanda - service booking website
// Serves the public pages and forwards bookings to the REST backend
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.uber.org/zap"

	"psnrwanda/internal/booking"
	"psnrwanda/internal/config"
	"psnrwanda/internal/i18n"
	"psnrwanda/internal/logger"
	"psnrwanda/internal/repository"
	"psnrwanda/internal/repository/restapi"
	"psnrwanda/internal/repository/sqlite"
	"psnrwanda/internal/server"
	"psnrwanda/internal/session"
	"psnrwanda/internal/templates"
	"psnrwanda/internal/tracking"
)

// sessionTTL bounds the session cookie; idle sessions expire sooner
const sessionTTL = 24 * time.Hour

func main() {
	// Load configuration
	cfg, err := config.Load("config.json")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	zl, err := logger.New(logger.Config{
		Level:      cfg.Logger.Level,
		Format:     cfg.Logger.Format,
		OutputPath: cfg.Logger.OutputPath,
	})
	if err != nil {
		log.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, zl); err != nil {
		zl.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, zl *zap.Logger) error {
	zl.Info("starting", zap.String("business", cfg.Business.Name), zap.Bool("debug", cfg.Debug))

	// Local database keeps the site preferences
	db, err := sqlite.New(cfg.GetDatabasePath())
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return err
	}
	zl.Info("database initialized", zap.String("path", cfg.GetDatabasePath()))

	settings := sqlite.NewSettingsRepo(db)

	catalog, err := i18n.Load(zl)
	if err != nil {
		return err
	}
	language, err := i18n.LoadPreference(context.Background(), settings, zl)
	if err != nil {
		return err
	}
	if cfg.Site.DefaultLanguage != "" {
		lang, ok := i18n.ParseLanguage(cfg.Site.DefaultLanguage)
		if !ok {
			return fmt.Errorf("unsupported default language %q", cfg.Site.DefaultLanguage)
		}
		if lang != language.Get() {
			if err := language.Set(context.Background(), lang); err != nil {
				return err
			}
		}
	}

	// Backend collaborators
	client := restapi.NewClient(restapi.Options{
		BaseURL:       cfg.API.BaseURL,
		Timeout:       cfg.APITimeout(),
		UploadTimeout: cfg.APIUploadTimeout(),
		Logger:        zl,
	})
	collab := repository.Collaborators{
		Services:  restapi.NewServiceCatalog(client),
		Bookings:  restapi.NewBookingCreator(client),
		Documents: restapi.NewDocumentUploader(client),
		Tracker:   restapi.NewBookingTracker(client),
		Settings:  settings,
	}

	if cfg.Features.DevTrackingFallback {
		zl.Warn("development tracking placeholder enabled")
	}
	trackingService := tracking.NewService(collab.Tracker, tracking.Options{
		DevFallback: cfg.Debug && cfg.Features.DevTrackingFallback,
	}, zl)

	tmpl, err := templates.NewManager("./templates", cfg.Debug, templates.Options{
		Catalog: catalog,
		APIBase: client.BaseURL(),
	})
	if err != nil {
		return err
	}
	zl.Info("templates loaded")

	srv := server.New(cfg, server.Deps{
		Templates: tmpl,
		Catalog:   catalog,
		Language:  language,
		Booking:   booking.NewFlow(collab, zl),
		Tracking:  trackingService,
		Sessions:  session.NewStore(cfg.SessionIdle(), zl),
		Signer:    session.NewSigner(cfg.Session.Secret, sessionTTL, cfg.Business.Name),
	}, zl)

	return srv.Run()
}
