// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"
	"errors"

	accountstore "github.com/tangra/visitortrack/internal/app/store/accounts"
	eventstore "github.com/tangra/visitortrack/internal/app/store/events"
	settingsstore "github.com/tangra/visitortrack/internal/app/store/trackersettings"
	"github.com/tangra/visitortrack/internal/app/system/authutil"
	"github.com/tangra/visitortrack/internal/app/system/tasks"
	"github.com/tangra/visitortrack/internal/app/system/timeouts"
	"github.com/tangra/visitortrack/internal/domain/models"
	"github.com/dalemusser/waffle/config"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are
// complete, but before the HTTP handler is built and requests are served.
//
// It seeds the tracker settings document and the admin account (when
// configured), then starts the background task runner. Returning a
// non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if n := timeouts.ConfigureFromEnv(); n > 0 {
		current := timeouts.Current()
		logger.Info("operation timeouts overridden from environment",
			zap.Int("overrides", n),
			zap.Duration("ping", current.Ping),
			zap.Duration("short", current.Short),
			zap.Duration("batch", current.Batch),
		)
	}

	if err := ensureTrackerSettings(ctx, deps.MongoDatabase, logger); err != nil {
		logger.Error("failed to seed tracker settings", zap.Error(err))
		return err
	}

	if appCfg.SeedAdminEmail != "" {
		if err := ensureAdminAccount(ctx, deps.MongoDatabase, appCfg.SeedAdminEmail, appCfg.SeedAdminPassword, logger); err != nil {
			logger.Error("failed to seed admin account", zap.Error(err))
			return err
		}
	}

	startTaskRunner(deps.MongoDatabase, logger)

	return nil
}

// taskRunner is the global task runner instance, used for graceful shutdown.
var taskRunner *tasks.Runner

// startTaskRunner initializes and starts the background task runner.
func startTaskRunner(db *mongo.Database, logger *zap.Logger) {
	taskRunner = tasks.New(logger)

	taskRunner.Register(tasks.RetentionSweepJob(eventstore.New(db), settingsstore.New(db), logger))

	taskRunner.Start()
}

// ensureTrackerSettings persists the default tracking policy if none has
// been saved yet, so the settings API edits a stored document rather
// than an implied default.
func ensureTrackerSettings(ctx context.Context, db *mongo.Database, logger *zap.Logger) error {
	store := settingsstore.New(db)

	exists, err := store.Exists(ctx)
	if err != nil {
		return err
	}
	if exists {
		logger.Debug("tracker settings already present")
		return nil
	}

	defaults := models.DefaultTrackerSettings()
	if err := store.Save(ctx, defaults); err != nil {
		return err
	}

	logger.Info("seeded default tracker settings",
		zap.Int("retention_days", defaults.RetentionDays),
		zap.Strings("excluded_roles", defaults.ExcludedRoles),
	)
	return nil
}

// ensureAdminAccount ensures an active admin account exists with the
// given email. An existing account is promoted rather than replaced; its
// password is left untouched.
func ensureAdminAccount(ctx context.Context, db *mongo.Database, email, password string, logger *zap.Logger) error {
	store := accountstore.New(db)

	existing, err := store.GetByEmail(ctx, email)
	if err == nil {
		for _, role := range existing.Roles {
			if role == models.RoleAdmin {
				logger.Debug("admin account already configured", zap.String("email", existing.Email))
				return nil
			}
		}
		if err := store.AddRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return err
		}
		logger.Info("promoted existing account to admin",
			zap.String("email", existing.Email),
			zap.String("account_id", existing.ID.Hex()),
		)
		return nil
	}
	if !errors.Is(err, accountstore.ErrNotFound) {
		return err
	}

	// Refuse to seed an admin behind a weak password.
	if err := authutil.ValidatePassword(password); err != nil {
		return err
	}
	hash, err := authutil.HashPassword(password)
	if err != nil {
		return err
	}

	created, err := store.Create(ctx, models.Account{
		Email:        email,
		PasswordHash: hash,
		Roles:        []string{models.RoleAdmin},
		Status:       models.StatusActive,
	})
	if err != nil {
		return err
	}

	logger.Info("created admin account",
		zap.String("email", created.Email),
		zap.String("account_id", created.ID.Hex()),
	)
	return nil
}
