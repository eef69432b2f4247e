package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"

	settingsfile "github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/config/file"
	genopenai "github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/generation/openai"
	profilefile "github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/profile/file"
	"github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/remote/httpsource"
	"github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/remote/static"
	filestore "github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/storage/file"
	sqlitestore "github.com/zukiwong/mirrornote-prompt/internal/adapters/driven/storage/sqlite"
	"github.com/zukiwong/mirrornote-prompt/internal/core/domain"
	"github.com/zukiwong/mirrornote-prompt/internal/core/ports/driven"
	"github.com/zukiwong/mirrornote-prompt/internal/core/services"
	"github.com/zukiwong/mirrornote-prompt/internal/logger"
)

// app bundles the wired services for one command invocation.
type app struct {
	settings    *settingsfile.Settings
	dataDir     string
	blobs       driven.BlobStore
	coordinator *services.PromptCoordinator
	sync        *services.RemoteSync
	reply       *services.ReplyService

	closers []io.Closer
}

// setupApp wires the full service graph from settings and flags.
func setupApp(ctx context.Context) (*app, error) {
	baseDir, err := settingsfile.DefaultDir()
	if err != nil {
		return nil, err
	}

	settingsPath := flagConfigPath
	if settingsPath == "" {
		settingsPath = filepath.Join(baseDir, "settings.toml")
	}
	settings, err := settingsfile.Load(settingsPath)
	if err != nil {
		return nil, err
	}

	dataDir := flagDataDir
	if dataDir == "" {
		dataDir = settings.DataDir
	}
	if dataDir == "" {
		dataDir = filepath.Join(baseDir, "data")
	}

	a := &app{settings: settings, dataDir: dataDir}

	switch settings.Storage.Backend {
	case "", "file":
		blobs, err := filestore.NewBlobStore(dataDir)
		if err != nil {
			return nil, err
		}
		a.blobs = blobs
	case "sqlite":
		blobs, err := sqlitestore.NewBlobStore(dataDir)
		if err != nil {
			return nil, err
		}
		a.blobs = blobs
		a.closers = append(a.closers, blobs)
	default:
		return nil, fmt.Errorf("unknown storage backend %q", settings.Storage.Backend)
	}

	installID, err := services.EnsureInstallationID(ctx, a.blobs)
	if err != nil {
		return nil, err
	}

	var source driven.RemoteSource
	if settings.Remote.BaseURL != "" {
		source = httpsource.NewSource(settings.Remote.BaseURL,
			httpsource.WithAPIKey(settings.Remote.APIKey))
	} else {
		logger.Debug("no remote base URL configured, updates disabled")
		source = disabledSource{}
	}

	reach := static.NewReachability(true)

	appVersion := settings.AppVersion
	if appVersion == "" {
		appVersion = version
	}

	a.sync = services.NewRemoteSync(source, reach, services.RemoteSyncConfig{
		AppVersion:     appVersion,
		InstallationID: installID,
		FetchTimeout:   settings.FetchTimeoutDuration(),
		MaxRetries:     settings.Remote.MaxRetries,
	})

	store := services.NewConfigStore(a.blobs)
	engine := services.NewTemplateEngine()
	profiles := profilefile.NewProvider(dataDir)

	a.coordinator = services.NewPromptCoordinator(store, a.sync, engine, profiles, reach)

	apiKey := settings.Generation.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey != "" {
		generator, err := genopenai.NewGenerator(genopenai.Config{
			APIKey:  apiKey,
			BaseURL: settings.Generation.BaseURL,
			Model:   settings.Generation.Model,
		})
		if err != nil {
			return nil, err
		}
		a.reply = services.NewReplyService(a.coordinator, generator)
	}

	return a, nil
}

// close releases everything the app holds, coordinator first so no
// background work races storage teardown.
func (a *app) close() {
	if a.coordinator != nil {
		if err := a.coordinator.Close(); err != nil {
			logger.Warn("closing coordinator: %v", err)
		}
	}
	for _, c := range a.closers {
		if err := c.Close(); err != nil {
			logger.Warn("closing resource: %v", err)
		}
	}
}

// disabledSource stands in when no remote service is configured.
type disabledSource struct{}

func (disabledSource) Fetch(context.Context) (domain.RemoteSnapshot, error) {
	return nil, fmt.Errorf("%w: no remote configuration service configured", domain.ErrNetworkUnavailable)
}
