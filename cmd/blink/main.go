package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/aussiephantom/blinkapp-desktop/internal/buildinfo"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/auth"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/cli"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/config"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/drive"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/intake"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/notify"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/store"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/tagging"
	"github.com/aussiephantom/blinkapp-desktop/internal/client/watcher"
	"github.com/aussiephantom/blinkapp-desktop/internal/logging"

	_ "modernc.org/sqlite"
)

func main() {
	buildinfo.PrintBuildData(os.Stdout)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg := config.LoadConfig()
	log := logging.NewDefault(slog.LevelInfo, cfg.LogFile)

	st := store.Open(ctx, cfg.CacheDBPath, log)
	defer st.Close()

	authManager := auth.NewManager(auth.Options{
		ClientID:      cfg.OAuthClientID,
		DeviceAuthURL: cfg.OAuthDeviceAuthURL,
		TokenURL:      cfg.OAuthTokenURL,
		Scopes:        cfg.OAuthScopes,
		Cache:         auth.NewFileTokenCache(cfg.TokenCachePath),
		Logger:        log,
		Prompt: func(verificationURL, userCode string) {
			fmt.Printf("To sign in, open %s and enter the code %s (copied to your clipboard).\n",
				verificationURL, userCode)
		},
	})

	driveClient := drive.NewClient(cfg.DriveBaseURL, authManager, log)
	tagClient := tagging.NewClient(cfg.BackendBaseURL, authManager, func() string {
		if cred := authManager.Credential(); cred != nil {
			return cred.AccountID
		}
		return ""
	}, log)

	coordinator := intake.NewCoordinator(intake.Options{
		Drive:           driveClient,
		Tags:            tagClient,
		Store:           st,
		Notifier:        notify.NewLogNotifier(log),
		Logger:          log,
		Mapper:          drive.NewMapper(cfg.RootAlias),
		RemoteRoot:      cfg.RemoteRootFolder,
		InterFileDelay:  cfg.InterFileDelay,
		MetadataTimeout: cfg.MetadataTimeout,
		UploadTimeout:   cfg.UploadTimeout,
		TaxonomyTTL:     cfg.TaxonomyTTL,
	})

	// A watch failure kills monitoring but not the application: the queue
	// and history remain usable, so report it and carry on.
	w := watcher.New(cfg.QuietPeriod, log)
	if err := w.Start(ctx, cfg.DropFolderPath); err != nil {
		log.Error(ctx, "drop folder watch failed", "dir", cfg.DropFolderPath, "error", err)
		fmt.Printf("Warning: cannot watch %s (%v); new files will not be detected.\n",
			cfg.DropFolderPath, err)
	}
	defer w.Stop()

	go func() {
		for path := range w.Events() {
			coordinator.OnFileReady(ctx, path)
		}
	}()

	// Pick up files dropped while the application was not running and
	// restore the persisted queue.
	scanned, err := w.Scan(cfg.DropFolderPath)
	if err != nil {
		log.Warn(ctx, "initial drop folder scan failed", "error", err)
	}
	coordinator.Restore(ctx, scanned)

	cli.NewApp(coordinator, authManager, log).Run(ctx)
}
