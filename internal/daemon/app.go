package daemon

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/agroloop/agroloop/internal/app/advisory"
	"github.com/agroloop/agroloop/internal/app/farm"
	"github.com/agroloop/agroloop/internal/app/ledger"
	"github.com/agroloop/agroloop/internal/app/session"
	"github.com/agroloop/agroloop/internal/app/verification"
	"github.com/agroloop/agroloop/internal/domain"
	"github.com/agroloop/agroloop/internal/infra/observability"
	"github.com/agroloop/agroloop/internal/infra/sqlite"
)

// App holds every service, wired over one SQLite-backed store.
type App struct {
	Config   Config
	Store    domain.KVStore
	Codes    *verification.Registry
	Ledger   *ledger.Ledger
	Session  *session.Provider
	AIConfig *advisory.ConfigStore
	Disease  *advisory.DiseaseClient
	Chat     *advisory.ChatClient
	Farm     *farm.Service
	Calls    *observability.Recorder

	db *sqlite.DB
}

// Open opens the database under cfg.Home and wires the services.
func Open(cfg Config) (*App, error) {
	db, err := sqlite.Open(cfg.Home)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	a := Wire(cfg, db)
	a.db = db
	return a, nil
}

// Wire builds the services over store. It restores a persisted session.
func Wire(cfg Config, store domain.KVStore) *App {
	calls := observability.NewRecorder(0)
	aiCfg := advisory.LoadConfig(store, domain.AIConfig{
		PlantNetAPIKey: cfg.Advisory.PlantNetAPIKey,
		OpenAIAPIKey:   cfg.Advisory.OpenAIAPIKey,
	})
	timeout := cfg.VendorTimeout()

	a := &App{
		Config:   cfg,
		Store:    store,
		Codes:    verification.New(verification.Config{SimulationMode: cfg.Verification.SimulationMode}, store),
		Ledger:   ledger.New(store, nil),
		Session:  session.New(session.Config{BcryptCost: cfg.Auth.BcryptCost}, store),
		AIConfig: aiCfg,
		Disease:  advisory.NewDiseaseClient(aiCfg, timeout, advisory.WithDiseaseRecorder(calls)),
		Chat:     advisory.NewChatClient(aiCfg, timeout, advisory.WithChatRecorder(calls)),
		Calls:    calls,
	}
	a.Farm = farm.New(a.Codes, a.Ledger, a.Disease)

	a.Session.OnDelete(func(uid string) error {
		n, err := a.Codes.RemoveFarmer(uid)
		if err == nil && n > 0 {
			log.Printf("[daemon] removed %d verification codes for deleted account", n)
		}
		return err
	})
	a.Session.OnDelete(func(string) error {
		a.Chat.Clear()
		return nil
	})
	a.Session.Restore()
	return a
}

// Close releases the database.
func (a *App) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}

// RunCleanup removes expired codes every interval until ctx is done.
func (a *App) RunCleanup(ctx context.Context, every time.Duration) error {
	if every <= 0 {
		every = DefaultCleanupInterval
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-t.C:
			if n, err := a.Codes.CleanupExpired(); err != nil {
				log.Printf("[daemon] cleanup: %v", err)
			} else if n > 0 {
				log.Printf("[daemon] cleanup removed %d expired codes", n)
			}
		}
	}
}
