package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geotarget/internal/addrindex"
	"github.com/sells-group/geotarget/internal/config"
	"github.com/sells-group/geotarget/internal/db"
	"github.com/sells-group/geotarget/internal/model"
	"github.com/sells-group/geotarget/internal/platform"
	"github.com/sells-group/geotarget/internal/reconcile"
	"github.com/sells-group/geotarget/internal/search"
	"github.com/sells-group/geotarget/internal/session"
	"github.com/sells-group/geotarget/internal/source"
)

// rowLoader is implemented by the persistent index backends.
type rowLoader interface {
	Load(ctx context.Context, rows []model.AddressMapping) (int, error)
}

// indexHandle is an opened address index. Loader is nil for the read-only
// memory driver.
type indexHandle struct {
	Index  addrindex.Index
	Loader rowLoader
	close  func()
}

// Close releases the backend.
func (h *indexHandle) Close() {
	if h.close != nil {
		h.close()
	}
}

// openIndex opens the configured index backend and applies its schema.
func openIndex(ctx context.Context, c *config.Config) (*indexHandle, error) {
	switch c.Store.Driver {
	case "sqlite":
		idx, err := addrindex.NewSQLite(c.Store.IndexPath)
		if err != nil {
			return nil, err
		}
		if err := idx.Migrate(ctx); err != nil {
			_ = idx.Close()
			return nil, err
		}
		return &indexHandle{Index: idx, Loader: idx, close: func() { _ = idx.Close() }}, nil
	case "postgres":
		pool, err := db.Connect(ctx, c.Store.DatabaseURL)
		if err != nil {
			return nil, err
		}
		idx := addrindex.NewPostgres(pool)
		if err := idx.Migrate(ctx); err != nil {
			pool.Close()
			return nil, err
		}
		return &indexHandle{Index: idx, Loader: idx, close: pool.Close}, nil
	case "memory":
		rows, err := source.NewLoader(source.Options{}).Load(ctx, c.Store.IndexPath)
		if err != nil {
			return nil, eris.Wrap(err, "load memory index")
		}
		idx, err := addrindex.NewMemoryIndex(rows)
		if err != nil {
			return nil, err
		}
		return &indexHandle{Index: idx}, nil
	default:
		return nil, eris.Errorf("unsupported store driver: %s", c.Store.Driver)
	}
}

// sessionStore is the configured whitelist store. sweep is set for the
// memory backend, which must be swept for expired sessions.
type sessionStore struct {
	session.Store
	sweep func() int
	close func()
}

func initSessions(ctx context.Context, c *config.Config) (*sessionStore, error) {
	switch c.Session.Backend {
	case "memory", "":
		mem := session.NewMemoryStore(c.Session.TTL())
		return &sessionStore{Store: mem, sweep: mem.Sweep, close: func() {}}, nil
	case "redis":
		client, err := session.NewRedisClient(ctx, c.Session.RedisURL)
		if err != nil {
			return nil, err
		}
		return &sessionStore{
			Store: session.NewRedisStore(client, c.Session.TTL()),
			close: func() { _ = client.Close() },
		}, nil
	default:
		return nil, eris.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
}

// initReconciler returns nil when no ad platform is configured.
func initReconciler(c *config.Config, idx addrindex.Index) (*reconcile.Reconciler, error) {
	if !c.Platform.Enabled() {
		return nil, nil
	}
	client, err := platform.New(platform.Config{
		RESTURL:     c.Platform.RESTURL,
		RPCURL:      c.Platform.RPCURL,
		CustomerID:  c.Platform.CustomerID,
		Token:       c.Platform.Token,
		Timeout:     time.Duration(c.Platform.TimeoutSecs) * time.Second,
		RatePerSec:  c.Platform.RatePerSec,
		MaxAttempts: c.Platform.MaxAttempts,
	})
	if err != nil {
		return nil, err
	}
	return reconcile.New(idx, client), nil
}

func newEngine(c *config.Config, idx addrindex.Index) *search.Engine {
	return search.New(idx,
		search.WithDefaultLimit(c.Search.DefaultLimit),
		search.WithBatchTermLimit(c.Search.BatchTermLimit),
	)
}
