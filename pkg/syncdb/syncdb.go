// Package syncdb is the public facade over internal/store and the sync
// protocol packages, mirroring the teacher's pkg/knirvbase.DB wrapper
// shape: a thin adapter that hides the internal layering behind a small
// surface a caller constructs once and uses for the lifetime of a process.
package syncdb

import (
	"fmt"

	"github.com/kazade/syncdb/internal/authn"
	"github.com/kazade/syncdb/internal/httpsync"
	"github.com/kazade/syncdb/internal/logging"
	"github.com/kazade/syncdb/internal/monitoring"
	"github.com/kazade/syncdb/internal/security"
	"github.com/kazade/syncdb/internal/store"
	"github.com/kazade/syncdb/internal/syncclient"
	"github.com/kazade/syncdb/internal/synctarget"
)

// Options configures a DB.
type Options struct {
	// ReplicaUID identifies this replica in vector clocks and sync marks.
	// Required.
	ReplicaUID string

	// EncryptionSecret, if non-empty, wraps the backend in an
	// EncryptedBackend deriving its key from this secret.
	EncryptionSecret string

	Metrics *monitoring.Metrics
}

// DB is the public handle to one replica's document store.
type DB struct {
	inner *store.Database
}

// Open constructs a DB for opts.ReplicaUID backed by an in-memory Backend.
// A caller that needs a persistent Backend should implement store.Backend
// and call OpenWithBackend instead.
func Open(opts Options) (*DB, error) {
	return OpenWithBackend(opts, store.NewMemBackend())
}

// OpenWithBackend is Open with a caller-supplied Backend (e.g. one backed
// by a SQL table instead of the in-memory reference implementation).
func OpenWithBackend(opts Options, backend store.Backend) (*DB, error) {
	if opts.ReplicaUID == "" {
		return nil, fmt.Errorf("syncdb: ReplicaUID cannot be empty")
	}
	if opts.EncryptionSecret != "" {
		enc := security.NewContentEncryption()
		salt, err := enc.GenerateSalt()
		if err != nil {
			return nil, fmt.Errorf("syncdb: generating encryption salt: %w", err)
		}
		backend = store.NewEncryptedBackend(backend, opts.EncryptionSecret, salt)
	}
	db := store.New(opts.ReplicaUID, backend)
	if opts.Metrics != nil {
		db.WithMetrics(opts.Metrics)
	}
	return &DB{inner: db}, nil
}

// Raw returns the underlying *store.Database for advanced usage not
// covered by the facade (index management, WhatsChanged, ...).
func (d *DB) Raw() *store.Database { return d.inner }

// Collection returns a handle scoped to name. syncdb keeps one flat
// document namespace per replica, matching spec §3's model, so name is
// presently decorative — it exists to give callers a stable place to hang
// future per-collection index scoping without an API break.
func (d *DB) Collection(name string) *Collection {
	return &Collection{name: name, db: d.inner}
}

// AsSyncTarget adapts d to synctarget.Target for in-process sync (two
// DBs in the same binary, or tests). For sync against a remote process,
// use NewHTTPTarget instead.
func (d *DB) AsSyncTarget() synctarget.Target {
	return synctarget.NewDatabaseTarget(d.inner)
}

// SyncWith drives one sync round with d as source against target.
func (d *DB) SyncWith(target synctarget.Target) (int64, error) {
	return syncclient.New(d.inner, target).Sync()
}

// NewHTTPTarget returns a synctarget.Target backed by a remote syncdbd
// server, usable with SyncWith.
func NewHTTPTarget(baseURL, database, token string) synctarget.Target {
	return httpsync.NewClient(baseURL, database, token, nil)
}

// ServerHandle exposes the databases served by an httpsync.Server under a
// single HTTP listener, keyed by the name each was registered under.
type ServerHandle struct {
	srv *httpsync.Server
}

// NewServer builds a ServerHandle serving databases (name -> *DB), using
// auth to authenticate every request (authn.AllowAll{} to disable auth).
func NewServer(databases map[string]*DB, auth authn.Authenticator) *ServerHandle {
	raw := make(map[string]*store.Database, len(databases))
	for name, d := range databases {
		raw[name] = d.inner
	}
	return &ServerHandle{srv: httpsync.NewServer(raw, auth)}
}

// WithMetrics attaches m to the server's handlers. Returns h for chaining.
func (h *ServerHandle) WithMetrics(m *monitoring.Metrics) *ServerHandle {
	h.srv.WithMetrics(m)
	return h
}

// WithLogger attaches l to the server's handlers. Returns h for chaining.
func (h *ServerHandle) WithLogger(l *logging.Logger) *ServerHandle {
	h.srv.WithLogger(l)
	return h
}

// Handler returns the http.Handler to mount on a listener.
func (h *ServerHandle) Handler() *httpsync.Server { return h.srv }
