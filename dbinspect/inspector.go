// Package dbinspect implements C7: a read-only command handler over a
// device's on-disk SQLite stores. It is a thin wrapper around
// database/sql (modernc.org/sqlite, a pure-Go driver) — the query execution itself is not the
// interesting part; the interesting part is the surface it refuses to
// expose: write statements, unvalidated identifiers, unbounded result
// sets, and databases flagged sensitive.
package dbinspect

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"sync"

	_ "modernc.org/sqlite"

	"github.com/debughub/probe/internal/defaults"
	"github.com/debughub/probe/probeerr"
)

const (
	busyTimeout    = defaults.DBBusyTimeout
	queryTimeout   = defaults.DBQueryTimeout
	maxPageSize    = defaults.DBMaxPageSize
	maxQueryRows   = defaults.DBMaxResultRows
	maxIdentLength = defaults.DBMaxIdentLength
)

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// validIdentifier reports whether name is safe to interpolate directly
// into a PRAGMA or column/table position SQLite has no placeholder for.
func validIdentifier(name string) bool {
	return len(name) > 0 && len(name) <= maxIdentLength && identifierPattern.MatchString(name)
}

// DatabaseConfig names one on-device SQLite file the inspector may open.
type DatabaseConfig struct {
	ID        string
	Path      string
	Sensitive bool
}

// DatabaseSummary is what listDatabases reports for one configured DB.
type DatabaseSummary struct {
	ID        string `json:"id"`
	Sensitive bool   `json:"sensitive"`
}

type entry struct {
	cfg DatabaseConfig

	mu sync.Mutex
	db *sql.DB
}

// Inspector is the C7 command handler. It is safe for concurrent use;
// each dbCommand dispatches on its own goroutine (see bridge package)
// and connections are opened lazily, one per configured database.
type Inspector struct {
	mu  sync.Mutex
	dbs map[string]*entry
}

// New returns an Inspector over the given set of configured databases.
func New(configs []DatabaseConfig) *Inspector {
	dbs := make(map[string]*entry, len(configs))
	for _, c := range configs {
		dbs[c.ID] = &entry{cfg: c}
	}
	return &Inspector{dbs: dbs}
}

// ListDatabases enumerates every configured database, sensitive ones
// included — the sensitive flag itself is not secret, only the data
// behind it.
func (in *Inspector) ListDatabases() []DatabaseSummary {
	in.mu.Lock()
	defer in.mu.Unlock()
	out := make([]DatabaseSummary, 0, len(in.dbs))
	for _, e := range in.dbs {
		out = append(out, DatabaseSummary{ID: e.cfg.ID, Sensitive: e.cfg.Sensitive})
	}
	return out
}

func (in *Inspector) lookup(dbID string) (*entry, error) {
	in.mu.Lock()
	e, ok := in.dbs[dbID]
	in.mu.Unlock()
	if !ok {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageOpen, probeerr.CodeDatabaseNotFound, nil)
	}
	if e.cfg.Sensitive {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageOpen, probeerr.CodeAccessDenied, nil)
	}
	return e, nil
}

// conn opens (once) and returns the read-only *sql.DB for e, with a
// busy timeout applied via the driver's pragma DSN parameter.
func (e *entry) conn() (*sql.DB, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db != nil {
		return e.db, nil
	}
	dsn := fmt.Sprintf("file:%s?mode=ro&_pragma=busy_timeout(%d)", e.cfg.Path, busyTimeout.Milliseconds())
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, probeerr.New(probeerr.DomainDBInspect, probeerr.StageOpen, probeerr.CodeInternal, err)
	}
	db.SetMaxOpenConns(1)
	e.db = db
	return db, nil
}

// queryContext bounds every statement to the 10-second hard interrupt
// a context deadline exceeded maps to CodeDBTimeout.
func queryContext(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, queryTimeout)
}

func classifyQueryErr(err error) error {
	if err == nil {
		return nil
	}
	if err == context.DeadlineExceeded {
		return probeerr.New(probeerr.DomainDBInspect, probeerr.StageQuery, probeerr.CodeDBTimeout, err)
	}
	return probeerr.New(probeerr.DomainDBInspect, probeerr.StageQuery, probeerr.CodeInvalidQuery, err)
}

func clampPage(page int) int {
	if page < 1 {
		return 1
	}
	return page
}

func clampPageSize(pageSize int) int {
	if pageSize < 1 {
		return 1
	}
	if pageSize > maxPageSize {
		return maxPageSize
	}
	return pageSize
}
