package route

import (
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"slices"
	"sync/atomic"
	"time"

	"shadow-proxy-go/internal/config"
)

// ErrNotFound is returned by Table.Resolve when no route is configured for a path.
var ErrNotFound = errors.New("route not found")

// Snapshot is an immutable view of the route table. It is never modified
// after construction, so any number of readers may use it concurrently.
type Snapshot struct {
	routes   map[string][]*url.URL
	source   string
	loadedAt time.Time
}

// NewSnapshot builds a Snapshot from an in-memory route map. The map and its
// URLs must not be modified afterwards.
func NewSnapshot(routes map[string][]*url.URL) *Snapshot {
	if routes == nil {
		routes = map[string][]*url.URL{}
	}
	return &Snapshot{routes: routes, loadedAt: time.Now()}
}

// Len returns the number of configured source paths.
func (s *Snapshot) Len() int { return len(s.routes) }

// Source returns the file the snapshot was loaded from, if any.
func (s *Snapshot) Source() string { return s.source }

// LoadedAt returns when the snapshot was built.
func (s *Snapshot) LoadedAt() time.Time { return s.loadedAt }

// Table is the process-wide route table. Lookups read the current Snapshot
// through an atomic pointer; reloads build a new Snapshot and swap it in, so
// readers never block and never observe a partially applied reload.
type Table struct {
	current atomic.Pointer[Snapshot]
	path    string
	logger  *slog.Logger
}

// NewTable creates a Table serving s.
func NewTable(s *Snapshot, logger *slog.Logger) *Table {
	t := &Table{
		path:   s.source,
		logger: logger.With("component", "route_table"),
	}
	t.current.Store(s)
	return t
}

// Open loads the route file named in cfg. Any error here is fatal at startup.
func Open(cfg *config.Config, logger *slog.Logger) (*Table, error) {
	t := &Table{
		path:   cfg.Routes.File,
		logger: logger.With("component", "route_table"),
	}
	if err := t.Reload(); err != nil {
		return nil, err
	}
	return t, nil
}

// Resolve returns the ordered destinations for path. Position 0 is the
// primary. The returned slice is a copy; the URLs must be treated as read-only.
func (t *Table) Resolve(path string) ([]*url.URL, error) {
	dests, ok := t.current.Load().routes[path]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	return slices.Clone(dests), nil
}

// Snapshot returns the snapshot currently being served.
func (t *Table) Snapshot() *Snapshot {
	return t.current.Load()
}

// Replace swaps in s for all subsequent lookups.
func (t *Table) Replace(s *Snapshot) {
	t.current.Store(s)
}

// Reload re-reads the route file and swaps the result in. When the file
// cannot be read the previous snapshot stays in place.
func (t *Table) Reload() error {
	if t.path == "" {
		return errors.New("route: table has no source file")
	}

	s, diags, err := Load(t.path)
	if err != nil {
		return err
	}
	for _, d := range diags {
		t.logger.Warn("skipping route line",
			"path", t.path,
			"line", d.Line,
			"reason", d.Reason,
			"text", d.Text,
		)
	}
	if s.Len() == 0 {
		t.logger.Warn("route table is empty", "path", t.path)
	}

	t.Replace(s)
	t.logger.Info("route table loaded",
		"path", t.path,
		"routes", s.Len(),
		"skipped", len(diags),
	)
	return nil
}
