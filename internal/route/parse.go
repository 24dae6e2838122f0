// Package route loads the route table file and resolves inbound paths to
// their ordered destination lists.
//
// The file holds one route per line:
//
//	/api/users -> http://localhost:3001, http://localhost:3002
//
// The first destination is the primary; the rest are shadows. Blank lines
// and lines starting with '#' are ignored. Malformed lines are reported as
// Diagnostics and skipped; they never abort the load. When a source path
// appears more than once the last line wins.
package route

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
)

const separator = "->"

// Diagnostic describes a route file line that was skipped.
type Diagnostic struct {
	Line   int
	Text   string
	Reason string
}

func (d Diagnostic) String() string {
	return fmt.Sprintf("line %d: %s: %q", d.Line, d.Reason, d.Text)
}

// Parse reads route lines from r. The returned error is non-nil only when r
// itself fails; malformed lines end up in the diagnostics.
func Parse(r io.Reader) (map[string][]*url.URL, []Diagnostic, error) {
	routes := make(map[string][]*url.URL)
	var diags []Diagnostic

	sc := bufio.NewScanner(r)
	n := 0
	for sc.Scan() {
		n++
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		src, dests, err := parseLine(line)
		if err != nil {
			diags = append(diags, Diagnostic{Line: n, Text: line, Reason: err.Error()})
			continue
		}
		routes[src] = dests
	}
	if err := sc.Err(); err != nil {
		return nil, diags, fmt.Errorf("route: scan: %w", err)
	}

	return routes, diags, nil
}

func parseLine(line string) (string, []*url.URL, error) {
	if strings.Count(line, separator) != 1 {
		return "", nil, errors.New("expected exactly one '->' separator")
	}

	left, right, _ := strings.Cut(line, separator)
	src := strings.TrimSpace(left)
	if src == "" {
		return "", nil, errors.New("empty source path")
	}
	right = strings.TrimSpace(right)
	if right == "" {
		return "", nil, errors.New("empty destination list")
	}

	parts := strings.Split(right, ",")
	dests := make([]*url.URL, 0, len(parts))
	for i, p := range parts {
		raw := strings.TrimSpace(p)
		if err := validateDestination(raw); err != nil {
			return "", nil, fmt.Errorf("destination %d: %w", i+1, err)
		}
		u, err := url.Parse(raw)
		if err != nil {
			return "", nil, fmt.Errorf("destination %d: %w", i+1, err)
		}
		dests = append(dests, u)
	}

	return src, dests, nil
}

func validateDestination(raw string) error {
	return validation.Validate(raw,
		validation.Required,
		is.URL,
		validation.By(func(value interface{}) error {
			s, _ := value.(string)
			u, err := url.Parse(s)
			if err != nil {
				return validation.NewError("validation_url_parse", err.Error())
			}
			if u.Scheme != "http" && u.Scheme != "https" {
				return validation.NewError("validation_url_scheme", "must use http or https")
			}
			if u.Host == "" {
				return validation.NewError("validation_url_host", "must include a host")
			}
			return nil
		}),
	)
}

// Load reads and parses the route file at path into a Snapshot.
func Load(path string) (*Snapshot, []Diagnostic, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("route: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	routes, diags, err := Parse(f)
	if err != nil {
		return nil, diags, fmt.Errorf("route: load %s: %w", path, err)
	}

	return &Snapshot{routes: routes, source: path, loadedAt: time.Now()}, diags, nil
}
