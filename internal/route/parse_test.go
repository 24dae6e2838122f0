package route

import (
	"errors"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func urlStrings(us []*url.URL) []string {
	out := make([]string, len(us))
	for i, u := range us {
		out[i] = u.String()
	}
	return out
}

func TestParse_ValidLines(t *testing.T) {
	in := `
# comment
/api/users -> http://localhost:3001, http://localhost:3002
   /health   ->   http://127.0.0.1:9000

/three -> http://a.example.com, https://b.example.com/v2 ,http://c.example.com:8080
`
	routes, diags, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, diags)
	require.Len(t, routes, 3)

	assert.Equal(t, []string{"http://localhost:3001", "http://localhost:3002"}, urlStrings(routes["/api/users"]))
	assert.Equal(t, []string{"http://127.0.0.1:9000"}, urlStrings(routes["/health"]))
	assert.Equal(t,
		[]string{"http://a.example.com", "https://b.example.com/v2", "http://c.example.com:8080"},
		urlStrings(routes["/three"]),
	)
}

func TestParse_LastWriteWins(t *testing.T) {
	in := "/a -> http://localhost:1\n/a -> http://localhost:2, http://localhost:3\n"

	routes, diags, err := Parse(strings.NewReader(in))
	require.NoError(t, err)
	assert.Empty(t, diags)
	assert.Equal(t, []string{"http://localhost:2", "http://localhost:3"}, urlStrings(routes["/a"]))
}

func TestParse_MalformedLinesSkipped(t *testing.T) {
	tests := []struct {
		name   string
		line   string
		reason string
	}{
		{"missing separator", "/a http://localhost:1", "separator"},
		{"two separators", "/a -> http://localhost:1 -> http://localhost:2", "separator"},
		{"empty source", " -> http://localhost:1", "empty source"},
		{"empty destination list", "/a ->   ", "empty destination list"},
		{"empty destination token", "/a -> http://localhost:1, ,http://localhost:2", "destination 2"},
		{"trailing comma", "/a -> http://localhost:1,", "destination 2"},
		{"not a url", "/a -> not a url", "destination 1"},
		{"unsupported scheme", "/a -> ftp://localhost:21", "destination 1"},
		{"missing scheme", "/a -> localhost:3001", "destination 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := "/before -> http://localhost:1\n" + tt.line + "\n/after -> http://localhost:2\n"

			routes, diags, err := Parse(strings.NewReader(in))
			require.NoError(t, err)

			require.Len(t, diags, 1)
			assert.Equal(t, 2, diags[0].Line)
			assert.Contains(t, diags[0].Reason, tt.reason)

			assert.Len(t, routes, 2, "valid lines around a malformed one must still load")
			assert.Contains(t, routes, "/before")
			assert.Contains(t, routes, "/after")
		})
	}
}

func TestDiagnostic_String(t *testing.T) {
	d := Diagnostic{Line: 7, Text: "/a", Reason: "expected exactly one '->' separator"}
	assert.Equal(t, `line 7: expected exactly one '->' separator: "/a"`, d.String())
}

func TestLoad_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.txt")
	require.NoError(t, os.WriteFile(path, []byte("/x -> http://localhost:3001\nbroken\n"), 0o644))

	s, diags, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, diags, 1)
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, path, s.Source())
	assert.False(t, s.LoadedAt().IsZero())
}

func TestLoad_MissingFile(t *testing.T) {
	_, _, err := Load(filepath.Join(t.TempDir(), "nope.txt"))
	require.Error(t, err)
	assert.True(t, errors.Is(err, os.ErrNotExist))
}
