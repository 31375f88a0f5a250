package cmd

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/lazydom/internal/observability"
	"github.com/xkilldash9x/lazydom/pkg/jsiface"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

const pageHTML = `<html>
<head>
<title>Shop</title>
<script>
window.shop = {
  total: function(a, b) { return a + b; },
  name: function() { return "lazydom shop"; },
  find: function(q) { return {id: q.id, tags: ["x", "y"]}; },
  broken: function() { throw new Error("out of stock"); }
};
</script>
</head>
<body>
  <h1 id="title">  Welcome   back </h1>
  <ul id="cart">
    <li class="item"><a href="/p/1">Apple</a></li>
    <li class="item"><a href="/p/2">Pear</a></li>
  </ul>
  <ul id="wishlist">
    <li class="item"><a href="/p/3">Plum</a></li>
  </ul>
  <input name="q" value="">
</body>
</html>`

func newShopServer(t *testing.T) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, pageHTML)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// run executes a fresh root command against the static driver.
func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	observability.ResetForTest()
	t.Cleanup(observability.ResetForTest)
	t.Setenv("LAZYDOM_LOGGER_LEVEL", "error")

	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(append([]string{"--driver", "static"}, args...))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestRootCmd(t *testing.T) {
	t.Run("version flag", func(t *testing.T) {
		out, err := run(t, "--version")
		require.NoError(t, err)
		assert.Equal(t, "lazydom version "+Version+"\n", out)
	})

	t.Run("version command", func(t *testing.T) {
		out, err := run(t, "version")
		require.NoError(t, err)
		assert.Equal(t, "lazydom "+Version+"\n", out)
	})

	t.Run("bad driver", func(t *testing.T) {
		root := newRootCmd()
		root.SetArgs([]string{"--driver", "mosaic", "version"})
		root.SetOut(&bytes.Buffer{})
		err := root.ExecuteContext(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --driver")
	})

	t.Run("config file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "lazydom.yaml")
		require.NoError(t, os.WriteFile(path, []byte("browser:\n  driver: static\nresolution:\n  stale_retries: 0\n"), 0o600))
		srv := newShopServer(t)
		out, err := run(t, "--config", path, "probe", srv.URL, "--id", "title")
		require.NoError(t, err)
		assert.Equal(t, "Welcome back\n", out)
	})
}

func TestProbeCmd(t *testing.T) {
	srv := newShopServer(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"text", []string{"--css", "h1"}, "Welcome back\n"},
		{"attribute", []string{"--link-text", "Pear", "--attr", "href"}, "/p/2\n"},
		{"all", []string{"--class", "item", "--all"}, "Apple\nPear\nPlum\n"},
		{"count", []string{"--tag", "li", "--count"}, "3\n"},
		{"count within", []string{"--within", "#cart", "--class", "item", "--count"}, "2\n"},
		{"xpath within", []string{"--within", "#wishlist", "--xpath", ".//a", "--attr", "href", "--all"}, "/p/3\n"},
		{"type", []string{"--name", "q", "--type", "pears", "--attr", "value"}, "pears\n"},
		{"zero matches", []string{"--css", "table", "--count"}, "0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"probe", srv.URL}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	t.Run("not found", func(t *testing.T) {
		_, err := run(t, "probe", srv.URL, "--id", "missing")
		assert.ErrorIs(t, err, webdriver.ErrNoSuchElement)
	})

	t.Run("no locator", func(t *testing.T) {
		_, err := run(t, "probe", srv.URL)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "a locator flag is required")
	})
}

func TestCallCmd(t *testing.T) {
	srv := newShopServer(t)

	tests := []struct {
		name string
		args []string
		want string
	}{
		{"int", []string{"shop.total", "2", "3", "--returns", "int"}, "5\n"},
		{"string", []string{"shop.name", "--returns", "string"}, "\"lazydom shop\"\n"},
		{"json", []string{"shop.find", `{"id": 7}`}, "{\"id\":7,\"tags\":[\"x\",\"y\"]}\n"},
		{"void", []string{"shop.name", "--returns", "void"}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, append([]string{"call", srv.URL}, tt.args...)...)
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}

	t.Run("preload", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "extra.js")
		require.NoError(t, os.WriteFile(path, []byte(`window.extra = { twice: function(n) { return n * 2; } };`), 0o600))
		out, err := run(t, "call", srv.URL, "extra.twice", "21", "--returns", "int", "--preload", path)
		require.NoError(t, err)
		assert.Equal(t, "42\n", out)
	})

	t.Run("script error", func(t *testing.T) {
		_, err := run(t, "call", srv.URL, "shop.broken")
		var scriptErr *webdriver.ScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Contains(t, scriptErr.Message, "out of stock")
	})

	t.Run("coercion error", func(t *testing.T) {
		_, err := run(t, "call", srv.URL, "shop.name", "--returns", "int")
		var coerceErr *jsiface.CoercionError
		require.ErrorAs(t, err, &coerceErr)
	})

	t.Run("bad target", func(t *testing.T) {
		_, err := run(t, "call", srv.URL, "noMethod")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "must be namespace.method")
	})

	t.Run("bad argument", func(t *testing.T) {
		_, err := run(t, "call", srv.URL, "shop.total", "{oops")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "argument 1 is not valid JSON")
	})

	t.Run("unknown kind", func(t *testing.T) {
		_, err := run(t, "call", srv.URL, "shop.name", "--returns", "date")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "unknown --returns 'date'")
	})
}

func TestSplitTarget(t *testing.T) {
	ns, m, err := splitTarget("app.api.v2.fetch")
	require.NoError(t, err)
	assert.Equal(t, "app.api.v2", ns)
	assert.Equal(t, "fetch", m)

	for _, bad := range []string{"", "fetch", ".fetch", "app."} {
		_, _, err := splitTarget(bad)
		assert.Error(t, err, bad)
	}
}
