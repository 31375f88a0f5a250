package htmldom_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap/zaptest"

	"github.com/xkilldash9x/lazydom/pkg/browser/htmldom"
	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const page = `<!DOCTYPE html>
<html><head><title> Sign in </title></head>
<body>
  <form id="login">
    <input id="user" name="user" class="field text">
    <input id="remember" type="checkbox">
    <input type="radio" name="plan" value="free" checked>
    <input type="radio" name="plan" value="pro">
    <select id="lang"><option value="en" selected>English</option><option value="de">Deutsch</option></select>
    <textarea id="bio">hello</textarea>
    <input type="hidden" name="csrf" value="t0k3n">
  </form>
  <div id="notice" style="display: none">Maintenance</div>
  <p hidden><span id="ghost">boo</span></p>
  <ul class="items"><li class="item">one</li><li class="item">  two
     words </li></ul>
  <a href="/help">Need   help?</a>
</body></html>`

func load(t *testing.T) *htmldom.Document {
	t.Helper()
	doc, err := htmldom.Parse(page, htmldom.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)
	return doc
}

func must(l locator.Locator, err error) locator.Locator {
	if err != nil {
		panic(err)
	}
	return l
}

func TestDocument_FindElement(t *testing.T) {
	ctx := context.Background()
	doc := load(t)

	tests := []struct {
		name string
		loc  locator.Locator
		want string
	}{
		{"ID", must(locator.ByID("user")), "user"},
		{"Class", must(locator.ByClassName("text")), "user"},
		{"Name", must(locator.ByName("user")), "user"},
		{"CSS", locator.MustCSS("form > input[type=checkbox]"), "remember"},
		{"XPath", must(locator.ByXPath("//select")), "lang"},
		{"Tag", must(locator.ByTagName("textarea")), "bio"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			el, err := doc.FindElement(ctx, tt.loc)
			require.NoError(t, err)
			id, err := el.Attribute(ctx, "id")
			require.NoError(t, err)
			assert.Equal(t, tt.want, id)
		})
	}

	t.Run("LinkText", func(t *testing.T) {
		el, err := doc.FindElement(ctx, must(locator.ByLinkText("Need help?")))
		require.NoError(t, err)
		href, _ := el.Attribute(ctx, "href")
		assert.Equal(t, "/help", href)

		_, err = doc.FindElement(ctx, must(locator.ByPartialLinkText("help")))
		assert.NoError(t, err)
	})

	t.Run("NotFound", func(t *testing.T) {
		_, err := doc.FindElement(ctx, locator.MustCSS("#missing"))
		assert.ErrorIs(t, err, webdriver.ErrNoSuchElement)
	})

	t.Run("InvalidSelector", func(t *testing.T) {
		_, err := doc.FindElement(ctx, locator.MustCSS("div[["))
		assert.ErrorIs(t, err, locator.ErrInvalidLocator)
		_, err = doc.FindElements(ctx, must(locator.ByXPath("//div[")))
		assert.ErrorIs(t, err, locator.ErrInvalidLocator)
	})

	assert.Equal(t, "Sign in", doc.Title())
}

func TestDocument_FindElements(t *testing.T) {
	ctx := context.Background()
	doc := load(t)

	items, err := doc.FindElements(ctx, must(locator.ByClassName("item")))
	require.NoError(t, err)
	require.Len(t, items, 2)
	text, err := items[1].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "two words", text)

	none, err := doc.FindElements(ctx, locator.MustCSS("table"))
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	ul, err := doc.FindElement(ctx, must(locator.ByClassName("items")))
	require.NoError(t, err)
	scoped, err := ul.FindElements(ctx, must(locator.ByTagName("li")))
	require.NoError(t, err)
	assert.Len(t, scoped, 2)
}

func TestElement_Staleness(t *testing.T) {
	ctx := context.Background()

	t.Run("Removed", func(t *testing.T) {
		doc := load(t)
		el, err := doc.FindElement(ctx, must(locator.ByID("user")))
		require.NoError(t, err)

		require.NoError(t, doc.Remove(ctx, locator.MustCSS("form")))
		_, err = el.Text(ctx)
		assert.ErrorIs(t, err, webdriver.ErrStaleElement)
		assert.ErrorIs(t, el.Click(ctx), webdriver.ErrStaleElement)
	})

	t.Run("Reloaded", func(t *testing.T) {
		doc := load(t)
		el, err := doc.FindElement(ctx, must(locator.ByID("user")))
		require.NoError(t, err)

		require.NoError(t, doc.Load(page))
		_, err = el.Attribute(ctx, "id")
		assert.ErrorIs(t, err, webdriver.ErrStaleElement)
		_, err = el.FindElement(ctx, locator.MustCSS("b"))
		assert.ErrorIs(t, err, webdriver.ErrStaleElement)
	})
}

func TestElement_Interaction(t *testing.T) {
	ctx := context.Background()
	doc := load(t)
	find := func(css string) webdriver.Element {
		el, err := doc.FindElement(ctx, locator.MustCSS(css))
		require.NoError(t, err)
		return el
	}
	attr := func(el webdriver.Element, name string) string {
		v, err := el.Attribute(ctx, name)
		require.NoError(t, err)
		return v
	}

	t.Run("Checkbox", func(t *testing.T) {
		box := find("#remember")
		require.NoError(t, box.Click(ctx))
		assert.Equal(t, "checked", attr(box, "checked"))
		require.NoError(t, box.Click(ctx))
		assert.Empty(t, attr(box, "checked"))
	})

	t.Run("Radio", func(t *testing.T) {
		free, pro := find(`input[value=free]`), find(`input[value=pro]`)
		require.NoError(t, pro.Click(ctx))
		assert.Equal(t, "checked", attr(pro, "checked"))
		assert.Empty(t, attr(free, "checked"))
	})

	t.Run("Option", func(t *testing.T) {
		en, de := find(`option[value=en]`), find(`option[value=de]`)
		require.NoError(t, de.Click(ctx))
		assert.Equal(t, "selected", attr(de, "selected"))
		assert.Empty(t, attr(en, "selected"))
	})

	t.Run("TypeAndClear", func(t *testing.T) {
		user := find("#user")
		require.NoError(t, user.SendKeys(ctx, "ali"))
		require.NoError(t, user.SendKeys(ctx, "ce"))
		assert.Equal(t, "alice", attr(user, "value"))
		require.NoError(t, user.Clear(ctx))
		assert.Empty(t, attr(user, "value"))

		bio := find("#bio")
		require.NoError(t, bio.SendKeys(ctx, " world"))
		text, err := bio.Text(ctx)
		require.NoError(t, err)
		assert.Equal(t, "hello world", text)
		require.NoError(t, bio.Clear(ctx))
		text, _ = bio.Text(ctx)
		assert.Empty(t, text)
	})

	t.Run("Visibility", func(t *testing.T) {
		for css, want := range map[string]bool{
			"#user":         true,
			"#notice":       false,
			"#ghost":        false,
			"[name=csrf]":   false,
			"ul.items > li": true,
		} {
			shown, err := find(css).IsDisplayed(ctx)
			require.NoError(t, err)
			assert.Equal(t, want, shown, css)
		}
	})

	t.Run("TagName", func(t *testing.T) {
		tag, err := find("#lang").TagName(ctx)
		require.NoError(t, err)
		assert.Equal(t, "select", tag)
	})

	t.Run("NotLocatable", func(t *testing.T) {
		_, ok := find("#user").(webdriver.Locatable)
		assert.False(t, ok)
	})
}

func TestDocument_Mutations(t *testing.T) {
	ctx := context.Background()
	doc := load(t)

	require.NoError(t, doc.SetAttribute(ctx, locator.MustCSS("#notice"), "style", ""))
	notice, err := doc.FindElement(ctx, locator.MustCSS("#notice"))
	require.NoError(t, err)
	shown, err := notice.IsDisplayed(ctx)
	require.NoError(t, err)
	assert.True(t, shown)

	require.NoError(t, doc.Append(ctx, locator.MustCSS("ul.items"), `<li class="item">three</li>`))
	items, err := doc.FindElements(ctx, locator.MustCSS("li.item"))
	require.NoError(t, err)
	assert.Len(t, items, 3)

	err = doc.Remove(ctx, locator.MustCSS("#nothing"))
	assert.ErrorIs(t, err, webdriver.ErrNoSuchElement)

	out, err := doc.HTML()
	require.NoError(t, err)
	assert.Contains(t, out, "three")
}

func TestDocument_ExecuteScript(t *testing.T) {
	ctx := context.Background()
	doc, err := htmldom.Parse(`<html><head><script>
		window.app = { greet: function (name) { return "hi " + name; } };
		var counter = 41;
	</script><script type="text/template">not js</script></head><body></body></html>`,
		htmldom.WithLogger(zaptest.NewLogger(t)))
	require.NoError(t, err)

	t.Run("Arguments", func(t *testing.T) {
		got, err := doc.ExecuteScript(ctx, "return arguments[0] + arguments[1];", 1, 2)
		require.NoError(t, err)
		assert.EqualValues(t, 3, got)
	})

	t.Run("InlineScriptGlobals", func(t *testing.T) {
		got, err := doc.ExecuteScript(ctx, "return app.greet(arguments[0]);", "bob")
		require.NoError(t, err)
		assert.Equal(t, "hi bob", got)

		got, err = doc.ExecuteScript(ctx, "return counter + 1;")
		require.NoError(t, err)
		assert.EqualValues(t, 42, got)
	})

	t.Run("NoReturn", func(t *testing.T) {
		got, err := doc.ExecuteScript(ctx, "var x = 1;")
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("Objects", func(t *testing.T) {
		got, err := doc.ExecuteScript(ctx, "return {width: 3, tags: ['a', 'b']};")
		require.NoError(t, err)
		m, ok := got.(map[string]any)
		require.True(t, ok)
		assert.EqualValues(t, 3, m["width"])
		assert.Equal(t, []any{"a", "b"}, m["tags"])
	})

	t.Run("Promise", func(t *testing.T) {
		got, err := doc.ExecuteScript(ctx, "return (async function () { return 7; })();")
		require.NoError(t, err)
		assert.EqualValues(t, 7, got)

		_, err = doc.ExecuteScript(ctx, "return Promise.reject(new Error('nope'));")
		var scriptErr *webdriver.ScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Contains(t, scriptErr.Message, "nope")

		_, err = doc.ExecuteScript(ctx, "return new Promise(function () {});")
		assert.ErrorAs(t, err, &scriptErr)
	})

	t.Run("Exception", func(t *testing.T) {
		_, err := doc.ExecuteScript(ctx, "throw new TypeError('bad input');")
		var scriptErr *webdriver.ScriptError
		require.ErrorAs(t, err, &scriptErr)
		assert.Contains(t, scriptErr.Message, "bad input")
		assert.Contains(t, scriptErr.Source, "TypeError")
	})

	t.Run("SyntaxError", func(t *testing.T) {
		_, err := doc.ExecuteScript(ctx, "return (;")
		var scriptErr *webdriver.ScriptError
		assert.ErrorAs(t, err, &scriptErr)
	})

	t.Run("Timeout", func(t *testing.T) {
		tctx, cancel := context.WithTimeout(ctx, 50*time.Millisecond)
		defer cancel()
		_, err := doc.ExecuteScript(tctx, "while (true) {}")
		assert.True(t, errors.Is(err, context.DeadlineExceeded), "got %v", err)

		// The runtime is usable again afterwards.
		got, err := doc.ExecuteScript(ctx, "return 1;")
		require.NoError(t, err)
		assert.EqualValues(t, 1, got)
	})

	t.Run("ReloadResetsGlobals", func(t *testing.T) {
		require.NoError(t, doc.Load(`<p>x</p>`))
		_, err := doc.ExecuteScript(ctx, "return app.greet('x');")
		var scriptErr *webdriver.ScriptError
		assert.ErrorAs(t, err, &scriptErr)
	})
}

func TestDocument_Navigate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/":
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			fmt.Fprint(w, `<html><head><title>Home</title></head><body><a id="next" href="/next">next</a></body></html>`)
		case "/next":
			w.Header().Set("Content-Type", "text/html")
			fmt.Fprint(w, `<html><head><title>Next</title></head><body><h1>second</h1></body></html>`)
		case "/data":
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{}`)
		}
	}))
	defer srv.Close()

	ctx := context.Background()
	doc := htmldom.New(htmldom.WithLogger(zaptest.NewLogger(t)), htmldom.WithHTTPClient(srv.Client()))

	require.NoError(t, doc.Navigate(ctx, srv.URL+"/"))
	assert.Equal(t, "Home", doc.Title())
	assert.Equal(t, srv.URL+"/", doc.URL())

	link, err := doc.FindElement(ctx, locator.MustCSS("#next"))
	require.NoError(t, err)

	require.NoError(t, doc.Navigate(ctx, "next"))
	assert.Equal(t, "Next", doc.Title())
	_, err = link.Text(ctx)
	assert.ErrorIs(t, err, webdriver.ErrStaleElement)

	assert.Error(t, doc.Navigate(ctx, "/data"))

	fresh := htmldom.New()
	assert.Error(t, fresh.Navigate(ctx, "/relative"))
}
