package lazy_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/lazydom/internal/mocks"
	"github.com/xkilldash9x/lazydom/pkg/execctx"
	"github.com/xkilldash9x/lazydom/pkg/lazy"
	"github.com/xkilldash9x/lazydom/pkg/locator"
	"github.com/xkilldash9x/lazydom/pkg/webdriver"
)

var rowLoc = locator.MustCSS("tr.row")

func TestList_ZeroMatchesIsEmpty(t *testing.T) {
	ctx := context.Background()
	driver := &mocks.MockDriver{}
	driver.On("FindElements", mock.Anything, rowLoc).Return(nil, nil)

	list, err := lazy.ResolveLazyList(lazy.Document(execctx.Static(driver)), rowLoc)
	require.NoError(t, err)

	els, err := list.Elements(ctx)
	require.NoError(t, err)
	assert.NotNil(t, els)
	assert.Empty(t, els)

	n, err := list.Len(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestList_ElementsAreIndividuallyLazy(t *testing.T) {
	ctx := context.Background()
	driver := &mocks.MockDriver{}
	first, second := &mocks.MockElement{}, &mocks.MockElement{}
	driver.On("FindElements", mock.Anything, rowLoc).Return([]webdriver.Element{first, second}, nil)
	second.On("Text", mock.Anything).Return("row 2", nil)

	list, err := lazy.ResolveLazyList(lazy.Document(execctx.Static(driver)), rowLoc)
	require.NoError(t, err)

	els, err := list.Elements(ctx)
	require.NoError(t, err)
	require.Len(t, els, 2)
	driver.AssertNumberOfCalls(t, "FindElements", 1)

	text, err := els[1].Text(ctx)
	require.NoError(t, err)
	assert.Equal(t, "row 2", text)
	driver.AssertNumberOfCalls(t, "FindElements", 2)
	first.AssertNotCalled(t, "Text", mock.Anything)
}

func TestList_AtDoesNotResolve(t *testing.T) {
	driver := &mocks.MockDriver{}
	list, err := lazy.ResolveLazyList(lazy.Document(execctx.Static(driver)), rowLoc)
	require.NoError(t, err)

	h := list.At(3)
	assert.Equal(t, "lazy(By.css: tr.row[3])", h.(*lazy.Handle).String())
	driver.AssertNotCalled(t, "FindElements", mock.Anything, mock.Anything)
}

func TestList_IndexOutOfRangeIsNotFound(t *testing.T) {
	driver := &mocks.MockDriver{}
	driver.On("FindElements", mock.Anything, rowLoc).Return([]webdriver.Element{&mocks.MockElement{}}, nil)

	list, err := lazy.ResolveLazyList(lazy.Document(execctx.Static(driver)), rowLoc)
	require.NoError(t, err)

	err = list.At(5).Click(context.Background())
	assert.ErrorIs(t, err, webdriver.ErrNoSuchElement)
	driver.AssertNumberOfCalls(t, "FindElements", 1)
}

func TestList_Each(t *testing.T) {
	ctx := context.Background()
	driver := &mocks.MockDriver{}
	a, b := &mocks.MockElement{}, &mocks.MockElement{}
	driver.On("FindElements", mock.Anything, rowLoc).Return([]webdriver.Element{a, b}, nil)
	a.On("Text", mock.Anything).Return("a", nil)
	b.On("Text", mock.Anything).Return("b", nil)

	list, err := lazy.ResolveLazyList(lazy.Document(execctx.Static(driver)), rowLoc)
	require.NoError(t, err)

	var texts []string
	err = list.Each(ctx, func(i int, el webdriver.Element) error {
		text, err := el.Text(ctx)
		texts = append(texts, text)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, texts)
}

func TestList_RootedAtStaleScopeRetries(t *testing.T) {
	ctx := context.Background()
	driver := &mocks.MockDriver{}
	oldTable, newTable := &mocks.MockElement{}, &mocks.MockElement{}
	tableLoc := locator.MustCSS("table")
	driver.On("FindElement", mock.Anything, tableLoc).Return(oldTable, nil).Once()
	driver.On("FindElement", mock.Anything, tableLoc).Return(newTable, nil).Once()
	oldTable.On("FindElements", mock.Anything, rowLoc).Return(nil, webdriver.ErrStaleElement)
	newTable.On("FindElements", mock.Anything, rowLoc).Return([]webdriver.Element{&mocks.MockElement{}}, nil)

	provider := execctx.Static(driver)
	table, err := lazy.ResolveLazy(lazy.Document(provider), tableLoc, webdriver.CapElement)
	require.NoError(t, err)
	list, err := lazy.ResolveLazyList(lazy.Rooted(provider, table), rowLoc)
	require.NoError(t, err)

	n, err := list.Len(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestList_StaleExhausted(t *testing.T) {
	root := &mocks.MockElement{}
	root.On("FindElements", mock.Anything, rowLoc).Return(nil, webdriver.ErrStaleElement)

	list, err := lazy.ResolveLazyList(lazy.Rooted(nil, root), rowLoc, lazy.WithStaleRetries(2))
	require.NoError(t, err)

	_, err = list.Len(context.Background())
	var staleErr *lazy.StaleError
	require.ErrorAs(t, err, &staleErr)
	assert.Equal(t, 3, staleErr.Attempts)
	assert.ErrorIs(t, err, lazy.ErrStaleScope)
	root.AssertNumberOfCalls(t, "FindElements", 3)
}

func TestHandle_FindElementsReturnsLazyHandles(t *testing.T) {
	ctx := context.Background()
	driver := &mocks.MockDriver{}
	table, row := &mocks.MockElement{}, &mocks.MockElement{}
	tableLoc := locator.MustCSS("table")
	driver.On("FindElement", mock.Anything, tableLoc).Return(table, nil)
	table.On("FindElements", mock.Anything, rowLoc).Return([]webdriver.Element{row}, nil)
	row.On("Click", mock.Anything).Return(nil)

	h, err := lazy.ResolveLazy(lazy.Document(execctx.Static(driver)), tableLoc, webdriver.CapElement)
	require.NoError(t, err)

	rows, err := h.FindElements(ctx, rowLoc)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	require.NoError(t, rows[0].Click(ctx))
	table.AssertNumberOfCalls(t, "FindElements", 2)
}
