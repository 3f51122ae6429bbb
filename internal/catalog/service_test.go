package catalog

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

var testNow = time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

func newTestService() (*Service, *memRepo) {
	repo := newMemRepo()
	return newService(repo, fixedClock{t: testNow}, 10), repo
}

func strp(s string) *string { return &s }
func boolp(b bool) *bool    { return &b }

func mustBook(t *testing.T, svc *Service, title, author string) BookResponse {
	t.Helper()
	b, err := svc.CreateBook(context.Background(), CreateBookRequest{
		Title: title, Author: author, PublishTime: time.Date(2001, 1, 1, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return b
}

func codeOf(err error) Code {
	var api *APIError
	if errors.As(err, &api) {
		return api.Code
	}
	return ""
}

func Test_CreateBook_Validation(t *testing.T) {
	svc, _ := newTestService()
	_, err := svc.CreateBook(context.Background(), CreateBookRequest{Title: " ", Author: "x", PublishTime: testNow})
	assert.Equal(t, CodeInvalidArgument, codeOf(err))

	_, err = svc.CreateBook(context.Background(), CreateBookRequest{Title: "t", Author: "a"})
	assert.Equal(t, CodeInvalidArgument, codeOf(err))
}

func Test_CreateItem_DefaultNames(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	b := mustBook(t, svc, "Dune", "Herbert")

	first, err := svc.CreateItem(ctx, b.ID, CreateItemRequest{})
	require.NoError(t, err)
	second, err := svc.CreateItem(ctx, b.ID, CreateItemRequest{Damaged: true})
	require.NoError(t, err)
	named, err := svc.CreateItem(ctx, b.ID, CreateItemRequest{Name: strp("Reading room copy")})
	require.NoError(t, err)

	assert.Equal(t, "Book Item No. 0", first.Name)
	assert.Equal(t, "Book Item No. 1", second.Name)
	assert.True(t, second.Damaged)
	assert.Equal(t, "Reading room copy", named.Name)

	_, err = svc.CreateItem(ctx, "missing", CreateItemRequest{})
	assert.Equal(t, CodeNotFound, codeOf(err))
}

func Test_FindBook_And_ListBookItems(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	b := mustBook(t, svc, "Dune", "Herbert")
	a, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{})
	c, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{Lost: true})

	got, err := svc.FindBook(ctx, b.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "Dune", got.Title)

	missing, err := svc.FindBook(ctx, "nope")
	require.NoError(t, err)
	assert.Nil(t, missing)

	items, err := svc.ListBookItems(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, items, 2)
	assert.Equal(t, a.ID, items[0].ID)
	assert.Equal(t, c.ID, items[1].ID)
}

func Test_ListBooks_RanksTitleBeforeAuthor(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	byAuthor := mustBook(t, svc, "Children of Time", "Tchaikovsky")
	byTitle := mustBook(t, svc, "Tchaikovsky: A Life", "Someone")
	mustBook(t, svc, "Unrelated", "Nobody")

	res, err := svc.ListBooks(ctx, BookSearch{Q: "tchaikovsky"}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, byTitle.ID, res.Items[0].ID)
	assert.Equal(t, byAuthor.ID, res.Items[1].ID)
	assert.EqualValues(t, 2, res.Total)
	assert.Nil(t, res.NextOffset)
}

func Test_ListBooks_PageCeiling(t *testing.T) {
	svc, _ := newTestService()
	for i := 0; i < 12; i++ {
		mustBook(t, svc, "Book", "Author")
	}
	res, err := svc.ListBooks(context.Background(), BookSearch{}, Page{Limit: 50})
	require.NoError(t, err)
	assert.Len(t, res.Items, 10)
	require.NotNil(t, res.NextOffset)
	assert.Equal(t, 10, *res.NextOffset)
}

func Test_ListItems_Filters(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	b := mustBook(t, svc, "Dune", "Herbert")
	i0, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{})
	i1, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{Damaged: true})
	i2, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{})

	res, err := svc.ListItems(ctx, b.ID, ItemFilter{Damaged: boolp(false)}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, i0.ID, res.Items[0].ID)
	assert.Equal(t, i2.ID, res.Items[1].ID)

	res, err = svc.ListItems(ctx, b.ID, ItemFilter{AfterID: i0.ID}, Page{})
	require.NoError(t, err)
	require.Len(t, res.Items, 2)
	assert.Equal(t, i1.ID, res.Items[0].ID)

	res, err = svc.ListItems(ctx, b.ID, ItemFilter{AfterID: "unknown"}, Page{})
	require.NoError(t, err)
	assert.Empty(t, res.Items)

	_, err = svc.ListItems(ctx, "missing", ItemFilter{}, Page{})
	assert.Equal(t, CodeNotFound, codeOf(err))
}

func Test_Delete_RefusedWhileOnLoan(t *testing.T) {
	svc, repo := newTestService()
	ctx := context.Background()
	b := mustBook(t, svc, "Dune", "Herbert")
	it, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{})
	repo.onLoan[it.ID] = true

	assert.Equal(t, CodeConflict, codeOf(svc.DeleteItem(ctx, b.ID, it.ID)))
	assert.Equal(t, CodeConflict, codeOf(svc.DeleteBook(ctx, b.ID)))

	repo.onLoan[it.ID] = false
	require.NoError(t, svc.DeleteBook(ctx, b.ID))
	_, err := svc.GetItem(ctx, b.ID, it.ID)
	assert.Equal(t, CodeNotFound, codeOf(err))
}

func Test_UpdateItem_Flags(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	b := mustBook(t, svc, "Dune", "Herbert")
	it, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{})

	res, err := svc.UpdateItem(ctx, b.ID, it.ID, UpdateItemRequest{Lost: boolp(true)})
	require.NoError(t, err)
	assert.True(t, res.Lost)
	assert.False(t, res.Damaged)
	assert.Equal(t, it.Name, res.Name)

	_, err = svc.UpdateItem(ctx, b.ID, it.ID, UpdateItemRequest{Name: strp("  ")})
	assert.Equal(t, CodeInvalidArgument, codeOf(err))
}

func Test_Categories(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	c, err := svc.CreateCategory(ctx, CreateCategoryRequest{Name: "Science Fiction", Code: "sf"})
	require.NoError(t, err)
	assert.Equal(t, "SF", c.Code)

	_, err = svc.UpdateCategory(ctx, c.ID, UpdateCategoryRequest{Name: strp("SF & Fantasy")})
	require.NoError(t, err)

	require.NoError(t, svc.DeleteCategory(ctx, c.ID))
	active, err := svc.ListCategories(ctx, false)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := svc.ListCategories(ctx, true)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.True(t, all[0].IsDisabled)

	assert.Equal(t, CodeNotFound, codeOf(svc.DeleteCategory(ctx, 99)))
}

func Test_LabelRows_SkipsLost(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()
	b := mustBook(t, svc, "Dune", "Herbert")
	keep, _ := svc.CreateItem(ctx, b.ID, CreateItemRequest{Damaged: true})
	_, _ = svc.CreateItem(ctx, b.ID, CreateItemRequest{Lost: true})

	rows, err := svc.LabelRows(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, LabelRow{Title: "Dune", ItemName: keep.Name, ItemID: keep.ID, Damaged: true}, rows[0])

	empty := mustBook(t, svc, "Empty", "Nobody")
	_, err = svc.LabelRows(ctx, empty.ID)
	assert.Equal(t, CodeInvalidArgument, codeOf(err))
}

func Test_mapStoreErr(t *testing.T) {
	assert.Nil(t, mapStoreErr(nil, ""))
	assert.Equal(t, CodeConflict, codeOf(mapStoreErr(&mysql.MySQLError{Number: 1062}, "")))
	assert.Equal(t, CodeInvalidArgument, codeOf(mapStoreErr(&mysql.MySQLError{Number: 1452}, "")))
	assert.Equal(t, CodeInternal, codeOf(mapStoreErr(errors.New("boom"), "")))
}
