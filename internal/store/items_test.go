package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/erazemk/shramba/internal/model"
)

func TestCreateAndGetItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	id, err := s.Items.Create(ctx, model.Item{
		Name:     "  Milk ",
		Category: "Dairy",
		Brand:    ptr("Alpsko"),
		Note:     ptr("   "),
	})
	require.NoError(t, err)

	item, err := s.Items.Get(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, item)
	assert.Equal(t, "Milk", item.Name)
	assert.Equal(t, "Dairy", item.Category)
	assert.Equal(t, "Alpsko", model.Deref(item.Brand))
	assert.Nil(t, item.Note, "blank optional fields are stored as NULL")
	assert.False(t, item.CreatedAt.IsZero())
}

func TestGetItemNotFound(t *testing.T) {
	s := newTestStore(t)

	item, err := s.Items.Get(context.Background(), 9999)
	require.NoError(t, err)
	assert.Nil(t, item)
}

func TestCreateItemValidation(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	_, err := s.Items.Create(ctx, model.Item{Name: " ", Category: "Dairy"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = s.Items.Create(ctx, model.Item{Name: "Milk"})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "category", ve.Field)
}

func TestUpdateItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	id := createItem(t, s, "Milk", "Dairy")

	err := s.Items.Update(ctx, model.Item{ID: id, Name: "Whole milk", Category: "Dairy", Specification: ptr("1L")})
	require.NoError(t, err)

	item, err := s.Items.Get(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, "Whole milk", item.Name)
	assert.Equal(t, "1L", model.Deref(item.Specification))
}

func TestUpdateMissingItem(t *testing.T) {
	s := newTestStore(t)

	err := s.Items.Update(context.Background(), model.Item{ID: 42, Name: "Ghost", Category: "None"})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestFindSimilar(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	plain := createItem(t, s, "Milk", "Dairy")
	branded, err := s.Items.Create(ctx, model.Item{Name: "Milk", Category: "Dairy", Brand: ptr("Alpsko")})
	require.NoError(t, err)
	specced, err := s.Items.Create(ctx, model.Item{
		Name: "Milk", Category: "Dairy", Brand: ptr("Alpsko"), Specification: ptr("1L"),
	})
	require.NoError(t, err)
	createItem(t, s, "Milk", "Baking")

	ids := func(items []model.Item) []int64 {
		var out []int64
		for _, it := range items {
			out = append(out, it.ID)
		}
		return out
	}

	got, err := s.Items.FindSimilar(ctx, "Milk", "Dairy", "", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{plain}, ids(got))

	got, err = s.Items.FindSimilar(ctx, "Milk", "Dairy", "Alpsko", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{branded}, ids(got))

	got, err = s.Items.FindSimilar(ctx, "Milk", "Dairy", "Alpsko", "1L")
	require.NoError(t, err)
	assert.Equal(t, []int64{specced}, ids(got))

	got, err = s.Items.FindSimilar(ctx, "Milk", "Dairy", "Other", "")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestSearchRanking(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	mustCreate := func(item model.Item) {
		_, err := s.Items.Create(ctx, item)
		require.NoError(t, err)
	}
	mustCreate(model.Item{Name: "Soy tea", Category: "Drinks"})
	mustCreate(model.Item{Name: "Teapot", Category: "Kitchen"})
	mustCreate(model.Item{Name: "Mug", Category: "Kitchen", Brand: ptr("Tea")})
	mustCreate(model.Item{Name: "Tea", Category: "Drinks"})
	mustCreate(model.Item{Name: "Kettle", Category: "Kitchen", Brand: ptr("Teaco")})
	mustCreate(model.Item{Name: "Cup", Category: "Kitchen", Note: ptr("for TEA")})
	mustCreate(model.Item{Name: "Bread", Category: "Bakery"})

	got, err := s.Items.Search(ctx, "tea")
	require.NoError(t, err)

	var names []string
	for _, it := range got {
		names = append(names, it.Name)
	}
	assert.Equal(t, []string{"Tea", "Teapot", "Mug", "Kettle", "Cup", "Soy tea"}, names)
}

func TestSearchBlankKeyword(t *testing.T) {
	s := newTestStore(t)
	createItem(t, s, "Milk", "Dairy")

	got, err := s.Items.Search(context.Background(), "  ")
	require.NoError(t, err)
	assert.Empty(t, got)
}
