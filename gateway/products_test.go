package gateway_test

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/gateway"
	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/filter"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

type productPage struct {
	Products    []models.Product `json:"products"`
	TotalCount  int64            `json:"totalCount"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int64            `json:"totalPages"`
}

func seedCatalog(t *testing.T, repo *repository.MemoryRepository) []primitive.ObjectID {
	t.Helper()
	items := []struct{ name, category string }{
		{"Linen Shirt", "tops"},
		{"Denim Jeans", "bottoms"},
		{"Oxford shirt", "tops"},
		{"Shirt Dress", "dresses"},
		{"Chino Shorts", "bottoms"},
	}
	ids := make([]primitive.ObjectID, 0, len(items))
	for _, item := range items {
		id, err := repo.CreateProduct(context.Background(), &models.Product{
			Name:     item.name,
			Category: item.category,
			Sizes:    []models.SizeStock{{Size: "M", Stock: 5}},
		})
		require.NoError(t, err)
		ids = append(ids, id)
	}
	return ids
}

func names(products []models.Product) []string {
	out := make([]string, len(products))
	for i, p := range products {
		out[i] = p.Name
	}
	return out
}

func TestListProducts_FilterAndCount(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env.repo)

	cases := []struct {
		query string
		want  []string
	}{
		{"", []string{"Chino Shorts", "Shirt Dress", "Oxford shirt", "Denim Jeans", "Linen Shirt"}},
		{"?search=SHIRT", []string{"Shirt Dress", "Oxford shirt", "Linen Shirt"}},
		{"?category=tops", []string{"Oxford shirt", "Linen Shirt"}},
		{"?search=shirt&category=dresses", []string{"Shirt Dress"}},
		{"?search=hat", []string{}},
		{"?search=.*", []string{}},
	}

	for _, tc := range cases {
		t.Run(tc.query, func(t *testing.T) {
			w := env.do(t, http.MethodGet, "/products"+tc.query, nil)
			require.Equal(t, http.StatusOK, w.Code)

			var page productPage
			decode(t, w, &page)
			assert.Equal(t, tc.want, names(page.Products))
			assert.Equal(t, int64(len(tc.want)), page.TotalCount)
			assert.Equal(t, 1, page.CurrentPage)
		})
	}
}

func TestListProducts_Pagination(t *testing.T) {
	env := newTestEnv(t)
	seedCatalog(t, env.repo)

	w := env.do(t, http.MethodGet, "/products?page=2&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page productPage
	decode(t, w, &page)
	assert.Equal(t, []string{"Oxford shirt", "Denim Jeans"}, names(page.Products))
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, 2, page.CurrentPage)
	assert.Equal(t, int64(3), page.TotalPages)

	w = env.do(t, http.MethodGet, "/products?page=9&limit=2", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"products":[]`)

	page = productPage{}
	decode(t, w, &page)
	assert.Empty(t, page.Products)
	assert.Equal(t, int64(5), page.TotalCount)
	assert.Equal(t, int64(3), page.TotalPages)
}

func TestListProducts_InvalidPaging(t *testing.T) {
	env := newTestEnv(t)

	for _, q := range []string{"page=abc", "page=0", "limit=-1", "limit=ten", "page=922337203685477582&limit=10"} {
		w := env.do(t, http.MethodGet, "/products?"+q, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
	}
}

func TestListProducts_UsesCache(t *testing.T) {
	cache := newMemoryCache()
	env := newTestEnv(t, func(_ *config.Config, deps *gateway.Dependencies) {
		deps.Cache = cache
	})
	seedCatalog(t, env.repo)

	first := env.do(t, http.MethodGet, "/products?category=tops", nil)
	require.Equal(t, http.StatusOK, first.Code)
	second := env.do(t, http.MethodGet, "/products?category=tops", nil)
	require.Equal(t, http.StatusOK, second.Code)

	assert.Equal(t, 1, cache.hits)
	assert.JSONEq(t, first.Body.String(), second.Body.String())

	w := env.do(t, http.MethodPost, "/products", map[string]interface{}{"name": "Polo Shirt", "category": "tops"})
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, 1, cache.invalidations)

	w = env.do(t, http.MethodGet, "/products?category=tops", nil)
	var page productPage
	decode(t, w, &page)
	assert.Equal(t, int64(3), page.TotalCount)
}

func TestListProducts_CacheSkipsPageReadBeforeInvalidation(t *testing.T) {
	cache := newMemoryCache()
	env := newTestEnv(t, func(_ *config.Config, deps *gateway.Dependencies) {
		deps.Cache = cache
	})
	ids := seedCatalog(t, env.repo)

	// A product update lands between reading the page and caching it.
	color := "white"
	cache.beforeStore = func() {
		require.NoError(t, env.repo.UpdateProduct(context.Background(), ids[0], &models.ProductPatch{Color: &color}))
		require.NoError(t, cache.InvalidateProducts(context.Background()))
	}

	w := env.do(t, http.MethodGet, "/products?category=tops", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodGet, "/products?category=tops", nil)
	require.Equal(t, http.StatusOK, w.Code)

	var page productPage
	decode(t, w, &page)
	require.Len(t, page.Products, 2)
	assert.Equal(t, "Linen Shirt", page.Products[1].Name)
	assert.Equal(t, "white", page.Products[1].Color)
	assert.Equal(t, 0, cache.hits, "the page read before the update is never served")
}

func TestCreateProduct(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/products", map[string]interface{}{
		"name":     "Wrap Skirt",
		"category": "bottoms",
		"type":     "midi",
		"color":    "green",
		"sizes":    []map[string]interface{}{{"size": "S", "stock": 3}},
		"images":   []string{"/img/skirt.jpg"},
	})
	require.Equal(t, http.StatusCreated, w.Code)

	var body struct {
		ID string `json:"id"`
	}
	decode(t, w, &body)
	id, err := primitive.ObjectIDFromHex(body.ID)
	require.NoError(t, err)

	p, err := env.repo.GetProduct(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Wrap Skirt", p.Name)
	require.NotNil(t, p.Type)
	assert.Equal(t, "midi", *p.Type)
	assert.False(t, p.CreatedAt.IsZero())
	stock, ok := p.StockFor("S")
	assert.True(t, ok)
	assert.Equal(t, 3, stock)
}

func TestCreateProduct_BadBody(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/products", `{"name": `)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestUpdateProduct(t *testing.T) {
	env := newTestEnv(t)
	ids := seedCatalog(t, env.repo)

	w := env.do(t, http.MethodPatch, "/products/"+ids[0].Hex(), map[string]interface{}{"color": "white"})
	require.Equal(t, http.StatusOK, w.Code)

	p, err := env.repo.GetProduct(context.Background(), ids[0])
	require.NoError(t, err)
	assert.Equal(t, "white", p.Color)
	assert.Equal(t, "Linen Shirt", p.Name, "fields not supplied are kept")
}

func TestUpdateProduct_Errors(t *testing.T) {
	env := newTestEnv(t)
	ids := seedCatalog(t, env.repo)

	w := env.do(t, http.MethodPatch, "/products/"+primitive.NewObjectID().Hex(), map[string]interface{}{"color": "white"})
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodPatch, "/products/not-an-id", map[string]interface{}{"color": "white"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = env.do(t, http.MethodPatch, "/products/"+ids[0].Hex(), map[string]interface{}{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDeleteProduct(t *testing.T) {
	env := newTestEnv(t)
	ids := seedCatalog(t, env.repo)

	w := env.do(t, http.MethodDelete, "/products/"+ids[1].Hex(), nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"deletedCount":1}`, w.Body.String())

	n, err := env.repo.CountProducts(context.Background(), filter.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)

	w = env.do(t, http.MethodDelete, "/products/"+ids[1].Hex(), nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = env.do(t, http.MethodDelete, "/products/xyz", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	n, err = env.repo.CountProducts(context.Background(), filter.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), n)
}

type brokenProducts struct {
	*repository.MemoryRepository
}

func (brokenProducts) CountProducts(context.Context, filter.ProductFilter) (int64, error) {
	return 0, errors.New("connection() error occurred during connection handshake: auth error: mongodb://admin:hunter2@db")
}

func TestListProducts_StoreErrorIsNotLeaked(t *testing.T) {
	env := newTestEnv(t, func(_ *config.Config, deps *gateway.Dependencies) {
		deps.Products = brokenProducts{repository.NewMemoryRepository()}
	})

	w := env.do(t, http.MethodGet, "/products", nil)
	require.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"internal server error"}`, w.Body.String())
	assert.False(t, strings.Contains(w.Body.String(), "hunter2"), fmt.Sprintf("leaked: %s", w.Body.String()))
}
