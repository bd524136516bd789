package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/filter"
	"github.com/example/storefront/pkg/models"
)

type productPage struct {
	Products    []models.Product `json:"products"`
	TotalCount  int64            `json:"totalCount"`
	CurrentPage int              `json:"currentPage"`
	TotalPages  int64            `json:"totalPages"`
}

type createProductRequest struct {
	Name     string             `json:"name"`
	Category string             `json:"category"`
	Type     *string            `json:"type"`
	Color    string             `json:"color"`
	Sizes    []models.SizeStock `json:"sizes"`
	Images   []string           `json:"images"`
}

func (g *Gateway) listProducts(c *gin.Context) {
	q, err := filter.ParseProductQuery(c.Request.URL.Query())
	if err != nil {
		g.badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	// The page is stored under the key resolved here, never a newer one.
	var pageKey string
	if g.cache != nil {
		var cached productPage
		key, err := g.cache.ProductPageKey(ctx, q.CacheKey())
		if err == nil {
			pageKey = key
			var hit bool
			hit, err = g.cache.ProductPage(ctx, pageKey, &cached)
			if err == nil && hit {
				c.JSON(http.StatusOK, cached)
				return
			}
		}
		if err != nil {
			g.logger.Warn("Failed to read product cache", zap.Error(err))
		}
	}

	products, err := g.products.ListProducts(ctx, q)
	if err != nil {
		g.storeError(c, "product", err)
		return
	}
	total, err := g.products.CountProducts(ctx, q.Filter)
	if err != nil {
		g.storeError(c, "product", err)
		return
	}
	if products == nil {
		products = []models.Product{}
	}

	page := productPage{
		Products:    products,
		TotalCount:  total,
		CurrentPage: q.Page,
		TotalPages:  q.TotalPages(total),
	}

	if pageKey != "" {
		if err := g.cache.StoreProductPage(ctx, pageKey, page); err != nil {
			g.logger.Warn("Failed to store product cache", zap.Error(err))
		}
	}

	c.JSON(http.StatusOK, page)
}

func (g *Gateway) createProduct(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	product := &models.Product{
		Name:      req.Name,
		Category:  req.Category,
		Type:      req.Type,
		Color:     req.Color,
		Sizes:     req.Sizes,
		Images:    req.Images,
		CreatedAt: time.Now().UTC(),
	}
	if product.Sizes == nil {
		product.Sizes = []models.SizeStock{}
	}
	if product.Images == nil {
		product.Images = []string{}
	}

	id, err := g.products.CreateProduct(c.Request.Context(), product)
	if err != nil {
		g.storeError(c, "product", err)
		return
	}
	g.invalidateProducts(c.Request.Context())

	c.JSON(http.StatusCreated, gin.H{
		"id":      id.Hex(),
		"message": "Product created successfully",
	})
}

func (g *Gateway) updateProduct(c *gin.Context) {
	id, ok := g.objectIDParam(c, "id", "product")
	if !ok {
		return
	}

	var patch models.ProductPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		g.badRequest(c, "invalid request body: "+err.Error())
		return
	}
	if patch.Empty() {
		g.badRequest(c, "no fields to update")
		return
	}

	if err := g.products.UpdateProduct(c.Request.Context(), id, &patch); err != nil {
		g.storeError(c, "product", err)
		return
	}
	g.invalidateProducts(c.Request.Context())

	c.JSON(http.StatusOK, gin.H{
		"id":      id.Hex(),
		"message": "Product updated successfully",
	})
}

func (g *Gateway) deleteProduct(c *gin.Context) {
	id, ok := g.objectIDParam(c, "id", "product")
	if !ok {
		return
	}

	res, err := g.products.DeleteProduct(c.Request.Context(), id)
	if err != nil {
		g.storeError(c, "product", err)
		return
	}
	if res.DeletedCount == 0 {
		g.notFound(c, "product")
		return
	}
	g.invalidateProducts(c.Request.Context())

	c.JSON(http.StatusOK, res)
}

func (g *Gateway) invalidateProducts(ctx context.Context) {
	if g.cache == nil {
		return
	}
	if err := g.cache.InvalidateProducts(ctx); err != nil {
		g.logger.Warn("Failed to invalidate product cache", zap.Error(err))
	}
}
