package filter

import (
	"math"
	"net/url"
	"strconv"
	"strings"

	"go.mongodb.org/mongo-driver/bson"

	"github.com/example/storefront/pkg/models"
)

const (
	DefaultPage  = 1
	DefaultLimit = 10
	MaxLimit     = 100
)

// ProductFilter selects products by name substring and exact category. Empty
// fields do not constrain the result.
type ProductFilter struct {
	Search   string
	Category string
}

func (f ProductFilter) BSON() bson.D {
	filter := bson.D{}
	if f.Search != "" {
		filter = append(filter, bson.E{Key: "name", Value: substring(f.Search)})
	}
	if f.Category != "" {
		filter = append(filter, bson.E{Key: "category", Value: f.Category})
	}
	return filter
}

func (f ProductFilter) Match(p *models.Product) bool {
	if f.Search != "" && !containsFold(p.Name, f.Search) {
		return false
	}
	if f.Category != "" && p.Category != f.Category {
		return false
	}
	return true
}

// ProductQuery is a parsed product listing request.
type ProductQuery struct {
	Filter ProductFilter
	Page   int
	Limit  int
}

func (q ProductQuery) Skip() int64 {
	return int64(q.Page-1) * int64(q.Limit)
}

// TotalPages returns ceil(total/limit).
func (q ProductQuery) TotalPages(total int64) int64 {
	limit := int64(q.Limit)
	return (total + limit - 1) / limit
}

// ParseProductQuery reads search, category, page and limit. A limit above
// MaxLimit is clamped. A page whose offset does not fit in an int64 is
// rejected.
func ParseProductQuery(values url.Values) (ProductQuery, error) {
	page, err := positiveInt("page", values.Get("page"), DefaultPage)
	if err != nil {
		return ProductQuery{}, err
	}
	limit, err := positiveInt("limit", values.Get("limit"), DefaultLimit)
	if err != nil {
		return ProductQuery{}, err
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}
	if int64(page-1) > math.MaxInt64/int64(limit) {
		return ProductQuery{}, invalid("page %d is out of range", page)
	}

	return ProductQuery{
		Filter: ProductFilter{
			Search:   strings.TrimSpace(values.Get("search")),
			Category: values.Get("category"),
		},
		Page:  page,
		Limit: limit,
	}, nil
}

// CacheKey identifies the page this query selects.
func (q ProductQuery) CacheKey() string {
	values := url.Values{}
	values.Set("search", q.Filter.Search)
	values.Set("category", q.Filter.Category)
	values.Set("page", strconv.Itoa(q.Page))
	values.Set("limit", strconv.Itoa(q.Limit))
	return values.Encode()
}
