package repository

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/example/storefront/pkg/filter"
	"github.com/example/storefront/pkg/models"
)

// MemoryRepository keeps products, orders and audit logs in process. It
// mirrors MongoRepository and is used for local runs and tests.
type MemoryRepository struct {
	mu       sync.RWMutex
	products map[primitive.ObjectID]models.Product
	orders   map[primitive.ObjectID]models.Order
	audit    []AuditLog
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		products: make(map[primitive.ObjectID]models.Product),
		orders:   make(map[primitive.ObjectID]models.Order),
	}
}

func (r *MemoryRepository) Ping(context.Context) error {
	return nil
}

func (r *MemoryRepository) Close(context.Context) error {
	return nil
}

func idDesc(a, b primitive.ObjectID) bool {
	return bytes.Compare(a[:], b[:]) > 0
}

func copyProduct(p models.Product) models.Product {
	p.Sizes = append([]models.SizeStock(nil), p.Sizes...)
	p.Images = append([]string(nil), p.Images...)
	if p.Type != nil {
		t := *p.Type
		p.Type = &t
	}
	return p
}

func copyOrder(o models.Order) models.Order {
	o.Cart = append([]models.CartItem(nil), o.Cart...)
	return o
}

func (r *MemoryRepository) ListProducts(_ context.Context, q filter.ProductQuery) ([]models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Product, 0, len(r.products))
	for _, p := range r.products {
		if q.Filter.Match(&p) {
			matched = append(matched, p)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		return idDesc(matched[i].ID, matched[j].ID)
	})

	skip := q.Skip()
	if skip >= int64(len(matched)) {
		return []models.Product{}, nil
	}
	matched = matched[skip:]
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	result := make([]models.Product, len(matched))
	for i, p := range matched {
		result[i] = copyProduct(p)
	}
	return result, nil
}

func (r *MemoryRepository) CountProducts(_ context.Context, f filter.ProductFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, p := range r.products {
		if f.Match(&p) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) CreateProduct(_ context.Context, product *models.Product) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	product.ID = primitive.NewObjectID()
	r.products[product.ID] = copyProduct(*product)
	return product.ID, nil
}

func (r *MemoryRepository) GetProduct(_ context.Context, id primitive.ObjectID) (*models.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	p = copyProduct(p)
	return &p, nil
}

func (r *MemoryRepository) UpdateProduct(_ context.Context, id primitive.ObjectID, patch *models.ProductPatch) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[id]
	if !ok {
		return ErrNotFound
	}
	patch.Apply(&p)
	r.products[id] = p
	return nil
}

func (r *MemoryRepository) DeleteProduct(_ context.Context, id primitive.ObjectID) (*DeleteResult, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.products[id]; !ok {
		return &DeleteResult{}, nil
	}
	delete(r.products, id)
	return &DeleteResult{DeletedCount: 1}, nil
}

func (r *MemoryRepository) IncrementStock(_ context.Context, productID primitive.ObjectID, size string, qty int) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.products[productID]
	if !ok {
		return false, nil
	}
	// Only the first matching size is updated, like the positional $ operator.
	for i := range p.Sizes {
		if p.Sizes[i].Size == size {
			p.Sizes[i].Stock += qty
			r.products[productID] = p
			return true, nil
		}
	}
	return false, nil
}

// CreateOrder stores a new order. Orders are placed by another service; this
// exists for seeding.
func (r *MemoryRepository) CreateOrder(_ context.Context, order *models.Order) (primitive.ObjectID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if order.ID.IsZero() {
		order.ID = primitive.NewObjectID()
	}
	r.orders[order.ID] = copyOrder(*order)
	return order.ID, nil
}

func (r *MemoryRepository) ListOrders(_ context.Context, f filter.OrderFilter, limit int64) ([]models.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := make([]models.Order, 0, len(r.orders))
	for _, o := range r.orders {
		if f.Match(&o) {
			matched = append(matched, o)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].OrderDate.Equal(matched[j].OrderDate) {
			return matched[i].OrderDate.After(matched[j].OrderDate)
		}
		return idDesc(matched[i].ID, matched[j].ID)
	})
	if limit > 0 && int64(len(matched)) > limit {
		matched = matched[:limit]
	}

	result := make([]models.Order, len(matched))
	for i, o := range matched {
		result[i] = copyOrder(o)
	}
	return result, nil
}

func (r *MemoryRepository) CountOrders(_ context.Context, f filter.OrderFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, o := range r.orders {
		if f.Match(&o) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) SetOrderStatus(_ context.Context, id primitive.ObjectID, status string) (*models.Order, string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, "", ErrNotFound
	}
	previous := o.Status
	o.Status = status
	r.orders[id] = o

	o = copyOrder(o)
	return &o, previous, nil
}

func (r *MemoryRepository) UpdateOrder(_ context.Context, id primitive.ObjectID, update *models.OrderUpdate) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	update.Apply(&o)
	r.orders[id] = o

	o = copyOrder(o)
	return &o, nil
}

func (r *MemoryRepository) DeleteOrder(_ context.Context, id primitive.ObjectID) (*models.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.orders[id]
	if !ok {
		return nil, ErrNotFound
	}
	delete(r.orders, id)
	return &o, nil
}

func (r *MemoryRepository) CreateAuditLog(_ context.Context, log *AuditLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	log.CreatedAt = time.Now()
	r.audit = append(r.audit, *log)
	return nil
}

// AuditLogs returns the audit entries recorded for entityID, newest first.
func (r *MemoryRepository) AuditLogs(entityID string) []AuditLog {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var logs []AuditLog
	for i := len(r.audit) - 1; i >= 0; i-- {
		if r.audit[i].EntityID == entityID {
			logs = append(logs, r.audit[i])
		}
	}
	return logs
}
