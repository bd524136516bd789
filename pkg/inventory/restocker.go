// Package inventory returns stock to products when orders are returned or
// deleted.
//
// Restocking is best effort and happens in the background: callers hand a Job
// to the Restocker and never observe its outcome. Every cart line is applied
// independently. Lines whose product or size no longer exists are skipped.
// Lines that fail are logged, counted and written to the audit log so they
// can be reconciled later.
package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/asynkron/protoactor-go/actor"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/metrics"
	"github.com/example/storefront/pkg/models"
	"github.com/example/storefront/pkg/repository"
)

// Reasons a restock job is raised for.
const (
	ReasonReturn = "return"
	ReasonDelete = "delete"
)

const (
	auditService = "storefront"
	actorName    = "restocker"
)

type StockStore interface {
	IncrementStock(ctx context.Context, productID primitive.ObjectID, size string, qty int) (bool, error)
}

type AuditLogger interface {
	CreateAuditLog(ctx context.Context, log *repository.AuditLog) error
}

// CacheInvalidator drops cached product listings after stock changes.
type CacheInvalidator interface {
	InvalidateProducts(ctx context.Context) error
}

// Job asks for every cart line of an order to be put back in stock.
type Job struct {
	OrderID primitive.ObjectID
	Reason  string
	Items   []models.CartItem
}

type Option func(*restockActor)

func WithLogger(logger *zap.Logger) Option {
	return func(a *restockActor) { a.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(a *restockActor) { a.metrics = m }
}

func WithCache(cache CacheInvalidator) Option {
	return func(a *restockActor) { a.cache = cache }
}

// WithTimeout bounds every store call made for a single cart line.
func WithTimeout(d time.Duration) Option {
	return func(a *restockActor) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// Restocker delivers jobs to a single actor that applies them in the
// background.
type Restocker struct {
	system *actor.ActorSystem
	pid    *actor.PID
}

func NewRestocker(store StockStore, audit AuditLogger, opts ...Option) (*Restocker, error) {
	a := &restockActor{
		store:   store,
		audit:   audit,
		logger:  zap.NewNop(),
		timeout: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(a)
	}

	system := actor.NewActorSystem()
	props := actor.PropsFromProducer(func() actor.Actor { return a })
	pid, err := system.Root.SpawnNamed(props, actorName)
	if err != nil {
		return nil, fmt.Errorf("failed to spawn restock actor: %w", err)
	}

	return &Restocker{
		system: system,
		pid:    pid,
	}, nil
}

// Restock enqueues job and returns immediately. Jobs without items are
// dropped.
func (r *Restocker) Restock(job Job) {
	if len(job.Items) == 0 {
		return
	}
	r.system.Root.Send(r.pid, &job)
}

// Stop waits for every job queued so far to be applied, then stops the actor.
func (r *Restocker) Stop() error {
	if err := r.system.Root.PoisonFuture(r.pid).Wait(); err != nil {
		return fmt.Errorf("failed to stop restock actor: %w", err)
	}
	return nil
}

type restockActor struct {
	store   StockStore
	audit   AuditLogger
	cache   CacheInvalidator
	metrics *metrics.Metrics
	logger  *zap.Logger
	timeout time.Duration
}

func (a *restockActor) Receive(ctx actor.Context) {
	switch msg := ctx.Message().(type) {
	case *Job:
		a.apply(msg)

	case *actor.Started:
		a.logger.Info("Restock actor started")

	case *actor.Stopped:
		a.logger.Info("Restock actor stopped")
	}
}

func (a *restockActor) apply(job *Job) {
	logger := a.logger.With(
		zap.String("order_id", job.OrderID.Hex()),
		zap.String("reason", job.Reason),
	)

	changed := false
	for _, item := range job.Items {
		result := a.applyItem(logger, job, item)
		a.metrics.RestockItem(job.Reason, result)
		if result == metrics.RestockApplied {
			changed = true
		}
	}

	if changed && a.cache != nil {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()
		if err := a.cache.InvalidateProducts(ctx); err != nil {
			logger.Warn("Failed to invalidate product cache", zap.Error(err))
		}
	}
}

func (a *restockActor) applyItem(logger *zap.Logger, job *Job, item models.CartItem) string {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	itemLogger := logger.With(
		zap.String("product_id", item.ProductID.Hex()),
		zap.String("size", item.SelectedSize),
		zap.Int("quantity", item.Quantity),
	)

	matched, err := a.store.IncrementStock(ctx, item.ProductID, item.SelectedSize, item.Quantity)
	if err != nil {
		itemLogger.Error("Failed to restock cart item", zap.Error(err))
		a.reconcile(job, item, err)
		return metrics.RestockFailed
	}
	if !matched {
		itemLogger.Debug("Skipped restock, product or size no longer exists")
		return metrics.RestockSkipped
	}
	return metrics.RestockApplied
}

// reconcile records a failed cart line in the audit log.
func (a *restockActor) reconcile(job *Job, item models.CartItem, cause error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	err := a.audit.CreateAuditLog(ctx, &repository.AuditLog{
		Service:  auditService,
		Action:   "restock_failed",
		EntityID: job.OrderID.Hex(),
		Data: bson.M{
			"reason":       job.Reason,
			"productId":    item.ProductID.Hex(),
			"selectedSize": item.SelectedSize,
			"quantity":     item.Quantity,
			"error":        cause.Error(),
		},
	})
	if err != nil {
		a.logger.Error("Failed to write restock reconciliation entry",
			zap.String("order_id", job.OrderID.Hex()),
			zap.Error(err))
	}
}
