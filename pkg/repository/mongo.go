package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/example/storefront/pkg/config"
	"github.com/example/storefront/pkg/filter"
	"github.com/example/storefront/pkg/models"
)

type MongoRepository struct {
	client   *mongo.Client
	database *mongo.Database
	products *mongo.Collection
	orders   *mongo.Collection
	audit    *mongo.Collection
	config   *config.MongoDBConfig
}

func NewMongoRepository(cfg *config.MongoDBConfig) (*MongoRepository, error) {
	ctx, cancel := context.WithTimeout(context.Background(), cfg.ConnectTimeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.URI))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to MongoDB: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	database := client.Database(cfg.Database)
	return &MongoRepository{
		client:   client,
		database: database,
		products: database.Collection(cfg.ProductsCollection),
		orders:   database.Collection(cfg.OrdersCollection),
		audit:    database.Collection(cfg.AuditCollection),
		config:   cfg,
	}, nil
}

func (m *MongoRepository) Ping(ctx context.Context) error {
	return m.client.Ping(ctx, nil)
}

func (m *MongoRepository) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}

func (m *MongoRepository) ListProducts(ctx context.Context, q filter.ProductQuery) ([]models.Product, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "_id", Value: -1}}).
		SetSkip(q.Skip()).
		SetLimit(int64(q.Limit))

	cursor, err := m.products.Find(ctx, q.Filter.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}
	defer cursor.Close(ctx)

	products := make([]models.Product, 0, q.Limit)
	if err := cursor.All(ctx, &products); err != nil {
		return nil, fmt.Errorf("failed to decode products: %w", err)
	}
	return products, nil
}

func (m *MongoRepository) CountProducts(ctx context.Context, f filter.ProductFilter) (int64, error) {
	n, err := m.products.CountDocuments(ctx, f.BSON())
	if err != nil {
		return 0, fmt.Errorf("failed to count products: %w", err)
	}
	return n, nil
}

func (m *MongoRepository) CreateProduct(ctx context.Context, product *models.Product) (primitive.ObjectID, error) {
	product.ID = primitive.NewObjectID()
	if _, err := m.products.InsertOne(ctx, product); err != nil {
		return primitive.NilObjectID, fmt.Errorf("failed to insert product: %w", err)
	}
	return product.ID, nil
}

func (m *MongoRepository) UpdateProduct(ctx context.Context, id primitive.ObjectID, patch *models.ProductPatch) error {
	res, err := m.products.UpdateByID(ctx, id, bson.M{"$set": patch.Fields()})
	if err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepository) DeleteProduct(ctx context.Context, id primitive.ObjectID) (*DeleteResult, error) {
	res, err := m.products.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return &DeleteResult{DeletedCount: res.DeletedCount}, nil
}

// IncrementStock adds qty to the stock of size on the product. It reports
// false when the product or the size does not exist.
func (m *MongoRepository) IncrementStock(ctx context.Context, productID primitive.ObjectID, size string, qty int) (bool, error) {
	res, err := m.products.UpdateOne(ctx,
		bson.M{"_id": productID, "sizes.size": size},
		bson.M{"$inc": bson.M{"sizes.$.stock": qty}},
	)
	if err != nil {
		return false, fmt.Errorf("failed to increment stock: %w", err)
	}
	return res.MatchedCount > 0, nil
}

func (m *MongoRepository) ListOrders(ctx context.Context, f filter.OrderFilter, limit int64) ([]models.Order, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "orderDate", Value: -1}, {Key: "_id", Value: -1}}).
		SetLimit(limit)

	cursor, err := m.orders.Find(ctx, f.BSON(), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}
	defer cursor.Close(ctx)

	orders := make([]models.Order, 0, limit)
	if err := cursor.All(ctx, &orders); err != nil {
		return nil, fmt.Errorf("failed to decode orders: %w", err)
	}
	return orders, nil
}

func (m *MongoRepository) CountOrders(ctx context.Context, f filter.OrderFilter) (int64, error) {
	n, err := m.orders.CountDocuments(ctx, f.BSON())
	if err != nil {
		return 0, fmt.Errorf("failed to count orders: %w", err)
	}
	return n, nil
}

// SetOrderStatus atomically replaces the status and returns the updated order
// together with the status it had before.
func (m *MongoRepository) SetOrderStatus(ctx context.Context, id primitive.ObjectID, status string) (*models.Order, string, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.Before)

	var order models.Order
	err := m.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"status": status}}, opts).Decode(&order)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, "", ErrNotFound
		}
		return nil, "", fmt.Errorf("failed to update order status: %w", err)
	}

	previous := order.Status
	order.Status = status
	return &order, previous, nil
}

func (m *MongoRepository) UpdateOrder(ctx context.Context, id primitive.ObjectID, update *models.OrderUpdate) (*models.Order, error) {
	var (
		order models.Order
		res   *mongo.SingleResult
	)
	if update.Empty() {
		res = m.orders.FindOne(ctx, bson.M{"_id": id})
	} else {
		opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
		res = m.orders.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": update.Fields()}, opts)
	}

	if err := res.Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return &order, nil
}

// DeleteOrder removes the order and returns the document as it was.
func (m *MongoRepository) DeleteOrder(ctx context.Context, id primitive.ObjectID) (*models.Order, error) {
	var order models.Order
	if err := m.orders.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&order); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to delete order: %w", err)
	}
	return &order, nil
}

func (m *MongoRepository) CreateAuditLog(ctx context.Context, log *AuditLog) error {
	log.CreatedAt = time.Now()
	_, err := m.audit.InsertOne(ctx, log)
	return err
}
