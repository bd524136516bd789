package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// StatusReturn is the only order status with an inventory side effect.
const StatusReturn = "return"

type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"_id"`
	Name      string             `bson:"name" json:"name"`
	Phone     string             `bson:"phone" json:"phone"`
	OrderDate time.Time          `bson:"orderDate" json:"orderDate"`
	Status    string             `bson:"status" json:"status"`
	Cart      []CartItem         `bson:"cart" json:"cart"`
}

type CartItem struct {
	ProductID    primitive.ObjectID `bson:"productId" json:"productId"`
	SelectedSize string             `bson:"selectedSize" json:"selectedSize"`
	Quantity     int                `bson:"quantity" json:"quantity"`
}

// OrderUpdate carries the fields of an order update. Nil fields are left
// untouched.
type OrderUpdate struct {
	Name      *string     `json:"name"`
	Phone     *string     `json:"phone"`
	OrderDate *time.Time  `json:"orderDate"`
	Status    *string     `json:"status"`
	Cart      *[]CartItem `json:"cart"`
}

func (u *OrderUpdate) Empty() bool {
	return u.Name == nil && u.Phone == nil && u.OrderDate == nil &&
		u.Status == nil && u.Cart == nil
}

func (u *OrderUpdate) Fields() map[string]interface{} {
	fields := make(map[string]interface{})
	if u.Name != nil {
		fields["name"] = *u.Name
	}
	if u.Phone != nil {
		fields["phone"] = *u.Phone
	}
	if u.OrderDate != nil {
		fields["orderDate"] = *u.OrderDate
	}
	if u.Status != nil {
		fields["status"] = *u.Status
	}
	if u.Cart != nil {
		fields["cart"] = *u.Cart
	}
	return fields
}

func (u *OrderUpdate) Apply(order *Order) {
	if u.Name != nil {
		order.Name = *u.Name
	}
	if u.Phone != nil {
		order.Phone = *u.Phone
	}
	if u.OrderDate != nil {
		order.OrderDate = *u.OrderDate
	}
	if u.Status != nil {
		order.Status = *u.Status
	}
	if u.Cart != nil {
		order.Cart = append([]CartItem(nil), (*u.Cart)...)
	}
}
