package gateway

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/example/storefront/pkg/filter"
	"github.com/example/storefront/pkg/inventory"
	"github.com/example/storefront/pkg/models"
)

type orderPage struct {
	Orders      []models.Order `json:"orders"`
	TotalOrders int64          `json:"totalOrders"`
}

type statusRequest struct {
	Status string `json:"status" binding:"required"`
}

func (g *Gateway) listOrders(c *gin.Context) {
	f, err := filter.ParseOrderQuery(c.Request.URL.Query(), g.location)
	if err != nil {
		g.badRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()

	orders, err := g.orders.ListOrders(ctx, f, int64(g.config.Orders.PageSize))
	if err != nil {
		g.storeError(c, "order", err)
		return
	}
	total, err := g.orders.CountOrders(ctx, f.WithoutCursor())
	if err != nil {
		g.storeError(c, "order", err)
		return
	}
	if orders == nil {
		orders = []models.Order{}
	}

	c.JSON(http.StatusOK, orderPage{Orders: orders, TotalOrders: total})
}

// updateOrderStatus answers with the updated order before any stock moves.
// Moving an order into "return" from any other status restocks its cart in
// the background. Setting "return" on an order that is already in "return"
// does not restock again, so the trigger is the transition, not the value.
func (g *Gateway) updateOrderStatus(c *gin.Context) {
	id, ok := g.objectIDParam(c, "orderId", "order")
	if !ok {
		return
	}

	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		g.badRequest(c, "status is required")
		return
	}

	order, previous, err := g.orders.SetOrderStatus(c.Request.Context(), id, req.Status)
	if err != nil {
		g.storeError(c, "order", err)
		return
	}

	c.JSON(http.StatusOK, order)

	if req.Status == models.StatusReturn && previous != models.StatusReturn {
		g.restocker.Restock(inventory.Job{
			OrderID: order.ID,
			Reason:  inventory.ReasonReturn,
			Items:   order.Cart,
		})
	}
}

func (g *Gateway) updateOrder(c *gin.Context) {
	id, ok := g.objectIDParam(c, "orderId", "order")
	if !ok {
		return
	}

	var update models.OrderUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		g.badRequest(c, "invalid request body: "+err.Error())
		return
	}

	order, err := g.orders.UpdateOrder(c.Request.Context(), id, &update)
	if err != nil {
		g.storeError(c, "order", err)
		return
	}

	c.JSON(http.StatusOK, order)
}

// deleteOrder removes the order and restocks every cart line in the
// background.
func (g *Gateway) deleteOrder(c *gin.Context) {
	id, ok := g.objectIDParam(c, "orderId", "order")
	if !ok {
		return
	}

	order, err := g.orders.DeleteOrder(c.Request.Context(), id)
	if err != nil {
		g.storeError(c, "order", err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Order deleted successfully"})

	g.restocker.Restock(inventory.Job{
		OrderID: order.ID,
		Reason:  inventory.ReasonDelete,
		Items:   order.Cart,
	})
}
