package gateway

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"

	"github.com/example/storefront/pkg/repository"
)

func (g *Gateway) badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg})
}

func (g *Gateway) notFound(c *gin.Context, entity string) {
	c.JSON(http.StatusNotFound, gin.H{"error": entity + " not found"})
}

// storeError answers a failed store call. Store details stay in the log.
func (g *Gateway) storeError(c *gin.Context, entity string, err error) {
	if errors.Is(err, repository.ErrNotFound) {
		g.notFound(c, entity)
		return
	}

	g.logger.Error("Store operation failed",
		zap.String("request_id", c.GetString(requestIDKey)),
		zap.String("method", c.Request.Method),
		zap.String("path", c.FullPath()),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// objectIDParam parses the named path parameter, answering 400 when it is not
// a well-formed ObjectID.
func (g *Gateway) objectIDParam(c *gin.Context, name, entity string) (primitive.ObjectID, bool) {
	id, err := primitive.ObjectIDFromHex(c.Param(name))
	if err != nil {
		g.badRequest(c, "invalid "+entity+" id")
		return primitive.NilObjectID, false
	}
	return id, true
}
