package controller

import (
	"errors"
	"net/http"

	"github.com/bassista/posdit/internal/registry"
	"github.com/gin-gonic/gin"
)

// CrudService defines the minimal interface required for CRUD operations.
type CrudService[T any] interface {
	All() ([]T, error)
	Add(item T) ([]T, error)
	Remove(key string) ([]T, error)
}

// CrudValidator defines the interface for validating a resource.
type CrudValidator[T any] interface {
	Validate(item T) error
}

// CrudController provides generic CRUD handlers for resources.
type CrudController[T any] struct {
	Service   CrudService[T]
	Validator CrudValidator[T]
}

// RegisterCrudRoutes registers CRUD endpoints for a resource on the given router group.
func (cc *CrudController[T]) RegisterCrudRoutes(rg *gin.RouterGroup, resource string, handlers ...gin.HandlerFunc) {
	rg.GET("/"+resource+"s", append(handlers, cc.GetAll)...)
	rg.POST("/"+resource, append(handlers, cc.Create)...)
	rg.DELETE("/"+resource+"/:key", append(handlers, cc.Delete)...)
}

// GetAll handles GET requests to list all resources.
func (cc *CrudController[T]) GetAll(c *gin.Context) {
	items, err := cc.Service.All()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to read resource list"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Create handles POST requests to add a resource.
func (cc *CrudController[T]) Create(c *gin.Context) {
	var item T
	if err := c.ShouldBindJSON(&item); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		return
	}
	if cc.Validator != nil {
		if err := cc.Validator.Validate(item); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	items, err := cc.Service.Add(item)
	if err != nil {
		if isValidationError(err) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to update resource"})
		return
	}
	c.JSON(http.StatusOK, items)
}

// Delete handles DELETE requests to remove a resource by key.
func (cc *CrudController[T]) Delete(c *gin.Context) {
	key := c.Param("key")
	if key == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing resource key"})
		return
	}
	items, err := cc.Service.Remove(key)
	if err != nil {
		if errors.Is(err, registry.ErrSpecNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "resource not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to delete resource"})
		return
	}
	c.JSON(http.StatusOK, items)
}

func isValidationError(err error) bool {
	return errors.Is(err, registry.ErrEmptyKeyword) ||
		errors.Is(err, registry.ErrEmptySubreddit) ||
		errors.Is(err, registry.ErrBadSubreddit) ||
		errors.Is(err, registry.ErrInvalidListing)
}
