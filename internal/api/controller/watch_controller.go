package controller

import (
	"net/http"
	"strings"

	"github.com/bassista/posdit/internal/domain"
	"github.com/bassista/posdit/internal/logger"
	"github.com/bassista/posdit/internal/registry"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// WatchList is the wire form of the whole watch list.
type WatchList struct {
	Destination string             `json:"destination" binding:"omitempty,email"`
	Specs       []domain.WatchSpec `json:"specs"`
}

type destinationRequest struct {
	Destination string `json:"destination" binding:"required,email"`
}

// WatchController handles the watch list endpoints.
type WatchController struct {
	crud  *CrudController[domain.WatchSpec]
	store WatchStore
}

// NewWatchController creates a WatchController backed by the given store.
func NewWatchController(store WatchStore) *WatchController {
	return &WatchController{
		crud: &CrudController[domain.WatchSpec]{
			Service:   &WatchCrudService{Store: store},
			Validator: &WatchCrudValidator{Store: store},
		},
		store: store,
	}
}

// RegisterSpecRoutes mounts the single-spec CRUD endpoints (specs, spec, spec/:key).
func (wc *WatchController) RegisterSpecRoutes(rg *gin.RouterGroup, handlers ...gin.HandlerFunc) {
	wc.crud.RegisterCrudRoutes(rg, "spec", handlers...)
}

// GetWatches handles GET /watches - returns destination and specs.
func (wc *WatchController) GetWatches(c *gin.Context) {
	logger.WithComponent("watch-controller").Debugf("GET /watches handler called")
	destination, specs := wc.store.Snapshot()
	c.JSON(http.StatusOK, WatchList{Destination: destination, Specs: specs})
}

// ReplaceWatches handles PUT /watches - swaps the whole list atomically and
// returns which specs were inserted and removed.
func (wc *WatchController) ReplaceWatches(c *gin.Context) {
	log := logger.WithComponent("watch-controller")
	log.Debugf("PUT /watches handler called")

	var req WatchList
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Debugf("replace watches: invalid payload: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": payloadError(err)})
		return
	}
	if req.Specs == nil {
		req.Specs = []domain.WatchSpec{}
	}

	diff, err := wc.store.Replace(req.Destination, req.Specs)
	if err != nil {
		log.Debugf("replace watches: rejected: %v", err)
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	logDiff(diff)
	c.JSON(http.StatusOK, diff)
}

// SetDestination handles PUT /destination - changes only the mail address.
func (wc *WatchController) SetDestination(c *gin.Context) {
	logger.WithComponent("watch-controller").Debugf("PUT /destination handler called")

	var req destinationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": payloadError(err)})
		return
	}

	wc.store.SetDestination(req.Destination)
	logger.WithComponent("watch-controller").Infof("destination set to %s", req.Destination)
	c.JSON(http.StatusOK, gin.H{"destination": strings.TrimSpace(req.Destination)})
}

func logDiff(diff registry.Diff) {
	log := logger.WithComponent("watch-controller")
	for _, s := range diff.Inserted {
		log.Infof("Inserted %s", s)
	}
	for _, s := range diff.Removed {
		log.Infof("Removed %s", s)
	}
	log.Infof("watch list updated: %d inserted, %d removed", len(diff.Inserted), len(diff.Removed))
}

func payloadError(err error) string {
	if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
		return "invalid " + strings.ToLower(verrs[0].Field())
	}
	return "invalid payload"
}
