// internal/api/v2/items.go
package api

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/itemstore/internal/api/auth"
	"github.com/tphakala/itemstore/internal/datastore"
	"github.com/tphakala/itemstore/internal/errors"
	"github.com/tphakala/itemstore/internal/logger"
)

// Fixed client-facing messages.
const (
	msgNameRequired   = "Name is required"
	msgItemNotFound   = "Item not found"
	msgInvalidBody    = "Invalid request body"
	msgUnauthorized   = "Authentication required"
	msgDatabaseFailed = "Database operation failed"
)

// ItemResponse is the JSON form of a table-backed item.
type ItemResponse struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Owner       uint   `json:"owner"` // user id
}

// ItemRequest is the body of create and update calls. Any owner field a
// client sends is ignored.
type ItemRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

func newItemResponse(item *datastore.Item) ItemResponse {
	return ItemResponse{
		ID:          item.ID,
		Name:        item.Name,
		Description: item.Description,
		Owner:       item.UserID,
	}
}

// initItemRoutes registers the table-backed item endpoints.
func (c *Controller) initItemRoutes() {
	items := c.Group.Group("/items", c.protected())
	if c.DS == nil {
		items.Use(c.unavailable("Database is not configured"))
	}

	items.GET("", c.ListItems)
	items.POST("", c.CreateItem)
	items.GET("/:id", c.GetItem)
	items.PUT("/:id", c.ReplaceItem)
	items.PATCH("/:id", c.PatchItem)
	items.DELETE("/:id", c.DeleteItem)
}

// parseItemID parses the :id path parameter. Anything but a positive integer
// cannot name an item.
func parseItemID(ctx echo.Context) (uint, bool) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// ListItems handles GET /api/v2/items
func (c *Controller) ListItems(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}

	items, err := c.DS.ListItems(ctx.Request().Context(), caller.Scope())
	if err != nil {
		return c.handleItemError(ctx, err)
	}

	response := make([]ItemResponse, 0, len(items))
	for i := range items {
		response = append(response, newItemResponse(&items[i]))
	}
	return ctx.JSON(http.StatusOK, response)
}

// GetItem handles GET /api/v2/items/:id
func (c *Controller) GetItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}
	id, found := parseItemID(ctx)
	if !found {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	item, err := c.DS.GetItem(ctx.Request().Context(), caller.Scope(), id)
	if err != nil {
		return c.handleItemError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, newItemResponse(item))
}

// CreateItem handles POST /api/v2/items. The owner is always the caller.
func (c *Controller) CreateItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}

	var req ItemRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, msgInvalidBody, http.StatusBadRequest)
	}
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return c.HandleError(ctx, nil, msgNameRequired, http.StatusBadRequest)
	}

	item := &datastore.Item{Name: *req.Name}
	if req.Description != nil {
		item.Description = *req.Description
	}
	if err := c.DS.CreateItem(ctx.Request().Context(), caller.Scope(), item); err != nil {
		return c.handleItemError(ctx, err)
	}

	c.apiLogger.Info("item created",
		logger.Uint("item_id", item.ID),
		logger.Uint("user_id", caller.UserID))
	return ctx.JSON(http.StatusCreated, newItemResponse(item))
}

// ReplaceItem handles PUT /api/v2/items/:id. Name is required; a missing
// description is stored as empty.
func (c *Controller) ReplaceItem(ctx echo.Context) error {
	return c.updateItem(ctx, false)
}

// PatchItem handles PATCH /api/v2/items/:id. Absent fields keep their value.
func (c *Controller) PatchItem(ctx echo.Context) error {
	return c.updateItem(ctx, true)
}

func (c *Controller) updateItem(ctx echo.Context, partial bool) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}
	id, found := parseItemID(ctx)
	if !found {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	var req ItemRequest
	if err := ctx.Bind(&req); err != nil {
		return c.HandleError(ctx, err, msgInvalidBody, http.StatusBadRequest)
	}

	update := datastore.ItemUpdate{Name: req.Name, Description: req.Description}
	if !partial {
		if req.Name == nil {
			return c.HandleError(ctx, nil, msgNameRequired, http.StatusBadRequest)
		}
		if update.Description == nil {
			empty := ""
			update.Description = &empty
		}
	}
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return c.HandleError(ctx, nil, msgNameRequired, http.StatusBadRequest)
	}

	item, err := c.DS.UpdateItem(ctx.Request().Context(), caller.Scope(), id, update)
	if err != nil {
		return c.handleItemError(ctx, err)
	}
	return ctx.JSON(http.StatusOK, newItemResponse(item))
}

// DeleteItem handles DELETE /api/v2/items/:id
func (c *Controller) DeleteItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}
	id, found := parseItemID(ctx)
	if !found {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	if err := c.DS.DeleteItem(ctx.Request().Context(), caller.Scope(), id); err != nil {
		return c.handleItemError(ctx, err)
	}

	c.apiLogger.Info("item deleted",
		logger.Uint("item_id", id),
		logger.Uint("user_id", caller.UserID))
	return ctx.NoContent(http.StatusNoContent)
}

// handleItemError maps datastore error categories to status codes.
func (c *Controller) handleItemError(ctx echo.Context, err error) error {
	switch {
	case errors.IsNotFound(err):
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	case errors.IsValidation(err):
		return c.HandleError(ctx, err, err.Error(), http.StatusBadRequest)
	default:
		return c.HandleError(ctx, err, msgDatabaseFailed, http.StatusInternalServerError)
	}
}
