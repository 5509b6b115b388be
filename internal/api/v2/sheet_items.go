// internal/api/v2/sheet_items.go
package api

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/tphakala/itemstore/internal/api/auth"
	"github.com/tphakala/itemstore/internal/logger"
	"github.com/tphakala/itemstore/internal/sheets"
)

const msgSheetFailed = "Spreadsheet operation failed"

// initSheetItemRoutes registers the spreadsheet-backed item endpoints.
func (c *Controller) initSheetItemRoutes() {
	group := c.Group.Group("/sheet-items", c.protected())
	if c.Sheets == nil {
		group.Use(c.unavailable("Spreadsheet backend is not configured"))
	}

	group.GET("", c.ListSheetItems)
	group.POST("", c.CreateSheetItem)
	group.GET("/:id", c.GetSheetItem)
	group.PUT("/:id", c.UpdateSheetItem)
	group.DELETE("/:id", c.DeleteSheetItem)
}

// sheetContext bounds one handler's remote calls by the sheets timeout.
func (c *Controller) sheetContext(ctx echo.Context) (context.Context, context.CancelFunc) {
	if timeout := c.Settings.Sheets.Timeout; timeout > 0 {
		return context.WithTimeout(ctx.Request().Context(), timeout)
	}
	return context.WithCancel(ctx.Request().Context())
}

// parseRowID parses the :id path parameter of a sheet route.
func parseRowID(ctx echo.Context) (int, bool) {
	id, err := strconv.Atoi(ctx.Param("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// bindSheetInput reads the body and drops any owner the client sent.
func bindSheetInput(ctx echo.Context) (sheets.Input, error) {
	var in sheets.Input
	if err := ctx.Bind(&in); err != nil {
		return sheets.Input{}, err
	}
	in.Email = nil
	return in, nil
}

// ListSheetItems handles GET /api/v2/sheet-items
func (c *Controller) ListSheetItems(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}

	reqCtx, cancel := c.sheetContext(ctx)
	defer cancel()

	records, err := c.Sheets.List(reqCtx, caller.SheetFilter())
	if err != nil {
		return c.HandleError(ctx, err, msgSheetFailed, http.StatusInternalServerError)
	}
	if records == nil {
		records = []sheets.Record{}
	}
	return ctx.JSON(http.StatusOK, records)
}

// CreateSheetItem handles POST /api/v2/sheet-items. The new row is owned by
// the caller's email.
func (c *Controller) CreateSheetItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}

	in, err := bindSheetInput(ctx)
	if err != nil {
		return c.HandleError(ctx, err, msgInvalidBody, http.StatusBadRequest)
	}
	if in.Name == nil || strings.TrimSpace(*in.Name) == "" {
		return c.HandleError(ctx, nil, msgNameRequired, http.StatusBadRequest)
	}

	reqCtx, cancel := c.sheetContext(ctx)
	defer cancel()

	rec, err := c.Sheets.Create(reqCtx, in, caller.Email)
	if err != nil {
		return c.HandleError(ctx, err, msgSheetFailed, http.StatusInternalServerError)
	}

	c.apiLogger.Info("sheet item created",
		logger.Int("id", rec.ID),
		logger.Uint("user_id", caller.UserID))
	return ctx.JSON(http.StatusCreated, rec)
}

// GetSheetItem handles GET /api/v2/sheet-items/:id
func (c *Controller) GetSheetItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}
	id, valid := parseRowID(ctx)
	if !valid {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	reqCtx, cancel := c.sheetContext(ctx)
	defer cancel()

	rec, found, err := c.Sheets.Get(reqCtx, id, caller.SheetFilter())
	if err != nil {
		return c.HandleError(ctx, err, msgSheetFailed, http.StatusInternalServerError)
	}
	if !found {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, rec)
}

// UpdateSheetItem handles PUT /api/v2/sheet-items/:id. Fields absent from the
// body keep their stored value and the owner never changes.
func (c *Controller) UpdateSheetItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}
	id, valid := parseRowID(ctx)
	if !valid {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	in, err := bindSheetInput(ctx)
	if err != nil {
		return c.HandleError(ctx, err, msgInvalidBody, http.StatusBadRequest)
	}
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return c.HandleError(ctx, nil, msgNameRequired, http.StatusBadRequest)
	}

	reqCtx, cancel := c.sheetContext(ctx)
	defer cancel()

	rec, found, err := c.Sheets.Update(reqCtx, id, in, caller.SheetFilter())
	if err != nil {
		return c.HandleError(ctx, err, msgSheetFailed, http.StatusInternalServerError)
	}
	if !found {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}
	return ctx.JSON(http.StatusOK, rec)
}

// DeleteSheetItem handles DELETE /api/v2/sheet-items/:id
func (c *Controller) DeleteSheetItem(ctx echo.Context) error {
	caller, ok := auth.CallerFrom(ctx)
	if !ok {
		return c.HandleError(ctx, nil, msgUnauthorized, http.StatusUnauthorized)
	}
	id, valid := parseRowID(ctx)
	if !valid {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	reqCtx, cancel := c.sheetContext(ctx)
	defer cancel()

	deleted, err := c.Sheets.Delete(reqCtx, id, caller.SheetFilter())
	if err != nil {
		return c.HandleError(ctx, err, msgSheetFailed, http.StatusInternalServerError)
	}
	if !deleted {
		return c.HandleError(ctx, nil, msgItemNotFound, http.StatusNotFound)
	}

	c.apiLogger.Info("sheet item deleted",
		logger.Int("id", id),
		logger.Uint("user_id", caller.UserID))
	return ctx.NoContent(http.StatusNoContent)
}
