package httpserver

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/sweet_shop/internal/logging"
	authmw "github.com/Skotchmaster/sweet_shop/internal/middleware/auth"
	"github.com/Skotchmaster/sweet_shop/internal/service"
	"github.com/Skotchmaster/sweet_shop/internal/transport"
	"github.com/Skotchmaster/sweet_shop/internal/util"
)

type SweetsHTTP struct {
	Svc *service.InventoryService
}

func (h *SweetsHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.list")

	items, err := h.Svc.List(ctx)
	if err != nil {
		return fail(l, "list_sweets_error", err)
	}

	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Data:    transport.SweetsData{Sweets: items, Count: len(items)},
	})
}

func (h *SweetsHTTP) Search(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.search")

	minPrice, err := floatParam(c, "minPrice")
	if err != nil {
		return fail(l, "search_sweets_error", err)
	}
	maxPrice, err := floatParam(c, "maxPrice")
	if err != nil {
		return fail(l, "search_sweets_error", err)
	}

	res, err := h.Svc.Search(ctx, service.SearchQuery{
		Q:        c.QueryParam("q"),
		Category: c.QueryParam("category"),
		MinPrice: minPrice,
		MaxPrice: maxPrice,
		Page:     util.ParseIntDefault(c.QueryParam("page"), 1),
		Limit:    util.ParseIntDefault(c.QueryParam("limit"), util.DefaultPageSize),
	})
	if err != nil {
		return fail(l, "search_sweets_error", err)
	}

	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Data: transport.SearchData{
			Sweets: res.Sweets,
			Pagination: transport.Pagination{
				Page:  res.Page,
				Limit: res.Limit,
				Total: res.Total,
				Pages: res.Pages,
			},
		},
	})
}

func (h *SweetsHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.get")

	id, err := sweetID(c)
	if err != nil {
		return fail(l, "get_sweet_error", err)
	}

	sweet, err := h.Svc.Get(ctx, id)
	if err != nil {
		return fail(l, "get_sweet_error", err)
	}

	return c.JSON(http.StatusOK, transport.Envelope{Success: true, Data: transport.SweetData{Sweet: *sweet}})
}

func (h *SweetsHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.create")

	var req transport.CreateSweetRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("create_sweet_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return fail(l, "create_sweet_error", err)
	}

	actor, _ := authmw.UserFromContext(c)
	sweet, err := h.Svc.Create(ctx, req, actor)
	if err != nil {
		return fail(l, "create_sweet_error", err)
	}

	l.Info("create_sweet_success", "sweet_id", sweet.ID)
	return c.JSON(http.StatusCreated, transport.Envelope{
		Success: true,
		Message: "Sweet created successfully",
		Data:    transport.SweetData{Sweet: *sweet},
	})
}

func (h *SweetsHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.update")

	id, err := sweetID(c)
	if err != nil {
		return fail(l, "update_sweet_error", err)
	}

	var req transport.UpdateSweetRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("update_sweet_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}
	req.Normalize()
	if err := c.Validate(&req); err != nil {
		return fail(l, "update_sweet_error", err)
	}

	actor, _ := authmw.UserFromContext(c)
	sweet, err := h.Svc.Update(ctx, id, req, actor)
	if err != nil {
		return fail(l, "update_sweet_error", err)
	}

	l.Info("update_sweet_success", "sweet_id", sweet.ID)
	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Message: "Sweet updated successfully",
		Data:    transport.SweetData{Sweet: *sweet},
	})
}

func (h *SweetsHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.delete")

	id, err := sweetID(c)
	if err != nil {
		return fail(l, "delete_sweet_error", err)
	}

	actor, _ := authmw.UserFromContext(c)
	if err := h.Svc.Delete(ctx, id, actor); err != nil {
		return fail(l, "delete_sweet_error", err)
	}

	l.Info("delete_sweet_success", "sweet_id", id)
	return c.JSON(http.StatusOK, transport.Envelope{Success: true, Message: "Sweet deleted successfully"})
}

func (h *SweetsHTTP) Purchase(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.purchase")

	id, err := sweetID(c)
	if err != nil {
		return fail(l, "purchase_error", err)
	}

	var req transport.PurchaseRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("purchase_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	actor, _ := authmw.UserFromContext(c)
	sweet, err := h.Svc.Purchase(ctx, id, req.Quantity, actor)
	if err != nil {
		return fail(l, "purchase_error", err)
	}

	l.Info("purchase_success", "sweet_id", id, "remaining", sweet.Quantity)
	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Message: "Purchase successful",
		Data:    transport.SweetData{Sweet: *sweet},
	})
}

func (h *SweetsHTTP) Restock(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "sweets.restock")

	id, err := sweetID(c)
	if err != nil {
		return fail(l, "restock_error", err)
	}

	var req transport.RestockRequest
	if err := c.Bind(&req); err != nil {
		l.Warn("restock_error", "status", 400, "reason", "invalid body", "error", err)
		return echo.NewHTTPError(http.StatusBadRequest, "invalid body")
	}

	actor, _ := authmw.UserFromContext(c)
	sweet, err := h.Svc.Restock(ctx, id, req.Quantity, actor)
	if err != nil {
		return fail(l, "restock_error", err)
	}

	l.Info("restock_success", "sweet_id", id, "quantity", sweet.Quantity)
	return c.JSON(http.StatusOK, transport.Envelope{
		Success: true,
		Message: "Restock successful",
		Data:    transport.SweetData{Sweet: *sweet},
	})
}

func sweetID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid sweet id", service.ErrValidation)
	}
	return id, nil
}

func floatParam(c echo.Context, name string) (*float64, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil, fmt.Errorf("%w: %s must be a number", service.ErrValidation, name)
	}
	return &v, nil
}
