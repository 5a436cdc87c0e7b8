package handler

import (
	"net/http"

	"github.com/replika-labs/wms-01-sub000/internal/dto"
	"github.com/replika-labs/wms-01-sub000/internal/service"

	"github.com/gin-gonic/gin"
)

// CatalogHandler serves colors and variations.
type CatalogHandler struct{ svc service.CatalogService }

func NewCatalogHandler(svc service.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) ListColors(c *gin.Context) {
	resp, err := h.svc.ListColors(c.Request.Context(), includeInactive(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: resp})
}

func (h *CatalogHandler) CreateColor(c *gin.Context) {
	var req dto.CreateColorRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateColor(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CatalogHandler) DeactivateColor(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateColor(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CatalogHandler) ListVariations(c *gin.Context) {
	resp, err := h.svc.ListVariations(c.Request.Context(), includeInactive(c))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.DataResponse{Success: true, Data: resp})
}

func (h *CatalogHandler) CreateVariation(c *gin.Context) {
	var req dto.CreateVariationRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateVariation(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CatalogHandler) DeactivateVariation(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	if err := h.svc.DeactivateVariation(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
