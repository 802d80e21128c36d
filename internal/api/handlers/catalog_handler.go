package handlers

import (
	"net/http"

	"github.com/brandhub/deploycenter/internal/api/types"
	"github.com/brandhub/deploycenter/internal/models"
	"github.com/brandhub/deploycenter/internal/services"
	"gorm.io/datatypes"
)

type CatalogHandler struct {
	svc services.CatalogService
}

func NewCatalogHandler(svc services.CatalogService) *CatalogHandler {
	return &CatalogHandler{svc: svc}
}

func (h *CatalogHandler) CreateSupplier(w http.ResponseWriter, r *http.Request) {
	var req types.CreateSupplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	s, err := h.svc.CreateSupplier(r.Context(), &models.Supplier{
		Code:       req.Code,
		Name:       req.Name,
		TaxID:      req.TaxID,
		Email:      req.Email,
		Phone:      req.Phone,
		Attributes: datatypes.JSONMap(req.Attributes),
	}, actor(r, ""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, s)
}

func (h *CatalogHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req types.CreateProductRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	p, err := h.svc.CreateProduct(r.Context(), &models.Product{
		SKU:        req.SKU,
		Name:       req.Name,
		CategoryID: req.CategoryID,
		PriceCents: req.PriceCents,
		Currency:   req.Currency,
		Attributes: datatypes.JSONMap(req.Attributes),
	}, actor(r, ""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, p)
}

func (h *CatalogHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req types.CreateCategoryRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	c, err := h.svc.CreateCategory(r.Context(), &models.Category{
		Code:     req.Code,
		Name:     req.Name,
		ParentID: req.ParentID,
	}, actor(r, ""))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusCreated, c)
}

func (h *CatalogHandler) DeploySupplier(w http.ResponseWriter, r *http.Request) {
	id, err := pathUUID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req types.DeploySupplierRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	rep, err := h.svc.DeploySupplier(r.Context(), id, req.BranchNames)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeData(w, r, http.StatusOK, rep)
}

func (h *CatalogHandler) ListSuppliers(w http.ResponseWriter, r *http.Request) {
	tenantID, err := queryUUID(r, "tenantId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.ListSuppliers(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, out)
}

func (h *CatalogHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	tenantID, err := queryUUID(r, "tenantId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.ListProducts(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, out)
}

func (h *CatalogHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	tenantID, err := queryUUID(r, "tenantId")
	if err != nil {
		writeError(w, r, err)
		return
	}
	out, err := h.svc.ListCategories(r.Context(), tenantID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeList(w, r, out)
}
