// Package api 提供图书分类管理的HTTP处理器。
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/middleware"
	"github.com/MorseWayne/library_api/internal/resp"
	"github.com/MorseWayne/library_api/internal/service"
)

// CategoryHandler 分类相关的HTTP处理器
type CategoryHandler struct {
	categoryService service.CategoryService
	logger          *zap.Logger
}

// NewCategoryHandler 创建分类处理器实例
func NewCategoryHandler(categoryService service.CategoryService, logger *zap.Logger) *CategoryHandler {
	return &CategoryHandler{
		categoryService: categoryService,
		logger:          logger,
	}
}

// CreateCategory 创建分类
// POST /api/v1/categories
// 需要管理员权限
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if len(req.Name) < 2 || len(req.Name) > 100 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "name must be between 2 and 100 characters", reqID, "")
		return
	}

	category, err := h.categoryService.CreateCategory(&req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryExists) {
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "category name already exists", reqID, "")
			return
		}

		h.logger.Error("create category failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create category failed", reqID, "")
		return
	}

	resp.OK(w, category, reqID, "")
}

// GetCategory 获取分类详情
// GET /api/v1/categories/{id}
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	category, err := h.categoryService.GetCategoryByID(id)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "category not found", reqID, "")
			return
		}

		h.logger.Error("get category failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get category failed", reqID, "")
		return
	}

	resp.OK(w, category, reqID, "")
}

// ListCategories 分页获取分类列表
// GET /api/v1/categories?page=1&page_size=20
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.CategoryListRequest{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
	}

	result, err := h.categoryService.ListCategories(req)
	if err != nil {
		h.logger.Error("list categories failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list categories failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// UpdateCategory 更新分类
// PUT /api/v1/categories/{id}
// 需要管理员权限
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	var req domain.UpdateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.Name != nil && (len(*req.Name) < 2 || len(*req.Name) > 100) {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "name must be between 2 and 100 characters", reqID, "")
		return
	}

	category, err := h.categoryService.UpdateCategory(id, &req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "category not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrCategoryExists) {
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "category name already exists", reqID, "")
			return
		}

		h.logger.Error("update category failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update category failed", reqID, "")
		return
	}

	resp.OK(w, category, reqID, "")
}

// DeleteCategory 删除分类
// DELETE /api/v1/categories/{id}
// 需要管理员权限；名下还有图书的分类不允许删除
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	if err := h.categoryService.DeleteCategory(id); err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "category not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrCategoryHasBooks) {
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "category still has books", reqID, "")
			return
		}

		h.logger.Error("delete category failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "delete category failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{"id": id}, reqID, "")
}
