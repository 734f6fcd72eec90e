// Package api 提供作者管理的HTTP处理器。
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

// AuthorHandler 作者相关的HTTP处理器
type AuthorHandler struct {
	authorService service.AuthorService
	logger        *zap.Logger
}

// NewAuthorHandler 创建作者处理器实例
func NewAuthorHandler(authorService service.AuthorService, logger *zap.Logger) *AuthorHandler {
	return &AuthorHandler{
		authorService: authorService,
		logger:        logger,
	}
}

// CreateAuthor 创建作者
// POST /api/v1/authors
// 需要管理员权限
func (h *AuthorHandler) CreateAuthor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if len(req.Name) < 2 || len(req.Name) > 100 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "name must be between 2 and 100 characters", reqID, "")
		return
	}

	author, err := h.authorService.CreateAuthor(&req)
	if err != nil {
		h.logger.Error("create author failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create author failed", reqID, "")
		return
	}

	resp.OK(w, author, reqID, "")
}

// GetAuthor 获取作者详情
// GET /api/v1/authors/{id}
func (h *AuthorHandler) GetAuthor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	author, err := h.authorService.GetAuthorByID(id)
	if err != nil {
		if errors.Is(err, service.ErrAuthorNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "author not found", reqID, "")
			return
		}

		h.logger.Error("get author failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get author failed", reqID, "")
		return
	}

	resp.OK(w, author, reqID, "")
}

// ListAuthors 分页获取作者列表
// GET /api/v1/authors?page=1&page_size=20&name=xx
func (h *AuthorHandler) ListAuthors(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.AuthorListRequest{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
		Name:     queryStringPtr(r, "name"),
	}

	result, err := h.authorService.ListAuthors(req)
	if err != nil {
		h.logger.Error("list authors failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list authors failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// UpdateAuthor 更新作者信息
// PUT /api/v1/authors/{id}
// 需要管理员权限
func (h *AuthorHandler) UpdateAuthor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	var req domain.UpdateAuthorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.Name != nil && (len(*req.Name) < 2 || len(*req.Name) > 100) {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "name must be between 2 and 100 characters", reqID, "")
		return
	}

	author, err := h.authorService.UpdateAuthor(id, &req)
	if err != nil {
		if errors.Is(err, service.ErrAuthorNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "author not found", reqID, "")
			return
		}

		h.logger.Error("update author failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update author failed", reqID, "")
		return
	}

	resp.OK(w, author, reqID, "")
}

// DeleteAuthor 删除作者
// DELETE /api/v1/authors/{id}
// 需要管理员权限；名下还有图书的作者不允许删除
func (h *AuthorHandler) DeleteAuthor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	if err := h.authorService.DeleteAuthor(id); err != nil {
		if errors.Is(err, service.ErrAuthorNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "author not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrAuthorHasBooks) {
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "author still has books", reqID, "")
			return
		}

		h.logger.Error("delete author failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "delete author failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{"id": id}, reqID, "")
}
