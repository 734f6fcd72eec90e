// Package api 提供图书管理的HTTP处理器。
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

// BookHandler 图书相关的HTTP处理器
type BookHandler struct {
	bookService service.BookService
	logger      *zap.Logger
}

// NewBookHandler 创建图书处理器实例
func NewBookHandler(bookService service.BookService, logger *zap.Logger) *BookHandler {
	return &BookHandler{
		bookService: bookService,
		logger:      logger,
	}
}

// CreateBook 创建图书
// POST /api/v1/books
// 需要管理员权限
func (h *BookHandler) CreateBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.CreateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if err := validateCreateBookRequest(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	book, err := h.bookService.CreateBook(&req)
	if err != nil {
		if errors.Is(err, service.ErrCategoryNotFound) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "category not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrAuthorNotFound) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "author not found", reqID, "")
			return
		}

		h.logger.Error("create book failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create book failed", reqID, "")
		return
	}

	resp.OK(w, book, reqID, "")
}

// GetBook 获取图书详情（带分类和作者名称）
// GET /api/v1/books/{id}
func (h *BookHandler) GetBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	detail, err := h.bookService.GetBookDetail(id)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
			return
		}

		h.logger.Error("get book failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get book failed", reqID, "")
		return
	}

	resp.OK(w, detail, reqID, "")
}

// ListBooks 分页获取图书列表
// GET /api/v1/books?page=1&page_size=20&title=xx&category_id=1&author_id=2&only_available=true
func (h *BookHandler) ListBooks(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	req := &domain.BookListRequest{
		Page:          queryInt(r, "page", 1),
		PageSize:      queryInt(r, "page_size", 20),
		Title:         queryStringPtr(r, "title"),
		CategoryID:    queryInt64Ptr(r, "category_id"),
		AuthorID:      queryInt64Ptr(r, "author_id"),
		OnlyAvailable: r.URL.Query().Get("only_available") == "true",
	}

	result, err := h.bookService.ListBooks(req)
	if err != nil {
		h.logger.Error("list books failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list books failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// UpdateBook 更新图书信息
// PUT /api/v1/books/{id}
// 需要管理员权限
func (h *BookHandler) UpdateBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	var req domain.UpdateBookRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	book, err := h.bookService.UpdateBook(id, &req)
	if err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrInvalidCopies) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "available_copies must not be negative", reqID, "")
			return
		}
		if errors.Is(err, service.ErrCategoryNotFound) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "category not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrAuthorNotFound) {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "author not found", reqID, "")
			return
		}

		h.logger.Error("update book failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update book failed", reqID, "")
		return
	}

	resp.OK(w, book, reqID, "")
}

// DeleteBook 删除图书
// DELETE /api/v1/books/{id}
// 需要管理员权限；存在借出中记录的图书不允许删除
func (h *BookHandler) DeleteBook(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	if err := h.bookService.DeleteBook(id); err != nil {
		if errors.Is(err, service.ErrBookNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
			return
		}
		if errors.Is(err, service.ErrBookHasActiveLoans) {
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "book has active loans", reqID, "")
			return
		}

		h.logger.Error("delete book failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "delete book failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{"id": id}, reqID, "")
}

// validateCreateBookRequest 验证创建图书请求
func validateCreateBookRequest(req *domain.CreateBookRequest) error {
	if len(req.Title) < 1 || len(req.Title) > 200 {
		return errors.New("title must be between 1 and 200 characters")
	}

	if req.PublicationYear < 0 {
		return errors.New("publication_year must not be negative")
	}

	if req.AvailableCopies < 0 {
		return errors.New("available_copies must not be negative")
	}

	if req.CategoryID <= 0 || req.AuthorID <= 0 {
		return errors.New("category_id and author_id are required")
	}

	return nil
}
