// Package api 提供借阅生命周期的HTTP处理器。
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

// LoanHandler 借阅相关的HTTP处理器
// 普通用户只能操作自己的借阅记录，管理员不受限制
type LoanHandler struct {
	loanService service.LoanService
	logger      *zap.Logger
}

// NewLoanHandler 创建借阅处理器实例
func NewLoanHandler(loanService service.LoanService, logger *zap.Logger) *LoanHandler {
	return &LoanHandler{
		loanService: loanService,
		logger:      logger,
	}
}

// CreateLoan 创建借阅记录（扣减图书库存）
// POST /api/v1/loans
// 需要认证；普通用户只能以自己的身份借书
func (h *LoanHandler) CreateLoan(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	var req domain.CreateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	// 未指定user_id时默认借给自己
	if req.UserID == 0 {
		req.UserID = user.ID
	}
	if !user.IsAdmin() && req.UserID != user.ID {
		resp.Error(w, http.StatusForbidden, resp.CodeInvalidParam, "cannot create loans for other users", reqID, "")
		return
	}

	if req.BookID <= 0 || req.LoanDate.IsZero() || req.ExpectedReturnDate.IsZero() {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "book_id, loan_date and expected_return_date are required", reqID, "")
		return
	}

	loan, err := h.loanService.CreateLoan(&req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrUserNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
		case errors.Is(err, service.ErrUserInactive):
			resp.Error(w, http.StatusForbidden, resp.CodeInvalidParam, "user is inactive", reqID, "")
		case errors.Is(err, service.ErrBookNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "book not found", reqID, "")
		case errors.Is(err, service.ErrInvalidReturnDate):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "expected_return_date must be after loan_date", reqID, "")
		case errors.Is(err, service.ErrDuplicateActiveLoan):
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "user already has an active loan for this book", reqID, "")
		case errors.Is(err, service.ErrNoAvailableCopies):
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "no available copies", reqID, "")
		default:
			h.logger.Error("create loan failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "create loan failed", reqID, "")
		}
		return
	}

	resp.OK(w, loan, reqID, "")
}

// GetLoan 获取借阅详情（带用户名和书名）
// GET /api/v1/loans/{id}
// 需要认证；普通用户只能查看自己的记录
func (h *LoanHandler) GetLoan(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	detail, err := h.loanService.GetLoanDetail(id)
	if err != nil {
		if errors.Is(err, service.ErrLoanNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
			return
		}

		h.logger.Error("get loan failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get loan failed", reqID, "")
		return
	}

	if !user.IsAdmin() && detail.UserID != user.ID {
		// 对越权访问返回404，不暴露记录是否存在
		resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
		return
	}

	resp.OK(w, detail, reqID, "")
}

// ListLoans 分页获取借阅列表
// GET /api/v1/loans?page=1&page_size=20&user_id=1&book_id=2&status=active
// 需要认证；普通用户强制只看自己的记录
func (h *LoanHandler) ListLoans(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	req := &domain.LoanListRequest{
		Page:     queryInt(r, "page", 1),
		PageSize: queryInt(r, "page_size", 20),
		UserID:   queryInt64Ptr(r, "user_id"),
		BookID:   queryInt64Ptr(r, "book_id"),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		status := domain.LoanStatus(s)
		if !status.Valid() {
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid status", reqID, "")
			return
		}
		req.Status = &status
	}

	if !user.IsAdmin() {
		uid := user.ID
		req.UserID = &uid
	}

	result, err := h.loanService.ListLoans(req)
	if err != nil {
		h.logger.Error("list loans failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list loans failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// UpdateLoan 调整借出中记录的预计归还日期
// PUT /api/v1/loans/{id}
// 需要管理员权限
func (h *LoanHandler) UpdateLoan(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	var req domain.UpdateLoanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	loan, err := h.loanService.UpdateLoan(id, &req)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoanNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
		case errors.Is(err, service.ErrLoanNotActive):
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "loan is not active", reqID, "")
		case errors.Is(err, service.ErrInvalidReturnDate):
			resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "expected_return_date must be after loan_date", reqID, "")
		default:
			h.logger.Error("update loan failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update loan failed", reqID, "")
		}
		return
	}

	resp.OK(w, loan, reqID, "")
}

// ReturnLoan 归还图书（恢复图书库存）
// POST /api/v1/loans/{id}/return
// 需要认证；普通用户只能归还自己的借阅
func (h *LoanHandler) ReturnLoan(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	if !user.IsAdmin() {
		existing, err := h.loanService.GetLoanByID(id)
		if err != nil {
			if errors.Is(err, service.ErrLoanNotFound) {
				resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
				return
			}
			h.logger.Error("return loan failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "return loan failed", reqID, "")
			return
		}
		if existing.UserID != user.ID {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
			return
		}
	}

	loan, err := h.loanService.ReturnLoan(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoanNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
		case errors.Is(err, service.ErrLoanNotActive):
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "loan is not active", reqID, "")
		default:
			h.logger.Error("return loan failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "return loan failed", reqID, "")
		}
		return
	}

	resp.OK(w, loan, reqID, "")
}

// MarkOverdue 将借出中记录显式标记为逾期（不恢复库存）
// POST /api/v1/loans/{id}/overdue
// 需要管理员权限
func (h *LoanHandler) MarkOverdue(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 4)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	loan, err := h.loanService.MarkLoanOverdue(id)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrLoanNotFound):
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "loan not found", reqID, "")
		case errors.Is(err, service.ErrLoanNotActive):
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "loan is not active", reqID, "")
		default:
			h.logger.Error("mark overdue failed", zap.String("request_id", reqID), zap.Error(err))
			resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "mark overdue failed", reqID, "")
		}
		return
	}

	resp.OK(w, loan, reqID, "")
}

// ListOverdueLoans 获取按日期计算已逾期的借出中记录
// GET /api/v1/admin/loans/overdue
// 需要管理员权限
func (h *LoanHandler) ListOverdueLoans(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	loans, err := h.loanService.ListOverdueLoans()
	if err != nil {
		h.logger.Error("list overdue loans failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list overdue loans failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{
		"loans": loans,
		"total": len(loans),
	}, reqID, "")
}

// SweepOverdueLoans 扫描逾期视图并批量标记逾期
// POST /api/v1/admin/loans/overdue/sweep
// 需要管理员权限
func (h *LoanHandler) SweepOverdueLoans(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	result, err := h.loanService.SweepOverdueLoans()
	if err != nil {
		h.logger.Error("overdue sweep failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "overdue sweep failed", reqID, "")
		return
	}

	resp.OK(w, result, reqID, "")
}

// GetLoanStats 获取借阅状态统计
// GET /api/v1/admin/loans/stats
// 需要管理员权限
func (h *LoanHandler) GetLoanStats(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	stats, err := h.loanService.GetLoanStats()
	if err != nil {
		h.logger.Error("get loan stats failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get loan stats failed", reqID, "")
		return
	}

	resp.OK(w, stats, reqID, "")
}
