// Package api 提供用户认证与管理的HTTP处理器。
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

// UserHandler 用户相关的HTTP处理器
type UserHandler struct {
	userService service.UserService
	jwtService  service.JWTService
	logger      *zap.Logger
}

// NewUserHandler 创建用户处理器实例
func NewUserHandler(userService service.UserService, jwtService service.JWTService, logger *zap.Logger) *UserHandler {
	return &UserHandler{
		userService: userService,
		jwtService:  jwtService,
		logger:      logger,
	}
}

// Register 处理用户注册请求
// POST /api/v1/auth/register
func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if err := validateRegisterRequest(&req); err != nil {
		h.logger.Warn("validation failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, err.Error(), reqID, "")
		return
	}

	user, err := h.userService.Register(&req)
	if err != nil {
		if errors.Is(err, service.ErrUserExists) {
			resp.Error(w, http.StatusConflict, resp.CodeInvalidParam, "email already exists", reqID, "")
			return
		}

		h.logger.Error("register failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "register failed", reqID, "")
		return
	}

	resp.OK(w, user, reqID, "")
}

// Login 处理用户登录请求
// POST /api/v1/auth/login
func (h *UserHandler) Login(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.Email == "" || req.Password == "" {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "email and password are required", reqID, "")
		return
	}

	user, err := h.userService.Login(&req)
	if err != nil {
		// 用户不存在和密码错误返回同一个提示，避免账号枚举
		if errors.Is(err, service.ErrUserNotFound) || errors.Is(err, service.ErrInvalidCredentials) {
			resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "invalid email or password", reqID, "")
			return
		}
		if errors.Is(err, service.ErrUserInactive) {
			resp.Error(w, http.StatusForbidden, resp.CodeInvalidParam, "user is inactive", reqID, "")
			return
		}

		h.logger.Error("login failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "login failed", reqID, "")
		return
	}

	tokenPair, err := h.jwtService.GenerateTokenPair(user)
	if err != nil {
		h.logger.Error("failed to generate tokens", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "token generation failed", reqID, "")
		return
	}

	loginResp := &domain.LoginResponse{
		User:         user,
		AccessToken:  tokenPair.AccessToken,
		RefreshToken: tokenPair.RefreshToken,
	}

	resp.OK(w, loginResp, reqID, "")
}

// RefreshToken 刷新访问令牌
// POST /api/v1/auth/refresh
func (h *UserHandler) RefreshToken(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.RefreshTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("invalid request body", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	tokenPair, err := h.jwtService.RefreshTokenPair(req.RefreshToken)
	if err != nil {
		if errors.Is(err, service.ErrTokenExpired) {
			resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "refresh token expired", reqID, "")
			return
		}
		if errors.Is(err, service.ErrInvalidToken) {
			resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "invalid refresh token", reqID, "")
			return
		}

		h.logger.Error("refresh token failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "refresh token failed", reqID, "")
		return
	}

	resp.OK(w, tokenPair, reqID, "")
}

// GetProfile 获取当前用户信息
// GET /api/v1/users/profile
// 需要认证：使用AuthMiddleware保护
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		h.logger.Error("user not found in context", zap.String("request_id", reqID))
		resp.Error(w, http.StatusUnauthorized, resp.CodeInternalError, "authentication required", reqID, "")
		return
	}

	// 从数据库取最新状态，令牌里的信息可能已过时
	fullUser, err := h.userService.GetUserByID(user.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}

		h.logger.Error("get profile failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get profile failed", reqID, "")
		return
	}

	resp.OK(w, fullUser, reqID, "")
}

// ListUsers 分页获取用户列表
// GET /api/v1/admin/users
// 需要管理员权限
func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	page := queryInt(r, "page", 1)
	pageSize := queryInt(r, "page_size", 20)

	users, total, err := h.userService.ListUsers(page, pageSize)
	if err != nil {
		h.logger.Error("list users failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "list users failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{
		"users":     users,
		"total":     total,
		"page":      page,
		"page_size": pageSize,
	}, reqID, "")
}

// UpdateUserRole 修改用户角色
// PUT /api/v1/admin/users/role
// 需要管理员权限
func (h *UserHandler) UpdateUserRole(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.UpdateUserRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.UserID <= 0 || (req.Role != domain.UserRoleUser && req.Role != domain.UserRoleAdmin) {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid user_id or role", reqID, "")
		return
	}

	if err := h.userService.UpdateUserRole(req.UserID, req.Role); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}

		h.logger.Error("update user role failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update user role failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{"user_id": req.UserID, "role": req.Role}, reqID, "")
}

// UpdateUserStatus 启用/停用用户
// PUT /api/v1/admin/users/status
// 需要管理员权限
func (h *UserHandler) UpdateUserStatus(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	var req domain.UpdateUserStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid request body", reqID, "")
		return
	}

	if req.UserID <= 0 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid user_id", reqID, "")
		return
	}

	if err := h.userService.UpdateUserStatus(req.UserID, req.IsActive); err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}

		h.logger.Error("update user status failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "update user status failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{"user_id": req.UserID, "is_active": req.IsActive}, reqID, "")
}

// validateRegisterRequest 验证注册请求
func validateRegisterRequest(req *domain.RegisterRequest) error {
	if len(req.Name) < 2 || len(req.Name) > 100 {
		return errors.New("name must be between 2 and 100 characters")
	}

	if len(req.Password) < 6 || len(req.Password) > 72 {
		return errors.New("password must be between 6 and 72 characters")
	}

	if !isValidEmail(req.Email) {
		return errors.New("invalid email format")
	}

	return nil
}

// isValidEmail 简单的邮箱格式验证
func isValidEmail(email string) bool {
	if len(email) == 0 || len(email) > 254 {
		return false
	}

	at := -1
	for i, c := range email {
		if c == '@' {
			if at >= 0 {
				return false
			}
			at = i
		}
	}

	if at <= 0 || at == len(email)-1 {
		return false
	}

	// 域名部分必须带点
	for _, c := range email[at+1:] {
		if c == '.' {
			return true
		}
	}
	return false
}
