// Package api 提供图书推荐的HTTP处理器。
package api

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/middleware"
	"github.com/MorseWayne/library_api/internal/resp"
	"github.com/MorseWayne/library_api/internal/service"
)

// RecommendationHandler 推荐相关的HTTP处理器
type RecommendationHandler struct {
	recommendationService service.RecommendationService
	logger                *zap.Logger
}

// NewRecommendationHandler 创建推荐处理器实例
func NewRecommendationHandler(recommendationService service.RecommendationService, logger *zap.Logger) *RecommendationHandler {
	return &RecommendationHandler{
		recommendationService: recommendationService,
		logger:                logger,
	}
}

// GetRecommendations 获取当前用户的个性化推荐
// GET /api/v1/recommendations?limit=10
// 需要认证
func (h *RecommendationHandler) GetRecommendations(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 50 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "limit must be between 1 and 50", reqID, "")
		return
	}

	recommendations, err := h.recommendationService.GetRecommendations(user.ID, limit)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}

		h.logger.Error("get recommendations failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get recommendations failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{
		"recommendations": recommendations,
		"total":           len(recommendations),
	}, reqID, "")
}

// RecommendByCategory 推荐指定分类下的有库存图书
// GET /api/v1/recommendations/category/{id}?limit=10
// 可选认证：带令牌时排除该用户借阅过的书
func (h *RecommendationHandler) RecommendByCategory(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 5)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 50 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "limit must be between 1 and 50", reqID, "")
		return
	}

	var userID *int64
	if user := middleware.UserFromContext(r.Context()); user != nil {
		userID = &user.ID
	}

	// 分类不存在时返回空结果，不单独报404
	recommendations, err := h.recommendationService.RecommendByCategory(id, userID, limit)
	if err != nil {
		h.logger.Error("recommend by category failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "recommend by category failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{
		"recommendations": recommendations,
		"total":           len(recommendations),
	}, reqID, "")
}

// RecommendByAuthor 推荐指定作者名下的有库存图书
// GET /api/v1/recommendations/author/{id}?limit=10
// 可选认证：带令牌时排除该用户借阅过的书
func (h *RecommendationHandler) RecommendByAuthor(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	id, err := idFromPath(r, 5)
	if err != nil {
		writeInvalidID(w, r)
		return
	}

	limit := queryInt(r, "limit", 10)
	if limit < 1 || limit > 50 {
		resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "limit must be between 1 and 50", reqID, "")
		return
	}

	var userID *int64
	if user := middleware.UserFromContext(r.Context()); user != nil {
		userID = &user.ID
	}

	recommendations, err := h.recommendationService.RecommendByAuthor(id, userID, limit)
	if err != nil {
		h.logger.Error("recommend by author failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "recommend by author failed", reqID, "")
		return
	}

	resp.OK(w, map[string]interface{}{
		"recommendations": recommendations,
		"total":           len(recommendations),
	}, reqID, "")
}

// GetPreferences 获取当前用户的借阅偏好视图
// GET /api/v1/recommendations/preferences
// 需要认证
func (h *RecommendationHandler) GetPreferences(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())

	user := middleware.UserFromContext(r.Context())
	if user == nil {
		resp.Error(w, http.StatusUnauthorized, resp.CodeInvalidParam, "authentication required", reqID, "")
		return
	}

	preferences, err := h.recommendationService.GetUserPreferences(user.ID)
	if err != nil {
		if errors.Is(err, service.ErrUserNotFound) {
			resp.Error(w, http.StatusNotFound, resp.CodeInvalidParam, "user not found", reqID, "")
			return
		}

		h.logger.Error("get preferences failed", zap.String("request_id", reqID), zap.Error(err))
		resp.Error(w, http.StatusInternalServerError, resp.CodeInternalError, "get preferences failed", reqID, "")
		return
	}

	resp.OK(w, preferences, reqID, "")
}
