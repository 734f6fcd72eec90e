// Package api 提供HTTP API处理器实现。
// API层负责处理HTTP请求/响应，进行数据验证和格式转换。
package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/MorseWayne/library_api/internal/middleware"
	"github.com/MorseWayne/library_api/internal/resp"
)

// errInvalidID 路径中的ID缺失或不是正整数
var errInvalidID = errors.New("invalid id in path")

// idFromPath 从请求路径中提取第index段作为ID
// 例如 /api/v1/books/42 中 index=4 对应 "42"
func idFromPath(r *http.Request, index int) (int64, error) {
	parts := strings.Split(r.URL.Path, "/")
	if len(parts) <= index {
		return 0, errInvalidID
	}

	id, err := strconv.ParseInt(parts[index], 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}

	return id, nil
}

// queryInt 读取整型查询参数，未设置或非法时返回默认值
func queryInt(r *http.Request, key string, fallback int) int {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

// queryInt64Ptr 读取可选的int64查询参数
func queryInt64Ptr(r *http.Request, key string) *int64 {
	if v := r.URL.Query().Get(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return &n
		}
	}
	return nil
}

// queryStringPtr 读取可选的字符串查询参数
func queryStringPtr(r *http.Request, key string) *string {
	if v := r.URL.Query().Get(key); v != "" {
		return &v
	}
	return nil
}

// writeInvalidID 写入ID非法的统一响应
func writeInvalidID(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.RequestIDFromContext(r.Context())
	resp.Error(w, http.StatusBadRequest, resp.CodeInvalidParam, "invalid id", reqID, "")
}
