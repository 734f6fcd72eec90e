// Package resp 提供统一的HTTP响应格式。
// 所有接口都返回相同的信封结构，方便客户端统一处理：
//
//	{"code": 0, "message": "", "data": {...}, "request_id": "..."}
//
// code 为业务码，0 表示成功；HTTP状态码只表达传输层语义。
package resp

import (
	"encoding/json"
	"net/http"
)

// 业务码定义
const (
	CodeOK            = 0    // 成功
	CodeInvalidParam  = 1001 // 参数错误/业务规则拒绝
	CodeInternalError = 1002 // 服务内部错误
	CodeTimeout       = 1003 // 请求超时
)

// Body 表示统一响应信封
type Body struct {
	Code      int    `json:"code"`
	Message   string `json:"message"`
	Data      any    `json:"data,omitempty"`
	RequestID string `json:"request_id,omitempty"`
	TraceID   string `json:"trace_id,omitempty"`
}

// OK 写入成功响应
func OK(w http.ResponseWriter, data any, requestID, traceID string) {
	WriteJSON(w, http.StatusOK, &Body{
		Code:      CodeOK,
		Data:      data,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// Error 写入错误响应
func Error(w http.ResponseWriter, status, code int, message, requestID, traceID string) {
	WriteJSON(w, status, &Body{
		Code:      code,
		Message:   message,
		RequestID: requestID,
		TraceID:   traceID,
	})
}

// WriteJSON 按指定状态码写入JSON响应
func WriteJSON(w http.ResponseWriter, status int, body *Body) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	// 编码失败时响应头已写出，只能放弃；body 均为内部构造，实际不会失败
	_ = json.NewEncoder(w).Encode(body)
}

// HTTPStatusFromCode 将业务码映射为HTTP状态码
func HTTPStatusFromCode(code int) int {
	switch code {
	case CodeOK:
		return http.StatusOK
	case CodeInvalidParam:
		return http.StatusBadRequest
	case CodeTimeout:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
