// Package domain 定义图书分类相关的领域模型。
package domain

import (
	"time"
)

// Category 表示图书分类领域模型
// 分类名称全局唯一，创建时做精确匹配查重
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Description *string   `json:"description,omitempty"` // 分类描述（可选）
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// CreateCategoryRequest 表示创建分类请求
type CreateCategoryRequest struct {
	Name        string  `json:"name" binding:"required,min=2,max=100"`
	Description *string `json:"description"`
}

// UpdateCategoryRequest 表示更新分类请求
type UpdateCategoryRequest struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// CategoryListRequest 表示分类列表查询请求
type CategoryListRequest struct {
	Page     int `json:"page"`
	PageSize int `json:"page_size"`
}

// CategoryListResponse 表示分类列表查询响应
type CategoryListResponse struct {
	Categories []*Category `json:"categories"`
	Total      int64       `json:"total"`
	Page       int         `json:"page"`
	PageSize   int         `json:"page_size"`
}
