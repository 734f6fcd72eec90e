// Package domain 定义作者相关的领域模型。
package domain

import (
	"time"
)

// Author 表示作者领域模型
type Author struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Biography   *string    `json:"biography,omitempty"`   // 作者简介（可选）
	BirthDate   *time.Time `json:"birth_date,omitempty"`  // 出生日期（可选）
	Nationality *string    `json:"nationality,omitempty"` // 国籍（可选）
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// CreateAuthorRequest 表示创建作者请求
type CreateAuthorRequest struct {
	Name        string     `json:"name" binding:"required,min=2,max=100"`
	Biography   *string    `json:"biography"`
	BirthDate   *time.Time `json:"birth_date"`
	Nationality *string    `json:"nationality"`
}

// UpdateAuthorRequest 表示更新作者请求
// 指针字段区分"未提供"和"置空"
type UpdateAuthorRequest struct {
	Name        *string    `json:"name"`
	Biography   *string    `json:"biography"`
	BirthDate   *time.Time `json:"birth_date"`
	Nationality *string    `json:"nationality"`
}

// AuthorListRequest 表示作者列表查询请求
type AuthorListRequest struct {
	Page     int     `json:"page"`      // 页码，从1开始
	PageSize int     `json:"page_size"` // 每页大小
	Name     *string `json:"name"`      // 名称模糊过滤
}

// AuthorListResponse 表示作者列表查询响应
type AuthorListResponse struct {
	Authors  []*Author `json:"authors"`
	Total    int64     `json:"total"`
	Page     int       `json:"page"`
	PageSize int       `json:"page_size"`
}
