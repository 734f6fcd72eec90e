// Package domain 定义图书相关的领域模型和库存规则。
package domain

import (
	"time"
)

// Book 表示图书领域模型
// AvailableCopies 是派生的库存状态，唯一合法的修改路径是
// 借阅创建/归还触发的库存增减操作（见 repo.LoanRepository）
type Book struct {
	ID              int64     `json:"id"`
	Title           string    `json:"title"`
	Synopsis        *string   `json:"synopsis,omitempty"` // 简介（可选）
	PublicationYear int       `json:"publication_year"`
	AvailableCopies int       `json:"available_copies"` // 可借副本数，恒为非负
	CategoryID      int64     `json:"category_id"`
	AuthorID        int64     `json:"author_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// IsAvailable 判断图书当前是否可借
func (b *Book) IsAvailable() bool {
	return b.AvailableCopies > 0
}

// BookDetail 表示带分类和作者名称的图书视图
// 用于详情接口和推荐结果，避免调用方再做两次查询
type BookDetail struct {
	Book
	CategoryName string `json:"category_name"`
	AuthorName   string `json:"author_name"`
}

// CreateBookRequest 表示创建图书请求
type CreateBookRequest struct {
	Title           string  `json:"title" binding:"required,min=1,max=200"`
	Synopsis        *string `json:"synopsis"`
	PublicationYear int     `json:"publication_year" binding:"required"`
	AvailableCopies int     `json:"available_copies" binding:"min=0"`
	CategoryID      int64   `json:"category_id" binding:"required"`
	AuthorID        int64   `json:"author_id" binding:"required"`
}

// UpdateBookRequest 表示更新图书请求
type UpdateBookRequest struct {
	Title           *string `json:"title"`
	Synopsis        *string `json:"synopsis"`
	PublicationYear *int    `json:"publication_year"`
	AvailableCopies *int    `json:"available_copies"`
	CategoryID      *int64  `json:"category_id"`
	AuthorID        *int64  `json:"author_id"`
}

// BookListRequest 表示图书列表查询请求
type BookListRequest struct {
	Page          int     `json:"page"`           // 页码，从1开始
	PageSize      int     `json:"page_size"`      // 每页大小
	Title         *string `json:"title"`          // 标题模糊过滤
	CategoryID    *int64  `json:"category_id"`    // 分类过滤
	AuthorID      *int64  `json:"author_id"`      // 作者过滤
	OnlyAvailable bool    `json:"only_available"` // 是否只看可借图书
}

// BookListResponse 表示图书列表查询响应
type BookListResponse struct {
	Books    []*Book `json:"books"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}
