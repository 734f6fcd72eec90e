// Package domain 定义借阅相关的领域模型和状态机规则。
package domain

import (
	"time"
)

// LoanStatus 定义借阅状态类型
type LoanStatus string

const (
	LoanStatusActive   LoanStatus = "active"   // 借出中，占用图书库存
	LoanStatusReturned LoanStatus = "returned" // 已归还（终态）
	LoanStatusOverdue  LoanStatus = "overdue"  // 已标记逾期（终态）
)

// Valid 判断是否为合法的借阅状态
func (s LoanStatus) Valid() bool {
	switch s {
	case LoanStatusActive, LoanStatusReturned, LoanStatusOverdue:
		return true
	}
	return false
}

// Loan 表示借阅记录领域模型
// 状态机：active 为初始态，只能转移到 returned 或 overdue，两者均为终态。
// 转入 active 时扣减图书库存，active → returned 时恢复库存，
// active → overdue 不影响库存。
type Loan struct {
	ID                 int64      `json:"id"`
	UserID             int64      `json:"user_id"`
	BookID             int64      `json:"book_id"`
	LoanDate           time.Time  `json:"loan_date"`
	ExpectedReturnDate time.Time  `json:"expected_return_date"` // 恒晚于 LoanDate
	ActualReturnDate   *time.Time `json:"actual_return_date"`   // 归还前为 null
	Status             LoanStatus `json:"status"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// IsActive 判断借阅是否处于借出中状态
func (l *Loan) IsActive() bool {
	return l.Status == LoanStatusActive
}

// IsOverdueAt 判断借阅在给定时刻是否已按日期逾期
// 这是按日期计算的逾期视图，与显式标记的 overdue 状态相互独立
func (l *Loan) IsOverdueAt(now time.Time) bool {
	return l.Status == LoanStatusActive && l.ExpectedReturnDate.Before(now)
}

// LoanDetail 表示带用户和图书名称的借阅视图
type LoanDetail struct {
	Loan
	UserName  string `json:"user_name"`
	BookTitle string `json:"book_title"`
}

// CreateLoanRequest 表示创建借阅请求
type CreateLoanRequest struct {
	UserID             int64     `json:"user_id" binding:"required"`
	BookID             int64     `json:"book_id" binding:"required"`
	LoanDate           time.Time `json:"loan_date" binding:"required"`
	ExpectedReturnDate time.Time `json:"expected_return_date" binding:"required"`
}

// UpdateLoanRequest 表示更新借阅请求
// 仅允许调整预计归还日期，状态变更走专门的生命周期接口
type UpdateLoanRequest struct {
	ExpectedReturnDate *time.Time `json:"expected_return_date"`
}

// LoanListRequest 表示借阅列表查询请求
type LoanListRequest struct {
	Page     int         `json:"page"`
	PageSize int         `json:"page_size"`
	UserID   *int64      `json:"user_id"`
	BookID   *int64      `json:"book_id"`
	Status   *LoanStatus `json:"status"`
}

// LoanListResponse 表示借阅列表查询响应
type LoanListResponse struct {
	Loans    []*Loan `json:"loans"`
	Total    int64   `json:"total"`
	Page     int     `json:"page"`
	PageSize int     `json:"page_size"`
}

// OverdueSweepResult 表示逾期标记扫描的执行结果
type OverdueSweepResult struct {
	Scanned int `json:"scanned"` // 按日期计算已逾期的借出中记录数
	Marked  int `json:"marked"`  // 实际转入 overdue 状态的记录数
}

// LoanStats 表示借阅统计信息
type LoanStats struct {
	Total    int64 `json:"total"`
	Active   int64 `json:"active"`
	Returned int64 `json:"returned"`
	Overdue  int64 `json:"overdue"`
}
