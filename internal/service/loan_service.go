// Package service 实现借阅生命周期业务逻辑。
// 状态机：active → returned / overdue，库存一致性由仓储层事务保证，
// 这里负责业务校验和错误语义转换。
package service

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

// 借阅相关业务错误
var (
	ErrLoanNotFound        = errors.New("loan not found")
	ErrLoanNotActive       = errors.New("loan is not active")
	ErrNoAvailableCopies   = errors.New("book has no available copies")
	ErrDuplicateActiveLoan = errors.New("user already has an active loan for this book")
	ErrInvalidReturnDate   = errors.New("expected return date must be after loan date")
)

// BookCacheInvalidator 在借阅改变库存后使图书缓存失效
// 缓存未启用时传 nil
type BookCacheInvalidator interface {
	InvalidateBook(id int64)
}

// LoanService 定义借阅服务接口
type LoanService interface {
	CreateLoan(req *domain.CreateLoanRequest) (*domain.Loan, error)
	ReturnLoan(id int64) (*domain.Loan, error)
	MarkLoanOverdue(id int64) (*domain.Loan, error)
	GetLoanByID(id int64) (*domain.Loan, error)
	GetLoanDetail(id int64) (*domain.LoanDetail, error)
	UpdateLoan(id int64, req *domain.UpdateLoanRequest) (*domain.Loan, error)
	ListLoans(req *domain.LoanListRequest) (*domain.LoanListResponse, error)
	ListOverdueLoans() ([]*domain.LoanDetail, error)
	SweepOverdueLoans() (*domain.OverdueSweepResult, error)
	GetLoanStats() (*domain.LoanStats, error)
}

// loanService 是 LoanService 接口的实现
type loanService struct {
	loanRepo    repo.LoanRepository
	userRepo    repo.UserRepository
	bookRepo    repo.BookRepository
	invalidator BookCacheInvalidator
	logger      *zap.Logger
}

// NewLoanService 创建借阅服务实例
func NewLoanService(
	loanRepo repo.LoanRepository,
	userRepo repo.UserRepository,
	bookRepo repo.BookRepository,
	invalidator BookCacheInvalidator,
	logger *zap.Logger,
) LoanService {
	return &loanService{
		loanRepo:    loanRepo,
		userRepo:    userRepo,
		bookRepo:    bookRepo,
		invalidator: invalidator,
		logger:      logger,
	}
}

// CreateLoan 创建借阅
// 业务规则：
// 1. 预计归还日期必须晚于借出日期
// 2. 用户必须存在且处于活跃状态
// 3. 图书必须存在
// 4. 同一用户不能重复借出同一本书
// 5. 库存扣减和借阅创建在同一事务内，没副本时整体失败
func (s *loanService) CreateLoan(req *domain.CreateLoanRequest) (*domain.Loan, error) {
	// 入参校验先行，不让坏日期落到存在性检查的错误上
	if !req.ExpectedReturnDate.After(req.LoanDate) {
		return nil, ErrInvalidReturnDate
	}

	user, err := s.userRepo.GetByID(req.UserID)
	if err != nil {
		s.logger.Error("failed to get user", zap.Int64("user_id", req.UserID), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	if !user.IsActive {
		return nil, ErrUserInactive
	}

	book, err := s.bookRepo.GetByID(req.BookID)
	if err != nil {
		s.logger.Error("failed to get book", zap.Int64("book_id", req.BookID), zap.Error(err))
		return nil, fmt.Errorf("get book: %w", err)
	}
	if book == nil {
		return nil, ErrBookNotFound
	}

	hasActive, err := s.loanRepo.HasActiveLoan(req.UserID, req.BookID)
	if err != nil {
		s.logger.Error("failed to check active loan", zap.Error(err))
		return nil, fmt.Errorf("check active loan: %w", err)
	}
	if hasActive {
		return nil, ErrDuplicateActiveLoan
	}

	loan := &domain.Loan{
		UserID:             req.UserID,
		BookID:             req.BookID,
		LoanDate:           req.LoanDate,
		ExpectedReturnDate: req.ExpectedReturnDate,
	}

	// 库存预检只用于报错提示，真正的防超借在事务的条件更新里
	if err := s.loanRepo.CreateWithDecrement(loan); err != nil {
		switch {
		case errors.Is(err, repo.ErrBookUnavailable):
			return nil, ErrNoAvailableCopies
		case errors.Is(err, repo.ErrNotFound):
			// 预检之后图书被并发删除
			return nil, ErrBookNotFound
		}
		s.logger.Error("failed to create loan", zap.Error(err))
		return nil, fmt.Errorf("create loan: %w", err)
	}

	s.invalidateBook(req.BookID)

	s.logger.Info("loan created",
		zap.Int64("loan_id", loan.ID),
		zap.Int64("user_id", loan.UserID),
		zap.Int64("book_id", loan.BookID),
	)

	return loan, nil
}

// ReturnLoan 登记归还：active → returned，恢复库存
func (s *loanService) ReturnLoan(id int64) (*domain.Loan, error) {
	if err := s.loanRepo.RegisterReturn(id, time.Now()); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrLoanNotFound
		case errors.Is(err, repo.ErrLoanNotActive):
			return nil, ErrLoanNotActive
		}
		s.logger.Error("failed to register return", zap.Int64("loan_id", id), zap.Error(err))
		return nil, fmt.Errorf("register return: %w", err)
	}

	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to reload loan", zap.Int64("loan_id", id), zap.Error(err))
		return nil, fmt.Errorf("reload loan: %w", err)
	}

	if loan != nil {
		s.invalidateBook(loan.BookID)
	}

	s.logger.Info("loan returned", zap.Int64("loan_id", id))

	return loan, nil
}

// MarkLoanOverdue 显式标记逾期：active → overdue，不影响库存
func (s *loanService) MarkLoanOverdue(id int64) (*domain.Loan, error) {
	if err := s.loanRepo.MarkOverdue(id); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrLoanNotFound
		case errors.Is(err, repo.ErrLoanNotActive):
			return nil, ErrLoanNotActive
		}
		s.logger.Error("failed to mark loan overdue", zap.Int64("loan_id", id), zap.Error(err))
		return nil, fmt.Errorf("mark loan overdue: %w", err)
	}

	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to reload loan", zap.Int64("loan_id", id), zap.Error(err))
		return nil, fmt.Errorf("reload loan: %w", err)
	}

	s.logger.Info("loan marked overdue", zap.Int64("loan_id", id))

	return loan, nil
}

// GetLoanByID 根据ID获取借阅
func (s *loanService) GetLoanByID(id int64) (*domain.Loan, error) {
	loan, err := s.loanRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get loan", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get loan: %w", err)
	}

	if loan == nil {
		return nil, ErrLoanNotFound
	}

	return loan, nil
}

// GetLoanDetail 获取借阅详情（含用户、图书名称）
func (s *loanService) GetLoanDetail(id int64) (*domain.LoanDetail, error) {
	detail, err := s.loanRepo.GetDetailByID(id)
	if err != nil {
		s.logger.Error("failed to get loan detail", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get loan detail: %w", err)
	}

	if detail == nil {
		return nil, ErrLoanNotFound
	}

	return detail, nil
}

// UpdateLoan 调整预计归还日期，只对 active 借阅合法
func (s *loanService) UpdateLoan(id int64, req *domain.UpdateLoanRequest) (*domain.Loan, error) {
	if req.ExpectedReturnDate == nil {
		return s.GetLoanByID(id)
	}

	loan, err := s.GetLoanByID(id)
	if err != nil {
		return nil, err
	}

	if !req.ExpectedReturnDate.After(loan.LoanDate) {
		return nil, ErrInvalidReturnDate
	}

	if err := s.loanRepo.UpdateExpectedReturn(id, *req.ExpectedReturnDate); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, ErrLoanNotFound
		case errors.Is(err, repo.ErrLoanNotActive):
			return nil, ErrLoanNotActive
		}
		s.logger.Error("failed to update loan", zap.Int64("loan_id", id), zap.Error(err))
		return nil, fmt.Errorf("update loan: %w", err)
	}

	loan.ExpectedReturnDate = *req.ExpectedReturnDate

	s.logger.Info("loan updated", zap.Int64("loan_id", id))

	return loan, nil
}

// ListLoans 分页查询借阅列表
func (s *loanService) ListLoans(req *domain.LoanListRequest) (*domain.LoanListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	loans, total, err := s.loanRepo.List(req)
	if err != nil {
		s.logger.Error("failed to list loans", zap.Error(err))
		return nil, fmt.Errorf("list loans: %w", err)
	}

	return &domain.LoanListResponse{
		Loans:    loans,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// ListOverdueLoans 返回按日期计算的逾期视图
// 只读查询，不改变任何借阅的状态
func (s *loanService) ListOverdueLoans() ([]*domain.LoanDetail, error) {
	details, err := s.loanRepo.ListOverdue(time.Now())
	if err != nil {
		s.logger.Error("failed to list overdue loans", zap.Error(err))
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}

	return details, nil
}

// SweepOverdueLoans 扫描逾期视图并把命中的借阅逐条转入 overdue 状态
// 扫描和标记之间借阅可能已被归还，这类记录跳过不计入 Marked
func (s *loanService) SweepOverdueLoans() (*domain.OverdueSweepResult, error) {
	details, err := s.loanRepo.ListOverdue(time.Now())
	if err != nil {
		s.logger.Error("failed to list overdue loans", zap.Error(err))
		return nil, fmt.Errorf("list overdue loans: %w", err)
	}

	result := &domain.OverdueSweepResult{Scanned: len(details)}
	for _, detail := range details {
		err := s.loanRepo.MarkOverdue(detail.ID)
		if err != nil {
			if errors.Is(err, repo.ErrNotFound) || errors.Is(err, repo.ErrLoanNotActive) {
				continue
			}
			s.logger.Error("failed to mark loan overdue during sweep",
				zap.Int64("loan_id", detail.ID), zap.Error(err))
			return nil, fmt.Errorf("mark loan %d overdue: %w", detail.ID, err)
		}
		result.Marked++
	}

	s.logger.Info("overdue sweep finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("marked", result.Marked),
	)

	return result, nil
}

// GetLoanStats 统计各状态借阅数量
func (s *loanService) GetLoanStats() (*domain.LoanStats, error) {
	stats, err := s.loanRepo.Stats()
	if err != nil {
		s.logger.Error("failed to get loan stats", zap.Error(err))
		return nil, fmt.Errorf("get loan stats: %w", err)
	}

	return stats, nil
}

// invalidateBook 库存变化后清除图书缓存
func (s *loanService) invalidateBook(bookID int64) {
	if s.invalidator != nil {
		s.invalidator.InvalidateBook(bookID)
	}
}
