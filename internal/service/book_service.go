// Package service 实现图书管理业务逻辑。
package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

// 图书相关业务错误
var (
	ErrBookNotFound       = errors.New("book not found")
	ErrBookHasActiveLoans = errors.New("book has active loans")
	ErrInvalidCopies      = errors.New("available copies cannot be negative")
)

// BookService 定义图书服务接口
type BookService interface {
	CreateBook(req *domain.CreateBookRequest) (*domain.Book, error)
	GetBookByID(id int64) (*domain.Book, error)
	GetBookDetail(id int64) (*domain.BookDetail, error)
	UpdateBook(id int64, req *domain.UpdateBookRequest) (*domain.Book, error)
	DeleteBook(id int64) error
	ListBooks(req *domain.BookListRequest) (*domain.BookListResponse, error)
}

// bookService 是 BookService 接口的实现
type bookService struct {
	bookRepo     repo.BookRepository
	categoryRepo repo.CategoryRepository
	authorRepo   repo.AuthorRepository
	loanRepo     repo.LoanRepository
	logger       *zap.Logger
}

// NewBookService 创建图书服务实例
func NewBookService(
	bookRepo repo.BookRepository,
	categoryRepo repo.CategoryRepository,
	authorRepo repo.AuthorRepository,
	loanRepo repo.LoanRepository,
	logger *zap.Logger,
) BookService {
	return &bookService{
		bookRepo:     bookRepo,
		categoryRepo: categoryRepo,
		authorRepo:   authorRepo,
		loanRepo:     loanRepo,
		logger:       logger,
	}
}

// CreateBook 创建图书
// 业务规则：
// 1. 分类和作者必须已存在
// 2. 初始可借副本数不能为负
func (s *bookService) CreateBook(req *domain.CreateBookRequest) (*domain.Book, error) {
	if req.AvailableCopies < 0 {
		return nil, ErrInvalidCopies
	}

	if err := s.checkReferences(req.CategoryID, req.AuthorID); err != nil {
		return nil, err
	}

	book := &domain.Book{
		Title:           req.Title,
		Synopsis:        req.Synopsis,
		PublicationYear: req.PublicationYear,
		AvailableCopies: req.AvailableCopies,
		CategoryID:      req.CategoryID,
		AuthorID:        req.AuthorID,
	}

	if err := s.bookRepo.Create(book); err != nil {
		s.logger.Error("failed to create book", zap.Error(err))
		return nil, fmt.Errorf("create book: %w", err)
	}

	s.logger.Info("book created",
		zap.Int64("book_id", book.ID),
		zap.String("title", book.Title),
		zap.Int("available_copies", book.AvailableCopies),
	)

	return book, nil
}

// GetBookByID 根据ID获取图书
func (s *bookService) GetBookByID(id int64) (*domain.Book, error) {
	book, err := s.bookRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get book", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get book: %w", err)
	}

	if book == nil {
		return nil, ErrBookNotFound
	}

	return book, nil
}

// GetBookDetail 获取图书详情（含分类、作者名称）
func (s *bookService) GetBookDetail(id int64) (*domain.BookDetail, error) {
	detail, err := s.bookRepo.GetDetailByID(id)
	if err != nil {
		s.logger.Error("failed to get book detail", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get book detail: %w", err)
	}

	if detail == nil {
		return nil, ErrBookNotFound
	}

	return detail, nil
}

// UpdateBook 更新图书信息
// 管理员可以直接修正 available_copies（如盘点后调整），
// 借阅驱动的库存变化不经过这里
func (s *bookService) UpdateBook(id int64, req *domain.UpdateBookRequest) (*domain.Book, error) {
	book, err := s.GetBookByID(id)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		book.Title = *req.Title
	}
	if req.Synopsis != nil {
		book.Synopsis = req.Synopsis
	}
	if req.PublicationYear != nil {
		book.PublicationYear = *req.PublicationYear
	}
	if req.AvailableCopies != nil {
		if *req.AvailableCopies < 0 {
			return nil, ErrInvalidCopies
		}
		book.AvailableCopies = *req.AvailableCopies
	}

	categoryID := book.CategoryID
	authorID := book.AuthorID
	if req.CategoryID != nil {
		categoryID = *req.CategoryID
	}
	if req.AuthorID != nil {
		authorID = *req.AuthorID
	}
	if categoryID != book.CategoryID || authorID != book.AuthorID {
		if err := s.checkReferences(categoryID, authorID); err != nil {
			return nil, err
		}
		book.CategoryID = categoryID
		book.AuthorID = authorID
	}

	if err := s.bookRepo.Update(book); err != nil {
		s.logger.Error("failed to update book", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("update book: %w", err)
	}

	s.logger.Info("book updated", zap.Int64("book_id", book.ID))

	return book, nil
}

// DeleteBook 删除图书
// 还有未归还借阅时拒绝删除
func (s *bookService) DeleteBook(id int64) error {
	req := &domain.LoanListRequest{
		Page:     1,
		PageSize: 1,
		BookID:   &id,
	}
	active := domain.LoanStatusActive
	req.Status = &active

	_, total, err := s.loanRepo.List(req)
	if err != nil {
		s.logger.Error("failed to check active loans", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("check active loans: %w", err)
	}
	if total > 0 {
		return ErrBookHasActiveLoans
	}

	if err := s.bookRepo.Delete(id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrBookNotFound
		}
		s.logger.Error("failed to delete book", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete book: %w", err)
	}

	s.logger.Info("book deleted", zap.Int64("book_id", id))

	return nil
}

// ListBooks 分页查询图书列表
func (s *bookService) ListBooks(req *domain.BookListRequest) (*domain.BookListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	books, total, err := s.bookRepo.List(req)
	if err != nil {
		s.logger.Error("failed to list books", zap.Error(err))
		return nil, fmt.Errorf("list books: %w", err)
	}

	return &domain.BookListResponse{
		Books:    books,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// checkReferences 校验分类和作者存在
func (s *bookService) checkReferences(categoryID, authorID int64) error {
	category, err := s.categoryRepo.GetByID(categoryID)
	if err != nil {
		s.logger.Error("failed to check category", zap.Int64("category_id", categoryID), zap.Error(err))
		return fmt.Errorf("check category: %w", err)
	}
	if category == nil {
		return ErrCategoryNotFound
	}

	author, err := s.authorRepo.GetByID(authorID)
	if err != nil {
		s.logger.Error("failed to check author", zap.Int64("author_id", authorID), zap.Error(err))
		return fmt.Errorf("check author: %w", err)
	}
	if author == nil {
		return ErrAuthorNotFound
	}

	return nil
}
