// Package service 实现作者管理业务逻辑。
package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

// 作者相关业务错误
var (
	ErrAuthorNotFound = errors.New("author not found")
	ErrAuthorHasBooks = errors.New("author still has books")
)

// AuthorService 定义作者服务接口
type AuthorService interface {
	CreateAuthor(req *domain.CreateAuthorRequest) (*domain.Author, error)
	GetAuthorByID(id int64) (*domain.Author, error)
	UpdateAuthor(id int64, req *domain.UpdateAuthorRequest) (*domain.Author, error)
	DeleteAuthor(id int64) error
	ListAuthors(req *domain.AuthorListRequest) (*domain.AuthorListResponse, error)
}

// authorService 是 AuthorService 接口的实现
type authorService struct {
	authorRepo repo.AuthorRepository
	bookRepo   repo.BookRepository
	logger     *zap.Logger
}

// NewAuthorService 创建作者服务实例
func NewAuthorService(authorRepo repo.AuthorRepository, bookRepo repo.BookRepository, logger *zap.Logger) AuthorService {
	return &authorService{
		authorRepo: authorRepo,
		bookRepo:   bookRepo,
		logger:     logger,
	}
}

// CreateAuthor 创建作者
func (s *authorService) CreateAuthor(req *domain.CreateAuthorRequest) (*domain.Author, error) {
	author := &domain.Author{
		Name:        req.Name,
		Biography:   req.Biography,
		BirthDate:   req.BirthDate,
		Nationality: req.Nationality,
	}

	if err := s.authorRepo.Create(author); err != nil {
		s.logger.Error("failed to create author", zap.Error(err))
		return nil, fmt.Errorf("create author: %w", err)
	}

	s.logger.Info("author created",
		zap.Int64("author_id", author.ID),
		zap.String("name", author.Name),
	)

	return author, nil
}

// GetAuthorByID 根据ID获取作者
func (s *authorService) GetAuthorByID(id int64) (*domain.Author, error) {
	author, err := s.authorRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get author", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get author: %w", err)
	}

	if author == nil {
		return nil, ErrAuthorNotFound
	}

	return author, nil
}

// UpdateAuthor 更新作者信息
// 只更新请求中提供的字段
func (s *authorService) UpdateAuthor(id int64, req *domain.UpdateAuthorRequest) (*domain.Author, error) {
	author, err := s.GetAuthorByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil {
		author.Name = *req.Name
	}
	if req.Biography != nil {
		author.Biography = req.Biography
	}
	if req.BirthDate != nil {
		author.BirthDate = req.BirthDate
	}
	if req.Nationality != nil {
		author.Nationality = req.Nationality
	}

	if err := s.authorRepo.Update(author); err != nil {
		s.logger.Error("failed to update author", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("update author: %w", err)
	}

	s.logger.Info("author updated", zap.Int64("author_id", author.ID))

	return author, nil
}

// DeleteAuthor 删除作者
// 名下还有图书时拒绝删除，避免产生悬空引用
func (s *authorService) DeleteAuthor(id int64) error {
	count, err := s.bookRepo.CountByAuthor(id)
	if err != nil {
		s.logger.Error("failed to count author books", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("count author books: %w", err)
	}
	if count > 0 {
		return ErrAuthorHasBooks
	}

	if err := s.authorRepo.Delete(id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrAuthorNotFound
		}
		s.logger.Error("failed to delete author", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete author: %w", err)
	}

	s.logger.Info("author deleted", zap.Int64("author_id", id))

	return nil
}

// ListAuthors 分页查询作者列表
func (s *authorService) ListAuthors(req *domain.AuthorListRequest) (*domain.AuthorListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	authors, total, err := s.authorRepo.List(req)
	if err != nil {
		s.logger.Error("failed to list authors", zap.Error(err))
		return nil, fmt.Errorf("list authors: %w", err)
	}

	return &domain.AuthorListResponse{
		Authors:  authors,
		Total:    total,
		Page:     req.Page,
		PageSize: req.PageSize,
	}, nil
}

// normalizePage 规整分页参数
func normalizePage(page, pageSize *int) {
	if *page < 1 {
		*page = 1
	}
	if *pageSize < 1 || *pageSize > 100 {
		*pageSize = 20
	}
}
