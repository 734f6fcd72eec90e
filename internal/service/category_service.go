// Package service 实现图书分类管理业务逻辑。
package service

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

// 分类相关业务错误
var (
	ErrCategoryNotFound = errors.New("category not found")
	ErrCategoryExists   = errors.New("category name already exists")
	ErrCategoryHasBooks = errors.New("category still has books")
)

// CategoryService 定义分类服务接口
type CategoryService interface {
	CreateCategory(req *domain.CreateCategoryRequest) (*domain.Category, error)
	GetCategoryByID(id int64) (*domain.Category, error)
	UpdateCategory(id int64, req *domain.UpdateCategoryRequest) (*domain.Category, error)
	DeleteCategory(id int64) error
	ListCategories(req *domain.CategoryListRequest) (*domain.CategoryListResponse, error)
}

// categoryService 是 CategoryService 接口的实现
type categoryService struct {
	categoryRepo repo.CategoryRepository
	bookRepo     repo.BookRepository
	logger       *zap.Logger
}

// NewCategoryService 创建分类服务实例
func NewCategoryService(categoryRepo repo.CategoryRepository, bookRepo repo.BookRepository, logger *zap.Logger) CategoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
		bookRepo:     bookRepo,
		logger:       logger,
	}
}

// CreateCategory 创建分类
// 分类名称全局唯一，创建前做精确匹配查重
func (s *categoryService) CreateCategory(req *domain.CreateCategoryRequest) (*domain.Category, error) {
	existing, err := s.categoryRepo.GetByName(req.Name)
	if err != nil {
		s.logger.Error("failed to check category name", zap.Error(err))
		return nil, fmt.Errorf("check category name: %w", err)
	}
	if existing != nil {
		return nil, ErrCategoryExists
	}

	category := &domain.Category{
		Name:        req.Name,
		Description: req.Description,
	}

	if err := s.categoryRepo.Create(category); err != nil {
		s.logger.Error("failed to create category", zap.Error(err))
		return nil, fmt.Errorf("create category: %w", err)
	}

	s.logger.Info("category created",
		zap.Int64("category_id", category.ID),
		zap.String("name", category.Name),
	)

	return category, nil
}

// GetCategoryByID 根据ID获取分类
func (s *categoryService) GetCategoryByID(id int64) (*domain.Category, error) {
	category, err := s.categoryRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get category", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get category: %w", err)
	}

	if category == nil {
		return nil, ErrCategoryNotFound
	}

	return category, nil
}

// UpdateCategory 更新分类信息
// 改名时同样做唯一性查重
func (s *categoryService) UpdateCategory(id int64, req *domain.UpdateCategoryRequest) (*domain.Category, error) {
	category, err := s.GetCategoryByID(id)
	if err != nil {
		return nil, err
	}

	if req.Name != nil && *req.Name != category.Name {
		existing, err := s.categoryRepo.GetByName(*req.Name)
		if err != nil {
			s.logger.Error("failed to check category name", zap.Error(err))
			return nil, fmt.Errorf("check category name: %w", err)
		}
		if existing != nil {
			return nil, ErrCategoryExists
		}
		category.Name = *req.Name
	}

	if req.Description != nil {
		category.Description = req.Description
	}

	if err := s.categoryRepo.Update(category); err != nil {
		s.logger.Error("failed to update category", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("update category: %w", err)
	}

	s.logger.Info("category updated", zap.Int64("category_id", category.ID))

	return category, nil
}

// DeleteCategory 删除分类
// 分类下还有图书时拒绝删除
func (s *categoryService) DeleteCategory(id int64) error {
	count, err := s.bookRepo.CountByCategory(id)
	if err != nil {
		s.logger.Error("failed to count category books", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("count category books: %w", err)
	}
	if count > 0 {
		return ErrCategoryHasBooks
	}

	if err := s.categoryRepo.Delete(id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrCategoryNotFound
		}
		s.logger.Error("failed to delete category", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("delete category: %w", err)
	}

	s.logger.Info("category deleted", zap.Int64("category_id", id))

	return nil
}

// ListCategories 分页查询分类列表
func (s *categoryService) ListCategories(req *domain.CategoryListRequest) (*domain.CategoryListResponse, error) {
	normalizePage(&req.Page, &req.PageSize)

	categories, total, err := s.categoryRepo.List(req)
	if err != nil {
		s.logger.Error("failed to list categories", zap.Error(err))
		return nil, fmt.Errorf("list categories: %w", err)
	}

	return &domain.CategoryListResponse{
		Categories: categories,
		Total:      total,
		Page:       req.Page,
		PageSize:   req.PageSize,
	}, nil
}
