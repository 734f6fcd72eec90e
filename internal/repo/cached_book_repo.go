// Package repo 提供带缓存的图书仓储实现
package repo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/MorseWayne/library_api/internal/cache"
	"github.com/MorseWayne/library_api/internal/domain"
)

// CachedBookRepository 带缓存的图书仓储
// 缓存只做旁路读加速，库存数字的权威来源始终是数据库；
// 借阅创建/归还后由服务层调用 InvalidateBook 使缓存失效
type CachedBookRepository struct {
	repo  BookRepository
	cache cache.Cache
	ttl   time.Duration
}

// NewCachedBookRepository 创建带缓存的图书仓储
func NewCachedBookRepository(repo BookRepository, c cache.Cache, ttl time.Duration) *CachedBookRepository {
	return &CachedBookRepository{
		repo:  repo,
		cache: c,
		ttl:   ttl,
	}
}

// Create 创建图书（清除相关缓存）
func (r *CachedBookRepository) Create(book *domain.Book) error {
	if err := r.repo.Create(book); err != nil {
		return err
	}

	r.InvalidateBook(book.ID)
	return nil
}

// GetByID 根据ID获取图书（带缓存）
func (r *CachedBookRepository) GetByID(id int64) (*domain.Book, error) {
	ctx := context.Background()
	cacheKey := r.bookCacheKey(id)

	var book domain.Book
	err := r.cache.Get(ctx, cacheKey, &book)
	if err == nil {
		return &book, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		// 缓存故障降级为直查数据库
		return r.repo.GetByID(id)
	}

	result, err := r.repo.GetByID(id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	_ = r.cache.Set(ctx, cacheKey, result, r.ttl)

	return result, nil
}

// GetDetailByID 根据ID获取图书详情（带缓存）
func (r *CachedBookRepository) GetDetailByID(id int64) (*domain.BookDetail, error) {
	ctx := context.Background()
	cacheKey := r.bookDetailCacheKey(id)

	var detail domain.BookDetail
	err := r.cache.Get(ctx, cacheKey, &detail)
	if err == nil {
		return &detail, nil
	}
	if !errors.Is(err, cache.ErrCacheMiss) {
		return r.repo.GetDetailByID(id)
	}

	result, err := r.repo.GetDetailByID(id)
	if err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	_ = r.cache.Set(ctx, cacheKey, result, r.ttl)

	return result, nil
}

// Update 更新图书（清除相关缓存）
func (r *CachedBookRepository) Update(book *domain.Book) error {
	if err := r.repo.Update(book); err != nil {
		return err
	}

	r.InvalidateBook(book.ID)
	return nil
}

// Delete 删除图书（清除相关缓存）
func (r *CachedBookRepository) Delete(id int64) error {
	if err := r.repo.Delete(id); err != nil {
		return err
	}

	r.InvalidateBook(id)
	return nil
}

// List 获取图书列表（不缓存，参数组合太多）
func (r *CachedBookRepository) List(req *domain.BookListRequest) ([]*domain.Book, int64, error) {
	return r.repo.List(req)
}

// CountByCategory 统计分类下图书数量（不缓存）
func (r *CachedBookRepository) CountByCategory(categoryID int64) (int64, error) {
	return r.repo.CountByCategory(categoryID)
}

// CountByAuthor 统计作者名下图书数量（不缓存）
func (r *CachedBookRepository) CountByAuthor(authorID int64) (int64, error) {
	return r.repo.CountByAuthor(authorID)
}

// InvalidateBook 清除指定图书的缓存
// 借阅创建/归还改变了库存后必须调用
func (r *CachedBookRepository) InvalidateBook(id int64) {
	ctx := context.Background()
	_ = r.cache.Del(ctx, r.bookCacheKey(id), r.bookDetailCacheKey(id))
}

// 缓存键生成方法
func (r *CachedBookRepository) bookCacheKey(id int64) string {
	return fmt.Sprintf("book:id:%d", id)
}

func (r *CachedBookRepository) bookDetailCacheKey(id int64) string {
	return fmt.Sprintf("book:detail:%d", id)
}
