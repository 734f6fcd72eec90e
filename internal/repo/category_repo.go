// Package repo 实现图书分类数据访问层。
package repo

import (
	"database/sql"
	"fmt"

	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/domain"
)

// CategoryRepository 定义分类数据访问接口
type CategoryRepository interface {
	Create(category *domain.Category) error
	GetByID(id int64) (*domain.Category, error)
	GetByName(name string) (*domain.Category, error)
	Update(category *domain.Category) error
	Delete(id int64) error
	List(req *domain.CategoryListRequest) ([]*domain.Category, int64, error)
}

// categoryRepo 实现CategoryRepository接口
type categoryRepo struct {
	db *database.DB
}

// NewCategoryRepository 创建分类仓储实例
func NewCategoryRepository(db *database.DB) CategoryRepository {
	return &categoryRepo{db: db}
}

// Create 创建分类
func (r *categoryRepo) Create(category *domain.Category) error {
	query := `INSERT INTO categories (name, description) VALUES (?, ?)`

	result, err := r.db.Exec(query, category.Name, category.Description)
	if err != nil {
		return fmt.Errorf("create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	category.ID = id
	return nil
}

// GetByID 根据ID查询分类
func (r *categoryRepo) GetByID(id int64) (*domain.Category, error) {
	category := &domain.Category{}
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE id = ?
	`

	err := r.db.QueryRow(query, id).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 分类不存在
		}
		return nil, fmt.Errorf("get category by id: %w", err)
	}

	return category, nil
}

// GetByName 根据名称精确查询分类，用于创建/改名时的查重
func (r *categoryRepo) GetByName(name string) (*domain.Category, error) {
	category := &domain.Category{}
	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories WHERE name = ?
	`

	err := r.db.QueryRow(query, name).Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&category.CreatedAt,
		&category.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 分类不存在
		}
		return nil, fmt.Errorf("get category by name: %w", err)
	}

	return category, nil
}

// Update 更新分类信息
func (r *categoryRepo) Update(category *domain.Category) error {
	query := `
		UPDATE categories
		SET name = ?, description = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query, category.Name, category.Description, category.ID)
	if err != nil {
		return fmt.Errorf("update category: %w", err)
	}

	return nil
}

// Delete 删除分类
// 是否允许删除（还有图书引用时拒绝）由服务层校验
func (r *categoryRepo) Delete(id int64) error {
	query := `DELETE FROM categories WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("delete category: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		return ErrNotFound
	}

	return nil
}

// List 分页查询分类列表
func (r *categoryRepo) List(req *domain.CategoryListRequest) ([]*domain.Category, int64, error) {
	var total int64
	countQuery := `SELECT COUNT(*) FROM categories`
	if err := r.db.QueryRow(countQuery).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count categories: %w", err)
	}

	query := `
		SELECT id, name, description, created_at, updated_at
		FROM categories
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`

	rows, err := r.db.Query(query, req.PageSize, (req.Page-1)*req.PageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	var categories []*domain.Category
	for rows.Next() {
		category := &domain.Category{}
		err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&category.CreatedAt,
			&category.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, total, nil
}
