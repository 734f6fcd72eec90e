// Package repo 实现作者数据访问层。
package repo

import (
	"database/sql"
	"fmt"
	"strings"

	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/domain"
)

// AuthorRepository 定义作者数据访问接口
type AuthorRepository interface {
	Create(author *domain.Author) error
	GetByID(id int64) (*domain.Author, error)
	Update(author *domain.Author) error
	Delete(id int64) error
	List(req *domain.AuthorListRequest) ([]*domain.Author, int64, error)
}

// authorRepo 实现AuthorRepository接口
type authorRepo struct {
	db *database.DB
}

// NewAuthorRepository 创建作者仓储实例
func NewAuthorRepository(db *database.DB) AuthorRepository {
	return &authorRepo{db: db}
}

// Create 创建作者
func (r *authorRepo) Create(author *domain.Author) error {
	query := `
		INSERT INTO authors (name, biography, birth_date, nationality)
		VALUES (?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		author.Name,
		author.Biography,
		author.BirthDate,
		author.Nationality,
	)
	if err != nil {
		return fmt.Errorf("create author: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	author.ID = id
	return nil
}

// GetByID 根据ID查询作者
func (r *authorRepo) GetByID(id int64) (*domain.Author, error) {
	author := &domain.Author{}
	query := `
		SELECT id, name, biography, birth_date, nationality, created_at, updated_at
		FROM authors WHERE id = ?
	`

	err := r.db.QueryRow(query, id).Scan(
		&author.ID,
		&author.Name,
		&author.Biography,
		&author.BirthDate,
		&author.Nationality,
		&author.CreatedAt,
		&author.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 作者不存在
		}
		return nil, fmt.Errorf("get author by id: %w", err)
	}

	return author, nil
}

// Update 更新作者信息
func (r *authorRepo) Update(author *domain.Author) error {
	query := `
		UPDATE authors
		SET name = ?, biography = ?, birth_date = ?, nationality = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		author.Name,
		author.Biography,
		author.BirthDate,
		author.Nationality,
		author.ID,
	)
	if err != nil {
		return fmt.Errorf("update author: %w", err)
	}

	return nil
}

// Delete 删除作者
// 是否允许删除（还有图书引用时拒绝）由服务层校验
func (r *authorRepo) Delete(id int64) error {
	query := `DELETE FROM authors WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("delete author: %w", err)
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

// List 分页查询作者列表，支持名称模糊过滤
func (r *authorRepo) List(req *domain.AuthorListRequest) ([]*domain.Author, int64, error) {
	var conditions []string
	var args []interface{}

	if req.Name != nil && *req.Name != "" {
		conditions = append(conditions, "name LIKE ?")
		args = append(args, "%"+*req.Name+"%")
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM authors %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count authors: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, name, biography, birth_date, nationality, created_at, updated_at
		FROM authors %s
		ORDER BY name ASC, id ASC
		LIMIT ? OFFSET ?
	`, where)

	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query authors: %w", err)
	}
	defer rows.Close()

	var authors []*domain.Author
	for rows.Next() {
		author := &domain.Author{}
		err := rows.Scan(
			&author.ID,
			&author.Name,
			&author.Biography,
			&author.BirthDate,
			&author.Nationality,
			&author.CreatedAt,
			&author.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan author: %w", err)
		}
		authors = append(authors, author)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate authors: %w", err)
	}

	return authors, total, nil
}
