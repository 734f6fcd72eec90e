// Package repo 实现图书数据访问层，包含库存守卫更新。
package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/domain"
)

// ErrBookUnavailable 表示图书没有可借副本
// 条件更新影响0行时返回，调用方据此返回库存耗尽错误
var ErrBookUnavailable = errors.New("repo: no available copies")

// BookRepository 定义图书数据访问接口
type BookRepository interface {
	Create(book *domain.Book) error
	GetByID(id int64) (*domain.Book, error)
	GetDetailByID(id int64) (*domain.BookDetail, error)
	Update(book *domain.Book) error
	Delete(id int64) error
	List(req *domain.BookListRequest) ([]*domain.Book, int64, error)

	// 引用计数，服务层删除作者/分类前校验用
	CountByCategory(categoryID int64) (int64, error)
	CountByAuthor(authorID int64) (int64, error)
}

// bookRepo 实现BookRepository接口
type bookRepo struct {
	db *database.DB
}

// NewBookRepository 创建图书仓储实例
func NewBookRepository(db *database.DB) BookRepository {
	return &bookRepo{db: db}
}

// Create 创建图书
func (r *bookRepo) Create(book *domain.Book) error {
	query := `
		INSERT INTO books (title, synopsis, publication_year, available_copies, category_id, author_id)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := r.db.Exec(query,
		book.Title,
		book.Synopsis,
		book.PublicationYear,
		book.AvailableCopies,
		book.CategoryID,
		book.AuthorID,
	)
	if err != nil {
		return fmt.Errorf("create book: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	book.ID = id
	return nil
}

// GetByID 根据ID查询图书
func (r *bookRepo) GetByID(id int64) (*domain.Book, error) {
	book := &domain.Book{}
	query := `
		SELECT id, title, synopsis, publication_year, available_copies, category_id, author_id, created_at, updated_at
		FROM books WHERE id = ?
	`

	err := r.db.QueryRow(query, id).Scan(
		&book.ID,
		&book.Title,
		&book.Synopsis,
		&book.PublicationYear,
		&book.AvailableCopies,
		&book.CategoryID,
		&book.AuthorID,
		&book.CreatedAt,
		&book.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 图书不存在
		}
		return nil, fmt.Errorf("get book by id: %w", err)
	}

	return book, nil
}

// GetDetailByID 查询图书及其分类、作者名称
func (r *bookRepo) GetDetailByID(id int64) (*domain.BookDetail, error) {
	detail := &domain.BookDetail{}
	query := `
		SELECT b.id, b.title, b.synopsis, b.publication_year, b.available_copies,
		       b.category_id, b.author_id, b.created_at, b.updated_at,
		       c.name, a.name
		FROM books b
		JOIN categories c ON b.category_id = c.id
		JOIN authors a ON b.author_id = a.id
		WHERE b.id = ?
	`

	err := r.db.QueryRow(query, id).Scan(
		&detail.ID,
		&detail.Title,
		&detail.Synopsis,
		&detail.PublicationYear,
		&detail.AvailableCopies,
		&detail.CategoryID,
		&detail.AuthorID,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.CategoryName,
		&detail.AuthorName,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 图书不存在
		}
		return nil, fmt.Errorf("get book detail by id: %w", err)
	}

	return detail, nil
}

// Update 更新图书信息
// available_copies 的常规更新走这里（管理员修正库存），
// 借阅驱动的增减走 LoanRepository 的事务方法
func (r *bookRepo) Update(book *domain.Book) error {
	query := `
		UPDATE books
		SET title = ?, synopsis = ?, publication_year = ?, available_copies = ?,
		    category_id = ?, author_id = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	_, err := r.db.Exec(query,
		book.Title,
		book.Synopsis,
		book.PublicationYear,
		book.AvailableCopies,
		book.CategoryID,
		book.AuthorID,
		book.ID,
	)
	if err != nil {
		return fmt.Errorf("update book: %w", err)
	}

	return nil
}

// Delete 删除图书
// 是否允许删除（还有活跃借阅时拒绝）由服务层校验
func (r *bookRepo) Delete(id int64) error {
	query := `DELETE FROM books WHERE id = ?`

	result, err := r.db.Exec(query, id)
	if err != nil {
		return fmt.Errorf("delete book: %w", err)
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

// List 分页查询图书列表
func (r *bookRepo) List(req *domain.BookListRequest) ([]*domain.Book, int64, error) {
	where, args := r.buildListWhereClause(req)

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM books %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count books: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, title, synopsis, publication_year, available_copies, category_id, author_id, created_at, updated_at
		FROM books %s
		ORDER BY title ASC, id ASC
		LIMIT ? OFFSET ?
	`, where)

	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query books: %w", err)
	}
	defer rows.Close()

	var books []*domain.Book
	for rows.Next() {
		book := &domain.Book{}
		err := rows.Scan(
			&book.ID,
			&book.Title,
			&book.Synopsis,
			&book.PublicationYear,
			&book.AvailableCopies,
			&book.CategoryID,
			&book.AuthorID,
			&book.CreatedAt,
			&book.UpdatedAt,
		)
		if err != nil {
			return nil, 0, fmt.Errorf("scan book: %w", err)
		}
		books = append(books, book)
	}

	if err = rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("iterate books: %w", err)
	}

	return books, total, nil
}

// CountByCategory 统计某个分类下的图书数量
func (r *bookRepo) CountByCategory(categoryID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM books WHERE category_id = ?`
	if err := r.db.QueryRow(query, categoryID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books by category: %w", err)
	}
	return count, nil
}

// CountByAuthor 统计某个作者名下的图书数量
func (r *bookRepo) CountByAuthor(authorID int64) (int64, error) {
	var count int64
	query := `SELECT COUNT(*) FROM books WHERE author_id = ?`
	if err := r.db.QueryRow(query, authorID).Scan(&count); err != nil {
		return 0, fmt.Errorf("count books by author: %w", err)
	}
	return count, nil
}

// buildListWhereClause 构建查询条件子句
func (r *bookRepo) buildListWhereClause(req *domain.BookListRequest) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if req.Title != nil && *req.Title != "" {
		conditions = append(conditions, "title LIKE ?")
		args = append(args, "%"+*req.Title+"%")
	}

	if req.CategoryID != nil {
		conditions = append(conditions, "category_id = ?")
		args = append(args, *req.CategoryID)
	}

	if req.AuthorID != nil {
		conditions = append(conditions, "author_id = ?")
		args = append(args, *req.AuthorID)
	}

	if req.OnlyAvailable {
		conditions = append(conditions, "available_copies > 0")
	}

	if len(conditions) > 0 {
		return "WHERE " + strings.Join(conditions, " AND "), args
	}

	return "", args
}
