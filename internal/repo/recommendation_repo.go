// Package repo 实现推荐候选数据访问层。
// 推荐算法本身在服务层，这里只负责偏好统计和候选图书查询。
package repo

import (
	"fmt"
	"strings"

	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/domain"
)

// RecommendationRepository 定义推荐数据访问接口
type RecommendationRepository interface {
	// FavoriteCategories 按借阅次数统计用户偏好分类
	// 并列时按分类ID升序，保证结果确定
	FavoriteCategories(userID int64, limit int) ([]*domain.PreferenceCount, error)

	// FavoriteAuthors 按借阅次数统计用户偏好作者
	FavoriteAuthors(userID int64, limit int) ([]*domain.PreferenceCount, error)

	// BorrowedBookIDs 返回用户借阅过的所有图书ID（任意状态）
	BorrowedBookIDs(userID int64) ([]int64, error)

	// AvailableByCategories 查询指定分类下有库存、且不在排除列表中的图书
	AvailableByCategories(categoryIDs, excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error)

	// AvailableByAuthors 查询指定作者名下有库存、且不在排除列表中的图书
	AvailableByAuthors(authorIDs, excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error)

	// RecentAvailable 查询最近入库的有库存图书，用于冷启动
	RecentAvailable(excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error)
}

// recommendationRepo 实现RecommendationRepository接口
type recommendationRepo struct {
	db *database.DB
}

// NewRecommendationRepository 创建推荐仓储实例
func NewRecommendationRepository(db *database.DB) RecommendationRepository {
	return &recommendationRepo{db: db}
}

// FavoriteCategories 统计用户借阅最多的分类
func (r *recommendationRepo) FavoriteCategories(userID int64, limit int) ([]*domain.PreferenceCount, error) {
	query := `
		SELECT c.id, c.name, COUNT(*) AS total
		FROM loans l
		JOIN books b ON l.book_id = b.id
		JOIN categories c ON b.category_id = c.id
		WHERE l.user_id = ?
		GROUP BY c.id, c.name
		ORDER BY total DESC, c.id ASC
		LIMIT ?
	`

	return r.queryPreferences(query, userID, limit)
}

// FavoriteAuthors 统计用户借阅最多的作者
func (r *recommendationRepo) FavoriteAuthors(userID int64, limit int) ([]*domain.PreferenceCount, error) {
	query := `
		SELECT a.id, a.name, COUNT(*) AS total
		FROM loans l
		JOIN books b ON l.book_id = b.id
		JOIN authors a ON b.author_id = a.id
		WHERE l.user_id = ?
		GROUP BY a.id, a.name
		ORDER BY total DESC, a.id ASC
		LIMIT ?
	`

	return r.queryPreferences(query, userID, limit)
}

// BorrowedBookIDs 返回用户的全部历史借阅图书ID
// 推荐结果要排除用户接触过的书，不管归还与否
func (r *recommendationRepo) BorrowedBookIDs(userID int64) ([]int64, error) {
	query := `SELECT DISTINCT book_id FROM loans WHERE user_id = ?`

	rows, err := r.db.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("query borrowed book ids: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan book id: %w", err)
		}
		ids = append(ids, id)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate book ids: %w", err)
	}

	return ids, nil
}

// AvailableByCategories 按分类查询候选图书
func (r *recommendationRepo) AvailableByCategories(categoryIDs, excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error) {
	if len(categoryIDs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(categoryIDs)+len(excludeBookIDs)+1)

	sb.WriteString(`
		SELECT b.id, b.title, b.synopsis, b.publication_year, b.available_copies,
		       b.category_id, b.author_id, b.created_at, b.updated_at,
		       c.name, a.name
		FROM books b
		JOIN categories c ON b.category_id = c.id
		JOIN authors a ON b.author_id = a.id
		WHERE b.available_copies > 0
	`)

	sb.WriteString(" AND b.category_id IN (" + placeholders(len(categoryIDs)) + ")")
	for _, id := range categoryIDs {
		args = append(args, id)
	}

	if len(excludeBookIDs) > 0 {
		sb.WriteString(" AND b.id NOT IN (" + placeholders(len(excludeBookIDs)) + ")")
		for _, id := range excludeBookIDs {
			args = append(args, id)
		}
	}

	sb.WriteString(" ORDER BY b.created_at DESC, b.id ASC LIMIT ?")
	args = append(args, limit)

	return r.queryBookDetails(sb.String(), args...)
}

// AvailableByAuthors 按作者查询候选图书
func (r *recommendationRepo) AvailableByAuthors(authorIDs, excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error) {
	if len(authorIDs) == 0 {
		return nil, nil
	}

	var sb strings.Builder
	args := make([]interface{}, 0, len(authorIDs)+len(excludeBookIDs)+1)

	sb.WriteString(`
		SELECT b.id, b.title, b.synopsis, b.publication_year, b.available_copies,
		       b.category_id, b.author_id, b.created_at, b.updated_at,
		       c.name, a.name
		FROM books b
		JOIN categories c ON b.category_id = c.id
		JOIN authors a ON b.author_id = a.id
		WHERE b.available_copies > 0
	`)

	sb.WriteString(" AND b.author_id IN (" + placeholders(len(authorIDs)) + ")")
	for _, id := range authorIDs {
		args = append(args, id)
	}

	if len(excludeBookIDs) > 0 {
		sb.WriteString(" AND b.id NOT IN (" + placeholders(len(excludeBookIDs)) + ")")
		for _, id := range excludeBookIDs {
			args = append(args, id)
		}
	}

	sb.WriteString(" ORDER BY b.created_at DESC, b.id ASC LIMIT ?")
	args = append(args, limit)

	return r.queryBookDetails(sb.String(), args...)
}

// RecentAvailable 最近入库的有库存图书，冷启动候选
func (r *recommendationRepo) RecentAvailable(excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error) {
	var sb strings.Builder
	args := make([]interface{}, 0, len(excludeBookIDs)+1)

	sb.WriteString(`
		SELECT b.id, b.title, b.synopsis, b.publication_year, b.available_copies,
		       b.category_id, b.author_id, b.created_at, b.updated_at,
		       c.name, a.name
		FROM books b
		JOIN categories c ON b.category_id = c.id
		JOIN authors a ON b.author_id = a.id
		WHERE b.available_copies > 0
	`)

	if len(excludeBookIDs) > 0 {
		sb.WriteString(" AND b.id NOT IN (" + placeholders(len(excludeBookIDs)) + ")")
		for _, id := range excludeBookIDs {
			args = append(args, id)
		}
	}

	sb.WriteString(" ORDER BY b.created_at DESC, b.id ASC LIMIT ?")
	args = append(args, limit)

	return r.queryBookDetails(sb.String(), args...)
}

// queryPreferences 执行偏好统计查询
func (r *recommendationRepo) queryPreferences(query string, userID int64, limit int) ([]*domain.PreferenceCount, error) {
	rows, err := r.db.Query(query, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("query preferences: %w", err)
	}
	defer rows.Close()

	var prefs []*domain.PreferenceCount
	for rows.Next() {
		pref := &domain.PreferenceCount{}
		if err := rows.Scan(&pref.ID, &pref.Name, &pref.Total); err != nil {
			return nil, fmt.Errorf("scan preference: %w", err)
		}
		prefs = append(prefs, pref)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate preferences: %w", err)
	}

	return prefs, nil
}

// queryBookDetails 执行候选图书查询
func (r *recommendationRepo) queryBookDetails(query string, args ...interface{}) ([]*domain.BookDetail, error) {
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query candidate books: %w", err)
	}
	defer rows.Close()

	var details []*domain.BookDetail
	for rows.Next() {
		detail := &domain.BookDetail{}
		err := rows.Scan(
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
			return nil, fmt.Errorf("scan candidate book: %w", err)
		}
		details = append(details, detail)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate candidate books: %w", err)
	}

	return details, nil
}

// placeholders 生成 n 个逗号分隔的占位符
func placeholders(n int) string {
	return strings.Repeat("?,", n-1) + "?"
}
