// Package repo 实现借阅数据访问层。
// 借阅与库存的一致性在这里保证：创建借阅和登记归还都在单个数据库事务内
// 完成借阅行变更与图书库存增减，条件更新配合 RowsAffected 检查
// 消除"检查后再扣减"的竞态。
package repo

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MorseWayne/library_api/internal/database"
	"github.com/MorseWayne/library_api/internal/domain"
)

// ErrLoanNotActive 表示借阅不处于借出中状态
// 归还、标记逾期、修改归还日期都只对 active 借阅合法
var ErrLoanNotActive = errors.New("repo: loan is not active")

// LoanRepository 定义借阅数据访问接口
type LoanRepository interface {
	// CreateWithDecrement 在单个事务内扣减图书库存并创建借阅记录
	// 图书不存在返回 ErrNotFound，没有可借副本返回 ErrBookUnavailable，事务回滚
	CreateWithDecrement(loan *domain.Loan) error

	// RegisterReturn 在单个事务内将 active 借阅置为 returned 并恢复库存
	// 借阅不存在返回 ErrNotFound，不处于 active 返回 ErrLoanNotActive
	RegisterReturn(id int64, returnedAt time.Time) error

	// MarkOverdue 将 active 借阅显式标记为 overdue，不影响库存
	MarkOverdue(id int64) error

	GetByID(id int64) (*domain.Loan, error)
	GetDetailByID(id int64) (*domain.LoanDetail, error)
	UpdateExpectedReturn(id int64, expectedReturnDate time.Time) error
	List(req *domain.LoanListRequest) ([]*domain.Loan, int64, error)

	// ListOverdue 返回按日期计算的逾期视图：
	// status 仍为 active 但预计归还日期已过的借阅
	ListOverdue(now time.Time) ([]*domain.LoanDetail, error)

	HasActiveLoan(userID, bookID int64) (bool, error)
	Stats() (*domain.LoanStats, error)
}

// loanRepo 实现LoanRepository接口
type loanRepo struct {
	db *database.DB
}

// NewLoanRepository 创建借阅仓储实例
func NewLoanRepository(db *database.DB) LoanRepository {
	return &loanRepo{db: db}
}

// CreateWithDecrement 扣减库存并创建借阅，整体原子
func (r *loanRepo) CreateWithDecrement(loan *domain.Loan) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 条件扣减：只有还有可借副本时才会命中行
	// 并发借阅同一本书时数据库行锁保证只有库存允许的请求成功
	decrement := `
		UPDATE books
		SET available_copies = available_copies - 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND available_copies > 0
	`

	result, err := tx.Exec(decrement, loan.BookID)
	if err != nil {
		return fmt.Errorf("decrement available copies: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		// 没命中行有两种情况：图书不存在或库存耗尽，
		// 在同一事务内做存在性检查区分两者
		var count int64
		if err := tx.QueryRow(`SELECT COUNT(*) FROM books WHERE id = ?`, loan.BookID).Scan(&count); err != nil {
			return fmt.Errorf("check book existence: %w", err)
		}
		if count == 0 {
			return ErrNotFound
		}
		return ErrBookUnavailable
	}

	insert := `
		INSERT INTO loans (user_id, book_id, loan_date, expected_return_date, status)
		VALUES (?, ?, ?, ?, ?)
	`

	insertResult, err := tx.Exec(insert,
		loan.UserID,
		loan.BookID,
		loan.LoanDate,
		loan.ExpectedReturnDate,
		string(domain.LoanStatusActive),
	)
	if err != nil {
		return fmt.Errorf("insert loan: %w", err)
	}

	id, err := insertResult.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	loan.ID = id
	loan.Status = domain.LoanStatusActive
	return nil
}

// RegisterReturn 登记归还：active → returned 并恢复库存，整体原子
func (r *loanRepo) RegisterReturn(id int64, returnedAt time.Time) error {
	tx, err := r.db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	// 先锁定借阅行，拿到book_id并确认状态
	var bookID int64
	var status string
	lock := `SELECT book_id, status FROM loans WHERE id = ? FOR UPDATE`
	err = tx.QueryRow(lock, id).Scan(&bookID, &status)
	if err != nil {
		if err == sql.ErrNoRows {
			return ErrNotFound
		}
		return fmt.Errorf("lock loan: %w", err)
	}

	if status != string(domain.LoanStatusActive) {
		return ErrLoanNotActive
	}

	// 守卫条件重复检查状态，即使锁逻辑出错也不会重复归还
	update := `
		UPDATE loans
		SET status = ?, actual_return_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := tx.Exec(update,
		string(domain.LoanStatusReturned),
		returnedAt,
		id,
		string(domain.LoanStatusActive),
	)
	if err != nil {
		return fmt.Errorf("update loan status: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		return ErrLoanNotActive
	}

	increment := `
		UPDATE books
		SET available_copies = available_copies + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`

	if _, err := tx.Exec(increment, bookID); err != nil {
		return fmt.Errorf("increment available copies: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	return nil
}

// MarkOverdue 显式标记逾期：active → overdue，不触碰库存
func (r *loanRepo) MarkOverdue(id int64) error {
	query := `
		UPDATE loans
		SET status = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Exec(query,
		string(domain.LoanStatusOverdue),
		id,
		string(domain.LoanStatusActive),
	)
	if err != nil {
		return fmt.Errorf("mark loan overdue: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		// 区分不存在和状态不合法
		exists, err := r.exists(id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrLoanNotActive
	}

	return nil
}

// GetByID 根据ID查询借阅
func (r *loanRepo) GetByID(id int64) (*domain.Loan, error) {
	loan := &domain.Loan{}
	query := `
		SELECT id, user_id, book_id, loan_date, expected_return_date, actual_return_date, status, created_at, updated_at
		FROM loans WHERE id = ?
	`

	err := r.db.QueryRow(query, id).Scan(
		&loan.ID,
		&loan.UserID,
		&loan.BookID,
		&loan.LoanDate,
		&loan.ExpectedReturnDate,
		&loan.ActualReturnDate,
		&loan.Status,
		&loan.CreatedAt,
		&loan.UpdatedAt,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 借阅不存在
		}
		return nil, fmt.Errorf("get loan by id: %w", err)
	}

	return loan, nil
}

// GetDetailByID 查询借阅及用户、图书名称
func (r *loanRepo) GetDetailByID(id int64) (*domain.LoanDetail, error) {
	detail := &domain.LoanDetail{}
	query := `
		SELECT l.id, l.user_id, l.book_id, l.loan_date, l.expected_return_date, l.actual_return_date,
		       l.status, l.created_at, l.updated_at, u.name, b.title
		FROM loans l
		JOIN users u ON l.user_id = u.id
		JOIN books b ON l.book_id = b.id
		WHERE l.id = ?
	`

	err := r.db.QueryRow(query, id).Scan(
		&detail.ID,
		&detail.UserID,
		&detail.BookID,
		&detail.LoanDate,
		&detail.ExpectedReturnDate,
		&detail.ActualReturnDate,
		&detail.Status,
		&detail.CreatedAt,
		&detail.UpdatedAt,
		&detail.UserName,
		&detail.BookTitle,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil // 借阅不存在
		}
		return nil, fmt.Errorf("get loan detail by id: %w", err)
	}

	return detail, nil
}

// UpdateExpectedReturn 调整预计归还日期，只对 active 借阅合法
func (r *loanRepo) UpdateExpectedReturn(id int64, expectedReturnDate time.Time) error {
	query := `
		UPDATE loans
		SET expected_return_date = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND status = ?
	`

	result, err := r.db.Exec(query, expectedReturnDate, id, string(domain.LoanStatusActive))
	if err != nil {
		return fmt.Errorf("update expected return date: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("get affected rows: %w", err)
	}

	if affected == 0 {
		exists, err := r.exists(id)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrLoanNotActive
	}

	return nil
}

// List 分页查询借阅列表
func (r *loanRepo) List(req *domain.LoanListRequest) ([]*domain.Loan, int64, error) {
	var conditions []string
	var args []interface{}

	if req.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *req.UserID)
	}

	if req.BookID != nil {
		conditions = append(conditions, "book_id = ?")
		args = append(args, *req.BookID)
	}

	if req.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, string(*req.Status))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	var total int64
	countQuery := fmt.Sprintf("SELECT COUNT(*) FROM loans %s", where)
	if err := r.db.QueryRow(countQuery, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count loans: %w", err)
	}

	query := fmt.Sprintf(`
		SELECT id, user_id, book_id, loan_date, expected_return_date, actual_return_date, status, created_at, updated_at
		FROM loans %s
		ORDER BY loan_date DESC, id DESC
		LIMIT ? OFFSET ?
	`, where)

	args = append(args, req.PageSize, (req.Page-1)*req.PageSize)
	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("query loans: %w", err)
	}
	defer rows.Close()

	loans, err := scanLoans(rows)
	if err != nil {
		return nil, 0, err
	}

	return loans, total, nil
}

// ListOverdue 返回按日期计算的逾期借阅
// 这里不改数据，显式标记逾期走 MarkOverdue
func (r *loanRepo) ListOverdue(now time.Time) ([]*domain.LoanDetail, error) {
	query := `
		SELECT l.id, l.user_id, l.book_id, l.loan_date, l.expected_return_date, l.actual_return_date,
		       l.status, l.created_at, l.updated_at, u.name, b.title
		FROM loans l
		JOIN users u ON l.user_id = u.id
		JOIN books b ON l.book_id = b.id
		WHERE l.status = ? AND l.expected_return_date < ?
		ORDER BY l.expected_return_date ASC, l.id ASC
	`

	rows, err := r.db.Query(query, string(domain.LoanStatusActive), now)
	if err != nil {
		return nil, fmt.Errorf("query overdue loans: %w", err)
	}
	defer rows.Close()

	var details []*domain.LoanDetail
	for rows.Next() {
		detail := &domain.LoanDetail{}
		err := rows.Scan(
			&detail.ID,
			&detail.UserID,
			&detail.BookID,
			&detail.LoanDate,
			&detail.ExpectedReturnDate,
			&detail.ActualReturnDate,
			&detail.Status,
			&detail.CreatedAt,
			&detail.UpdatedAt,
			&detail.UserName,
			&detail.BookTitle,
		)
		if err != nil {
			return nil, fmt.Errorf("scan overdue loan: %w", err)
		}
		details = append(details, detail)
	}

	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate overdue loans: %w", err)
	}

	return details, nil
}

// HasActiveLoan 判断用户是否已借出某本图书且未归还
func (r *loanRepo) HasActiveLoan(userID, bookID int64) (bool, error) {
	var count int64
	query := `SELECT COUNT(*) FROM loans WHERE user_id = ? AND book_id = ? AND status = ?`

	err := r.db.QueryRow(query, userID, bookID, string(domain.LoanStatusActive)).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check active loan: %w", err)
	}

	return count > 0, nil
}

// Stats 统计各状态借阅数量
func (r *loanRepo) Stats() (*domain.LoanStats, error) {
	stats := &domain.LoanStats{}
	query := `
		SELECT COUNT(*),
		       COALESCE(SUM(status = 'active'), 0),
		       COALESCE(SUM(status = 'returned'), 0),
		       COALESCE(SUM(status = 'overdue'), 0)
		FROM loans
	`

	err := r.db.QueryRow(query).Scan(&stats.Total, &stats.Active, &stats.Returned, &stats.Overdue)
	if err != nil {
		return nil, fmt.Errorf("query loan stats: %w", err)
	}

	return stats, nil
}

// exists 检查借阅记录是否存在
func (r *loanRepo) exists(id int64) (bool, error) {
	var count int64
	if err := r.db.QueryRow(`SELECT COUNT(*) FROM loans WHERE id = ?`, id).Scan(&count); err != nil {
		return false, fmt.Errorf("check loan existence: %w", err)
	}
	return count > 0, nil
}

// scanLoans 从结果集读取借阅列表
func scanLoans(rows *sql.Rows) ([]*domain.Loan, error) {
	var loans []*domain.Loan
	for rows.Next() {
		loan := &domain.Loan{}
		err := rows.Scan(
			&loan.ID,
			&loan.UserID,
			&loan.BookID,
			&loan.LoanDate,
			&loan.ExpectedReturnDate,
			&loan.ActualReturnDate,
			&loan.Status,
			&loan.CreatedAt,
			&loan.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scan loan: %w", err)
		}
		loans = append(loans, loan)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate loans: %w", err)
	}

	return loans, nil
}
