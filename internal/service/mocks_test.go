package service

import (
	"errors"
	"time"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

// Mock UserRepository for testing
type mockUserRepository struct {
	users  map[int64]*domain.User
	emails map[string]*domain.User
	nextID int64
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{
		users:  make(map[int64]*domain.User),
		emails: make(map[string]*domain.User),
		nextID: 1,
	}
}

func (m *mockUserRepository) Create(user *domain.User) error {
	if _, exists := m.emails[user.Email]; exists {
		return errors.New("email already exists")
	}

	user.ID = m.nextID
	m.nextID++

	m.users[user.ID] = user
	m.emails[user.Email] = user
	return nil
}

func (m *mockUserRepository) GetByID(id int64) (*domain.User, error) {
	user, exists := m.users[id]
	if !exists {
		return nil, nil
	}
	return user, nil
}

func (m *mockUserRepository) GetByEmail(email string) (*domain.User, error) {
	user, exists := m.emails[email]
	if !exists {
		return nil, nil
	}
	return user, nil
}

func (m *mockUserRepository) Update(user *domain.User) error {
	if _, exists := m.users[user.ID]; !exists {
		return repo.ErrNotFound
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockUserRepository) Delete(id int64) error {
	user, exists := m.users[id]
	if !exists {
		return repo.ErrNotFound
	}
	user.IsActive = false
	return nil
}

func (m *mockUserRepository) ListUsers(offset, limit int) ([]*domain.User, int64, error) {
	var users []*domain.User
	for id := int64(1); id < m.nextID; id++ {
		if user, exists := m.users[id]; exists {
			users = append(users, user)
		}
	}

	total := int64(len(users))

	start := offset
	end := offset + limit
	if start > len(users) {
		return []*domain.User{}, total, nil
	}
	if end > len(users) {
		end = len(users)
	}

	return users[start:end], total, nil
}

func (m *mockUserRepository) UpdateUserRole(userID int64, role domain.UserRole) error {
	user, exists := m.users[userID]
	if !exists {
		return repo.ErrNotFound
	}
	user.Role = role
	return nil
}

func (m *mockUserRepository) UpdateUserStatus(userID int64, isActive bool) error {
	user, exists := m.users[userID]
	if !exists {
		return repo.ErrNotFound
	}
	user.IsActive = isActive
	return nil
}

// Mock AuthorRepository for testing
type mockAuthorRepository struct {
	authors map[int64]*domain.Author
	nextID  int64
}

func newMockAuthorRepository() *mockAuthorRepository {
	return &mockAuthorRepository{
		authors: make(map[int64]*domain.Author),
		nextID:  1,
	}
}

func (m *mockAuthorRepository) Create(author *domain.Author) error {
	author.ID = m.nextID
	m.nextID++
	m.authors[author.ID] = author
	return nil
}

func (m *mockAuthorRepository) GetByID(id int64) (*domain.Author, error) {
	author, exists := m.authors[id]
	if !exists {
		return nil, nil
	}
	return author, nil
}

func (m *mockAuthorRepository) Update(author *domain.Author) error {
	if _, exists := m.authors[author.ID]; !exists {
		return repo.ErrNotFound
	}
	m.authors[author.ID] = author
	return nil
}

func (m *mockAuthorRepository) Delete(id int64) error {
	if _, exists := m.authors[id]; !exists {
		return repo.ErrNotFound
	}
	delete(m.authors, id)
	return nil
}

func (m *mockAuthorRepository) List(req *domain.AuthorListRequest) ([]*domain.Author, int64, error) {
	var result []*domain.Author
	for id := int64(1); id < m.nextID; id++ {
		if author, exists := m.authors[id]; exists {
			result = append(result, author)
		}
	}
	return result, int64(len(result)), nil
}

// Mock CategoryRepository for testing
type mockCategoryRepository struct {
	categories map[int64]*domain.Category
	nameMap    map[string]*domain.Category
	nextID     int64
}

func newMockCategoryRepository() *mockCategoryRepository {
	return &mockCategoryRepository{
		categories: make(map[int64]*domain.Category),
		nameMap:    make(map[string]*domain.Category),
		nextID:     1,
	}
}

func (m *mockCategoryRepository) Create(category *domain.Category) error {
	if _, exists := m.nameMap[category.Name]; exists {
		return errors.New("category name already exists")
	}

	category.ID = m.nextID
	m.nextID++

	m.categories[category.ID] = category
	m.nameMap[category.Name] = category
	return nil
}

func (m *mockCategoryRepository) GetByID(id int64) (*domain.Category, error) {
	category, exists := m.categories[id]
	if !exists {
		return nil, nil
	}
	return category, nil
}

func (m *mockCategoryRepository) GetByName(name string) (*domain.Category, error) {
	category, exists := m.nameMap[name]
	if !exists {
		return nil, nil
	}
	return category, nil
}

func (m *mockCategoryRepository) Update(category *domain.Category) error {
	old, exists := m.categories[category.ID]
	if !exists {
		return repo.ErrNotFound
	}
	delete(m.nameMap, old.Name)
	m.categories[category.ID] = category
	m.nameMap[category.Name] = category
	return nil
}

func (m *mockCategoryRepository) Delete(id int64) error {
	category, exists := m.categories[id]
	if !exists {
		return repo.ErrNotFound
	}
	delete(m.categories, id)
	delete(m.nameMap, category.Name)
	return nil
}

func (m *mockCategoryRepository) List(req *domain.CategoryListRequest) ([]*domain.Category, int64, error) {
	var result []*domain.Category
	for id := int64(1); id < m.nextID; id++ {
		if category, exists := m.categories[id]; exists {
			result = append(result, category)
		}
	}
	return result, int64(len(result)), nil
}

// Mock BookRepository for testing
type mockBookRepository struct {
	books  map[int64]*domain.Book
	nextID int64
}

func newMockBookRepository() *mockBookRepository {
	return &mockBookRepository{
		books:  make(map[int64]*domain.Book),
		nextID: 1,
	}
}

func (m *mockBookRepository) Create(book *domain.Book) error {
	book.ID = m.nextID
	m.nextID++
	m.books[book.ID] = book
	return nil
}

func (m *mockBookRepository) GetByID(id int64) (*domain.Book, error) {
	book, exists := m.books[id]
	if !exists {
		return nil, nil
	}
	return book, nil
}

func (m *mockBookRepository) GetDetailByID(id int64) (*domain.BookDetail, error) {
	book, exists := m.books[id]
	if !exists {
		return nil, nil
	}
	return &domain.BookDetail{Book: *book}, nil
}

func (m *mockBookRepository) Update(book *domain.Book) error {
	if _, exists := m.books[book.ID]; !exists {
		return repo.ErrNotFound
	}
	m.books[book.ID] = book
	return nil
}

func (m *mockBookRepository) Delete(id int64) error {
	if _, exists := m.books[id]; !exists {
		return repo.ErrNotFound
	}
	delete(m.books, id)
	return nil
}

func (m *mockBookRepository) List(req *domain.BookListRequest) ([]*domain.Book, int64, error) {
	var result []*domain.Book
	for id := int64(1); id < m.nextID; id++ {
		book, exists := m.books[id]
		if !exists {
			continue
		}
		if req.CategoryID != nil && book.CategoryID != *req.CategoryID {
			continue
		}
		if req.AuthorID != nil && book.AuthorID != *req.AuthorID {
			continue
		}
		if req.OnlyAvailable && book.AvailableCopies <= 0 {
			continue
		}
		result = append(result, book)
	}
	return result, int64(len(result)), nil
}

func (m *mockBookRepository) CountByCategory(categoryID int64) (int64, error) {
	count := int64(0)
	for _, book := range m.books {
		if book.CategoryID == categoryID {
			count++
		}
	}
	return count, nil
}

func (m *mockBookRepository) CountByAuthor(authorID int64) (int64, error) {
	count := int64(0)
	for _, book := range m.books {
		if book.AuthorID == authorID {
			count++
		}
	}
	return count, nil
}

// Mock LoanRepository for testing
// 库存增减直接操作共享的mockBookRepository，模拟真实仓储的事务语义
type mockLoanRepository struct {
	loans  map[int64]*domain.Loan
	books  *mockBookRepository
	nextID int64
}

func newMockLoanRepository(books *mockBookRepository) *mockLoanRepository {
	return &mockLoanRepository{
		loans:  make(map[int64]*domain.Loan),
		books:  books,
		nextID: 1,
	}
}

func (m *mockLoanRepository) CreateWithDecrement(loan *domain.Loan) error {
	book, exists := m.books.books[loan.BookID]
	if !exists {
		return repo.ErrNotFound
	}
	if book.AvailableCopies <= 0 {
		return repo.ErrBookUnavailable
	}

	book.AvailableCopies--

	loan.ID = m.nextID
	m.nextID++
	loan.Status = domain.LoanStatusActive

	stored := *loan
	m.loans[loan.ID] = &stored
	return nil
}

func (m *mockLoanRepository) RegisterReturn(id int64, returnedAt time.Time) error {
	loan, exists := m.loans[id]
	if !exists {
		return repo.ErrNotFound
	}
	if loan.Status != domain.LoanStatusActive {
		return repo.ErrLoanNotActive
	}

	loan.Status = domain.LoanStatusReturned
	loan.ActualReturnDate = &returnedAt

	if book, ok := m.books.books[loan.BookID]; ok {
		book.AvailableCopies++
	}
	return nil
}

func (m *mockLoanRepository) MarkOverdue(id int64) error {
	loan, exists := m.loans[id]
	if !exists {
		return repo.ErrNotFound
	}
	if loan.Status != domain.LoanStatusActive {
		return repo.ErrLoanNotActive
	}

	loan.Status = domain.LoanStatusOverdue
	return nil
}

func (m *mockLoanRepository) GetByID(id int64) (*domain.Loan, error) {
	loan, exists := m.loans[id]
	if !exists {
		return nil, nil
	}
	copied := *loan
	return &copied, nil
}

func (m *mockLoanRepository) GetDetailByID(id int64) (*domain.LoanDetail, error) {
	loan, exists := m.loans[id]
	if !exists {
		return nil, nil
	}
	return &domain.LoanDetail{Loan: *loan}, nil
}

func (m *mockLoanRepository) UpdateExpectedReturn(id int64, expectedReturnDate time.Time) error {
	loan, exists := m.loans[id]
	if !exists {
		return repo.ErrNotFound
	}
	if loan.Status != domain.LoanStatusActive {
		return repo.ErrLoanNotActive
	}

	loan.ExpectedReturnDate = expectedReturnDate
	return nil
}

func (m *mockLoanRepository) List(req *domain.LoanListRequest) ([]*domain.Loan, int64, error) {
	var result []*domain.Loan
	for id := int64(1); id < m.nextID; id++ {
		loan, exists := m.loans[id]
		if !exists {
			continue
		}
		if req.UserID != nil && loan.UserID != *req.UserID {
			continue
		}
		if req.BookID != nil && loan.BookID != *req.BookID {
			continue
		}
		if req.Status != nil && loan.Status != *req.Status {
			continue
		}
		result = append(result, loan)
	}
	return result, int64(len(result)), nil
}

func (m *mockLoanRepository) ListOverdue(now time.Time) ([]*domain.LoanDetail, error) {
	var result []*domain.LoanDetail
	for id := int64(1); id < m.nextID; id++ {
		loan, exists := m.loans[id]
		if !exists {
			continue
		}
		if loan.Status == domain.LoanStatusActive && loan.ExpectedReturnDate.Before(now) {
			result = append(result, &domain.LoanDetail{Loan: *loan})
		}
	}
	return result, nil
}

func (m *mockLoanRepository) HasActiveLoan(userID, bookID int64) (bool, error) {
	for _, loan := range m.loans {
		if loan.UserID == userID && loan.BookID == bookID && loan.Status == domain.LoanStatusActive {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockLoanRepository) Stats() (*domain.LoanStats, error) {
	stats := &domain.LoanStats{}
	for _, loan := range m.loans {
		stats.Total++
		switch loan.Status {
		case domain.LoanStatusActive:
			stats.Active++
		case domain.LoanStatusReturned:
			stats.Returned++
		case domain.LoanStatusOverdue:
			stats.Overdue++
		}
	}
	return stats, nil
}

// Mock RecommendationRepository for testing
// 查询结果由测试用例预置，方法内只做排除和截断
type mockRecommendationRepository struct {
	favoriteCategories []*domain.PreferenceCount
	favoriteAuthors    []*domain.PreferenceCount
	borrowed           []int64
	byCategory         map[int64][]*domain.BookDetail
	byAuthor           map[int64][]*domain.BookDetail
	recent             []*domain.BookDetail
}

func newMockRecommendationRepository() *mockRecommendationRepository {
	return &mockRecommendationRepository{
		byCategory: make(map[int64][]*domain.BookDetail),
		byAuthor:   make(map[int64][]*domain.BookDetail),
	}
}

func (m *mockRecommendationRepository) FavoriteCategories(userID int64, limit int) ([]*domain.PreferenceCount, error) {
	return truncatePreferences(m.favoriteCategories, limit), nil
}

func (m *mockRecommendationRepository) FavoriteAuthors(userID int64, limit int) ([]*domain.PreferenceCount, error) {
	return truncatePreferences(m.favoriteAuthors, limit), nil
}

func (m *mockRecommendationRepository) BorrowedBookIDs(userID int64) ([]int64, error) {
	return m.borrowed, nil
}

func (m *mockRecommendationRepository) AvailableByCategories(categoryIDs, excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error) {
	var books []*domain.BookDetail
	for _, id := range categoryIDs {
		books = append(books, m.byCategory[id]...)
	}
	return filterBooks(books, excludeBookIDs, limit), nil
}

func (m *mockRecommendationRepository) AvailableByAuthors(authorIDs, excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error) {
	var books []*domain.BookDetail
	for _, id := range authorIDs {
		books = append(books, m.byAuthor[id]...)
	}
	return filterBooks(books, excludeBookIDs, limit), nil
}

func (m *mockRecommendationRepository) RecentAvailable(excludeBookIDs []int64, limit int) ([]*domain.BookDetail, error) {
	return filterBooks(m.recent, excludeBookIDs, limit), nil
}

func truncatePreferences(prefs []*domain.PreferenceCount, limit int) []*domain.PreferenceCount {
	if len(prefs) > limit {
		return prefs[:limit]
	}
	return prefs
}

func filterBooks(books []*domain.BookDetail, excludeBookIDs []int64, limit int) []*domain.BookDetail {
	excluded := make(map[int64]bool, len(excludeBookIDs))
	for _, id := range excludeBookIDs {
		excluded[id] = true
	}

	var result []*domain.BookDetail
	for _, book := range books {
		if excluded[book.ID] {
			continue
		}
		result = append(result, book)
		if len(result) == limit {
			break
		}
	}
	return result
}
