package service

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
)

type bookTestEnv struct {
	service    BookService
	books      *mockBookRepository
	categories *mockCategoryRepository
	authors    *mockAuthorRepository
	loans      *mockLoanRepository
}

func createTestBookEnv(t *testing.T) *bookTestEnv {
	t.Helper()

	books := newMockBookRepository()
	categories := newMockCategoryRepository()
	authors := newMockAuthorRepository()
	loans := newMockLoanRepository(books)

	if err := categories.Create(&domain.Category{Name: "Fiction"}); err != nil {
		t.Fatalf("failed to seed category: %v", err)
	}
	if err := authors.Create(&domain.Author{Name: "Author A"}); err != nil {
		t.Fatalf("failed to seed author: %v", err)
	}

	return &bookTestEnv{
		service:    NewBookService(books, categories, authors, loans, zap.NewNop()),
		books:      books,
		categories: categories,
		authors:    authors,
		loans:      loans,
	}
}

func testCreateBookRequest() *domain.CreateBookRequest {
	return &domain.CreateBookRequest{
		Title:           "Test Book",
		PublicationYear: 2020,
		AvailableCopies: 3,
		CategoryID:      1,
		AuthorID:        1,
	}
}

func TestBookService_CreateBook_Success(t *testing.T) {
	env := createTestBookEnv(t)

	book, err := env.service.CreateBook(testCreateBookRequest())
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	if book.ID == 0 {
		t.Error("Book ID should be assigned")
	}
	if book.AvailableCopies != 3 {
		t.Errorf("Expected 3 copies, got %d", book.AvailableCopies)
	}
}

func TestBookService_CreateBook_CategoryNotFound(t *testing.T) {
	env := createTestBookEnv(t)

	req := testCreateBookRequest()
	req.CategoryID = 42

	_, err := env.service.CreateBook(req)
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
}

func TestBookService_CreateBook_AuthorNotFound(t *testing.T) {
	env := createTestBookEnv(t)

	req := testCreateBookRequest()
	req.AuthorID = 42

	_, err := env.service.CreateBook(req)
	if !errors.Is(err, ErrAuthorNotFound) {
		t.Errorf("Expected ErrAuthorNotFound, got %v", err)
	}
}

func TestBookService_CreateBook_NegativeCopies(t *testing.T) {
	env := createTestBookEnv(t)

	req := testCreateBookRequest()
	req.AvailableCopies = -1

	_, err := env.service.CreateBook(req)
	if !errors.Is(err, ErrInvalidCopies) {
		t.Errorf("Expected ErrInvalidCopies, got %v", err)
	}
}

func TestBookService_UpdateBook_NegativeCopies(t *testing.T) {
	env := createTestBookEnv(t)

	book, err := env.service.CreateBook(testCreateBookRequest())
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	bad := -1
	_, err = env.service.UpdateBook(book.ID, &domain.UpdateBookRequest{AvailableCopies: &bad})
	if !errors.Is(err, ErrInvalidCopies) {
		t.Errorf("Expected ErrInvalidCopies, got %v", err)
	}
}

func TestBookService_UpdateBook_AdjustCopies(t *testing.T) {
	env := createTestBookEnv(t)

	book, err := env.service.CreateBook(testCreateBookRequest())
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	copies := 10
	updated, err := env.service.UpdateBook(book.ID, &domain.UpdateBookRequest{AvailableCopies: &copies})
	if err != nil {
		t.Fatalf("UpdateBook failed: %v", err)
	}
	if updated.AvailableCopies != 10 {
		t.Errorf("Expected 10 copies, got %d", updated.AvailableCopies)
	}
}

func TestBookService_UpdateBook_InvalidCategory(t *testing.T) {
	env := createTestBookEnv(t)

	book, err := env.service.CreateBook(testCreateBookRequest())
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	missing := int64(42)
	_, err = env.service.UpdateBook(book.ID, &domain.UpdateBookRequest{CategoryID: &missing})
	if !errors.Is(err, ErrCategoryNotFound) {
		t.Errorf("Expected ErrCategoryNotFound, got %v", err)
	}
}

func TestBookService_DeleteBook_Success(t *testing.T) {
	env := createTestBookEnv(t)

	book, err := env.service.CreateBook(testCreateBookRequest())
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	if err := env.service.DeleteBook(book.ID); err != nil {
		t.Fatalf("DeleteBook failed: %v", err)
	}

	if _, err := env.service.GetBookByID(book.ID); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("Expected ErrBookNotFound after delete, got %v", err)
	}
}

func TestBookService_DeleteBook_NotFound(t *testing.T) {
	env := createTestBookEnv(t)

	if err := env.service.DeleteBook(42); !errors.Is(err, ErrBookNotFound) {
		t.Errorf("Expected ErrBookNotFound, got %v", err)
	}
}

func TestBookService_DeleteBook_HasActiveLoans(t *testing.T) {
	env := createTestBookEnv(t)

	book, err := env.service.CreateBook(testCreateBookRequest())
	if err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	now := time.Now()
	loan := &domain.Loan{
		UserID:             1,
		BookID:             book.ID,
		LoanDate:           now,
		ExpectedReturnDate: now.Add(14 * 24 * time.Hour),
	}
	if err := env.loans.CreateWithDecrement(loan); err != nil {
		t.Fatalf("failed to seed loan: %v", err)
	}

	if err := env.service.DeleteBook(book.ID); !errors.Is(err, ErrBookHasActiveLoans) {
		t.Errorf("Expected ErrBookHasActiveLoans, got %v", err)
	}

	// 归还后可以删除
	if err := env.loans.RegisterReturn(loan.ID, now); err != nil {
		t.Fatalf("RegisterReturn failed: %v", err)
	}
	if err := env.service.DeleteBook(book.ID); err != nil {
		t.Fatalf("DeleteBook after return failed: %v", err)
	}
}

func TestBookService_ListBooks_OnlyAvailable(t *testing.T) {
	env := createTestBookEnv(t)

	if _, err := env.service.CreateBook(testCreateBookRequest()); err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	empty := testCreateBookRequest()
	empty.Title = "Out of Stock"
	empty.AvailableCopies = 0
	if _, err := env.service.CreateBook(empty); err != nil {
		t.Fatalf("CreateBook failed: %v", err)
	}

	result, err := env.service.ListBooks(&domain.BookListRequest{Page: 1, PageSize: 20, OnlyAvailable: true})
	if err != nil {
		t.Fatalf("ListBooks failed: %v", err)
	}

	if len(result.Books) != 1 {
		t.Fatalf("Expected 1 available book, got %d", len(result.Books))
	}
	if result.Books[0].Title != "Test Book" {
		t.Errorf("Expected Test Book, got %s", result.Books[0].Title)
	}
}
