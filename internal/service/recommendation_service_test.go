package service

import (
	"errors"
	"testing"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
)

func testBookDetail(id, categoryID, authorID int64, categoryName, authorName string) *domain.BookDetail {
	return &domain.BookDetail{
		Book: domain.Book{
			ID:              id,
			Title:           "Book",
			AvailableCopies: 1,
			CategoryID:      categoryID,
			AuthorID:        authorID,
		},
		CategoryName: categoryName,
		AuthorName:   authorName,
	}
}

func createTestRecommendationEnv(t *testing.T) (RecommendationService, *mockRecommendationRepository, *mockUserRepository) {
	t.Helper()

	users := newMockUserRepository()
	recRepo := newMockRecommendationRepository()

	user := &domain.User{Name: "Reader", Email: "reader@example.com", Role: domain.UserRoleUser, IsActive: true}
	if err := users.Create(user); err != nil {
		t.Fatalf("failed to seed user: %v", err)
	}

	return NewRecommendationService(recRepo, users, zap.NewNop()), recRepo, users
}

func TestRecommendationService_GetRecommendations_UserNotFound(t *testing.T) {
	service, _, _ := createTestRecommendationEnv(t)

	_, err := service.GetRecommendations(42, 10)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}

func TestRecommendationService_GetRecommendations_ColdStart(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	// 没有借阅历史：推最近入库的书
	recRepo.recent = []*domain.BookDetail{
		testBookDetail(1, 1, 1, "Fiction", "Author A"),
		testBookDetail(2, 2, 2, "History", "Author B"),
	}

	recommendations, err := service.GetRecommendations(1, 10)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}

	if len(recommendations) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(recommendations))
	}

	for _, rec := range recommendations {
		if rec.Score != domain.ScoreRecentAddition {
			t.Errorf("Expected score %d, got %d", domain.ScoreRecentAddition, rec.Score)
		}
		if rec.Reason != "new in the library" {
			t.Errorf("Unexpected reason: %s", rec.Reason)
		}
		if rec.Type != domain.RecommendationTypeCategory {
			t.Errorf("Expected type %s, got %s", domain.RecommendationTypeCategory, rec.Type)
		}
	}
}

func TestRecommendationService_GetRecommendations_PreferenceMix(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	recRepo.borrowed = []int64{100}
	recRepo.favoriteCategories = []*domain.PreferenceCount{{ID: 1, Name: "Fiction", Total: 5}}
	recRepo.favoriteAuthors = []*domain.PreferenceCount{{ID: 7, Name: "Author X", Total: 3}}

	// limit=5时分类名额上限为 ceil(5*0.6)=3
	recRepo.byCategory[1] = []*domain.BookDetail{
		testBookDetail(11, 1, 2, "Fiction", "Someone"),
		testBookDetail(12, 1, 2, "Fiction", "Someone"),
		testBookDetail(13, 1, 7, "Fiction", "Author X"),
		testBookDetail(14, 1, 2, "Fiction", "Someone"),
	}
	// 13与分类候选重复，必须去重
	recRepo.byAuthor[7] = []*domain.BookDetail{
		testBookDetail(13, 1, 7, "Fiction", "Author X"),
		testBookDetail(15, 3, 7, "Sci-Fi", "Author X"),
	}

	recommendations, err := service.GetRecommendations(1, 5)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}

	if len(recommendations) != 4 {
		t.Fatalf("Expected 4 recommendations, got %d", len(recommendations))
	}

	wantIDs := []int64{11, 12, 13, 15}
	wantScores := []int{100, 100, 100, 90}
	for i, rec := range recommendations {
		if rec.Book.ID != wantIDs[i] {
			t.Errorf("Position %d: expected book %d, got %d", i, wantIDs[i], rec.Book.ID)
		}
		if rec.Score != wantScores[i] {
			t.Errorf("Position %d: expected score %d, got %d", i, wantScores[i], rec.Score)
		}
	}

	if recommendations[0].Reason != "favorite category: Fiction" {
		t.Errorf("Unexpected category reason: %s", recommendations[0].Reason)
	}
	if recommendations[3].Reason != "favorite author: Author X" {
		t.Errorf("Unexpected author reason: %s", recommendations[3].Reason)
	}
	if recommendations[3].Type != domain.RecommendationTypeAuthor {
		t.Errorf("Expected author type, got %s", recommendations[3].Type)
	}
}

func TestRecommendationService_GetRecommendations_NoRecentFillForHistoryUser(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	// 有借阅历史但偏好候选只有一本，新书照样不参与补位
	recRepo.borrowed = []int64{100}
	recRepo.favoriteCategories = []*domain.PreferenceCount{{ID: 3, Name: "Sci-Fi", Total: 4}}
	recRepo.favoriteAuthors = []*domain.PreferenceCount{{ID: 8, Name: "Author Z", Total: 4}}
	recRepo.byCategory[3] = []*domain.BookDetail{
		testBookDetail(12, 3, 8, "Sci-Fi", "Author Z"),
	}
	recRepo.recent = []*domain.BookDetail{
		testBookDetail(20, 4, 9, "Poetry", "Author Y"),
		testBookDetail(21, 5, 10, "Drama", "Author W"),
	}

	recommendations, err := service.GetRecommendations(1, 5)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}

	if len(recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(recommendations))
	}
	if recommendations[0].Book.ID != 12 {
		t.Errorf("Expected book 12, got %d", recommendations[0].Book.ID)
	}
	for _, rec := range recommendations {
		if rec.Score == domain.ScoreRecentAddition || rec.Reason == "new in the library" {
			t.Errorf("Recent-addition item leaked into history-based result: book %d", rec.Book.ID)
		}
	}
}

func TestRecommendationService_GetRecommendations_ExcludesBorrowed(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	recRepo.borrowed = []int64{11}
	recRepo.favoriteCategories = []*domain.PreferenceCount{{ID: 1, Name: "Fiction", Total: 2}}
	recRepo.byCategory[1] = []*domain.BookDetail{
		testBookDetail(11, 1, 2, "Fiction", "Someone"),
		testBookDetail(12, 1, 2, "Fiction", "Someone"),
	}

	recommendations, err := service.GetRecommendations(1, 2)
	if err != nil {
		t.Fatalf("GetRecommendations failed: %v", err)
	}

	for _, rec := range recommendations {
		if rec.Book.ID == 11 {
			t.Error("Borrowed book 11 must not be recommended")
		}
	}
}

func TestRecommendationService_RecommendByCategory(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	recRepo.byCategory[3] = []*domain.BookDetail{
		testBookDetail(21, 3, 5, "Sci-Fi", "Author Z"),
		testBookDetail(22, 3, 5, "Sci-Fi", "Author Z"),
	}

	recommendations, err := service.RecommendByCategory(3, nil, 10)
	if err != nil {
		t.Fatalf("RecommendByCategory failed: %v", err)
	}

	if len(recommendations) != 2 {
		t.Fatalf("Expected 2 recommendations, got %d", len(recommendations))
	}
	if recommendations[0].Reason != "books in category Sci-Fi" {
		t.Errorf("Unexpected reason: %s", recommendations[0].Reason)
	}
}

func TestRecommendationService_RecommendByCategory_ExcludesUserHistory(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	recRepo.borrowed = []int64{21}
	recRepo.byCategory[3] = []*domain.BookDetail{
		testBookDetail(21, 3, 5, "Sci-Fi", "Author Z"),
		testBookDetail(22, 3, 5, "Sci-Fi", "Author Z"),
	}

	userID := int64(1)
	recommendations, err := service.RecommendByCategory(3, &userID, 10)
	if err != nil {
		t.Fatalf("RecommendByCategory failed: %v", err)
	}

	if len(recommendations) != 1 || recommendations[0].Book.ID != 22 {
		t.Errorf("Expected only book 22, got %v", recommendations)
	}
}

func TestRecommendationService_RecommendByAuthor(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	recRepo.byAuthor[5] = []*domain.BookDetail{
		testBookDetail(31, 3, 5, "Sci-Fi", "Author Z"),
	}

	recommendations, err := service.RecommendByAuthor(5, nil, 10)
	if err != nil {
		t.Fatalf("RecommendByAuthor failed: %v", err)
	}

	if len(recommendations) != 1 {
		t.Fatalf("Expected 1 recommendation, got %d", len(recommendations))
	}
	if recommendations[0].Reason != "books by Author Z" {
		t.Errorf("Unexpected reason: %s", recommendations[0].Reason)
	}
	if recommendations[0].Type != domain.RecommendationTypeAuthor {
		t.Errorf("Expected author type, got %s", recommendations[0].Type)
	}
}

func TestRecommendationService_GetUserPreferences(t *testing.T) {
	service, recRepo, _ := createTestRecommendationEnv(t)

	recRepo.favoriteCategories = []*domain.PreferenceCount{
		{ID: 1, Name: "Fiction", Total: 5},
		{ID: 2, Name: "History", Total: 2},
	}
	recRepo.favoriteAuthors = []*domain.PreferenceCount{
		{ID: 7, Name: "Author X", Total: 4},
	}

	preferences, err := service.GetUserPreferences(1)
	if err != nil {
		t.Fatalf("GetUserPreferences failed: %v", err)
	}

	if len(preferences.Categories) != 2 {
		t.Errorf("Expected 2 category preferences, got %d", len(preferences.Categories))
	}
	if len(preferences.Authors) != 1 {
		t.Errorf("Expected 1 author preference, got %d", len(preferences.Authors))
	}
	if preferences.Categories[0].Name != "Fiction" {
		t.Errorf("Expected top category Fiction, got %s", preferences.Categories[0].Name)
	}
}

func TestRecommendationService_GetUserPreferences_UserNotFound(t *testing.T) {
	service, _, _ := createTestRecommendationEnv(t)

	_, err := service.GetUserPreferences(42)
	if !errors.Is(err, ErrUserNotFound) {
		t.Errorf("Expected ErrUserNotFound, got %v", err)
	}
}
