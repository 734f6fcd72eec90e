// Package service 实现图书推荐业务逻辑。
// 基于借阅历史的规则打分：偏好分类命中100分，偏好作者命中90分，
// 无历史用户走冷启动，推最近入库的有库存图书（80分）。
package service

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

const (
	// 偏好统计取借阅最多的前3个分类/作者
	favoriteLimit = 3
	// 偏好视图接口各返回前5个
	preferenceLimit = 5
	// 分类候选最多占结果的60%，剩余名额留给作者候选
	categoryShare = 0.6
)

// RecommendationService 定义推荐服务接口
type RecommendationService interface {
	// GetRecommendations 为用户生成最多 limit 条图书推荐
	// 结果按分值降序，同一本书只出现一次，排除用户借阅过的图书
	GetRecommendations(userID int64, limit int) ([]*domain.Recommendation, error)

	// RecommendByCategory 推荐指定分类下的有库存图书
	// userID 非空时排除该用户借阅过的书
	RecommendByCategory(categoryID int64, userID *int64, limit int) ([]*domain.Recommendation, error)

	// RecommendByAuthor 推荐指定作者名下的有库存图书
	RecommendByAuthor(authorID int64, userID *int64, limit int) ([]*domain.Recommendation, error)

	// GetUserPreferences 返回用户的借阅偏好视图（只读诊断数据）
	GetUserPreferences(userID int64) (*domain.UserPreferences, error)
}

// recommendationService 是 RecommendationService 接口的实现
type recommendationService struct {
	recRepo  repo.RecommendationRepository
	userRepo repo.UserRepository
	logger   *zap.Logger
}

// NewRecommendationService 创建推荐服务实例
func NewRecommendationService(
	recRepo repo.RecommendationRepository,
	userRepo repo.UserRepository,
	logger *zap.Logger,
) RecommendationService {
	return &recommendationService{
		recRepo:  recRepo,
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetRecommendations 生成推荐列表
// 流程：
// 1. 统计用户偏好分类/作者（各取前3）
// 2. 无任何借阅历史时走冷启动
// 3. 分类候选（上限 ceil(limit*0.6)）打100分，作者候选打90分
// 4. 按图书ID去重，排除用户借阅过的书，截断到 limit
// 有历史的用户只收到基于偏好的推荐，候选不足时结果就少于 limit
func (s *recommendationService) GetRecommendations(userID int64, limit int) ([]*domain.Recommendation, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		s.logger.Error("failed to get user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	if limit < 1 {
		limit = 10
	}

	borrowedIDs, err := s.recRepo.BorrowedBookIDs(userID)
	if err != nil {
		s.logger.Error("failed to get borrowed book ids", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get borrowed book ids: %w", err)
	}

	// 冷启动：没有任何借阅历史
	if len(borrowedIDs) == 0 {
		return s.coldStart(limit)
	}

	favoriteCategories, err := s.recRepo.FavoriteCategories(userID, favoriteLimit)
	if err != nil {
		s.logger.Error("failed to get favorite categories", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get favorite categories: %w", err)
	}

	favoriteAuthors, err := s.recRepo.FavoriteAuthors(userID, favoriteLimit)
	if err != nil {
		s.logger.Error("failed to get favorite authors", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get favorite authors: %w", err)
	}

	seen := make(map[int64]bool, limit)
	var recommendations []*domain.Recommendation

	// 分类候选，名额上限为结果的60%（向上取整）
	categoryLimit := int(math.Ceil(float64(limit) * categoryShare))
	if len(favoriteCategories) > 0 {
		categoryIDs := preferenceIDs(favoriteCategories)
		categoryNames := preferenceNames(favoriteCategories)

		books, err := s.recRepo.AvailableByCategories(categoryIDs, borrowedIDs, categoryLimit)
		if err != nil {
			s.logger.Error("failed to get category candidates", zap.Error(err))
			return nil, fmt.Errorf("get category candidates: %w", err)
		}

		for _, book := range books {
			if seen[book.ID] {
				continue
			}
			seen[book.ID] = true
			recommendations = append(recommendations, &domain.Recommendation{
				Book:   book,
				Score:  domain.ScoreFavoriteCategory,
				Reason: fmt.Sprintf("favorite category: %s", categoryNames[book.CategoryID]),
				Type:   domain.RecommendationTypeCategory,
			})
		}
	}

	// 作者候选填充剩余名额
	if len(favoriteAuthors) > 0 && len(recommendations) < limit {
		authorIDs := preferenceIDs(favoriteAuthors)
		authorNames := preferenceNames(favoriteAuthors)

		books, err := s.recRepo.AvailableByAuthors(authorIDs, borrowedIDs, limit)
		if err != nil {
			s.logger.Error("failed to get author candidates", zap.Error(err))
			return nil, fmt.Errorf("get author candidates: %w", err)
		}

		for _, book := range books {
			if len(recommendations) >= limit {
				break
			}
			if seen[book.ID] {
				continue
			}
			seen[book.ID] = true
			recommendations = append(recommendations, &domain.Recommendation{
				Book:   book,
				Score:  domain.ScoreFavoriteAuthor,
				Reason: fmt.Sprintf("favorite author: %s", authorNames[book.AuthorID]),
				Type:   domain.RecommendationTypeAuthor,
			})
		}
	}

	s.logger.Info("recommendations generated",
		zap.Int64("user_id", userID),
		zap.Int("count", len(recommendations)),
	)

	return recommendations, nil
}

// coldStart 推最近入库的有库存图书
func (s *recommendationService) coldStart(limit int) ([]*domain.Recommendation, error) {
	books, err := s.recRepo.RecentAvailable(nil, limit)
	if err != nil {
		s.logger.Error("failed to get recent books", zap.Error(err))
		return nil, fmt.Errorf("get recent books: %w", err)
	}

	recommendations := make([]*domain.Recommendation, 0, len(books))
	for _, book := range books {
		recommendations = append(recommendations, &domain.Recommendation{
			Book:   book,
			Score:  domain.ScoreRecentAddition,
			Reason: "new in the library",
			Type:   domain.RecommendationTypeCategory,
		})
	}

	return recommendations, nil
}

// RecommendByCategory 按分类推荐
func (s *recommendationService) RecommendByCategory(categoryID int64, userID *int64, limit int) ([]*domain.Recommendation, error) {
	if limit < 1 {
		limit = 10
	}

	exclude, err := s.excludeForUser(userID)
	if err != nil {
		return nil, err
	}

	books, err := s.recRepo.AvailableByCategories([]int64{categoryID}, exclude, limit)
	if err != nil {
		s.logger.Error("failed to get category books", zap.Int64("category_id", categoryID), zap.Error(err))
		return nil, fmt.Errorf("get category books: %w", err)
	}

	recommendations := make([]*domain.Recommendation, 0, len(books))
	for _, book := range books {
		recommendations = append(recommendations, &domain.Recommendation{
			Book:   book,
			Score:  domain.ScoreFavoriteCategory,
			Reason: fmt.Sprintf("books in category %s", book.CategoryName),
			Type:   domain.RecommendationTypeCategory,
		})
	}

	return recommendations, nil
}

// RecommendByAuthor 按作者推荐
func (s *recommendationService) RecommendByAuthor(authorID int64, userID *int64, limit int) ([]*domain.Recommendation, error) {
	if limit < 1 {
		limit = 10
	}

	exclude, err := s.excludeForUser(userID)
	if err != nil {
		return nil, err
	}

	books, err := s.recRepo.AvailableByAuthors([]int64{authorID}, exclude, limit)
	if err != nil {
		s.logger.Error("failed to get author books", zap.Int64("author_id", authorID), zap.Error(err))
		return nil, fmt.Errorf("get author books: %w", err)
	}

	recommendations := make([]*domain.Recommendation, 0, len(books))
	for _, book := range books {
		recommendations = append(recommendations, &domain.Recommendation{
			Book:   book,
			Score:  domain.ScoreFavoriteCategory,
			Reason: fmt.Sprintf("books by %s", book.AuthorName),
			Type:   domain.RecommendationTypeAuthor,
		})
	}

	return recommendations, nil
}

// excludeForUser 登录用户的历史借阅排除列表
func (s *recommendationService) excludeForUser(userID *int64) ([]int64, error) {
	if userID == nil {
		return nil, nil
	}

	ids, err := s.recRepo.BorrowedBookIDs(*userID)
	if err != nil {
		s.logger.Error("failed to get borrowed book ids", zap.Int64("user_id", *userID), zap.Error(err))
		return nil, fmt.Errorf("get borrowed book ids: %w", err)
	}

	return ids, nil
}

// GetUserPreferences 返回用户借阅偏好（分类/作者各前5）
func (s *recommendationService) GetUserPreferences(userID int64) (*domain.UserPreferences, error) {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		s.logger.Error("failed to get user", zap.Int64("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}

	categories, err := s.recRepo.FavoriteCategories(userID, preferenceLimit)
	if err != nil {
		s.logger.Error("failed to get category preferences", zap.Error(err))
		return nil, fmt.Errorf("get category preferences: %w", err)
	}

	authors, err := s.recRepo.FavoriteAuthors(userID, preferenceLimit)
	if err != nil {
		s.logger.Error("failed to get author preferences", zap.Error(err))
		return nil, fmt.Errorf("get author preferences: %w", err)
	}

	return &domain.UserPreferences{
		Categories: categories,
		Authors:    authors,
	}, nil
}

// preferenceIDs 提取偏好项ID列表
func preferenceIDs(prefs []*domain.PreferenceCount) []int64 {
	ids := make([]int64, 0, len(prefs))
	for _, p := range prefs {
		ids = append(ids, p.ID)
	}
	return ids
}

// preferenceNames 构建 ID→名称 映射，用于生成推荐理由
func preferenceNames(prefs []*domain.PreferenceCount) map[int64]string {
	names := make(map[int64]string, len(prefs))
	for _, p := range prefs {
		names[p.ID] = p.Name
	}
	return names
}
