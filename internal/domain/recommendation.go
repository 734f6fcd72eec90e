// Package domain 定义图书推荐相关的领域模型。
package domain

// RecommendationType 定义推荐来源类型
type RecommendationType string

const (
	RecommendationTypeCategory RecommendationType = "categoria" // 按分类推荐
	RecommendationTypeAuthor   RecommendationType = "autor"     // 按作者推荐
)

// 推荐分值是固定的规则分层，不是学习出来的权重：
// 偏好分类命中 100，偏好作者命中 90，冷启动新书 80
const (
	ScoreFavoriteCategory = 100
	ScoreFavoriteAuthor   = 90
	ScoreRecentAddition   = 80
)

// Recommendation 表示一条图书推荐结果
type Recommendation struct {
	Book   *BookDetail        `json:"book"`
	Score  int                `json:"score"`
	Reason string             `json:"reason"` // 人类可读的推荐理由
	Type   RecommendationType `json:"type"`
}

// PreferenceCount 表示用户对某个分类/作者的借阅次数
type PreferenceCount struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Total int64  `json:"total"`
}

// UserPreferences 表示用户的借阅偏好视图
// 只读诊断数据，最多各返回5个分类和作者
type UserPreferences struct {
	Categories []*PreferenceCount `json:"categories"`
	Authors    []*PreferenceCount `json:"authors"`
}
