// Package service 提供业务逻辑层实现。
// 服务层负责协调领域对象和仓储，实现具体的业务用例。
package service

import (
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/MorseWayne/library_api/internal/domain"
	"github.com/MorseWayne/library_api/internal/repo"
)

// 定义业务错误
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrUserExists         = errors.New("user already exists")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserInactive       = errors.New("user is inactive")
)

// UserService 定义用户服务接口
type UserService interface {
	Register(req *domain.RegisterRequest) (*domain.User, error)
	Login(req *domain.LoginRequest) (*domain.User, error)
	GetUserByID(id int64) (*domain.User, error)
	// 管理员专用方法
	ListUsers(page, pageSize int) ([]*domain.User, int64, error)
	UpdateUserRole(userID int64, role domain.UserRole) error
	UpdateUserStatus(userID int64, isActive bool) error
}

// userService 是 UserService 接口的实现
type userService struct {
	userRepo repo.UserRepository
	logger   *zap.Logger
}

// NewUserService 创建用户服务实例
func NewUserService(userRepo repo.UserRepository, logger *zap.Logger) UserService {
	return &userService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// Register 用户注册
// 业务规则：
// 1. 邮箱不能重复
// 2. 密码需要进行bcrypt哈希
// 3. 新用户默认为普通读者角色
func (s *userService) Register(req *domain.RegisterRequest) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	// 验证邮箱是否已存在
	existingUser, err := s.userRepo.GetByEmail(email)
	if err != nil {
		s.logger.Error("failed to check email", zap.Error(err))
		return nil, fmt.Errorf("check email: %w", err)
	}
	if existingUser != nil {
		return nil, ErrUserExists
	}

	// bcrypt自动加盐，成本可调，比较时间恒定
	passwordHash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		s.logger.Error("failed to hash password", zap.Error(err))
		return nil, fmt.Errorf("hash password: %w", err)
	}

	user := &domain.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        email,
		PasswordHash: string(passwordHash),
		Role:         domain.UserRoleUser, // 新用户默认为普通读者
		IsActive:     true,
	}

	if err := s.userRepo.Create(user); err != nil {
		s.logger.Error("failed to create user", zap.Error(err))
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.logger.Info("user registered successfully",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return user, nil
}

// Login 用户登录
// 业务规则：
// 1. 使用邮箱登录
// 2. 验证密码正确性
// 3. 检查用户是否处于活跃状态
func (s *userService) Login(req *domain.LoginRequest) (*domain.User, error) {
	email := strings.TrimSpace(strings.ToLower(req.Email))

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		s.logger.Error("failed to get user by email", zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	if !user.IsActive {
		return nil, ErrUserInactive
	}

	// bcrypt.CompareHashAndPassword 时间恒定，防时序攻击
	err = bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password))
	if err != nil {
		if err == bcrypt.ErrMismatchedHashAndPassword {
			return nil, ErrInvalidCredentials
		}
		s.logger.Error("failed to compare password", zap.Error(err))
		return nil, fmt.Errorf("compare password: %w", err)
	}

	s.logger.Info("user logged in successfully",
		zap.Int64("user_id", user.ID),
		zap.String("email", user.Email),
	)

	return user, nil
}

// GetUserByID 根据ID获取用户
func (s *userService) GetUserByID(id int64) (*domain.User, error) {
	user, err := s.userRepo.GetByID(id)
	if err != nil {
		s.logger.Error("failed to get user by id", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("get user: %w", err)
	}

	if user == nil {
		return nil, ErrUserNotFound
	}

	return user, nil
}

// ListUsers 分页获取用户列表（管理员专用）
func (s *userService) ListUsers(page, pageSize int) ([]*domain.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 20
	}

	users, total, err := s.userRepo.ListUsers((page-1)*pageSize, pageSize)
	if err != nil {
		s.logger.Error("failed to list users", zap.Error(err))
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

// UpdateUserRole 更新用户角色（管理员专用）
func (s *userService) UpdateUserRole(userID int64, role domain.UserRole) error {
	if err := s.userRepo.UpdateUserRole(userID, role); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("failed to update user role", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("update user role: %w", err)
	}

	s.logger.Info("user role updated",
		zap.Int64("user_id", userID),
		zap.String("role", string(role)),
	)

	return nil
}

// UpdateUserStatus 更新用户状态（管理员专用）
func (s *userService) UpdateUserStatus(userID int64, isActive bool) error {
	if err := s.userRepo.UpdateUserStatus(userID, isActive); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		s.logger.Error("failed to update user status", zap.Int64("user_id", userID), zap.Error(err))
		return fmt.Errorf("update user status: %w", err)
	}

	s.logger.Info("user status updated",
		zap.Int64("user_id", userID),
		zap.Bool("is_active", isActive),
	)

	return nil
}
