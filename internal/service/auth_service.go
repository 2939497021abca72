package service

import (
	"context"

	apperrors "github.com/wfunc/liar-roulette/internal/errors"
	"github.com/wfunc/liar-roulette/internal/models"
	"github.com/wfunc/liar-roulette/internal/repository"
	"github.com/wfunc/liar-roulette/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AuthService 认证服务接口
type AuthService interface {
	Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error)
	Login(ctx context.Context, req *LoginRequest) (*AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (string, error)
	ValidateToken(token string) (*utils.JWTClaims, error)
	GetProfile(ctx context.Context, userID uint) (*models.User, error)
}

// RegisterRequest 注册请求
type RegisterRequest struct {
	Username string `json:"username" binding:"required,min=3,max=50"`
	Password string `json:"password" binding:"required,min=6,max=72"`
	Nickname string `json:"nickname" binding:"max=100"`
	Email    string `json:"email" binding:"omitempty,email,max=100"`
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	ClientIP string `json:"-"`
}

// AuthResult 认证结果
type AuthResult struct {
	User         *models.User `json:"user"`
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
}

// authService 认证服务实现
type authService struct {
	userRepo   repository.UserRepository
	jwtManager *utils.JWTManager
	log        *zap.Logger
}

// NewAuthService 创建认证服务
func NewAuthService(userRepo repository.UserRepository, jwtManager *utils.JWTManager, log *zap.Logger) AuthService {
	return &authService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		log:        log,
	}
}

// Register 注册新用户
func (s *authService) Register(ctx context.Context, req *RegisterRequest) (*AuthResult, error) {
	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, apperrors.New(apperrors.ErrInvalidParam, "用户名已被占用")
	} else if err != gorm.ErrRecordNotFound {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	if req.Email != "" {
		if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
			return nil, apperrors.New(apperrors.ErrInvalidParam, "邮箱已被占用")
		} else if err != gorm.ErrRecordNotFound {
			return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
		}
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}

	user := &models.User{
		Username: req.Username,
		Nickname: req.Nickname,
		Suffix:   utils.GenerateSuffix(),
		Password: hash,
	}
	if req.Email != "" {
		user.Email = &req.Email
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseInsert)
	}

	s.log.Info("用户注册成功",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
	)
	return s.issueTokens(user)
}

// Login 用户登录
func (s *authService) Login(ctx context.Context, req *LoginRequest) (*AuthResult, error) {
	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}

	if !utils.CheckPassword(req.Password, user.Password) {
		return nil, apperrors.New(apperrors.ErrAuthentication, "用户名或密码错误")
	}
	if !user.IsActive() {
		return nil, apperrors.New(apperrors.ErrPermissionDenied, "账号已被冻结")
	}

	if err := s.userRepo.UpdateLoginInfo(ctx, user.ID, req.ClientIP); err != nil {
		s.log.Warn("更新登录信息失败", zap.Uint("user_id", user.ID), zap.Error(err))
	}

	s.log.Info("用户登录成功",
		zap.Uint("user_id", user.ID),
		zap.String("username", user.Username),
		zap.String("client_ip", req.ClientIP),
	)
	return s.issueTokens(user)
}

// RefreshToken 刷新访问令牌
func (s *authService) RefreshToken(ctx context.Context, refreshToken string) (string, error) {
	access, err := s.jwtManager.RefreshAccessToken(refreshToken)
	if err != nil {
		if err == utils.ErrExpiredToken {
			return "", apperrors.New(apperrors.ErrTokenExpired)
		}
		return "", apperrors.New(apperrors.ErrTokenInvalid).WithCause(err)
	}
	return access, nil
}

// ValidateToken 验证访问令牌
func (s *authService) ValidateToken(token string) (*utils.JWTClaims, error) {
	claims, err := s.jwtManager.ValidateToken(token)
	if err != nil {
		if err == utils.ErrExpiredToken {
			return nil, apperrors.New(apperrors.ErrTokenExpired)
		}
		return nil, apperrors.New(apperrors.ErrTokenInvalid).WithCause(err)
	}
	if claims.TokenType != "access" {
		return nil, apperrors.New(apperrors.ErrTokenInvalid, "需要访问令牌")
	}
	return claims, nil
}

// GetProfile 获取用户信息
func (s *authService) GetProfile(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, apperrors.New(apperrors.ErrNotFound, "用户不存在")
		}
		return nil, apperrors.Wrap(err, apperrors.ErrDatabaseQuery)
	}
	return user, nil
}

func (s *authService) issueTokens(user *models.User) (*AuthResult, error) {
	access, err := s.jwtManager.GenerateAccessToken(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	refresh, err := s.jwtManager.GenerateRefreshToken(user.ID, user.Username)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrUnknown)
	}
	return &AuthResult{
		User:         user,
		AccessToken:  access,
		RefreshToken: refresh,
	}, nil
}
