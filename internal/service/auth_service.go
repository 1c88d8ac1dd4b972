package service

import (
	"exam_portal_backend/internal/config"
	"exam_portal_backend/internal/model"
	"exam_portal_backend/internal/repository"
	"exam_portal_backend/internal/util"
	"fmt"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"golang.org/x/crypto/bcrypt"
)

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
	validate *validator.Validate
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
		validate: validator.New(),
	}
}

type LoginResult struct {
	Token    string         `json:"token"`
	Role     model.UserRole `json:"role"`
	UserID   uint           `json:"user_id"`
	FullName string         `json:"full_name"`
}

// CreateUserReq 学生必须填写年级和班级
type CreateUserReq struct {
	SchoolID  string         `validate:"required,max=50"`
	FullName  string         `validate:"required,max=100"`
	Password  string         `validate:"required,min=8,max=72"`
	Role      model.UserRole `validate:"required,oneof=admin faculty student"`
	YearLevel int            `validate:"required_if=Role student,min=0,max=12"`
	Section   string         `validate:"required_if=Role student,max=10"`
}

func (s *AuthService) Login(schoolID, password string) (*LoginResult, error) {
	user, err := s.UserRepo.FindBySchoolID(strings.TrimSpace(schoolID))
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, util.ErrInvalidCredentials
		}
		return nil, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, util.ErrInvalidCredentials
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return nil, err
	}
	return &LoginResult{Token: token, Role: user.Role, UserID: user.ID, FullName: user.FullName}, nil
}

// CreateUser 供命令行工具创建账号
func (s *AuthService) CreateUser(req CreateUserReq) (*model.User, error) {
	req.SchoolID = strings.TrimSpace(req.SchoolID)
	req.FullName = strings.TrimSpace(req.FullName)
	req.Section = strings.TrimSpace(req.Section)
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}

	_, err := s.UserRepo.FindBySchoolID(req.SchoolID)
	if err == nil {
		return nil, util.ErrSchoolIDTaken
	} else if !repository.IsNotFound(err) {
		return nil, err
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := &model.User{
		SchoolID: req.SchoolID,
		FullName: req.FullName,
		Password: string(hashedPassword),
		Role:     req.Role,
	}
	if req.Role == model.Student {
		year := req.YearLevel
		section := req.Section
		user.YearLevel = &year
		user.Section = &section
	}
	if err := s.UserRepo.Create(user); err != nil {
		if repository.IsDuplicateKey(err) {
			return nil, util.ErrSchoolIDTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *AuthService) GetCurrentUser(c *gin.Context) *model.User {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		return nil
	}

	user, err := s.UserRepo.FindByID(claims.UserID)
	if err != nil {
		return nil
	}
	return user
}
