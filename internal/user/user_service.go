package user

//go:generate mockgen -destination=mock_user_test.go -package=user startupconnect/internal/user UserService,UserRepository,PresenceReader

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"startupconnect/internal/common"
	"startupconnect/internal/dbmysql"
)

var ErrHandleTaken = errors.New("handle already exists")

// TokenIssuer signs identity tokens. common.TokenManager implements it.
type TokenIssuer interface {
	GenerateToken(userID uint64, handle string) (string, error)
}

type RegisterInput struct {
	Handle   string `json:"handle"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"`
}

type UserService interface {
	RegisterUser(ctx context.Context, in RegisterInput) (*dbmysql.User, string, error)
	LoginUser(ctx context.Context, handle, password string) (*dbmysql.User, string, error)
	GetProfile(ctx context.Context, userID uint64) (*dbmysql.User, error)
}

type userService struct {
	userRepo UserRepository
	tokens   TokenIssuer
}

func NewUserService(userRepo UserRepository, tokens TokenIssuer) UserService {
	return &userService{userRepo: userRepo, tokens: tokens}
}

func (s *userService) RegisterUser(ctx context.Context, in RegisterInput) (*dbmysql.User, string, error) {
	in.Handle = strings.TrimSpace(in.Handle)
	if in.Role == "" {
		in.Role = common.RoleStartup
	}

	if err := common.ValidateHandle(in.Handle); err != nil {
		return nil, "", err
	}
	if err := common.ValidateEmail(in.Email); err != nil {
		return nil, "", err
	}
	if err := common.ValidatePassword(in.Password); err != nil {
		return nil, "", err
	}
	if err := common.ValidateRole(in.Role); err != nil {
		return nil, "", err
	}

	exists, err := s.userRepo.CheckUserExists(ctx, in.Handle)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", fmt.Errorf("%w: %w", common.ErrInvalidArgument, ErrHandleTaken)
	}

	hash, err := common.HashPassword(in.Password)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user := &dbmysql.User{
		Handle:       in.Handle,
		Email:        in.Email,
		PasswordHash: hash,
		Role:         in.Role,
		Status:       statusActive,
	}
	if err := s.userRepo.CreateUser(ctx, user); err != nil {
		return nil, "", err
	}

	token, err := s.tokens.GenerateToken(user.UserID, user.Handle)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// LoginUser reports every credential failure as ErrUnauthorized so callers
// cannot tell unknown handles from wrong passwords.
func (s *userService) LoginUser(ctx context.Context, handle, password string) (*dbmysql.User, string, error) {
	user, err := s.userRepo.GetUserByHandle(ctx, strings.TrimSpace(handle))
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: invalid handle or password", common.ErrUnauthorized)
		}
		return nil, "", err
	}

	if err := common.CheckPassword(password, user.PasswordHash); err != nil {
		return nil, "", fmt.Errorf("%w: invalid handle or password", common.ErrUnauthorized)
	}

	token, err := s.tokens.GenerateToken(user.UserID, user.Handle)
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

func (s *userService) GetProfile(ctx context.Context, userID uint64) (*dbmysql.User, error) {
	return s.userRepo.GetUserByID(ctx, userID)
}
