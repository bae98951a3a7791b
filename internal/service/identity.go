// identity.go — аутентификация, авторизация и управление пользователями.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/fazalktk93/accommodation-sub000/internal/auth"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/rbac"
	"github.com/fazalktk93/accommodation-sub000/internal/repository"
)

// minPasswordLen — минимальная длина пароля.
const minPasswordLen = 8

// UserInput — поля нового пользователя.
type UserInput struct {
	Username string
	FullName string
	Role     string
	Password string
	// IsActive — по умолчанию true
	IsActive *bool
}

// UserUpdate — частичное обновление пользователя. nil — поле не меняется.
// Индивидуальные права не хранятся: Permissions принимается и игнорируется.
type UserUpdate struct {
	FullName    *string
	Role        *string
	IsActive    *bool
	Permissions []string
}

// LoginResult — результат успешного входа.
type LoginResult struct {
	Token *auth.IssuedToken
	User  *model.User
}

// IdentityService — сервис учётных записей и прав доступа.
type IdentityService struct {
	store  repository.Store
	tokens *auth.TokenManager
	hasher *auth.PasswordHasher
	cache  *expirable.LRU[int64, *model.User]
	logger *slog.Logger
}

// NewIdentityService создаёт сервис учётных записей.
// cacheSize и cacheTTL задают кэш пользователей для Authorize.
func NewIdentityService(
	store repository.Store,
	tokens *auth.TokenManager,
	hasher *auth.PasswordHasher,
	cacheSize int,
	cacheTTL time.Duration,
	logger *slog.Logger,
) *IdentityService {
	return &IdentityService{
		store:  store,
		tokens: tokens,
		hasher: hasher,
		cache:  expirable.NewLRU[int64, *model.User](cacheSize, nil, cacheTTL),
		logger: logger.With(slog.String("component", "identity_service")),
	}
}

// Authenticate проверяет логин и пароль и выпускает токен.
// ErrUnauthorized для неизвестного, неактивного пользователя и неверного пароля.
func (s *IdentityService) Authenticate(ctx context.Context, username, password string) (*LoginResult, error) {
	username = strings.TrimSpace(username)
	u, err := s.store.Repos().Users.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: неверный логин или пароль", ErrUnauthorized)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}

	if err := s.hasher.Compare(u.HashedPassword, password); err != nil {
		if errors.Is(err, auth.ErrPasswordMismatch) {
			s.logger.Warn("Неудачная попытка входа", slog.String("username", username))
			return nil, fmt.Errorf("%w: неверный логин или пароль", ErrUnauthorized)
		}
		return nil, fmt.Errorf("проверка пароля: %w", err)
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: учётная запись отключена", ErrUnauthorized)
	}

	u.Role = rbac.NormalizeRole(u.Role)
	tok, err := s.tokens.Issue(u.ID, u.Username, u.Role)
	if err != nil {
		return nil, fmt.Errorf("выпуск токена: %w", err)
	}

	s.logger.Info("Пользователь вошёл",
		slog.Int64("user_id", u.ID),
		slog.String("username", u.Username),
		slog.String("token_id", tok.TokenID),
	)
	return &LoginResult{Token: tok, User: withPermissions(u)}, nil
}

// Authorize проверяет токен и наличие прав required.
// Роль берётся из текущей записи пользователя, а не из токена.
func (s *IdentityService) Authorize(ctx context.Context, token string, required ...string) (*model.Principal, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: токен не передан", ErrUnauthorized)
	}
	claims, err := s.tokens.Verify(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	userID, err := claims.UserID()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	u, err := s.currentUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !u.IsActive {
		return nil, fmt.Errorf("%w: учётная запись отключена", ErrUnauthorized)
	}

	role := rbac.NormalizeRole(u.Role)
	if missing := rbac.Missing(role, required...); len(missing) > 0 {
		return nil, fmt.Errorf("%w: требуется %s", ErrForbidden, strings.Join(missing, ", "))
	}

	return &model.Principal{
		UserID:      u.ID,
		Username:    u.Username,
		Role:        role,
		Permissions: rbac.Permissions(role),
		TokenID:     claims.ID,
	}, nil
}

// currentUser возвращает пользователя из кэша или хранилища.
func (s *IdentityService) currentUser(ctx context.Context, id int64) (*model.User, error) {
	if u, ok := s.cache.Get(id); ok {
		userCacheHits.Inc()
		return u, nil
	}
	userCacheMisses.Inc()

	u, err := s.store.Repos().Users.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, fmt.Errorf("%w: пользователь не существует", ErrUnauthorized)
		}
		return nil, fmt.Errorf("получение пользователя: %w", err)
	}
	s.cache.Add(id, u)
	return u, nil
}

// JWKS возвращает публичные ключи проверки токенов.
func (s *IdentityService) JWKS(ctx context.Context) (json.RawMessage, error) {
	return s.tokens.JWKS(ctx)
}

// CreateUser создаёт пользователя. ErrConflict при повторном логине.
func (s *IdentityService) CreateUser(ctx context.Context, in UserInput) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" {
		return nil, fmt.Errorf("%w: логин обязателен", ErrValidation)
	}
	role, err := normalizeInputRole(in.Role)
	if err != nil {
		return nil, err
	}
	if err := validatePassword(in.Password); err != nil {
		return nil, err
	}

	hashed, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("хэширование пароля: %w", err)
	}

	u := &model.User{
		Username:       username,
		FullName:       strings.TrimSpace(in.FullName),
		Role:           role,
		Permissions:    rbac.Permissions(role),
		HashedPassword: hashed,
		IsActive:       true,
	}
	if in.IsActive != nil {
		u.IsActive = *in.IsActive
	}

	if err := s.store.Repos().Users.Create(ctx, u); err != nil {
		return nil, fromRepo(err, fmt.Sprintf("пользователь %q", username))
	}

	s.logger.Info("Пользователь создан",
		slog.Int64("id", u.ID),
		slog.String("username", u.Username),
		slog.String("role", u.Role),
	)
	return withPermissions(u), nil
}

// GetUser возвращает пользователя по ID.
func (s *IdentityService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	u, err := s.store.Repos().Users.GetByID(ctx, id)
	if err != nil {
		return nil, fromRepo(err, fmt.Sprintf("пользователь %d", id))
	}
	return withPermissions(u), nil
}

// ListUsers возвращает страницу пользователей и общее количество.
func (s *IdentityService) ListUsers(ctx context.Context, limit, offset int) ([]*model.User, int, error) {
	items, total, err := s.store.Repos().Users.List(ctx, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("получение списка пользователей: %w", err)
	}
	for i, u := range items {
		items[i] = withPermissions(u)
	}
	return items, total, nil
}

// UpdateUser меняет имя, роль и активность пользователя.
func (s *IdentityService) UpdateUser(ctx context.Context, id int64, upd UserUpdate) (*model.User, error) {
	var out *model.User
	err := s.store.RunInTx(ctx, func(r *repository.Repos) error {
		u, err := r.Users.GetByID(ctx, id)
		if err != nil {
			return fromRepo(err, fmt.Sprintf("пользователь %d", id))
		}
		if upd.FullName != nil {
			u.FullName = strings.TrimSpace(*upd.FullName)
		}
		if upd.Role != nil {
			role, err := normalizeInputRole(*upd.Role)
			if err != nil {
				return err
			}
			u.Role = role
		}
		if upd.IsActive != nil {
			u.IsActive = *upd.IsActive
		}
		u.Permissions = rbac.Permissions(u.Role)

		if err := r.Users.Update(ctx, u); err != nil {
			return fromRepo(err, fmt.Sprintf("пользователь %d", id))
		}
		out = u
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.cache.Remove(id)

	s.logger.Info("Пользователь обновлён",
		slog.Int64("id", id),
		slog.String("role", out.Role),
		slog.Bool("is_active", out.IsActive),
	)
	return withPermissions(out), nil
}

// SetPassword заменяет пароль пользователя.
func (s *IdentityService) SetPassword(ctx context.Context, id int64, password string) error {
	if err := validatePassword(password); err != nil {
		return err
	}
	hashed, err := s.hasher.Hash(password)
	if err != nil {
		return fmt.Errorf("хэширование пароля: %w", err)
	}
	if err := s.store.Repos().Users.SetPassword(ctx, id, hashed); err != nil {
		return fromRepo(err, fmt.Sprintf("пользователь %d", id))
	}
	s.cache.Remove(id)

	s.logger.Info("Пароль пользователя изменён", slog.Int64("id", id))
	return nil
}

// EnsureBootstrapAdmin создаёт администратора, если пользователя с таким логином нет.
// created сообщает, был ли пользователь создан.
func (s *IdentityService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	_, err := s.store.Repos().Users.GetByUsername(ctx, strings.TrimSpace(username))
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return false, fmt.Errorf("поиск администратора: %w", err)
	}

	_, err = s.CreateUser(ctx, UserInput{
		Username: username,
		FullName: "Administrator",
		Role:     rbac.RoleAdmin,
		Password: password,
	})
	if errors.Is(err, ErrConflict) {
		// Создан параллельно другим экземпляром
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// normalizeInputRole проверяет роль из запроса. Пустая роль — viewer.
func normalizeInputRole(role string) (string, error) {
	if strings.TrimSpace(role) == "" {
		return rbac.RoleViewer, nil
	}
	if !rbac.IsValidRole(role) {
		return "", fmt.Errorf("%w: недопустимая роль %q", ErrValidation, role)
	}
	return rbac.NormalizeRole(role), nil
}

func validatePassword(password string) error {
	if len(password) < minPasswordLen {
		return fmt.Errorf("%w: пароль короче %d символов", ErrValidation, minPasswordLen)
	}
	return nil
}

// withPermissions возвращает копию пользователя с правами его роли и без хэша пароля.
func withPermissions(u *model.User) *model.User {
	out := *u
	out.Role = rbac.NormalizeRole(u.Role)
	out.Permissions = rbac.Permissions(out.Role)
	out.HashedPassword = ""
	return &out
}
