// auth.go — middleware аутентификации и авторизации.
// Извлекает Bearer token, проверяет его через Authorizer
// и помещает субъекта запроса (model.Principal) в контекст.
// Права проверяются отдельным middleware RequirePermission по роли субъекта.
package middleware

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	apierrors "github.com/fazalktk93/accommodation-sub000/internal/api/errors"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/model"
	"github.com/fazalktk93/accommodation-sub000/internal/domain/rbac"
	"github.com/fazalktk93/accommodation-sub000/internal/service"
)

// contextKey — тип для ключей контекста (избегаем коллизий).
type contextKey string

const (
	// ContextKeyPrincipal — аутентифицированный субъект в контексте запроса.
	ContextKeyPrincipal contextKey = "principal"
)

// Authorizer — проверка токена и прав субъекта.
// Реализуется service.IdentityService.
type Authorizer interface {
	// Authorize проверяет подпись и срок токена, загружает текущую роль
	// пользователя и, если переданы required, проверяет права.
	Authorize(ctx context.Context, token string, required ...string) (*model.Principal, error)
}

// Auth — middleware аутентификации по Bearer token.
type Auth struct {
	authz  Authorizer
	logger *slog.Logger
}

// NewAuth создаёт middleware аутентификации.
func NewAuth(authz Authorizer, logger *slog.Logger) *Auth {
	return &Auth{
		authz:  authz,
		logger: logger.With(slog.String("component", "auth")),
	}
}

// Middleware возвращает HTTP middleware аутентификации.
// Без валидного токена запрос завершается 401.
func (a *Auth) Middleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, msg := bearerToken(r)
			if msg != "" {
				apierrors.Unauthorized(w, msg)
				return
			}

			principal, err := a.authz.Authorize(r.Context(), token)
			if err != nil {
				switch {
				case errors.Is(err, service.ErrUnauthorized):
					a.logger.Debug("Токен отклонён",
						slog.String("error", err.Error()),
						slog.String("remote_addr", r.RemoteAddr),
					)
					apierrors.Unauthorized(w, "Невалидный или просроченный токен")
				case errors.Is(err, service.ErrForbidden):
					apierrors.Forbidden(w, err.Error())
				default:
					a.logger.Error("Ошибка проверки токена", slog.String("error", err.Error()))
					apierrors.InternalError(w, "Внутренняя ошибка сервера")
				}
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyPrincipal, principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// bearerToken извлекает токен из заголовка Authorization.
// Возвращает непустое сообщение, если заголовок отсутствует или некорректен.
func bearerToken(r *http.Request) (string, string) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", "Отсутствует заголовок Authorization"
	}

	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", "Неверный формат Authorization: ожидается Bearer <token>"
	}

	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", "Пустой Bearer token"
	}
	return token, ""
}

// RequirePermission возвращает middleware, требующий все указанные права.
// Должен использоваться ПОСЛЕ Auth.Middleware().
func RequirePermission(perms ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal := PrincipalFromContext(r.Context())
			if principal == nil {
				apierrors.Unauthorized(w, "Требуется аутентификация")
				return
			}

			if missing := rbac.Missing(principal.Role, perms...); len(missing) > 0 {
				apierrors.Forbidden(w, "Недостаточно прав: требуется "+strings.Join(missing, ", "))
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// PrincipalFromContext извлекает субъекта из контекста запроса.
// Возвращает nil, если запрос не прошёл аутентификацию.
func PrincipalFromContext(ctx context.Context) *model.Principal {
	p, _ := ctx.Value(ContextKeyPrincipal).(*model.Principal)
	return p
}

// WithPrincipal помещает субъекта в контекст.
func WithPrincipal(ctx context.Context, p *model.Principal) context.Context {
	return context.WithValue(ctx, ContextKeyPrincipal, p)
}
