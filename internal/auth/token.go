// Пакет auth — выпуск и проверка токенов доступа (JWT RS256)
// и хэширование паролей (bcrypt).
//
// Публичный ключ подписи хранится в jwkset и отдаётся через
// /.well-known/jwks.json, проверка подписи идёт через keyfunc по kid.
package auth

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/MicahParks/jwkset"
	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken — токен отсутствует, повреждён, просрочен или подписан чужим ключом.
var ErrInvalidToken = errors.New("невалидный токен")

// generatedKeyBits — размер ключа, генерируемого при отсутствии файла.
const generatedKeyBits = 2048

// Claims — содержимое токена доступа.
type Claims struct {
	jwt.RegisteredClaims
	// PreferredUsername — логин пользователя.
	PreferredUsername string `json:"preferred_username"`
	// Role — роль на момент выдачи (справочно, права вычисляются по текущей записи).
	Role string `json:"role"`
}

// UserID возвращает идентификатор пользователя из sub.
func (c *Claims) UserID() (int64, error) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: sub не является идентификатором пользователя", ErrInvalidToken)
	}
	return id, nil
}

// IssuedToken — выпущенный токен.
type IssuedToken struct {
	Token     string
	ExpiresAt time.Time
	TokenID   string
}

// TokenManager выпускает и проверяет токены доступа.
type TokenManager struct {
	key     *rsa.PrivateKey
	keyID   string
	issuer  string
	ttl     time.Duration
	leeway  time.Duration
	storage jwkset.Storage
	jwks    keyfunc.Keyfunc
	now     func() time.Time
}

// TokenOptions — параметры TokenManager.
type TokenOptions struct {
	KeyID  string
	Issuer string
	TTL    time.Duration
	Leeway time.Duration
	// Now — источник времени (по умолчанию time.Now).
	Now func() time.Time
}

// NewTokenManager создаёт TokenManager с ключом подписи key.
func NewTokenManager(key *rsa.PrivateKey, opts TokenOptions) (*TokenManager, error) {
	if key == nil {
		return nil, errors.New("ключ подписи не задан")
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	ctx := context.Background()
	storage := jwkset.NewMemoryStorage()

	jwk, err := jwkset.NewJWKFromKey(&key.PublicKey, jwkset.JWKOptions{
		Metadata: jwkset.JWKMetadataOptions{
			ALG: jwkset.AlgRS256,
			KID: opts.KeyID,
			USE: jwkset.UseSig,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("создание JWK: %w", err)
	}
	if err := storage.KeyWrite(ctx, jwk); err != nil {
		return nil, fmt.Errorf("запись JWK: %w", err)
	}

	k, err := keyfunc.New(keyfunc.Options{
		Storage: storage,
	})
	if err != nil {
		return nil, fmt.Errorf("создание keyfunc: %w", err)
	}

	return &TokenManager{
		key:     key,
		keyID:   opts.KeyID,
		issuer:  opts.Issuer,
		ttl:     opts.TTL,
		leeway:  opts.Leeway,
		storage: storage,
		jwks:    k,
		now:     opts.Now,
	}, nil
}

// Issue выпускает токен для пользователя.
func (m *TokenManager) Issue(userID int64, username, role string) (*IssuedToken, error) {
	now := m.now()
	expiresAt := now.Add(m.ttl)
	jti := uuid.NewString()

	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(userID, 10),
			Issuer:    m.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			ID:        jti,
		},
		PreferredUsername: username,
		Role:              role,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = m.keyID

	signed, err := token.SignedString(m.key)
	if err != nil {
		return nil, fmt.Errorf("подпись токена: %w", err)
	}

	return &IssuedToken{Token: signed, ExpiresAt: expiresAt, TokenID: jti}, nil
}

// Verify проверяет подпись, срок действия и издателя токена.
func (m *TokenManager) Verify(ctx context.Context, tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, fmt.Errorf("%w: пустой токен", ErrInvalidToken)
	}

	claims := &Claims{}
	parserOpts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{"RS256"}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(m.leeway),
		jwt.WithTimeFunc(m.now),
	}
	if m.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(m.issuer))
	}

	token, err := jwt.ParseWithClaims(tokenString, claims, m.jwks.KeyfuncCtx(ctx), parserOpts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: отсутствует sub", ErrInvalidToken)
	}
	return claims, nil
}

// JWKS возвращает публичный набор ключей в формате JWK Set.
func (m *TokenManager) JWKS(ctx context.Context) (json.RawMessage, error) {
	raw, err := m.storage.JSONPublic(ctx)
	if err != nil {
		return nil, fmt.Errorf("формирование JWKS: %w", err)
	}
	return raw, nil
}

// LoadOrGenerateKey читает RSA-ключ из PEM-файла.
// Пустой path — ключ генерируется; токены не переживут перезапуск.
func LoadOrGenerateKey(path string, logger *slog.Logger) (*rsa.PrivateKey, error) {
	if path == "" {
		logger.Warn("ACC_JWT_PRIVATE_KEY_PATH не задан, ключ подписи сгенерирован в памяти")
		key, err := rsa.GenerateKey(rand.Reader, generatedKeyBits)
		if err != nil {
			return nil, fmt.Errorf("генерация ключа подписи: %w", err)
		}
		return key, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("чтение ключа подписи %s: %w", path, err)
	}
	key, err := jwt.ParseRSAPrivateKeyFromPEM(data)
	if err != nil {
		return nil, fmt.Errorf("разбор ключа подписи %s: %w", path, err)
	}
	logger.Info("Ключ подписи загружен", slog.String("path", path))
	return key, nil
}
