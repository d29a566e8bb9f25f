package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"time"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"github.com/ajuia-m/hw05-final/internal/database"
	"github.com/ajuia-m/hw05-final/internal/models"
)

const (
	SessionCookieName = "session_token"
	DefaultExpiration = 24 * time.Hour // Сессии действительны 24 часа
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrInvalidPassword = errors.New("invalid password")
	ErrEmailExists     = errors.New("email already exists")
	ErrUsernameExists  = errors.New("username already exists")
	ErrInvalidInput    = errors.New("invalid input")
	ErrSessionNotFound = errors.New("session not found or expired")
)

// Regex patterns for validation
var (
	emailRegex    = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	usernameRegex = regexp.MustCompile(`^[\p{L}0-9_]{3,20}$`) // Unicode letters, numbers, underscore
	passwordRegex = regexp.MustCompile(`^.{6,32}$`)           // 6-32 characters
)

// Store — операции хранилища, нужные для учётных записей.
type Store interface {
	CreateUser(ctx context.Context, u *models.User) error
	UserByLogin(ctx context.Context, login string) (models.User, error)
	EmailTaken(ctx context.Context, email string) (bool, error)
	CreateSession(ctx context.Context, s *models.Session) error
	SessionUser(ctx context.Context, uuid string) (models.User, error)
	DeleteSession(ctx context.Context, uuid string) error
}

// Service регистрирует пользователей и ведёт их сессии.
type Service struct {
	store        Store
	expiration   time.Duration
	secureCookie bool
}

func NewService(store Store, expiration time.Duration, secureCookie bool) *Service {
	if expiration <= 0 {
		expiration = DefaultExpiration
	}
	return &Service{store: store, expiration: expiration, secureCookie: secureCookie}
}

// ValidateUserCredentials проверяет входные данные при регистрации
func ValidateUserCredentials(email, username, password string) error {
	if !emailRegex.MatchString(email) || len(email) < 5 || len(email) > 50 {
		return fmt.Errorf("%w: invalid email format or length (5-50 characters)", ErrInvalidInput)
	}
	if !usernameRegex.MatchString(username) {
		return fmt.Errorf("%w: invalid username format or length (3-20 characters, letters, numbers, underscore only)", ErrInvalidInput)
	}
	if !passwordRegex.MatchString(password) {
		return fmt.Errorf("%w: invalid password format or length (6-32 characters)", ErrInvalidInput)
	}
	return nil
}

// HashPassword хеширует пароль bcrypt.
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(bytes), err
}

// CheckPasswordHash сравнивает пароль с хешем.
func CheckPasswordHash(hash, password string) error {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
}

// RegisterUser регистрирует нового пользователя.
func (s *Service) RegisterUser(ctx context.Context, email, username, password string) (*models.User, error) {
	if err := ValidateUserCredentials(email, username, password); err != nil {
		return nil, err
	}

	hashedPassword, err := HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("auth: failed to hash password: %w", err)
	}

	user := &models.User{Email: email, Username: username, Password: hashedPassword}
	err = s.store.CreateUser(ctx, user)
	if errors.Is(err, database.ErrDuplicate) {
		// Уточняем, что именно занято
		taken, terr := s.store.EmailTaken(ctx, email)
		if terr != nil {
			return nil, fmt.Errorf("auth: failed to check existing email: %w", terr)
		}
		if taken {
			return nil, ErrEmailExists
		}
		return nil, ErrUsernameExists
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to insert user: %w", err)
	}
	return user, nil
}

// LoginUser аутентифицирует пользователя и создает новую сессию.
func (s *Service) LoginUser(ctx context.Context, login, password string) (*models.User, *models.Session, error) {
	user, err := s.store.UserByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return nil, nil, ErrUserNotFound
		}
		return nil, nil, fmt.Errorf("auth: failed to query user: %w", err)
	}

	if err = CheckPasswordHash(user.Password, password); err != nil {
		log.Debugf("Password check failed for user %s (ID: %d)", user.Username, user.ID)
		return nil, nil, ErrInvalidPassword
	}

	// Старые сессии пользователя удаляет хранилище
	session := &models.Session{
		UserID:  user.ID,
		UUID:    uuid.New().String(),
		Expires: time.Now().Add(s.expiration),
	}
	if err := s.store.CreateSession(ctx, session); err != nil {
		return nil, nil, fmt.Errorf("auth: failed to create new session: %w", err)
	}
	return &user, session, nil
}

// LogoutUser удаляет сессию из базы данных.
func (s *Service) LogoutUser(ctx context.Context, sessionUUID string) error {
	err := s.store.DeleteSession(ctx, sessionUUID)
	if errors.Is(err, database.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("auth: failed to delete session: %w", err)
	}
	return nil
}

// UserBySession проверяет сессию и возвращает пользователя.
func (s *Service) UserBySession(ctx context.Context, sessionUUID string) (*models.User, error) {
	user, err := s.store.SessionUser(ctx, sessionUUID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("auth: failed to query session: %w", err)
	}
	user.Password = ""
	return &user, nil
}

// SetSessionCookie устанавливает HTTP-cookie для сессии.
func (s *Service) SetSessionCookie(w http.ResponseWriter, sessionUUID string, expirationTime time.Time) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    sessionUUID,
		Path:     "/",
		Expires:  expirationTime,
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ClearSessionCookie очищает HTTP-cookie сессии.
func (s *Service) ClearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1, // Удаляет cookie немедленно
		HttpOnly: true,
		Secure:   s.secureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

// ContextKey для хранения User в контексте запроса
type contextKey string

const UserContextKey contextKey = "user"

// WithUser кладёт пользователя в контекст.
func WithUser(ctx context.Context, user *models.User) context.Context {
	return context.WithValue(ctx, UserContextKey, user)
}

// GetUserFromContext извлекает пользователя из контекста запроса.
func GetUserFromContext(ctx context.Context) *models.User {
	user, ok := ctx.Value(UserContextKey).(*models.User)
	if !ok {
		return nil
	}
	return user
}
