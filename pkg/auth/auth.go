package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/arnavshah/staff-scheduler-go/pkg/database"
	"github.com/arnavshah/staff-scheduler-go/pkg/logging"
	"github.com/golang-jwt/jwt/v4"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

var jwtAlgorithm = jwt.SigningMethodHS256

// TokenTTL is how long an admin token stays valid.
const TokenTTL = 24 * time.Hour

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidKeyFormat = errors.New("invalid key format")
	ErrInvalidSignature = errors.New("invalid signature")
)

// Claims represents the JWT claims
type Claims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// KeyIdentity is what a verified API key grants access to.
type KeyIdentity struct {
	RestaurantID uint
	Name         string
}

// Authenticator signs admin tokens and restaurant API keys.
type Authenticator struct {
	jwtSecret    []byte
	masterSecret []byte
}

// New creates an Authenticator from the JWT and API master secrets.
func New(jwtSecret, masterSecret string) *Authenticator {
	return &Authenticator{jwtSecret: []byte(jwtSecret), masterSecret: []byte(masterSecret)}
}

// HashPassword hashes a password using bcrypt
func HashPassword(password string) (string, error) {
	bytes, err := bcrypt.GenerateFromPassword([]byte(password), 14)
	return string(bytes), err
}

// CheckPasswordHash compares a password with its hash
func CheckPasswordHash(password, hash string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password))
	return err == nil
}

// CreateToken creates a new JWT token for a user
func (a *Authenticator) CreateToken(username string) (string, error) {
	expirationTime := time.Now().Add(TokenTTL)
	claims := &Claims{
		Username: username,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expirationTime),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwtAlgorithm, claims)
	return token.SignedString(a.jwtSecret)
}

// VerifyToken verifies a JWT token
func (a *Authenticator) VerifyToken(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwtAlgorithm {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return a.jwtSecret, nil
	})

	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, ErrInvalidToken
	}

	return claims, nil
}

// EnsureAdminExists creates the first admin user when none exists.
func EnsureAdminExists(db *gorm.DB, username, password string, logger *zap.Logger) error {
	var count int64
	if err := db.Model(&database.MasterUser{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}

	hash, err := HashPassword(password)
	if err != nil {
		return err
	}

	user := database.MasterUser{
		Username:     username,
		PasswordHash: hash,
	}
	if err := db.Create(&user).Error; err != nil {
		return err
	}
	logging.OrNop(logger).Info("default admin user created", zap.String("username", username))
	return nil
}

// Subject is the signed part of an API key.
func Subject(restaurantID uint, name string) string {
	return strconv.FormatUint(uint64(restaurantID), 10) + ":" + name
}

// GenerateHMACKey creates a signed API key for a restaurant using HMAC-SHA256.
// The key has the form "<restaurant>:<name>.<signature>".
func (a *Authenticator) GenerateHMACKey(restaurantID uint, name string) string {
	subject := Subject(restaurantID, name)
	return subject + "." + sign(a.masterSecret, subject)
}

// VerifyHMACKey validates an HMAC-signed API key and returns who it belongs to.
func (a *Authenticator) VerifyHMACKey(key string) (KeyIdentity, error) {
	dot := strings.LastIndex(key, ".")
	if dot <= 0 || dot == len(key)-1 {
		return KeyIdentity{}, ErrInvalidKeyFormat
	}
	subject, providedSignature := key[:dot], key[dot+1:]

	// Use constant-time comparison to prevent timing attacks
	if !hmac.Equal([]byte(providedSignature), []byte(sign(a.masterSecret, subject))) {
		return KeyIdentity{}, ErrInvalidSignature
	}

	rid, name, ok := strings.Cut(subject, ":")
	if !ok || name == "" {
		return KeyIdentity{}, ErrInvalidKeyFormat
	}
	id, err := strconv.ParseUint(rid, 10, 32)
	if err != nil || id == 0 {
		return KeyIdentity{}, ErrInvalidKeyFormat
	}
	return KeyIdentity{RestaurantID: uint(id), Name: name}, nil
}

// KeyPreview masks all but the edges of a key.
func KeyPreview(key string) string {
	if len(key) > 8 {
		return key[:3] + "..." + key[len(key)-4:]
	}
	return "****"
}

func sign(secret []byte, subject string) string {
	h := hmac.New(sha256.New, secret)
	h.Write([]byte(subject))
	return hex.EncodeToString(h.Sum(nil))
}
