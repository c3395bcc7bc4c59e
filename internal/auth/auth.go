package auth

import (
	"context"
	"crypto/rand"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"slices"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/sk-sanagustin/yep-id/internal/config"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"
	"gorm.io/gorm"
)

const (
	DiscordAuthorizeEndpoint = "https://discord.com/api/oauth2/authorize"
	DiscordTokenEndpoint     = "https://discord.com/api/oauth2/token"
	DiscordUserAPI           = "https://discord.com/api/users/@me"
	DiscordUserGuildsAPI     = "https://discord.com/api/users/@me/guilds"

	CookieName      = "auth_token"
	stateCookieName = "oauth_state"
	TokenDuration   = 24 * time.Hour
)

var ErrInvalidCredentials = errors.New("invalid username or password")

type discordGuild struct {
	ID string `json:"id"`
}

type AuthHandler struct {
	oauthConfig  *oauth2.Config
	db           *gorm.DB
	cfg          *config.Config
	passwordHash []byte
	userAPI      string
	guildsAPI    string
}

// NewAuthHandler prepares the admin login. ADMIN_PASSWORD_HASH (bcrypt) is
// preferred; a plain ADMIN_PASSWORD is hashed once here.
func NewAuthHandler(cfg *config.Config, db *gorm.DB) *AuthHandler {
	h := &AuthHandler{
		oauthConfig: &oauth2.Config{
			ClientID:     cfg.DiscordClientID,
			ClientSecret: cfg.DiscordClientSecret,
			RedirectURL:  cfg.DiscordRedirectURL,
			Scopes:       []string{"identify", "email", "guilds"},
			Endpoint: oauth2.Endpoint{
				AuthURL:  DiscordAuthorizeEndpoint,
				TokenURL: DiscordTokenEndpoint,
			},
		},
		db:        db,
		cfg:       cfg,
		userAPI:   DiscordUserAPI,
		guildsAPI: DiscordUserGuildsAPI,
	}

	switch {
	case cfg.AdminPasswordHash != "":
		h.passwordHash = []byte(cfg.AdminPasswordHash)
	case cfg.AdminPassword != "":
		hash, err := bcrypt.GenerateFromPassword([]byte(cfg.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("Failed to hash admin password, password login disabled: %v", err)
			break
		}
		h.passwordHash = hash
	default:
		log.Printf("No admin password configured, password login disabled")
	}

	return h
}

// CheckPassword verifies the built-in admin credentials and returns the
// session subject.
func (h *AuthHandler) CheckPassword(username, password string) (string, error) {
	if h.passwordHash == nil {
		return "", ErrInvalidCredentials
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(h.cfg.AdminUsername)) == 1
	passErr := bcrypt.CompareHashAndPassword(h.passwordHash, []byte(password))
	if !userOK || passErr != nil {
		return "", ErrInvalidCredentials
	}
	return h.cfg.AdminUsername, nil
}

func (h *AuthHandler) GenerateToken(subject string) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": subject,
		"iat": now.Unix(),
		"exp": now.Add(TokenDuration).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(h.cfg.JWTSecret))
}

// ParseToken validates a session token and returns its subject and expiry.
func (h *AuthHandler) ParseToken(tokenString string) (string, time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(h.cfg.JWTSecret), nil
	}, jwt.WithExpirationRequired())
	if err != nil || !token.Valid {
		return "", time.Time{}, fmt.Errorf("invalid token: %w", err)
	}

	subject, err := token.Claims.GetSubject()
	if err != nil || subject == "" {
		return "", time.Time{}, errors.New("invalid token claims")
	}
	exp, err := token.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return "", time.Time{}, errors.New("invalid token claims")
	}
	return subject, exp.Time, nil
}

// SessionCookie wraps a freshly issued token.
func SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Expires:  time.Now().Add(TokenDuration),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

// ExpiredCookie clears the session cookie.
func ExpiredCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	}
}

// LookupAPIKey resolves an unexpired API key and stamps its last use.
func (h *AuthHandler) LookupAPIKey(ctx context.Context, key string) (*models.APIKey, error) {
	var apiKey models.APIKey
	if err := h.db.WithContext(ctx).Where("key = ?", key).First(&apiKey).Error; err != nil {
		return nil, err
	}
	now := time.Now()
	if apiKey.ExpiresAt != nil && now.After(*apiKey.ExpiresAt) {
		return nil, errors.New("api key expired")
	}
	h.db.WithContext(ctx).Model(&apiKey).Update("last_used_at", now)
	return &apiKey, nil
}

func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.DiscordLoginEnabled() {
		http.Error(w, "Discord login is not configured", http.StatusNotFound)
		return
	}

	state, err := randomState()
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    state,
		Expires:  time.Now().Add(10 * time.Minute),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Path:     "/",
	})

	url := h.oauthConfig.AuthCodeURL(state, oauth2.AccessTypeOnline)
	http.Redirect(w, r, url, http.StatusTemporaryRedirect)
}

func (h *AuthHandler) HandleCallback(w http.ResponseWriter, r *http.Request) {
	if !h.cfg.DiscordLoginEnabled() {
		http.Error(w, "Discord login is not configured", http.StatusNotFound)
		return
	}

	state, err := r.Cookie(stateCookieName)
	if err != nil || state.Value == "" || state.Value != r.URL.Query().Get("state") {
		http.Error(w, "Invalid login state", http.StatusBadRequest)
		return
	}

	code := r.URL.Query().Get("code")
	if code == "" {
		http.Error(w, "Code not found", http.StatusBadRequest)
		return
	}

	token, err := h.oauthConfig.Exchange(r.Context(), code)
	if err != nil {
		log.Printf("Discord token exchange failed: %v", err)
		http.Error(w, "Failed to exchange token", http.StatusInternalServerError)
		return
	}

	client := h.oauthConfig.Client(r.Context(), token)

	// Staff are the members of the organizers' guild.
	var guilds []discordGuild
	if err := getJSON(client, h.guildsAPI, &guilds); err != nil {
		http.Error(w, "Failed to get user guilds", http.StatusInternalServerError)
		return
	}
	if !slices.ContainsFunc(guilds, func(g discordGuild) bool { return g.ID == h.cfg.DiscordGuildID }) {
		http.Error(w, "Access denied: You are not a member of the required guild.", http.StatusForbidden)
		return
	}

	var discordUser struct {
		ID       string `json:"id"`
		Username string `json:"username"`
		Email    string `json:"email"`
		Avatar   string `json:"avatar"`
	}
	if err := getJSON(client, h.userAPI, &discordUser); err != nil || discordUser.ID == "" {
		http.Error(w, "Failed to get user info", http.StatusInternalServerError)
		return
	}

	var staff models.StaffUser
	if err := h.db.WithContext(r.Context()).FirstOrInit(&staff, models.StaffUser{DiscordID: discordUser.ID}).Error; err != nil {
		http.Error(w, "Database error", http.StatusInternalServerError)
		return
	}
	staff.Username = discordUser.Username
	staff.Email = discordUser.Email
	staff.Avatar = discordUser.Avatar
	staff.LastLoginAt = time.Now()

	if err := h.db.WithContext(r.Context()).Save(&staff).Error; err != nil {
		http.Error(w, "Failed to save user", http.StatusInternalServerError)
		return
	}

	jwtToken, err := h.GenerateToken(staff.Subject())
	if err != nil {
		http.Error(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	http.SetCookie(w, &http.Cookie{Name: stateCookieName, Value: "", MaxAge: -1, Path: "/"})
	http.SetCookie(w, SessionCookie(jwtToken))

	w.Write([]byte(fmt.Sprintf("Welcome %s! You are logged in.", staff.Username)))
}

func getJSON(client *http.Client, url string, v any) error {
	resp, err := client.Get(url)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: %s", url, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

func randomState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}
