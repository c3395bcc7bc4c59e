package auth

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"github.com/sk-sanagustin/yep-id/internal/models"
	"gorm.io/gorm"
)

// AuthInput is embedded in every admin operation input.
type AuthInput struct {
	Cookie string `header:"Cookie" doc:"Session cookie"`
	APIKey string `header:"X-API-KEY" doc:"Scanning station API key"`
}

func (in *AuthInput) sessionToken() string {
	if in == nil || in.Cookie == "" {
		return ""
	}
	cookies, err := http.ParseCookie(in.Cookie)
	if err != nil {
		return ""
	}
	for _, c := range cookies {
		if c.Name == CookieName {
			return c.Value
		}
	}
	return ""
}

// Authorize is the admin capability check. It accepts a session cookie or
// an API key and returns the caller's subject.
func (h *AuthHandler) Authorize(ctx context.Context, input *AuthInput) (string, error) {
	if input != nil && input.APIKey != "" {
		key, err := h.LookupAPIKey(ctx, input.APIKey)
		if err == nil {
			return key.Owner, nil
		}
		if input.Cookie == "" {
			return "", huma.Error401Unauthorized("Unauthorized: invalid API key")
		}
	}
	return h.AuthorizeSession(ctx, input)
}

// AuthorizeSession accepts only an interactive session, not an API key.
func (h *AuthHandler) AuthorizeSession(_ context.Context, input *AuthInput) (string, error) {
	token := input.sessionToken()
	if token == "" {
		return "", huma.Error401Unauthorized("Unauthorized: No token found")
	}
	subject, _, err := h.ParseToken(token)
	if err != nil {
		return "", huma.Error401Unauthorized("Unauthorized: Invalid token")
	}
	return subject, nil
}

type LoginInput struct {
	Body struct {
		Username string `json:"username" required:"true"`
		Password string `json:"password" required:"true"`
	}
}

type LoginOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
	}
}

func (h *AuthHandler) HandlePasswordLogin(ctx context.Context, input *LoginInput) (*LoginOutput, error) {
	subject, err := h.CheckPassword(strings.TrimSpace(input.Body.Username), input.Body.Password)
	if err != nil {
		return nil, huma.Error401Unauthorized("Invalid username or password!")
	}

	token, err := h.GenerateToken(subject)
	if err != nil {
		return nil, huma.Error500InternalServerError("Failed to generate token")
	}

	res := &LoginOutput{SetCookie: *SessionCookie(token)}
	res.Body.Message = "Login successful!"
	return res, nil
}

type LogoutOutput struct {
	SetCookie http.Cookie `header:"Set-Cookie"`
	Body      struct {
		Message string `json:"message"`
	}
}

func (h *AuthHandler) HandleLogout(ctx context.Context, _ *struct{}) (*LogoutOutput, error) {
	res := &LogoutOutput{SetCookie: *ExpiredCookie()}
	res.Body.Message = "You have been logged out."
	return res, nil
}

type MeOutput struct {
	Body struct {
		Subject  string `json:"subject"`
		Method   string `json:"method"`
		Username string `json:"username"`
		Email    string `json:"email,omitempty"`
		Avatar   string `json:"avatar,omitempty"`
	}
}

func (h *AuthHandler) HandleMe(ctx context.Context, input *AuthInput) (*MeOutput, error) {
	subject, err := h.AuthorizeSession(ctx, input)
	if err != nil {
		return nil, err
	}

	res := &MeOutput{}
	res.Body.Subject = subject

	discordID, ok := strings.CutPrefix(subject, models.StaffSubjectPrefix)
	if !ok {
		res.Body.Method = "password"
		res.Body.Username = subject
		return res, nil
	}

	var staff models.StaffUser
	if err := h.db.WithContext(ctx).Where("discord_id = ?", discordID).First(&staff).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, huma.Error404NotFound("User not found")
		}
		return nil, huma.Error500InternalServerError("Database error")
	}
	res.Body.Method = "discord"
	res.Body.Username = staff.Username
	res.Body.Email = staff.Email
	res.Body.Avatar = staff.Avatar
	return res, nil
}
