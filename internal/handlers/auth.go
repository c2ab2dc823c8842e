package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/mail"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"github.com/shopbot/chatbot_api/internal/hash"
	"github.com/shopbot/chatbot_api/internal/models"
	"github.com/shopbot/chatbot_api/internal/mykafka"
	"github.com/shopbot/chatbot_api/internal/password"
	"github.com/shopbot/chatbot_api/internal/service/token"
)

type AuthHandler struct {
	DB       *gorm.DB
	Tokens   *token.TokenService
	Producer *mykafka.Producer
}

// fieldErrors maps request fields to validation messages, mirroring how
// the API reports bad input to the frontend form.
type fieldErrors map[string][]string

func (h *AuthHandler) publish(c echo.Context, key string, event map[string]interface{}) {
	if h.Producer == nil {
		return
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), 5*time.Second)
	defer cancel()

	if err := h.Producer.PublishEvent(ctx, "user_events", key, event); err != nil {
		c.Logger().Errorf("kafka publish error: %v", err)
	}
}

func (h *AuthHandler) Register(c echo.Context) error {
	var req struct {
		Username  string `json:"username"`
		Email     string `json:"email"`
		Password  string `json:"password"`
		Password2 string `json:"password2"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	errs := fieldErrors{}
	if req.Username == "" {
		errs["username"] = append(errs["username"], "This field is required.")
	}
	if len(req.Username) > 150 {
		errs["username"] = append(errs["username"], "Ensure this field has no more than 150 characters.")
	}
	if req.Email == "" {
		errs["email"] = append(errs["email"], "This field is required.")
	} else if addr, err := mail.ParseAddress(req.Email); err != nil || addr.Address != req.Email {
		errs["email"] = append(errs["email"], "Enter a valid email address.")
	}
	if req.Password == "" {
		errs["password"] = append(errs["password"], "This field is required.")
	}
	if req.Password2 == "" {
		errs["password2"] = append(errs["password2"], "This field is required.")
	}
	if req.Password != "" {
		if msgs := password.Validate(req.Password, req.Username, req.Email); len(msgs) > 0 {
			errs["password"] = append(errs["password"], msgs...)
		}
	}
	if len(errs["password"]) == 0 && req.Password != req.Password2 {
		errs["password"] = append(errs["password"], "Passwords did't match.")
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}

	var existing models.User
	if err := h.DB.Where("username = ?", req.Username).First(&existing).Error; err == nil {
		return c.JSON(http.StatusBadRequest, fieldErrors{
			"username": {"A user with that username already exists."},
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}
	if err := h.DB.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		return c.JSON(http.StatusBadRequest, fieldErrors{
			"email": {"A user with that email already exists."},
		})
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	pwHash, err := hash.HashPassword(req.Password)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err)
	}

	user := models.User{
		Username:     req.Username,
		Email:        req.Email,
		PasswordHash: pwHash,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_registered",
		"userID":   user.ID,
		"username": user.Username,
	})

	return c.JSON(http.StatusCreated, echo.Map{
		"username": user.Username,
		"email":    user.Email,
	})
}

// checkCredentials resolves an email+password pair to a user. The error
// messages match what the login form expects.
func (h *AuthHandler) checkCredentials(email, pw string) (*models.User, string) {
	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		return nil, "User with this email does not exist."
	}
	if !hash.CheckPassword(user.PasswordHash, pw) {
		return nil, "Incorrect password."
	}
	return &user, ""
}

func (h *AuthHandler) Login(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, fieldErrors{
			"non_field_errors": {"Must include 'email' and 'password'."},
		})
	}

	user, reason := h.checkCredentials(req.Email, req.Password)
	if user == nil {
		return c.JSON(http.StatusBadRequest, fieldErrors{
			"non_field_errors": {reason},
		})
	}

	access, refresh, err := h.Tokens.IssuePair(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token pair")
	}

	h.publish(c, fmt.Sprint(user.ID), map[string]interface{}{
		"type":     "user_logged_in",
		"userID":   user.ID,
		"username": user.Username,
	})

	// the response echoes the validated payload, password excluded, with
	// the token pair nested under "token"
	return c.JSON(http.StatusOK, echo.Map{
		"email": req.Email,
		"token": echo.Map{
			"access":  access,
			"refresh": refresh,
		},
	})
}

// TokenPair is the bare token-obtain endpoint: same credential checks as
// Login but a minimal {access, refresh} payload.
func (h *AuthHandler) TokenPair(c echo.Context) error {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	errs := fieldErrors{}
	if req.Email == "" {
		errs["email"] = append(errs["email"], "This field is required.")
	}
	if req.Password == "" {
		errs["password"] = append(errs["password"], "This field is required.")
	}
	if len(errs) > 0 {
		return c.JSON(http.StatusBadRequest, errs)
	}

	user, _ := h.checkCredentials(req.Email, req.Password)
	if user == nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"detail": "No active account found with the given credentials",
		})
	}

	access, refresh, err := h.Tokens.IssuePair(c.Request().Context(), user.ID)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "could not create token pair")
	}

	return c.JSON(http.StatusOK, echo.Map{
		"access":  access,
		"refresh": refresh,
	})
}

// TokenRefresh mints a new access token for a valid refresh token. The
// refresh token is not rotated, it stays usable until logout or expiry.
func (h *AuthHandler) TokenRefresh(c echo.Context) error {
	var req struct {
		Refresh string `json:"refresh"`
	}

	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}

	if req.Refresh == "" {
		return c.JSON(http.StatusBadRequest, fieldErrors{
			"refresh": {"This field is required."},
		})
	}

	access, err := h.Tokens.RefreshAccess(c.Request().Context(), req.Refresh)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, echo.Map{
			"detail": "Token is invalid or expired",
			"code":   "token_not_valid",
		})
	}

	return c.JSON(http.StatusOK, echo.Map{"access": access})
}

func (h *AuthHandler) LogOut(c echo.Context) error {
	var req struct {
		Refresh string `json:"refresh"`
	}

	if err := c.Bind(&req); err != nil || req.Refresh == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"detail": "Invalid token or token not found.",
			"error":  "refresh token is required",
		})
	}

	if err := h.Tokens.Revoke(c.Request().Context(), req.Refresh); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{
			"detail": "Invalid token or token not found.",
			"error":  err.Error(),
		})
	}

	h.publish(c, fmt.Sprint(c.Get("userID")), map[string]interface{}{
		"type":   "user_logged_out",
		"userID": c.Get("userID"),
	})

	return c.NoContent(http.StatusResetContent)
}

// Me returns the caller's own profile. The identity comes from the
// validated access token, never from a request parameter.
func (h *AuthHandler) Me(c echo.Context) error {
	userID, ok := c.Get("userID").(uint)
	if !ok {
		return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}

	var user models.User
	if err := h.DB.First(&user, userID).Error; err != nil {
		return echo.NewHTTPError(http.StatusUnauthorized, "user not found")
	}

	return c.JSON(http.StatusOK, user)
}
