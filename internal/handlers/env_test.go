package handlers_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shopbot/chatbot_api/internal/handlers"
	"github.com/shopbot/chatbot_api/internal/middleware/auth"
	"github.com/shopbot/chatbot_api/internal/models"
	"github.com/shopbot/chatbot_api/internal/service/token"
)

var (
	jwtSecret     = []byte("test-jwt-secret")
	refreshSecret = []byte("test-refresh-secret")
)

type testEnv struct {
	T      *testing.T
	E      *echo.Echo
	DB     *gorm.DB
	A      *handlers.AuthHandler
	P      *handlers.ProductHandler
	Tokens *token.TokenService
	Auth   *auth.SimpleAuth
}

func newTestEnv(t *testing.T) *testEnv {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.Product{}, &models.User{}, &models.RefreshToken{}))

	tokenService := &token.TokenService{DB: db, JWTSecret: jwtSecret, RefreshSecret: refreshSecret}

	env := &testEnv{
		T:      t,
		E:      echo.New(),
		DB:     db,
		Tokens: tokenService,
		Auth:   auth.NewSimpleAuth(jwtSecret),
	}
	env.A = &handlers.AuthHandler{DB: db, Tokens: tokenService}
	env.P = &handlers.ProductHandler{DB: db}
	return env
}

func (env *testEnv) doJSONRequest(method, path string, body interface{}, headers map[string]string) (*httptest.ResponseRecorder, echo.Context) {
	var buf bytes.Buffer
	if body != nil {
		require.NoError(env.T, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := env.E.NewContext(req, rec)
	return rec, c
}

func bearer(accessToken string) map[string]string {
	return map[string]string{echo.HeaderAuthorization: "Bearer " + accessToken}
}

func registerUser(t *testing.T, env *testEnv, username, email, pw string) {
	t.Helper()

	payload := map[string]string{
		"username":  username,
		"email":     email,
		"password":  pw,
		"password2": pw,
	}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/register", payload, nil)
	require.NoError(t, env.A.Register(c))
	require.Equal(t, http.StatusCreated, rec.Code)
}

func login(t *testing.T, env *testEnv, email, pw string) (string, string) {
	t.Helper()

	payload := map[string]string{"email": email, "password": pw}
	rec, c := env.doJSONRequest(http.MethodPost, "/api/auth/login", payload, nil)
	require.NoError(t, env.A.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Email string `json:"email"`
		Token struct {
			Access  string `json:"access"`
			Refresh string `json:"refresh"`
		} `json:"token"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Token.Access)
	require.NotEmpty(t, resp.Token.Refresh)

	return resp.Token.Access, resp.Token.Refresh
}

func requireHTTPError(t *testing.T, err error, code int) {
	t.Helper()

	require.Error(t, err)
	var he *echo.HTTPError
	require.ErrorAs(t, err, &he)
	require.Equal(t, code, he.Code)
}
