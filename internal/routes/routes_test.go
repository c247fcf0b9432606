package routes

import (
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/config"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/models"
	"github.com/ahmetcoskunkizilkaya/foodgram-backend/internal/testutil"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type server struct {
	app *fiber.App
	db  *gorm.DB
}

func newServer(t *testing.T) *server {
	t.Helper()
	db := testutil.NewDB(t)
	cfg := &config.Config{
		JWTSecret:         "test-secret",
		JWTAccessExpiry:   time.Hour,
		AuthScheme:        "Token",
		PasswordMinLength: 8,
		BcryptCost:        bcrypt.MinCost,
		AdminToken:        "admin-secret",
		PageSize:          6,
	}
	app := fiber.New(fiber.Config{
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: handlers.ErrorHandler,
	})
	Setup(app, cfg, db, NewServices(db, cfg))
	return &server{app: app, db: db}
}

func (s *server) do(t *testing.T, method, path, token string, body interface{}, headers ...string) (int, map[string]interface{}) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Token "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	out := map[string]interface{}{}
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func (s *server) login(t *testing.T, email, password string) string {
	t.Helper()
	status, body := s.do(t, http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email": email, "password": password,
	})
	require.Equal(t, http.StatusOK, status, body)
	token, _ := body["auth_token"].(string)
	require.NotEmpty(t, token)
	return token
}

func TestRegisterLoginMeLogout(t *testing.T) {
	s := newServer(t)

	status, body := s.do(t, http.MethodPost, "/api/users/", "", map[string]string{
		"email": "cook@example.com", "username": "cook", "first_name": "Ada",
		"last_name": "Lovelace", "password": "NewStrongPass1",
	})
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "cook", body["username"])
	assert.NotContains(t, body, "password")

	token := s.login(t, "cook@example.com", "NewStrongPass1")

	status, body = s.do(t, http.MethodGet, "/api/users/me/", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "cook@example.com", body["email"])
	assert.Equal(t, false, body["is_subscribed"])

	status, _ = s.do(t, http.MethodGet, "/api/users/me/", "", nil)
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = s.do(t, http.MethodPost, "/api/auth/token/logout/", token, nil)
	require.Equal(t, http.StatusNoContent, status)

	status, body = s.do(t, http.MethodGet, "/api/users/me/", token, nil)
	assert.Equal(t, http.StatusUnauthorized, status)
	assert.Equal(t, "not_authenticated", body["code"])
}

func TestLoginErrors(t *testing.T) {
	s := newServer(t)
	testutil.CreateUser(t, s.db, "cook@example.com", "cook", "NewStrongPass1")

	status, body := s.do(t, http.MethodPost, "/api/auth/token/login/", "", map[string]string{"password": "x"})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "missing_fields", body["code"])

	status, body = s.do(t, http.MethodPost, "/api/auth/token/login/", "", map[string]string{
		"email": "cook@example.com", "password": "wrong-password",
	})
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "authorization", body["code"])
}

func TestSubscribeFlow(t *testing.T) {
	s := newServer(t)
	alice := testutil.CreateUser(t, s.db, "alice@example.com", "alice", "NewStrongPass1")
	bob := testutil.CreateUser(t, s.db, "bob@example.com", "bob", "NewStrongPass1")
	for _, name := range []string{"Pie", "Stew", "Soup"} {
		testutil.CreateRecipe(t, s.db, bob, name)
	}
	token := s.login(t, "alice@example.com", "NewStrongPass1")
	bobPath := "/api/users/" + strconv.FormatUint(uint64(bob.ID), 10)

	status, body := s.do(t, http.MethodPost, "/api/users/"+strconv.FormatUint(uint64(alice.ID), 10)+"/subscribe/", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "self_follow", body["code"])

	status, body = s.do(t, http.MethodPost, bobPath+"/subscribe/?recipes_limit=2", token, nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, true, body["is_subscribed"])
	assert.Len(t, body["recipes"], 2)
	assert.Equal(t, float64(3), body["recipes_count"])

	status, body = s.do(t, http.MethodPost, bobPath+"/subscribe/", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "already_following", body["code"])

	status, body = s.do(t, http.MethodGet, bobPath+"/", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, false, body["is_subscribed"])

	status, body = s.do(t, http.MethodGet, "/api/users/subscriptions/?recipes_limit=abc", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "recipes_limit", body["field"])

	status, body = s.do(t, http.MethodGet, "/api/users/subscriptions/?recipes_limit=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, _ = s.do(t, http.MethodDelete, bobPath+"/subscribe/", token, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status, body = s.do(t, http.MethodDelete, bobPath+"/subscribe/", token, nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "not_following", body["code"])

	status, _ = s.do(t, http.MethodPost, "/api/users/999/subscribe/", token, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRecipeFiltersOverHTTP(t *testing.T) {
	s := newServer(t)
	alice := testutil.CreateUser(t, s.db, "alice@example.com", "alice", "NewStrongPass1")
	lunch := testutil.CreateTag(t, s.db, "lunch")
	dinner := testutil.CreateTag(t, s.db, "dinner")
	soup := testutil.CreateRecipe(t, s.db, alice, "Soup", lunch, dinner)
	testutil.CreateRecipe(t, s.db, alice, "Salad", lunch)
	testutil.CreateRecipe(t, s.db, alice, "Bread")
	require.NoError(t, s.db.Create(&models.Favorite{UserID: alice.ID, RecipeID: soup.ID}).Error)
	token := s.login(t, "alice@example.com", "NewStrongPass1")

	status, body := s.do(t, http.MethodGet, "/api/recipes/?tags=lunch&tags=dinner", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(2), body["count"])

	status, body = s.do(t, http.MethodGet, "/api/recipes/?tags=brunch", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "invalid_choice", body["code"])
	assert.Equal(t, "brunch", body["value"])

	status, body = s.do(t, http.MethodGet, "/api/recipes/?is_favorited=1", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(0), body["count"])

	status, body = s.do(t, http.MethodGet, "/api/recipes/?is_favorited=1", token, nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(1), body["count"])

	status, body = s.do(t, http.MethodGet, "/api/recipes/?limit=2", "", nil)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, float64(3), body["count"])
	assert.Len(t, body["results"], 2)
	require.NotNil(t, body["next"])
	assert.Contains(t, body["next"], "page=2")
	assert.Nil(t, body["previous"])

	status, body = s.do(t, http.MethodGet, "/api/recipes/?author=999", "", nil)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Equal(t, "author", body["field"])
}

func TestIngredientsAndAdmin(t *testing.T) {
	s := newServer(t)
	testutil.CreateIngredient(t, s.db, "Salt", "g")
	testutil.CreateIngredient(t, s.db, "Sugar", "g")

	req := httptest.NewRequest(http.MethodGet, "/api/ingredients/?name=sa", nil)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	var items []map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&items))
	require.Len(t, items, 1)
	assert.Equal(t, "Salt", items[0]["name"])

	tag := map[string]string{"name": "Lunch", "color": "#49B64E", "slug": "lunch"}
	status, _ := s.do(t, http.MethodPost, "/api/admin/tags/", "", tag)
	assert.Equal(t, http.StatusUnauthorized, status)

	testutil.CreateUser(t, s.db, "cook@example.com", "cook", "NewStrongPass1")
	token := s.login(t, "cook@example.com", "NewStrongPass1")
	status, _ = s.do(t, http.MethodPost, "/api/admin/tags/", token, tag)
	assert.Equal(t, http.StatusForbidden, status)

	status, body := s.do(t, http.MethodPost, "/api/admin/tags/", "", tag, "X-Admin-Token", "admin-secret")
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "lunch", body["slug"])
}

func TestShoppingCartDownload(t *testing.T) {
	s := newServer(t)
	alice := testutil.CreateUser(t, s.db, "alice@example.com", "alice", "NewStrongPass1")
	salt := testutil.CreateIngredient(t, s.db, "Salt", "g")
	soup := testutil.CreateRecipe(t, s.db, alice, "Soup")
	require.NoError(t, s.db.Create(&models.RecipeIngredient{RecipeID: soup.ID, IngredientID: salt.ID, Amount: 5}).Error)
	token := s.login(t, "alice@example.com", "NewStrongPass1")

	path := "/api/recipes/" + strconv.FormatUint(uint64(soup.ID), 10) + "/shopping_cart/"
	status, body := s.do(t, http.MethodPost, path, token, nil)
	require.Equal(t, http.StatusCreated, status, body)
	assert.Equal(t, "Soup", body["name"])

	req := httptest.NewRequest(http.MethodGet, "/api/recipes/download_shopping_cart/", nil)
	req.Header.Set("Authorization", "Token "+token)
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "shopping_list.txt")
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Salt (g): 5")
}
