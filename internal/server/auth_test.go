package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/labstack/echo/v4"
	"github.com/lib/pq"
	"golang.org/x/crypto/bcrypt"

	"github.com/mohammad-safakhou/scribe/internal/store"
)

func TestSignupSuccess(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &AuthHandler{Store: &store.Store{DB: db}, Secret: []byte("secret")}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"alice@example.com","password":"longenough"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.signup(ctx); err != nil {
		t.Fatalf("signup: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected status 201 got %d", rec.Code)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestSignupDuplicateEmail(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &AuthHandler{Store: &store.Store{DB: db}, Secret: []byte("secret")}

	mock.ExpectExec(`INSERT INTO users`).
		WithArgs("alice@example.com", sqlmock.AnyArg()).
		WillReturnError(&pq.Error{Code: "23505"})

	req := httptest.NewRequest(http.MethodPost, "/api/auth/signup", strings.NewReader(`{"email":"alice@example.com","password":"longenough"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err = handler.signup(ctx)
	if err == nil {
		t.Fatalf("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusConflict {
		t.Fatalf("expected 409 error, got %#v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoginSuccess(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &AuthHandler{Store: &store.Store{DB: db}, Secret: []byte("secret")}

	hash, err := bcrypt.GenerateFromPassword([]byte("longenough"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	mock.ExpectQuery(`SELECT id, password_hash FROM users WHERE email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).
			AddRow("user-1", string(hash)))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"longenough"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler.login(ctx); err != nil {
		t.Fatalf("login: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}

	var resp TokenResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Token == "" {
		t.Fatalf("expected token in body")
	}
	if got := rec.Header().Get("Authorization"); !strings.HasPrefix(got, "Bearer ") {
		t.Fatalf("expected Authorization header, got %q", got)
	}
	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "auth" && ck.Value == resp.Token {
			found = true
			if !ck.HttpOnly {
				t.Fatalf("auth cookie should be http-only")
			}
		}
	}
	if !found {
		t.Fatalf("auth cookie not set")
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoginWrongPassword(t *testing.T) {
	e := echo.New()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &AuthHandler{Store: &store.Store{DB: db}, Secret: []byte("secret")}

	hash, err := bcrypt.GenerateFromPassword([]byte("the-real-password"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("bcrypt: %v", err)
	}
	mock.ExpectQuery(`SELECT id, password_hash FROM users WHERE email=\$1`).
		WithArgs("alice@example.com").
		WillReturnRows(sqlmock.NewRows([]string{"id", "password_hash"}).
			AddRow("user-1", string(hash)))

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"wrongwrong"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err = handler.login(ctx)
	if err == nil {
		t.Fatalf("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 error, got %#v", err)
	}

	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestLoginShortPassword(t *testing.T) {
	e := echo.New()
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	handler := &AuthHandler{Store: &store.Store{DB: db}, Secret: []byte("secret")}

	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":"alice@example.com","password":"short"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	err = handler.login(ctx)
	if err == nil {
		t.Fatalf("expected error")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 error, got %#v", err)
	}
}

func TestWithAuthBearer(t *testing.T) {
	e := echo.New()
	secret := []byte("secret")
	token, err := SignJWT("user-9", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	var got string
	handler := withAuth(func(c echo.Context) error {
		got = c.Get("user_id").(string)
		return c.NoContent(http.StatusOK)
	}, secret)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler(ctx); err != nil {
		t.Fatalf("withAuth: %v", err)
	}
	if got != "user-9" {
		t.Fatalf("expected user_id user-9, got %q", got)
	}
}

func TestWithAuthCookie(t *testing.T) {
	e := echo.New()
	secret := []byte("secret")
	token, err := SignJWT("user-9", secret, time.Hour)
	if err != nil {
		t.Fatalf("SignJWT: %v", err)
	}

	handler := withAuth(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	}, secret)

	req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
	req.AddCookie(&http.Cookie{Name: "auth", Value: token})
	rec := httptest.NewRecorder()
	ctx := e.NewContext(req, rec)

	if err := handler(ctx); err != nil {
		t.Fatalf("withAuth: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200 got %d", rec.Code)
	}
}

func TestWithAuthRejectsBadTokens(t *testing.T) {
	e := echo.New()
	secret := []byte("secret")
	handler := withAuth(func(c echo.Context) error {
		t.Fatalf("handler should not run")
		return nil
	}, secret)

	cases := map[string]func(*http.Request){
		"missing": func(r *http.Request) {},
		"garbage": func(r *http.Request) { r.Header.Set("Authorization", "Bearer garbage") },
		"wrong key": func(r *http.Request) {
			tok, err := SignJWT("user-9", []byte("other"), time.Hour)
			if err != nil {
				t.Fatalf("SignJWT: %v", err)
			}
			r.Header.Set("Authorization", "Bearer "+tok)
		},
	}
	for name, prep := range cases {
		req := httptest.NewRequest(http.MethodGet, "/api/sessions", nil)
		prep(req)
		rec := httptest.NewRecorder()
		ctx := e.NewContext(req, rec)

		err := handler(ctx)
		if err == nil {
			t.Fatalf("%s: expected error", name)
		}
		httpErr, ok := err.(*echo.HTTPError)
		if !ok || httpErr.Code != http.StatusUnauthorized {
			t.Fatalf("%s: expected 401 error, got %#v", name, err)
		}
	}
}
