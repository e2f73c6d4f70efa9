package tests

import (
	"context"
	"net/http"
	"net/url"
	"testing"

	"github.com/gopimeda/elearning/core/user"
)

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	app.createUser(t, "Awa Cisse", "awacisse", user.StudentRoles)

	tests := []struct {
		name     string
		body     []byte
		wantCode int
	}{
		{
			name:     "valid credentials log in",
			body:     []byte(`{"username": "awacisse", "password": "LocalHero813!"}`),
			wantCode: http.StatusOK,
		},
		{
			name:     "wrong password fails",
			body:     []byte(`{"username": "awacisse", "password": "nope"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "unknown user fails",
			body:     []byte(`{"username": "ghost", "password": "LocalHero813!"}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name:     "missing fields fail validation",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", tt.body)
			app.server.ServeHTTP(rec, req)

			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; want %v; body: %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			env := decodeEnvelope(t, rec)
			if tt.wantCode == http.StatusOK {
				if !env.Success {
					t.Errorf("success = false; want true")
				}
				var auth struct {
					Token string `json:"token"`
				}
				decodeData(t, env, "auth", &auth)
				if auth.Token == "" {
					t.Errorf("token is empty")
				}
			} else if env.Success {
				t.Errorf("success = true; want false")
			}
		})
	}
}

func Test_userApi_query(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Awa Cisse", "awacisse", user.AdminRoles)
	app.createUser(t, "Bouba Diop", "boubadiop", user.StudentRoles)
	app.createUser(t, "Cheikh Ba", "cheikhba", user.StudentRoles)
	adminToken := getToken(t, admin)

	t.Run("requires a token", func(t *testing.T) {
		req, rec := newRequest(http.MethodGet, "/v1/users")
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusUnauthorized)
		}
	})

	t.Run("students are forbidden", func(t *testing.T) {
		student, err := app.userSvc.GetByUsername(context.Background(), "boubadiop")
		if err != nil {
			t.Fatalf("GetByUsername() failed: %v", err)
		}
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("lists everyone with pagination", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users", adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		env := decodeEnvelope(t, rec)
		var users []user.User
		decodeData(t, env, "users", &users)
		if len(users) != 3 {
			t.Errorf("len(users) = %v; want 3", len(users))
		}
		pg := decodePagination(t, env)
		if pg.TotalItems != 3 || pg.TotalPages != 1 || pg.CurrentPage != 1 {
			t.Errorf("pagination = %+v; want 3 items on 1 page", pg)
		}
		if pg.HasNextPage || pg.HasPrevPage {
			t.Errorf("pagination = %+v; want no next/prev", pg)
		}
	})

	t.Run("search narrows the list", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?search="+url.QueryEscape("diop"), adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}

		env := decodeEnvelope(t, rec)
		var users []user.User
		decodeData(t, env, "users", &users)
		if len(users) != 1 || users[0].Username != "boubadiop" {
			t.Errorf("users = %+v; want only boubadiop", users)
		}
	})

	t.Run("page overflow clamps to the last page", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/users?limit=2&page=9", adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}

		env := decodeEnvelope(t, rec)
		var users []user.User
		decodeData(t, env, "users", &users)
		pg := decodePagination(t, env)
		if pg.CurrentPage != 2 || pg.TotalPages != 2 {
			t.Errorf("pagination = %+v; want clamped to page 2 of 2", pg)
		}
		if len(users) != 1 {
			t.Errorf("len(users) = %v; want 1 on the last page", len(users))
		}
	})
}

func Test_userApi_bulk(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Awa Cisse", "awacisse", user.AdminRoles)
	target := app.createUser(t, "Bouba Diop", "boubadiop", user.StudentRoles)
	adminToken := getToken(t, admin)

	t.Run("empty selection fails", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/bulk", adminToken,
			[]byte(`{"action": "suspend", "ids": []}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("admin cannot target themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/bulk", adminToken,
			marshallObj(t, map[string]interface{}{"action": "delete", "ids": []string{admin.ID}}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("suspend deactivates", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/users/bulk", adminToken,
			marshallObj(t, map[string]interface{}{"action": "suspend", "ids": []string{target.ID}}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		usr, err := app.userSvc.GetByID(context.Background(), target.ID)
		if err != nil {
			t.Fatalf("GetByID() failed: %v", err)
		}
		if usr.Active() {
			t.Errorf("user still active after suspend")
		}
	})
}

func Test_userApi_destroy(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "Awa Cisse", "awacisse", user.AdminRoles)
	target := app.createUser(t, "Bouba Diop", "boubadiop", user.StudentRoles)
	adminToken := getToken(t, admin)

	t.Run("admin cannot delete themselves", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+admin.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("admin deletes another user", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodDelete, "/v1/users/"+target.ID, adminToken)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusNoContent, rec.Body.String())
		}
		if _, err := app.userSvc.GetByID(context.Background(), target.ID); err == nil {
			t.Errorf("user still exists after delete")
		}
	})
}
