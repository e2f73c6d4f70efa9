package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gopimeda/elearning/core/user"
	emailsvc "github.com/gopimeda/elearning/services/email"
	logsvc "github.com/gopimeda/elearning/services/logger"
	"github.com/gopimeda/elearning/storage/database/inmem"
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	t.Helper()
	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("LocalHero813!"), nil }

	out := new(bytes.Buffer)
	cli := &commandLine{
		usrSvc: user.NewService(
			inmem.NewUserRepository(),
			emailsvc.NewConsoleServiceMock(),
			logsvc.NewStdLogger(log.New(io.Discard, "", 0)),
		),
		out: out,
	}
	return cli, out
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{name: "no subcommand", args: []string{}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"lol"}, wantErr: errHelp},
		{name: "missing flags", args: []string{"adduser", "-name", "Awa"}, wantErr: errHelp},
		{name: "creates", args: []string{"adduser", "-name", "Awa Cisse", "-username", "awacisse", "-email", "awa@test.cd", "-admin"}},
		{name: "updates on rerun", args: []string{"adduser", "-name", "Awa C.", "-username", "awacisse", "-email", "awa@test.cd"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			if err != tt.wantErr {
				t.Errorf("cli.run() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}

	usr, err := cli.usrSvc.GetByUsername(context.Background(), "awacisse")
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if usr.Name != "Awa C." {
		t.Errorf("name = %v; want the rerun's name", usr.Name)
	}
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	if err := cli.run([]string{"admin", "adduser", "-name", "Awa Cisse", "-username", "awacisse", "-email", "awa@test.cd"}); err != nil {
		t.Fatalf("adduser failed: %v", err)
	}
	before, _ := cli.usrSvc.GetByUsername(context.Background(), "awacisse")

	readPasswordFunc = func(fd int) ([]byte, error) { return []byte("NewSecret99!"), nil }
	if err := cli.run([]string{"admin", "resetpassword", "-username", "awacisse"}); err != nil {
		t.Fatalf("resetpassword failed: %v", err)
	}

	after, err := cli.usrSvc.GetByUsername(context.Background(), "awacisse")
	if err != nil {
		t.Fatalf("GetByUsername() failed: %v", err)
	}
	if bytes.Equal(before.PasswordHash, after.PasswordHash) {
		t.Errorf("password hash unchanged after reset")
	}
	if err := after.CheckPassword("NewSecret99!"); err != nil {
		t.Errorf("CheckPassword() failed: %v", err)
	}
}

// fakeAPI serves the list/export contract for one canned users collection.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/users/export", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/csv")
		w.Header().Set("Content-Disposition", `attachment; filename="users-export-2026-08-30.csv"`)
		_, _ = w.Write([]byte("id,name\nu1,Awa Cisse\n"))
	})
	mux.HandleFunc("/users", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer token123" {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "message": "missing or malformed jwt"})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"success": true,
			"data": map[string]interface{}{
				"users": []map[string]string{{"id": "u1", "name": "Awa Cisse"}},
				"pagination": map[string]interface{}{
					"currentPage": 1, "totalPages": 1, "totalItems": 1,
					"hasNextPage": false, "hasPrevPage": false,
				},
			},
		})
	})
	return httptest.NewServer(mux)
}

func Test_commandLine_list(t *testing.T) {
	cli, out := setup(t)
	srv := fakeAPI(t)
	defer srv.Close()

	t.Run("bad token fails", func(t *testing.T) {
		err := cli.run([]string{"admin", "list", "-resource", "users", "-url", srv.URL, "-token", "nope"})
		if err == nil {
			t.Fatalf("cli.run() error = nil; want auth failure")
		}
	})

	t.Run("lists rows and pagination", func(t *testing.T) {
		out.Reset()
		err := cli.run([]string{"admin", "list", "-resource", "users", "-url", srv.URL, "-token", "token123", "-search", "awa"})
		if err != nil {
			t.Fatalf("cli.run() error = %v", err)
		}
		got := out.String()
		if !strings.Contains(got, `"name":"Awa Cisse"`) {
			t.Errorf("output missing row: %s", got)
		}
		if !strings.Contains(got, "page 1/1 (1 items)") {
			t.Errorf("output missing pagination: %s", got)
		}
	})

	t.Run("unknown resource fails", func(t *testing.T) {
		err := cli.run([]string{"admin", "list", "-resource", "nope", "-url", srv.URL, "-token", "token123"})
		if err == nil || !strings.Contains(err.Error(), "unknown resource") {
			t.Errorf("cli.run() error = %v; want unknown resource", err)
		}
	})
}

func Test_commandLine_export(t *testing.T) {
	cli, out := setup(t)
	srv := fakeAPI(t)
	defer srv.Close()

	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("Getwd() failed: %v", err)
	}
	tmp := t.TempDir()
	if err := os.Chdir(tmp); err != nil {
		t.Fatalf("Chdir() failed: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	if err := cli.run([]string{"admin", "export", "-resource", "users", "-url", srv.URL, "-token", "token123"}); err != nil {
		t.Fatalf("cli.run() error = %v", err)
	}
	wantName := "users-export-" + time.Now().UTC().Format("2006-01-02") + ".csv"
	if !strings.Contains(out.String(), "wrote "+wantName) {
		t.Errorf("output = %s; want %s written", out.String(), wantName)
	}

	data, err := os.ReadFile(filepath.Join(tmp, wantName))
	if err != nil {
		t.Fatalf("ReadFile() failed: %v", err)
	}
	if !strings.HasPrefix(string(data), "id,name") {
		t.Errorf("csv = %s; want the exported rows", data)
	}
}
