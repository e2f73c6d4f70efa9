package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	. "github.com/gopimeda/elearning/apps/api/echo"
	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/enrollment"
	"github.com/gopimeda/elearning/core/quiz"
	"github.com/gopimeda/elearning/core/review"
	"github.com/gopimeda/elearning/core/user"
	cachesvc "github.com/gopimeda/elearning/services/cache"
	emailsvc "github.com/gopimeda/elearning/services/email"
	logsvc "github.com/gopimeda/elearning/services/logger"
	"github.com/gopimeda/elearning/storage/database/inmem"
)

type testApp struct {
	server        Server
	userSvc       user.ServiceInterface
	courseSvc     course.ServiceInterface
	quizSvc       quiz.ServiceInterface
	enrollmentSvc enrollment.ServiceInterface
	reviewSvc     review.ServiceInterface
}

func setup(t *testing.T) *testApp {
	t.Helper()
	core.Conf.TestMode = true

	logger := logsvc.NewStdLogger(log.New(io.Discard, "", 0))
	mailSvc := emailsvc.NewConsoleServiceMock()
	cache := cachesvc.NewInMemoryCache(time.Minute, time.Minute)
	t.Cleanup(cache.Stop)

	usrSvc := user.NewService(inmem.NewUserRepository(), mailSvc, logger)
	crsSvc := course.NewService(inmem.NewCourseRepository(), cache, logger)
	qzSvc := quiz.NewService(inmem.NewQuizRepository(), logger)
	enrSvc := enrollment.NewService(inmem.NewEnrollmentRepository(), usrSvc, crsSvc, mailSvc, logger)
	revSvc := review.NewService(inmem.NewReviewRepository(), crsSvc, logger)

	app := &testApp{
		userSvc:       usrSvc,
		courseSvc:     crsSvc,
		quizSvc:       qzSvc,
		enrollmentSvc: enrSvc,
		reviewSvc:     revSvc,
	}
	app.server = NewServer("", nil, &Deps{
		Logger:        logger,
		UserSvc:       usrSvc,
		CourseSvc:     crsSvc,
		QuizSvc:       qzSvc,
		EnrollmentSvc: enrSvc,
		ReviewSvc:     revSvc,
	})
	return app
}

// Seed helpers

func (app *testApp) createUser(t *testing.T, name, uname string, roles []string) user.User {
	t.Helper()
	usr, err := app.userSvc.Create(context.Background(), user.NewUser{
		Name:            name,
		Username:        uname,
		Email:           uname + "@test.cd",
		Password:        "LocalHero813!",
		PasswordConfirm: "LocalHero813!",
		Roles:           roles,
	})
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

func (app *testApp) createCourse(t *testing.T, instructor user.User, title string, publish bool) course.Course {
	t.Helper()
	crs, err := app.courseSvc.Create(context.Background(), instructor.ID, instructor.Name, course.NewCourse{
		Title:    title,
		Category: "engineering",
		Level:    "beginner",
		Price:    49.99,
	})
	if err != nil {
		t.Fatalf("createCourse() failed: %v", err)
	}
	if publish {
		if crs, err = app.courseSvc.SetPublished(context.Background(), crs.ID, true); err != nil {
			t.Fatalf("createCourse() publish failed: %v", err)
		}
	}
	return crs
}

func (app *testApp) addLesson(t *testing.T, courseID, title string) course.Lesson {
	t.Helper()
	lsn, err := app.courseSvc.AddLesson(context.Background(), courseID, course.NewLesson{
		Title:    title,
		Duration: 10,
	})
	if err != nil {
		t.Fatalf("addLesson() failed: %v", err)
	}
	return lsn
}

// Request helpers

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(GetUserClaims(usr))
	if err != nil {
		t.Fatalf("getToken() failed: %v", err)
	}
	return token
}

func marshallObj(t *testing.T, obj interface{}) []byte {
	t.Helper()
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshallObj() failed: %v", err)
	}
	return data
}

// apiEnvelope mirrors the response envelope; Data stays raw so tests can
// decode only the key they care about.
type apiEnvelope struct {
	Success bool                       `json:"success"`
	Message string                     `json:"message"`
	Data    map[string]json.RawMessage `json:"data"`
}

type apiPagination struct {
	CurrentPage int  `json:"currentPage"`
	TotalPages  int  `json:"totalPages"`
	TotalItems  int  `json:"totalItems"`
	HasNextPage bool `json:"hasNextPage"`
	HasPrevPage bool `json:"hasPrevPage"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) apiEnvelope {
	t.Helper()
	var env apiEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decodeEnvelope() failed: %v; body: %s", err, rec.Body.String())
	}
	return env
}

func decodeData(t *testing.T, env apiEnvelope, key string, dest interface{}) {
	t.Helper()
	raw, ok := env.Data[key]
	if !ok {
		t.Fatalf("decodeData() key %q missing from data", key)
	}
	if err := json.Unmarshal(raw, dest); err != nil {
		t.Fatalf("decodeData() failed: %v", err)
	}
}

func decodePagination(t *testing.T, env apiEnvelope) apiPagination {
	t.Helper()
	var pg apiPagination
	decodeData(t, env, "pagination", &pg)
	return pg
}
