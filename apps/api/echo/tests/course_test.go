package tests

import (
	"net/http"
	"regexp"
	"strings"
	"testing"

	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/user"
)

func Test_courseApi_catalog(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	app.createCourse(t, instructor, "Go for Backends", true)
	app.createCourse(t, instructor, "Unfinished Draft", false)

	req, rec := newRequest(http.MethodGet, "/v1/courses/catalog")
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	env := decodeEnvelope(t, rec)
	var courses []course.Course
	decodeData(t, env, "courses", &courses)
	if len(courses) != 1 || courses[0].Title != "Go for Backends" {
		t.Errorf("courses = %+v; want only the published course", courses)
	}
}

func Test_courseApi_create(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	student := app.createUser(t, "Bouba Diop", "boubadiop", user.StudentRoles)

	t.Run("students are forbidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, student),
			[]byte(`{"title": "Nope", "category": "misc", "level": "beginner"}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("instructor creates a draft", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, instructor),
			[]byte(`{"title": "Intro to Gardening", "category": "Hobby", "level": "beginner", "price": 15}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		env := decodeEnvelope(t, rec)
		var crs course.Course
		decodeData(t, env, "course", &crs)
		if crs.Published() {
			t.Errorf("new course is published; want draft")
		}
		if crs.InstructorID != instructor.ID || crs.InstructorName != instructor.Name {
			t.Errorf("instructor = %v (%v); want %v (%v)", crs.InstructorID, crs.InstructorName, instructor.ID, instructor.Name)
		}
		if crs.Slug != "intro-to-gardening" {
			t.Errorf("slug = %v; want intro-to-gardening", crs.Slug)
		}
	})

	t.Run("invalid level fails validation", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/courses", getToken(t, instructor),
			[]byte(`{"title": "Bad", "category": "misc", "level": "wizard"}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_courseApi_ownership(t *testing.T) {
	app := setup(t)
	alice := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	bouba := app.createUser(t, "Bouba Diop", "boubadiop", user.InstructorRoles)
	admin := app.createUser(t, "Root Admin", "rootadmin", user.AdminRoles)
	crs := app.createCourse(t, alice, "Go for Backends", false)
	app.createCourse(t, bouba, "Cooking 101", false)

	t.Run("instructors only list their own courses", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, alice))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		env := decodeEnvelope(t, rec)
		var courses []course.Course
		decodeData(t, env, "courses", &courses)
		if len(courses) != 1 || courses[0].ID != crs.ID {
			t.Errorf("courses = %+v; want only alice's course", courses)
		}
	})

	t.Run("admins list everything", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses", getToken(t, admin))
		app.server.ServeHTTP(rec, req)
		env := decodeEnvelope(t, rec)
		var courses []course.Course
		decodeData(t, env, "courses", &courses)
		if len(courses) != 2 {
			t.Errorf("len(courses) = %v; want 2", len(courses))
		}
	})

	t.Run("another instructor's course is hidden", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, getToken(t, bouba))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("owner publishes", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+crs.ID+"/publish", getToken(t, alice))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		env := decodeEnvelope(t, rec)
		var updated course.Course
		decodeData(t, env, "course", &updated)
		if !updated.Published() {
			t.Errorf("course still a draft after publish")
		}
	})
}

func Test_courseApi_lessons(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	crs := app.createCourse(t, instructor, "Go for Backends", true)
	token := getToken(t, instructor)

	l1 := app.addLesson(t, crs.ID, "Hello World")
	l2 := app.addLesson(t, crs.ID, "Packages")
	l3 := app.addLesson(t, crs.ID, "Testing")

	t.Run("lessons keep insertion order", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID+"/lessons", token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		env := decodeEnvelope(t, rec)
		var lessons []course.Lesson
		decodeData(t, env, "lessons", &lessons)
		if len(lessons) != 3 || lessons[0].ID != l1.ID || lessons[2].ID != l3.ID {
			t.Errorf("lessons = %+v; want l1..l3 in order", lessons)
		}
	})

	t.Run("reorder flips the order", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPut, "/v1/courses/"+crs.ID+"/lessons/reorder", token,
			marshallObj(t, map[string]interface{}{"ids": []string{l3.ID, l2.ID, l1.ID}}))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}

		env := decodeEnvelope(t, rec)
		var lessons []course.Lesson
		decodeData(t, env, "lessons", &lessons)
		if len(lessons) != 3 || lessons[0].ID != l3.ID || lessons[2].ID != l1.ID {
			t.Errorf("lessons = %+v; want l3..l1 after reorder", lessons)
		}
	})

	t.Run("lesson count is denormalized", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/courses/"+crs.ID, token)
		app.server.ServeHTTP(rec, req)
		env := decodeEnvelope(t, rec)
		var got course.Course
		decodeData(t, env, "course", &got)
		if got.LessonCount != 3 {
			t.Errorf("lessonCount = %v; want 3", got.LessonCount)
		}
	})
}

func Test_courseApi_export(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	app.createCourse(t, instructor, "Go for Backends", true)
	app.createCourse(t, instructor, "Cooking 101", false)

	req, rec := newAuthRequest(http.MethodGet, "/v1/courses/export", getToken(t, instructor))
	app.server.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
	}

	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("Content-Type = %v; want text/csv", ct)
	}
	cd := rec.Header().Get("Content-Disposition")
	if ok, _ := regexp.MatchString(`^attachment; filename="courses-export-\d{4}-\d{2}-\d{2}\.csv"$`, cd); !ok {
		t.Errorf("Content-Disposition = %v; want a dated courses-export attachment", cd)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 3 { // header + 2 courses
		t.Fatalf("len(lines) = %v; want 3", len(lines))
	}
	if !strings.HasPrefix(lines[0], "id,title,category") {
		t.Errorf("header = %v; want id,title,category,...", lines[0])
	}
}
