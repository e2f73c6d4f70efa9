package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/gopimeda/elearning/core/quiz"
	"github.com/gopimeda/elearning/core/user"
)

func (app *testApp) createQuiz(t *testing.T, courseID string, publish bool) quiz.Quiz {
	t.Helper()
	qz, err := app.quizSvc.Create(context.Background(), quiz.NewQuiz{
		CourseID:     courseID,
		Title:        "Checkpoint",
		PassingScore: 50,
		Questions: []quiz.NewQuestion{
			{Prompt: "2+2?", Options: []string{"3", "4"}, CorrectIndex: 1, Points: 1},
			{Prompt: "3*3?", Options: []string{"9", "6"}, CorrectIndex: 0, Points: 1},
		},
	})
	if err != nil {
		t.Fatalf("createQuiz() failed: %v", err)
	}
	if publish {
		if qz, err = app.quizSvc.SetPublished(context.Background(), qz.ID, true); err != nil {
			t.Fatalf("createQuiz() publish failed: %v", err)
		}
	}
	return qz
}

func Test_quizApi_create(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	other := app.createUser(t, "Bouba Diop", "boubadiop", user.InstructorRoles)
	crs := app.createCourse(t, instructor, "Go for Backends", true)

	body := marshallObj(t, map[string]interface{}{
		"course_id":     crs.ID,
		"title":         "Checkpoint",
		"passing_score": 50,
		"questions": []map[string]interface{}{
			{"prompt": "2+2?", "options": []string{"3", "4"}, "correct_index": 1, "points": 1},
		},
	})

	t.Run("another instructor cannot attach a quiz", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", getToken(t, other), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusForbidden {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusForbidden)
		}
	})

	t.Run("owner creates a draft quiz", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", getToken(t, instructor), body)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}
		env := decodeEnvelope(t, rec)
		var qz quiz.Quiz
		decodeData(t, env, "quiz", &qz)
		if qz.Published() {
			t.Errorf("new quiz is published; want draft")
		}
		if len(qz.Questions) != 1 || qz.Questions[0].ID == "" {
			t.Errorf("questions = %+v; want 1 question with an ID", qz.Questions)
		}
	})

	t.Run("correct_index out of range fails", func(t *testing.T) {
		bad := marshallObj(t, map[string]interface{}{
			"course_id":     crs.ID,
			"title":         "Broken",
			"passing_score": 50,
			"questions": []map[string]interface{}{
				{"prompt": "?", "options": []string{"a", "b"}, "correct_index": 5, "points": 1},
			},
		})
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes", getToken(t, instructor), bad)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusBadRequest)
		}
	})
}

func Test_quizApi_attempts(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	student := app.createUser(t, "Bouba Diop", "boubadiop", user.StudentRoles)
	crs := app.createCourse(t, instructor, "Go for Backends", true)
	published := app.createQuiz(t, crs.ID, true)
	draft := app.createQuiz(t, crs.ID, false)
	token := getToken(t, student)

	t.Run("drafts are hidden from students", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+draft.ID, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("answer count must match", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/attempts", token,
			[]byte(`{"answers": [1]}`))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusBadRequest, rec.Body.String())
		}
	})

	t.Run("a graded attempt comes back", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodPost, "/v1/quizzes/"+published.ID+"/attempts", token,
			[]byte(`{"answers": [1, 1]}`)) // first right, second wrong
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusCreated {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusCreated, rec.Body.String())
		}

		env := decodeEnvelope(t, rec)
		var att quiz.Attempt
		decodeData(t, env, "attempt", &att)
		if att.Score != 1 || att.TotalPoints != 2 || att.Percent != 50 {
			t.Errorf("attempt = %+v; want 1/2 at 50%%", att)
		}
		if !att.Passed {
			t.Errorf("passed = false; want true at the passing score")
		}
		if att.UserID != student.ID {
			t.Errorf("userID = %v; want %v", att.UserID, student.ID)
		}
	})

	t.Run("students only list their own attempts", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+published.ID+"/attempts?user_id="+instructor.ID, token)
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
		env := decodeEnvelope(t, rec)
		var attempts []quiz.Attempt
		decodeData(t, env, "attempts", &attempts)
		for _, att := range attempts {
			if att.UserID != student.ID {
				t.Errorf("attempt %v belongs to %v; want only own attempts", att.ID, att.UserID)
			}
		}
		if len(attempts) != 1 {
			t.Errorf("len(attempts) = %v; want 1", len(attempts))
		}
	})
}

func Test_quizApi_attemptDetail(t *testing.T) {
	app := setup(t)
	instructor := app.createUser(t, "Awa Cisse", "awacisse", user.InstructorRoles)
	student := app.createUser(t, "Bouba Diop", "boubadiop", user.StudentRoles)
	other := app.createUser(t, "Fatima Haidara", "fhaidara", user.StudentRoles)
	crs := app.createCourse(t, instructor, "Go for Backends", true)
	qz := app.createQuiz(t, crs.ID, true)

	att, err := app.quizSvc.SubmitAttempt(context.Background(), student.ID, qz.ID, []int{1, 0}, time.Now().UTC())
	if err != nil {
		t.Fatalf("SubmitAttempt() failed: %v", err)
	}

	t.Run("the author retrieves their attempt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+qz.ID+"/attempts/"+att.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v; body: %s", rec.Code, http.StatusOK, rec.Body.String())
		}
		env := decodeEnvelope(t, rec)
		var got quiz.Attempt
		decodeData(t, env, "attempt", &got)
		if got.ID != att.ID || got.Score != 2 {
			t.Errorf("attempt = %+v; want id %v with score 2", got, att.ID)
		}
	})

	t.Run("the instructor retrieves any attempt", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+qz.ID+"/attempts/"+att.ID, getToken(t, instructor))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusOK)
		}
	})

	t.Run("other students get a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+qz.ID+"/attempts/"+att.ID, getToken(t, other))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("the quiz in the path must match", func(t *testing.T) {
		otherQz := app.createQuiz(t, crs.ID, true)
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+otherQz.ID+"/attempts/"+att.ID, getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})

	t.Run("unknown attempt is a 404", func(t *testing.T) {
		req, rec := newAuthRequest(http.MethodGet, "/v1/quizzes/"+qz.ID+"/attempts/nope", getToken(t, student))
		app.server.ServeHTTP(rec, req)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("code = %v; want %v", rec.Code, http.StatusNotFound)
		}
	})
}
