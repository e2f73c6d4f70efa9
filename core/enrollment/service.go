package enrollment

import (
	"context"
	"net/mail"
	"time"

	"github.com/pkg/errors"

	"github.com/gopimeda/elearning/core"
	"github.com/gopimeda/elearning/core/course"
	"github.com/gopimeda/elearning/core/listing"
	"github.com/gopimeda/elearning/core/user"
)

var (
	ErrNotFound        = errors.New("enrollment not found")
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	ErrNotActive       = errors.New("enrollment is not active")
	ErrUnknownLesson   = errors.New("lesson does not belong to this course")
	ErrNoSelection     = errors.New("no enrollments selected")
)

type Repository interface {
	CreateEnrollment(ctx context.Context, enr Enrollment) (Enrollment, error)
	GetEnrollmentByID(ctx context.Context, id string) (Enrollment, error)
	GetEnrollment(ctx context.Context, userID, courseID string) (Enrollment, error)
	QueryEnrollments(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Enrollment], error)
	UpdateEnrollment(ctx context.Context, enr Enrollment) error
	DeleteEnrollmentsByID(ctx context.Context, ids ...string) error
}

type ServiceInterface interface {
	Enroll(ctx context.Context, userID, courseID string) (Enrollment, error)
	GetByID(ctx context.Context, id string) (Enrollment, error)
	Query(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Enrollment], error)
	CompleteLesson(ctx context.Context, id, lessonID string) (Enrollment, error)
	Cancel(ctx context.Context, id string) (Enrollment, error)
	CancelBulk(ctx context.Context, ids ...string) error
	Delete(ctx context.Context, ids ...string) error
}

type Service struct {
	repo      Repository
	userSvc   user.ServiceInterface
	courseSvc course.ServiceInterface
	mailSvc   core.EmailService
	log       core.Logger
}

var _ ServiceInterface = (*Service)(nil)

func NewService(repo Repository, userSvc user.ServiceInterface, courseSvc course.ServiceInterface, mailSvc core.EmailService, log core.Logger) *Service {
	return &Service{
		repo:      repo,
		userSvc:   userSvc,
		courseSvc: courseSvc,
		mailSvc:   mailSvc,
		log:       log,
	}
}

// Enroll registers the user on a published course and sends a
// confirmation email. Re-enrolling while an enrollment exists fails.
func (svc *Service) Enroll(ctx context.Context, userID, courseID string) (Enrollment, error) {
	usr, err := svc.userSvc.GetByID(ctx, userID)
	if err != nil {
		return Enrollment{}, err
	}
	crs, err := svc.courseSvc.GetByID(ctx, courseID)
	if err != nil {
		return Enrollment{}, err
	}
	if !crs.Published() {
		return Enrollment{}, core.NewValidationError(errors.New("course is not published"))
	}
	if _, err = svc.repo.GetEnrollment(ctx, userID, courseID); err == nil {
		return Enrollment{}, core.NewValidationError(ErrAlreadyEnrolled)
	} else if errors.Cause(err) != ErrNotFound {
		return Enrollment{}, err
	}

	now := time.Now().UTC()
	enr := Enrollment{
		UserID:      userID,
		UserName:    usr.Name,
		CourseID:    courseID,
		CourseTitle: crs.Title,
		Status:      StatusActive,
		EnrolledAt:  now,
		UpdatedAt:   now,
	}
	enr, err = svc.repo.CreateEnrollment(ctx, enr)
	if err != nil {
		return Enrollment{}, err
	}

	svc.sendConfirmationEmail(usr, crs)
	return enr, nil
}

func (svc *Service) sendConfirmationEmail(usr user.User, crs course.Course) {
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:           []mail.Address{{Name: usr.Name, Address: usr.Email}},
		Subject:      "Enrollment Confirmation",
		TemplateName: "enrollment-confirmation",
		TemplateData: struct {
			Name        string
			CourseTitle string
			CourseID    string
		}{usr.Name, crs.Title, crs.ID},
	})
}

func (svc *Service) GetByID(ctx context.Context, id string) (Enrollment, error) {
	return svc.repo.GetEnrollmentByID(ctx, id)
}

func (svc *Service) Query(ctx context.Context, qf *QueryFilter, params listing.Params) (listing.Page[Enrollment], error) {
	if qf != nil {
		qf.Clean()
	}
	return svc.repo.QueryEnrollments(ctx, qf, params)
}

// CompleteLesson marks one lesson done and recomputes progress.
// Reaching 100% flips the enrollment to completed.
func (svc *Service) CompleteLesson(ctx context.Context, id, lessonID string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !enr.Active() {
		return Enrollment{}, core.NewValidationError(ErrNotActive)
	}

	lessons, err := svc.courseSvc.Lessons(ctx, enr.CourseID)
	if err != nil {
		return Enrollment{}, err
	}
	var known bool
	for _, lsn := range lessons {
		if lsn.ID == lessonID {
			known = true
			break
		}
	}
	if !known {
		return Enrollment{}, core.NewValidationError(ErrUnknownLesson)
	}
	if enr.HasCompleted(lessonID) {
		return enr, nil
	}

	enr.CompletedLessons = append(enr.CompletedLessons, lessonID)
	enr.Progress = float64(len(enr.CompletedLessons)) / float64(len(lessons)) * 100
	enr.UpdatedAt = time.Now().UTC()
	if enr.Progress >= 100 {
		enr.Progress = 100
		enr.Status = StatusCompleted
		enr.CompletedAt = enr.UpdatedAt
	}
	if err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *Service) Cancel(ctx context.Context, id string) (Enrollment, error) {
	enr, err := svc.repo.GetEnrollmentByID(ctx, id)
	if err != nil {
		return Enrollment{}, err
	}
	if !enr.Active() {
		return Enrollment{}, core.NewValidationError(ErrNotActive)
	}
	enr.Status = StatusCancelled
	enr.UpdatedAt = time.Now().UTC()
	if err = svc.repo.UpdateEnrollment(ctx, enr); err != nil {
		return Enrollment{}, err
	}
	return enr, nil
}

func (svc *Service) CancelBulk(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	for _, id := range ids {
		if _, err := svc.Cancel(ctx, id); err != nil {
			return errors.Wrapf(err, "cancelling enrollment %s", id)
		}
	}
	return nil
}

func (svc *Service) Delete(ctx context.Context, ids ...string) error {
	if len(ids) == 0 {
		return core.NewValidationError(ErrNoSelection)
	}
	return svc.repo.DeleteEnrollmentsByID(ctx, ids...)
}
