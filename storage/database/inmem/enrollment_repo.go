package inmem

import (
	"context"

	"github.com/google/uuid"

	"github.com/gopimeda/elearning/core/enrollment"
	"github.com/gopimeda/elearning/core/listing"
)

type EnrollmentRepository struct {
	enrollments *table[enrollment.Enrollment]
}

var _ enrollment.Repository = (*EnrollmentRepository)(nil)

func NewEnrollmentRepository() *EnrollmentRepository {
	return &EnrollmentRepository{enrollments: newTable[enrollment.Enrollment]()}
}

func (r *EnrollmentRepository) CreateEnrollment(_ context.Context, enr enrollment.Enrollment) (enrollment.Enrollment, error) {
	if enr.ID == "" {
		enr.ID = uuid.New().String()
	}
	r.enrollments.insert(enr.ID, enr)
	return enr, nil
}

func (r *EnrollmentRepository) GetEnrollmentByID(_ context.Context, id string) (enrollment.Enrollment, error) {
	enr, ok := r.enrollments.get(id)
	if !ok {
		return enrollment.Enrollment{}, enrollment.ErrNotFound
	}
	return enr, nil
}

func (r *EnrollmentRepository) GetEnrollment(_ context.Context, userID, courseID string) (enrollment.Enrollment, error) {
	for _, enr := range r.enrollments.all() {
		if enr.UserID == userID && enr.CourseID == courseID {
			return enr, nil
		}
	}
	return enrollment.Enrollment{}, enrollment.ErrNotFound
}

func (r *EnrollmentRepository) QueryEnrollments(_ context.Context, qf *enrollment.QueryFilter, params listing.Params) (listing.Page[enrollment.Enrollment], error) {
	matched := make([]enrollment.Enrollment, 0)
	for _, enr := range r.enrollments.all() {
		if matchEnrollment(enr, qf) {
			matched = append(matched, enr)
		}
	}
	if qf != nil {
		params.Search = qf.Search
	}
	return enrollment.Schema().ApplyPage(matched, params), nil
}

func matchEnrollment(enr enrollment.Enrollment, qf *enrollment.QueryFilter) bool {
	if qf == nil || qf.IsEmpty() {
		return true
	}
	if qf.UserID != "" && enr.UserID != qf.UserID {
		return false
	}
	if qf.CourseID != "" && enr.CourseID != qf.CourseID {
		return false
	}
	if qf.Status != "" && enr.Status != qf.Status {
		return false
	}
	return true
}

func (r *EnrollmentRepository) UpdateEnrollment(_ context.Context, enr enrollment.Enrollment) error {
	if !r.enrollments.update(enr.ID, enr) {
		return enrollment.ErrNotFound
	}
	return nil
}

func (r *EnrollmentRepository) DeleteEnrollmentsByID(_ context.Context, ids ...string) error {
	r.enrollments.delete(ids...)
	return nil
}
