// Package enrollment links students to the courses they take.
// An Enrollment belongs to neither the course nor the user; both are referenced by id only.
package enrollment

import (
	"context"
	"fmt"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/schema"
	"github.com/trezcool/tarpaulin/core/user"
)

type Enrollment struct {
	ID        int `db:"id" json:"id"`
	CourseID  int `db:"course_id" json:"courseId" schema:",required"`
	StudentID int `db:"student_id" json:"studentId" schema:",required"`
}

var Schema = schema.Define("course_students", Enrollment{})

type (
	// UserLister loads users by id.
	UserLister interface {
		ListByIDs(ctx context.Context, ids ...int) ([]user.User, error)
	}

	Service struct {
		repo  core.Repository[Enrollment]
		users UserLister
	}
)

func NewService(repo core.Repository[Enrollment], users UserLister) *Service {
	return &Service{repo: repo, users: users}
}

// ForCourse lists the enrollments of a course, ordered by id.
func (svc *Service) ForCourse(ctx context.Context, courseID int) ([]Enrollment, error) {
	return svc.repo.All(ctx, 0, 0, core.Where("courseId", courseID))
}

func (svc *Service) StudentIDs(ctx context.Context, courseID int) ([]int, error) {
	enrs, err := svc.ForCourse(ctx, courseID)
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.StudentID)
	}
	return ids, nil
}

// Students returns the users enrolled in a course.
func (svc *Service) Students(ctx context.Context, courseID int) ([]user.User, error) {
	ids, err := svc.StudentIDs(ctx, courseID)
	if err != nil {
		return nil, err
	}
	return svc.users.ListByIDs(ctx, ids...)
}

// CourseIDs lists the courses a student is enrolled in.
func (svc *Service) CourseIDs(ctx context.Context, studentID int) ([]int, error) {
	enrs, err := svc.repo.All(ctx, 0, 0, core.Where("studentId", studentID))
	if err != nil {
		return nil, err
	}
	ids := make([]int, 0, len(enrs))
	for _, enr := range enrs {
		ids = append(ids, enr.CourseID)
	}
	return ids, nil
}

// Find returns the enrollment of a student in a course, or core.ErrNotFound.
func (svc *Service) Find(ctx context.Context, courseID, studentID int) (Enrollment, error) {
	enrs, err := svc.repo.All(ctx, 0, 1, core.Where("courseId", courseID), core.Where("studentId", studentID))
	if err != nil {
		return Enrollment{}, err
	}
	if len(enrs) == 0 {
		return Enrollment{}, core.ErrNotFound
	}
	return enrs[0], nil
}

func (svc *Service) IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error) {
	_, err := svc.Find(ctx, courseID, studentID)
	switch errors.Cause(err) {
	case nil:
		return true, nil
	case core.ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Enroll adds students to a course. Students already enrolled are skipped;
// every id must reference a student.
func (svc *Service) Enroll(ctx context.Context, courseID int, studentIDs ...int) error {
	if len(studentIDs) == 0 {
		return nil
	}
	if err := svc.checkStudents(ctx, studentIDs); err != nil {
		return err
	}

	enrolled, err := svc.StudentIDs(ctx, courseID)
	if err != nil {
		return err
	}
	seen := make(map[int]bool, len(enrolled)+len(studentIDs))
	for _, id := range enrolled {
		seen[id] = true
	}

	for _, id := range studentIDs {
		if seen[id] {
			continue
		}
		seen[id] = true
		_, err = svc.repo.Create(ctx, map[string]interface{}{"courseId": courseID, "studentId": id})
		if err != nil && !errors.Is(err, core.ErrConflict) { // enrolled concurrently
			return errors.Wrapf(err, "enrolling student %d", id)
		}
	}
	return nil
}

func (svc *Service) checkStudents(ctx context.Context, ids []int) error {
	users, err := svc.users.ListByIDs(ctx, ids...)
	if err != nil {
		return err
	}
	students := make(map[int]bool, len(users))
	for _, usr := range users {
		if usr.IsStudent() {
			students[usr.ID] = true
		}
	}

	var errs []core.FieldError
	for _, id := range ids {
		if !students[id] {
			errs = append(errs, core.FieldError{Field: "add", Error: fmt.Sprintf("User %d is not a student.", id)})
		}
	}
	if len(errs) > 0 {
		return core.NewValidationError(nil, errs...)
	}
	return nil
}

// Unenroll removes students from a course and returns how many enrollments were removed.
func (svc *Service) Unenroll(ctx context.Context, courseID int, studentIDs ...int) (int, error) {
	if len(studentIDs) == 0 {
		return 0, nil
	}
	return svc.repo.DestroyWhere(ctx, core.Where("courseId", courseID), core.IntsIn("studentId", studentIDs...))
}
