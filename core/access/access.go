// Package access evaluates whether an actor may act on a resource, by role and by relationship
// (instructor of a course, student enrolled in a course, self).
// A nil *Actor is an unauthenticated request. Rules never fail open: any lookup error is returned.
package access

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/user"
)

// Actor is the identity an inbound request was authenticated as.
type Actor struct {
	ID int
}

type (
	UserFinder interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	EnrollmentChecker interface {
		IsEnrolled(ctx context.Context, courseID, studentID int) (bool, error)
	}

	Rules struct {
		users       UserFinder
		enrollments EnrollmentChecker
	}
)

func NewRules(users UserFinder, enrollments EnrollmentChecker) *Rules {
	return &Rules{users: users, enrollments: enrollments}
}

// role returns the role of the actor; an actor whose user no longer exists has no role.
func (r *Rules) role(ctx context.Context, actor *Actor) (string, error) {
	if actor == nil {
		return "", nil
	}
	usr, err := r.users.GetByID(ctx, actor.ID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return "", nil
		}
		return "", err
	}
	return usr.Role, nil
}

func (r *Rules) IsAdmin(ctx context.Context, actor *Actor) (bool, error) {
	role, err := r.role(ctx, actor)
	return role == user.RoleAdmin, err
}

// RequireAdmin narrows actor to nil unless it is an existing admin.
func (r *Rules) RequireAdmin(ctx context.Context, actor *Actor) (*Actor, error) {
	ok, err := r.IsAdmin(ctx, actor)
	if err != nil || !ok {
		return nil, err
	}
	return actor, nil
}

func (r *Rules) CourseInstructorOrAdmin(ctx context.Context, actor *Actor, instructorID int) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.ID == instructorID {
		return true, nil
	}
	return r.IsAdmin(ctx, actor)
}

func (r *Rules) IsStudentInCourse(ctx context.Context, actor *Actor, courseID int) (bool, error) {
	if actor == nil {
		return false, nil
	}
	return r.enrollments.IsEnrolled(ctx, courseID, actor.ID)
}

// CanCreateUser tells whether actor may create a user with requestedRole.
// An empty requestedRole is left for validation to settle (the role then defaults to student).
func (r *Rules) CanCreateUser(ctx context.Context, actor *Actor, requestedRole string) (bool, error) {
	switch {
	case requestedRole == "":
		return true, nil
	case actor == nil:
		return requestedRole == user.RoleStudent, nil
	case requestedRole == user.RoleInstructor, requestedRole == user.RoleAdmin:
		return r.IsAdmin(ctx, actor)
	}
	return true, nil
}

func (r *Rules) IsSelfOrAdmin(ctx context.Context, actor *Actor, userID int) (bool, error) {
	if actor == nil {
		return false, nil
	}
	if actor.ID == userID {
		return true, nil
	}
	return r.IsAdmin(ctx, actor)
}
