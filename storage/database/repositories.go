package database

import (
	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/submission"
	"github.com/trezcool/tarpaulin/core/user"
)

// interface compliance checks
var (
	_ core.Repository[user.User]             = (*Model[user.User])(nil)
	_ core.Repository[course.Course]         = (*Model[course.Course])(nil)
	_ core.Repository[enrollment.Enrollment] = (*Model[enrollment.Enrollment])(nil)
	_ core.Repository[assignment.Assignment] = (*Model[assignment.Assignment])(nil)
	_ core.Repository[submission.Submission] = (*Model[submission.Submission])(nil)
)

type Repositories struct {
	Users       *Model[user.User]
	Courses     *Model[course.Course]
	Enrollments *Model[enrollment.Enrollment]
	Assignments *Model[assignment.Assignment]
	Submissions *Model[submission.Submission]
}

func NewRepositories(db *sqlx.DB) *Repositories {
	return &Repositories{
		Users:       NewModel[user.User](db, user.Schema),
		Courses:     NewModel[course.Course](db, course.Schema),
		Enrollments: NewModel[enrollment.Enrollment](db, enrollment.Schema),
		Assignments: NewModel[assignment.Assignment](db, assignment.Schema),
		Submissions: NewModel[submission.Submission](db, submission.Schema),
	}
}
