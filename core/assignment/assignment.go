package assignment

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/schema"
)

type Assignment struct {
	ID       int       `db:"id" json:"id"`
	CourseID int       `db:"course_id" json:"courseId" schema:",required"`
	Title    string    `db:"title" json:"title" schema:",required"`
	Points   int       `db:"points" json:"points" schema:",required"`
	Due      time.Time `db:"due" json:"due" schema:",required"`
}

var (
	ErrUnknownCourse = errors.New("courseId must reference a course.")
	errBlankTitle    = errors.New("Title must not be blank.")

	Schema = schema.Define("assignments", Assignment{},
		schema.Validators("courseId", schema.Rule("gt=0", "Invalid value for courseId.")),
		schema.Validators("title", func(value interface{}, _ schema.Record) error {
			if strings.TrimSpace(value.(string)) == "" {
				return errBlankTitle
			}
			return nil
		}),
		schema.Validators("points", schema.Rule("min=0", "Points must not be negative.")),
	)
)

type (
	// CourseFinder looks courses up by id.
	CourseFinder interface {
		GetByID(ctx context.Context, id int) (course.Course, error)
	}

	Service struct {
		repo    core.Repository[Assignment]
		courses CourseFinder
	}
)

func NewService(repo core.Repository[Assignment], courses CourseFinder) *Service {
	return &Service{repo: repo, courses: courses}
}

// checkCourse makes sure the courseId of payload, if any, references an existing course.
func (svc *Service) checkCourse(ctx context.Context, payload map[string]interface{}) error {
	v, ok := payload["courseId"]
	if !ok || v == nil {
		return nil
	}
	id, ok := Schema.MustSchema().Coerce("courseId", v).(int)
	if !ok {
		return nil // left to the schema validation
	}

	_, err := svc.courses.GetByID(ctx, id)
	if errors.Cause(err) == core.ErrNotFound {
		return core.NewValidationError(ErrUnknownCourse, core.FieldError{Field: "courseId", Error: ErrUnknownCourse.Error()})
	}
	return err
}

func (svc *Service) Create(ctx context.Context, payload map[string]interface{}) (Assignment, error) {
	if err := svc.checkCourse(ctx, payload); err != nil {
		return Assignment{}, err
	}
	return svc.repo.Create(ctx, payload)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Assignment, error) {
	return svc.repo.FindBy(ctx, "id", id)
}

func (svc *Service) Update(ctx context.Context, id int, payload map[string]interface{}) (Assignment, error) {
	if err := svc.checkCourse(ctx, payload); err != nil {
		return Assignment{}, err
	}
	return svc.repo.Update(ctx, id, payload)
}

// Delete removes an assignment along with its submissions (cascaded by storage).
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.Destroy(ctx, id)
}

// ForCourse lists the assignments of a course, ordered by id.
func (svc *Service) ForCourse(ctx context.Context, courseID int) ([]Assignment, error) {
	return svc.repo.All(ctx, 0, 0, core.Where("courseId", courseID))
}
