package course

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/user"
)

var ErrNotInstructor = errors.New("instructorId must reference an instructor.")

type (
	// UserFinder looks users up by id.
	UserFinder interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo  core.Repository[Course]
		users UserFinder
	}
)

func NewService(repo core.Repository[Course], users UserFinder) *Service {
	return &Service{repo: repo, users: users}
}

// checkInstructor makes sure the instructorId of payload, if any, references an instructor.
func (svc *Service) checkInstructor(ctx context.Context, payload map[string]interface{}) error {
	v, ok := payload["instructorId"]
	if !ok || v == nil {
		return nil
	}
	id, ok := Schema.MustSchema().Coerce("instructorId", v).(int)
	if !ok {
		return nil // left to the schema validation
	}

	usr, err := svc.users.GetByID(ctx, id)
	switch {
	case errors.Cause(err) == core.ErrNotFound, err == nil && !usr.IsInstructor():
		return core.NewValidationError(ErrNotInstructor, core.FieldError{Field: "instructorId", Error: ErrNotInstructor.Error()})
	case err != nil:
		return err
	}
	return nil
}

func (svc *Service) Create(ctx context.Context, payload map[string]interface{}) (Course, error) {
	if err := svc.checkInstructor(ctx, payload); err != nil {
		return Course{}, err
	}
	return svc.repo.Create(ctx, payload)
}

func (svc *Service) GetByID(ctx context.Context, id int) (Course, error) {
	return svc.repo.FindBy(ctx, "id", id)
}

// Query returns one page of courses matching filters, ordered by id.
func (svc *Service) Query(ctx context.Context, page int, filters ...core.Predicate) ([]Course, core.Page, error) {
	total, err := svc.repo.Count(ctx, filters...)
	if err != nil {
		return nil, core.Page{}, err
	}
	pg := core.Paginate(total, page, core.PageSize)
	courses, err := svc.repo.All(ctx, pg.Offset, pg.PerPage, filters...)
	if err != nil {
		return nil, core.Page{}, err
	}
	return courses, pg, nil
}

// TaughtBy lists the courses of an instructor.
func (svc *Service) TaughtBy(ctx context.Context, instructorID int) ([]Course, error) {
	return svc.repo.All(ctx, 0, 0, core.Where("instructorId", instructorID))
}

func (svc *Service) Update(ctx context.Context, id int, payload map[string]interface{}) (Course, error) {
	if err := svc.checkInstructor(ctx, payload); err != nil {
		return Course{}, err
	}
	return svc.repo.Update(ctx, id, payload)
}

// Delete removes a course along with its enrollments and assignments (cascaded by storage).
func (svc *Service) Delete(ctx context.Context, id int) error {
	return svc.repo.Destroy(ctx, id)
}
