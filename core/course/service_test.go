package course_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/storage/database"
	"github.com/trezcool/tarpaulin/tests"
)

var ctx = context.Background()

func setup(t *testing.T) (*course.Service, *database.Repositories) {
	repos := database.NewRepositories(testutil.PrepareDB(t))
	return course.NewService(repos.Courses, user.NewService(repos.Users)), repos
}

func TestService_Create(t *testing.T) {
	svc, repos := setup(t)
	inst := testutil.CreateUser(t, repos.Users, "i@b.com", "longenough", user.RoleInstructor)
	stud := testutil.CreateUser(t, repos.Users, "s@b.com", "longenough", user.RoleStudent)

	crs, err := svc.Create(ctx, map[string]interface{}{
		"subject":      "CS",
		"number":       float64(493),
		"title":        "Cloud Application Development",
		"term":         "sp21",
		"instructorId": float64(inst.ID),
	})
	require.NoError(t, err)
	assert.Equal(t, course.Course{
		ID:           crs.ID,
		Subject:      "CS",
		Number:       "493",
		Title:        "Cloud Application Development",
		Term:         "sp21",
		InstructorID: inst.ID,
	}, crs)

	for name, instructorID := range map[string]int{"student": stud.ID, "unknown user": 999} {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Create(ctx, map[string]interface{}{
				"subject": "CS", "number": "492", "title": "Mobile", "term": "sp21", "instructorId": instructorID,
			})
			assert.EqualError(t, err, course.ErrNotInstructor.Error())
		})
	}

	_, err = svc.Create(ctx, map[string]interface{}{"subject": " ", "number": "1", "title": "t", "term": "w21", "instructorId": inst.ID})
	assert.EqualError(t, err, "Subject must not be blank.")

	_, err = svc.Update(ctx, crs.ID, map[string]interface{}{"instructorId": stud.ID})
	assert.True(t, core.IsValidationError(err))
}

func TestService_Query(t *testing.T) {
	svc, repos := setup(t)
	inst := testutil.CreateUser(t, repos.Users, "i@b.com", "longenough", user.RoleInstructor)
	other := testutil.CreateUser(t, repos.Users, "o@b.com", "longenough", user.RoleInstructor)
	for i := 1; i <= 23; i++ {
		term := "sp21"
		if i > 20 {
			term = "fa21"
		}
		testutil.CreateCourse(t, repos.Courses, "CS", fmt.Sprint(100+i), term, inst.ID)
	}
	testutil.CreateCourse(t, repos.Courses, "MTH", "251", "sp21", other.ID)

	courses, pg, err := svc.Query(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, courses, 10)
	assert.Equal(t, core.Page{Number: 1, PerPage: 10, Total: 24, LastPage: 3, Offset: 0}, pg)

	courses, pg, err = svc.Query(ctx, 7)
	require.NoError(t, err)
	assert.Len(t, courses, 4, "pages beyond the last clamp to the last one")
	assert.Equal(t, 3, pg.Number)

	params := map[string]string{"term": "fa21", "instructorId": fmt.Sprint(other.ID)}
	courses, pg, err = svc.Query(ctx, 1, core.WhereParams(params, course.FilterFields...)...)
	require.NoError(t, err)
	assert.Len(t, courses, 3)
	assert.Equal(t, 3, pg.Total)

	courses, pg, err = svc.Query(ctx, 2, core.Where("subject", "PH"))
	require.NoError(t, err)
	assert.Empty(t, courses)
	assert.Equal(t, 1, pg.Number)

	taught, err := svc.TaughtBy(ctx, other.ID)
	require.NoError(t, err)
	require.Len(t, taught, 1)
	assert.Equal(t, "MTH", taught[0].Subject)
}

func TestService_Delete(t *testing.T) {
	svc, repos := setup(t)
	inst := testutil.CreateUser(t, repos.Users, "i@b.com", "longenough", user.RoleInstructor)
	crs := testutil.CreateCourse(t, repos.Courses, "CS", "493", "sp21", inst.ID)

	require.NoError(t, svc.Delete(ctx, crs.ID))
	_, err := svc.GetByID(ctx, crs.ID)
	assert.Equal(t, core.ErrNotFound, errors.Cause(err))
}
