package echoapi_test

import (
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/tests"
)

var errForbidden = httpErr{Error: "The request was not made by an authorized user."}

type coursePage struct {
	Courses []course.Course `json:"courses"`
	core.Page
}

func Test_courseApi_create(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin@test.cd", user.RoleAdmin)
	prof := app.createUser(t, "prof@test.cd", user.RoleInstructor)
	otherProf := app.createUser(t, "other@test.cd", user.RoleInstructor)
	student := app.createUser(t, "student@test.cd", user.RoleStudent)

	newCourse := func(instructorID int) []byte {
		return marshallObj(t, map[string]interface{}{
			"subject": "CS", "number": "493", "title": "Cloud Application Development", "term": "sp22", "instructorId": instructorID,
		})
	}

	tests := []httpTest{
		{
			name: "anonymous", method: http.MethodPost, path: "/courses", body: newCourse(prof.ID),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "another instructor", method: http.MethodPost, path: "/courses", body: newCourse(prof.ID),
			token: app.token(t, otherProf), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "student", method: http.MethodPost, path: "/courses", body: newCourse(prof.ID),
			token: app.token(t, student), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "instructor must be an instructor", method: http.MethodPost, path: "/courses", body: newCourse(student.ID),
			token:    app.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, validationErr{
				Error:  course.ErrNotInstructor.Error(),
				Errors: []string{course.ErrNotInstructor.Error()},
			}),
		},
		{
			name: "blank fields", method: http.MethodPost, path: "/courses", token: app.token(t, prof),
			body: marshallObj(t, map[string]interface{}{
				"subject": " ", "number": "493", "title": "", "instructorId": prof.ID,
			}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, validationErr{
				Error:  "The request body is invalid.",
				Errors: []string{"Subject must not be blank.", "Title must not be blank.", "Missing required field term."},
			}),
		},
	}
	runHttpTests(t, app, tests)

	for _, tc := range []struct {
		name  string
		actor user.User
	}{
		{"instructor of the course", prof},
		{"admin", admin},
	} {
		t.Run(tc.name, func(t *testing.T) {
			rec := app.serve(newAuthRequest(http.MethodPost, "/courses", app.token(t, tc.actor), newCourse(prof.ID)))
			require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

			var crs course.Course
			decode(t, rec, &crs)
			assert.NotZero(t, crs.ID)
			assert.Equal(t, "Cloud Application Development", crs.Title)
			assert.Equal(t, prof.ID, crs.InstructorID)
		})
	}
}

func Test_courseApi_query(t *testing.T) {
	app := setup(t)
	prof := app.createUser(t, "prof@test.cd", user.RoleInstructor)

	var all []course.Course
	for i := 1; i <= 12; i++ {
		term := "sp22"
		if i%3 == 0 {
			term = "fa22"
		}
		all = append(all, testutil.CreateCourse(t, app.repos.Courses, "CS", fmt.Sprintf("%d", 100+i), term, prof.ID))
	}
	math := testutil.CreateCourse(t, app.repos.Courses, "MTH", "101", "sp22", prof.ID)

	tests := []struct {
		name string
		path string
		want coursePage
	}{
		{
			name: "first page", path: "/courses",
			want: coursePage{Courses: all[:10], Page: core.Page{Number: 1, PerPage: 10, Total: 13, LastPage: 2}},
		},
		{
			name: "second page", path: "/courses?page=2",
			want: coursePage{Courses: append(all[10:12:12], math), Page: core.Page{Number: 2, PerPage: 10, Total: 13, LastPage: 2}},
		},
		{
			name: "beyond last page", path: "/courses?page=7",
			want: coursePage{Courses: append(all[10:12:12], math), Page: core.Page{Number: 2, PerPage: 10, Total: 13, LastPage: 2}},
		},
		{
			name: "garbage page", path: "/courses?page=lol",
			want: coursePage{Courses: all[:10], Page: core.Page{Number: 1, PerPage: 10, Total: 13, LastPage: 2}},
		},
		{
			name: "subject", path: "/courses?subject=MTH",
			want: coursePage{Courses: []course.Course{math}, Page: core.Page{Number: 1, PerPage: 10, Total: 1, LastPage: 1}},
		},
		{
			name: "subject and term", path: "/courses?subject=CS&term=fa22",
			want: coursePage{
				Courses: []course.Course{all[2], all[5], all[8], all[11]},
				Page:    core.Page{Number: 1, PerPage: 10, Total: 4, LastPage: 1},
			},
		},
		{
			name: "number", path: "/courses?number=105",
			want: coursePage{Courses: []course.Course{all[4]}, Page: core.Page{Number: 1, PerPage: 10, Total: 1, LastPage: 1}},
		},
		{
			name: "no match", path: "/courses?subject=ART&page=3",
			want: coursePage{Courses: []course.Course{}, Page: core.Page{Number: 1, PerPage: 10, Total: 0, LastPage: 1}},
		},
		{
			name: "unknown params are ignored", path: "/courses?instructorId=999",
			want: coursePage{Courses: all[:10], Page: core.Page{Number: 1, PerPage: 10, Total: 13, LastPage: 2}},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.serve(newRequest(http.MethodGet, tt.path))
			require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
			assert.JSONEq(t, string(marshallObj(t, tt.want)), rec.Body.String())
		})
	}
}

func Test_courseApi_detail(t *testing.T) {
	app := setup(t)
	admin := app.createUser(t, "admin@test.cd", user.RoleAdmin)
	prof := app.createUser(t, "prof@test.cd", user.RoleInstructor)
	otherProf := app.createUser(t, "other@test.cd", user.RoleInstructor)
	crs := testutil.CreateCourse(t, app.repos.Courses, "CS", "493", "sp22", prof.ID)
	path := pathf("/courses/%d", crs.ID)

	renamed := crs
	renamed.Title = "Cloud Apps"

	tests := []httpTest{
		{name: "retrieve", path: path, wantCode: http.StatusOK, wantData: marshallObj(t, crs)},
		{
			name: "retrieve unknown", path: "/courses/404", wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "Requested resource /courses/404 does not exist"}),
		},
		{
			name: "update anonymous", method: http.MethodPatch, path: path, body: []byte(`{"title": "Cloud Apps"}`),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "update by another instructor", method: http.MethodPatch, path: path, body: []byte(`{"title": "Cloud Apps"}`),
			token: app.token(t, otherProf), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "update without valid fields", method: http.MethodPatch, path: path, body: []byte(`{"id": 12, "color": "red"}`),
			token:    app.token(t, prof),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, validationErr{Error: "The request body is invalid.", Errors: []string{"No valid fields."}}),
		},
		{
			name: "update to a non-instructor", method: http.MethodPatch, path: path, body: marshallObj(t, echo.Map{"instructorId": admin.ID}),
			token:    app.token(t, admin),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, validationErr{Error: course.ErrNotInstructor.Error(), Errors: []string{course.ErrNotInstructor.Error()}}),
		},
		{
			name: "update", method: http.MethodPatch, path: path, body: []byte(`{"title": "Cloud Apps", "unknown": true}`),
			token: app.token(t, prof), wantCode: http.StatusOK, wantData: marshallObj(t, renamed),
		},
		{
			name: "update unknown", method: http.MethodPatch, path: "/courses/404", body: []byte(`{"title": "Cloud Apps"}`),
			token: app.token(t, admin), wantCode: http.StatusNotFound,
			wantData: marshallObj(t, httpErr{Error: "Requested resource /courses/404 does not exist"}),
		},
		{
			name: "delete by its instructor", method: http.MethodDelete, path: path,
			token: app.token(t, prof), wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
	}
	runHttpTests(t, app, tests)

	// admins only
	rec := app.serve(newAuthRequest(http.MethodDelete, path, app.token(t, admin)))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = app.serve(newRequest(http.MethodGet, path))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	rec = app.serve(newAuthRequest(http.MethodDelete, path, app.token(t, admin)))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func Test_courseApi_enrollment(t *testing.T) {
	app := setup(t)
	prof := app.createUser(t, "prof@test.cd", user.RoleInstructor)
	otherProf := app.createUser(t, "other@test.cd", user.RoleInstructor)
	s1 := testutil.CreateUser(t, app.repos.Users, "s1@test.cd", password, user.RoleStudent, "Ada, Countess")
	s2 := testutil.CreateUser(t, app.repos.Users, "s2@test.cd", password, user.RoleStudent, "Alan")
	s3 := app.createUser(t, "s3@test.cd", user.RoleStudent)
	crs := testutil.CreateCourse(t, app.repos.Courses, "CS", "493", "sp22", prof.ID)
	token := app.token(t, prof)

	studentsPath := pathf("/courses/%d/students", crs.ID)
	rosterPath := pathf("/courses/%d/roster", crs.ID)

	tests := []httpTest{
		{name: "list anonymous", path: studentsPath, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "list by another instructor", path: studentsPath, token: app.token(t, otherProf),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{name: "list empty", path: studentsPath, token: token, wantCode: http.StatusOK, wantData: []byte(`{"students": []}`)},
		{
			name: "update anonymous", method: http.MethodPost, path: studentsPath, body: marshallObj(t, echo.Map{"add": []int{s1.ID}}),
			wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden),
		},
		{
			name: "update with nothing to do", method: http.MethodPost, path: studentsPath, body: []byte(`{}`), token: token,
			wantCode: http.StatusBadRequest, wantData: marshallObj(t, httpErr{Error: "The request body is invalid."}),
		},
		{name: "add nobody", method: http.MethodPost, path: studentsPath, body: []byte(`{"add": []}`), token: token, wantCode: http.StatusOK},
		{name: "remove nobody", method: http.MethodPost, path: studentsPath, body: []byte(`{"remove": []}`), token: token, wantCode: http.StatusOK},
		{
			name: "add a non-student", method: http.MethodPost, path: studentsPath, token: token,
			body:     marshallObj(t, echo.Map{"add": []int{s1.ID, otherProf.ID}}),
			wantCode: http.StatusBadRequest,
			wantData: marshallObj(t, validationErr{
				Error:  "The request body is invalid.",
				Errors: []string{fmt.Sprintf("User %d is not a student.", otherProf.ID)},
			}),
		},
		{
			name: "add", method: http.MethodPost, path: studentsPath, token: token,
			body:     marshallObj(t, echo.Map{"add": []int{s1.ID, s2.ID, s3.ID}}),
			wantCode: http.StatusOK,
		},
		{
			name: "add again and remove", method: http.MethodPost, path: studentsPath, token: token,
			body:     marshallObj(t, echo.Map{"add": []int{s1.ID}, "remove": []int{s3.ID, 999}}),
			wantCode: http.StatusOK,
		},
		{
			name: "list", path: studentsPath, token: token,
			wantCode: http.StatusOK, wantData: marshallObj(t, echo.Map{"students": []int{s1.ID, s2.ID}}),
		},
		{name: "roster anonymous", path: rosterPath, wantCode: http.StatusForbidden, wantData: marshallObj(t, errForbidden)},
		{
			name: "unknown course", path: "/courses/404/students", token: token,
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "Requested resource /courses/404/students does not exist"}),
		},
	}
	runHttpTests(t, app, tests)

	rec := app.serve(newAuthRequest(http.MethodGet, rosterPath, token))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "text/csv", rec.Header().Get(echo.HeaderContentType))
	assert.Equal(t, pathf("attachment; filename=roster-%d.csv", crs.ID), rec.Header().Get(echo.HeaderContentDisposition))
	assert.Equal(t, pathf("%d,\"Ada, Countess\",s1@test.cd\n%d,Alan,s2@test.cd\n", s1.ID, s2.ID), rec.Body.String())

	// enrolled courses show on the student
	rec = app.serve(newRequest(http.MethodGet, pathf("/users/%d", s1.ID)))
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Courses []int `json:"courses"`
	}
	decode(t, rec, &body)
	assert.Equal(t, []int{crs.ID}, body.Courses)
}

func Test_courseApi_listAssignments(t *testing.T) {
	app := setup(t)
	prof := app.createUser(t, "prof@test.cd", user.RoleInstructor)
	crs := testutil.CreateCourse(t, app.repos.Courses, "CS", "493", "sp22", prof.ID)
	other := testutil.CreateCourse(t, app.repos.Courses, "CS", "494", "sp22", prof.ID)
	due := time.Now().Add(7 * 24 * time.Hour)
	a1 := testutil.CreateAssignment(t, app.repos.Assignments, crs.ID, "HW 1", due)
	testutil.CreateAssignment(t, app.repos.Assignments, other.ID, "HW 1", due)
	a2 := testutil.CreateAssignment(t, app.repos.Assignments, crs.ID, "HW 2", due)

	runHttpTests(t, app, []httpTest{
		{
			name: "assignments", path: pathf("/courses/%d/assignments", crs.ID),
			wantCode: http.StatusOK, wantData: marshallObj(t, echo.Map{"assignments": []int{a1.ID, a2.ID}}),
		},
		{
			name: "unknown course", path: "/courses/404/assignments",
			wantCode: http.StatusNotFound, wantData: marshallObj(t, httpErr{Error: "Requested resource /courses/404/assignments does not exist"}),
		},
	})
}
