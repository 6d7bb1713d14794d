package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/course"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/storage/database"
)

// PrepareDB opens a private in-memory database with every table created; it is closed with the test.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	conf := &core.Config{Database: core.DatabaseConfig{Engine: database.SQLite, Name: ":memory:"}}
	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.EnsureSchema(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

func CreateUser(t *testing.T, repo core.Repository[user.User], email, pwd, role string, name ...string) user.User {
	t.Helper()
	payload := map[string]interface{}{"email": email, "password": pwd}
	if role != "" {
		payload["role"] = role
	}
	if len(name) > 0 {
		payload["name"] = name[0]
	}
	usr, err := repo.Create(context.Background(), payload)
	if err != nil {
		t.Fatalf("CreateUser() failed: %v", err)
	}
	return usr
}

func CreateCourse(t *testing.T, repo core.Repository[course.Course], subject, number, term string, instructorID int) course.Course {
	t.Helper()
	crs, err := repo.Create(context.Background(), map[string]interface{}{
		"subject":      subject,
		"number":       number,
		"title":        subject + " " + number,
		"term":         term,
		"instructorId": instructorID,
	})
	if err != nil {
		t.Fatalf("CreateCourse() failed: %v", err)
	}
	return crs
}

func Enroll(t *testing.T, repo core.Repository[enrollment.Enrollment], courseID, studentID int) enrollment.Enrollment {
	t.Helper()
	enr, err := repo.Create(context.Background(), map[string]interface{}{"courseId": courseID, "studentId": studentID})
	if err != nil {
		t.Fatalf("Enroll() failed: %v", err)
	}
	return enr
}

func CreateAssignment(t *testing.T, repo core.Repository[assignment.Assignment], courseID int, title string, due time.Time) assignment.Assignment {
	t.Helper()
	asgmt, err := repo.Create(context.Background(), map[string]interface{}{
		"courseId": courseID,
		"title":    title,
		"points":   100,
		"due":      due.UTC(),
	})
	if err != nil {
		t.Fatalf("CreateAssignment() failed: %v", err)
	}
	return asgmt
}
