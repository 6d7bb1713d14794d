package submission_test

import (
	"context"
	"io"
	"log"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/submission"
	"github.com/trezcool/tarpaulin/core/user"
	"github.com/trezcool/tarpaulin/services/email"
	"github.com/trezcool/tarpaulin/services/logger"
	"github.com/trezcool/tarpaulin/services/objectstore"
	"github.com/trezcool/tarpaulin/storage/database"
	"github.com/trezcool/tarpaulin/tests"
)

var ctx = context.Background()

type brokenStore struct {
	*objectstore.MemoryStore
}

func (brokenStore) UploadFile(_ context.Context, _ string, r io.Reader, _ string) error {
	_, _ = io.Copy(io.Discard, r)
	return errors.New("bucket unavailable")
}

type fixture struct {
	repos    *database.Repositories
	svc      *submission.Service
	store    *objectstore.MemoryStore
	mailSvc  *emailsvc.ConsoleServiceMock
	asgmt    assignment.Assignment
	student  user.User
	outsider user.User
	newSvc   func(store core.ObjectStore) *submission.Service
}

func setup(t *testing.T) fixture {
	repos := database.NewRepositories(testutil.PrepareDB(t))
	conf := &core.Config{AppName: "Tarpaulin", Email: core.EmailConfig{DefaultFrom: "noreply@localhost"}}
	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "", 0), conf)

	users := user.NewService(repos.Users)
	enrollments := enrollment.NewService(repos.Enrollments, users)
	store := objectstore.NewMemoryStore("http://localhost:8000", "secret", 30*time.Minute)
	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	newSvc := func(store core.ObjectStore) *submission.Service {
		return submission.NewService(repos.Submissions, enrollments, users, store, mailSvc, logger)
	}

	inst := testutil.CreateUser(t, repos.Users, "i@b.com", "longenough", user.RoleInstructor)
	crs := testutil.CreateCourse(t, repos.Courses, "CS", "493", "sp21", inst.ID)
	student := testutil.CreateUser(t, repos.Users, "s@b.com", "longenough", user.RoleStudent, "Sam")
	testutil.Enroll(t, repos.Enrollments, crs.ID, student.ID)

	return fixture{
		repos:    repos,
		svc:      newSvc(store),
		store:    store,
		mailSvc:  mailSvc,
		asgmt:    testutil.CreateAssignment(t, repos.Assignments, crs.ID, "Final project", time.Now().Add(24*time.Hour)),
		student:  student,
		outsider: testutil.CreateUser(t, repos.Users, "o@b.com", "longenough", user.RoleStudent),
		newSvc:   newSvc,
	}
}

func file(name, content string) submission.File {
	return submission.File{Name: name, ContentType: "application/pdf", Content: strings.NewReader(content)}
}

func TestService_Submit(t *testing.T) {
	f := setup(t)

	sub, err := f.svc.Submit(ctx, f.asgmt, f.student.ID, file("report.pdf", "%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, f.asgmt.ID, sub.AssignmentID)
	assert.Equal(t, f.student.ID, sub.StudentID)
	assert.NotZero(t, sub.EnrollmentID)
	assert.Equal(t, "report.pdf", sub.OriginalFilename)
	assert.True(t, strings.HasSuffix(sub.StorageFilename, ".report.pdf"))
	assert.WithinDuration(t, time.Now(), sub.SubmittedAt, time.Minute)
	assert.Equal(t, "/submissions/"+strconv.Itoa(sub.ID)+"/download", sub.File)

	data, ct, err := f.store.Get(sub.StorageFilename)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.4", string(data))
	assert.Equal(t, "application/pdf", ct)

	sent := f.mailSvc.SentMessages()
	require.Len(t, sent, 1)
	assert.Equal(t, "s@b.com", sent[0].To[0].Address)
	assert.Contains(t, sent[0].TextContent, `"report.pdf"`)

	again, err := f.svc.Submit(ctx, f.asgmt, f.student.ID, file("report.pdf", "%PDF-1.5"))
	require.NoError(t, err, "resubmissions are kept alongside earlier ones")
	assert.NotEqual(t, sub.StorageFilename, again.StorageFilename)

	link, err := f.svc.DownloadURL(ctx, again)
	require.NoError(t, err)
	assert.Contains(t, link, "expires=")
}

func TestService_Submit_notEnrolled(t *testing.T) {
	f := setup(t)

	_, err := f.svc.Submit(ctx, f.asgmt, f.outsider.ID, file("report.pdf", "x"))
	assert.Equal(t, submission.ErrNotEnrolled, err)

	n, err := f.repos.Submissions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestService_Submit_uploadFails(t *testing.T) {
	f := setup(t)
	svc := f.newSvc(brokenStore{f.store})

	_, err := svc.Submit(ctx, f.asgmt, f.student.ID, file("report.pdf", "x"))
	var sErr *core.StorageError
	require.True(t, errors.As(err, &sErr), "got %v", err)

	n, err := f.repos.Submissions.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n, "the submission is removed when its file could not be stored")
	assert.Empty(t, f.mailSvc.SentMessages())
}

func TestService_Query(t *testing.T) {
	f := setup(t)
	other := testutil.CreateUser(t, f.repos.Users, "s2@b.com", "longenough", user.RoleStudent)
	testutil.Enroll(t, f.repos.Enrollments, f.asgmt.CourseID, other.ID)

	for i := 0; i < 12; i++ {
		_, err := f.svc.Submit(ctx, f.asgmt, f.student.ID, file("v.pdf", "x"))
		require.NoError(t, err)
	}
	_, err := f.svc.Submit(ctx, f.asgmt, other.ID, file("mine.pdf", "x"))
	require.NoError(t, err)

	subs, pg, err := f.svc.Query(ctx, f.asgmt.ID, 0, 1)
	require.NoError(t, err)
	assert.Len(t, subs, 10)
	assert.Equal(t, 13, pg.Total)
	assert.NotEmpty(t, subs[0].File)

	subs, pg, err = f.svc.Query(ctx, f.asgmt.ID, f.student.ID, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, pg.Number)
	assert.Len(t, subs, 2)

	subs, _, err = f.svc.Query(ctx, f.asgmt.ID, other.ID, 1)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "mine.pdf", subs[0].OriginalFilename)

	got, err := f.svc.GetByID(ctx, subs[0].ID)
	require.NoError(t, err)
	assert.Equal(t, subs[0], got)
}
