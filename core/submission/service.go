package submission

import (
	"context"
	"net/mail"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
	"github.com/trezcool/tarpaulin/core/assignment"
	"github.com/trezcool/tarpaulin/core/enrollment"
	"github.com/trezcool/tarpaulin/core/user"
)

var ErrNotEnrolled = errors.New("Not enrolled in course.")

type (
	EnrollmentFinder interface {
		Find(ctx context.Context, courseID, studentID int) (enrollment.Enrollment, error)
	}

	UserFinder interface {
		GetByID(ctx context.Context, id int) (user.User, error)
	}

	Service struct {
		repo        core.Repository[Submission]
		enrollments EnrollmentFinder
		users       UserFinder
		store       core.ObjectStore
		mailSvc     core.EmailService
		logger      core.Logger
		nowFunc     func() time.Time
	}
)

func NewService(
	repo core.Repository[Submission],
	enrollments EnrollmentFinder,
	users UserFinder,
	store core.ObjectStore,
	mailSvc core.EmailService,
	logger core.Logger,
) *Service {
	return &Service{
		repo:        repo,
		enrollments: enrollments,
		users:       users,
		store:       store,
		mailSvc:     mailSvc,
		logger:      logger,
		nowFunc:     time.Now,
	}
}

// storageFilename randomizes the name a file is stored under, keeping the original name as a suffix.
func storageFilename(original string) string {
	return uuid.New().String() + "." + filepath.Base(original)
}

// Submit records a file submitted by a student for an assignment and uploads it.
// The student must be enrolled in the assignment's course (ErrNotEnrolled otherwise).
// If the upload fails, the recorded submission is removed again.
func (svc *Service) Submit(ctx context.Context, asgmt assignment.Assignment, studentID int, file File) (Submission, error) {
	enr, err := svc.enrollments.Find(ctx, asgmt.CourseID, studentID)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return Submission{}, ErrNotEnrolled
		}
		return Submission{}, err
	}

	name := strings.TrimSpace(file.Name)
	sub, err := svc.repo.Create(ctx, map[string]interface{}{
		"assignmentId":     asgmt.ID,
		"studentId":        studentID,
		"enrollmentId":     enr.ID,
		"submittedAt":      svc.nowFunc().UTC().Truncate(time.Microsecond),
		"originalFilename": name,
		"storageFilename":  storageFilename(name),
	})
	if err != nil {
		return Submission{}, err
	}

	if err = svc.store.UploadFile(ctx, sub.StorageFilename, file.Content, file.ContentType); err != nil {
		if dErr := svc.repo.Destroy(ctx, sub.ID); dErr != nil {
			svc.logger.Error("removing submission after failed upload", dErr)
		}
		return Submission{}, core.NewStorageError(err, "uploading submission")
	}

	svc.sendReceipt(ctx, sub)
	sub.setLink()
	return sub, nil
}

func (svc *Service) sendReceipt(ctx context.Context, sub Submission) {
	usr, err := svc.users.GetByID(ctx, sub.StudentID)
	if err != nil {
		svc.logger.Error("loading student for submission receipt", err)
		return
	}
	svc.mailSvc.SendMessages(&core.EmailMessage{
		To:       []mail.Address{{Name: usr.Name.String, Address: usr.Email}},
		Subject:  "Submission received",
		Template: receiptTmpl,
		TemplateData: map[string]interface{}{
			"Name":         usr.Name.String,
			"Filename":     sub.OriginalFilename,
			"AssignmentID": sub.AssignmentID,
			"SubmittedAt":  sub.SubmittedAt,
			"ID":           sub.ID,
		},
	})
}

func (svc *Service) GetByID(ctx context.Context, id int) (Submission, error) {
	sub, err := svc.repo.FindBy(ctx, "id", id)
	if err != nil {
		return Submission{}, err
	}
	sub.setLink()
	return sub, nil
}

// Query returns one page of the submissions to an assignment, optionally those of a single student.
func (svc *Service) Query(ctx context.Context, assignmentID, studentID, page int) ([]Submission, core.Page, error) {
	filters := []core.Predicate{core.Where("assignmentId", assignmentID)}
	if studentID > 0 {
		filters = append(filters, core.Where("studentId", studentID))
	}

	total, err := svc.repo.Count(ctx, filters...)
	if err != nil {
		return nil, core.Page{}, err
	}
	pg := core.Paginate(total, page, core.PageSize)
	subs, err := svc.repo.All(ctx, pg.Offset, pg.PerPage, filters...)
	if err != nil {
		return nil, core.Page{}, err
	}
	for i := range subs {
		subs[i].setLink()
	}
	return subs, pg, nil
}

// DownloadURL issues a time-limited, read-only link to the submitted file.
func (svc *Service) DownloadURL(ctx context.Context, sub Submission) (string, error) {
	url, err := svc.store.SignedURL(ctx, sub.StorageFilename)
	if err != nil {
		return "", core.NewStorageError(err, "signing submission url")
	}
	return url, nil
}
