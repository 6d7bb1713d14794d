package submission

import (
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/trezcool/tarpaulin/core/schema"
)

// Submission is immutable once created; the file itself lives in the object store under StorageFilename.
type Submission struct {
	ID               int       `db:"id" json:"id"`
	AssignmentID     int       `db:"assignment_id" json:"assignmentId" schema:",required"`
	StudentID        int       `db:"student_id" json:"studentId" schema:",required"`
	EnrollmentID     int       `db:"enrollment_id" json:"enrollmentId" schema:",required"`
	SubmittedAt      time.Time `db:"submitted_at" json:"submittedAt" schema:",required"`
	OriginalFilename string    `db:"original_filename" json:"originalFilename" schema:",required"`
	StorageFilename  string    `db:"storage_filename" json:"-" schema:"storageFilename,required"`

	File string `db:"-" json:"file"` // download endpoint
}

var Schema = schema.Define("assignment_submissions", Submission{})

func (s *Submission) setLink() {
	s.File = fmt.Sprintf("/submissions/%d/download", s.ID)
}

// File is an uploaded file.
type File struct {
	Name        string
	ContentType string
	Content     io.Reader
}

var receiptTmpl = template.Must(template.New("submission_receipt").Parse(`Hi {{.Name}},

Your submission "{{.Filename}}" for assignment #{{.AssignmentID}} was received on {{.SubmittedAt.Format "Mon, 02 Jan 2006 15:04:05 MST"}}.
Submission reference: {{.ID}}
`))
