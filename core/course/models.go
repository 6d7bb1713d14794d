package course

import (
	"strings"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core/schema"
)

type Course struct {
	ID           int    `db:"id" json:"id"`
	Subject      string `db:"subject" json:"subject" schema:",required"`
	Number       string `db:"number" json:"number" schema:",required"`
	Title        string `db:"title" json:"title" schema:",required"`
	Term         string `db:"term" json:"term" schema:",required"`
	InstructorID int    `db:"instructor_id" json:"instructorId" schema:",required"`
}

var Schema = schema.Define("courses", Course{},
	schema.Validators("subject", notBlank("Subject")),
	schema.Validators("number", notBlank("Number")),
	schema.Validators("title", notBlank("Title")),
	schema.Validators("term", notBlank("Term")),
	schema.Validators("instructorId", schema.Rule("gt=0", "Invalid value for instructorId.")),
)

// FilterFields are the query parameters a course listing may be filtered by.
var FilterFields = []string{"subject", "number", "term"}

func notBlank(label string) schema.ValidatorFunc {
	return func(value interface{}, _ schema.Record) error {
		if strings.TrimSpace(value.(string)) == "" {
			return errors.Errorf("%s must not be blank.", label)
		}
		return nil
	}
}
