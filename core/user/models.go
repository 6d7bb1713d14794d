package user

import (
	"github.com/volatiletech/null/v8"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tarpaulin/core/schema"
)

// Roles
const (
	RoleAdmin      = "admin"
	RoleInstructor = "instructor"
	RoleStudent    = "student"
)

var AllRoles = []string{RoleAdmin, RoleInstructor, RoleStudent}

type User struct {
	ID       int         `db:"id" json:"id"`
	Name     null.String `db:"name" json:"name"`
	Email    string      `db:"email" json:"email" schema:",required"`
	Password string      `db:"password" json:"-" schema:"password,required"` // bcrypt hash once stored
	Role     string      `db:"role" json:"role" schema:",required,default"`   // student by default
}

var Schema = schema.Define("users", User{},
	schema.Validators("email", schema.Rule("email", "Email is invalid.")),
	schema.Validators("password", passwordValidators...),
	schema.Values("role", AllRoles...),
	schema.Transforms("password", hashPassword),
)

func (u User) CheckPassword(pwd string) error {
	return bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(pwd))
}

func (u User) IsAdmin() bool      { return u.Role == RoleAdmin }
func (u User) IsInstructor() bool { return u.Role == RoleInstructor }
func (u User) IsStudent() bool    { return u.Role == RoleStudent }

// NewUser is the payload of the admin CLI `adduser` command.
type NewUser struct {
	Name            string `json:"name"`
	Email           string `json:"email" validate:"required,email"`
	Role            string `json:"role" validate:"omitempty,oneof=admin instructor student"`
	Password        string `json:"password" validate:"required"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// Payload converts nu to a gateway payload.
func (nu NewUser) Payload() map[string]interface{} {
	payload := map[string]interface{}{
		"email":    nu.Email,
		"password": nu.Password,
	}
	if nu.Name != "" {
		payload["name"] = nu.Name
	}
	if nu.Role != "" {
		payload["role"] = nu.Role
	}
	return payload
}

type Credentials struct {
	Email    string `json:"email" validate:"required"`
	Password string `json:"password" validate:"required"`
}
