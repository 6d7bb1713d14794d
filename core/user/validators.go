package user

import (
	"context"
	"fmt"

	"github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"

	"github.com/trezcool/tarpaulin/core/schema"
)

// password policy
const (
	pwdMinLen   = 8
	hashingCost = 8
)

var (
	errPwdMinLen = errors.New("Password must contain at least 8 characters.")

	passwordValidators = []schema.ValidatorFunc{
		schema.Rule(fmt.Sprintf("min=%d", pwdMinLen), errPwdMinLen.Error()),
	}
)

func hashPassword(_ context.Context, value interface{}) (interface{}, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(value.(string)), hashingCost)
	if err != nil {
		return nil, err
	}
	return string(hash), nil
}
