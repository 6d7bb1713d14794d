package user

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/tarpaulin/core"
)

var (
	// errors
	ErrEmailExists        = errors.New("A user with this email already exists.")
	ErrInvalidCredentials = errors.New("Invalid credentials.")
)

type Service struct {
	repo core.Repository[User]
}

func NewService(repo core.Repository[User]) *Service {
	return &Service{repo: repo}
}

var emailExists = core.FieldError{Field: "email", Error: ErrEmailExists.Error()}

func (svc *Service) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := svc.repo.FindBy(ctx, "email", email)
	switch errors.Cause(err) {
	case nil:
		return true, nil
	case core.ErrNotFound:
		return false, nil
	default:
		return false, err
	}
}

// Create signs a user up. The role defaults to student; authorization of the role is up to the caller.
// A taken email is reported along with the other invalid fields.
func (svc *Service) Create(ctx context.Context, payload map[string]interface{}) (User, error) {
	data := make(map[string]interface{}, len(payload))
	for k, v := range payload {
		data[k] = v
	}
	var taken bool
	if email, ok := data["email"].(string); ok {
		data["email"] = core.CleanString(email, true /* lower */)
		var err error
		if taken, err = svc.emailTaken(ctx, data["email"].(string)); err != nil {
			return User{}, err
		}
	}

	usr, err := svc.repo.Create(ctx, data)
	if err == nil {
		return usr, nil
	}
	if errors.Is(err, core.ErrConflict) {
		// taken, possibly by a concurrent sign up
		return User{}, core.NewValidationError(ErrEmailExists, emailExists)
	}
	var vErr *core.ValidationError
	if taken && errors.As(err, &vErr) {
		flds := append(append([]core.FieldError{}, vErr.Fields...), emailExists)
		return User{}, core.NewValidationError(vErr.Err, flds...)
	}
	return User{}, err
}

func (svc *Service) GetByID(ctx context.Context, id int) (User, error) {
	return svc.repo.FindBy(ctx, "id", id)
}

func (svc *Service) GetByEmail(ctx context.Context, email string) (User, error) {
	return svc.repo.FindBy(ctx, "email", core.CleanString(email, true /* lower */))
}

// ListByIDs returns the users with the given ids, ordered by id.
func (svc *Service) ListByIDs(ctx context.Context, ids ...int) ([]User, error) {
	if len(ids) == 0 {
		return []User{}, nil
	}
	return svc.repo.All(ctx, 0, 0, core.IntsIn("id", ids...))
}

// Authenticate returns the user matching the credentials, or ErrInvalidCredentials.
func (svc *Service) Authenticate(ctx context.Context, email, pwd string) (User, error) {
	usr, err := svc.GetByEmail(ctx, email)
	if err != nil {
		if errors.Cause(err) == core.ErrNotFound {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}
	if err = usr.CheckPassword(pwd); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return usr, nil
}

func (svc *Service) SetPassword(ctx context.Context, id int, pwd string) (User, error) {
	return svc.repo.Update(ctx, id, map[string]interface{}{"password": pwd})
}
