package roles

import (
	"context"

	"github.com/pkg/errors"
)

// Bootstrap role names seeded when the role set is empty.
const (
	RoleAdmin = "Admin"
	RoleUser  = "User"
)

var (
	ErrRoleExists   = errors.New("role already exists")
	ErrRoleNotFound = errors.New("role not found")
)

// Role names are unique and case-sensitive. Tokens snapshot role names at
// issuance, so renaming a role never changes claims already signed.
type Role struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Repo interface {
	Add(ctx context.Context, role *Role) error
	Update(ctx context.Context, role *Role) error
	Delete(ctx context.Context, id int64) error
	GetByID(ctx context.Context, id int64) (*Role, error)
	GetByName(ctx context.Context, name string) (*Role, error)
	List(ctx context.Context) ([]*Role, error)
	Count(ctx context.Context) (int, error)
}

// Service provides role administration over a Repo.
type Service struct {
	repo Repo
}

func NewService(repo Repo) (*Service, error) {
	if repo == nil {
		return nil, errors.New("[NewService] role repo is required")
	}
	return &Service{repo: repo}, nil
}

// Seed creates the bootstrap roles when none exist yet. Calling it
// against a populated repo is a no-op.
func (s *Service) Seed(ctx context.Context) error {
	count, err := s.repo.Count(ctx)
	if err != nil {
		return errors.Wrap(err, "Service.Seed Count")
	}
	if count > 0 {
		return nil
	}

	for _, name := range []string{RoleAdmin, RoleUser} {
		if err := s.repo.Add(ctx, &Role{Name: name}); err != nil {
			return errors.Wrapf(err, "Service.Seed Add %q", name)
		}
	}
	return nil
}

func (s *Service) Add(ctx context.Context, name string) (*Role, error) {
	existing, err := s.repo.GetByName(ctx, name)
	if err != nil && !errors.Is(err, ErrRoleNotFound) {
		return nil, errors.Wrap(err, "Service.Add GetByName")
	}
	if existing != nil {
		return nil, ErrRoleExists
	}

	role := &Role{Name: name}
	if err := s.repo.Add(ctx, role); err != nil {
		return nil, errors.Wrap(err, "Service.Add Add")
	}
	return role, nil
}

func (s *Service) Edit(ctx context.Context, id int64, name string) (*Role, error) {
	role, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrap(err, "Service.Edit GetByID")
	}

	role.Name = name
	if err := s.repo.Update(ctx, role); err != nil {
		return nil, errors.Wrap(err, "Service.Edit Update")
	}
	return role, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.Wrap(err, "Service.Delete Delete")
	}
	return nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Role, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context) ([]*Role, error) {
	return s.repo.List(ctx)
}
