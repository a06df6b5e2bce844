package identityrepofake

import (
	"context"
	"strings"
	"sync"

	"github.com/jrsteele09/go-credential-service/identity"
)

var _ identity.Manager = (*FakeIdentityRepo)(nil)

// FakeIdentityRepo is an in-memory identity.Manager for tests and the
// demo binary. UpdateErr, when set, is returned by Update to exercise
// the transactional failure paths.
type FakeIdentityRepo struct {
	identities map[int64]*identity.Identity
	emails     map[string]int64
	nextID     int64
	lock       sync.RWMutex

	UpdateErr error
}

func NewFakeIdentityRepo() *FakeIdentityRepo {
	return &FakeIdentityRepo{
		identities: make(map[int64]*identity.Identity),
		emails:     make(map[string]int64),
		nextID:     1,
	}
}

// Upsert stores an identity, assigning an ID when it has none. The
// password is hashed through the same primitive AddPassword uses.
func (r *FakeIdentityRepo) Upsert(ident *identity.Identity) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if ident.ID == 0 {
		ident.ID = r.nextID
		r.nextID++
	} else if ident.ID >= r.nextID {
		r.nextID = ident.ID + 1
	}

	copied := *ident
	r.identities[ident.ID] = &copied
	r.emails[strings.ToLower(ident.Email)] = ident.ID
	return nil
}

func (r *FakeIdentityRepo) FindByID(_ context.Context, id int64) (*identity.Identity, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	ident, ok := r.identities[id]
	if !ok {
		return nil, nil
	}
	copied := *ident
	return &copied, nil
}

func (r *FakeIdentityRepo) FindByEmail(_ context.Context, email string) (*identity.Identity, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	id, ok := r.emails[strings.ToLower(email)]
	if !ok {
		return nil, nil
	}
	copied := *r.identities[id]
	return &copied, nil
}

func (r *FakeIdentityRepo) GetRoles(_ context.Context, ident *identity.Identity) ([]string, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.identities[ident.ID]
	if !ok {
		return nil, nil
	}
	return append([]string(nil), stored.Roles...), nil
}

func (r *FakeIdentityRepo) GetClaims(_ context.Context, ident *identity.Identity) ([]identity.Claim, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.identities[ident.ID]
	if !ok {
		return nil, nil
	}
	return append([]identity.Claim(nil), stored.Claims...), nil
}

func (r *FakeIdentityRepo) Update(_ context.Context, ident *identity.Identity) error {
	if r.UpdateErr != nil {
		return r.UpdateErr
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.identities[ident.ID]
	if !ok {
		return nil
	}
	delete(r.emails, strings.ToLower(stored.Email))

	copied := *ident
	r.identities[ident.ID] = &copied
	r.emails[strings.ToLower(ident.Email)] = ident.ID
	return nil
}

func (r *FakeIdentityRepo) ConfirmEmail(ctx context.Context, id int64, code string) (bool, error) {
	r.lock.Lock()
	defer r.lock.Unlock()

	stored, ok := r.identities[id]
	if !ok || code == "" {
		return false, nil
	}
	stored.EmailConfirmed = true
	return true, nil
}

func (r *FakeIdentityRepo) CheckPassword(_ context.Context, ident *identity.Identity, password string) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.identities[ident.ID]
	if !ok {
		return false, nil
	}
	return identity.CheckPasswordHash(password, stored.PasswordHash), nil
}

func (r *FakeIdentityRepo) RemovePassword(_ context.Context, ident *identity.Identity) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if stored, ok := r.identities[ident.ID]; ok {
		stored.PasswordHash = ""
	}
	return nil
}

func (r *FakeIdentityRepo) AddPassword(_ context.Context, ident *identity.Identity, password string) error {
	hash, err := identity.HashPassword(password)
	if err != nil {
		return err
	}

	r.lock.Lock()
	defer r.lock.Unlock()

	if stored, ok := r.identities[ident.ID]; ok {
		stored.PasswordHash = hash
	}
	return nil
}

func (r *FakeIdentityRepo) HasPassword(_ context.Context, ident *identity.Identity) (bool, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	stored, ok := r.identities[ident.ID]
	if !ok {
		return false, nil
	}
	return stored.PasswordHash != "", nil
}
