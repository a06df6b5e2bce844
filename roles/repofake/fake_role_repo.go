package rolesrepofake

import (
	"context"
	"sort"
	"sync"

	"github.com/jrsteele09/go-credential-service/roles"
)

var _ roles.Repo = (*FakeRoleRepo)(nil)

type FakeRoleRepo struct {
	byID   map[int64]*roles.Role
	nextID int64
	lock   sync.RWMutex
}

func NewFakeRoleRepo() *FakeRoleRepo {
	return &FakeRoleRepo{
		byID:   make(map[int64]*roles.Role),
		nextID: 1,
	}
}

func (r *FakeRoleRepo) Add(_ context.Context, role *roles.Role) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	role.ID = r.nextID
	r.nextID++

	copied := *role
	r.byID[role.ID] = &copied
	return nil
}

func (r *FakeRoleRepo) Update(_ context.Context, role *roles.Role) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byID[role.ID]; !ok {
		return roles.ErrRoleNotFound
	}
	copied := *role
	r.byID[role.ID] = &copied
	return nil
}

func (r *FakeRoleRepo) Delete(_ context.Context, id int64) error {
	r.lock.Lock()
	defer r.lock.Unlock()

	if _, ok := r.byID[id]; !ok {
		return roles.ErrRoleNotFound
	}
	delete(r.byID, id)
	return nil
}

func (r *FakeRoleRepo) GetByID(_ context.Context, id int64) (*roles.Role, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	role, ok := r.byID[id]
	if !ok {
		return nil, roles.ErrRoleNotFound
	}
	copied := *role
	return &copied, nil
}

func (r *FakeRoleRepo) GetByName(_ context.Context, name string) (*roles.Role, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	for _, role := range r.byID {
		if role.Name == name {
			copied := *role
			return &copied, nil
		}
	}
	return nil, roles.ErrRoleNotFound
}

func (r *FakeRoleRepo) List(_ context.Context) ([]*roles.Role, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()

	list := make([]*roles.Role, 0, len(r.byID))
	for _, role := range r.byID {
		copied := *role
		list = append(list, &copied)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ID < list[j].ID })
	return list, nil
}

func (r *FakeRoleRepo) Count(_ context.Context) (int, error) {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.byID), nil
}
