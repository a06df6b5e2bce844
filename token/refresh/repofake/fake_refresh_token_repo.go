package refreshrepofake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-credential-service/token/refresh"
)

var _ refresh.Repo = (*FakeRefreshTokenRepo)(nil)

type FakeRefreshTokenRepo struct {
	records map[int64]*refresh.Record
	nextID  int64
	lock    sync.RWMutex
}

func NewFakeRefreshTokenRepo() *FakeRefreshTokenRepo {
	return &FakeRefreshTokenRepo{
		records: make(map[int64]*refresh.Record),
		nextID:  1,
	}
}

func (tr *FakeRefreshTokenRepo) Add(_ context.Context, record *refresh.Record) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	record.ID = tr.nextID
	tr.nextID++

	copied := *record
	tr.records[record.ID] = &copied
	return nil
}

func (tr *FakeRefreshTokenRepo) Update(_ context.Context, record *refresh.Record) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	if _, ok := tr.records[record.ID]; !ok {
		return refresh.ErrNotFound
	}
	copied := *record
	tr.records[record.ID] = &copied
	return nil
}

func (tr *FakeRefreshTokenRepo) Find(_ context.Context, accessToken, refreshToken string, userID int64) (*refresh.Record, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	for _, record := range tr.records {
		if record.AccessToken == accessToken &&
			record.RefreshToken == refreshToken &&
			record.UserID == userID {
			copied := *record
			return &copied, nil
		}
	}
	return nil, refresh.ErrNotFound
}

// All returns every stored record ordered by id, for test assertions.
func (tr *FakeRefreshTokenRepo) All() []*refresh.Record {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	records := make([]*refresh.Record, 0, len(tr.records))
	for id := int64(1); id < tr.nextID; id++ {
		if record, ok := tr.records[id]; ok {
			copied := *record
			records = append(records, &copied)
		}
	}
	return records
}
