package tokenrepofake

import (
	"errors"
	"sync"
	"time"

	"github.com/filevault/filevault/token"
)

var _ token.RefreshTokenRepo = (*FakeTokensRepo)(nil)

type FakeTokensRepo struct {
	tokens  map[string]*token.StoredRefreshToken
	userIDs map[string]string // user ID to token
	lock    sync.RWMutex
}

func NewFakeTokensRepo() token.RefreshTokenRepo {
	return &FakeTokensRepo{
		tokens:  make(map[string]*token.StoredRefreshToken),
		userIDs: make(map[string]string),
	}
}

func (tr *FakeTokensRepo) Upsert(refreshToken *token.StoredRefreshToken) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	tr.tokens[refreshToken.Token] = refreshToken
	tr.userIDs[refreshToken.UserID] = refreshToken.Token
	return nil
}

func (tr *FakeTokensRepo) Delete(tokenStr string) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	rt, ok := tr.tokens[tokenStr]
	if !ok {
		return errors.New("not found")
	}
	delete(tr.userIDs, rt.UserID)
	delete(tr.tokens, rt.Token)
	return nil
}

func (tr *FakeTokensRepo) Get(tokenStr string) (*token.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	rt, ok := tr.tokens[tokenStr]
	if !ok {
		return nil, errors.New("not found")
	}
	return rt, nil
}

func (tr *FakeTokensRepo) GetByUserID(userID string) (*token.StoredRefreshToken, error) {
	tr.lock.RLock()
	defer tr.lock.RUnlock()

	tokenStr, ok := tr.userIDs[userID]
	if !ok {
		return nil, errors.New("not found")
	}
	return tr.tokens[tokenStr], nil
}

func (tr *FakeTokensRepo) DeleteExpired(cutoff time.Time) error {
	tr.lock.Lock()
	defer tr.lock.Unlock()

	for tokenStr, rt := range tr.tokens {
		if rt.Iat.Before(cutoff) {
			delete(tr.userIDs, rt.UserID)
			delete(tr.tokens, tokenStr)
		}
	}
	return nil
}
