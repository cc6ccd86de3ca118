package fakefilerepo

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/filevault/filevault/files"
)

var _ files.Repo = (*FakeFileRepo)(nil)

type FakeFileRepo struct {
	byUser map[string]map[string]*files.File // user ID to file ID to metadata
	lock   sync.RWMutex
}

func NewFakeFileRepo() files.Repo {
	return &FakeFileRepo{
		byUser: make(map[string]map[string]*files.File),
	}
}

func (fr *FakeFileRepo) Upsert(file *files.File) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	userFiles, ok := fr.byUser[file.UserID]
	if !ok {
		userFiles = make(map[string]*files.File)
		fr.byUser[file.UserID] = userFiles
	}
	userFiles[file.ID] = file
	return nil
}

func (fr *FakeFileRepo) Get(fileID, userID string) (*files.File, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	file, ok := fr.byUser[userID][fileID]
	if !ok {
		return nil, errors.New("not found")
	}
	return file, nil
}

func (fr *FakeFileRepo) ListByUser(userID string) ([]*files.File, error) {
	fr.lock.RLock()
	defer fr.lock.RUnlock()

	fileList := make([]*files.File, 0, len(fr.byUser[userID]))
	for _, f := range fr.byUser[userID] {
		fileList = append(fileList, f)
	}
	sort.Slice(fileList, func(i, j int) bool {
		return fileList[i].UploadedAt.After(fileList[j].UploadedAt)
	})
	return fileList, nil
}

func (fr *FakeFileRepo) Delete(fileID, userID string) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	if _, ok := fr.byUser[userID][fileID]; !ok {
		return errors.New("not found")
	}
	delete(fr.byUser[userID], fileID)
	return nil
}

func (fr *FakeFileRepo) RecordAccess(fileID, userID string, at time.Time) error {
	fr.lock.Lock()
	defer fr.lock.Unlock()

	file, ok := fr.byUser[userID][fileID]
	if !ok {
		return errors.New("not found")
	}
	file.AccessCount++
	file.LastAccessed = &at
	return nil
}
