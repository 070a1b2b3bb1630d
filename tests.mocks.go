package main

import (
	"context"
	"sync/atomic"
	"time"
)

// This file contains mocks definitions needed to perform unit tests.

type MockBookRepository struct {
	GetAllFunc             func(ctx context.Context) ([]Book, error)
	GetOneFunc             func(ctx context.Context, id int64) (Book, error)
	GetByRatingFunc        func(ctx context.Context, rating int) ([]Book, error)
	GetByPublishedDateFunc func(ctx context.Context, year int) ([]Book, error)
	AddFunc                func(ctx context.Context, book Book) (Book, error)
	UpdateFunc             func(ctx context.Context, book Book) error
	DeleteFunc             func(ctx context.Context, id int64) error
	CountFunc              func(ctx context.Context) (int, error)
}

// GetAll mocks the behavior of retrieving all books by the repository.
func (m *MockBookRepository) GetAll(ctx context.Context) ([]Book, error) {
	return m.GetAllFunc(ctx)
}

// GetOne mocks the behavior of retrieving a book by the repository.
func (m *MockBookRepository) GetOne(ctx context.Context, id int64) (Book, error) {
	return m.GetOneFunc(ctx, id)
}

func (m *MockBookRepository) GetByRating(ctx context.Context, rating int) ([]Book, error) {
	return m.GetByRatingFunc(ctx, rating)
}

func (m *MockBookRepository) GetByPublishedDate(ctx context.Context, year int) ([]Book, error) {
	return m.GetByPublishedDateFunc(ctx, year)
}

// Add mocks the behavior of book creation by the repository.
func (m *MockBookRepository) Add(ctx context.Context, book Book) (Book, error) {
	return m.AddFunc(ctx, book)
}

// Update mocks the behavior of updating a book by the repository.
func (m *MockBookRepository) Update(ctx context.Context, book Book) error {
	return m.UpdateFunc(ctx, book)
}

// Delete mocks the behavior of deleting a book by the repository.
func (m *MockBookRepository) Delete(ctx context.Context, id int64) error {
	return m.DeleteFunc(ctx, id)
}

func (m *MockBookRepository) Count(ctx context.Context) (int, error) {
	return m.CountFunc(ctx)
}

// MockBookStorage hands out the same mocked repository on each Acquire
// and counts sessions so tests can check they are always released.
type MockBookStorage struct {
	Repo       *MockBookRepository
	AcquireErr error
	acquired   atomic.Int64
	released   atomic.Int64
	closed     atomic.Bool
}

func NewMockBookStorage(repo *MockBookRepository) *MockBookStorage {
	return &MockBookStorage{Repo: repo}
}

func (m *MockBookStorage) Acquire(_ context.Context) (BookRepository, func(), error) {
	if m.AcquireErr != nil {
		return nil, nil, m.AcquireErr
	}
	m.acquired.Add(1)
	return m.Repo, func() { m.released.Add(1) }, nil
}

func (m *MockBookStorage) Close() error {
	m.closed.Store(true)
	return nil
}

// Sessions returns the number of acquired and released sessions.
func (m *MockBookStorage) Sessions() (int64, int64) {
	return m.acquired.Load(), m.released.Load()
}

// MockClocker implements a fake Clocker.
type MockClocker struct {
	MockNow time.Time
}

// NewMockClocker returns a mocked instance with fixed time.
func NewMockClocker() *MockClocker {
	return &MockClocker{time.Date(2023, 0o7, 0o2, 0o0, 0o0, 0o0, 0o00000000, time.UTC)}
}

// Now returns an already defined time to be used as mock. This
// equals to `Sun, 02 Jul 2023 00:00:00 UTC` in time.RFC1123 format.
func (mck *MockClocker) Now() time.Time {
	return mck.MockNow
}

// MockUIDHandler implements a fake UIDGenerator.
type MockUIDHandler struct {
	MockedUID string
}

// NewMockUIDHandler returns a mocked instance with predictable id.
func NewMockUIDHandler(id string) *MockUIDHandler {
	return &MockUIDHandler{MockedUID: id}
}

// Generate constructs a predictable id to be used as mock.
func (muid *MockUIDHandler) Generate(prefix string) string {
	return prefix + ":" + muid.MockedUID
}
