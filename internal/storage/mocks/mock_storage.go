package mocks

import (
	"context"
	"io"
	"os"
	"time"

	"docgate/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Acquire(ctx context.Context, op string) (storage.Workspace, error) {
	args := m.Called(ctx, op)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(storage.Workspace), args.Error(1)
}

func (m *MockStorage) Sweep(olderThan time.Duration) (int, error) {
	args := m.Called(olderThan)
	return args.Int(0), args.Error(1)
}

func (m *MockStorage) Live() int {
	args := m.Called()
	return args.Int(0)
}

func (m *MockStorage) Close() error {
	args := m.Called()
	return args.Error(0)
}

type MockWorkspace struct {
	mock.Mock
}

func (m *MockWorkspace) ID() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockWorkspace) Dir() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockWorkspace) Path(name string) string {
	args := m.Called(name)
	return args.String(0)
}

func (m *MockWorkspace) Save(name string, r io.Reader) (string, int64, error) {
	args := m.Called(name, r)
	return args.String(0), args.Get(1).(int64), args.Error(2)
}

func (m *MockWorkspace) Open(path string) (*os.File, error) {
	args := m.Called(path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*os.File), args.Error(1)
}

func (m *MockWorkspace) Release() error {
	args := m.Called()
	return args.Error(0)
}
