package mocks

import (
	"context"

	"docgate/internal/model"
	"docgate/internal/storage"

	"github.com/stretchr/testify/mock"
)

type MockTransformService struct {
	mock.Mock
}

func (m *MockTransformService) Transform(ctx context.Context, req model.Request) (*model.Result, storage.Workspace, error) {
	args := m.Called(ctx, req)
	var res *model.Result
	if v := args.Get(0); v != nil {
		res = v.(*model.Result)
	}
	var ws storage.Workspace
	if v := args.Get(1); v != nil {
		ws = v.(storage.Workspace)
	}
	return res, ws, args.Error(2)
}
