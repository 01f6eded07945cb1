package server

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/tariffbuilder/tariffbuilder/pkg/gridstore"
	"github.com/tariffbuilder/tariffbuilder/pkg/types"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) Load(ctx context.Context, clientID string, gridID types.GridID, expectedVersion int, fallback types.ScheduleMatrix) (types.ScheduleMatrix, error) {
	args := m.Called(ctx, clientID, gridID, expectedVersion, fallback)
	if len(args) > 0 {
		ret, _ := args.Get(0).(types.ScheduleMatrix)
		return ret, args.Error(1)
	}
	return nil, nil
}

func (m *mockStore) Save(ctx context.Context, clientID string, gridID types.GridID, version int, matrix types.ScheduleMatrix) error {
	args := m.Called(ctx, clientID, gridID, version, matrix)
	return args.Error(0)
}

func (m *mockStore) Get(ctx context.Context, clientID string, gridID types.GridID) (gridstore.StoredGrid, bool, error) {
	args := m.Called(ctx, clientID, gridID)
	if len(args) > 0 {
		return args.Get(0).(gridstore.StoredGrid), args.Bool(1), args.Error(2)
	}
	return gridstore.StoredGrid{}, false, nil
}

func (m *mockStore) Delete(ctx context.Context, clientID string) error {
	args := m.Called(ctx, clientID)
	return args.Error(0)
}

func (m *mockStore) Close() error {
	args := m.Called()
	return args.Error(0)
}
