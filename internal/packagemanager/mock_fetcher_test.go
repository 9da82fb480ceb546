package packagemanager

import (
	"context"
	"reflect"

	"go.uber.org/mock/gomock"
)

// MockFetcher is a hand-written gomock-style double for Fetcher, in the
// shape orizon-mockgen would have produced had the installer driver existed
// when that generator was written. Kept by hand rather than generated since
// Fetcher is a small, stable, two-method interface.
type MockFetcher struct {
	ctrl     *gomock.Controller
	recorder *MockFetcherMockRecorder
}

type MockFetcherMockRecorder struct {
	mock *MockFetcher
}

func NewMockFetcher(ctrl *gomock.Controller) *MockFetcher {
	mock := &MockFetcher{ctrl: ctrl}
	mock.recorder = &MockFetcherMockRecorder{mock}
	return mock
}

func (m *MockFetcher) EXPECT() *MockFetcherMockRecorder {
	return m.recorder
}

func (m *MockFetcher) Download(ctx context.Context, dist Dist) ([]byte, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Download", ctx, dist)
	data, _ := ret[0].([]byte)
	err, _ := ret[1].(error)
	return data, err
}

func (mr *MockFetcherMockRecorder) Download(ctx, dist interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Download", reflect.TypeOf((*MockFetcher)(nil).Download), ctx, dist)
}

func (m *MockFetcher) Extract(ctx context.Context, data []byte, dir string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Extract", ctx, data, dir)
	err, _ := ret[0].(error)
	return err
}

func (mr *MockFetcherMockRecorder) Extract(ctx, data, dir interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Extract", reflect.TypeOf((*MockFetcher)(nil).Extract), ctx, data, dir)
}
