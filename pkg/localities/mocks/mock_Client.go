// Package mocks provides test doubles for the localities client.
package mocks

import (
	"context"

	localities "github.com/sells-group/localities-compare/pkg/localities"
	mock "github.com/stretchr/testify/mock"
)

// MockClient is a mock type for the Client interface.
type MockClient struct {
	mock.Mock
}

// Fetch provides a mock function with given fields: ctx, rawURL, opts
func (_m *MockClient) Fetch(ctx context.Context, rawURL string, opts localities.FetchOptions) (*localities.Response, error) {
	ret := _m.Called(ctx, rawURL, opts)

	if len(ret) == 0 {
		panic("no return value specified for Fetch")
	}

	var r0 *localities.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, string, localities.FetchOptions) (*localities.Response, error)); ok {
		return rf(ctx, rawURL, opts)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*localities.Response)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Query provides a mock function with given fields: ctx, target, kind, req, opts
func (_m *MockClient) Query(ctx context.Context, target localities.Target, kind localities.Kind, req localities.SearchRequest, opts localities.FetchOptions) (*localities.Response, error) {
	ret := _m.Called(ctx, target, kind, req, opts)

	if len(ret) == 0 {
		panic("no return value specified for Query")
	}

	var r0 *localities.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, localities.Target, localities.Kind, localities.SearchRequest, localities.FetchOptions) (*localities.Response, error)); ok {
		return rf(ctx, target, kind, req, opts)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*localities.Response)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Details provides a mock function with given fields: ctx, target, req, opts
func (_m *MockClient) Details(ctx context.Context, target localities.Target, req localities.DetailsRequest, opts localities.FetchOptions) (*localities.Response, error) {
	ret := _m.Called(ctx, target, req, opts)

	if len(ret) == 0 {
		panic("no return value specified for Details")
	}

	var r0 *localities.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, localities.Target, localities.DetailsRequest, localities.FetchOptions) (*localities.Response, error)); ok {
		return rf(ctx, target, req, opts)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*localities.Response)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// Reverse provides a mock function with given fields: ctx, target, req, opts
func (_m *MockClient) Reverse(ctx context.Context, target localities.Target, req localities.ReverseRequest, opts localities.FetchOptions) (*localities.Response, error) {
	ret := _m.Called(ctx, target, req, opts)

	if len(ret) == 0 {
		panic("no return value specified for Reverse")
	}

	var r0 *localities.Response
	var r1 error
	if rf, ok := ret.Get(0).(func(context.Context, localities.Target, localities.ReverseRequest, localities.FetchOptions) (*localities.Response, error)); ok {
		return rf(ctx, target, req, opts)
	}
	if ret.Get(0) != nil {
		r0 = ret.Get(0).(*localities.Response)
	}
	r1 = ret.Error(1)

	return r0, r1
}

// NewMockClient creates a new instance of MockClient and registers cleanup assertions.
func NewMockClient(t interface {
	mock.TestingT
	Cleanup(func())
}) *MockClient {
	m := &MockClient{}
	m.Mock.Test(t)

	t.Cleanup(func() { m.AssertExpectations(t) })

	return m
}
