package handlers

import (
	"context"

	"github.com/cloo-solutions/cardsmith/internal/domain"
	"github.com/cloo-solutions/cardsmith/internal/service"
	"github.com/stretchr/testify/mock"
)

type MockPreprocessService struct {
	mock.Mock
}

func (m *MockPreprocessService) Preprocess(ctx context.Context, input service.PreprocessInput) (*domain.PreprocessingResult, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.PreprocessingResult), args.Error(1)
}

func (m *MockPreprocessService) Batches(ctx context.Context, input service.BatchesInput) ([]domain.Batch, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Batch), args.Error(1)
}

func (m *MockPreprocessService) Estimate(ctx context.Context, input service.EstimateInput) (*service.EstimateOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.EstimateOutput), args.Error(1)
}

type MockDocumentService struct {
	mock.Mock
}

func (m *MockDocumentService) SubmitText(ctx context.Context, input service.SubmitTextInput) (*service.SubmitOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitOutput), args.Error(1)
}

func (m *MockDocumentService) SubmitUpload(ctx context.Context, input service.SubmitUploadInput) (*service.SubmitOutput, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.SubmitOutput), args.Error(1)
}

func (m *MockDocumentService) GetDocument(ctx context.Context, id string) (*service.DocumentView, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*service.DocumentView), args.Error(1)
}

func (m *MockDocumentService) GetResult(ctx context.Context, id string) (*domain.DocumentResult, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.DocumentResult), args.Error(1)
}
