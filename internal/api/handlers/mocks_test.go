package handlers_test

import (
	"context"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/mock"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/catalog"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/storage"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// --- Mocks ---

// MockUserService
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) Signup(ctx context.Context, input models.SignupInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) Login(ctx context.Context, input models.LoginInput) (*models.User, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

func (m *MockUserService) ListUsers(ctx context.Context) ([]models.User, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.User), args.Error(1)
}

func (m *MockUserService) DeleteUserAndBooks(ctx context.Context, userID utils.SixID) (int64, error) {
	args := m.Called(ctx, userID)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockUserService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	args := m.Called(ctx, name, email, password)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.User), args.Error(1)
}

// MockBookService
type MockBookService struct {
	mock.Mock
}

func (m *MockBookService) book(args mock.Arguments) (*models.Book, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Book), args.Error(1)
}

func (m *MockBookService) books(args mock.Arguments) ([]models.Book, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Book), args.Error(1)
}

func (m *MockBookService) CreateBook(ctx context.Context, caller models.Caller, draft models.BookDraft) (*models.Book, error) {
	return m.book(m.Called(ctx, caller, draft))
}

func (m *MockBookService) GetBook(ctx context.Context, bookID utils.SixID) (*models.Book, error) {
	return m.book(m.Called(ctx, bookID))
}

func (m *MockBookService) UpdateBook(ctx context.Context, caller models.Caller, bookID utils.SixID, patch models.BookPatch) (*models.Book, error) {
	return m.book(m.Called(ctx, caller, bookID, patch))
}

func (m *MockBookService) DeleteBook(ctx context.Context, caller models.Caller, bookID utils.SixID) error {
	return m.Called(ctx, caller, bookID).Error(0)
}

func (m *MockBookService) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	return m.books(m.Called(ctx, filter))
}

func (m *MockBookService) ListBooksBySeller(ctx context.Context, sellerID utils.SixID) ([]models.Book, error) {
	return m.books(m.Called(ctx, sellerID))
}

func (m *MockBookService) RequestBook(ctx context.Context, caller models.Caller, bookID utils.SixID) (*models.Book, error) {
	return m.book(m.Called(ctx, caller, bookID))
}

func (m *MockBookService) MarkSold(ctx context.Context, caller models.Caller, bookID utils.SixID) (*models.Book, error) {
	return m.book(m.Called(ctx, caller, bookID))
}

func (m *MockBookService) Recommend(ctx context.Context, pref catalog.Preference) ([]models.Book, error) {
	return m.books(m.Called(ctx, pref))
}

func (m *MockBookService) SetBookImage(ctx context.Context, bookID utils.SixID, imageURL string) error {
	return m.Called(ctx, bookID, imageURL).Error(0)
}

// MockStorage
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) GenerateCoverUploadURL(ctx context.Context, userID, bookID, filename, contentType string) (string, string, error) {
	args := m.Called(ctx, userID, bookID, filename, contentType)
	return args.String(0), args.String(1), args.Error(2)
}

func (m *MockStorage) GetObject(ctx context.Context, key string) (*storage.Object, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*storage.Object), args.Error(1)
}

func (m *MockStorage) PutObject(ctx context.Context, key string, data []byte, contentType string) error {
	return m.Called(ctx, key, data, contentType).Error(0)
}

func (m *MockStorage) PublicURL(key string) string {
	return storage.PublicURL("https://cdn.example.com", key)
}

func (m *MockStorage) OwnsKey(key, userID, bookID string) bool {
	return storage.OwnsKey(key, userID, bookID)
}

// MockAsynqClient
type MockAsynqClient struct {
	mock.Mock
}

func (m *MockAsynqClient) EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error) {
	args := m.Called(ctx, task, opts)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*asynq.TaskInfo), args.Error(1)
}
