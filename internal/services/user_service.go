package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/auth"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/db"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// IUserService defines the interface for account operations.
type IUserService interface {
	Signup(ctx context.Context, input models.SignupInput) (*models.User, error)
	Login(ctx context.Context, input models.LoginInput) (*models.User, error)
	FindByID(ctx context.Context, userID utils.SixID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)
	DeleteUserAndBooks(ctx context.Context, userID utils.SixID) (int64, error)
	EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error)
}

type userService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewUserService creates a new UserService.
func NewUserService(db *mongo.Database, cfg *config.Config) IUserService {
	return &userService{db: db, cfg: cfg}
}

func (s *userService) users() *mongo.Collection {
	return s.db.Collection(db.UsersCollection)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *userService) checkPassword(password string) error {
	if minLen := s.cfg.PasswordMinLength; len(password) < minLen {
		return newValidationError("password must be at least %d characters", minLen)
	}
	return nil
}

// Signup registers a new account with the user role.
func (s *userService) Signup(ctx context.Context, input models.SignupInput) (*models.User, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Email = normalizeEmail(input.Email)
	if err := validateStruct(input); err != nil {
		return nil, err
	}
	if err := s.checkPassword(input.Password); err != nil {
		return nil, err
	}
	return s.insertUser(ctx, input.Name, input.Email, input.Password, models.RoleUser)
}

func (s *userService) insertUser(ctx context.Context, name, email, password string, role models.Role) (*models.User, error) {
	if existing, err := s.FindByEmail(ctx, email); err == nil && existing != nil {
		return nil, ErrEmailExists
	} else if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	hash, err := auth.HashPassword(password)
	if err != nil {
		return nil, err
	}

	var user *models.User
	err = db.Try(ctx, func() error {
		user = &models.User{
			ID:           utils.NewSixID(),
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         role,
			CreatedAt:    time.Now().UTC(),
		}
		_, insertErr := s.users().InsertOne(ctx, user)
		if mongo.IsDuplicateKeyError(insertErr) {
			// A concurrent signup may have taken the email; only id collisions are retried.
			if _, findErr := s.FindByEmail(ctx, email); findErr == nil {
				return ErrEmailExists
			}
		}
		return insertErr
	})
	if err != nil {
		if errors.Is(err, ErrEmailExists) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to insert user %s after retries: %w", email, err)
	}

	log.Printf("Registered %s account %s (%s)", role, user.ID.String(), email)
	return user, nil
}

// Login checks credentials. Unknown emails and wrong passwords fail the same way.
func (s *userService) Login(ctx context.Context, input models.LoginInput) (*models.User, error) {
	user, err := s.FindByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			auth.BurnPasswordCheck(input.Password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	if !auth.CheckPasswordHash(input.Password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// FindByID finds a user by id.
func (s *userService) FindByID(ctx context.Context, userID utils.SixID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": userID}, "user "+userID.String())
}

// FindByEmail finds a user by email, ignoring case.
func (s *userService) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	email = normalizeEmail(email)
	return s.findOne(ctx, bson.M{"email": email}, "user with email "+email)
}

func (s *userService) findOne(ctx context.Context, filter bson.M, what string) (*models.User, error) {
	var user models.User
	if err := s.users().FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s not found", ErrNotFound, what)
		}
		return nil, fmt.Errorf("error finding %s: %w", what, err)
	}
	return &user, nil
}

// ListUsers returns every non-admin account, newest first.
func (s *userService) ListUsers(ctx context.Context) ([]models.User, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := s.users().Find(ctx, bson.M{"role": models.RoleUser}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query users: %w", err)
	}
	defer cursor.Close(ctx)

	users := []models.User{}
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to decode users: %w", err)
	}
	return users, nil
}

// DeleteUserAndBooks removes an account together with all of its listings and
// returns the number of listings removed. Admin accounts cannot be deleted.
func (s *userService) DeleteUserAndBooks(ctx context.Context, userID utils.SixID) (int64, error) {
	user, err := s.FindByID(ctx, userID)
	if err != nil {
		return 0, err
	}
	if user.IsAdmin() {
		return 0, fmt.Errorf("%w: admin accounts cannot be deleted", ErrForbidden)
	}

	// Listings first: a failed account delete must not leave books without a seller.
	books, err := s.db.Collection(db.BooksCollection).DeleteMany(ctx, bson.M{"seller_id": userID})
	if err != nil {
		return 0, fmt.Errorf("db error deleting books for user %s: %w", userID.String(), err)
	}

	result, err := s.users().DeleteOne(ctx, bson.M{"_id": userID})
	if err != nil {
		log.Printf("Deleted %d books of user %s but failed to delete the account: %v", books.DeletedCount, userID.String(), err)
		return books.DeletedCount, fmt.Errorf("db error deleting user %s: %w", userID.String(), err)
	}
	if result.DeletedCount == 0 {
		return books.DeletedCount, fmt.Errorf("%w: user %s not found", ErrNotFound, userID.String())
	}

	log.Printf("Deleted user %s and %d books", userID.String(), books.DeletedCount)
	return books.DeletedCount, nil
}

// EnsureAdmin creates the bootstrap admin account, or promotes an existing account with
// that email. The password of an existing account is left unchanged.
func (s *userService) EnsureAdmin(ctx context.Context, name, email, password string) (*models.User, error) {
	email = normalizeEmail(email)
	existing, err := s.FindByEmail(ctx, email)
	if err == nil {
		if existing.IsAdmin() {
			return existing, nil
		}
		_, err = s.users().UpdateOne(ctx, bson.M{"_id": existing.ID}, bson.M{"$set": bson.M{"role": models.RoleAdmin}})
		if err != nil {
			return nil, fmt.Errorf("failed to promote %s to admin: %w", email, err)
		}
		existing.Role = models.RoleAdmin
		log.Printf("Promoted %s to admin", email)
		return existing, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, err
	}

	if err := s.checkPassword(password); err != nil {
		return nil, err
	}
	return s.insertUser(ctx, name, email, password, models.RoleAdmin)
}
