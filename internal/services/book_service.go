package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gosimple/slug"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/catalog"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/db"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// IBookService defines the listing store and its status transitions.
type IBookService interface {
	CreateBook(ctx context.Context, caller models.Caller, draft models.BookDraft) (*models.Book, error)
	GetBook(ctx context.Context, bookID utils.SixID) (*models.Book, error)
	UpdateBook(ctx context.Context, caller models.Caller, bookID utils.SixID, patch models.BookPatch) (*models.Book, error)
	DeleteBook(ctx context.Context, caller models.Caller, bookID utils.SixID) error
	ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error)
	ListBooksBySeller(ctx context.Context, sellerID utils.SixID) ([]models.Book, error)
	RequestBook(ctx context.Context, caller models.Caller, bookID utils.SixID) (*models.Book, error)
	MarkSold(ctx context.Context, caller models.Caller, bookID utils.SixID) (*models.Book, error)
	Recommend(ctx context.Context, pref catalog.Preference) ([]models.Book, error)
	// SetBookImage is used by the image worker once a cover has been processed.
	SetBookImage(ctx context.Context, bookID utils.SixID, imageURL string) error
}

// bookService implements IBookService.
type bookService struct {
	db  *mongo.Database
	cfg *config.Config
}

// NewBookService creates a new BookService.
func NewBookService(db *mongo.Database, cfg *config.Config) IBookService {
	return &bookService{db: db, cfg: cfg}
}

func (s *bookService) books() *mongo.Collection {
	return s.db.Collection(db.BooksCollection)
}

func bookNotFound(bookID utils.SixID) error {
	return fmt.Errorf("%w: book %s not found", ErrNotFound, bookID.String())
}

// bookSlug builds the URL slug of a listing. The id suffix keeps it unique.
func bookSlug(title string, bookID utils.SixID) string {
	base := slug.Make(title)
	if base == "" {
		return strings.ToLower(bookID.String())
	}
	return base + "-" + strings.ToLower(bookID.String())
}

func normalizeDraft(draft *models.BookDraft) {
	draft.Title = strings.TrimSpace(draft.Title)
	draft.Subject = strings.TrimSpace(draft.Subject)
	draft.Semester = strings.TrimSpace(draft.Semester)
	draft.Description = strings.TrimSpace(draft.Description)
	draft.Image = strings.TrimSpace(draft.Image)
}

// CreateBook stores a new Available listing owned by caller.
func (s *bookService) CreateBook(ctx context.Context, caller models.Caller, draft models.BookDraft) (*models.Book, error) {
	normalizeDraft(&draft)
	if err := validateStruct(draft); err != nil {
		return nil, err
	}
	if draft.Description == "" {
		draft.Description = models.DefaultDescription
	}

	now := time.Now().UTC()
	var book *models.Book
	err := db.Try(ctx, func() error {
		id := utils.NewSixID()
		book = &models.Book{
			ID:          id,
			Title:       draft.Title,
			Slug:        bookSlug(draft.Title, id),
			Subject:     draft.Subject,
			Semester:    draft.Semester,
			Condition:   draft.Condition,
			Description: draft.Description,
			Price:       *draft.Price,
			Image:       draft.Image,
			SellerID:    caller.ID,
			Seller:      caller.Name,
			Status:      models.StatusAvailable,
			PostedAt:    now,
			UpdatedAt:   now,
		}
		_, insertErr := s.books().InsertOne(ctx, book)
		return insertErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to insert book for seller %s after retries: %w", caller.ID.String(), err)
	}

	log.Printf("Book %s listed by %s", book.ID.String(), caller.ID.String())
	return book, nil
}

// GetBook finds a listing by id.
func (s *bookService) GetBook(ctx context.Context, bookID utils.SixID) (*models.Book, error) {
	var book models.Book
	err := s.books().FindOne(ctx, bson.M{"_id": bookID}).Decode(&book)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookNotFound(bookID)
		}
		return nil, fmt.Errorf("error finding book %s: %w", bookID.String(), err)
	}
	return &book, nil
}

// authorize loads the listing and checks that caller may manage it.
func (s *bookService) authorize(ctx context.Context, caller models.Caller, bookID utils.SixID, action string) (*models.Book, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if !caller.CanManage(book.SellerID) {
		return nil, fmt.Errorf("%w: only the seller or an admin may %s this book", ErrForbidden, action)
	}
	return book, nil
}

// managedFilter matches bookID, and for non-admins only while caller is still its seller.
func managedFilter(caller models.Caller, bookID utils.SixID) bson.M {
	filter := bson.M{"_id": bookID}
	if !caller.IsAdmin() {
		filter["seller_id"] = caller.ID
	}
	return filter
}

// UpdateBook applies patch to the descriptive fields of a listing. Status, ownership and
// requester fields cannot be changed this way.
func (s *bookService) UpdateBook(ctx context.Context, caller models.Caller, bookID utils.SixID, patch models.BookPatch) (*models.Book, error) {
	set, err := patchFields(patch)
	if err != nil {
		return nil, err
	}
	if _, err := s.authorize(ctx, caller, bookID, "edit"); err != nil {
		return nil, err
	}
	set["updated_at"] = time.Now().UTC()

	var updated models.Book
	err = s.books().FindOneAndUpdate(ctx, managedFilter(caller, bookID), bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookNotFound(bookID)
		}
		return nil, fmt.Errorf("failed to update book %s: %w", bookID.String(), err)
	}
	return &updated, nil
}

// patchFields validates patch and turns it into a $set document keyed by bson field names.
func patchFields(patch models.BookPatch) (bson.M, error) {
	trim := func(p *string) *string {
		if p == nil {
			return nil
		}
		v := strings.TrimSpace(*p)
		return &v
	}
	patch.Title = trim(patch.Title)
	patch.Subject = trim(patch.Subject)
	patch.Semester = trim(patch.Semester)
	patch.Description = trim(patch.Description)
	patch.Image = trim(patch.Image)

	if patch.IsEmpty() {
		return nil, newValidationError("no fields to update")
	}
	if err := validateStruct(patch); err != nil {
		return nil, err
	}

	set := bson.M{}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Subject != nil {
		set["subject"] = *patch.Subject
	}
	if patch.Semester != nil {
		set["semester"] = *patch.Semester
	}
	if patch.Price != nil {
		set["price"] = *patch.Price
	}
	if patch.Condition != nil {
		set["condition"] = *patch.Condition
	}
	if patch.Description != nil {
		if *patch.Description == "" {
			set["description"] = models.DefaultDescription
		} else {
			set["description"] = *patch.Description
		}
	}
	if patch.Image != nil {
		set["image"] = *patch.Image
	}
	return set, nil
}

// DeleteBook removes a listing in any status.
func (s *bookService) DeleteBook(ctx context.Context, caller models.Caller, bookID utils.SixID) error {
	if _, err := s.authorize(ctx, caller, bookID, "delete"); err != nil {
		return err
	}
	result, err := s.books().DeleteOne(ctx, managedFilter(caller, bookID))
	if err != nil {
		return fmt.Errorf("failed to delete book %s: %w", bookID.String(), err)
	}
	if result.DeletedCount == 0 {
		return bookNotFound(bookID)
	}
	log.Printf("Book %s deleted by %s", bookID.String(), caller.ID.String())
	return nil
}

// ListBooks returns the listings matching filter, newest first. Exact-match dimensions
// are pushed down to MongoDB and the text query is applied by catalog.Search.
func (s *bookService) ListBooks(ctx context.Context, filter models.BookFilter) ([]models.Book, error) {
	query := bson.M{}
	if filter.Status != "" {
		if !catalog.IsValidStatus(filter.Status) {
			return nil, newValidationError("unknown status %q", filter.Status)
		}
		query["status"] = filter.Status
	}
	if filter.Subject != "" && filter.Subject != models.FilterAll {
		query["subject"] = filter.Subject
	}
	if filter.Semester != "" && filter.Semester != models.FilterAll {
		query["semester"] = filter.Semester
	}

	books, err := s.find(ctx, query)
	if err != nil {
		return nil, err
	}
	return catalog.Search(books, filter), nil
}

// ListBooksBySeller returns every listing of one seller, newest first.
func (s *bookService) ListBooksBySeller(ctx context.Context, sellerID utils.SixID) ([]models.Book, error) {
	return s.find(ctx, bson.M{"seller_id": sellerID})
}

func (s *bookService) find(ctx context.Context, query bson.M) ([]models.Book, error) {
	opts := options.Find().SetSort(bson.D{{Key: "posted_at", Value: -1}})
	cursor, err := s.books().Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query books: %w", err)
	}
	defer cursor.Close(ctx)

	books := []models.Book{}
	if err := cursor.All(ctx, &books); err != nil {
		return nil, fmt.Errorf("failed to decode books: %w", err)
	}
	return books, nil
}

// transition moves a listing to target when its current status allows it. The status
// check is part of the update filter, so two concurrent callers cannot both win.
func (s *bookService) transition(ctx context.Context, bookID utils.SixID, target models.BookStatus, set bson.M) (*models.Book, error) {
	filter := bson.M{
		"_id":    bookID,
		"status": bson.M{"$in": catalog.SourcesFor(target)},
	}
	set["status"] = target
	set["updated_at"] = time.Now().UTC()

	var updated models.Book
	err := s.books().FindOneAndUpdate(ctx, filter, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After)).Decode(&updated)
	if err == nil {
		return &updated, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to move book %s to %s: %w", bookID.String(), target, err)
	}

	// Nothing matched: find out whether the book is gone or in the wrong state.
	current, getErr := s.GetBook(ctx, bookID)
	if getErr != nil {
		return nil, getErr
	}
	return nil, fmt.Errorf("%w: book is %s and cannot become %s", ErrInvalidState, current.Status, target)
}

// RequestBook records caller's intent to buy an Available listing.
func (s *bookService) RequestBook(ctx context.Context, caller models.Caller, bookID utils.SixID) (*models.Book, error) {
	book, err := s.GetBook(ctx, bookID)
	if err != nil {
		return nil, err
	}
	if book.SellerID == caller.ID {
		return nil, fmt.Errorf("%w: you cannot request your own book", ErrForbidden)
	}
	if !catalog.CanTransition(book.Status, models.StatusRequested) {
		return nil, fmt.Errorf("%w: book is not available", ErrInvalidState)
	}

	updated, err := s.transition(ctx, bookID, models.StatusRequested, bson.M{
		"requested_by":      caller.ID,
		"requested_by_name": caller.Name,
	})
	if err != nil {
		if errors.Is(err, ErrInvalidState) {
			return nil, fmt.Errorf("%w: book is not available", ErrInvalidState)
		}
		return nil, err
	}
	log.Printf("Book %s requested by %s", bookID.String(), caller.ID.String())
	return updated, nil
}

// MarkSold closes a listing. The requester, if any, is kept.
func (s *bookService) MarkSold(ctx context.Context, caller models.Caller, bookID utils.SixID) (*models.Book, error) {
	if _, err := s.authorize(ctx, caller, bookID, "mark sold"); err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, bookID, models.StatusSold, bson.M{})
	if err != nil {
		return nil, err
	}
	log.Printf("Book %s marked sold by %s", bookID.String(), caller.ID.String())
	return updated, nil
}

// Recommend returns suggestions drawn from the Available listings.
func (s *bookService) Recommend(ctx context.Context, pref catalog.Preference) ([]models.Book, error) {
	available, err := s.find(ctx, bson.M{"status": models.StatusAvailable})
	if err != nil {
		return nil, err
	}
	return catalog.Recommend(available, pref), nil
}

// SetBookImage replaces the cover image URL of a listing.
func (s *bookService) SetBookImage(ctx context.Context, bookID utils.SixID, imageURL string) error {
	result, err := s.books().UpdateOne(ctx, bson.M{"_id": bookID}, bson.M{"$set": bson.M{
		"image":      imageURL,
		"updated_at": time.Now().UTC(),
	}})
	if err != nil {
		return fmt.Errorf("db error setting image on book %s: %w", bookID.String(), err)
	}
	if result.MatchedCount == 0 {
		return bookNotFound(bookID)
	}
	return nil
}
