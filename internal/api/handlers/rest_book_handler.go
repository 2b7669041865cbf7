package handlers

import (
	"context"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/catalog"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/storage"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/tasks"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// RestBookHandler handles the /v1/books endpoints.
type RestBookHandler struct {
	bookService    services.IBookService
	storageService storage.IS3Storage
	taskClient     tasks.Enqueuer
}

// NewRestBookHandler creates a new RestBookHandler.
func NewRestBookHandler(bookService services.IBookService, storageService storage.IS3Storage, taskClient tasks.Enqueuer) *RestBookHandler {
	return &RestBookHandler{
		bookService:    bookService,
		storageService: storageService,
		taskClient:     taskClient,
	}
}

// ListBooks handles GET /v1/books
func (h *RestBookHandler) ListBooks(c *gin.Context) {
	filter := models.BookFilter{
		Query:    c.Query("query"),
		Subject:  c.Query("subject"),
		Semester: c.Query("semester"),
		Status:   models.BookStatus(strings.TrimSpace(c.Query("status"))),
	}
	books, err := h.bookService.ListBooks(c.Request.Context(), filter)
	if err != nil {
		respondError(c, err, "Failed to list books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// Recommendations handles GET /v1/books/recommendations
func (h *RestBookHandler) Recommendations(c *gin.Context) {
	pref := catalog.Preference{
		Subject:  c.Query("subject"),
		Semester: c.Query("semester"),
	}
	if raw := c.Query("excludeId"); raw != "" {
		excludeID, err := utils.ParseSixID(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid excludeId format"})
			return
		}
		pref.ExcludeID = excludeID
	}

	books, err := h.bookService.Recommend(c.Request.Context(), pref)
	if err != nil {
		respondError(c, err, "Failed to load recommendations")
		return
	}
	c.JSON(http.StatusOK, books)
}

// GetBook handles GET /v1/books/:id
func (h *RestBookHandler) GetBook(c *gin.Context) {
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	book, err := h.bookService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err, "Failed to retrieve book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// ListSellerBooks handles GET /v1/books/user/:userId
func (h *RestBookHandler) ListSellerBooks(c *gin.Context) {
	sellerID, ok := parseIDParam(c, "userId", "user")
	if !ok {
		return
	}
	books, err := h.bookService.ListBooksBySeller(c.Request.Context(), sellerID)
	if err != nil {
		respondError(c, err, "Failed to list books")
		return
	}
	c.JSON(http.StatusOK, books)
}

// CreateBook handles POST /v1/books
func (h *RestBookHandler) CreateBook(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var draft models.BookDraft
	if err := c.ShouldBindJSON(&draft); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	book, err := h.bookService.CreateBook(c.Request.Context(), caller, draft)
	if err != nil {
		respondError(c, err, "Failed to create book")
		return
	}
	c.JSON(http.StatusCreated, book)
}

// UpdateBook handles PUT /v1/books/:id
func (h *RestBookHandler) UpdateBook(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	var patch models.BookPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request body"})
		return
	}

	book, err := h.bookService.UpdateBook(c.Request.Context(), caller, bookID, patch)
	if err != nil {
		respondError(c, err, "Failed to update book")
		return
	}
	c.JSON(http.StatusOK, book)
}

// RequestBook handles PUT /v1/books/:id/request
func (h *RestBookHandler) RequestBook(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	book, err := h.bookService.RequestBook(c.Request.Context(), caller, bookID)
	if err != nil {
		respondError(c, err, "Failed to request book")
		return
	}
	h.notify(c.Request.Context(), book)
	c.JSON(http.StatusOK, book)
}

// MarkSold handles PUT /v1/books/:id/sold
func (h *RestBookHandler) MarkSold(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	book, err := h.bookService.MarkSold(c.Request.Context(), caller, bookID)
	if err != nil {
		respondError(c, err, "Failed to mark book as sold")
		return
	}
	if book.RequestedBy != nil {
		h.notify(c.Request.Context(), book)
	}
	c.JSON(http.StatusOK, book)
}

// notify enqueues the email for the status book has just entered. The transition itself
// has already been committed, so failures are only logged.
func (h *RestBookHandler) notify(ctx context.Context, book *models.Book) {
	template, ok := tasks.NotificationTemplateFor(book.Status)
	if !ok {
		return
	}
	task, err := tasks.NewBookNotificationTask(template, book.ID)
	if err != nil {
		log.Printf("Failed to build %s task for book %s: %v", template, book.ID.String(), err)
		return
	}
	if _, err := h.taskClient.EnqueueContext(ctx, task); err != nil {
		log.Printf("Failed to enqueue %s task for book %s: %v", template, book.ID.String(), err)
		return
	}
	log.Printf("Enqueued %s notification for book %s", template, book.ID.String())
}

// DeleteBook handles DELETE /v1/books/:id
func (h *RestBookHandler) DeleteBook(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}

	if err := h.bookService.DeleteBook(c.Request.Context(), caller, bookID); err != nil {
		respondError(c, err, "Failed to delete book")
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Book deleted"})
}

type uploadURLRequest struct {
	BookID      string `json:"book_id" binding:"required"`
	Filename    string `json:"filename" binding:"required"`
	ContentType string `json:"content_type" binding:"required"`
}

// allowedImageTypes are the cover formats the image worker can decode.
var allowedImageTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/gif":  true,
}

// manageableBook loads a listing and checks that caller may change it.
func (h *RestBookHandler) manageableBook(c *gin.Context, caller models.Caller, bookID utils.SixID) (*models.Book, bool) {
	book, err := h.bookService.GetBook(c.Request.Context(), bookID)
	if err != nil {
		respondError(c, err, "Failed to retrieve book")
		return nil, false
	}
	if !caller.CanManage(book.SellerID) {
		c.JSON(http.StatusForbidden, gin.H{"error": "only the seller or an admin may change this book's cover"})
		return nil, false
	}
	return book, true
}

// ImageUploadURL handles POST /v1/books/image-upload-url
func (h *RestBookHandler) ImageUploadURL(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	var req uploadURLRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "book_id, filename and content_type are required"})
		return
	}
	if !allowedImageTypes[strings.ToLower(req.ContentType)] {
		c.JSON(http.StatusBadRequest, gin.H{"error": "content_type must be image/jpeg, image/png or image/gif"})
		return
	}
	bookID, err := utils.ParseSixID(req.BookID)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid book ID format"})
		return
	}
	book, ok := h.manageableBook(c, caller, bookID)
	if !ok {
		return
	}

	uploadURL, key, err := h.storageService.GenerateCoverUploadURL(c.Request.Context(),
		book.SellerID.String(), book.ID.String(), req.Filename, strings.ToLower(req.ContentType))
	if err != nil {
		respondError(c, err, "Failed to generate upload URL")
		return
	}
	c.JSON(http.StatusOK, gin.H{"upload_url": uploadURL, "key": key})
}

// AttachImage handles POST /v1/books/:id/image
func (h *RestBookHandler) AttachImage(c *gin.Context) {
	caller, ok := mustCaller(c)
	if !ok {
		return
	}
	bookID, ok := parseIDParam(c, "id", "book")
	if !ok {
		return
	}
	var req struct {
		Key string `json:"key" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key is required"})
		return
	}
	book, ok := h.manageableBook(c, caller, bookID)
	if !ok {
		return
	}
	if !h.storageService.OwnsKey(req.Key, book.SellerID.String(), book.ID.String()) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "key does not belong to this book"})
		return
	}

	task, err := tasks.NewImageProcessTask(req.Key, book.ID)
	if err != nil {
		respondError(c, err, "Failed to schedule image processing")
		return
	}
	info, err := h.taskClient.EnqueueContext(c.Request.Context(), task)
	if err != nil {
		respondError(c, err, "Failed to schedule image processing")
		return
	}
	log.Printf("Enqueued image processing task ID %s for key %s, book %s", info.ID, req.Key, book.ID.String())
	c.JSON(http.StatusAccepted, gin.H{"message": "Image processing started"})
}
