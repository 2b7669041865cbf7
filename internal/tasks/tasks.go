package tasks

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	"image/jpeg"
	_ "image/png"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/nfnt/resize"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/config"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/email"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/models"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/services"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/storage"
	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// Task types.
const (
	TypeBookNotification = "email:book_notification"
	TypeImageProcess     = "image:process"
)

// Queue names.
const (
	QueueDefault = "default"
	QueueImages  = "images"
)

// Enqueuer is the part of *asynq.Client the API needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

func redisOpt(cfg *config.Config) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}
}

// NewClient creates the asynq client used to enqueue tasks.
func NewClient(cfg *config.Config) *asynq.Client {
	return asynq.NewClient(redisOpt(cfg))
}

// BookNotificationPayload asks the worker to email a party of a listing.
type BookNotificationPayload struct {
	Template string `json:"template"`
	BookID   string `json:"book_id"`
}

// NewBookNotificationTask builds a notification task for one of the email templates.
func NewBookNotificationTask(template string, bookID utils.SixID) (*asynq.Task, error) {
	payload, err := json.Marshal(BookNotificationPayload{Template: template, BookID: bookID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal notification payload: %w", err)
	}
	return asynq.NewTask(TypeBookNotification, payload, asynq.Queue(QueueDefault), asynq.MaxRetry(5)), nil
}

// ImageTaskPayload points the image worker at an uploaded cover.
type ImageTaskPayload struct {
	S3Key  string `json:"s3_key"`
	BookID string `json:"book_id"`
}

// NewImageProcessTask builds a task that normalizes an uploaded cover image.
func NewImageProcessTask(s3Key string, bookID utils.SixID) (*asynq.Task, error) {
	payload, err := json.Marshal(ImageTaskPayload{S3Key: s3Key, BookID: bookID.String()})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal image payload: %w", err)
	}
	return asynq.NewTask(TypeImageProcess, payload, asynq.Queue(QueueImages), asynq.Timeout(2*time.Minute)), nil
}

// TaskProcessor holds the dependencies of the task handlers.
type TaskProcessor struct {
	cfg            *config.Config
	emailSender    email.Sender
	storageService storage.IS3Storage
	bookService    services.IBookService
	userService    services.IUserService
}

func NewTaskProcessor(
	cfg *config.Config,
	emailSender email.Sender,
	storageService storage.IS3Storage,
	bookService services.IBookService,
	userService services.IUserService,
) *TaskProcessor {
	return &TaskProcessor{
		cfg:            cfg,
		emailSender:    emailSender,
		storageService: storageService,
		bookService:    bookService,
		userService:    userService,
	}
}

// NewServer configures an asynq server and the handlers for the selected worker roles.
// It returns a nil server when neither role is enabled.
func NewServer(cfg *config.Config, processor *TaskProcessor, isImageWorker, isBgWorker bool) (*asynq.Server, *asynq.ServeMux) {
	if !isBgWorker && !isImageWorker {
		return nil, nil
	}

	queues := map[string]int{}
	mux := asynq.NewServeMux()
	if isBgWorker {
		queues[QueueDefault] = 3
		mux.HandleFunc(TypeBookNotification, processor.HandleBookNotificationTask)
		log.Println("Registered notification task handlers.")
	}
	if isImageWorker {
		queues[QueueImages] = 5
		mux.HandleFunc(TypeImageProcess, processor.HandleImageProcessTask)
		log.Println("Registered image processing task handlers.")
	}

	srv := asynq.NewServer(redisOpt(cfg), asynq.Config{
		Queues: queues,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			log.Printf("[asynq] task %s failed: %v (payload %s)", task.Type(), err, task.Payload())
		}),
	})
	return srv, mux
}

// notificationData is what the email templates render.
type notificationData struct {
	AppName       string
	SellerName    string
	RequesterName string
	Title         string
	Subject       string
	Semester      string
}

// HandleBookNotificationTask emails the seller when a book is requested and the
// requester when it is sold.
func (p *TaskProcessor) HandleBookNotificationTask(ctx context.Context, t *asynq.Task) error {
	var payload BookNotificationPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal notification payload: %v: %w", err, asynq.SkipRetry)
	}
	bookID, err := utils.ParseSixID(payload.BookID)
	if err != nil {
		return fmt.Errorf("invalid book id %q in payload: %w", payload.BookID, asynq.SkipRetry)
	}

	book, err := p.bookService.GetBook(ctx, bookID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			log.Printf("Book %s vanished before notification %s was sent", payload.BookID, payload.Template)
			return fmt.Errorf("book not found: %w", asynq.SkipRetry)
		}
		return err
	}

	data := notificationData{
		AppName:    p.cfg.AppName,
		SellerName: book.Seller,
		Title:      book.Title,
		Subject:    book.Subject,
		Semester:   book.Semester,
	}
	if book.RequestedByName != nil {
		data.RequesterName = *book.RequestedByName
	}

	var recipientID utils.SixID
	switch payload.Template {
	case email.TemplateBookRequested:
		recipientID = book.SellerID
	case email.TemplateBookSold:
		if book.RequestedBy == nil {
			log.Printf("Book %s sold without a requester, nobody to notify", payload.BookID)
			return nil
		}
		recipientID = *book.RequestedBy
	default:
		return fmt.Errorf("unknown notification template %q: %w", payload.Template, asynq.SkipRetry)
	}

	recipient, err := p.userService.FindByID(ctx, recipientID)
	if err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("recipient %s not found: %w", recipientID.String(), asynq.SkipRetry)
		}
		return err
	}

	subject, raw, err := email.Render(payload.Template, p.cfg.SmtpFromAddress, recipient.Email, data)
	if err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}
	if err := p.emailSender.Send(ctx, []string{recipient.Email}, subject, raw); err != nil {
		return fmt.Errorf("failed to send %s email for book %s: %w", payload.Template, payload.BookID, err)
	}

	log.Printf("Sent %s email for book %s to %s", payload.Template, payload.BookID, recipient.Email)
	return nil
}

// HandleImageProcessTask shrinks an uploaded cover to the configured bounds, writes it
// back and points the listing at it.
func (p *TaskProcessor) HandleImageProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ImageTaskPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return fmt.Errorf("failed to unmarshal image task payload: %v: %w", err, asynq.SkipRetry)
	}
	bookID, err := utils.ParseSixID(payload.BookID)
	if err != nil {
		return fmt.Errorf("invalid book id %q in payload: %w", payload.BookID, asynq.SkipRetry)
	}

	obj, err := p.storageService.GetObject(ctx, payload.S3Key)
	if err != nil {
		if errors.Is(err, storage.ErrObjectNotFound) {
			log.Printf("Cover %s not found, the upload probably never happened", payload.S3Key)
			return fmt.Errorf("s3 object not found: %w", asynq.SkipRetry)
		}
		return err
	}

	maxSizeBytes := int64(p.cfg.ImageMaxSizeMB) * 1024 * 1024
	if int64(len(obj.Data)) > maxSizeBytes {
		return fmt.Errorf("image %s exceeds %d bytes: %w", payload.S3Key, maxSizeBytes, asynq.SkipRetry)
	}

	img, format, err := image.Decode(bytes.NewReader(obj.Data))
	if err != nil {
		return fmt.Errorf("unsupported image format or corrupt image %s: %w", payload.S3Key, asynq.SkipRetry)
	}

	data, contentType := obj.Data, obj.ContentType
	maxDim := uint(p.cfg.ImageMaxDimension)
	if uint(img.Bounds().Dx()) > maxDim || uint(img.Bounds().Dy()) > maxDim {
		resized := resize.Thumbnail(maxDim, maxDim, img, resize.Lanczos3)
		var buf bytes.Buffer
		if err := jpeg.Encode(&buf, resized, &jpeg.Options{Quality: 85}); err != nil {
			return fmt.Errorf("failed to re-encode resized image: %w", err)
		}
		data, contentType = buf.Bytes(), "image/jpeg"
		log.Printf("Resized %s cover %s from %dx%d to %dx%d", format, payload.S3Key,
			img.Bounds().Dx(), img.Bounds().Dy(), resized.Bounds().Dx(), resized.Bounds().Dy())

		if err := p.storageService.PutObject(ctx, payload.S3Key, data, contentType); err != nil {
			return err
		}
	}

	if err := p.bookService.SetBookImage(ctx, bookID, p.storageService.PublicURL(payload.S3Key)); err != nil {
		if errors.Is(err, services.ErrNotFound) {
			return fmt.Errorf("book %s deleted before its cover was processed: %w", payload.BookID, asynq.SkipRetry)
		}
		return fmt.Errorf("failed to set cover on book %s: %w", payload.BookID, err)
	}

	log.Printf("Cover %s (%s, %d bytes) attached to book %s", payload.S3Key, contentType, len(data), payload.BookID)
	return nil
}

// NotificationTemplateFor returns the template sent when a listing enters status, if any.
func NotificationTemplateFor(status models.BookStatus) (string, bool) {
	switch status {
	case models.StatusRequested:
		return email.TemplateBookRequested, true
	case models.StatusSold:
		return email.TemplateBookSold, true
	}
	return "", false
}
