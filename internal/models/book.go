package models

import (
	"time"

	"github.com/Gomathi-Raji/campus-book-swap-main/internal/utils"
)

// BookStatus is the lifecycle state of a listing.
type BookStatus string

const (
	StatusAvailable BookStatus = "available"
	StatusRequested BookStatus = "requested"
	StatusSold      BookStatus = "sold"
)

// BookCondition describes the physical state of a book.
type BookCondition string

const (
	ConditionLikeNew    BookCondition = "Like New"
	ConditionGood       BookCondition = "Good"
	ConditionFair       BookCondition = "Fair"
	ConditionAcceptable BookCondition = "Acceptable"
)

// Conditions lists every accepted condition value.
var Conditions = []BookCondition{ConditionLikeNew, ConditionGood, ConditionFair, ConditionAcceptable}

// DefaultDescription is stored when a seller leaves the description blank.
const DefaultDescription = "No description provided."

// Book is a textbook listing offered by a seller.
type Book struct {
	ID              utils.SixID   `bson:"_id" json:"id"`
	Title           string        `bson:"title" json:"title"`
	Slug            string        `bson:"slug" json:"slug"`
	Subject         string        `bson:"subject" json:"subject"`
	Semester        string        `bson:"semester" json:"semester"`
	Condition       BookCondition `bson:"condition" json:"condition"`
	Description     string        `bson:"description" json:"description"`
	Price           float64       `bson:"price" json:"price"`
	Image           string        `bson:"image" json:"image"`
	SellerID        utils.SixID   `bson:"seller_id" json:"sellerId"`
	Seller          string        `bson:"seller" json:"seller"` // Name snapshot at creation
	Status          BookStatus    `bson:"status" json:"status"`
	RequestedBy     *utils.SixID  `bson:"requested_by,omitempty" json:"requestedBy,omitempty"`
	RequestedByName *string       `bson:"requested_by_name,omitempty" json:"requestedByName,omitempty"`
	PostedAt        time.Time     `bson:"posted_at" json:"postedAt"`
	UpdatedAt       time.Time     `bson:"updated_at" json:"updatedAt"`
}

// BookDraft carries the seller-supplied fields of a new listing.
type BookDraft struct {
	Title       string        `json:"title" validate:"required,singleline"`
	Subject     string        `json:"subject" validate:"required,singleline"`
	Semester    string        `json:"semester" validate:"required,singleline"`
	Price       *float64      `json:"price" validate:"required,gte=0"`
	Condition   BookCondition `json:"condition" validate:"required,bookcondition"`
	Description string        `json:"description"`
	Image       string        `json:"image"`
}

// BookPatch holds the descriptive fields an owner or admin may change. Nil fields are left alone.
type BookPatch struct {
	Title       *string        `json:"title,omitempty" validate:"omitempty,min=1,singleline"`
	Subject     *string        `json:"subject,omitempty" validate:"omitempty,min=1,singleline"`
	Semester    *string        `json:"semester,omitempty" validate:"omitempty,min=1,singleline"`
	Price       *float64       `json:"price,omitempty" validate:"omitempty,gte=0"`
	Condition   *BookCondition `json:"condition,omitempty" validate:"omitempty,bookcondition"`
	Description *string        `json:"description,omitempty"`
	Image       *string        `json:"image,omitempty"`
}

// IsEmpty reports whether the patch changes nothing.
func (p BookPatch) IsEmpty() bool {
	return p.Title == nil && p.Subject == nil && p.Semester == nil && p.Price == nil &&
		p.Condition == nil && p.Description == nil && p.Image == nil
}

// BookFilter selects listings. Empty fields and the "All" sentinel do not filter.
type BookFilter struct {
	Query    string
	Subject  string
	Semester string
	Status   BookStatus
}

// FilterAll is the subject/semester value that disables that dimension of a filter.
const FilterAll = "All"
