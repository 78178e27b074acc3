package fanzine

import (
	"time"

	"github.com/gofrs/uuid"
	"github.com/shopspring/decimal"
)

type SubscriptionType string

const (
	TypePaper   SubscriptionType = "PAPER"
	TypeDigital SubscriptionType = "DIGITAL"
	TypeBoth    SubscriptionType = "BOTH"
)

func (t SubscriptionType) Valid() bool {
	switch t {
	case TypePaper, TypeDigital, TypeBoth:
		return true
	}
	return false
}

// GrantsDigital reports whether the type includes reading issues online.
func (t SubscriptionType) GrantsDigital() bool {
	return t == TypeDigital || t == TypeBoth
}

type SubscriptionStatus string

const (
	StatusActive    SubscriptionStatus = "ACTIVE"
	StatusCancelled SubscriptionStatus = "CANCELLED"
)

type AccessSource string

const (
	SourceSubscription AccessSource = "SUBSCRIPTION"
	SourcePurchase     AccessSource = "PURCHASE"
)

type AccessReason string

const (
	ReasonFreePreview  AccessReason = "free_preview"
	ReasonSubscription AccessReason = "subscription"
	ReasonPurchase     AccessReason = "purchase"
)

// Issue представляет выпуск фанзина. PDFRef never leaves the API except through Access.
type Issue struct {
	ID            uuid.UUID  `json:"id"`
	IssueNumber   int        `json:"issue_number"`
	Title         string     `json:"title"`
	Description   *string    `json:"description"`
	CoverURL      *string    `json:"cover_url"`
	PageCount     *int       `json:"page_count"`
	PublishedAt   *time.Time `json:"published_at"`
	IsFreePreview bool       `json:"is_free_preview"`
	PDFRef        string     `json:"-"`
}

// Access is a granted read: the asset reference and the channel that allowed it.
type Access struct {
	IssueID uuid.UUID    `json:"issue_id"`
	PDFURL  string       `json:"pdf_url"`
	Reason  AccessReason `json:"access"`
}

type LibraryEntry struct {
	Issue
	Source    AccessSource `json:"source"`
	GrantedAt time.Time    `json:"granted_at"`
}

type Library struct {
	Owned        []LibraryEntry `json:"owned"`
	FreePreviews []Issue        `json:"free_previews"`
}

type Subscription struct {
	ID        uuid.UUID          `json:"id"`
	UserID    uuid.UUID          `json:"user_id"`
	Type      SubscriptionType   `json:"type"`
	Status    SubscriptionStatus `json:"status"`
	StartDate time.Time          `json:"start_date"`
	EndDate   time.Time          `json:"end_date"`
	AutoRenew bool               `json:"auto_renew"`
	PricePaid decimal.Decimal    `json:"price_paid"`
	CreatedAt time.Time          `json:"created_at"`
}

// CoversDay reports whether day falls inside [StartDate, EndDate].
func (s Subscription) CoversDay(day time.Time) bool {
	d := truncateDay(day)
	return !d.Before(truncateDay(s.StartDate)) && !d.After(truncateDay(s.EndDate))
}

// IsCurrent requires ACTIVE status and an in-window date. Status stays
// ACTIVE after end_date.
func (s Subscription) IsCurrent(day time.Time) bool {
	return s.Status == StatusActive && s.CoversDay(day)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
