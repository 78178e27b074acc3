package fanzine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gofrs/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"github.com/vasiliy-maslov/petite-maison/internal/audit"
	"github.com/vasiliy-maslov/petite-maison/internal/config"
	"github.com/vasiliy-maslov/petite-maison/internal/metrics"
)

// AssetSigner turns a stored pdf reference into a URL the reader can fetch.
type AssetSigner interface {
	SignAsset(ctx context.Context, ref string) (string, error)
}

type passthroughSigner struct{}

// PassthroughSigner returns stored references unchanged.
func PassthroughSigner() AssetSigner {
	return passthroughSigner{}
}

func (passthroughSigner) SignAsset(_ context.Context, ref string) (string, error) {
	return ref, nil
}

type Pricing struct {
	Prices map[SubscriptionType]decimal.Decimal
	Months int
}

func PricingFromConfig(cfg config.PricingConfig) Pricing {
	prices := make(map[SubscriptionType]decimal.Decimal, len(cfg.SubscriptionPrices))
	for t, p := range cfg.SubscriptionPrices {
		prices[SubscriptionType(strings.ToUpper(t))] = p
	}
	return Pricing{Prices: prices, Months: cfg.SubscriptionMonths}
}

type Service interface {
	ListIssues(ctx context.Context) ([]Issue, error)
	GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error)
	ResolveAccess(ctx context.Context, userID, issueID uuid.UUID) (*Access, error)
	Library(ctx context.Context, userID uuid.UUID) (*Library, error)

	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	CreateSubscription(ctx context.Context, userID uuid.UUID, subType SubscriptionType, ip string) (*Subscription, error)
	CancelSubscription(ctx context.Context, userID, subID uuid.UUID, ip string) (*Subscription, error)
}

type service struct {
	repo    Repository
	signer  AssetSigner
	pricing Pricing
	audit   audit.Recorder
	metrics *metrics.Metrics
	now     func() time.Time
}

func NewService(repo Repository, signer AssetSigner, pricing Pricing, recorder audit.Recorder, m *metrics.Metrics) Service {
	if signer == nil {
		signer = PassthroughSigner()
	}
	return &service{
		repo:    repo,
		signer:  signer,
		pricing: pricing,
		audit:   recorder,
		metrics: m,
		now:     time.Now,
	}
}

func (s *service) today() time.Time {
	return truncateDay(s.now())
}

func (s *service) ListIssues(ctx context.Context) ([]Issue, error) {
	issues, err := s.repo.ListIssues(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list issues in repository")
		return nil, fmt.Errorf("service: failed to list issues: %w", err)
	}
	return issues, nil
}

func (s *service) GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error) {
	issue, err := s.repo.GetIssue(ctx, id)
	if err != nil {
		if errors.Is(err, ErrIssueNotFound) {
			log.Warn().Stringer("issue_id", id).Msg("service: issue not found")
			return nil, ErrIssueNotFound
		}
		log.Error().Err(err).Stringer("issue_id", id).Msg("service: failed to get issue in repository")
		return nil, fmt.Errorf("service: failed to get issue: %w", err)
	}
	return issue, nil
}

// ResolveAccess checks, in order: free preview, a current digital
// subscription, an explicit grant. The first match wins.
func (s *service) ResolveAccess(ctx context.Context, userID, issueID uuid.UUID) (*Access, error) {
	issue, err := s.GetIssue(ctx, issueID)
	if err != nil {
		return nil, err
	}

	reason, err := s.accessReason(ctx, userID, issue)
	if err != nil {
		return nil, err
	}

	pdfURL, err := s.signer.SignAsset(ctx, issue.PDFRef)
	if err != nil {
		log.Error().Err(err).Stringer("issue_id", issueID).Msg("service: failed to sign issue asset")
		return nil, fmt.Errorf("service: failed to sign issue asset: %w", err)
	}

	log.Debug().
		Stringer("user_id", userID).
		Stringer("issue_id", issueID).
		Str("reason", string(reason)).
		Msg("service: issue access granted")

	return &Access{IssueID: issue.ID, PDFURL: pdfURL, Reason: reason}, nil
}

func (s *service) accessReason(ctx context.Context, userID uuid.UUID, issue *Issue) (AccessReason, error) {
	if issue.IsFreePreview {
		return ReasonFreePreview, nil
	}

	subscribed, err := s.repo.HasDigitalSubscription(ctx, userID, s.today())
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to check subscription in repository")
		return "", fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if subscribed {
		return ReasonSubscription, nil
	}

	granted, err := s.repo.HasGrant(ctx, userID, issue.ID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to check access grant in repository")
		return "", fmt.Errorf("service: failed to resolve access: %w", err)
	}
	if granted {
		return ReasonPurchase, nil
	}

	log.Warn().Stringer("user_id", userID).Stringer("issue_id", issue.ID).Msg("service: issue access denied")
	return "", ErrNoAccess
}

func (s *service) Library(ctx context.Context, userID uuid.UUID) (*Library, error) {
	owned, err := s.repo.ListOwned(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to list owned issues in repository")
		return nil, fmt.Errorf("service: failed to load library: %w", err)
	}
	previews, err := s.repo.ListFreePreviews(ctx)
	if err != nil {
		log.Error().Err(err).Msg("service: failed to list free previews in repository")
		return nil, fmt.Errorf("service: failed to load library: %w", err)
	}
	return &Library{Owned: owned, FreePreviews: previews}, nil
}

func (s *service) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	subs, err := s.repo.ListSubscriptions(ctx, userID)
	if err != nil {
		log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to list subscriptions in repository")
		return nil, fmt.Errorf("service: failed to list subscriptions: %w", err)
	}
	return subs, nil
}

func (s *service) CreateSubscription(ctx context.Context, userID uuid.UUID, subType SubscriptionType, ip string) (*Subscription, error) {
	subType = SubscriptionType(strings.ToUpper(strings.TrimSpace(string(subType))))
	if !subType.Valid() {
		return nil, ErrInvalidSubscriptionType
	}
	price, ok := s.pricing.Prices[subType]
	if !ok {
		return nil, fmt.Errorf("service: no price configured for %s", subType)
	}

	start := s.today()
	sub := &Subscription{
		UserID:    userID,
		Type:      subType,
		Status:    StatusActive,
		StartDate: start,
		EndDate:   start.AddDate(0, s.pricing.Months, 0),
		AutoRenew: true,
		PricePaid: price,
	}

	if err := s.repo.CreateSubscription(ctx, sub); err != nil {
		switch {
		case errors.Is(err, ErrSubscriptionExists):
			log.Warn().Stringer("user_id", userID).Str("type", string(subType)).Msg("service: active subscription already exists")
			return nil, ErrSubscriptionExists
		case errors.Is(err, ErrUserNotFound):
			log.Warn().Stringer("user_id", userID).Msg("service: subscription for unknown user")
			return nil, ErrUserNotFound
		default:
			log.Error().Err(err).Stringer("user_id", userID).Msg("service: failed to create subscription in repository")
			return nil, fmt.Errorf("service: failed to create subscription: %w", err)
		}
	}

	s.metrics.SubscriptionCreated(string(sub.Type))
	s.audit.Record(ctx, audit.Entry{
		UserID:     userID,
		Action:     audit.ActionSubscriptionCreated,
		EntityType: "subscription",
		EntityID:   sub.ID.String(),
		Details: map[string]any{
			"type":       string(sub.Type),
			"price_paid": sub.PricePaid.StringFixed(2),
			"end_date":   sub.EndDate.Format(time.DateOnly),
		},
		IPAddress: ip,
	})

	log.Info().
		Stringer("subscription_id", sub.ID).
		Stringer("user_id", userID).
		Str("type", string(sub.Type)).
		Msg("Service: Subscription created successfully")

	return sub, nil
}

func (s *service) CancelSubscription(ctx context.Context, userID, subID uuid.UUID, ip string) (*Subscription, error) {
	sub, err := s.repo.CancelSubscription(ctx, userID, subID)
	if err != nil {
		if errors.Is(err, ErrSubscriptionNotFound) {
			log.Warn().Stringer("subscription_id", subID).Stringer("user_id", userID).Msg("service: no active subscription to cancel")
			return nil, ErrSubscriptionNotFound
		}
		log.Error().Err(err).Stringer("subscription_id", subID).Msg("service: failed to cancel subscription in repository")
		return nil, fmt.Errorf("service: failed to cancel subscription: %w", err)
	}

	s.audit.Record(ctx, audit.Entry{
		UserID:     userID,
		Action:     audit.ActionSubscriptionCancelled,
		EntityType: "subscription",
		EntityID:   sub.ID.String(),
		Details:    map[string]any{"type": string(sub.Type)},
		IPAddress:  ip,
	})

	log.Info().Stringer("subscription_id", sub.ID).Stringer("user_id", userID).Msg("Service: Subscription cancelled")
	return sub, nil
}
