package fanzine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gofrs/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

var (
	ErrIssueNotFound           = errors.New("issue not found")
	ErrNoAccess                = errors.New("no access to this issue, subscribe or purchase it")
	ErrSubscriptionExists      = errors.New("active subscription already exists")
	ErrSubscriptionNotFound    = errors.New("active subscription not found")
	ErrInvalidSubscriptionType = errors.New("type must be PAPER, DIGITAL or BOTH")
	ErrUserNotFound            = errors.New("user not found")
)

type Repository interface {
	ListIssues(ctx context.Context) ([]Issue, error)
	GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error)
	// HasDigitalSubscription reports an ACTIVE DIGITAL or BOTH subscription
	// whose window contains day.
	HasDigitalSubscription(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error)
	HasGrant(ctx context.Context, userID, issueID uuid.UUID) (bool, error)
	ListOwned(ctx context.Context, userID uuid.UUID) ([]LibraryEntry, error)
	ListFreePreviews(ctx context.Context) ([]Issue, error)

	ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]Subscription, error)
	// CreateSubscription inserts sub unless a current subscription of the same
	// type exists, and grants every issue for digital types.
	CreateSubscription(ctx context.Context, sub *Subscription) error
	CancelSubscription(ctx context.Context, userID, subID uuid.UUID) (*Subscription, error)
}

type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type postgresRepository struct {
	db DB
}

func NewRepository(db DB) Repository {
	return &postgresRepository{db: db}
}

const selectIssue = `
	SELECT id, issue_number, title, description, cover_url, page_count,
	       published_at, is_free_preview, COALESCE(pdf_url, '')
	FROM fanzine_issues
`

func scanIssue(row pgx.Row) (Issue, error) {
	var i Issue
	err := row.Scan(
		&i.ID,
		&i.IssueNumber,
		&i.Title,
		&i.Description,
		&i.CoverURL,
		&i.PageCount,
		&i.PublishedAt,
		&i.IsFreePreview,
		&i.PDFRef,
	)
	return i, err
}

func (r *postgresRepository) queryIssues(ctx context.Context, query string, args ...any) ([]Issue, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query issues: %w", err)
	}
	defer rows.Close()

	issues := make([]Issue, 0)
	for rows.Next() {
		i, err := scanIssue(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan issue: %w", err)
		}
		issues = append(issues, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating issues: %w", err)
	}
	return issues, nil
}

func (r *postgresRepository) ListIssues(ctx context.Context) ([]Issue, error) {
	return r.queryIssues(ctx, selectIssue+` ORDER BY issue_number DESC`)
}

func (r *postgresRepository) ListFreePreviews(ctx context.Context) ([]Issue, error) {
	return r.queryIssues(ctx, selectIssue+` WHERE is_free_preview = TRUE ORDER BY issue_number DESC`)
}

func (r *postgresRepository) GetIssue(ctx context.Context, id uuid.UUID) (*Issue, error) {
	i, err := scanIssue(r.db.QueryRow(ctx, selectIssue+` WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrIssueNotFound
		}
		return nil, fmt.Errorf("repository: failed to select issue %s: %w", id, err)
	}
	return &i, nil
}

func (r *postgresRepository) HasDigitalSubscription(ctx context.Context, userID uuid.UUID, day time.Time) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND status = 'ACTIVE'
			  AND type IN ('DIGITAL', 'BOTH')
			  AND start_date <= $2 AND end_date >= $2
		)
	`, userID, day).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check subscription for user %s: %w", userID, err)
	}
	return exists, nil
}

func (r *postgresRepository) HasGrant(ctx context.Context, userID, issueID uuid.UUID) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM user_fanzine_access WHERE user_id = $1 AND issue_id = $2)
	`, userID, issueID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("repository: failed to check access grant for user %s: %w", userID, err)
	}
	return exists, nil
}

func (r *postgresRepository) ListOwned(ctx context.Context, userID uuid.UUID) ([]LibraryEntry, error) {
	rows, err := r.db.Query(ctx, `
		SELECT fi.id, fi.issue_number, fi.title, fi.description, fi.cover_url, fi.page_count,
		       fi.published_at, fi.is_free_preview, COALESCE(fi.pdf_url, ''),
		       ufa.source, ufa.granted_at
		FROM user_fanzine_access ufa
		JOIN fanzine_issues fi ON fi.id = ufa.issue_id
		WHERE ufa.user_id = $1
		ORDER BY fi.issue_number DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query library for user %s: %w", userID, err)
	}
	defer rows.Close()

	entries := make([]LibraryEntry, 0)
	for rows.Next() {
		var e LibraryEntry
		err := rows.Scan(
			&e.ID,
			&e.IssueNumber,
			&e.Title,
			&e.Description,
			&e.CoverURL,
			&e.PageCount,
			&e.PublishedAt,
			&e.IsFreePreview,
			&e.PDFRef,
			&e.Source,
			&e.GrantedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan library entry for user %s: %w", userID, err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating library for user %s: %w", userID, err)
	}
	return entries, nil
}

const selectSubscription = `
	SELECT id, user_id, type, status, start_date, end_date, auto_renew, price_paid, created_at
	FROM subscriptions
`

func scanSubscription(row pgx.Row) (Subscription, error) {
	var s Subscription
	err := row.Scan(
		&s.ID,
		&s.UserID,
		&s.Type,
		&s.Status,
		&s.StartDate,
		&s.EndDate,
		&s.AutoRenew,
		&s.PricePaid,
		&s.CreatedAt,
	)
	return s, err
}

func (r *postgresRepository) ListSubscriptions(ctx context.Context, userID uuid.UUID) ([]Subscription, error) {
	rows, err := r.db.Query(ctx, selectSubscription+` WHERE user_id = $1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("repository: failed to query subscriptions for user %s: %w", userID, err)
	}
	defer rows.Close()

	subs := make([]Subscription, 0)
	for rows.Next() {
		s, err := scanSubscription(rows)
		if err != nil {
			return nil, fmt.Errorf("repository: failed to scan subscription for user %s: %w", userID, err)
		}
		subs = append(subs, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("repository: error iterating subscriptions for user %s: %w", userID, err)
	}
	return subs, nil
}

func (r *postgresRepository) CreateSubscription(ctx context.Context, sub *Subscription) (err error) {
	if sub.ID == uuid.Nil {
		sub.ID, err = uuid.NewV4()
		if err != nil {
			return fmt.Errorf("repository: failed to generate subscription ID: %w", err)
		}
	}

	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("repository: failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				log.Error().Err(rbErr).Stringer("user_id", sub.UserID).Msg("repository: failed to rollback subscription creation")
			}
		}
	}()

	// Блокировка строки пользователя сериализует создание подписок одного
	// пользователя, проверка ниже не гоняется с параллельным запросом.
	var locked uuid.UUID
	if err = tx.QueryRow(ctx, `SELECT id FROM users WHERE id = $1 FOR UPDATE`, sub.UserID).Scan(&locked); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = ErrUserNotFound
			return err
		}
		return fmt.Errorf("repository: failed to lock user %s: %w", sub.UserID, err)
	}

	// Любая ACTIVE подписка того же типа блокирует новую, даже с истёкшим сроком.
	var exists bool
	err = tx.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM subscriptions
			WHERE user_id = $1 AND type = $2 AND status = 'ACTIVE'
		)
	`, sub.UserID, string(sub.Type)).Scan(&exists)
	if err != nil {
		return fmt.Errorf("repository: failed to check existing subscription: %w", err)
	}
	if exists {
		err = ErrSubscriptionExists
		return err
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO subscriptions (id, user_id, type, status, start_date, end_date, auto_renew, price_paid)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING created_at
	`,
		sub.ID, sub.UserID, string(sub.Type), string(sub.Status),
		sub.StartDate, sub.EndDate, sub.AutoRenew, sub.PricePaid,
	).Scan(&sub.CreatedAt)
	if err != nil {
		return fmt.Errorf("repository: failed to insert subscription: %w", err)
	}

	if sub.Type.GrantsDigital() {
		_, err = tx.Exec(ctx, `
			INSERT INTO user_fanzine_access (user_id, issue_id, source)
			SELECT $1, id, 'SUBSCRIPTION' FROM fanzine_issues
			ON CONFLICT (user_id, issue_id) DO NOTHING
		`, sub.UserID)
		if err != nil {
			return fmt.Errorf("repository: failed to grant issues for subscription %s: %w", sub.ID, err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("repository: failed to commit subscription: %w", err)
	}
	return nil
}

func (r *postgresRepository) CancelSubscription(ctx context.Context, userID, subID uuid.UUID) (*Subscription, error) {
	s, err := scanSubscription(r.db.QueryRow(ctx, `
		UPDATE subscriptions
		SET status = 'CANCELLED', auto_renew = FALSE, updated_at = NOW()
		WHERE id = $1 AND user_id = $2 AND status = 'ACTIVE'
		RETURNING id, user_id, type, status, start_date, end_date, auto_renew, price_paid, created_at
	`, subID, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubscriptionNotFound
		}
		return nil, fmt.Errorf("repository: failed to cancel subscription %s: %w", subID, err)
	}
	return &s, nil
}
