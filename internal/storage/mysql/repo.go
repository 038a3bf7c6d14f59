package mysql

import (
	"context"
	"database/sql"
	"strings"
	"time"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

func valStr(p *string) any {
	if p == nil {
		return nil
	}
	return *p
}
func valF64(p *float64) any {
	if p == nil {
		return nil
	}
	return *p
}
func valTime(p *time.Time) any {
	if p == nil {
		return nil
	}
	return p.UTC()
}

type Repo struct{ db *sql.DB }

func New(db *sql.DB) *Repo { return &Repo{db: db} }

func (r *Repo) ListActiveLocations(ctx context.Context, limit int) ([]domain.Location, error) {
	rows, err := r.db.QueryContext(ctx, listActiveLocationsSQL, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Location
	for rows.Next() {
		var l domain.Location
		var plan sql.NullString
		if err := rows.Scan(&l.ID, &l.OrganizationID, &l.GoogleAccountID, &l.GoogleLocationID, &l.Name, &plan); err != nil {
			return nil, err
		}
		l.PlanTier = domain.NormalizeTier(plan.String)
		out = append(out, l)
	}
	return out, rows.Err()
}

func (r *Repo) FindCredentialHolder(ctx context.Context, orgID int64) (*domain.CredentialHolder, error) {
	row := r.db.QueryRowContext(ctx, findCredentialHolderSQL, orgID)
	var h domain.CredentialHolder
	if err := row.Scan(&h.UserID, &h.OrganizationID, &h.RefreshSecret); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	return &h, nil
}

func (r *Repo) ClearRefreshSecret(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, clearRefreshSecretSQL, userID)
	return err
}

func (r *Repo) UpsertReviews(ctx context.Context, rs []domain.Review) error {
	if len(rs) == 0 {
		return nil
	}
	values := make([]string, 0, len(rs))
	args := make([]any, 0, len(rs)*11)
	for _, rv := range rs {
		values = append(values, "(?,?,?,?,?,?,?,?,?,?,?)")
		args = append(args,
			rv.LocationID,
			rv.Platform,
			rv.ExternalID,
			valStr(rv.ReviewerName),
			valStr(rv.ReviewerPhotoURL),
			valF64(rv.Rating),
			valStr(rv.Text),
			valTime(rv.ReviewDate),
			rv.HasResponse,
			rv.Status,
			valStr(rv.Sentiment),
		)
	}
	sqlStr := insertReviewsPrefix + strings.Join(values, ",") + insertReviewsOnDup
	_, err := r.db.ExecContext(ctx, sqlStr, args...)
	return err
}

func (r *Repo) GetPollStates(ctx context.Context) (map[domain.Tier]time.Time, error) {
	rows, err := r.db.QueryContext(ctx, getPollStatesSQL)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[domain.Tier]time.Time, len(domain.Tiers))
	for rows.Next() {
		var tier string
		var at time.Time
		if err := rows.Scan(&tier, &at); err != nil {
			return nil, err
		}
		out[domain.NormalizeTier(tier)] = at
	}
	return out, rows.Err()
}

func (r *Repo) UpsertPollState(ctx context.Context, tier domain.Tier, at time.Time) error {
	_, err := r.db.ExecContext(ctx, upsertPollStateSQL, string(tier), at.UTC())
	return err
}
