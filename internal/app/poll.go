package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/Tandemrecruit/ReplyStack-sub001/internal/adapters/observability"
	"github.com/Tandemrecruit/ReplyStack-sub001/internal/domain"
)

// PollService runs one review-poll invocation: filter active locations to
// the tiers due this cycle, group by owning organization so one token
// exchange serves all of that organization's locations, fetch + normalize +
// upsert per location, then advance the watermark for every tier touched.
//
// Everything below the active-location read is best-effort: per-customer and
// per-location failures land in the run report and the loop moves on. The
// run as a whole fails only when the active-location list itself cannot be
// read.
type PollService struct {
	repo   domain.PollRepository
	source domain.ReviewSource
	vault  domain.CredentialVault

	maxLocations int
	pageSize     int
	now          func() time.Time
}

func NewPollService(repo domain.PollRepository, source domain.ReviewSource, vault domain.CredentialVault, maxLocations, pageSize int) *PollService {
	if maxLocations <= 0 {
		maxLocations = 50
	}
	if pageSize <= 0 {
		pageSize = 50
	}
	return &PollService{
		repo:         repo,
		source:       source,
		vault:        vault,
		maxLocations: maxLocations,
		pageSize:     pageSize,
		now:          time.Now,
	}
}

// Run executes one poll cycle. The returned error is non-nil only for
// infrastructure-level failure; the report is valid (possibly partial)
// either way.
func (s *PollService) Run(ctx context.Context) (RunReport, error) {
	now := s.now().UTC()
	agg := newRunAggregator(now)

	states, err := s.repo.GetPollStates(ctx)
	if err != nil {
		observability.ObservePollRun("failed", 0, 0)
		return agg.report(false, ""), fmt.Errorf("read poll state: %w", err)
	}

	// Hard cap bounds worst-case run duration; locations beyond it are
	// picked up by subsequent invocations.
	locs, err := s.repo.ListActiveLocations(ctx, s.maxLocations)
	if err != nil {
		observability.ObservePollRun("failed", 0, 0)
		return agg.report(false, ""), fmt.Errorf("list active locations: %w", err)
	}
	if len(locs) == 0 {
		observability.ObservePollRun("ok", 0, 0)
		return agg.report(true, "no active locations"), nil
	}

	due := make([]domain.Location, 0, len(locs))
	for _, l := range locs {
		var last *time.Time
		if t, ok := states[l.PlanTier]; ok {
			t := t
			last = &t
		}
		if ShouldProcess(l.PlanTier, now, last) {
			due = append(due, l)
		}
	}
	if len(due) == 0 {
		observability.ObservePollRun("ok", 0, 0)
		return agg.report(true, "no locations due this cycle"), nil
	}

	touched := make(map[domain.Tier]bool)
	for _, g := range groupByOrganization(due) {
		s.pollOrganization(ctx, g, agg, touched)
	}

	for _, tier := range domain.Tiers {
		if !touched[tier] {
			continue
		}
		if err := s.repo.UpsertPollState(ctx, tier, now); err != nil {
			agg.recordError("tier %s: watermark update failed: %v", tier, err)
			observability.ObservePollError("persistence")
		}
	}

	rep := agg.report(true, "")
	outcome := "ok"
	if len(rep.Errors) > 0 {
		outcome = "partial"
	}
	observability.ObservePollRun(outcome, rep.LocationsProcessed, rep.ReviewsProcessed)
	log.Info().
		Int("locations", rep.LocationsProcessed).
		Int("reviews", rep.ReviewsProcessed).
		Int("skipped", agg.skipped).
		Int("errors", len(rep.Errors)).
		Msg("poll run finished")
	return rep, nil
}

type orgGroup struct {
	orgID     int64
	locations []domain.Location
}

// groupByOrganization buckets due locations by owning organization,
// preserving first-seen organization order and the query order within each
// organization. Grouping happens before any network call so a single token
// exchange covers the whole bucket.
func groupByOrganization(locs []domain.Location) []orgGroup {
	idx := make(map[int64]int, len(locs))
	groups := make([]orgGroup, 0, len(locs))
	for _, l := range locs {
		i, ok := idx[l.OrganizationID]
		if !ok {
			i = len(groups)
			idx[l.OrganizationID] = i
			groups = append(groups, orgGroup{orgID: l.OrganizationID})
		}
		groups[i].locations = append(groups[i].locations, l)
	}
	return groups
}

func (s *PollService) pollOrganization(ctx context.Context, g orgGroup, agg *runAggregator, touched map[domain.Tier]bool) {
	holder, err := s.repo.FindCredentialHolder(ctx, g.orgID)
	if err != nil {
		agg.recordError("org %d: credential lookup failed: %v", g.orgID, err)
		observability.ObservePollError("persistence")
		return
	}
	if holder == nil {
		// Never connected: not an error, just nothing we can poll.
		log.Debug().Int64("org", g.orgID).Msg("no refresh credential; skipping")
		return
	}

	token, err := s.vault.AccessToken(ctx, g.orgID, holder.RefreshSecret)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrCiphertextCorrupt):
			s.clearSecret(ctx, holder, agg)
			agg.recordError("org %d: stored credential unreadable; cleared", g.orgID)
			observability.ObservePollError("decrypt")
		case errors.Is(err, domain.ErrCredentialRevoked):
			s.clearSecret(ctx, holder, agg)
			agg.recordError("org %d: refresh credential revoked; cleared", g.orgID)
			observability.ObservePollError("revoked")
		default:
			// Network / rate limit / 5xx: keep the secret, try next run.
			agg.recordError("org %d: token exchange failed: %v", g.orgID, err)
			observability.ObservePollError("source")
		}
		return
	}

	for _, loc := range g.locations {
		// First page only per run; cadence catches the tail up.
		page, err := s.source.ListReviews(ctx, token, loc.GoogleAccountID, loc.GoogleLocationID, s.pageSize, "")
		if err != nil {
			if domain.IsAuthRevoked(err) {
				// Access died mid-run. Clear the secret and stop burning
				// calls on this organization's remaining locations.
				s.clearSecret(ctx, holder, agg)
				agg.recordError("org %d: access revoked mid-run; cleared stored credential", g.orgID)
				observability.ObservePollError("revoked")
				return
			}
			agg.recordError("location %s: fetch reviews failed: %v", loc.GoogleLocationID, err)
			observability.ObservePollError("source")
			continue
		}

		rows := make([]domain.Review, 0, len(page.Reviews))
		skipped := 0
		for _, raw := range page.Reviews {
			r, ok := NormalizeReview(raw, loc)
			if !ok {
				skipped++
				continue
			}
			rows = append(rows, r)
		}
		agg.recordSkippedRecords(skipped)

		if len(rows) > 0 {
			if err := s.repo.UpsertReviews(ctx, rows); err != nil {
				agg.recordError("location %s: persist reviews failed: %v", loc.GoogleLocationID, err)
				observability.ObservePollError("persistence")
				continue
			}
		}
		agg.locationDone(len(rows))
		touched[loc.PlanTier] = true
	}
}

func (s *PollService) clearSecret(ctx context.Context, holder *domain.CredentialHolder, agg *runAggregator) {
	if err := s.repo.ClearRefreshSecret(ctx, holder.UserID); err != nil {
		agg.recordError("user %d: clearing refresh credential failed: %v", holder.UserID, err)
		observability.ObservePollError("persistence")
	}
}
