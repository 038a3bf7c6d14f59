package mysql

// Active locations joined with the owning organization's plan so scheduling
// never needs a second round trip. The LIMIT is the per-run hard cap;
// anything past it waits for the next invocation.
const listActiveLocationsSQL = `
SELECT
  l.id,
  l.organization_id,
  l.google_account_id,
  l.google_location_id,
  l.name,
  o.plan_tier
FROM locations l
JOIN organizations o ON o.id = l.organization_id
WHERE l.is_active = 1
ORDER BY l.organization_id, l.id
LIMIT ?`

// First credential-holding user by insertion order; the deterministic
// tie-break keeps repeated runs pinned to the same user.
const findCredentialHolderSQL = `
SELECT id, organization_id, google_refresh_token
FROM users
WHERE organization_id = ? AND google_refresh_token IS NOT NULL
ORDER BY id
LIMIT 1`

const clearRefreshSecretSQL = `
UPDATE users SET google_refresh_token = NULL WHERE id = ?`

// Conflict target is the globally unique external_review_id. Overwrite on
// conflict (not COALESCE): a review whose text or reply status changed
// upstream must be reflected locally, and rerunning a batch must converge
// on the same rows.
const insertReviewsPrefix = "INSERT INTO reviews\n" +
	"  (location_id, platform, external_review_id, reviewer_name, reviewer_photo_url, rating, review_text, review_date, has_response, status, sentiment)\nVALUES "

const insertReviewsOnDup = " ON DUPLICATE KEY UPDATE\n" +
	"  reviewer_name      = VALUES(reviewer_name),\n" +
	"  reviewer_photo_url = VALUES(reviewer_photo_url),\n" +
	"  rating             = VALUES(rating),\n" +
	"  review_text        = VALUES(review_text),\n" +
	"  review_date        = VALUES(review_date),\n" +
	"  has_response       = VALUES(has_response),\n" +
	"  status             = VALUES(status),\n" +
	"  sentiment          = VALUES(sentiment),\n" +
	"  updated_at         = CURRENT_TIMESTAMP\n"

const getPollStatesSQL = `
SELECT tier, last_processed_at FROM cron_poll_state`

const upsertPollStateSQL = `
INSERT INTO cron_poll_state (tier, last_processed_at)
VALUES (?, ?)
ON DUPLICATE KEY UPDATE
  last_processed_at = VALUES(last_processed_at),
  updated_at        = CURRENT_TIMESTAMP`
