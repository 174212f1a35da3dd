// Package risk assigns a processing tier to a withdrawal request and computes
// the platform fee. Everything here is pure: no I/O, no clock reads.
package risk

import (
	"fmt"
	"strings"
	"time"

	"github.com/Fuonder/royaltypay.git/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	DelayedThreshold = decimal.NewFromInt(5000)
	ReviewThreshold  = decimal.NewFromInt(50000)
)

const DelayWindow = 12 * time.Hour

type Fingerprint struct {
	IP        string
	UserAgent string
}

func (f Fingerprint) Matches(other Fingerprint) bool {
	return f.IP == other.IP && f.UserAgent == other.UserAgent
}

type Input struct {
	Amount      decimal.Decimal
	Fingerprint Fingerprint
	// Prior is the fingerprint of the requester's most recent processing
	// withdrawal, nil when there is none.
	Prior *Fingerprint
	Now   time.Time
}

type Assessment struct {
	Tier         models.Tier
	Status       models.WithdrawalStatus
	ScheduledFor *time.Time
	Anomalous    bool
}

func Classify(in Input) Assessment {
	if in.Prior != nil && !in.Prior.Matches(in.Fingerprint) {
		return Assessment{Tier: models.TierReview, Status: models.StatusPendingReview, Anomalous: true}
	}
	switch {
	case in.Amount.GreaterThanOrEqual(ReviewThreshold):
		return Assessment{Tier: models.TierReview, Status: models.StatusPendingReview}
	case in.Amount.GreaterThanOrEqual(DelayedThreshold):
		at := in.Now.Add(DelayWindow)
		return Assessment{Tier: models.TierDelayed, Status: models.StatusPendingDelay, ScheduledFor: &at}
	default:
		return Assessment{Tier: models.TierInstant, Status: models.StatusPending}
	}
}

// Reference builds the provider idempotency reference WD-<unix millis>-<user prefix>.
func Reference(now time.Time, userID uuid.UUID) string {
	prefix := strings.ReplaceAll(userID.String(), "-", "")[:8]
	return fmt.Sprintf("WD-%d-%s", now.UnixMilli(), prefix)
}
