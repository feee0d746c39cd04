// File: internal/services/turn/entitlement.go
package turn

import (
	"context"
	"time"

	"github.com/calyra-app/calyra/internal/domain"
	"github.com/calyra-app/calyra/internal/repository/message"
	"github.com/calyra-app/calyra/internal/services"
)

// Entitlements is the usage quota for one identity class.
type Entitlements struct {
	MaxMessagesPerDay int
}

// EntitlementResolver maps an identity class to its quota and checks
// it against the last 24 hours of usage. The check runs before any
// generation cost is incurred; if the usage query itself fails the
// turn proceeds, availability over strict enforcement.
type EntitlementResolver struct {
	messageRepo message.MessageRepository
	guest       Entitlements
	regular     Entitlements
	logger      services.Logger
}

func NewEntitlementResolver(
	messageRepo message.MessageRepository,
	guestPerDay, regularPerDay int,
	logger services.Logger,
) *EntitlementResolver {
	return &EntitlementResolver{
		messageRepo: messageRepo,
		guest:       Entitlements{MaxMessagesPerDay: guestPerDay},
		regular:     Entitlements{MaxMessagesPerDay: regularPerDay},
		logger:      logger,
	}
}

// Resolve returns the quota for an identity class. Unknown classes get
// guest limits.
func (r *EntitlementResolver) Resolve(userType string) Entitlements {
	if userType == domain.UserTypeRegular {
		return r.regular
	}
	return r.guest
}

// Check enforces the daily quota. Returns a rate_limited TurnError
// when the quota is known to be exceeded, nil otherwise.
func (r *EntitlementResolver) Check(ctx context.Context, userID uint, userType string) error {
	entitlements := r.Resolve(userType)

	since := time.Now().Add(-24 * time.Hour)
	count, err := r.messageRepo.CountUserMessagesSince(ctx, userID, since)
	if err != nil {
		// A broken quota query must not block the turn.
		r.logger.Warn("quota check failed, proceeding", "user_id", userID, "error", err)
		return nil
	}

	if count >= int64(entitlements.MaxMessagesPerDay) {
		r.logger.Info("turn refused by quota",
			"user_id", userID, "user_type", userType, "count", count)
		return NewRateLimitedError("entitlement", entitlements.MaxMessagesPerDay)
	}
	return nil
}
