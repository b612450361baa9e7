package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/dverbin/audiochat/internal/server/repositories/users"
)

// Subscription is the read-only tier descriptor for a user, derived from the
// stripe fields the external checkout flow writes to the users table.
type Subscription struct {
	Plan         Plan
	IsSubscribed bool
}

// Service resolves the subscription plan for a user.
type Service struct {
	users users.Repository
}

func NewService(userRepo users.Repository) *Service {
	return &Service{users: userRepo}
}

// timeNow is a seam for tests.
var timeNow = time.Now

// SubscriptionFor returns the user's current subscription. A user is
// subscribed when a subscription id is present and the paid period has not
// ended; everyone else is on the Free plan.
func (s *Service) SubscriptionFor(ctx context.Context, userID string) (Subscription, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return Subscription{}, fmt.Errorf("error getting user: %w", err)
	}

	subscribed := user.StripeSubscriptionID.Valid &&
		user.StripeCurrentPeriodEnd.Valid &&
		user.StripeCurrentPeriodEnd.Time.After(timeNow())

	name := "Free"
	if subscribed {
		name = "Pro"
	}

	plan, ok := PlanByName(name)
	if !ok {
		return Subscription{}, fmt.Errorf("unknown plan: %s", name)
	}

	return Subscription{Plan: plan, IsSubscribed: subscribed}, nil
}
