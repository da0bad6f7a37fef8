package scheduler

import (
	"context"
	"log"
	"time"

	authdomain "mailsense-backend/internal/auth/domain"
	"mailsense-backend/internal/subscription/usecase"
)

// SubscriptionRenewer renews one user's subscription in place.
type SubscriptionRenewer interface {
	Renew(ctx context.Context, user *authdomain.User) (*usecase.Status, error)
}

// ExpiringUserSource lists users whose subscription expires before a
// deadline.
type ExpiringUserSource interface {
	FindWithExpiringSubscriptions(deadline time.Time) ([]authdomain.User, error)
}

// RenewalScheduler sweeps for subscriptions nearing expiry and renews
// them before Graph lets them lapse.
type RenewalScheduler struct {
	users     ExpiringUserSource
	renewer   SubscriptionRenewer
	interval  time.Duration
	horizon   time.Duration
	onRenewal func(result string)
	stopChan  chan struct{}
}

// NewRenewalScheduler creates a new scheduler
func NewRenewalScheduler(
	users ExpiringUserSource,
	renewer SubscriptionRenewer,
	interval time.Duration,
	horizon time.Duration,
) *RenewalScheduler {
	return &RenewalScheduler{
		users:    users,
		renewer:  renewer,
		interval: interval,
		horizon:  horizon,
		stopChan: make(chan struct{}),
	}
}

// OnRenewal registers a hook receiving "ok" or "error" once per renewal
// attempt.
func (s *RenewalScheduler) OnRenewal(hook func(result string)) {
	s.onRenewal = hook
}

// Start begins the scheduler loop
func (s *RenewalScheduler) Start() {
	log.Printf("[Renewal] Starting subscription renewal scheduler (interval: %s, horizon: %s)", s.interval, s.horizon)

	go func() {
		// Run immediately on start
		s.renewExpiring()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.renewExpiring()
			case <-s.stopChan:
				log.Println("[Renewal] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *RenewalScheduler) Stop() {
	close(s.stopChan)
}

func (s *RenewalScheduler) renewExpiring() {
	deadline := time.Now().Add(s.horizon)
	users, err := s.users.FindWithExpiringSubscriptions(deadline)
	if err != nil {
		log.Printf("[Renewal] Could not query expiring subscriptions: %v", err)
		return
	}
	if len(users) == 0 {
		return
	}

	log.Printf("[Renewal] %d subscriptions expire before %s", len(users), deadline.Format(time.RFC3339))

	renewed, failed := 0, 0
	for i := range users {
		user := &users[i]
		if _, err := s.renewer.Renew(context.Background(), user); err != nil {
			// One broken account must not strand the users behind it.
			log.Printf("[Renewal] Could not renew subscription %s for %s: %v", user.SubscriptionID, user.Email, err)
			failed++
			s.record("error")
			continue
		}
		renewed++
		s.record("ok")
	}

	log.Printf("[Renewal] Sweep finished: %d renewed, %d failed", renewed, failed)
}

func (s *RenewalScheduler) record(result string) {
	if s.onRenewal != nil {
		s.onRenewal(result)
	}
}
