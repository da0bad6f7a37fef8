package scheduler

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"mailsense-backend/internal/action/repository"
	"mailsense-backend/pkg/notifier"
)

// ActionReminderScheduler notifies users about pending action items whose
// due date is coming up.
type ActionReminderScheduler struct {
	actionRepo repository.ActionRepository
	notifier   notifier.Notifier
	interval   time.Duration
	horizon    time.Duration
	stopChan   chan struct{}
}

// NewActionReminderScheduler creates a new scheduler
func NewActionReminderScheduler(
	actionRepo repository.ActionRepository,
	n notifier.Notifier,
	interval time.Duration,
	horizon time.Duration,
) *ActionReminderScheduler {
	return &ActionReminderScheduler{
		actionRepo: actionRepo,
		notifier:   n,
		interval:   interval,
		horizon:    horizon,
		stopChan:   make(chan struct{}),
	}
}

// Start begins the scheduler loop
func (s *ActionReminderScheduler) Start() {
	if s.notifier == nil {
		log.Println("[ActionScheduler] No notifier available, scheduler disabled")
		return
	}

	log.Printf("[ActionScheduler] Starting action reminder scheduler (interval: %s, horizon: %s)", s.interval, s.horizon)

	go func() {
		// Run immediately on start
		s.checkAndSendReminders()

		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				s.checkAndSendReminders()
			case <-s.stopChan:
				log.Println("[ActionScheduler] Scheduler stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the scheduler
func (s *ActionReminderScheduler) Stop() {
	close(s.stopChan)
}

// checkAndSendReminders finds due action items and sends one reminder each
func (s *ActionReminderScheduler) checkAndSendReminders() {
	deadline := time.Now().Add(s.horizon)

	items, err := s.actionRepo.FindDueReminders(deadline)
	if err != nil {
		log.Printf("[ActionScheduler] Error finding due action items: %v", err)
		return
	}

	if len(items) == 0 {
		return
	}

	log.Printf("[ActionScheduler] Found %d action items due for a reminder", len(items))

	for _, item := range items {
		var parts []string
		if item.Description != "" {
			parts = append(parts, item.Description)
		}
		if item.DueDate != nil {
			parts = append(parts, "Due: "+item.DueDate.Format("02 Jan 2006 15:04"))
		}
		if item.RecommendationReason != "" {
			parts = append(parts, item.RecommendationReason)
		}

		msg := notifier.Message{
			UserID: item.UserID,
			Title:  fmt.Sprintf("Reminder (%s): %s", item.Priority, item.Title),
			Body:   strings.Join(parts, "\n"),
		}

		if err := s.notifier.Send(context.Background(), msg); err != nil {
			log.Printf("[ActionScheduler] Error sending reminder for action %s: %v", item.ID, err)
		}

		// Mark the reminder as sent regardless of delivery outcome so a
		// flaky channel does not spam the same item every sweep.
		if err := s.actionRepo.MarkReminderSent(item.ID); err != nil {
			log.Printf("[ActionScheduler] Error marking reminder as sent for action %s: %v", item.ID, err)
		}
	}
}
