package scheduler

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/galleycloud/ticket-chat-api/internal/domain/directory"
	"github.com/galleycloud/ticket-chat-api/internal/pkg/jobs"
)

// JobUnreadEmail is the deferred job that delivers unread reminders
const JobUnreadEmail = "send-unread-email"

// JobRunner is the slice of the delayed job runner the scheduler uses
type JobRunner interface {
	Define(name string, h jobs.Handler)
	Schedule(ctx context.Context, name string, runAt time.Time, payload interface{}) (uuid.UUID, error)
	Cancel(ctx context.Context, name string, match map[string]interface{}) (int64, error)
}

// EmailSender delivers the unread reminder email
type EmailSender interface {
	SendUnreadMessages(ctx context.Context, to, toName string, unreadCount int, chatURL string) error
}

// PushSender delivers push notifications to device tokens
type PushSender interface {
	SendMultiple(ctx context.Context, tokens []string, title, body string, data map[string]string) error
}

// unreadJobPayload is the correlation record carried by a scheduled
// job. Cancellation matches on recipient_user_id, rescheduling matches
// on contact_address.
type unreadJobPayload struct {
	RecipientUserID uuid.UUID `json:"recipient_user_id"`
	MessageID       uuid.UUID `json:"message_id"`
	ContactAddress  string    `json:"contact_address"`
}

// Service owns the unread-notification state machine. Per (recipient,
// message) pair: no obligation, then pending, then either notified or
// cancelled. Both end states are final.
type Service struct {
	repo        Repository
	jobs        JobRunner
	directory   directory.Repository
	email       EmailSender
	push        PushSender
	delay       time.Duration
	chatBaseURL string
}

// NewService creates the notification scheduler and registers its job
// handler. push may be nil when FCM is not configured.
func NewService(repo Repository, jobs JobRunner, dir directory.Repository, email EmailSender, push PushSender, delay time.Duration, chatBaseURL string) *Service {
	if delay <= 0 {
		delay = time.Minute
	}
	s := &Service{
		repo:        repo,
		jobs:        jobs,
		directory:   dir,
		email:       email,
		push:        push,
		delay:       delay,
		chatBaseURL: chatBaseURL,
	}
	jobs.Define(JobUnreadEmail, s.handleUnreadJob)
	return s
}

// ScheduleUnread records that a recipient has an unread message and
// arms the deferred reminder. A pending obligation for the same contact
// address is batched by incrementing its unread count. Only one job is
// ever outstanding per contact address, each new unread message cancels
// the previous job and schedules a fresh one, so the reminder fires a
// full delay after the most recent message.
func (s *Service) ScheduleUnread(ctx context.Context, recipientID, messageID uuid.UUID, contactAddress, displayName string) error {
	pref, err := s.directory.GetPreference(ctx, recipientID)
	if err != nil {
		return fmt.Errorf("failed to load notification preference: %w", err)
	}
	if pref != nil && !pref.SupportEmail {
		log.Debug().Str("user_id", recipientID.String()).Msg("Unread email disabled by preference")
		return nil
	}

	incremented, err := s.repo.IncrementByContact(ctx, contactAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchedulerUnavailable, err)
	}
	if !incremented {
		err = s.repo.Insert(ctx, &Obligation{
			RecipientUserID: recipientID,
			MessageID:       messageID,
			ContactAddress:  contactAddress,
			DisplayName:     displayName,
			UnreadCount:     1,
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSchedulerUnavailable, err)
		}
	}

	if _, err := s.jobs.Cancel(ctx, JobUnreadEmail, map[string]interface{}{
		"contact_address": contactAddress,
	}); err != nil {
		log.Warn().Err(err).Str("contact", contactAddress).Msg("Failed to cancel outstanding reminder job")
	}

	_, err = s.jobs.Schedule(ctx, JobUnreadEmail, time.Now().Add(s.delay), unreadJobPayload{
		RecipientUserID: recipientID,
		MessageID:       messageID,
		ContactAddress:  contactAddress,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchedulerUnavailable, err)
	}
	return nil
}

// CancelOnRead settles one read message against the recipient's
// pending reminder. While other messages in the batch are still
// unread the obligation is only decremented and the armed job stays,
// it will report the remaining count at fire time. Reading the last
// unread message tears down both the job and the row; both halves are
// attempted even when one fails, a failed cancellation must never
// break the read path.
func (s *Service) CancelOnRead(ctx context.Context, recipientID, messageID uuid.UUID) {
	decremented, err := s.repo.DecrementByRecipient(ctx, recipientID)
	if err != nil {
		// On a storage failure the reminder stays armed, firing late
		// beats losing it
		log.Warn().Err(err).
			Str("user_id", recipientID.String()).
			Str("message_id", messageID.String()).
			Msg("Failed to settle obligation on read")
		return
	}
	if decremented {
		return
	}

	if _, err := s.jobs.Cancel(ctx, JobUnreadEmail, map[string]interface{}{
		"recipient_user_id": recipientID,
	}); err != nil {
		log.Warn().Err(err).
			Str("user_id", recipientID.String()).
			Str("message_id", messageID.String()).
			Msg("Failed to cancel reminder job on read")
	}

	if _, err := s.repo.DeleteByRecipient(ctx, recipientID); err != nil {
		log.Warn().Err(err).
			Str("user_id", recipientID.String()).
			Str("message_id", messageID.String()).
			Msg("Failed to delete obligation on read")
	}
}

// handleUnreadJob fires the deferred reminder. It re-reads the current
// obligation for the contact address, a job that raced with
// cancellation finds nothing and no-ops. The obligation row is cleared
// even when delivery fails, there is no automatic retry of the external
// send.
func (s *Service) handleUnreadJob(ctx context.Context, payload json.RawMessage) error {
	var p unreadJobPayload
	if err := json.Unmarshal(payload, &p); err != nil {
		return fmt.Errorf("malformed unread job payload: %w", err)
	}

	o, err := s.repo.GetByContact(ctx, p.ContactAddress)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSchedulerUnavailable, err)
	}
	if o == nil {
		// Cancelled before we fired
		return nil
	}

	chatURL := fmt.Sprintf("%s/support", s.chatBaseURL)
	if err := s.email.SendUnreadMessages(ctx, o.ContactAddress, o.DisplayName, o.UnreadCount, chatURL); err != nil {
		log.Warn().Err(err).Str("contact", o.ContactAddress).Msg("Failed to send unread reminder email")
	}

	s.sendPush(ctx, o)

	if _, err := s.repo.DeleteByContact(ctx, p.ContactAddress); err != nil {
		return fmt.Errorf("%w: %v", ErrSchedulerUnavailable, err)
	}

	log.Info().
		Str("contact", o.ContactAddress).
		Int("unread_count", o.UnreadCount).
		Msg("Unread reminder delivered")
	return nil
}

func (s *Service) sendPush(ctx context.Context, o *Obligation) {
	if s.push == nil {
		return
	}

	pref, err := s.directory.GetPreference(ctx, o.RecipientUserID)
	if err != nil {
		log.Warn().Err(err).Msg("Failed to load push preference")
		return
	}
	if pref != nil && !pref.SupportPush {
		return
	}

	tokens, err := s.directory.ListDeviceTokens(ctx, o.RecipientUserID)
	if err != nil || len(tokens) == 0 {
		return
	}

	body := fmt.Sprintf("You have %d unread support messages", o.UnreadCount)
	if o.UnreadCount == 1 {
		body = "You have an unread support message"
	}
	if err := s.push.SendMultiple(ctx, tokens, "Unread support messages", body, map[string]string{
		"type": "support_unread",
	}); err != nil {
		log.Warn().Err(err).Msg("Failed to send unread push notification")
	}
}
