package notification

import (
	"context"

	apperrors "welfare-workers/internal/common/errors"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/common/metrics"
	"welfare-workers/internal/models"
)

// Deliverer pushes a stored notification to channels outside the portal.
// Delivery is best effort and never fails the stored notification.
type Deliverer interface {
	Deliver(ctx context.Context, userID string, n *models.Notification)
}

// Contact is where a user can be reached.
type Contact struct {
	Email string
	Phone string
}

// ContactResolver looks up a user's contact details.
type ContactResolver interface {
	Contact(ctx context.Context, userID string) (Contact, error)
}

type EmailSender interface {
	SendEmail(ctx context.Context, to, subject, body string) (string, error)
}

type SMSSender interface {
	SendSMS(ctx context.Context, phone, message string) (string, error)
}

// ChannelDeliverer sends email and/or SMS for each user notification.
// Either sender may be nil.
type ChannelDeliverer struct {
	contacts ContactResolver
	email    EmailSender
	sms      SMSSender
	log      logger.Logger
}

func NewChannelDeliverer(contacts ContactResolver, email EmailSender, sms SMSSender, log logger.Logger) *ChannelDeliverer {
	return &ChannelDeliverer{
		contacts: contacts,
		email:    email,
		sms:      sms,
		log:      log.WithFields(map[string]interface{}{"component": "notification-delivery"}),
	}
}

func (c *ChannelDeliverer) Deliver(ctx context.Context, userID string, n *models.Notification) {
	contact, err := c.contacts.Contact(ctx, userID)
	if err != nil {
		c.log.Warn("contact lookup failed", map[string]interface{}{"userId": userID, "error": err})
		return
	}

	if c.email != nil && contact.Email != "" {
		if _, err := c.email.SendEmail(ctx, contact.Email, n.Title, n.Description); err != nil {
			c.fail("email", userID, n, err)
		}
	}
	if c.sms != nil && contact.Phone != "" {
		if _, err := c.sms.SendSMS(ctx, contact.Phone, n.Title+": "+n.Description); err != nil {
			c.fail("sms", userID, n, err)
		}
	}
}

func (c *ChannelDeliverer) fail(channel, userID string, n *models.Notification, err error) {
	metrics.NotificationDeliveryFailures.WithLabelValues(channel).Inc()
	c.log.Warn("notification delivery failed", map[string]interface{}{
		"userId":         userID,
		"notificationId": n.ID,
		"error":          apperrors.NewNotificationSendFailedError(channel, err),
	})
}

// StaticContacts resolves contacts from a fixed map; unknown users have none.
type StaticContacts map[string]Contact

func (s StaticContacts) Contact(_ context.Context, userID string) (Contact, error) {
	return s[userID], nil
}
