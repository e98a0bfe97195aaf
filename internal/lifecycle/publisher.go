package lifecycle

import (
	"context"

	"welfare-workers/internal/models"
)

// StatusChangedMessage is correlated by application id so a waiting process
// instance resumes when a reviewer acts outside the process.
const StatusChangedMessage = "application-status-changed"

// MessagePublisher is satisfied by *camunda.Client.
type MessagePublisher interface {
	PublishMessage(ctx context.Context, name, correlationKey string, variables interface{}) error
}

type messagePublisher struct {
	client MessagePublisher
}

// NewMessagePublisher adapts a Zeebe message publisher to the Publisher
// side effect.
func NewMessagePublisher(client MessagePublisher) Publisher {
	return &messagePublisher{client: client}
}

func (p *messagePublisher) PublishStatusChange(ctx context.Context, app *models.Application) error {
	return p.client.PublishMessage(ctx, StatusChangedMessage, app.ID, map[string]interface{}{
		"applicationId": app.ID,
		"userId":        app.UserID,
		"schemeId":      app.SchemeID,
		"status":        string(app.Status),
		"remarks":       app.Remarks,
		"version":       app.Version,
	})
}
