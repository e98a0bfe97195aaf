// cmd/worker-manager/stores.go
package main

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"welfare-workers/internal/audit"
	"welfare-workers/internal/common/aws"
	"welfare-workers/internal/common/config"
	"welfare-workers/internal/common/database"
	"welfare-workers/internal/common/logger"
	"welfare-workers/internal/httpapi"
	"welfare-workers/internal/lifecycle"
	"welfare-workers/internal/notification"
	"welfare-workers/internal/scheme"
	"welfare-workers/internal/store/memory"
	"welfare-workers/internal/store/postgres"
)

// stores is the persistence selected by storage.backend.
type stores struct {
	applications  lifecycle.Repository
	schemes       scheme.Store
	audit         audit.Store
	notifications notification.Store
	contacts      notification.ContactResolver
	checks        map[string]httpapi.Check
	closers       []func() error
}

func (s *stores) Close() {
	for _, c := range s.closers {
		_ = c()
	}
}

func openStores(ctx context.Context, cfg *config.Config, log *zap.Logger) (*stores, error) {
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		log.Warn("using in-memory storage; data is lost on restart")
		return &stores{
			applications:  memory.NewApplicationRepository(),
			schemes:       memory.NewSchemeStore(),
			audit:         memory.NewAuditStore(),
			notifications: memory.NewNotificationStore(),
			contacts:      notification.StaticContacts{},
			checks:        map[string]httpapi.Check{},
		}, nil

	case config.BackendPostgres:
		var pg *database.PostgresClient
		err := retryWithBackoff(func() error {
			var err error
			pg, err = database.NewPostgres(cfg.Database.Postgres)
			if err != nil {
				return err
			}
			return pg.Ping(ctx)
		}, 15, 2*time.Second, log, "PostgreSQL connection")
		if err != nil {
			return nil, err
		}
		log.Info("PostgreSQL connected successfully")

		if err := postgres.Migrate(ctx, pg.DB); err != nil {
			pg.Close()
			return nil, err
		}

		return &stores{
			applications:  postgres.NewApplicationRepository(pg.DB),
			schemes:       postgres.NewSchemeStore(pg.DB),
			audit:         postgres.NewAuditStore(pg.DB),
			notifications: postgres.NewNotificationStore(pg.DB),
			contacts:      postgres.NewContactStore(pg.DB),
			checks:        map[string]httpapi.Check{"postgres": pg.Ping},
			closers:       []func() error{pg.Close},
		}, nil
	}
	return nil, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}

// newDeliverer returns nil when neither email nor SMS delivery is enabled.
func newDeliverer(ctx context.Context, cfg *config.Config, contacts notification.ContactResolver, log logger.Logger) (notification.Deliverer, error) {
	n := cfg.Notifications
	if !n.Email.Enabled && !n.SMS.Enabled {
		return nil, nil
	}

	var email notification.EmailSender
	if n.Email.Enabled {
		ses, err := aws.NewSESClient(ctx, n.AWS.Region, n.Email.FromEmail)
		if err != nil {
			return nil, fmt.Errorf("ses client: %w", err)
		}
		email = ses
	}

	var sms notification.SMSSender
	if n.SMS.Enabled {
		sns, err := aws.NewSNSClient(ctx, n.AWS.Region, n.SMS.SenderID)
		if err != nil {
			return nil, fmt.Errorf("sns client: %w", err)
		}
		sms = sns
	}

	return notification.NewChannelDeliverer(contacts, email, sms, log), nil
}
