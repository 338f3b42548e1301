package event

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/Sivaraj16/medicals/internal/domain"
	apperrors "github.com/Sivaraj16/medicals/pkg/errors"
	pkgkafka "github.com/Sivaraj16/medicals/pkg/kafka"
)

// ConsumerGroup is the consumer group of this service.
const ConsumerGroup = "medicals-restock"

// Restocker opens automatic restock requests.
type Restocker interface {
	// AutoRestock opens a request unless one is already pending. created is
	// false, and req nil, when an existing pending request made it a no-op.
	AutoRestock(ctx context.Context, medicineID string) (req *domain.RestockRequest, created bool, err error)
}

// Consumer processes inventory events.
type Consumer struct {
	restocker Restocker
	logger    *slog.Logger
}

// NewConsumer creates a new event consumer.
func NewConsumer(restocker Restocker, logger *slog.Logger) *Consumer {
	return &Consumer{restocker: restocker, logger: logger}
}

// HandleInventoryDepleted opens a restock request for a medicine that sold
// out. A medicine deleted since the sale is acknowledged without retrying.
func (c *Consumer) HandleInventoryDepleted(ctx context.Context, event *pkgkafka.Event) error {
	var data InventoryDepletedData
	if err := event.UnmarshalData(&data); err != nil {
		return fmt.Errorf("unmarshal inventory.depleted data: %w", err)
	}
	if data.MedicineID == "" {
		return fmt.Errorf("inventory.depleted event %s has no medicine_id", event.EventID)
	}

	req, created, err := c.restocker.AutoRestock(ctx, data.MedicineID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.logger.WarnContext(ctx, "depleted medicine no longer exists, skipping restock",
				slog.String("medicine_id", data.MedicineID),
			)
			return nil
		}
		return fmt.Errorf("auto restock %s: %w", data.MedicineID, err)
	}

	if !created {
		c.logger.InfoContext(ctx, "restock already pending",
			slog.String("medicine_id", data.MedicineID),
		)
		return nil
	}

	c.logger.InfoContext(ctx, "restock requested for depleted medicine",
		slog.String("medicine_id", data.MedicineID),
		slog.String("name", data.Name),
		slog.String("restock_id", req.ID),
		slog.Int("quantity", req.Quantity),
	)
	return nil
}
