package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Sivaraj16/medicals/internal/domain"
	pkgkafka "github.com/Sivaraj16/medicals/pkg/kafka"
)

// Kafka topics produced by this service.
const (
	TopicOrderPlaced       = pkgkafka.TopicPrefix + ".order.placed"
	TopicInventoryUpdated  = pkgkafka.TopicPrefix + ".inventory.updated"
	TopicInventoryDepleted = pkgkafka.TopicPrefix + ".inventory.depleted"
)

// Aggregate types.
const (
	AggregateTypeOrder    = "order"
	AggregateTypeMedicine = "medicine"
)

// SourceMedicals identifies events originating from this service.
const SourceMedicals = "medicals"

// Reasons carried by inventory.updated events.
const (
	ReasonCreated   = "created"
	ReasonUpdated   = "updated"
	ReasonDiscount  = "discount"
	ReasonDeleted   = "deleted"
	ReasonSold      = "sold"
	ReasonRestocked = "restocked"
)

// OrderPlacedItem is one line of an order.placed event.
type OrderPlacedItem struct {
	MedicineID string  `json:"medicine_id"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	Quantity   int     `json:"quantity"`
}

// OrderPlacedData is the payload for an order.placed event.
type OrderPlacedData struct {
	OrderID      string            `json:"order_id"`
	CustomerName string            `json:"customer_name"`
	Items        []OrderPlacedItem `json:"items"`
	Subtotal     float64           `json:"subtotal"`
	Tax          float64           `json:"tax"`
	Total        float64           `json:"total"`
	OperatorID   string            `json:"operator_id,omitempty"`
	SkippedItems int               `json:"skipped_items"`
}

// InventoryUpdatedData is the payload for an inventory.updated event.
type InventoryUpdatedData struct {
	MedicineID string  `json:"medicine_id"`
	Name       string  `json:"name,omitempty"`
	Quantity   int     `json:"quantity"`
	Price      float64 `json:"price,omitempty"`
	Discount   float64 `json:"discount,omitempty"`
	Reason     string  `json:"reason"`
}

// InventoryDepletedData is the payload for an inventory.depleted event.
type InventoryDepletedData struct {
	MedicineID string `json:"medicine_id"`
	Name       string `json:"name"`
	OrderID    string `json:"order_id,omitempty"`
}

// Producer publishes domain events. Callers log publish failures and carry on;
// the database stays the source of truth.
type Producer struct {
	publisher pkgkafka.Publisher
	logger    *slog.Logger
}

// NewProducer creates a new event producer.
func NewProducer(publisher pkgkafka.Publisher, logger *slog.Logger) *Producer {
	return &Producer{publisher: publisher, logger: logger}
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceMedicals, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}
	if err := p.publisher.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)
	return nil
}

// PublishOrderPlaced publishes an order.placed event.
func (p *Producer) PublishOrderPlaced(ctx context.Context, o *domain.Order, operatorID string, skipped int) error {
	items := make([]OrderPlacedItem, 0, len(o.Items))
	for _, it := range o.Items {
		items = append(items, OrderPlacedItem{
			MedicineID: it.MedicineID,
			Name:       it.Name,
			Price:      it.Price,
			Quantity:   it.Quantity,
		})
	}

	return p.publish(ctx, TopicOrderPlaced, o.ID, AggregateTypeOrder, OrderPlacedData{
		OrderID:      o.ID,
		CustomerName: o.Customer.Name,
		Items:        items,
		Subtotal:     o.Subtotal,
		Tax:          o.Tax,
		Total:        o.Total,
		OperatorID:   operatorID,
		SkippedItems: skipped,
	})
}

// PublishInventoryUpdated publishes an inventory.updated event for a
// medicine's current state.
func (p *Producer) PublishInventoryUpdated(ctx context.Context, m *domain.Medicine, reason string) error {
	return p.publish(ctx, TopicInventoryUpdated, m.ID, AggregateTypeMedicine, InventoryUpdatedData{
		MedicineID: m.ID,
		Name:       m.Name,
		Quantity:   m.Quantity,
		Price:      m.Price,
		Discount:   m.Discount,
		Reason:     reason,
	})
}

// PublishStockLevel publishes an inventory.updated event carrying a new
// stock level, after a sale or a restock.
func (p *Producer) PublishStockLevel(ctx context.Context, change domain.StockChange, reason string) error {
	return p.publish(ctx, TopicInventoryUpdated, change.MedicineID, AggregateTypeMedicine, InventoryUpdatedData{
		MedicineID: change.MedicineID,
		Name:       change.Name,
		Quantity:   change.Remaining,
		Reason:     reason,
	})
}

// PublishMedicineDeleted publishes an inventory.updated event for a removed
// medicine.
func (p *Producer) PublishMedicineDeleted(ctx context.Context, id string) error {
	return p.publish(ctx, TopicInventoryUpdated, id, AggregateTypeMedicine, InventoryUpdatedData{
		MedicineID: id,
		Reason:     ReasonDeleted,
	})
}

// PublishInventoryDepleted publishes an inventory.depleted event when a sale
// takes a medicine to zero units.
func (p *Producer) PublishInventoryDepleted(ctx context.Context, change domain.StockChange, orderID string) error {
	return p.publish(ctx, TopicInventoryDepleted, change.MedicineID, AggregateTypeMedicine, InventoryDepletedData{
		MedicineID: change.MedicineID,
		Name:       change.Name,
		OrderID:    orderID,
	})
}
