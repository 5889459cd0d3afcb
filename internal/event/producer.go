package event

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/furnhaven/cart-service/internal/domain"
	pkgkafka "github.com/furnhaven/cart-service/pkg/kafka"
)

// Kafka topic constants for cart and coupon domain events.
const (
	TopicCartUpdated    = "furnhaven.cart.updated"
	TopicCartCleared    = "furnhaven.cart.cleared"
	TopicCouponRedeemed = "furnhaven.coupon.redeemed"
)

// Aggregate type constants.
const (
	AggregateTypeCart   = "cart"
	AggregateTypeCoupon = "coupon"
)

// Source identifier for events originating from this service.
const SourceCartService = "cart-service"

// CartUpdatedData is the payload for a cart.updated event.
type CartUpdatedData struct {
	OwnerKey   string         `json:"owner_key"`
	UserID     string         `json:"user_id,omitempty"`
	SessionID  string         `json:"session_id,omitempty"`
	Items      []CartItemData `json:"items"`
	ItemCount  int            `json:"item_count"`
	CouponCode string         `json:"coupon_code,omitempty"`
	Subtotal   float64        `json:"subtotal"`
	Discount   float64        `json:"discount"`
	Total      float64        `json:"total"`
}

// CartItemData is the item payload within cart events.
type CartItemData struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     float64         `json:"price"`
	Quantity  int             `json:"quantity"`
	Variant   *domain.Variant `json:"variant,omitempty"`
}

// CartClearedData is the payload for a cart.cleared event.
type CartClearedData struct {
	OwnerKey string `json:"owner_key"`
}

// CouponRedeemedData is the payload for a coupon.redeemed event.
type CouponRedeemedData struct {
	Code   string `json:"code"`
	UserID string `json:"user_id"`
}

// Producer publishes cart and coupon domain events to Kafka.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the cart service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{
		kafka:  kafka,
		logger: logger,
	}
}

// PublishCartUpdated publishes a cart.updated event. The event is keyed by
// the cart's owner so per-cart ordering is preserved on the topic.
func (p *Producer) PublishCartUpdated(ctx context.Context, cart *domain.Cart) error {
	items := make([]CartItemData, len(cart.Items))
	for i, item := range cart.Items {
		items[i] = CartItemData{
			ProductID: item.ProductID,
			Name:      item.Name,
			Price:     item.Price,
			Quantity:  item.Quantity,
			Variant:   item.Variant,
		}
	}

	owner := cart.Owner()
	data := CartUpdatedData{
		OwnerKey:   owner.Key(),
		UserID:     cart.UserID,
		SessionID:  cart.SessionID,
		Items:      items,
		ItemCount:  cart.ItemCount(),
		CouponCode: cart.CouponCode,
		Subtotal:   cart.Subtotal,
		Discount:   cart.Discount,
		Total:      cart.Total,
	}

	event, err := pkgkafka.NewEvent(TopicCartUpdated, owner.Key(), AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.updated event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartUpdated, event); err != nil {
		return fmt.Errorf("publish cart.updated event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.updated event",
		slog.String("owner", owner.Key()),
		slog.Int("item_count", cart.ItemCount()),
	)

	return nil
}

// PublishCartCleared publishes a cart.cleared event.
func (p *Producer) PublishCartCleared(ctx context.Context, owner domain.Owner) error {
	data := CartClearedData{OwnerKey: owner.Key()}

	event, err := pkgkafka.NewEvent(TopicCartCleared, owner.Key(), AggregateTypeCart, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create cart.cleared event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCartCleared, event); err != nil {
		return fmt.Errorf("publish cart.cleared event: %w", err)
	}

	p.logger.DebugContext(ctx, "published cart.cleared event",
		slog.String("owner", owner.Key()),
	)

	return nil
}

// PublishCouponRedeemed publishes a coupon.redeemed event, keyed by the
// coupon code so redemptions of the same coupon stay ordered.
func (p *Producer) PublishCouponRedeemed(ctx context.Context, code, userID string) error {
	data := CouponRedeemedData{Code: code, UserID: userID}

	event, err := pkgkafka.NewEvent(TopicCouponRedeemed, code, AggregateTypeCoupon, SourceCartService, data)
	if err != nil {
		return fmt.Errorf("create coupon.redeemed event: %w", err)
	}

	if err := p.kafka.Publish(ctx, TopicCouponRedeemed, event); err != nil {
		return fmt.Errorf("publish coupon.redeemed event: %w", err)
	}

	p.logger.DebugContext(ctx, "published coupon.redeemed event",
		slog.String("code", code),
	)

	return nil
}
