package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	awarddomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/award/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/config"
	entitlementdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/entitlement/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/internal/metrics"
	paymentdomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/payment/domain"
	subscriptiondomain "github.com/beaujross/beaurocks-karaoke-sub002/internal/subscription/domain"
	"github.com/beaujross/beaurocks-karaoke-sub002/pkg/atomicstore"
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB       *gorm.DB
	Log      *zap.Logger
	Cfg      config.Config
	SubSvc   subscriptiondomain.Service
	AwardSvc awarddomain.Service
	Provider Provider
	Metrics  *metrics.Metrics `optional:"true"`
}

type Service struct {
	db       *gorm.DB
	log      *zap.Logger
	cfg      config.Config
	subSvc   subscriptiondomain.Service
	awardSvc awarddomain.Service
	provider Provider
	metrics  *metrics.Metrics
	now      func() time.Time
}

func NewService(p ServiceParam) paymentdomain.Service {
	return &Service{
		db:       p.DB,
		log:      p.Log.Named("payment.service"),
		cfg:      p.Cfg,
		subSvc:   p.SubSvc,
		awardSvc: p.AwardSvc,
		provider: p.Provider,
		metrics:  p.Metrics,
		now:      time.Now,
	}
}

func (s *Service) IngestWebhook(ctx context.Context, payload []byte, headers http.Header) error {
	err := paymentdomain.VerifySignature(
		s.cfg.PaymentWebhookSecret,
		headers.Get(paymentdomain.SignatureHeader),
		payload,
		s.now(),
	)
	if err != nil {
		s.metrics.CountWebhook("rejected")
		s.log.Warn("webhook signature rejected", zap.Error(err))
		return err
	}

	event, err := parseEvent(payload, s.cfg.PaymentProvider)
	if err != nil {
		if err == paymentdomain.ErrEventIgnored {
			s.metrics.CountWebhook("ignored")
			return nil
		}
		s.metrics.CountWebhook("rejected")
		return err
	}

	if err := s.apply(ctx, event); err != nil {
		return err
	}
	s.metrics.CountWebhook("accepted")
	return nil
}

// apply routes the event. Subscription lifecycle events go straight to the
// synchronizer: the payload is authoritative latest state and the write is a
// last-write-wins merge, so redelivery is harmless. Checkout events carry a
// point-boost side channel and deduplicate on the session id first.
func (s *Service) apply(ctx context.Context, event *paymentdomain.Event) error {
	sync := subscriptiondomain.SyncPayload{
		OrganizationID:         event.OrganizationID,
		OwnerUserID:            event.OwnerUserID,
		PlanID:                 event.PlanID,
		Status:                 event.Status,
		Provider:               event.Provider,
		ExternalCustomerID:     event.ExternalCustomerID,
		ExternalSubscriptionID: event.ExternalSubscriptionID,
		CurrentPeriodEnd:       event.CurrentPeriodEnd,
		CancelAtPeriodEnd:      event.CancelAtPeriodEnd,
		Source:                 entitlementdomain.SourceWebhook,
	}

	switch event.Kind {
	case paymentdomain.EventCheckoutCompleted:
		sync.Source = entitlementdomain.SourceCheckout
		if err := s.subSvc.ApplyState(ctx, sync); err != nil {
			return err
		}
		return s.applyCheckoutBoost(ctx, event)
	case paymentdomain.EventSubscriptionUpdated, paymentdomain.EventSubscriptionDeleted:
		return s.subSvc.ApplyState(ctx, sync)
	default:
		return nil
	}
}

func (s *Service) applyCheckoutBoost(ctx context.Context, event *paymentdomain.Event) error {
	if event.RoomCode == "" || event.BoostRecipientID == "" || event.BoostPoints <= 0 {
		return nil
	}
	if event.CheckoutSessionID == "" {
		s.log.Warn("checkout boost without session id, skipping",
			zap.String("event_id", event.ID),
			zap.String("room", event.RoomCode))
		return nil
	}

	// The award ledger commits its dedup record and the balance increment in
	// one transaction, keyed by the session-derived award key. A failed apply
	// leaves no trace, so a redelivery retries the boost; a duplicate is a
	// committed boost, not an error.
	awardKey := fmt.Sprintf("%s_checkout_%s", event.RoomCode, event.CheckoutSessionID)
	result, err := s.awardSvc.ApplyOnce(ctx, event.RoomCode, awardKey, []awarddomain.Award{
		{RecipientID: event.BoostRecipientID, Points: event.BoostPoints},
	}, "purchase_boost")
	if err != nil {
		return err
	}

	// Delivery audit row, written only after the boost is durable. The award
	// key carries the idempotency guarantee, so an insert failure is logged,
	// not returned.
	audit := &paymentdomain.WebhookEvent{
		EventID:   event.CheckoutSessionID,
		Provider:  event.Provider,
		Kind:      string(event.Kind),
		OrgID:     event.OrganizationID,
		CreatedAt: s.now().UTC(),
	}
	if _, err := atomicstore.InsertOnce(s.db.WithContext(ctx), audit); err != nil {
		s.log.Warn("webhook audit row insert failed", zap.Error(err))
	}

	if result.Duplicate {
		s.metrics.CountWebhook("duplicate")
	}
	return nil
}

func (s *Service) CreateCheckoutSession(ctx context.Context, req paymentdomain.CheckoutSessionRequest) (string, error) {
	return s.provider.CreateCheckoutSession(ctx, req)
}

func (s *Service) CreatePortalSession(ctx context.Context, orgID snowflake.ID) (string, error) {
	record, err := s.subSvc.GetRecord(ctx, orgID)
	if err != nil {
		return "", err
	}
	return s.provider.CreatePortalSession(ctx, record.ExternalCustomerID, s.cfg.PaymentPortalReturnURL)
}

// wireEvent is the provider's JSON envelope.
type wireEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		OrganizationID    string `json:"organization_id"`
		OwnerUserID       string `json:"owner_user_id"`
		PlanID            string `json:"plan_id"`
		Status            string `json:"status"`
		CustomerID        string `json:"customer_id"`
		SubscriptionID    string `json:"subscription_id"`
		CurrentPeriodEnd  int64  `json:"current_period_end"`
		CancelAtPeriodEnd bool   `json:"cancel_at_period_end"`
		CheckoutSessionID string `json:"checkout_session_id"`
		RoomCode          string `json:"room_code"`
		BoostRecipientID  string `json:"boost_recipient_id"`
		BoostPoints       int64  `json:"boost_points"`
	} `json:"data"`
}

func parseEvent(payload []byte, provider string) (*paymentdomain.Event, error) {
	var wire wireEvent
	if err := json.Unmarshal(payload, &wire); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	if wire.ID == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	kind := paymentdomain.EventKind(wire.Type)
	switch kind {
	case paymentdomain.EventCheckoutCompleted,
		paymentdomain.EventSubscriptionUpdated,
		paymentdomain.EventSubscriptionDeleted:
	default:
		return nil, paymentdomain.ErrEventIgnored
	}

	event := &paymentdomain.Event{
		ID:                     wire.ID,
		Kind:                   kind,
		Provider:               provider,
		OwnerUserID:            wire.Data.OwnerUserID,
		PlanID:                 wire.Data.PlanID,
		Status:                 wire.Data.Status,
		ExternalCustomerID:     wire.Data.CustomerID,
		ExternalSubscriptionID: wire.Data.SubscriptionID,
		CancelAtPeriodEnd:      wire.Data.CancelAtPeriodEnd,
		CheckoutSessionID:      wire.Data.CheckoutSessionID,
		RoomCode:               wire.Data.RoomCode,
		BoostRecipientID:       wire.Data.BoostRecipientID,
		BoostPoints:            wire.Data.BoostPoints,
	}
	if raw := strings.TrimSpace(wire.Data.OrganizationID); raw != "" {
		parsed, err := snowflake.ParseString(raw)
		if err != nil {
			return nil, paymentdomain.ErrInvalidPayload
		}
		event.OrganizationID = parsed
	}
	if wire.Data.CurrentPeriodEnd > 0 {
		end := time.Unix(wire.Data.CurrentPeriodEnd, 0).UTC()
		event.CurrentPeriodEnd = &end
	}
	// Deleted subscriptions arrive without a status; normalize.
	if kind == paymentdomain.EventSubscriptionDeleted && event.Status == "" {
		event.Status = "canceled"
	}
	return event, nil
}
