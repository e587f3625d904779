package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/pkg/utils"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store interfaces of the fulfillment pipeline. The gorm repositories
// satisfy them in production; tests substitute fakes or wrap the real ones.

type PurchaseStore interface {
	Create(purchase *models.Purchase) error
	GetBySessionID(sessionID string) (*models.Purchase, error)
	CreateItem(item *models.PurchaseItem) error
}

type PhotoStore interface {
	GetByID(id uint) (*models.Photo, error)
	GetByParkAndCaptureWindow(parkID uint, from, to time.Time) ([]models.Photo, error)
	GetFirstByParkAndWindow(parkID uint, from, to time.Time) (*models.Photo, error)
}

type UnlockStore interface {
	Upsert(unlock *models.UnlockedPhoto) error
	UpsertBatch(unlocks []models.UnlockedPhoto) error
}

type LeaderboardStore interface {
	Upsert(entry *models.LeaderboardEntry) error
	UpsertBatch(entries []models.LeaderboardEntry) error
}

type CartStore interface {
	ClearByUserID(userID uint) error
}

type CustomerStore interface {
	GetByCustomerID(customerID string) (*models.StripeCustomer, error)
}

type UserStore interface {
	GetByID(id uint) (*models.User, error)
}

type OrderStore interface {
	Create(order *models.Order) error
}

type SubscriptionStore interface {
	Upsert(sub *models.Subscription) error
}

type SubscriptionFetcher interface {
	GetLatestSubscription(customerID string) (*stripe.Subscription, error)
}

type PurchaseMailer interface {
	SendPurchaseConfirmation(email, fullName string, itemCount int, totalCents int64, currency string) error
}

// FulfillmentService turns verified Stripe events into durable entitlement
// grants. It is invoked once per delivered event; the provider delivers at
// least once, so every mutation here is either guarded by the purchase
// idempotency anchor or idempotent on its own.
type FulfillmentService struct {
	purchases     PurchaseStore
	photos        PhotoStore
	unlocks       UnlockStore
	leaderboard   LeaderboardStore
	carts         CartStore
	customers     CustomerStore
	users         UserStore
	orders        OrderStore
	subscriptions SubscriptionStore
	stripeClient  SubscriptionFetcher
	mailer        PurchaseMailer
	logger        *zap.Logger
	defaultParkID uint
	now           func() time.Time
}

func NewFulfillmentService(
	purchases PurchaseStore,
	photos PhotoStore,
	unlocks UnlockStore,
	leaderboard LeaderboardStore,
	carts CartStore,
	customers CustomerStore,
	users UserStore,
	orders OrderStore,
	subscriptions SubscriptionStore,
	stripeClient SubscriptionFetcher,
	mailer PurchaseMailer,
	logger *zap.Logger,
	defaultParkID uint,
) *FulfillmentService {
	return &FulfillmentService{
		purchases:     purchases,
		photos:        photos,
		unlocks:       unlocks,
		leaderboard:   leaderboard,
		carts:         carts,
		customers:     customers,
		users:         users,
		orders:        orders,
		subscriptions: subscriptions,
		stripeClient:  stripeClient,
		mailer:        mailer,
		logger:        logger,
		defaultParkID: defaultParkID,
		now:           time.Now,
	}
}

// HandleStripeWebhook classifies an already-verified event. Returning nil
// acknowledges the event (200); returning an error surfaces a 500 and
// invites the provider to retry.
func (s *FulfillmentService) HandleStripeWebhook(event *stripe.Event) error {
	switch event.Type {
	case "payment_intent.succeeded":
		var intent stripe.PaymentIntent
		if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
			return err
		}

		// The non-invoice leg is already covered by
		// checkout.session.completed; processing both would double-fulfill.
		if intent.Invoice == nil {
			s.logger.Debug("ignoring payment_intent.succeeded without invoice",
				zap.String("payment_intent_id", intent.ID))
			return nil
		}
		if intent.Customer == nil {
			s.logger.Warn("payment_intent.succeeded with invoice but no customer",
				zap.String("payment_intent_id", intent.ID))
			return nil
		}
		return s.syncSubscription(intent.Customer.ID)

	case "checkout.session.completed":
		var session stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
			return err
		}

		if session.Customer == nil {
			s.logger.Warn("checkout session has no customer, nothing to fulfill",
				zap.String("session_id", session.ID))
			return nil
		}

		switch session.Mode {
		case stripe.CheckoutSessionModeSubscription:
			return s.syncSubscription(session.Customer.ID)
		case stripe.CheckoutSessionModePayment:
			if session.PaymentStatus != stripe.CheckoutSessionPaymentStatusPaid {
				s.logger.Info("checkout session completed but not paid",
					zap.String("session_id", session.ID),
					zap.String("payment_status", string(session.PaymentStatus)))
				return nil
			}
			return s.fulfillOneTimePayment(&session)
		}

		s.logger.Debug("ignoring checkout session mode",
			zap.String("session_id", session.ID),
			zap.String("mode", string(session.Mode)))
		return nil

	case "customer.subscription.created",
		"customer.subscription.updated",
		"customer.subscription.deleted":
		var subscription stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &subscription); err != nil {
			return err
		}
		if subscription.Customer == nil {
			s.logger.Warn("subscription event without customer",
				zap.String("subscription_id", subscription.ID))
			return nil
		}
		return s.syncSubscription(subscription.Customer.ID)
	}

	s.logger.Debug("unhandled stripe event type", zap.String("type", string(event.Type)))
	return nil
}

// fulfillOneTimePayment converts a paid payment-mode checkout session into
// a Purchase, its items, photo unlocks, leaderboard entries, a cleared
// cart, and a best-effort audit row. Missing-linkage cases (no customer
// mapping, no user, empty cart) are logged and absorbed: retrying them
// cannot produce different data.
func (s *FulfillmentService) fulfillOneTimePayment(session *stripe.CheckoutSession) error {
	log := s.logger.With(zap.String("session_id", session.ID))

	if _, err := s.purchases.GetBySessionID(session.ID); err == nil {
		log.Info("checkout session already fulfilled, skipping duplicate delivery")
		return nil
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("idempotency check for session %s: %w", session.ID, err)
	}

	mapping, err := s.customers.GetByCustomerID(session.Customer.ID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("no user mapping for stripe customer, cannot fulfill",
				zap.String("customer_id", session.Customer.ID))
			return nil
		}
		return fmt.Errorf("customer lookup: %w", err)
	}

	user, err := s.users.GetByID(mapping.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("mapped user no longer exists", zap.Uint("user_id", mapping.UserID))
			return nil
		}
		return fmt.Errorf("user lookup: %w", err)
	}

	parkID := s.defaultParkID
	if user.HomeParkID != nil && *user.HomeParkID > 0 {
		parkID = *user.HomeParkID
	}

	items, err := models.ParseCartItems(session.Metadata["cart_items"])
	if err != nil {
		log.Warn("cart_items metadata is malformed, nothing to fulfill", zap.Error(err))
		return nil
	}
	if len(items) == 0 {
		log.Warn("checkout session carries no cart items, nothing to fulfill")
		return nil
	}

	paidAt := s.now().UTC()

	purchase := &models.Purchase{
		UserID:                  user.ID,
		PhotoID:                 s.resolveRepresentativePhoto(items, parkID, paidAt),
		ParkID:                  parkID,
		StripeCheckoutSessionID: session.ID,
		AmountCents:             session.AmountSubtotal,
		Currency:                string(session.Currency),
		PaidAt:                  paidAt,
		Status:                  models.PurchaseStatusPaid,
		TotalAmountCents:        session.AmountTotal,
	}
	if session.PaymentIntent != nil {
		purchase.StripePaymentIntentID = session.PaymentIntent.ID
	}

	if err := s.purchases.Create(purchase); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the insert race against a concurrent duplicate delivery.
			log.Info("purchase already created by concurrent delivery")
			return nil
		}
		return fmt.Errorf("create purchase for session %s: %w", session.ID, err)
	}

	log = log.With(zap.Uint("purchase_id", purchase.ID), zap.Uint("user_id", user.ID))

	// One item's failure never rolls back the others: the customer has
	// already paid, so partial fulfillment with loud logging beats
	// all-or-nothing.
	for i, item := range items {
		var itemErr error
		switch item.Type {
		case models.CartItemTypePhoto:
			itemErr = s.fulfillPhotoItem(purchase, user, item)
		case models.CartItemTypePass:
			itemErr = s.fulfillPassItem(purchase, user, item)
		case models.CartItemTypeTicket:
			itemErr = s.fulfillTicketItem(purchase, item)
		}
		if itemErr != nil {
			log.Error("cart item fulfillment failed",
				zap.Int("item_index", i),
				zap.String("item_type", item.Type),
				zap.Error(itemErr))
		}
	}

	// Payment went through, the cart must not resurrect paid items.
	if err := s.carts.ClearByUserID(user.ID); err != nil {
		log.Error("failed to clear cart after fulfillment", zap.Error(err))
	}

	if err := s.orders.Create(&models.Order{
		UserID:          user.ID,
		Email:           user.Email,
		StripeSessionID: session.ID,
		AmountCents:     session.AmountTotal,
		Currency:        string(session.Currency),
		ItemCount:       len(items),
	}); err != nil {
		log.Warn("orders audit insert failed", zap.Error(err))
	}

	if s.mailer != nil {
		go s.mailer.SendPurchaseConfirmation(user.Email, user.FullName, len(items), session.AmountTotal, string(session.Currency))
	}

	log.Info("checkout session fulfilled", zap.Int("item_count", len(items)))
	return nil
}

func (s *FulfillmentService) fulfillPhotoItem(purchase *models.Purchase, user *models.User, item models.CartItemSnapshot) error {
	photoID, err := parsePhotoID(item.PhotoID)
	if err != nil {
		return err
	}

	if err := s.purchases.CreateItem(&models.PurchaseItem{
		PurchaseID:      purchase.ID,
		ItemType:        models.PurchaseItemTypePhoto,
		PhotoID:         &photoID,
		UnitAmountCents: toCents(item.Price),
		Quantity:        quantityOrOne(item.Quantity),
	}); err != nil {
		return fmt.Errorf("create photo purchase item: %w", err)
	}

	if err := s.unlocks.Upsert(&models.UnlockedPhoto{
		UserID:     user.ID,
		PhotoID:    photoID,
		ParkID:     purchase.ParkID,
		UnlockedAt: s.now().UTC(),
	}); err != nil {
		return fmt.Errorf("unlock photo %d: %w", photoID, err)
	}

	photo, err := s.photos.GetByID(photoID)
	if err != nil {
		return fmt.Errorf("load photo %d for leaderboard: %w", photoID, err)
	}

	speed := utils.ResolveSpeed(photo.SpeedKmh, photo.R2Key)
	if speed <= 0 {
		s.logger.Debug("no resolvable speed for photo, skipping leaderboard",
			zap.Uint("photo_id", photoID))
		return nil
	}

	return s.leaderboard.Upsert(&models.LeaderboardEntry{
		UserID:   user.ID,
		PhotoID:  photoID,
		SpeedKmh: speed,
		RideDate: dateOnly(photo.CapturedAt),
		ParkID:   photo.ParkID,
	})
}

// fulfillPassItem unlocks every photo captured at the purchase park during
// the pass's calendar day (UTC). An empty day is valid: passes can be
// bought in advance.
func (s *FulfillmentService) fulfillPassItem(purchase *models.Purchase, user *models.User, item models.CartItemSnapshot) error {
	dayStart, dayEnd := passDayWindow(item.SelectedDate, purchase.PaidAt)
	productCode := "tagesfotopass:" + dayStart.Format("2006-01-02")

	if err := s.purchases.CreateItem(&models.PurchaseItem{
		PurchaseID:      purchase.ID,
		ItemType:        models.PurchaseItemTypePhotopass,
		ProductCode:     &productCode,
		UnitAmountCents: toCents(item.Price),
		Quantity:        quantityOrOne(item.Quantity),
	}); err != nil {
		return fmt.Errorf("create pass purchase item: %w", err)
	}

	photos, err := s.photos.GetByParkAndCaptureWindow(purchase.ParkID, dayStart, dayEnd)
	if err != nil {
		return fmt.Errorf("load photos for %s: %w", productCode, err)
	}

	seen := make(map[uint]bool, len(photos))
	unlocks := make([]models.UnlockedPhoto, 0, len(photos))
	entries := make([]models.LeaderboardEntry, 0, len(photos))
	unlockedAt := s.now().UTC()

	for _, photo := range photos {
		if seen[photo.ID] {
			continue
		}
		seen[photo.ID] = true

		unlocks = append(unlocks, models.UnlockedPhoto{
			UserID:     user.ID,
			PhotoID:    photo.ID,
			ParkID:     photo.ParkID,
			UnlockedAt: unlockedAt,
		})

		if speed := utils.ResolveSpeed(photo.SpeedKmh, photo.R2Key); speed > 0 {
			entries = append(entries, models.LeaderboardEntry{
				UserID:   user.ID,
				PhotoID:  photo.ID,
				SpeedKmh: speed,
				RideDate: dateOnly(photo.CapturedAt),
				ParkID:   photo.ParkID,
			})
		}
	}

	if len(unlocks) == 0 {
		s.logger.Info("day pass has no photos yet",
			zap.String("product_code", productCode),
			zap.Uint("park_id", purchase.ParkID))
		return nil
	}

	if err := s.unlocks.UpsertBatch(unlocks); err != nil {
		return fmt.Errorf("bulk unlock for %s: %w", productCode, err)
	}
	if err := s.leaderboard.UpsertBatch(entries); err != nil {
		return fmt.Errorf("bulk leaderboard upsert for %s: %w", productCode, err)
	}

	s.logger.Info("day pass fulfilled",
		zap.String("product_code", productCode),
		zap.Int("photo_count", len(unlocks)))
	return nil
}

// Tickets are park-entry products, not photo entitlements; only the line
// item is recorded.
func (s *FulfillmentService) fulfillTicketItem(purchase *models.Purchase, item models.CartItemSnapshot) error {
	productCode := "ticket"
	return s.purchases.CreateItem(&models.PurchaseItem{
		PurchaseID:      purchase.ID,
		ItemType:        models.PurchaseItemTypeTicket,
		ProductCode:     &productCode,
		UnitAmountCents: toCents(item.Price),
		Quantity:        quantityOrOne(item.Quantity),
	})
}

// resolveRepresentativePhoto picks a display photo for the purchase row:
// the first photo item, else the earliest photo of the first pass's day
// window, else nothing. Best-effort, never blocks fulfillment.
func (s *FulfillmentService) resolveRepresentativePhoto(items []models.CartItemSnapshot, parkID uint, paidAt time.Time) *uint {
	for _, item := range items {
		if item.Type == models.CartItemTypePhoto && item.PhotoID != "" {
			if id, err := parsePhotoID(item.PhotoID); err == nil {
				return &id
			}
		}
	}

	for _, item := range items {
		if item.Type != models.CartItemTypePass {
			continue
		}
		dayStart, dayEnd := passDayWindow(item.SelectedDate, paidAt)
		photo, err := s.photos.GetFirstByParkAndWindow(parkID, dayStart, dayEnd)
		if err != nil {
			return nil
		}
		id := photo.ID
		return &id
	}

	return nil
}

// syncSubscription mirrors the customer's most recent provider
// subscription into the local table, or the not_started sentinel when the
// customer never subscribed. Structurally separate from entitlements.
func (s *FulfillmentService) syncSubscription(customerID string) error {
	stripeSub, err := s.stripeClient.GetLatestSubscription(customerID)
	if err != nil {
		return fmt.Errorf("fetch subscription for customer %s: %w", customerID, err)
	}

	mirror := &models.Subscription{
		CustomerID: customerID,
		Status:     models.SubscriptionStatusNotStarted,
	}

	if stripeSub != nil {
		mirror.SubscriptionID = stripeSub.ID
		mirror.Status = string(stripeSub.Status)
		mirror.CancelAtPeriodEnd = stripeSub.CancelAtPeriodEnd

		if stripeSub.Items != nil && len(stripeSub.Items.Data) > 0 && stripeSub.Items.Data[0].Price != nil {
			mirror.PriceID = stripeSub.Items.Data[0].Price.ID
		}
		if stripeSub.CurrentPeriodStart > 0 {
			start := time.Unix(stripeSub.CurrentPeriodStart, 0).UTC()
			mirror.CurrentPeriodStart = &start
		}
		if stripeSub.CurrentPeriodEnd > 0 {
			end := time.Unix(stripeSub.CurrentPeriodEnd, 0).UTC()
			mirror.CurrentPeriodEnd = &end
		}
		if pm := stripeSub.DefaultPaymentMethod; pm != nil && pm.Card != nil {
			mirror.PaymentMethodBrand = string(pm.Card.Brand)
			mirror.PaymentMethodLast4 = pm.Card.Last4
		}
	}

	if err := s.subscriptions.Upsert(mirror); err != nil {
		return fmt.Errorf("mirror subscription for customer %s: %w", customerID, err)
	}

	s.logger.Info("subscription state mirrored",
		zap.String("customer_id", customerID),
		zap.String("status", mirror.Status))
	return nil
}

// passDayWindow computes the UTC calendar day [midnight, next midnight)
// for a pass. A missing or malformed selected date falls back to the
// purchase date.
func passDayWindow(selectedDate string, fallback time.Time) (time.Time, time.Time) {
	day, err := time.ParseInLocation("2006-01-02", selectedDate, time.UTC)
	if err != nil {
		day = dateOnly(fallback)
	}
	return day, day.Add(24 * time.Hour)
}

func dateOnly(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func parsePhotoID(raw string) (uint, error) {
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid photo id %q", raw)
	}
	return uint(id), nil
}

func toCents(price float64) int64 {
	return int64(math.Round(price * 100))
}

func quantityOrOne(quantity int) int {
	if quantity <= 0 {
		return 1
	}
	return quantity
}
