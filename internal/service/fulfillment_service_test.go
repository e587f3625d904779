package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
	"github.com/coasterpix/coasterpix-backend/pkg/database"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, database.RunMigrations(db))
	return db
}

type stubSubscriptionFetcher struct {
	sub *stripe.Subscription
	err error
}

func (s stubSubscriptionFetcher) GetLatestSubscription(customerID string) (*stripe.Subscription, error) {
	return s.sub, s.err
}

type fulfillmentFixture struct {
	db      *gorm.DB
	service *FulfillmentService
	user    *models.User
}

func newFulfillmentFixture(t *testing.T, fetcher SubscriptionFetcher) *fulfillmentFixture {
	t.Helper()

	db := newTestDB(t)

	user := &models.User{FullName: "Mara Ott", Email: "mara@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)
	require.NoError(t, db.Create(&models.StripeCustomer{UserID: user.ID, CustomerID: "cus_test"}).Error)

	svc := NewFulfillmentService(
		repository.NewPurchaseRepository(db),
		repository.NewPhotoRepository(db),
		repository.NewUnlockedPhotoRepository(db),
		repository.NewLeaderboardRepository(db),
		repository.NewCartRepository(db),
		repository.NewStripeCustomerRepository(db),
		repository.NewUserRepository(db),
		repository.NewOrderRepository(db),
		repository.NewSubscriptionRepository(db),
		fetcher,
		nil,
		zap.NewNop(),
		1,
	)

	return &fulfillmentFixture{db: db, service: svc, user: user}
}

func seedPhoto(t *testing.T, db *gorm.DB, parkID uint, key string, speed *float64, capturedAt time.Time) *models.Photo {
	t.Helper()
	photo := &models.Photo{
		ParkID:     parkID,
		FileName:   key,
		R2Key:      key,
		SpeedKmh:   speed,
		CapturedAt: capturedAt,
	}
	require.NoError(t, db.Create(photo).Error)
	return photo
}

func checkoutEvent(t *testing.T, sessionID, customerID, cartJSON string) *stripe.Event {
	t.Helper()
	raw := fmt.Sprintf(`{
		"id": %q,
		"mode": "payment",
		"payment_status": "paid",
		"customer": %q,
		"payment_intent": "pi_test",
		"amount_subtotal": 499,
		"amount_total": 499,
		"currency": "eur",
		"metadata": {"cart_items": %s}
	}`, sessionID, customerID, mustQuote(t, cartJSON))

	return &stripe.Event{
		ID:   "evt_" + sessionID,
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: json.RawMessage(raw)},
	}
}

func mustQuote(t *testing.T, s string) string {
	t.Helper()
	quoted, err := json.Marshal(s)
	require.NoError(t, err)
	return string(quoted)
}

func TestSinglePhotoPurchaseFulfillment(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	// No recorded speed: the leaderboard value must come from the file name.
	photo := seedPhoto(t, f.db, 1, "parks/1/2024-06-01/ride_0000_4210.jpg", nil,
		time.Date(2024, 6, 1, 14, 30, 0, 0, time.UTC))

	require.NoError(t, f.db.Create(&models.CartItem{UserID: f.user.ID, ItemType: "photo", Quantity: 1, Price: 4.99}).Error)

	cart := fmt.Sprintf(`[{"type":"photo","photoId":"%d","price":4.99,"quantity":1}]`, photo.ID)
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_1", "cus_test", cart)))

	var purchase models.Purchase
	require.NoError(t, f.db.Where("stripe_checkout_session_id = ?", "cs_1").First(&purchase).Error)
	require.Equal(t, f.user.ID, purchase.UserID)
	require.Equal(t, models.PurchaseStatusPaid, purchase.Status)
	require.Equal(t, "pi_test", purchase.StripePaymentIntentID)
	require.Equal(t, int64(499), purchase.AmountCents)
	require.NotNil(t, purchase.PhotoID)
	require.Equal(t, photo.ID, *purchase.PhotoID)

	var items []models.PurchaseItem
	require.NoError(t, f.db.Where("purchase_id = ?", purchase.ID).Find(&items).Error)
	require.Len(t, items, 1)
	require.Equal(t, models.PurchaseItemTypePhoto, items[0].ItemType)
	require.Equal(t, int64(499), items[0].UnitAmountCents)

	var unlocks []models.UnlockedPhoto
	require.NoError(t, f.db.Find(&unlocks).Error)
	require.Len(t, unlocks, 1)
	require.Equal(t, photo.ID, unlocks[0].PhotoID)

	var entries []models.LeaderboardEntry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.InDelta(t, 42.10, entries[0].SpeedKmh, 0.001)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), entries[0].RideDate.UTC())

	// The paid cart must not survive fulfillment.
	var cartCount int64
	require.NoError(t, f.db.Model(&models.CartItem{}).Where("user_id = ?", f.user.ID).Count(&cartCount).Error)
	require.Zero(t, cartCount)

	var orderCount int64
	require.NoError(t, f.db.Model(&models.Order{}).Count(&orderCount).Error)
	require.EqualValues(t, 1, orderCount)
}

func TestRecordedSpeedWinsOverFilename(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	recorded := 55.2
	photo := seedPhoto(t, f.db, 1, "parks/1/2024-06-01/ride_0000_4210.jpg", &recorded,
		time.Date(2024, 6, 1, 11, 0, 0, 0, time.UTC))

	cart := fmt.Sprintf(`[{"type":"photo","photoId":"%d","price":4.99}]`, photo.ID)
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_speed", "cus_test", cart)))

	var entry models.LeaderboardEntry
	require.NoError(t, f.db.First(&entry).Error)
	require.InDelta(t, 55.2, entry.SpeedKmh, 0.001)
}

func TestIdempotentReplay(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	photo := seedPhoto(t, f.db, 1, "ride_0000_3305.jpg", nil, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	cart := fmt.Sprintf(`[{"type":"photo","photoId":"%d","price":4.99}]`, photo.ID)
	event := checkoutEvent(t, "cs_replay", "cus_test", cart)

	require.NoError(t, f.service.HandleStripeWebhook(event))
	require.NoError(t, f.service.HandleStripeWebhook(event))

	var purchaseCount, itemCount, unlockCount, entryCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	f.db.Model(&models.PurchaseItem{}).Count(&itemCount)
	f.db.Model(&models.UnlockedPhoto{}).Count(&unlockCount)
	f.db.Model(&models.LeaderboardEntry{}).Count(&entryCount)

	require.EqualValues(t, 1, purchaseCount)
	require.EqualValues(t, 1, itemCount)
	require.EqualValues(t, 1, unlockCount)
	require.EqualValues(t, 1, entryCount)
}

// racyPurchaseStore simulates the concurrent-duplicate window: the
// idempotency pre-check never sees the row, so the second delivery must be
// saved by the unique constraint alone.
type racyPurchaseStore struct {
	inner *repository.PurchaseRepository
}

func (r racyPurchaseStore) Create(purchase *models.Purchase) error { return r.inner.Create(purchase) }
func (r racyPurchaseStore) CreateItem(item *models.PurchaseItem) error {
	return r.inner.CreateItem(item)
}
func (r racyPurchaseStore) GetBySessionID(sessionID string) (*models.Purchase, error) {
	return nil, gorm.ErrRecordNotFound
}

func TestDuplicateInsertRaceTreatedAsHandled(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})
	f.service.purchases = racyPurchaseStore{inner: repository.NewPurchaseRepository(f.db)}

	photo := seedPhoto(t, f.db, 1, "ride_0000_2800.jpg", nil, time.Date(2024, 6, 1, 9, 0, 0, 0, time.UTC))
	cart := fmt.Sprintf(`[{"type":"photo","photoId":"%d","price":4.99}]`, photo.ID)
	event := checkoutEvent(t, "cs_race", "cus_test", cart)

	require.NoError(t, f.service.HandleStripeWebhook(event))
	// Second delivery loses the insert race; must be absorbed, not a 500.
	require.NoError(t, f.service.HandleStripeWebhook(event))

	var purchaseCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	require.EqualValues(t, 1, purchaseCount)
}

func TestDayPassBulkUnlock(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	day := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	var first *models.Photo
	for i := 0; i < 5; i++ {
		p := seedPhoto(t, f.db, 1, fmt.Sprintf("parks/1/2024-06-01/ride_%d_3115.jpg", i), nil,
			day.Add(time.Duration(i+1)*time.Hour))
		if first == nil {
			first = p
		}
	}
	// Outside the window: must stay locked.
	seedPhoto(t, f.db, 1, "parks/1/2024-06-02/ride_9_3115.jpg", nil, day.Add(25*time.Hour))
	// Other park, same day: must stay locked too.
	require.NoError(t, f.db.Create(&models.Park{ID: 2, Name: "Wildblitz", Slug: "wildblitz"}).Error)
	seedPhoto(t, f.db, 2, "parks/2/2024-06-01/ride_0_3115.jpg", nil, day.Add(2*time.Hour))

	cart := `[{"type":"pass","selectedDate":"2024-06-01","price":14.99,"title":"Tagesfotopass"}]`
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_pass", "cus_test", cart)))

	var purchase models.Purchase
	require.NoError(t, f.db.Where("stripe_checkout_session_id = ?", "cs_pass").First(&purchase).Error)
	require.NotNil(t, purchase.PhotoID)
	require.Equal(t, first.ID, *purchase.PhotoID)

	var item models.PurchaseItem
	require.NoError(t, f.db.Where("purchase_id = ?", purchase.ID).First(&item).Error)
	require.Equal(t, models.PurchaseItemTypePhotopass, item.ItemType)
	require.NotNil(t, item.ProductCode)
	require.Equal(t, "tagesfotopass:2024-06-01", *item.ProductCode)

	var unlockCount, entryCount int64
	f.db.Model(&models.UnlockedPhoto{}).Where("user_id = ?", f.user.ID).Count(&unlockCount)
	f.db.Model(&models.LeaderboardEntry{}).Where("user_id = ?", f.user.ID).Count(&entryCount)
	require.EqualValues(t, 5, unlockCount)
	require.EqualValues(t, 5, entryCount)
}

func TestDayPassWithoutPhotosIsValid(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	// Bought in advance: no photos captured yet for that day.
	cart := `[{"type":"pass","selectedDate":"2030-01-01","price":14.99}]`
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_future", "cus_test", cart)))

	var purchaseCount, unlockCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	f.db.Model(&models.UnlockedPhoto{}).Count(&unlockCount)
	require.EqualValues(t, 1, purchaseCount)
	require.Zero(t, unlockCount)
}

func TestTicketItemGrantsNoUnlock(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	cart := `[{"type":"ticket","price":39.50,"quantity":2,"title":"Day Ticket"}]`
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_ticket", "cus_test", cart)))

	var item models.PurchaseItem
	require.NoError(t, f.db.First(&item).Error)
	require.Equal(t, models.PurchaseItemTypeTicket, item.ItemType)
	require.Equal(t, 2, item.Quantity)

	var unlockCount int64
	f.db.Model(&models.UnlockedPhoto{}).Count(&unlockCount)
	require.Zero(t, unlockCount)
}

// failingUnlockStore errors on one photo to exercise per-item isolation.
type failingUnlockStore struct {
	inner       *repository.UnlockedPhotoRepository
	failPhotoID uint
}

func (s failingUnlockStore) Upsert(unlock *models.UnlockedPhoto) error {
	if unlock.PhotoID == s.failPhotoID {
		return errors.New("simulated store failure")
	}
	return s.inner.Upsert(unlock)
}

func (s failingUnlockStore) UpsertBatch(unlocks []models.UnlockedPhoto) error {
	return s.inner.UpsertBatch(unlocks)
}

func TestPartialFailureIsolation(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	captured := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	p1 := seedPhoto(t, f.db, 1, "ride_1_4210.jpg", nil, captured)
	p2 := seedPhoto(t, f.db, 1, "ride_2_4210.jpg", nil, captured)
	p3 := seedPhoto(t, f.db, 1, "ride_3_4210.jpg", nil, captured)

	f.service.unlocks = failingUnlockStore{
		inner:       repository.NewUnlockedPhotoRepository(f.db),
		failPhotoID: p2.ID,
	}

	require.NoError(t, f.db.Create(&models.CartItem{UserID: f.user.ID, ItemType: "photo", Quantity: 1, Price: 4.99}).Error)

	cart := fmt.Sprintf(`[
		{"type":"photo","photoId":"%d","price":4.99},
		{"type":"photo","photoId":"%d","price":4.99},
		{"type":"photo","photoId":"%d","price":4.99}
	]`, p1.ID, p2.ID, p3.ID)

	// The event is still acknowledged despite the middle item failing.
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_partial", "cus_test", cart)))

	var purchase models.Purchase
	require.NoError(t, f.db.Where("stripe_checkout_session_id = ?", "cs_partial").First(&purchase).Error)

	var unlockedIDs []uint
	require.NoError(t, f.db.Model(&models.UnlockedPhoto{}).Order("photo_id").Pluck("photo_id", &unlockedIDs).Error)
	require.Equal(t, []uint{p1.ID, p3.ID}, unlockedIDs)

	// The failed item's line item still exists: the failure hit the unlock,
	// after the item row was written.
	var itemCount int64
	f.db.Model(&models.PurchaseItem{}).Where("purchase_id = ?", purchase.ID).Count(&itemCount)
	require.EqualValues(t, 3, itemCount)

	var cartCount int64
	f.db.Model(&models.CartItem{}).Where("user_id = ?", f.user.ID).Count(&cartCount)
	require.Zero(t, cartCount)
}

func TestLeaderboardCorrectionWins(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	slow := 30.0
	photo := seedPhoto(t, f.db, 1, "ride_0000_0000.jpg", &slow, time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC))
	cart := fmt.Sprintf(`[{"type":"photo","photoId":"%d","price":4.99}]`, photo.ID)

	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_v1", "cus_test", cart)))

	// Capture system corrects the speed; a later purchase must overwrite.
	require.NoError(t, f.db.Model(&models.Photo{}).Where("id = ?", photo.ID).Update("speed_kmh", 61.5).Error)
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_v2", "cus_test", cart)))

	var entries []models.LeaderboardEntry
	require.NoError(t, f.db.Find(&entries).Error)
	require.Len(t, entries, 1)
	require.InDelta(t, 61.5, entries[0].SpeedKmh, 0.001)

	var unlockCount int64
	f.db.Model(&models.UnlockedPhoto{}).Count(&unlockCount)
	require.EqualValues(t, 1, unlockCount)
}

func TestBarePaymentIntentSucceededIgnored(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	event := &stripe.Event{
		ID:   "evt_pi",
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id": "pi_orphan"}`)},
	}
	require.NoError(t, f.service.HandleStripeWebhook(event))

	var purchaseCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	require.Zero(t, purchaseCount)
}

func TestMissingCustomerMappingAcknowledged(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	cart := `[{"type":"photo","photoId":"1","price":4.99}]`
	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_nomap", "cus_stranger", cart)))

	var purchaseCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	require.Zero(t, purchaseCount)
}

func TestSessionWithoutCustomerIgnored(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	event := &stripe.Event{
		ID:   "evt_nocus",
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"cs_nocus","mode":"payment","payment_status":"paid"}`)},
	}
	require.NoError(t, f.service.HandleStripeWebhook(event))

	var purchaseCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	require.Zero(t, purchaseCount)
}

func TestMalformedCartMetadataAcknowledged(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{})

	require.NoError(t, f.service.HandleStripeWebhook(checkoutEvent(t, "cs_bad", "cus_test", "not json at all")))

	var purchaseCount int64
	f.db.Model(&models.Purchase{}).Count(&purchaseCount)
	require.Zero(t, purchaseCount)
}

func TestSubscriptionSyncSentinel(t *testing.T) {
	f := newFulfillmentFixture(t, stubSubscriptionFetcher{sub: nil})

	event := &stripe.Event{
		ID:   "evt_sub",
		Type: "checkout.session.completed",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"cs_sub","mode":"subscription","customer":"cus_test"}`)},
	}
	require.NoError(t, f.service.HandleStripeWebhook(event))

	var sub models.Subscription
	require.NoError(t, f.db.Where("customer_id = ?", "cus_test").First(&sub).Error)
	require.Equal(t, models.SubscriptionStatusNotStarted, sub.Status)
}

func TestSubscriptionSyncMirrorsProviderState(t *testing.T) {
	periodStart := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := periodStart.AddDate(0, 1, 0)

	f := newFulfillmentFixture(t, stubSubscriptionFetcher{sub: &stripe.Subscription{
		ID:                 "sub_1",
		Status:             stripe.SubscriptionStatusActive,
		CurrentPeriodStart: periodStart.Unix(),
		CurrentPeriodEnd:   periodEnd.Unix(),
		CancelAtPeriodEnd:  true,
		Items: &stripe.SubscriptionItemList{
			Data: []*stripe.SubscriptionItem{
				{Price: &stripe.Price{ID: "price_1"}},
			},
		},
		DefaultPaymentMethod: &stripe.PaymentMethod{
			Card: &stripe.PaymentMethodCard{Brand: stripe.PaymentMethodCardBrandVisa, Last4: "4242"},
		},
	}})

	event := &stripe.Event{
		ID:   "evt_sub2",
		Type: "customer.subscription.updated",
		Data: &stripe.EventData{Raw: json.RawMessage(`{"id":"sub_1","customer":"cus_test"}`)},
	}
	require.NoError(t, f.service.HandleStripeWebhook(event))

	var sub models.Subscription
	require.NoError(t, f.db.Where("customer_id = ?", "cus_test").First(&sub).Error)
	require.Equal(t, "active", sub.Status)
	require.Equal(t, "price_1", sub.PriceID)
	require.True(t, sub.CancelAtPeriodEnd)
	require.Equal(t, "visa", sub.PaymentMethodBrand)
	require.Equal(t, "4242", sub.PaymentMethodLast4)
	require.NotNil(t, sub.CurrentPeriodEnd)
	require.Equal(t, periodEnd.Unix(), sub.CurrentPeriodEnd.Unix())
}

func TestPassDayWindowFallsBackToPaidDate(t *testing.T) {
	paidAt := time.Date(2024, 7, 15, 18, 45, 0, 0, time.UTC)

	start, end := passDayWindow("2024-06-01", paidAt)
	require.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), start)
	require.Equal(t, time.Date(2024, 6, 2, 0, 0, 0, 0, time.UTC), end)

	start, _ = passDayWindow("06/01/2024", paidAt)
	require.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), start)

	start, _ = passDayWindow("", paidAt)
	require.Equal(t, time.Date(2024, 7, 15, 0, 0, 0, 0, time.UTC), start)
}
