package service

import (
	"errors"
	"testing"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/coasterpix/coasterpix-backend/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type stubCheckoutClient struct {
	createdCustomers int
	lineItems        []*stripe.CheckoutSessionLineItemParams
	metadata         map[string]string
	customerID       string
	err              error
}

func (c *stubCheckoutClient) CreateCustomer(email, fullName string) (*stripe.Customer, error) {
	c.createdCustomers++
	return &stripe.Customer{ID: "cus_new"}, nil
}

func (c *stubCheckoutClient) CreateCheckoutSession(
	customerID string,
	lineItems []*stripe.CheckoutSessionLineItemParams,
	successURL, cancelURL string,
	metadata map[string]string,
) (*stripe.CheckoutSession, error) {
	if c.err != nil {
		return nil, c.err
	}
	c.customerID = customerID
	c.lineItems = lineItems
	c.metadata = metadata
	return &stripe.CheckoutSession{ID: "cs_new", URL: "https://checkout.example/cs_new"}, nil
}

func newPaymentFixture(t *testing.T) (*PaymentService, *stubCheckoutClient, *gorm.DB, *models.User) {
	t.Helper()

	db := newTestDB(t)
	user := &models.User{FullName: "Jonas Brandt", Email: "jonas@example.com", Password: "x"}
	require.NoError(t, db.Create(user).Error)

	client := &stubCheckoutClient{}
	svc := NewPaymentService(
		client,
		repository.NewUserRepository(db),
		repository.NewStripeCustomerRepository(db),
		repository.NewPurchaseRepository(db),
		zap.NewNop(),
	)
	return svc, client, db, user
}

func checkoutRequest(items ...models.CartItemSnapshot) models.CreateCheckoutSessionRequest {
	return models.CreateCheckoutSessionRequest{
		Items:      items,
		SuccessURL: "https://coasterpix.example/success",
		CancelURL:  "https://coasterpix.example/cart",
	}
}

func TestCreateCheckoutSessionEmptyCart(t *testing.T) {
	svc, _, _, user := newPaymentFixture(t)

	_, err := svc.CreateCheckoutSession(user.ID, checkoutRequest())
	require.ErrorIs(t, err, ErrEmptyCart)
}

func TestCreateCheckoutSessionFirstPurchaseCreatesCustomer(t *testing.T) {
	svc, client, db, user := newPaymentFixture(t)

	session, err := svc.CreateCheckoutSession(user.ID, checkoutRequest(
		models.CartItemSnapshot{Type: "photo", PhotoID: "7", Price: 4.99},
	))
	require.NoError(t, err)
	require.Equal(t, "cs_new", session.ID)
	require.Equal(t, "https://checkout.example/cs_new", session.URL)

	require.Equal(t, 1, client.createdCustomers)
	require.Equal(t, "cus_new", client.customerID)

	var mapping models.StripeCustomer
	require.NoError(t, db.Where("user_id = ?", user.ID).First(&mapping).Error)
	require.Equal(t, "cus_new", mapping.CustomerID)
}

func TestCreateCheckoutSessionReusesExistingCustomer(t *testing.T) {
	svc, client, db, user := newPaymentFixture(t)
	require.NoError(t, db.Create(&models.StripeCustomer{UserID: user.ID, CustomerID: "cus_known"}).Error)

	_, err := svc.CreateCheckoutSession(user.ID, checkoutRequest(
		models.CartItemSnapshot{Type: "photo", PhotoID: "7", Price: 4.99},
	))
	require.NoError(t, err)

	require.Zero(t, client.createdCustomers)
	require.Equal(t, "cus_known", client.customerID)
}

func TestCheckoutMetadataRoundTrips(t *testing.T) {
	svc, client, _, user := newPaymentFixture(t)

	_, err := svc.CreateCheckoutSession(user.ID, checkoutRequest(
		models.CartItemSnapshot{Type: "photo", PhotoID: "7", Price: 4.99, Quantity: 1},
		models.CartItemSnapshot{Type: "pass", SelectedDate: "2024-06-01", Price: 14.99, Title: "Tagesfotopass"},
	))
	require.NoError(t, err)

	// What the webhook processor will parse back out must match what went in.
	items, err := models.ParseCartItems(client.metadata["cart_items"])
	require.NoError(t, err)
	require.Len(t, items, 2)
	require.Equal(t, "7", items[0].PhotoID)
	require.Equal(t, "2024-06-01", items[1].SelectedDate)
}

func TestCheckoutLineItemsPricedInCents(t *testing.T) {
	svc, client, _, user := newPaymentFixture(t)

	_, err := svc.CreateCheckoutSession(user.ID, checkoutRequest(
		models.CartItemSnapshot{Type: "photo", PhotoID: "7", Price: 4.99},
		models.CartItemSnapshot{Type: "ticket", Price: 39.50, Quantity: 2, Title: "Day Ticket"},
		// 4.35 and 8.45 have no exact float representation; their *100
		// products land just below the integer and must round, not truncate.
		models.CartItemSnapshot{Type: "photo", PhotoID: "8", Price: 4.35},
		models.CartItemSnapshot{Type: "pass", SelectedDate: "2024-06-01", Price: 8.45},
	))
	require.NoError(t, err)
	require.Len(t, client.lineItems, 4)

	photo := client.lineItems[0]
	require.Equal(t, int64(499), *photo.PriceData.UnitAmount)
	require.Equal(t, "eur", *photo.PriceData.Currency)
	require.Equal(t, "Ride Photo", *photo.PriceData.ProductData.Name)
	require.Equal(t, int64(1), *photo.Quantity)

	ticket := client.lineItems[1]
	require.Equal(t, int64(3950), *ticket.PriceData.UnitAmount)
	require.Equal(t, "Day Ticket", *ticket.PriceData.ProductData.Name)
	require.Equal(t, int64(2), *ticket.Quantity)

	require.Equal(t, int64(435), *client.lineItems[2].PriceData.UnitAmount)
	require.Equal(t, int64(845), *client.lineItems[3].PriceData.UnitAmount)
}

func TestIsSessionFulfilled(t *testing.T) {
	svc, _, db, user := newPaymentFixture(t)

	fulfilled, err := svc.IsSessionFulfilled(user.ID, "cs_unknown")
	require.NoError(t, err)
	require.False(t, fulfilled)

	require.NoError(t, db.Create(&models.Purchase{
		UserID:                  user.ID,
		ParkID:                  1,
		StripeCheckoutSessionID: "cs_done",
		Currency:                "eur",
		Status:                  models.PurchaseStatusPaid,
	}).Error)

	fulfilled, err = svc.IsSessionFulfilled(user.ID, "cs_done")
	require.NoError(t, err)
	require.True(t, fulfilled)

	// Someone else's session never reads as fulfilled for this user.
	other := &models.User{FullName: "Lena Falk", Email: "lena@example.com", Password: "x"}
	require.NoError(t, db.Create(other).Error)
	fulfilled, err = svc.IsSessionFulfilled(other.ID, "cs_done")
	require.NoError(t, err)
	require.False(t, fulfilled)
}

func TestGetPurchaseHistoryIncludesItems(t *testing.T) {
	svc, _, db, user := newPaymentFixture(t)

	purchase := &models.Purchase{
		UserID:                  user.ID,
		ParkID:                  1,
		StripeCheckoutSessionID: "cs_hist",
		Currency:                "eur",
		Status:                  models.PurchaseStatusPaid,
		AmountCents:             1998,
	}
	require.NoError(t, db.Create(purchase).Error)

	photoID := uint(3)
	require.NoError(t, db.Create(&models.PurchaseItem{
		PurchaseID: purchase.ID, ItemType: models.PurchaseItemTypePhoto,
		PhotoID: &photoID, UnitAmountCents: 499, Quantity: 1,
	}).Error)
	code := "tagesfotopass:2024-06-01"
	require.NoError(t, db.Create(&models.PurchaseItem{
		PurchaseID: purchase.ID, ItemType: models.PurchaseItemTypePhotopass,
		ProductCode: &code, UnitAmountCents: 1499, Quantity: 1,
	}).Error)

	history, err := svc.GetPurchaseHistory(user.ID)
	require.NoError(t, err)
	require.Len(t, history, 1)
	require.Equal(t, "cs_hist", history[0].StripeCheckoutSessionID)
	require.Len(t, history[0].Items, 2)

	// Other users see nothing.
	history, err = svc.GetPurchaseHistory(user.ID + 1)
	require.NoError(t, err)
	require.Empty(t, history)
}

func TestCreateCheckoutSessionUnknownUser(t *testing.T) {
	svc, _, _, _ := newPaymentFixture(t)

	_, err := svc.CreateCheckoutSession(9999, checkoutRequest(
		models.CartItemSnapshot{Type: "photo", PhotoID: "7", Price: 4.99},
	))
	require.Error(t, err)
	require.True(t, errors.Is(err, gorm.ErrRecordNotFound))
}
