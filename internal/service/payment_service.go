package service

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/coasterpix/coasterpix-backend/internal/models"
	"github.com/stripe/stripe-go/v74"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var ErrEmptyCart = errors.New("cart is empty")

type CheckoutClient interface {
	CreateCustomer(email, fullName string) (*stripe.Customer, error)
	CreateCheckoutSession(
		customerID string,
		lineItems []*stripe.CheckoutSessionLineItemParams,
		successURL, cancelURL string,
		metadata map[string]string,
	) (*stripe.CheckoutSession, error)
}

type CustomerDirectory interface {
	GetByUserID(userID uint) (*models.StripeCustomer, error)
	Create(mapping *models.StripeCustomer) error
}

type PurchaseReader interface {
	GetBySessionID(sessionID string) (*models.Purchase, error)
	GetUserPurchaseHistory(userID uint) ([]models.Purchase, error)
	GetItems(purchaseID uint) ([]models.PurchaseItem, error)
}

// PaymentService opens hosted checkout sessions. Fulfillment happens later
// in FulfillmentService when the provider reports the session as paid.
type PaymentService struct {
	stripeClient CheckoutClient
	users        UserStore
	customers    CustomerDirectory
	purchases    PurchaseReader
	logger       *zap.Logger
}

func NewPaymentService(stripeClient CheckoutClient, users UserStore, customers CustomerDirectory, purchases PurchaseReader, logger *zap.Logger) *PaymentService {
	return &PaymentService{
		stripeClient: stripeClient,
		users:        users,
		customers:    customers,
		purchases:    purchases,
		logger:       logger,
	}
}

// IsSessionFulfilled is what the client polls after returning from the
// hosted payment page: fulfillment is observed, never pushed.
func (s *PaymentService) IsSessionFulfilled(userID uint, sessionID string) (bool, error) {
	purchase, err := s.purchases.GetBySessionID(sessionID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return purchase.UserID == userID, nil
}

// GetPurchaseHistory returns the user's purchases newest first, each with
// its line items.
func (s *PaymentService) GetPurchaseHistory(userID uint) ([]models.PurchaseHistoryEntry, error) {
	purchases, err := s.purchases.GetUserPurchaseHistory(userID)
	if err != nil {
		return nil, err
	}

	history := make([]models.PurchaseHistoryEntry, 0, len(purchases))
	for _, purchase := range purchases {
		items, err := s.purchases.GetItems(purchase.ID)
		if err != nil {
			return nil, err
		}
		history = append(history, models.PurchaseHistoryEntry{Purchase: purchase, Items: items})
	}
	return history, nil
}

func (s *PaymentService) CreateCheckoutSession(userID uint, req models.CreateCheckoutSessionRequest) (*models.CheckoutSession, error) {
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	customerID, err := s.resolveCustomer(user)
	if err != nil {
		return nil, err
	}

	lineItems := make([]*stripe.CheckoutSessionLineItemParams, 0, len(req.Items))
	for _, item := range req.Items {
		name := item.Title
		if name == "" {
			name = displayName(item.Type)
		}

		quantity := item.Quantity
		if quantity <= 0 {
			quantity = 1
		}

		lineItems = append(lineItems, &stripe.CheckoutSessionLineItemParams{
			PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
				Currency:   stripe.String(string(stripe.CurrencyEUR)),
				UnitAmount: stripe.Int64(toCents(item.Price)),
				ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
					Name: stripe.String(name),
				},
			},
			Quantity: stripe.Int64(int64(quantity)),
		})
	}

	// The metadata snapshot is the only channel carrying "what was bought"
	// into the webhook processor.
	snapshot, err := json.Marshal(req.Items)
	if err != nil {
		return nil, fmt.Errorf("serialize cart snapshot: %w", err)
	}

	session, err := s.stripeClient.CreateCheckoutSession(
		customerID,
		lineItems,
		req.SuccessURL,
		req.CancelURL,
		map[string]string{
			"user_id":    fmt.Sprintf("%d", userID),
			"cart_items": string(snapshot),
		},
	)
	if err != nil {
		return nil, err
	}

	s.logger.Info("checkout session created",
		zap.Uint("user_id", userID),
		zap.String("session_id", session.ID),
		zap.Int("item_count", len(req.Items)))

	return &models.CheckoutSession{
		ID:  session.ID,
		URL: session.URL,
	}, nil
}

// resolveCustomer returns the user's Stripe customer id, creating and
// persisting the mapping on first purchase.
func (s *PaymentService) resolveCustomer(user *models.User) (string, error) {
	mapping, err := s.customers.GetByUserID(user.ID)
	if err == nil {
		return mapping.CustomerID, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return "", err
	}

	customer, err := s.stripeClient.CreateCustomer(user.Email, user.FullName)
	if err != nil {
		return "", fmt.Errorf("create stripe customer: %w", err)
	}

	if err := s.customers.Create(&models.StripeCustomer{
		UserID:     user.ID,
		CustomerID: customer.ID,
	}); err != nil {
		return "", fmt.Errorf("persist customer mapping: %w", err)
	}

	return customer.ID, nil
}

func displayName(itemType string) string {
	switch itemType {
	case models.CartItemTypePass:
		return "Tagesfotopass"
	case models.CartItemTypeTicket:
		return "Park Ticket"
	default:
		return "Ride Photo"
	}
}
