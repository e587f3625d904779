package models

type CreateCheckoutSessionRequest struct {
	Items      []CartItemSnapshot `json:"items" validate:"required,min=1"`
	SuccessURL string             `json:"success_url" validate:"required,url"`
	CancelURL  string             `json:"cancel_url" validate:"required,url"`
}

type CheckoutSession struct {
	ID  string `json:"id"`
	URL string `json:"url"`
}
