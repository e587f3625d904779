package email

import (
	"bytes"
	"fmt"
	"html/template"
	"log"
	"os"
	"time"

	"github.com/resendlabs/resend-go"
)

type EmailService struct {
	client   *resend.Client
	from     string
	fromName string
	logger   *log.Logger
}

func NewEmailService(apiKey, from, fromName string) *EmailService {
	return &EmailService{
		client:   resend.NewClient(apiKey),
		from:     from,
		fromName: fromName,
		logger:   log.New(os.Stdout, "EMAIL: ", log.LstdFlags),
	}
}

var welcomeTemplate = template.Must(template.New("welcome").Parse(`
<h1>Welcome to CoasterPix, {{.FullName}}!</h1>
<p>Log your rides and your photos will be waiting for you.</p>
<p>&copy; {{.Year}} CoasterPix</p>
`))

var purchaseTemplate = template.Must(template.New("purchase").Parse(`
<h1>Thanks for your purchase, {{.FullName}}!</h1>
<p>{{.ItemCount}} item(s), total {{.Total}}.</p>
<p>Your photos are unlocked and ready to download in the app.</p>
<p>&copy; {{.Year}} CoasterPix</p>
`))

func (s *EmailService) SendWelcomeEmail(email, fullName string) error {
	s.logger.Printf("Sending welcome email to: %s (%s)", email, fullName)

	html, err := render(welcomeTemplate, map[string]interface{}{
		"FullName": fullName,
		"Year":     time.Now().Year(),
	})
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{email},
		Subject: "Welcome to CoasterPix!",
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Printf("Failed to send welcome email to %s: %v", email, err)
		return err
	}

	s.logger.Printf("Sent welcome email to %s (ID: %s)", email, resp.Id)
	return nil
}

// SendPurchaseConfirmation is fired after fulfillment. Callers treat it as
// fire-and-forget; it must never gate entitlements.
func (s *EmailService) SendPurchaseConfirmation(email, fullName string, itemCount int, totalCents int64, currency string) error {
	s.logger.Printf("Sending purchase confirmation to: %s", email)

	html, err := render(purchaseTemplate, map[string]interface{}{
		"FullName":  fullName,
		"ItemCount": itemCount,
		"Total":     fmt.Sprintf("%.2f %s", float64(totalCents)/100, currency),
		"Year":      time.Now().Year(),
	})
	if err != nil {
		return err
	}

	params := &resend.SendEmailRequest{
		From:    s.fromName + " <" + s.from + ">",
		To:      []string{email},
		Subject: "Your CoasterPix photos are unlocked",
		Html:    html,
	}

	resp, err := s.client.Emails.Send(params)
	if err != nil {
		s.logger.Printf("Failed to send purchase confirmation to %s: %v", email, err)
		return err
	}

	s.logger.Printf("Sent purchase confirmation to %s (ID: %s)", email, resp.Id)
	return nil
}

func render(tmpl *template.Template, data interface{}) (string, error) {
	var body bytes.Buffer
	if err := tmpl.Execute(&body, data); err != nil {
		return "", err
	}
	return body.String(), nil
}
