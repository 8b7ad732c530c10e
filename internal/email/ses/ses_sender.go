package ses

import (
	"context"
	"fmt"
	"html"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"payslipx/internal/domain"
	"payslipx/internal/port"
)

// Client is the subset of the SES v2 API the sender uses.
type Client interface {
	SendEmail(ctx context.Context, params *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

type sesSender struct {
	client      Client
	fromAddress string
	fromName    string
}

// NewSESSender creates a new SES-backed AlertSender.
func NewSESSender(region, fromAddress, fromName string) (port.AlertSender, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background(), awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("loading AWS config for SES: %w", err)
	}
	return NewSESSenderWithClient(sesv2.NewFromConfig(cfg), fromAddress, fromName), nil
}

// NewSESSenderWithClient creates an AlertSender on top of an existing client.
func NewSESSenderWithClient(client Client, fromAddress, fromName string) port.AlertSender {
	return &sesSender{
		client:      client,
		fromAddress: fromAddress,
		fromName:    fromName,
	}
}

func (s *sesSender) SendUsageAlert(ctx context.Context, to string, anomalies []domain.DeviceUsage) error {
	subject := fmt.Sprintf("payslipx usage alert: %d device(s) above normal spend", len(anomalies))
	htmlBody := buildAlertHTML(anomalies)
	textBody := buildAlertText(anomalies)

	from := fmt.Sprintf("%s <%s>", s.fromName, s.fromAddress)

	_, err := s.client.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: &from,
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: &subject},
				Body: &types.Body{
					Html: &types.Content{Data: &htmlBody},
					Text: &types.Content{Data: &textBody},
				},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("SES SendEmail: %w", err)
	}
	return nil
}

func buildAlertText(anomalies []domain.DeviceUsage) string {
	var b strings.Builder
	b.WriteString("The following devices exceeded the anomaly threshold:\n\n")
	for _, a := range anomalies {
		fmt.Fprintf(&b, "- %s: %d calls (%d failed), %d tokens, $%.4f / ₹%.2f\n",
			a.DeviceID, a.Calls, a.Failures, a.TotalTokens, a.CostUSD, a.CostINR)
	}
	return b.String()
}

func buildAlertHTML(anomalies []domain.DeviceUsage) string {
	var rows strings.Builder
	for _, a := range anomalies {
		fmt.Fprintf(&rows, `<tr><td>%s</td><td>%d</td><td>%d</td><td>%d</td><td>$%.4f</td><td>&#8377;%.2f</td></tr>`,
			html.EscapeString(a.DeviceID), a.Calls, a.Failures, a.TotalTokens, a.CostUSD, a.CostINR)
	}
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
<head><meta charset="UTF-8"></head>
<body style="font-family: Arial, sans-serif; max-width: 600px; margin: 0 auto; padding: 20px;">
  <h2 style="color: #333;">Usage alert</h2>
  <p>The following devices exceeded the anomaly threshold:</p>
  <table style="border-collapse: collapse; width: 100%%;">
    <tr><th>Device</th><th>Calls</th><th>Failed</th><th>Tokens</th><th>USD</th><th>INR</th></tr>
    %s
  </table>
</body>
</html>`, rows.String())
}
