package papertrail

import (
	"context"
	"fmt"

	"github.com/mrz1836/postmark"
)

// PostmarkOtpSender delivers passcodes through Postmark's transactional API.
type PostmarkOtpSender struct {
	client *postmark.Client
	from   string
}

// NewPostmarkOtpSender creates a Postmark-backed delivery channel. Both tokens
// and the sender address are required; failing fast here beats a silently
// broken channel in production.
func NewPostmarkOtpSender(serverToken, accountToken, from string) (*PostmarkOtpSender, error) {
	if serverToken == "" || accountToken == "" {
		return nil, fmt.Errorf("postmark tokens are required")
	}
	if from == "" {
		return nil, fmt.Errorf("sender email is required")
	}
	return &PostmarkOtpSender{
		client: postmark.NewClient(serverToken, accountToken),
		from:   from,
	}, nil
}

func (s *PostmarkOtpSender) SendOtp(ctx context.Context, email, code string) error {
	resp, err := s.client.SendEmail(ctx, postmark.Email{
		From:     s.from,
		To:       email,
		Subject:  "Your OTP Code",
		Tag:      "otp",
		TextBody: fmt.Sprintf("Your OTP is %s. It will expire in 5 minutes.", code),
		HTMLBody: fmt.Sprintf("<p>Your OTP is <strong>%s</strong>. It will expire in <b>5 minutes</b>.</p>", code),
	})
	if err != nil {
		return err
	}
	if resp.ErrorCode > 0 {
		return fmt.Errorf("postmark error: %d - %s", resp.ErrorCode, resp.Message)
	}
	return nil
}
