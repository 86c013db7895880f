package papertrail

import (
	"context"
	"log"
)

// OtpSender is the external delivery channel for passcodes. Applications
// provide their own implementation; PostmarkOtpSender covers the common
// transactional-email case and ConsoleOtpSender covers development.
type OtpSender interface {
	SendOtp(ctx context.Context, email, code string) error
}

// ConsoleOtpSender is a development implementation that logs codes to console.
type ConsoleOtpSender struct{}

func (c *ConsoleOtpSender) SendOtp(ctx context.Context, email, code string) error {
	log.Printf("\n=== EMAIL: OTP Code ===")
	log.Printf("To: %s", email)
	log.Printf("Subject: Your OTP Code")
	log.Printf("Body: Your OTP is %s. It will expire in 5 minutes.", code)
	log.Printf("=======================\n")
	return nil
}
