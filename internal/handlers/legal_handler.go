package handlers

import (
	"github.com/gofiber/fiber/v2"
)

type LegalHandler struct{}

func NewLegalHandler() *LegalHandler {
	return &LegalHandler{}
}

func (h *LegalHandler) PrivacyPolicy(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Privacy Policy - EchoDesk</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}h2{color:#444;margin-top:30px}</style>
</head><body>
<h1>Privacy Policy</h1>
<p>Last updated: August 2026</p>
<h2>Information We Collect</h2>
<p>We collect your email address, business details, and call records handled by your virtual receptionist to provide our services.</p>
<h2>Call Recordings and Transcripts</h2>
<p>Calls answered by EchoDesk are transcribed and summarized to power your dashboard. Transcripts are visible only to your account.</p>
<h2>How We Use Your Information</h2>
<p>Your data is used solely to operate EchoDesk, authenticate your account, bill your subscription, and improve our services.</p>
<h2>Data Storage</h2>
<p>Your data is stored securely on encrypted servers. We do not sell your personal information to third parties.</p>
<h2>Account Deletion</h2>
<p>You can delete your account and all associated data at any time from your dashboard settings.</p>
<h2>Contact</h2>
<p>For questions about this policy, contact us at support@echodesk.ai</p>
</body></html>`)
}

func (h *LegalHandler) TermsOfService(c *fiber.Ctx) error {
	return c.Type("html").SendString(`<!DOCTYPE html>
<html><head><title>Terms of Service - EchoDesk</title>
<meta name="viewport" content="width=device-width, initial-scale=1">
<style>body{font-family:-apple-system,BlinkMacSystemFont,sans-serif;max-width:800px;margin:0 auto;padding:20px;color:#333}h1{color:#1a1a1a}h2{color:#444;margin-top:30px}</style>
</head><body>
<h1>Terms of Service</h1>
<p>Last updated: August 2026</p>
<h2>Acceptance</h2>
<p>By using EchoDesk, you agree to these terms.</p>
<h2>Use of the Service</h2>
<p>You agree to use the virtual receptionist only for lawful business purposes and to inform callers about call recording where required by law.</p>
<h2>Subscriptions</h2>
<p>Paid plans are billed monthly through our payment processor. Plan upgrades take effect immediately with a prorated charge for the remainder of the billing period.</p>
<h2>Termination</h2>
<p>We may suspend or terminate accounts that violate these terms.</p>
<h2>Contact</h2>
<p>For questions, contact us at support@echodesk.ai</p>
</body></html>`)
}
