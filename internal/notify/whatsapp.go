package notify

import (
	"fmt"
	"net/url"
)

// WhatsAppLink builds the wa.me deep link for an agent to answer from their
// phone. This is an assisted-manual channel: the link is logged and shown in
// the dashboard, never sent automatically.
func WhatsAppLink(number, message string) string {
	return fmt.Sprintf("https://wa.me/%s?text=%s", number, url.QueryEscape(message))
}
