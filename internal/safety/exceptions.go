package safety

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// Exception is content found in a message that argues against deleting it,
// regardless of what the weighted score says.
type Exception struct {
	Type     string `json:"type"`
	Detail   string `json:"detail"`
	Severity int    `json:"severity"`
}

// ExceptionReport is the outcome of scanning one message.
type ExceptionReport struct {
	Exceptions []Exception `json:"exceptions"`
	// Score is the max severity plus a small bonus for multiple distinct
	// exception types, capped at 100. Higher means more likely important.
	Score int `json:"score"`
}

var (
	orderNumberRe  = regexp.MustCompile(`(?i)order\s*#?\s*:?\s*(\d{5,})`)
	confirmationRe = regexp.MustCompile(`(?i)confirmation\s*#?\s*:?\s*(\w{6,})`)
	upsTrackingRe  = regexp.MustCompile(`\b(1Z[A-Z0-9]{16})\b`)
	uspsTrackingRe = regexp.MustCompile(`\b(9[24]\d{20,22})\b`)
	dollarAmountRe = regexp.MustCompile(`\$\s*(\d{1,3}(?:,\d{3})*(?:\.\d{2})?)`)
	accountTailRe  = regexp.MustCompile(`(?i)account\s+ending\s+in\s+(\d{4})|\*{3,}(\d{4})`)
	dueDateRe      = regexp.MustCompile(`(?i)due\s*(?:date|by)?[:\s]*(\d{1,2}[/-]\d{1,2}(?:[/-]\d{2,4})?)`)
	clockTimeRe    = regexp.MustCompile(`\b(\d{1,2}:\d{2}\s*(?:AM|PM|am|pm))\b`)
	flightNumberRe = regexp.MustCompile(`\b([A-Z]{2}\d{1,4})\b`)
)

const (
	significantUSD      = 100.0
	multiExceptionBonus = 5
)

var shippingKeywords = []string{
	"shipped", "delivered", "tracking", "out for delivery", "in transit",
	"package", "shipment",
}

var financialKeywords = []string{
	"payment", "statement", "balance", "transaction", "invoice", "billing",
	"charged", "refund", "autopay", "amount due",
}

var appointmentKeywords = []string{
	"appointment", "reservation", "booking", "scheduled for", "confirmed for",
	"upcoming visit",
}

var travelKeywords = []string{
	"flight", "itinerary", "boarding pass", "hotel", "check-in", "airline",
	"departure", "arrival", "gate", "terminal",
}

var securityKeywords = []string{
	"password reset", "verify your", "security alert", "unusual activity",
	"sign-in attempt", "two-factor", "verification code", "unauthorized",
}

var legalKeywords = []string{
	"terms of service", "privacy policy", "contract", "policy update",
	"action required", "respond by", "deadline", "legal notice",
	"final notice",
}

var urgentLegalKeywords = map[string]bool{
	"action required": true,
	"respond by":      true,
	"deadline":        true,
	"final notice":    true,
}

// DetectExceptions scans a message's subject and snippet for signals that
// it should be kept: order and tracking numbers, money amounts, masked
// account numbers, appointments, travel details, security and legal
// notices. One exception per type survives, keeping the highest severity.
func DetectExceptions(msg snapshot.Message) ExceptionReport {
	text := msg.Subject + " " + msg.Snippet
	lower := strings.ToLower(text)
	if strings.TrimSpace(text) == "" {
		return ExceptionReport{}
	}

	var found []Exception
	found = append(found, detectOrderShipping(text, lower)...)
	found = append(found, detectFinancial(text, lower)...)
	found = append(found, detectAppointments(text, lower)...)
	found = append(found, detectTravel(text, lower)...)
	if kw := firstKeyword(lower, securityKeywords); kw != "" {
		found = append(found, Exception{Type: "security", Detail: "contains " + strconv.Quote(kw), Severity: 60})
	}
	if kw := firstKeyword(lower, legalKeywords); kw != "" {
		sev := 45
		if urgentLegalKeywords[kw] {
			sev = 60
		}
		found = append(found, Exception{Type: "legal", Detail: "contains " + strconv.Quote(kw), Severity: sev})
	}
	if msg.HasAttachment {
		found = append(found, Exception{Type: "attachment", Detail: "has attachment", Severity: 30})
	}

	byType := map[string]Exception{}
	for _, e := range found {
		if cur, ok := byType[e.Type]; !ok || e.Severity > cur.Severity {
			byType[e.Type] = e
		}
	}
	unique := make([]Exception, 0, len(byType))
	for _, e := range byType {
		unique = append(unique, e)
	}
	sort.Slice(unique, func(i, j int) bool {
		if unique[i].Severity == unique[j].Severity {
			return unique[i].Type < unique[j].Type
		}
		return unique[i].Severity > unique[j].Severity
	})

	score := 0
	if len(unique) > 0 {
		score = unique[0].Severity + min((len(unique)-1)*multiExceptionBonus, 10)
		if score > 100 {
			score = 100
		}
	}
	return ExceptionReport{Exceptions: unique, Score: score}
}

func detectOrderShipping(text, lower string) []Exception {
	var out []Exception
	if m := orderNumberRe.FindStringSubmatch(text); m != nil {
		out = append(out, Exception{Type: "order", Detail: "order #" + m[1], Severity: 40})
	} else if m := confirmationRe.FindStringSubmatch(text); m != nil {
		out = append(out, Exception{Type: "order", Detail: "confirmation " + m[1], Severity: 40})
	}
	if m := upsTrackingRe.FindStringSubmatch(text); m != nil {
		out = append(out, Exception{Type: "tracking", Detail: "UPS " + m[1], Severity: 45})
	} else if m := uspsTrackingRe.FindStringSubmatch(text); m != nil {
		out = append(out, Exception{Type: "tracking", Detail: "USPS " + m[1], Severity: 45})
	}
	if len(out) == 0 {
		if kw := firstKeyword(lower, shippingKeywords); kw != "" {
			out = append(out, Exception{Type: "shipping", Detail: "contains " + strconv.Quote(kw), Severity: 25})
		}
	}
	return out
}

func detectFinancial(text, lower string) []Exception {
	var out []Exception
	if amount, ok := maxDollarAmount(text); ok && amount >= significantUSD {
		out = append(out, Exception{
			Type:     "amount",
			Detail:   fmt.Sprintf("mentions $%.2f", amount),
			Severity: 50,
		})
	}
	if m := accountTailRe.FindStringSubmatch(text); m != nil {
		tail := m[1]
		if tail == "" {
			tail = m[2]
		}
		out = append(out, Exception{Type: "account", Detail: "account ending " + tail, Severity: 40})
	}
	if strings.Contains(lower, "due date") || strings.Contains(lower, "payment due") {
		if m := dueDateRe.FindStringSubmatch(text); m != nil {
			out = append(out, Exception{Type: "bill", Detail: "due " + m[1], Severity: 55})
		} else {
			out = append(out, Exception{Type: "bill", Detail: "mentions a due date", Severity: 45})
		}
	}
	if len(out) == 0 {
		if kw := firstKeyword(lower, financialKeywords); kw != "" {
			out = append(out, Exception{Type: "financial", Detail: "contains " + strconv.Quote(kw), Severity: 20})
		}
	}
	return out
}

func detectAppointments(text, lower string) []Exception {
	kw := firstKeyword(lower, appointmentKeywords)
	if kw == "" {
		return nil
	}
	if m := clockTimeRe.FindStringSubmatch(text); m != nil {
		return []Exception{{Type: "appointment", Detail: "scheduled at " + m[1], Severity: 50}}
	}
	return []Exception{{Type: "appointment", Detail: "contains " + strconv.Quote(kw), Severity: 35}}
}

func detectTravel(text, lower string) []Exception {
	kw := firstKeyword(lower, travelKeywords)
	if kw == "" {
		return nil
	}
	if m := flightNumberRe.FindStringSubmatch(text); m != nil {
		return []Exception{{Type: "travel", Detail: "flight " + m[1], Severity: 55}}
	}
	return []Exception{{Type: "travel", Detail: "contains " + strconv.Quote(kw), Severity: 40}}
}

func maxDollarAmount(text string) (float64, bool) {
	best := 0.0
	ok := false
	for _, m := range dollarAmountRe.FindAllStringSubmatch(text, -1) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", ""), 64)
		if err != nil {
			continue
		}
		if !ok || v > best {
			best, ok = v, true
		}
	}
	return best, ok
}

func firstKeyword(lower string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return kw
		}
	}
	return ""
}
