// Package taxonomy assigns every message exactly one category using an
// ordered rule table evaluated top to bottom, first match wins.
package taxonomy

import (
	"strings"

	"github.com/mailsift/mailsift/internal/snapshot"
)

// Category is the closed set of message categories.
type Category string

const (
	Automated     Category = "automated"
	Financial     Category = "financial"
	Travel        Category = "travel"
	Transactional Category = "transactional"
	Social        Category = "social"
	Newsletter    Category = "newsletter"
	Marketing     Category = "marketing"
	Professional  Category = "professional"
	Personal      Category = "personal"
)

// Categories lists every category in rule-precedence order.
func Categories() []Category {
	return []Category{
		Automated, Financial, Travel, Transactional, Social,
		Newsletter, Marketing, Professional, Personal,
	}
}

// signals are the lowercased views of a message a rule predicate sees.
type signals struct {
	sender     string
	subject    string
	content    string // subject + snippet
	userDomain string
}

type rule struct {
	category Category
	match    func(signals) bool
}

var automatedSenders = []string{
	"noreply@", "no-reply@", "no_reply@", "donotreply@", "do-not-reply@",
	"mailer-daemon@", "notifications@", "notification@", "alerts@",
}

var automatedMarkers = []string{
	"password reset", "verify your", "verification code", "security alert",
	"sign-in attempt", "login attempt", "two-factor", "confirm your identity",
}

var financialDomains = []string{
	"chase.com", "wellsfargo.com", "bankofamerica.com", "citi.com",
	"capitalone.com", "paypal.com", "stripe.com", "venmo.com", "fidelity.com",
	"vanguard.com", "schwab.com", "americanexpress.com", "discover.com",
}

var financialMarkers = []string{
	"statement is ready", "payment due", "amount due", "account balance",
	"direct deposit", "transaction alert", "autopay",
}

var travelMarkers = []string{
	"itinerary", "boarding pass", "flight confirmation", "check-in",
	"hotel reservation", "booking confirmation", "departure", "your trip",
}

var transactionalMarkers = []string{
	"receipt", "order #", "order confirmation", "your order", "invoice",
	"shipped", "out for delivery", "delivered", "tracking number",
	"confirmation number", "payment received",
}

var socialDomains = []string{
	"facebookmail.com", "linkedin.com", "twitter.com", "x.com",
	"instagram.com", "pinterest.com", "reddit.com", "redditmail.com",
	"discord.com", "slack.com", "meetup.com", "nextdoor.com",
}

var newsletterMarkers = []string{
	"newsletter", "digest", "weekly roundup", "this week in", "daily brief",
	"edition", "issue #", "top stories",
}

var marketingMarkers = []string{
	"unsubscribe", "% off", "sale ends", "limited time", "special offer",
	"discount", "promo code", "free shipping", "deal of", "don't miss",
	"last chance",
}

// rules is the precedence table. Order is load-bearing: Automated >
// Financial > Travel > Transactional > Social > Newsletter > Marketing >
// Professional > Personal. Ties within a tier resolve by declaration order.
var rules = []rule{
	{Automated, func(s signals) bool {
		return containsAny(s.sender, automatedSenders) || containsAny(s.content, automatedMarkers)
	}},
	{Financial, func(s signals) bool {
		return hasDomain(s.sender, financialDomains) || containsAny(s.content, financialMarkers)
	}},
	{Travel, func(s signals) bool {
		return containsAny(s.content, travelMarkers)
	}},
	{Transactional, func(s signals) bool {
		return containsAny(s.content, transactionalMarkers)
	}},
	{Social, func(s signals) bool {
		return hasDomain(s.sender, socialDomains)
	}},
	{Newsletter, func(s signals) bool {
		return containsAny(s.content, newsletterMarkers)
	}},
	{Marketing, func(s signals) bool {
		return containsAny(s.content, marketingMarkers)
	}},
	{Professional, func(s signals) bool {
		return s.userDomain != "" && strings.HasSuffix(s.sender, "@"+s.userDomain)
	}},
}

// Classify returns the category for a message. It is total and
// deterministic: when no rule matches, the message is Personal.
func Classify(msg snapshot.Message, userDomain string) Category {
	subject := strings.ToLower(msg.Subject)
	s := signals{
		sender:     strings.ToLower(msg.Sender),
		subject:    subject,
		content:    subject + " " + strings.ToLower(msg.Snippet),
		userDomain: strings.ToLower(strings.TrimSpace(userDomain)),
	}
	for _, r := range rules {
		if r.match(s) {
			return r.category
		}
	}
	return Personal
}

// ClassifyAll maps message ID to category for a whole snapshot.
func ClassifyAll(snap *snapshot.Snapshot, userDomain string) map[string]Category {
	out := make(map[string]Category, len(snap.Messages))
	for _, m := range snap.Messages {
		out[m.ID] = Classify(m, userDomain)
	}
	return out
}

func containsAny(text string, markers []string) bool {
	for _, m := range markers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

func hasDomain(sender string, domains []string) bool {
	at := strings.LastIndex(sender, "@")
	if at < 0 {
		return false
	}
	dom := sender[at+1:]
	for _, d := range domains {
		if dom == d || strings.HasSuffix(dom, "."+d) {
			return true
		}
	}
	return false
}
