package safety

import (
	"testing"

	"github.com/mailsift/mailsift/internal/snapshot"
)

func TestDetectExceptionsTable(t *testing.T) {
	tests := []struct {
		name     string
		msg      snapshot.Message
		wantType string
		wantSev  int
	}{
		{
			name:     "order-number",
			msg:      snapshot.Message{Subject: "Your order #123456 has been placed"},
			wantType: "order",
			wantSev:  40,
		},
		{
			name:     "ups-tracking",
			msg:      snapshot.Message{Snippet: "Track it: 1Z999AA10123456784 today"},
			wantType: "tracking",
			wantSev:  45,
		},
		{
			name:     "large-amount",
			msg:      snapshot.Message{Subject: "Payment of $1,234.56 processed"},
			wantType: "amount",
			wantSev:  50,
		},
		{
			name:     "small-amount-is-generic-financial",
			msg:      snapshot.Message{Subject: "Refund of $12.99 issued"},
			wantType: "financial",
			wantSev:  20,
		},
		{
			name:     "account-tail",
			msg:      snapshot.Message{Snippet: "card account ending in 4242"},
			wantType: "account",
			wantSev:  40,
		},
		{
			name:     "bill-with-date",
			msg:      snapshot.Message{Subject: "Payment due 06/15"},
			wantType: "bill",
			wantSev:  55,
		},
		{
			name:     "appointment-with-time",
			msg:      snapshot.Message{Subject: "Appointment confirmed", Snippet: "See you at 2:30 PM"},
			wantType: "appointment",
			wantSev:  50,
		},
		{
			name:     "flight",
			msg:      snapshot.Message{Subject: "Flight UA1234 departure update"},
			wantType: "travel",
			wantSev:  55,
		},
		{
			name:     "security",
			msg:      snapshot.Message{Subject: "Unusual activity on your account"},
			wantType: "security",
			wantSev:  60,
		},
		{
			name:     "urgent-legal",
			msg:      snapshot.Message{Subject: "Action required: confirm your plan"},
			wantType: "legal",
			wantSev:  60,
		},
	}
	for _, tt := range tests {
		tc := tt
		t.Run(tc.name, func(t *testing.T) {
			rep := DetectExceptions(tc.msg)
			if len(rep.Exceptions) == 0 {
				t.Fatalf("no exceptions found")
			}
			found := false
			for _, e := range rep.Exceptions {
				if e.Type == tc.wantType {
					found = true
					if e.Severity != tc.wantSev {
						t.Fatalf("%s severity %d, want %d", e.Type, e.Severity, tc.wantSev)
					}
				}
			}
			if !found {
				t.Fatalf("missing %q exception in %+v", tc.wantType, rep.Exceptions)
			}
		})
	}
}

func TestDetectExceptionsEmptyMessage(t *testing.T) {
	rep := DetectExceptions(snapshot.Message{})
	if len(rep.Exceptions) != 0 || rep.Score != 0 {
		t.Fatalf("expected empty report, got %+v", rep)
	}
}

func TestDetectExceptionsScore(t *testing.T) {
	// Two distinct types: max severity plus one multi-exception bonus.
	msg := snapshot.Message{
		Subject: "Order #987654 shipped",
		Snippet: "Tracking 1Z999AA10123456784 in transit",
	}
	rep := DetectExceptions(msg)
	if len(rep.Exceptions) != 2 {
		t.Fatalf("got %d exceptions, want 2: %+v", len(rep.Exceptions), rep.Exceptions)
	}
	if rep.Exceptions[0].Type != "tracking" {
		t.Fatalf("highest severity first, got %s", rep.Exceptions[0].Type)
	}
	if rep.Score != 50 {
		t.Fatalf("score %d, want 50", rep.Score)
	}
}

func TestDetectExceptionsDedupesByType(t *testing.T) {
	// An order number and a confirmation number both map to "order"; only
	// one survives in the report.
	msg := snapshot.Message{Subject: "Order #555555, confirmation ABC123XY"}
	rep := DetectExceptions(msg)
	orders := 0
	for _, e := range rep.Exceptions {
		if e.Type == "order" {
			orders++
		}
	}
	if orders != 1 {
		t.Fatalf("got %d order exceptions, want 1", orders)
	}
}
