package models

import (
	"testing"
	"time"
)

func TestBaseModelBeforeCreateGeneratesUUID(t *testing.T) {
	var base BaseModel
	if err := base.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if base.UUID == "" {
		t.Fatal("expected base model UUID to be generated")
	}

	existing := BaseModel{UUID: "fixed"}
	if err := existing.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if existing.UUID != "fixed" {
		t.Fatalf("expected UUID to be preserved, got %q", existing.UUID)
	}
}

func TestAuditLogBeforeCreateGeneratesUUID(t *testing.T) {
	var log AuditLog
	if err := log.BeforeCreate(nil); err != nil {
		t.Fatalf("before create: %v", err)
	}
	if log.UUID == "" {
		t.Fatal("expected audit log UUID to be generated")
	}
}

func TestParseInvitationStatus(t *testing.T) {
	status, ok := ParseInvitationStatus(" Pending ")
	if !ok || status != InvitationStatusPending {
		t.Fatalf("expected pending, got %q (%v)", status, ok)
	}
	if _, ok := ParseInvitationStatus("archived"); ok {
		t.Fatal("expected unknown status to be rejected")
	}
}

func TestInvitationIsExpiredAt(t *testing.T) {
	expires := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	inv := Invitation{ExpiresAt: expires}

	if inv.IsExpiredAt(expires.Add(-time.Second)) {
		t.Fatal("expected invitation to be valid before expiry")
	}
	if !inv.IsExpiredAt(expires) {
		t.Fatal("expected invitation to be expired at the expiry instant")
	}
	if !inv.IsExpiredAt(expires.Add(time.Minute)) {
		t.Fatal("expected invitation to be expired after expiry")
	}
}

func TestPendingKeyForNormalisesEmail(t *testing.T) {
	a := PendingKeyFor(7, " User@Example.com ")
	b := PendingKeyFor(7, "user@example.com")
	if *a != *b || *a != "7:user@example.com" {
		t.Fatalf("unexpected pending keys %q / %q", *a, *b)
	}
	if *PendingKeyFor(8, "user@example.com") == *a {
		t.Fatal("expected namespaces to produce distinct keys")
	}
}

func TestNamespaceMemberIsActive(t *testing.T) {
	var nilMember *NamespaceMember
	if nilMember.IsActive() {
		t.Fatal("nil membership must not be active")
	}
	for status, want := range map[MemberStatus]bool{
		MemberStatusActive:    true,
		MemberStatusSuspended: true,
		MemberStatusRemoved:   false,
	} {
		m := &NamespaceMember{Status: status}
		if got := m.IsActive(); got != want {
			t.Fatalf("status %s: IsActive = %v, want %v", status, got, want)
		}
	}
}

func TestUserDisplayName(t *testing.T) {
	cases := map[string]User{
		"Ada Lovelace":    {FirstName: "Ada", LastName: "Lovelace", Email: "ada@example.com"},
		"Ada":             {FirstName: "Ada", Email: "ada@example.com"},
		"ada@example.com": {Email: "ada@example.com"},
	}
	for want, user := range cases {
		if got := user.DisplayName(); got != want {
			t.Fatalf("DisplayName = %q, want %q", got, want)
		}
	}
}
