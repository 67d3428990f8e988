package model

import (
	"testing"
	"time"
)

func TestStatusAdvancesIsMonotonic(t *testing.T) {
	cases := []struct {
		from, next string
		want       bool
	}{
		{StatusScheduled, StatusSent, true},
		{StatusSent, StatusDelivered, true},
		{StatusSent, StatusRead, true},
		{StatusDelivered, StatusRead, true},
		{StatusRead, StatusDelivered, false},
		{StatusRead, StatusSent, false},
		{StatusDelivered, StatusSent, false},
		{StatusSent, StatusSent, false},
		{StatusSent, StatusScheduled, false},
	}
	for _, c := range cases {
		if got := StatusAdvances(c.from, c.next); got != c.want {
			t.Errorf("StatusAdvances(%q, %q) = %v, want %v", c.from, c.next, got, c.want)
		}
	}
}

func TestExpiredEphemeral(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)
	future := now.Add(time.Second)

	if (&Message{}).ExpiredEphemeral(now) {
		t.Error("message without expiry reported expired")
	}
	if !(&Message{EphemeralExpiresAt: &past}).ExpiredEphemeral(now) {
		t.Error("past expiry not reported expired")
	}
	if (&Message{EphemeralExpiresAt: &future}).ExpiredEphemeral(now) {
		t.Error("future expiry reported expired")
	}
}

func TestConversationIsAdmin(t *testing.T) {
	group := &Conversation{
		Type:         ConversationGroup,
		Participants: []string{"alice", "bob", "carol"},
		Owner:        "alice",
		Admins:       []string{"alice", "carol"},
	}
	if !group.IsAdmin("alice") || !group.IsAdmin("carol") {
		t.Error("owner or listed admin not recognized")
	}
	if group.IsAdmin("bob") {
		t.Error("plain member recognized as group admin")
	}

	private := &Conversation{
		Type:         ConversationPrivate,
		Participants: []string{"alice", "bob"},
	}
	if !private.IsAdmin("bob") {
		t.Error("participant of a private conversation should be admin")
	}
	if private.IsAdmin("mallory") {
		t.Error("outsider recognized as admin")
	}
}

func TestConversationExpired(t *testing.T) {
	now := time.Now()
	past := now.Add(-time.Second)

	secret := &Conversation{Type: ConversationSecret, ExpiresAt: &past}
	if !secret.Expired(now) {
		t.Error("expired secret not reported expired")
	}

	// only secret conversations expire
	private := &Conversation{Type: ConversationPrivate, ExpiresAt: &past}
	if private.Expired(now) {
		t.Error("non-secret conversation reported expired")
	}
}
