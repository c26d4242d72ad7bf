package domain

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestEventConstruction_AssignsIdentityAndTime(t *testing.T) {
	userID := uuid.New()
	before := time.Now().UTC()
	e := NewUserCreated(userID, "Alice", "alice@example.com")
	after := time.Now().UTC()

	if e.EventID() == uuid.Nil {
		t.Fatal("event id was not assigned")
	}
	if e.When().Before(before) || e.When().After(after) {
		t.Errorf("occurred_at %v outside [%v, %v]", e.When(), before, after)
	}
	if e.UserID != userID {
		t.Errorf("user id mismatch: got %v, want %v", e.UserID, userID)
	}
	if e.Kind() != KindUserCreated {
		t.Errorf("kind mismatch: got %s", e.Kind())
	}
}

func TestEncodeDecode_GroupCreatedRoundTrip(t *testing.T) {
	original := NewGroupCreated(uuid.New(), uuid.New(), "Trip", Color{R: 0, G: 255, B: 0})

	payload, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEvent(original.Kind(), payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}

	got, ok := decoded.(GroupCreated)
	if !ok {
		t.Fatalf("decoded to %T, want GroupCreated", decoded)
	}
	if !reflect.DeepEqual(got, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", got, original)
	}
}

func TestEncodeDecode_GroupSettledRoundTrip(t *testing.T) {
	transactions := []Transaction{
		{From: uuid.New(), To: uuid.New(), AmountCents: 1250},
	}
	original := NewGroupSettled(uuid.New(), uuid.New(), uuid.New(),
		time.Now().UTC().Add(-time.Hour), time.Now().UTC(), transactions)

	payload, err := EncodeEvent(original)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	decoded, err := DecodeEvent(original.Kind(), payload)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !reflect.DeepEqual(decoded, original) {
		t.Errorf("round trip mismatch:\n got %+v\nwant %+v", decoded, original)
	}
}

func TestDecodeEvent_UnknownKind(t *testing.T) {
	_, err := DecodeEvent(Kind("group.renamed"), []byte(`{}`))
	if !errors.Is(err, ErrUnknownKind) {
		t.Fatalf("expected ErrUnknownKind, got %v", err)
	}
}
