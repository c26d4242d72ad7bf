package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Kind is the discriminant stored alongside a serialized event.
type Kind string

const (
	KindUserCreated   Kind = "user.created"
	KindUserLoggedIn  Kind = "user.logged_in"
	KindUserLoggedOut Kind = "user.logged_out"
	KindUserDeleted   Kind = "user.deleted"

	KindGroupCreated       Kind = "group.created"
	KindMemberJoined       Kind = "group.member_joined"
	KindMemberColorChanged Kind = "group.member_color_changed"
	KindExpenseCreated     Kind = "group.expense_created"
	KindExpenseModified    Kind = "group.expense_modified"
	KindExpenseDeleted     Kind = "group.expense_deleted"
	KindGroupSettled       Kind = "group.settled"
	KindGroupDeleted       Kind = "group.deleted"
)

// ErrUnknownKind is returned when a stored discriminant maps to no event type.
var ErrUnknownKind = errors.New("unknown event kind")

// Event is the closed set of domain events. Concrete types embed either
// UserEvent or GroupEvent; the marker method keeps the set closed to this
// package.
type Event interface {
	EventID() uuid.UUID
	When() time.Time
	Kind() Kind
	isEvent()
}

// UserEvent is the shared part of every user-aggregate event.
type UserEvent struct {
	ID         uuid.UUID `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	UserID     uuid.UUID `json:"user_id"`
}

func (e UserEvent) EventID() uuid.UUID { return e.ID }
func (e UserEvent) When() time.Time    { return e.OccurredAt }
func (e UserEvent) isEvent()           {}

// GroupEvent is the shared part of every group-aggregate event. MemberID is
// the member whose action produced the event.
type GroupEvent struct {
	ID         uuid.UUID `json:"id"`
	OccurredAt time.Time `json:"occurred_at"`
	GroupID    uuid.UUID `json:"group_id"`
	MemberID   uuid.UUID `json:"member_id"`
}

func (e GroupEvent) EventID() uuid.UUID { return e.ID }
func (e GroupEvent) When() time.Time    { return e.OccurredAt }
func (e GroupEvent) isEvent()           {}

func newUserEvent(userID uuid.UUID) UserEvent {
	return UserEvent{ID: uuid.New(), OccurredAt: time.Now().UTC(), UserID: userID}
}

func newGroupEvent(groupID, memberID uuid.UUID) GroupEvent {
	return GroupEvent{ID: uuid.New(), OccurredAt: time.Now().UTC(), GroupID: groupID, MemberID: memberID}
}

// --- User events ---

type UserCreated struct {
	UserEvent
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (UserCreated) Kind() Kind { return KindUserCreated }

func NewUserCreated(userID uuid.UUID, name, email string) UserCreated {
	return UserCreated{UserEvent: newUserEvent(userID), Name: name, Email: email}
}

type UserLoggedIn struct{ UserEvent }

func (UserLoggedIn) Kind() Kind { return KindUserLoggedIn }

func NewUserLoggedIn(userID uuid.UUID) UserLoggedIn {
	return UserLoggedIn{UserEvent: newUserEvent(userID)}
}

type UserLoggedOut struct{ UserEvent }

func (UserLoggedOut) Kind() Kind { return KindUserLoggedOut }

func NewUserLoggedOut(userID uuid.UUID) UserLoggedOut {
	return UserLoggedOut{UserEvent: newUserEvent(userID)}
}

type UserDeleted struct{ UserEvent }

func (UserDeleted) Kind() Kind { return KindUserDeleted }

func NewUserDeleted(userID uuid.UUID) UserDeleted {
	return UserDeleted{UserEvent: newUserEvent(userID)}
}

// --- Group events ---

type GroupCreated struct {
	GroupEvent
	Name  string `json:"name"`
	Color Color  `json:"color"`
}

func (GroupCreated) Kind() Kind { return KindGroupCreated }

func NewGroupCreated(groupID, creatorID uuid.UUID, name string, color Color) GroupCreated {
	return GroupCreated{GroupEvent: newGroupEvent(groupID, creatorID), Name: name, Color: color}
}

type MemberJoined struct {
	GroupEvent
	Color Color `json:"color"`
}

func (MemberJoined) Kind() Kind { return KindMemberJoined }

func NewMemberJoined(groupID, memberID uuid.UUID, color Color) MemberJoined {
	return MemberJoined{GroupEvent: newGroupEvent(groupID, memberID), Color: color}
}

type MemberColorChanged struct {
	GroupEvent
	Prev Color `json:"prev"`
	New  Color `json:"new"`
}

func (MemberColorChanged) Kind() Kind { return KindMemberColorChanged }

func NewMemberColorChanged(groupID, memberID uuid.UUID, prev, next Color) MemberColorChanged {
	return MemberColorChanged{GroupEvent: newGroupEvent(groupID, memberID), Prev: prev, New: next}
}

type ExpenseCreated struct {
	GroupEvent
	ExpenseID   uuid.UUID `json:"expense_id"`
	Description string    `json:"description"`
	AmountCents int64     `json:"amount_cents"`
	Date        time.Time `json:"date"`
}

func (ExpenseCreated) Kind() Kind { return KindExpenseCreated }

func NewExpenseCreated(groupID, memberID, expenseID uuid.UUID, description string, amountCents int64, date time.Time) ExpenseCreated {
	return ExpenseCreated{
		GroupEvent:  newGroupEvent(groupID, memberID),
		ExpenseID:   expenseID,
		Description: description,
		AmountCents: amountCents,
		Date:        date,
	}
}

type ExpenseModified struct {
	GroupEvent
	ExpenseID       uuid.UUID `json:"expense_id"`
	PrevDescription string    `json:"prev_description"`
	NewDescription  string    `json:"new_description"`
	PrevAmountCents int64     `json:"prev_amount_cents"`
	NewAmountCents  int64     `json:"new_amount_cents"`
}

func (ExpenseModified) Kind() Kind { return KindExpenseModified }

func NewExpenseModified(groupID, memberID, expenseID uuid.UUID, prevDesc, newDesc string, prevCents, newCents int64) ExpenseModified {
	return ExpenseModified{
		GroupEvent:      newGroupEvent(groupID, memberID),
		ExpenseID:       expenseID,
		PrevDescription: prevDesc,
		NewDescription:  newDesc,
		PrevAmountCents: prevCents,
		NewAmountCents:  newCents,
	}
}

type ExpenseDeleted struct {
	GroupEvent
	ExpenseID uuid.UUID `json:"expense_id"`
}

func (ExpenseDeleted) Kind() Kind { return KindExpenseDeleted }

func NewExpenseDeleted(groupID, memberID, expenseID uuid.UUID) ExpenseDeleted {
	return ExpenseDeleted{GroupEvent: newGroupEvent(groupID, memberID), ExpenseID: expenseID}
}

type GroupSettled struct {
	GroupEvent
	SettlementID uuid.UUID     `json:"settlement_id"`
	Start        time.Time     `json:"start"`
	End          time.Time     `json:"end"`
	Transactions []Transaction `json:"transactions"`
}

func (GroupSettled) Kind() Kind { return KindGroupSettled }

func NewGroupSettled(groupID, memberID, settlementID uuid.UUID, start, end time.Time, transactions []Transaction) GroupSettled {
	return GroupSettled{
		GroupEvent:   newGroupEvent(groupID, memberID),
		SettlementID: settlementID,
		Start:        start,
		End:          end,
		Transactions: transactions,
	}
}

type GroupDeleted struct{ GroupEvent }

func (GroupDeleted) Kind() Kind { return KindGroupDeleted }

func NewGroupDeleted(groupID, memberID uuid.UUID) GroupDeleted {
	return GroupDeleted{GroupEvent: newGroupEvent(groupID, memberID)}
}

// EncodeEvent serializes an event body for the durable log. The kind is
// stored separately so decoding can pick the right concrete type.
func EncodeEvent(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encode %s event: %w", e.Kind(), err)
	}
	return payload, nil
}

// DecodeEvent reconstructs a stored event body. An unrecognized kind means
// the log holds something this binary cannot represent; callers treat that
// as corrupted data, not as a transient failure.
func DecodeEvent(kind Kind, payload []byte) (Event, error) {
	switch kind {
	case KindUserCreated:
		return decodeAs[UserCreated](kind, payload)
	case KindUserLoggedIn:
		return decodeAs[UserLoggedIn](kind, payload)
	case KindUserLoggedOut:
		return decodeAs[UserLoggedOut](kind, payload)
	case KindUserDeleted:
		return decodeAs[UserDeleted](kind, payload)
	case KindGroupCreated:
		return decodeAs[GroupCreated](kind, payload)
	case KindMemberJoined:
		return decodeAs[MemberJoined](kind, payload)
	case KindMemberColorChanged:
		return decodeAs[MemberColorChanged](kind, payload)
	case KindExpenseCreated:
		return decodeAs[ExpenseCreated](kind, payload)
	case KindExpenseModified:
		return decodeAs[ExpenseModified](kind, payload)
	case KindExpenseDeleted:
		return decodeAs[ExpenseDeleted](kind, payload)
	case KindGroupSettled:
		return decodeAs[GroupSettled](kind, payload)
	case KindGroupDeleted:
		return decodeAs[GroupDeleted](kind, payload)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}

func decodeAs[T Event](kind Kind, payload []byte) (Event, error) {
	var v T
	if err := json.Unmarshal(payload, &v); err != nil {
		return nil, fmt.Errorf("decode %s event: %w", kind, err)
	}
	return v, nil
}
