// Package enums holds the closed token sets used by the inventory data model.
package enums

import (
	"fmt"

	"github.com/TakashiAihara/preppin-sub000/internal/schema"
)

// Enum is a closed, ordered, case-sensitive set of string tokens.
type Enum struct {
	Name   string
	Values []string
}

func New(name string, values ...string) Enum {
	return Enum{Name: name, Values: values}
}

// Contains reports whether v is one of the declared tokens.
func (e Enum) Contains(v string) bool {
	for _, value := range e.Values {
		if value == v {
			return true
		}
	}
	return false
}

// Schema returns a validator accepting exactly the declared tokens.
func (e Enum) Schema() *schema.EnumSchema {
	return schema.Enum(e.Name, e.Values...)
}

var (
	UserRole            = New("UserRole", "ADMIN", "EDITOR", "VIEWER")
	OrganizationPrivacy = New("OrganizationPrivacy", "PUBLIC", "PRIVATE")
	InvitationStatus    = New("InvitationStatus", "PENDING", "ACCEPTED", "REJECTED", "EXPIRED")
	ItemCategory        = New("ItemCategory", "FOOD", "DAILY_GOODS", "MEDICINE", "OTHER")
	ExpiryType          = New("ExpiryType", "EXPIRY", "BEST_BEFORE", "BOTH")
	ConsumptionReason   = New("ConsumptionReason", "USED", "EXPIRED", "DAMAGED", "DONATED", "OTHER")
	AuthProvider        = New("AuthProvider", "EMAIL", "GOOGLE", "APPLE")
	ActivityAction      = New("ActivityAction",
		"USER_REGISTERED",
		"USER_LOGIN",
		"USER_LOGOUT",
		"PASSWORD_RESET",
		"EMAIL_VERIFIED",
		"ORGANIZATION_CREATED",
		"ORGANIZATION_UPDATED",
		"ORGANIZATION_DELETED",
		"MEMBER_INVITED",
		"MEMBER_JOINED",
		"MEMBER_ROLE_CHANGED",
		"MEMBER_REMOVED",
		"ITEM_CREATED",
		"ITEM_UPDATED",
		"ITEM_DELETED",
		"ITEM_CONSUMED",
		"ALERT_LOW_STOCK",
		"ALERT_EXPIRING",
	)
)

// Query-shaping enums shared by every entity.
var (
	SortOrder  = New("SortOrder", "asc", "desc")
	NullsOrder = New("NullsOrder", "first", "last")
	QueryMode  = New("QueryMode", "default", "insensitive")
)

// Registry looks enums up by name, preserving declaration order.
type Registry struct {
	order  []string
	byName map[string]Enum
}

// NewRegistry rejects duplicate names and empty token sets.
func NewRegistry(enums ...Enum) (*Registry, error) {
	r := &Registry{byName: make(map[string]Enum, len(enums))}
	for _, e := range enums {
		if len(e.Values) == 0 {
			return nil, fmt.Errorf("enum %s has no values", e.Name)
		}
		if _, dup := r.byName[e.Name]; dup {
			return nil, fmt.Errorf("duplicate enum %s", e.Name)
		}
		seen := make(map[string]struct{}, len(e.Values))
		for _, v := range e.Values {
			if _, dup := seen[v]; dup {
				return nil, fmt.Errorf("enum %s declares %s twice", e.Name, v)
			}
			seen[v] = struct{}{}
		}
		r.order = append(r.order, e.Name)
		r.byName[e.Name] = e
	}
	return r, nil
}

// Domain returns the inventory model's enums.
func Domain() *Registry {
	r, err := NewRegistry(
		UserRole,
		OrganizationPrivacy,
		InvitationStatus,
		ItemCategory,
		ExpiryType,
		ConsumptionReason,
		AuthProvider,
		ActivityAction,
	)
	if err != nil {
		panic(err)
	}
	return r
}

func (r *Registry) Get(name string) (Enum, bool) {
	e, ok := r.byName[name]
	return e, ok
}

// All returns the enums in declaration order.
func (r *Registry) All() []Enum {
	out := make([]Enum, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.byName[name])
	}
	return out
}
