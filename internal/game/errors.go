package game

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"lodyland/internal/rules"
)

// Rejection reasons. Rule trees may add their own.
const (
	ReasonResourceUnknown   = "resource_unknown_or_disabled"
	ReasonLevelTooLow       = "level_too_low"
	ReasonUnlockConditions  = "unlock_conditions_not_met"
	ReasonLocked            = "locked"
	ReasonOnCooldown        = "on_cooldown"
	ReasonLandLocked        = "land_locked"
	ReasonLandUnknown       = "land_unknown"
	ReasonSlotOutOfRange    = "slot_out_of_range"
	ReasonUnknownTool       = "unknown_tool"
	ReasonTileNotFound      = "tile_not_found"
	ReasonNotEnoughStock    = "not_enough_stock"
	ReasonNotEnoughCoins    = "not_enough_coins"
	ReasonNotEnoughDiamonds = "not_enough_diams"
	ReasonNotEnoughResource = "not_enough_resource"
	ReasonMaxOwned          = "max_owned_reached"
	ReasonSoldOut           = "sold_out"
	ReasonPurchaseExpired   = "purchase_expired"
	ReasonNotForSale        = "not_for_sale"
	ReasonCardUnknown       = "card_unknown"
	ReasonAlreadyClaimed    = "already_claimed"
	ReasonInvalidQuantity   = "invalid_quantity"
	ReasonPlayerNotFound    = "player_not_found"
	ReasonNameTaken         = "name_taken"
	ReasonInvalidName       = "invalid_name"
)

// Rejection is an expected business-rule refusal. It carries a symbolic
// reason and the context a client needs to explain it.
type Rejection struct {
	Reason  string
	Details map[string]any
}

// Reject builds a Rejection from a reason and key/value detail pairs
func Reject(reason string, kv ...any) *Rejection {
	r := &Rejection{Reason: reason}
	for i := 0; i+1 < len(kv); i += 2 {
		key, ok := kv[i].(string)
		if !ok {
			continue
		}
		if r.Details == nil {
			r.Details = make(map[string]any)
		}
		r.Details[key] = kv[i+1]
	}
	return r
}

// RejectRule converts a failed rule evaluation into a Rejection
func RejectRule(f rules.Failure) *Rejection {
	reason := f.Reason
	if reason == "" {
		reason = ReasonUnlockConditions
	}
	r := &Rejection{Reason: reason}
	if len(f.Details) > 0 {
		r.Details = make(map[string]any, len(f.Details))
		for k, v := range f.Details {
			r.Details[k] = v
		}
	}
	return r
}

func (r *Rejection) Error() string {
	if len(r.Details) == 0 {
		return r.Reason
	}
	keys := make([]string, 0, len(r.Details))
	for k := range r.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, r.Details[k]))
	}
	return r.Reason + " (" + strings.Join(parts, ", ") + ")"
}

// AsRejection unwraps err to a Rejection if it is one
func AsRejection(err error) (*Rejection, bool) {
	var r *Rejection
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// IsReason reports whether err is a Rejection with the given reason
func IsReason(err error, reason string) bool {
	r, ok := AsRejection(err)
	return ok && r.Reason == reason
}
