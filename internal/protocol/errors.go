package protocol

const (
	// Protocol/transport validation.
	ErrProtoBadRequest = "E_PROTO_BAD_REQUEST"
	ErrRateLimited     = "E_RATE_LIMITED"

	// Command layer.
	ErrBadRequest = "E_BAD_REQUEST"
	ErrBadState   = "E_BAD_STATE"
	ErrPending    = "E_PENDING"
	ErrNoPending  = "E_NO_PENDING"
	ErrInternal   = "E_INTERNAL"

	// Construction areas.
	ErrAreaNotFound = "E_AREA_NOT_FOUND"
	ErrAreaLocked   = "E_AREA_LOCKED"
	ErrOccupied     = "E_OCCUPIED"
	ErrEmptyArea    = "E_EMPTY_AREA"

	// Economy.
	ErrInsufficientFunds = "E_INSUFFICIENT_FUNDS"
	ErrStockExhausted    = "E_STOCK_EXHAUSTED"
	ErrStockFull         = "E_STOCK_FULL"
	ErrNotListed         = "E_NOT_LISTED"
)

var knownCodes = map[string]struct{}{
	ErrProtoBadRequest:   {},
	ErrRateLimited:       {},
	ErrBadRequest:        {},
	ErrBadState:          {},
	ErrPending:           {},
	ErrNoPending:         {},
	ErrInternal:          {},
	ErrAreaNotFound:      {},
	ErrAreaLocked:        {},
	ErrOccupied:          {},
	ErrEmptyArea:         {},
	ErrInsufficientFunds: {},
	ErrStockExhausted:    {},
	ErrStockFull:         {},
	ErrNotListed:         {},
}

func IsKnownCode(code string) bool {
	if code == "" {
		return true
	}
	_, ok := knownCodes[code]
	return ok
}
