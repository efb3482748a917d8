package ledger

import "errors"

// ErrInsufficientBalance is returned by Screen when a buy's effective cost
// exceeds the client's cash balance.
var ErrInsufficientBalance = errors.New("ledger: insufficient balance")

// ErrInsufficientHolding is returned by Screen when a sell's volume
// exceeds the client's holding in that symbol.
var ErrInsufficientHolding = errors.New("ledger: insufficient holding")

// ErrUnknownClient is returned when an operation names a csid the ledger
// has never registered.
var ErrUnknownClient = errors.New("ledger: unknown client")
