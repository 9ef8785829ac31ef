package bidding

import "fmt"

// Validation errors returned to bid callers. They never mutate state.
var (
	ErrAuctionClosed = fmt.Errorf("auction is closed for bidding")
	ErrInvalidAmount = fmt.Errorf("bid amount must be exactly the current price plus one")
	ErrAlreadySold   = fmt.Errorf("lot has already been sold")
)
