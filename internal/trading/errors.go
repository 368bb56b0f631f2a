package trading

import "errors"

// ErrStopTriggered unwinds a price-feed processing loop once a stop
// condition has been met and the stop callback has already run.
var ErrStopTriggered = errors.New("stop triggered")
