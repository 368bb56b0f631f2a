package community

import (
	"errors"
	"fmt"
)

// ErrBot marks failures caused by incomplete hosted account state rather
// than by the remote service. Outside of cloud deployments these are
// expected and silently skipped.
var ErrBot = errors.New("bot update unavailable")

var (
	ErrNoSelectedBot               = fmt.Errorf("no selected bot: %w", ErrBot)
	ErrMissingDeployment           = fmt.Errorf("no deployment is set for the current bot: %w", ErrBot)
	ErrMissingProductsSubscription = fmt.Errorf("no products subscription found for the current bot: %w", ErrBot)
)
