package domain

import "errors"

// Sentinel error kinds. Wrap with fmt.Errorf("%w: ...") for
// context; callers test with errors.Is.
var (
	ErrSymbolParse                = errors.New("symbol parse error")
	ErrContractNotFound           = errors.New("contract not found")
	ErrOrderRejected              = errors.New("order rejected")
	ErrGatewayDisconnected        = errors.New("gateway disconnected")
	ErrPersistenceIO              = errors.New("persistence io error")
	ErrStrategyUser               = errors.New("strategy user error")
	ErrInvalidLifecycleTransition = errors.New("invalid lifecycle transition")
)
