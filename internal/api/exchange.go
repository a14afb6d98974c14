package api

import "github.com/julianstephens/habitual/internal/logger"

// ExchangeState is the lifecycle of one logical request
type ExchangeState int

const (
	StateSent ExchangeState = iota
	StateRetrying
	StateResolved
	StateFailed
)

func (s ExchangeState) String() string {
	switch s {
	case StateSent:
		return "sent"
	case StateRetrying:
		return "retrying"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// exchange tracks a single logical request across at most one credential retry.
// Every attempt replays the same encoded body and request ID.
type exchange struct {
	id       string
	req      Request
	body     []byte
	state    ExchangeState
	attempts int
	log      *logger.Scope
}

func (x *exchange) settle(resp response) (response, error) {
	if !resp.ok() {
		return response{}, x.fail(newError(x.req.Method, x.req.Path, resp.status, resp.body))
	}
	x.state = StateResolved
	x.log.Debug("request resolved", "status", resp.status, "attempts", x.attempts)
	return resp, nil
}

func (x *exchange) fail(err error) error {
	x.state = StateFailed
	x.log.Debug("request failed", "attempts", x.attempts, "error", err)
	return err
}
