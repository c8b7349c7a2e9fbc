package identity

import (
	"sync"

	verifErrors "github.com/kycdao/kycdao-go/services/verification/errors"
	"github.com/kycdao/kycdao-go/types"
)

// SessionData caches a cancelled provider inquiry so a later launch can
// reattach to it instead of starting a new one.
type SessionData struct {
	InquiryID    string
	SessionToken string
}

// Coordinator serializes identity flow launches for one verification session
// and caches resumable provider sessions keyed by the user's external
// reference id. Only one flow may be outstanding at a time; a concurrent
// second launch is refused rather than overwriting the pending one.
type Coordinator struct {
	mu        sync.Mutex
	inFlight  bool
	resumable map[string]SessionData
}

func NewCoordinator() *Coordinator {
	return &Coordinator{
		resumable: make(map[string]SessionData),
	}
}

// Begin claims the single flow slot and returns any cached session data for
// the reference id. Returns ErrIdentityFlowBusy when a flow is outstanding.
func (c *Coordinator) Begin(referenceID string) (SessionData, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.inFlight {
		return SessionData{}, verifErrors.ErrIdentityFlowBusy{}
	}
	c.inFlight = true

	return c.resumable[referenceID], nil
}

// Finish releases the flow slot and updates the resume cache from the
// provider's result. A cancellation with inquiry data is kept for resuming;
// a completion clears any cached inquiry for the reference id.
func (c *Coordinator) Finish(referenceID string, result *types.IdentityFlowResult) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.inFlight = false

	if result == nil {
		return
	}

	switch result.Status {
	case types.IdentityFlowCancelled:
		if result.InquiryID != "" {
			c.resumable[referenceID] = SessionData{
				InquiryID:    result.InquiryID,
				SessionToken: result.SessionToken,
			}
		}
	case types.IdentityFlowCompleted:
		delete(c.resumable, referenceID)
	}
}
