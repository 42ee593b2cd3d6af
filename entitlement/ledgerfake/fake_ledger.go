package ledgerfake

import (
	"context"
	"sync"

	"github.com/jrsteele09/go-auth-session/entitlement"
)

var _ entitlement.PurchaseLedger = (*FakeLedger)(nil)

// FakeLedger returns a settable purchase state and counts queries.
type FakeLedger struct {
	lock    sync.Mutex
	state   entitlement.PurchaseState
	err     error
	queries int
}

func NewFakeLedger(state entitlement.PurchaseState) *FakeLedger {
	return &FakeLedger{state: state}
}

func (l *FakeLedger) PurchaseState(context.Context) (entitlement.PurchaseState, error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.queries++
	return l.state, l.err
}

func (l *FakeLedger) Set(state entitlement.PurchaseState) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.state = state
}

// Fail makes every following query return err. A nil err clears it.
func (l *FakeLedger) Fail(err error) {
	l.lock.Lock()
	defer l.lock.Unlock()
	l.err = err
}

func (l *FakeLedger) Queries() int {
	l.lock.Lock()
	defer l.lock.Unlock()
	return l.queries
}
