package plic

import (
	"sync"

	"github.com/tinyrange/plic/internal/irq"
)

// Locker is an interrupt-disable style critical section: Lock masks the
// contexts that could race the caller and returns a key that Unlock uses to
// restore the previous state. *irq.CPU implements it.
type Locker interface {
	Lock() irq.Key
	Unlock(irq.Key)
}

// globalGuard is used by controllers that were not given a Locker. Like the
// CPU's interrupt mask it is global and not reentrant.
var globalGuard sync.Mutex

type mutexLocker struct{}

func (mutexLocker) Lock() irq.Key {
	globalGuard.Lock()
	return 0
}

func (mutexLocker) Unlock(irq.Key) {
	globalGuard.Unlock()
}
