package collection

import "sync"

// keyedRWMutex hands out one RWMutex per name and forgets it once unused.
type keyedRWMutex struct {
	mu    sync.Mutex
	locks map[string]*refRWMutex
}

type refRWMutex struct {
	sync.RWMutex
	refs int
}

func (k *keyedRWMutex) acquire(name string) *refRWMutex {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.locks == nil {
		k.locks = make(map[string]*refRWMutex)
	}
	l, ok := k.locks[name]
	if !ok {
		l = &refRWMutex{}
		k.locks[name] = l
	}
	l.refs++
	return l
}

func (k *keyedRWMutex) release(name string, l *refRWMutex) {
	k.mu.Lock()
	defer k.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, name)
	}
}

// Lock takes the exclusive side for name and returns its unlock func.
func (k *keyedRWMutex) Lock(name string) func() {
	l := k.acquire(name)
	l.Lock()
	return func() {
		l.Unlock()
		k.release(name, l)
	}
}

// RLock takes the shared side for name and returns its unlock func.
func (k *keyedRWMutex) RLock(name string) func() {
	l := k.acquire(name)
	l.RLock()
	return func() {
		l.RUnlock()
		k.release(name, l)
	}
}

func (k *keyedRWMutex) size() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return len(k.locks)
}
