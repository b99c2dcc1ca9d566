// Package store holds the popup's state containers: the live session pushed
// and pulled from the background, the user's settings, and display
// preferences. Each store is constructed once per process and shared by
// reference; readers register for change notifications with Subscribe.
package store

import "sync"

// observers is a set of change callbacks. Callbacks run synchronously on the
// mutating goroutine, after the store lock has been released.
type observers struct {
	mu     sync.Mutex
	nextID int
	fns    map[int]func()
}

func (o *observers) subscribe(fn func()) func() {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.fns == nil {
		o.fns = make(map[int]func())
	}
	id := o.nextID
	o.nextID++
	o.fns[id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.fns, id)
			o.mu.Unlock()
		})
	}
}

func (o *observers) notify() {
	o.mu.Lock()
	fns := make([]func(), 0, len(o.fns))
	for _, fn := range o.fns {
		fns = append(fns, fn)
	}
	o.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
