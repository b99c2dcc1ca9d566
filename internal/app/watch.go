package app

import tea "github.com/charmbracelet/bubbletea"

// Subscriber is a store that reports changes.
type Subscriber interface {
	Subscribe(fn func()) (unsubscribe func())
}

// Watch forwards changes on any of stores to send as a StoreChangedMsg.
// Bursts of changes coalesce into one message, and store mutators never
// block on the program. The returned func stops forwarding.
func Watch(send func(tea.Msg), stores ...Subscriber) (stop func()) {
	pending := make(chan struct{}, 1)
	done := make(chan struct{})

	notify := func() {
		select {
		case pending <- struct{}{}:
		default:
		}
	}

	unsubs := make([]func(), 0, len(stores))
	for _, s := range stores {
		unsubs = append(unsubs, s.Subscribe(notify))
	}

	go func() {
		for {
			select {
			case <-done:
				return
			case <-pending:
				send(StoreChangedMsg{})
			}
		}
	}()

	return func() {
		for _, u := range unsubs {
			u()
		}
		close(done)
	}
}
