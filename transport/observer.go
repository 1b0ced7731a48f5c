package transport

import "github.com/MrEthical07/mkclient/signal"

// Observer receives classification outcomes, typically to update metrics.
type Observer interface {
	Classified(kind signal.Kind)
	Suppressed(kind signal.Kind)
	Retried()
	Navigated()
}

type noopObserver struct{}

func (noopObserver) Classified(signal.Kind) {}
func (noopObserver) Suppressed(signal.Kind) {}
func (noopObserver) Retried() {}
func (noopObserver) Navigated() {}
