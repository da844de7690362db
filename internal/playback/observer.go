package playback

import "github.com/verte-zerg/cadence/internal/model"

// Observer receives notifications from the run worker. Calls happen on the
// worker goroutine, in order; implementations must not block for long.
type Observer interface {
	OnProgress(done, total int)
	OnEvent(ev model.KeystrokeEvent)
	OnFinish(res Result)
}

// ObserverFuncs adapts optional callbacks to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	Progress func(done, total int)
	Event    func(ev model.KeystrokeEvent)
	Finish   func(res Result)
}

// OnProgress implements Observer.
func (o ObserverFuncs) OnProgress(done, total int) {
	if o.Progress != nil {
		o.Progress(done, total)
	}
}

// OnEvent implements Observer.
func (o ObserverFuncs) OnEvent(ev model.KeystrokeEvent) {
	if o.Event != nil {
		o.Event(ev)
	}
}

// OnFinish implements Observer.
func (o ObserverFuncs) OnFinish(res Result) {
	if o.Finish != nil {
		o.Finish(res)
	}
}

// Observers fans notifications out to each observer in order.
type Observers []Observer

// OnProgress implements Observer.
func (obs Observers) OnProgress(done, total int) {
	for _, o := range obs {
		o.OnProgress(done, total)
	}
}

// OnEvent implements Observer.
func (obs Observers) OnEvent(ev model.KeystrokeEvent) {
	for _, o := range obs {
		o.OnEvent(ev)
	}
}

// OnFinish implements Observer.
func (obs Observers) OnFinish(res Result) {
	for _, o := range obs {
		o.OnFinish(res)
	}
}
