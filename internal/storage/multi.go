package storage

import "swapguard/internal/model"

// MultiSink fans events out to several sinks; the first error wins but
// every sink is still attempted.
type MultiSink []EventSink

func (m MultiSink) PutChangeEvent(ev model.ChangeEvent) error {
	var first error
	for _, sink := range m {
		if err := sink.PutChangeEvent(ev); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m MultiSink) PutDecision(rec model.DecisionRecord) error {
	var first error
	for _, sink := range m {
		if err := sink.PutDecision(rec); err != nil && first == nil {
			first = err
		}
	}
	return first
}
