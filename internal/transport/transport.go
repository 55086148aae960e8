// SPDX-License-Identifier: MIT

// Package transport publishes telemetry produced by the sync driver.
package transport

// Transport defines a generic interface for sending processed data or events.
// Implementations must be safe for concurrent use and must not block the
// caller; the frame loop sends from its hot path.
type Transport interface {
	Send(data any) error
	Close() error
}

// Multi fans one message out to several transports. The first error is
// returned after every transport has been tried.
type Multi []Transport

func (m Multi) Send(data any) error {
	var first error
	for _, t := range m {
		if err := t.Send(data); err != nil && first == nil {
			first = err
		}
	}
	return first
}

func (m Multi) Close() error {
	var first error
	for _, t := range m {
		if err := t.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

var _ Transport = Multi(nil)
