// SPDX-License-Identifier: MIT
package transport

import (
	"encoding/json"

	applog "beatsync/internal/log"
)

// LoggingTransport implements the Transport interface by logging data at
// debug level.
type LoggingTransport struct {
	log *applog.Logger
}

// NewLoggingTransport creates a new LoggingTransport instance.
func NewLoggingTransport() *LoggingTransport {
	return &LoggingTransport{log: applog.Named("telemetry")}
}

// Send logs the JSON form of data, or its Go form if it does not marshal.
func (lt *LoggingTransport) Send(data any) error {
	if applog.GetLevel() > applog.LevelDebug {
		return nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		lt.log.Debugf("(%T) %+v (JSON marshal error: %v)", data, data, err)
		return nil
	}
	lt.log.Debugf("%s", raw)
	return nil
}

// Close is a no-op for LoggingTransport.
func (lt *LoggingTransport) Close() error {
	return nil
}

var _ Transport = (*LoggingTransport)(nil)
