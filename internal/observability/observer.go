// Copyright Senckenberg - Leibniz Institution for Biodiversity and Earth System Research.
// SPDX-License-Identifier: Apache-2.0

package observability

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"
	"time"
)

// StandardObserver implements observability for all pipeline components
type StandardObserver struct {
	level  ObservabilityLevel
	writer io.Writer
	mu     sync.Mutex
}

type ObservabilityLevel int

const (
	ObservabilityOff     ObservabilityLevel = 0
	ObservabilityMetrics ObservabilityLevel = 1
	ObservabilityDebug   ObservabilityLevel = 2
)

// NewStandardObserver creates observability component
func NewStandardObserver(level ObservabilityLevel, writer io.Writer) *StandardObserver {
	return &StandardObserver{
		level:  level,
		writer: writer,
	}
}

// StartTiming returns a function to complete timing
func (o *StandardObserver) StartTiming(component, operation, subject string) func(success bool, metadata map[string]interface{}) {
	start := time.Now()

	return func(success bool, metadata map[string]interface{}) {
		duration := time.Since(start)

		data := StandardObservabilityData{
			Component:  component,
			Operation:  operation,
			Subject:    subject,
			DurationMs: duration.Milliseconds(),
			Success:    success,
			Metadata:   metadata,
		}

		o.LogOperation(data)
	}
}

// LogError records a recovered, non-fatal error for a component operation.
// Transport and service failures flow through here; they never abort a run.
func (o *StandardObserver) LogError(component, operation, subject string, err error) {
	if err == nil {
		return
	}
	o.LogOperation(StandardObservabilityData{
		Component: component,
		Operation: operation,
		Subject:   subject,
		Success:   false,
		Error:     err.Error(),
	})
}

// Debugf emits a debug-level message when the observer runs at debug level.
func (o *StandardObserver) Debugf(component, format string, args ...interface{}) {
	if o == nil || o.level < ObservabilityDebug {
		return
	}
	o.LogOperation(StandardObservabilityData{
		Component: component,
		Operation: "debug",
		Error:     "",
		Success:   true,
		Metadata:  map[string]interface{}{"message": fmt.Sprintf(format, args...)},
	})
}

// LogOperation logs operation data
func (o *StandardObserver) LogOperation(data StandardObservabilityData) {
	if o == nil || o.level == ObservabilityOff {
		return
	}

	data.Timestamp = time.Now().Unix()

	if o.level >= ObservabilityDebug || data.Error != "" {
		o.mu.Lock()
		defer o.mu.Unlock()
		json.NewEncoder(o.writer).Encode(data)
	}
}

// StandardObservabilityData for all components
type StandardObservabilityData struct {
	Component  string                 `json:"component"`
	Operation  string                 `json:"operation"`
	Timestamp  int64                  `json:"timestamp"`
	Subject    string                 `json:"subject,omitempty"`
	DurationMs int64                  `json:"duration_ms,omitempty"`
	Success    bool                   `json:"success"`
	Error      string                 `json:"error,omitempty"`
	Metadata   map[string]interface{} `json:"metadata,omitempty"`
}
