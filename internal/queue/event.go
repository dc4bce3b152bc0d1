// Package queue defines message payloads exchanged over the message broker.
package queue

import "time"

// Lifecycle statuses published by the service.
const (
    StatusStarted  = "started"
    StatusStopping = "stopping"
)

// EventMeta identifies a single published event.
type EventMeta struct {
    ID       string    `json:"id"`
    Type     string    `json:"type"`     // e.g. "service.started.v1"
    Producer string    `json:"producer"` // emitting service and version
    Time     time.Time `json:"time"`
}

// ServiceStatus is the payload of a lifecycle event.
type ServiceStatus struct {
    Service string `json:"service"`
    Version string `json:"version"`
    Status  string `json:"status"`
    Addr    string `json:"addr,omitempty"`
    Env     string `json:"env,omitempty"`
}

// LifecycleEvent is published when the service starts listening and when it
// begins shutting down.  Consumers use it to track which instances are live.
type LifecycleEvent struct {
    Meta EventMeta     `json:"meta"`
    Data ServiceStatus `json:"data"`
}

// RoutingKey is the topic key the event is published under.
func (e LifecycleEvent) RoutingKey() string { return e.Meta.Type }
