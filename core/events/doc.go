// Package events defines the state-change events the engine publishes.
//
// Available event types:
//   - AlertCreated: a new alert entered the pending phase
//   - AlertAssigned: the matcher bound an alert to a vehicle
//   - AlertTransitioned: a mission phase change (including cancellation)
//   - SignalChanged: a traffic signal colour or override flag changed
package events
