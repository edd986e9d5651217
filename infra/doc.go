// Package infra contains the technical adapters of the engine: the MQTT
// transport, state mirrors, metrics exporters and error monitoring. These
// packages depend on the core packages, never the reverse.
package infra
