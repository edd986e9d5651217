// Package factory provides a generic registry used to build pluggable modules
// (store backends, metrics sinks, mirrors) from configuration.
package factory
