// Package infra holds the technical adapters of the dispatcher: the MQTT
// gateway, city maps, metrics exporters and monitoring. These packages
// depend on the interfaces declared under core.
package infra
