// Package console describes the supported console models and builds the
// codec registry a session needs to talk to one.
//
// Models are loaded from YAML manifests embedded in the binary. Every call
// to New returns a fresh registry, so sessions never share codec caches.
package console
