// Package config provides configuration types, loading, validation, and
// file watching for grpcguard.
//
// Configuration is a YAML document with apiVersion/kind/metadata/spec
// framing. ${VAR} and ${VAR:-default} references are substituted from the
// environment at load time. A Watcher can observe the file and deliver
// validated configurations for hot reload; invalid updates are reported and
// discarded, the previous configuration stays active.
package config
