// Package config provides user configuration management for sprk.
//
// This package manages a YAML-based configuration file that remembers the
// robots a user has connected to, their nicknames, and application
// preferences such as the command timeout and default streaming rate.
//
// # Configuration File Location
//
//   - Linux: $XDG_CONFIG_HOME/sprk/config.yaml or $HOME/.config/sprk/config.yaml
//   - macOS: $HOME/.config/sprk/config.yaml
//   - Windows: %LOCALAPPDATA%\sprk\config.yaml
//
// # Usage Example
//
//	registry, err := config.LoadRegistry()
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	registry.SetRobotNickname("C4:9F:6A:11:22:33", "kitchen")
//	addr := registry.Resolve("kitchen")
//
//	if err := registry.Save(); err != nil {
//	    log.Fatal(err)
//	}
//
// # Thread Safety
//
// The global registry uses sync.Once for safe initialization across goroutines.
// File operations are protected by a mutex to ensure atomic writes.
package config
