// Package logger provides structured logging for kbuild using zerolog.
//
// It supports console and JSON output, log level configuration, and
// component-scoped loggers. Build runs attach a build id to the context so
// every stage line can be correlated.
//
// # Configuration
//
//	logging:
//	  level: "info"
//	  format: "console"
//
// # Usage
//
//	log := logger.Get("toolchain")
//	log.Info("stage completed", logger.Fields("stage", "compile", "output", obj))
package logger
