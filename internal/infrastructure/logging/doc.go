// Package logging is the gateway's structured logger, a thin layer over
// log/slog.
//
// Entries carry service and version fields and a component field per
// subsystem. JSON or text output is chosen by config:
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr
//
// Attributes named installcode, password, token or apikey are redacted.
// Request paths still need maskAPIKey in the api package, since the key is
// part of the URL.
//
//	log := logging.New(cfg.Logging, version)
//	log.Component("device").Info("node added", "resource", "/lights", "id", "1")
package logging
