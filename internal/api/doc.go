// Package api implements the REST API and WebSocket event stream of the
// gateway.
//
// # REST
//
// Every resource route lives under /api/{apikey}. Keys are compared in
// constant time against the configured list; an unknown key answers 403
// with error type 1.
//
//	GET    /api/{apikey}                         full state
//	GET    /api/{apikey}/config                  gateway configuration
//	GET    /api/{apikey}/devices                 device unique ids
//	GET    /api/{apikey}/devices/{uniqueid}      merged device view
//	PUT    /api/{apikey}/devices/{uniqueid}/installcode
//	GET    /api/{apikey}/{lights|sensors|groups}[/{id}]
//	PUT    /api/{apikey}/{lights|sensors|groups}/{id}
//	PUT    /api/{apikey}/lights/{id}/state
//	PUT    /api/{apikey}/sensors/{id}/{state|config}
//	PUT    /api/{apikey}/groups/{id}/action
//	POST   /api/{apikey}/{sensors|groups}
//	DELETE /api/{apikey}/{lights|sensors|groups}/{id}
//
// Write responses are lists with one entry per parameter, each either
// {"success":{...}} or {"error":{"type":N,"address":...,"description":...}}.
//
// # WebSocket
//
// Registry events are pushed as
//
//	{"t":"event","e":"changed","r":"lights","id":"1","state":{"on":true}}
//
// Clients may narrow the stream with {"type":"subscribe","payload":{"channels":["sensors"]}}.
//
// /health and the Prometheus endpoint are served outside /api and need no key.
package api
