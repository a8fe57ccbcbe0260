// Package health serves liveness and readiness probes for the chronicle
// daemon.
//
// Liveness only reports that the process is up. Readiness runs every
// registered check concurrently, each bounded by the checker timeout, and
// answers 503 while any of them fails. The daemon registers a store check
// and, when cleanup is enabled, a scheduler check:
//
//	checker := health.New(2 * time.Second)
//	checker.RegisterCheck("store", health.StoreCheck(st))
//	checker.RegisterCheck("cleanup", health.RunningCheck("cleanup scheduler", scheduler))
//	health.Register(mux, checker, health.VersionInfo{Version: version})
//
// Endpoints:
//
//   - GET /health: liveness
//   - GET /ready: readiness with per check results
//   - GET /version: build information
package health
