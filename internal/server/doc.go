// Package server wires the shell together and runs its local control
// server.
//
// This package orchestrates all components:
//   - Surface channel (WebSocket) for the embedded browser host
//   - Control-plane HTTP routes with Gin framework
//   - Middleware stack (CORS, rate limiting, recovery, metrics)
//   - Navigation policy engine and state tracker
//   - Bridge script builder and message dispatcher
//   - Session mirror over the sealed on-disk store
//   - Push registrar for device association
//
// Server Lifecycle:
//  1. Load configuration from the profile file and environment
//  2. Initialize logger (production or development)
//  3. Open the sealed and general stores, resync the session mirror
//  4. Build the navigation engine and bridge dispatcher
//  5. Setup HTTP routes and middleware
//  6. Start the control server on loopback
//  7. Graceful shutdown on signal
package server
