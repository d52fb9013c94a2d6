// Package bootstrap runs one netfield-connect session end to end.
//
// In API mode the run is:
//  1. Fetch broker credentials, then resolve the configured device; a key
//     the info endpoint rejects never reaches device resolution
//  2. Pick the broker endpoint for the configured protocol
//  3. Connect, publish one retained downlink message, subscribe to uplink
//  4. Listen for the configured duration or until the context is cancelled
//  5. Disconnect
//
// In direct mode (broker.direct_url set) steps 1 and 2 are skipped and the
// configured topics are used verbatim.
//
// Any failure before the session is connected ends the run. After connect,
// a publish failure is logged and the run continues; a subscribe failure
// skips the listen phase. The session is always disconnected.
package bootstrap
