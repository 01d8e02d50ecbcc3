// Package scanning provides the TCP connect scan engine for portsweep.
//
// A scan probes one target over a set of ports selected by a scan mode and
// classifies each port as open, closed or filtered. Probes run concurrently
// under a fixed limit, results are streamed as they arrive, and a scan can be
// cancelled at any time while keeping everything gathered so far.
//
// # Main Components
//
// ## Engine
//
// Engine holds the configuration shared by all scans (pool size, probe
// timeout, dispatch rate and service detection) together with the target
// resolver and the prober. It creates sessions:
//   - NewSession: create an Idle session for a request
//   - Start: create a session and run it in the background
//   - Scan: run a session to completion and return its report
//
// ## Session
//
// A Session is a single scan. It moves through the states
//
//	Idle -> Running -> Completed | Cancelled | Failed
//
// Failed is reserved for pre-flight errors (invalid target, unresolvable
// host, invalid port specification) detected before any probe is sent.
// Cancelled means the scan was stopped before every port was attempted; the
// report then carries the partial results.
//
// While running, a session publishes:
//   - Results: one ScanResult per probed port, in completion order
//   - Progress: coalesced ScanProgress snapshots where only the latest is kept
//   - Done: closed once the final Report is available
//
// ## Manager
//
// Manager runs sessions on a workers.Pool, keeps them addressable by ID for
// the API and the scheduler, and hands every final report to the configured
// ReportSinks.
//
// # Usage Example
//
//	engine, err := scanning.NewEngine(scanning.DefaultConfig())
//	if err != nil {
//		return err
//	}
//
//	session := engine.Start(ctx, scanning.Request{
//		Target: "scanme.example.org",
//		Mode:   ports.Quick{},
//	})
//	for res := range session.Results() {
//		if res.Outcome == scanning.Open {
//			fmt.Printf("%d/tcp open %s\n", res.Port, res.Service)
//		}
//	}
//	report, _ := session.Wait(ctx)
//
// # Concurrency
//
// At most Config.PoolSize probes hold a socket at any moment; the pool size
// is lowered at engine creation when it would not fit under the process open
// file limit. Cancellation stops dispatch immediately. Probes already in
// flight are not interrupted and end on their own timeout, so the report of
// a cancelled scan is available within roughly one probe timeout.
package scanning
