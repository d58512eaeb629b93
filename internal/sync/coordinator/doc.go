// Package coordinator runs project syncs on a fixed pool of workers.
//
// A run starts from the list of project ids to sync. The ids are loaded into
// a WorkQueue and every worker pops from it until the queue stays empty for
// the queue timeout, or the context ends. No worker ever blocks indefinitely.
//
// Each worker owns:
//
//   - a LIMS session opened through the SessionFactory (a dedicated pooled
//     connection in production), released when the worker exits
//   - a sync.Manager created by the ManagerFactory, with its own Charon client
//   - a logger whose records travel over one shared channel
//
// The coordinator goroutine is the only writer of the main log handler: it
// replays worker records while the workers run and flushes what is left once
// the last one has exited.
//
// Projects are independent. A project that fails to fetch or build, or whose
// sync panics, is recorded in the Summary and the worker moves on.
//
// Usage:
//
//	coord := coordinator.New(coordinator.Config{Workers: 12}, sessions, managers,
//		coordinator.WithHandler(handler),
//		coordinator.WithRunID(runID))
//	summary := coord.Run(ctx, projectIDs)
package coordinator
