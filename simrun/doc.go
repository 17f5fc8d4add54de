// Package simrun is a client for the simulation run service.
//
// A Client composes a credential provider from package auth with two HTTP
// planes: the control plane (runs, progress, logs, billing) and the storage
// plane (archives and snapshots). Listing and tailing are pull based:
//
//	it, _ := c.Runs(ctx, simrun.RunFilter{Chid: "room_fire"})
//	for {
//		r, err := it.Next(ctx)
//		if err == io.EOF {
//			break
//		}
//		...
//	}
//
// Follow returns a Follower whose Next blocks for the poll interval, then
// returns whatever the run appended to its error stream since the last call.
//
// No request is retried. The two polling loops (Follower.Next and
// ConfirmClosed) repeat reads of run state, and a failed request aborts them.
// Requests carry no timeout of their own; bound them with the context.
package simrun
