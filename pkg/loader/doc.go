// Package loader implements progressive two-phase loading of a day's
// attendance sheet from the HRMS batch endpoint.
//
// Large tenants have upwards of a thousand employees; serializing the full
// sheet blocks the first render for seconds. The backend instead serves an
// instant "initial" batch followed by a "remaining" batch, and the Loader
// orchestrates the two phases behind a single call:
//
//	ld := loader.New(apiClient, loader.DefaultConfig())
//	ld.Subscribe(func(ev loader.Event) { ... })
//	err := ld.LoadForKey(ctx, "2024-01-15")
//
// The loader:
//   - surfaces the initial batch immediately via an InitialLoaded event
//   - schedules the remaining fetch after the server-recommended delay,
//     without further caller action
//   - merges the remaining batch into the list it already holds, append-only
//     and without duplicate ids
//   - re-applies locally tracked field edits (TrackChange) on every merge,
//     so an edit made while a fetch is in flight is never reverted by
//     server data arriving later
//   - discards in-flight responses that belong to a superseded key
//
// A remaining-phase failure is non-fatal: the initial list stays visible and
// the failure is reported through a Progress event. An initial-phase failure
// aborts the load and retains nothing.
package loader
