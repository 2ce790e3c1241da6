// Package buzosync is the offline-first synchronization engine of the Buzo
// personal-finance assistant.
//
// The engine lets the host application create, edit, and delete financial
// records while disconnected, and reconciles those local mutations with the
// remote authoritative store once connectivity returns, without losing
// data, double-applying operations, or corrupting the user's view of their
// own finances.
//
// It is a library, not a service: there is no command-line entry point. The
// host constructs an [Engine] once at startup, feeds it connectivity and
// session events, and subscribes to sync status updates.
package buzosync
