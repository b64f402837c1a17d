// Package sink implements a durable, batched writer of log records into an
// embedded SQLite data file.
//
// # Write path
//
// Each flush opens a fresh connection to the data file, provisions the
// record table if required, and writes the batch inside a single transaction
// via one prepared INSERT whose parameters are rebound per row. A capacity-1
// semaphore serializes flushes, so at most one write connection to the file
// exists process-wide, and batches commit in the order they're admitted.
//
// # Rollover
//
// SQLite signals SQLITE_FULL when the data file reaches its maximum page
// count. When that happens the sink archives the file with a byte-for-byte
// copy, deletes all rows of the live table, compacts the file with VACUUM,
// and retries the failed batch exactly once. The archive is taken after the
// failed transaction has rolled back, so it's always a consistent snapshot
// of the last committed state. If rollover is disabled by configuration the
// failed batch is instead discarded, with a diagnostic.
//
// All other storage failures propagate to the caller, which owns retry and
// requeue policy; the sink performs no internal retries beyond the single
// rollover retry.
package sink
