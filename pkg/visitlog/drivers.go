package visitlog

import (
	// Register the pure-Go SQLite driver used by Open. Kept in its own
	// file so the dependency on the driver is explicit.
	_ "modernc.org/sqlite"
)
