package recorder

import "sync"

// LogBuffer is a thread-safe circular buffer for capture-process output with
// O(1) append and O(N) read. Each recording attempt owns one; the HTTP logs
// endpoint reads it while the process is still running.
type LogBuffer struct {
	entries [500]string  // Fixed-size circular buffer (no heap allocations)
	head    int          // Next write position
	size    int          // Current number of entries
	full    bool         // Whether buffer has wrapped around
	mu      sync.RWMutex // Protects all fields
}

// Append adds a log entry (overwrites oldest if full).
func (b *LogBuffer) Append(entry string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	const capN = len(b.entries)

	b.entries[b.head] = entry
	b.head = (b.head + 1) % capN

	if b.full {
		// Size stays at capN, we're overwriting
		return
	}
	b.size++
	if b.size == capN {
		b.full = true
	}
}

// Read returns the last N entries, newest first, in a new slice.
// lines <= 0 or > capacity returns everything available.
func (b *LogBuffer) Read(lines int) []string {
	b.mu.RLock()
	defer b.mu.RUnlock()

	const capN = len(b.entries)
	if b.size == 0 {
		return nil
	}

	if lines <= 0 || lines > capN {
		lines = capN
	}
	n := b.size
	if n > lines {
		n = lines
	}

	result := make([]string, n)

	// newest index
	var newest int
	if b.full {
		// head points at the oldest (next overwrite); newest is one behind
		newest = (b.head - 1 + capN) % capN
	} else {
		newest = b.size - 1
	}

	for i := 0; i < n; i++ {
		idx := (newest - i + capN) % capN
		result[i] = b.entries[idx]
	}

	return result
}
