// Package integrity implements the binary integrity verifier. It is the
// only code path that writes to the binaries directory — every helper
// binary this core spawns arrives through a download-extract-verify
// sequence that deletes anything failing a configured SHA-256 check rather
// than letting a tampered or truncated file ever reach disk as "ready".
package integrity

// Phase tags a point in the download/extract/verify sequence, reported
// through ProgressFunc so a caller can render a progress bar.
type Phase string

const (
	PhaseDownloading Phase = "downloading"
	PhaseExtracting  Phase = "extracting"
	PhaseVerifying   Phase = "verifying"
)

// Progress is one callback tick during Fetch.
type Progress struct {
	Phase           Phase
	DownloadedBytes int64
	TotalBytes      int64
}

// ProgressFunc receives streaming progress updates during Fetch. Fetch
// calls it inline at each phase change (and a ticker goroutine calls it
// during the download), so a slow callback delays Fetch; callers should
// keep it cheap (e.g. updating a GUI state field) rather than doing I/O
// inside it.
type ProgressFunc func(Progress)

// FileHash pins one extracted file's expected SHA-256, hex-encoded. A zero
// value (empty Hash) means "no hash configured" — verification degrades to
// a warning, never a silent pass.
type FileHash struct {
	Name string
	Hash string
}

// Source describes one known helper-binary archive to fetch.
type Source struct {
	URL string
	// ArchiveHash is the expected SHA-256 of the downloaded archive itself,
	// hex-encoded. Empty means unconfigured.
	ArchiveHash string
	// Files lists the archive members to extract, each with its own
	// optional expected hash.
	Files []FileHash
}

// Warning records a configured-hash-missing degradation: missing hashes
// never silently pass, they surface as a Warning on the result.
type Warning struct {
	File   string
	Reason string
}

// Result is the outcome of a successful Fetch.
type Result struct {
	ExtractedPaths []string
	Warnings       []Warning
}
