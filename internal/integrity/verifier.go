package integrity

import (
	"archive/zip"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/whitebite/isolate-core/internal/errkit"
	"github.com/whitebite/isolate-core/internal/logging"
)

const downloadTimeout = 5 * time.Minute

// Verifier fetches, verifies and extracts helper-binary archives into
// binariesDir. It is the only writer of that directory.
type Verifier struct {
	binariesDir string
	httpClient  *http.Client
	log         *logging.Logger
}

// New creates a Verifier that extracts into binariesDir.
func New(binariesDir string, log *logging.Logger) *Verifier {
	if log == nil {
		log = logging.NewDefault("integrity")
	}
	return &Verifier{
		binariesDir: binariesDir,
		httpClient:  &http.Client{Timeout: downloadTimeout},
		log:         log,
	}
}

// Fetch downloads src's archive, verifies its hash if configured, extracts
// the requested files into the binaries directory, and verifies each
// extracted file's hash if configured. Any hash mismatch deletes the
// offending file and returns a security-level error; a missing configured
// hash never silently passes, it appends a Warning instead.
func (v *Verifier) Fetch(ctx context.Context, src Source, progress ProgressFunc) (Result, error) {
	archivePath, err := v.download(ctx, src.URL, progress)
	if err != nil {
		return Result{}, err
	}
	defer os.Remove(archivePath)

	report(progress, PhaseVerifying, 0, 0)
	if src.ArchiveHash != "" {
		if err := verifyFileHash(archivePath, src.ArchiveHash); err != nil {
			os.Remove(archivePath)
			return Result{}, err
		}
	}

	var result Result
	if src.ArchiveHash == "" {
		result.Warnings = append(result.Warnings, Warning{File: filepath.Base(archivePath), Reason: "no archive hash configured, integrity unverified"})
	}

	report(progress, PhaseExtracting, 0, 0)
	if err := os.MkdirAll(v.binariesDir, 0o755); err != nil {
		return Result{}, errkit.Wrap(errkit.KindSecurity, "create binaries directory", err)
	}

	for _, wantFile := range src.Files {
		extractedPath, err := v.extractOne(archivePath, wantFile.Name)
		if err != nil {
			return Result{}, err
		}
		if wantFile.Hash != "" {
			if err := verifyFileHash(extractedPath, wantFile.Hash); err != nil {
				os.Remove(extractedPath)
				return Result{}, err
			}
		} else {
			result.Warnings = append(result.Warnings, Warning{File: wantFile.Name, Reason: "no file hash configured, integrity unverified"})
		}
		result.ExtractedPaths = append(result.ExtractedPaths, extractedPath)
	}

	for _, w := range result.Warnings {
		v.log.WithField("file", w.File).Warn(w.Reason)
	}

	return result, nil
}

func (v *Verifier) download(ctx context.Context, url string, progress ProgressFunc) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errkit.Wrap(errkit.KindNetwork, "build download request", err)
	}
	resp, err := v.httpClient.Do(req)
	if err != nil {
		return "", errkit.Network("http", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", errkit.New(errkit.KindNetwork, "download failed with status "+resp.Status)
	}

	tmp, err := os.CreateTemp("", "isolate-archive-*.tmp")
	if err != nil {
		return "", errkit.Wrap(errkit.KindSecurity, "create temp archive file", err)
	}
	defer tmp.Close()

	total := resp.ContentLength
	counter := &countingReader{r: resp.Body}
	done := make(chan struct{})
	go reportDownloadProgress(counter, total, progress, done)
	_, err = io.Copy(tmp, counter)
	close(done)
	if err != nil {
		os.Remove(tmp.Name())
		return "", errkit.Wrap(errkit.KindNetwork, "download body", err)
	}
	report(progress, PhaseDownloading, counter.n, total)
	return tmp.Name(), nil
}

// reportDownloadProgress ticks progress every 250ms while the copy above is
// in flight, so a caller sees live byte counts on a large archive instead of
// one jump at completion.
func reportDownloadProgress(c *countingReader, total int64, progress ProgressFunc, done <-chan struct{}) {
	ticker := time.NewTicker(250 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
			report(progress, PhaseDownloading, c.snapshot(), total)
		}
	}
}

func report(progress ProgressFunc, phase Phase, downloaded, total int64) {
	if progress == nil {
		return
	}
	progress(Progress{Phase: phase, DownloadedBytes: downloaded, TotalBytes: total})
}

func (v *Verifier) extractOne(archivePath, memberName string) (string, error) {
	r, err := zip.OpenReader(archivePath)
	if err != nil {
		return "", errkit.Wrap(errkit.KindSecurity, "open archive", err)
	}
	defer r.Close()

	for _, f := range r.File {
		if f.Name != memberName {
			continue
		}
		destPath := filepath.Join(v.binariesDir, filepath.Base(f.Name))
		if err := extractZipEntry(f, destPath); err != nil {
			return "", err
		}
		return destPath, nil
	}
	return "", errkit.New(errkit.KindSecurity, "archive member not found: "+memberName)
}

func extractZipEntry(f *zip.File, destPath string) error {
	src, err := f.Open()
	if err != nil {
		return errkit.Wrap(errkit.KindSecurity, "open archive member", err)
	}
	defer src.Close()

	dst, err := os.OpenFile(destPath, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0o755)
	if err != nil {
		return errkit.Wrap(errkit.KindSecurity, "create extracted file", err)
	}
	defer dst.Close()

	if _, err := io.Copy(dst, src); err != nil {
		os.Remove(destPath)
		return errkit.Wrap(errkit.KindSecurity, "write extracted file", err)
	}
	return nil
}

func verifyFileHash(path, wantHex string) error {
	f, err := os.Open(path)
	if err != nil {
		return errkit.Wrap(errkit.KindSecurity, "open file for hashing", err)
	}
	defer f.Close()

	h := sha256.New()
	if _, err := io.Copy(h, f); err != nil {
		return errkit.Wrap(errkit.KindSecurity, "hash file", err)
	}
	got := hex.EncodeToString(h.Sum(nil))
	if got != wantHex {
		return errkit.SecurityError("hash mismatch for " + filepath.Base(path)).
			WithDetail("expected", wantHex).WithDetail("actual", got)
	}
	return nil
}

// countingReader wraps an io.Reader, tracking bytes read so far. n is read
// from the copy goroutine and snapshotted from the progress-ticker
// goroutine without synchronization; progress reporting only.
type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) snapshot() int64 { return c.n }
