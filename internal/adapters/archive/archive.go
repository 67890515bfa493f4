// Package archive implements zip container operations for the remap pipeline.
//
// Every mutating operation rewrites the container through a temporary file in
// the same directory and renames it into place, so a mutation either applies
// fully or leaves the archive in its prior state.
package archive

import (
	stdzip "archive/zip"
	"bytes"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.trai.ch/zerr"
)

// FixedModTime is the timestamp stamped on every entry during Normalize.
// It is the earliest time the zip format can represent.
var FixedModTime = time.Date(1980, time.January, 1, 0, 0, 0, 0, time.UTC)

// ErrEntryNotFound is returned when a named entry is absent from an archive.
var ErrEntryNotFound = zerr.New("archive entry not found")

// Entry is one archive member held in memory.
type Entry struct {
	Name     string
	Data     []byte
	Modified time.Time
}

// ReadAll loads every file entry of an archive into memory, preserving order.
// Directory entries are dropped; rewriting recreates none, which zip readers
// tolerate.
func ReadAll(path string) ([]Entry, error) {
	r, err := stdzip.OpenReader(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open archive"), "path", path)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	entries := make([]Entry, 0, len(r.File))
	for _, f := range r.File {
		if strings.HasSuffix(f.Name, "/") {
			continue
		}
		data, err := readZipFile(f)
		if err != nil {
			return nil, zerr.With(zerr.With(zerr.Wrap(err, "failed to read archive entry"), "path", path), "entry", f.Name)
		}
		entries = append(entries, Entry{Name: f.Name, Data: data, Modified: f.Modified})
	}
	return entries, nil
}

func readZipFile(f *stdzip.File) ([]byte, error) {
	rc, err := f.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close() //nolint:errcheck // read-only handle
	return io.ReadAll(rc)
}

// WriteAll writes entries to a new archive at path, replacing any existing
// file atomically.
func WriteAll(path string, entries []Entry) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}

	tmp, err := os.CreateTemp(dir, ".remap-*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary archive")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best effort cleanup, no-op after rename

	if err := writeEntries(tmp, entries); err != nil {
		_ = tmp.Close()
		return zerr.With(err, "path", path)
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close temporary archive")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return zerr.Wrap(err, "failed to move archive into place")
	}
	return nil
}

func writeEntries(w io.Writer, entries []Entry) error {
	zw := stdzip.NewWriter(w)
	for _, e := range entries {
		modified := e.Modified
		if modified.IsZero() {
			modified = FixedModTime
		}
		fw, err := zw.CreateHeader(&stdzip.FileHeader{
			Name:     e.Name,
			Method:   stdzip.Deflate,
			Modified: modified,
		})
		if err != nil {
			return zerr.With(zerr.Wrap(err, "failed to create archive entry"), "entry", e.Name)
		}
		if _, err := fw.Write(e.Data); err != nil {
			return zerr.With(zerr.Wrap(err, "failed to write archive entry"), "entry", e.Name)
		}
	}
	return zerr.Wrap(zw.Close(), "failed to finish archive")
}

// ReadEntry returns the content of a single named entry.
func ReadEntry(path, name string) ([]byte, error) {
	r, err := stdzip.OpenReader(path)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "failed to open archive"), "path", path)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	for _, f := range r.File {
		if f.Name == name {
			data, err := readZipFile(f)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "failed to read archive entry"), "entry", name)
			}
			return data, nil
		}
	}
	return nil, zerr.With(zerr.With(zerr.Wrap(ErrEntryNotFound, "failed to read entry"), "path", path), "entry", name)
}

// HasEntry reports whether a named entry exists.
func HasEntry(path, name string) (bool, error) {
	r, err := stdzip.OpenReader(path)
	if err != nil {
		return false, zerr.With(zerr.Wrap(err, "failed to open archive"), "path", path)
	}
	defer r.Close() //nolint:errcheck // read-only handle

	for _, f := range r.File {
		if f.Name == name {
			return true, nil
		}
	}
	return false, nil
}

// Add writes an entry, replacing any existing entry of the same name.
func Add(path, name string, data []byte) error {
	entries, err := ReadAll(path)
	if err != nil {
		return err
	}
	replaced := false
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Data = data
			replaced = true
			break
		}
	}
	if !replaced {
		entries = append(entries, Entry{Name: name, Data: data})
	}
	return WriteAll(path, entries)
}

// Replace rewrites an existing entry and fails when it is absent.
func Replace(path, name string, data []byte) error {
	entries, err := ReadAll(path)
	if err != nil {
		return err
	}
	for i := range entries {
		if entries[i].Name == name {
			entries[i].Data = data
			return WriteAll(path, entries)
		}
	}
	return zerr.With(zerr.With(zerr.Wrap(ErrEntryNotFound, "failed to replace entry"), "path", path), "entry", name)
}

// Delete removes the named entries. Missing names are ignored.
func Delete(path string, names ...string) error {
	entries, err := ReadAll(path)
	if err != nil {
		return err
	}
	drop := make(map[string]bool, len(names))
	for _, name := range names {
		drop[name] = true
	}
	kept := entries[:0]
	for _, e := range entries {
		if !drop[e.Name] {
			kept = append(kept, e)
		}
	}
	return WriteAll(path, kept)
}

// Transform applies per-entry transforms and returns how many entries matched.
// Entries without a transform are copied verbatim; transforms for absent
// entries are ignored.
func Transform(path string, transforms map[string]func([]byte) ([]byte, error)) (int, error) {
	entries, err := ReadAll(path)
	if err != nil {
		return 0, err
	}
	count := 0
	for i := range entries {
		fn, ok := transforms[entries[i].Name]
		if !ok {
			continue
		}
		data, err := fn(entries[i].Data)
		if err != nil {
			return 0, zerr.With(zerr.Wrap(err, "failed to transform archive entry"), "entry", entries[i].Name)
		}
		entries[i].Data = data
		count++
	}
	if count == 0 {
		return 0, nil
	}
	return count, WriteAll(path, entries)
}

// Normalize rewrites the archive with entries sorted by name and volatile
// timestamps stripped, so identical inputs produce byte-identical archives.
func Normalize(path string) error {
	entries, err := ReadAll(path)
	if err != nil {
		return err
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	for i := range entries {
		entries[i].Modified = FixedModTime
	}
	return WriteAll(path, entries)
}

// CopyFile duplicates a file byte for byte, atomically.
func CopyFile(src, dst string) error {
	data, err := os.ReadFile(src) //nolint:gosec // paths come from validated specs
	if err != nil {
		return zerr.With(zerr.Wrap(err, "failed to read source archive"), "path", src)
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return zerr.With(zerr.Wrap(err, "failed to create output directory"), "path", dir)
	}
	tmp, err := os.CreateTemp(dir, ".remap-*.tmp")
	if err != nil {
		return zerr.Wrap(err, "failed to create temporary file")
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath) //nolint:errcheck // best effort cleanup, no-op after rename

	if _, err := io.Copy(tmp, bytes.NewReader(data)); err != nil {
		_ = tmp.Close()
		return zerr.Wrap(err, "failed to copy archive")
	}
	if err := tmp.Close(); err != nil {
		return zerr.Wrap(err, "failed to close temporary file")
	}
	return zerr.Wrap(os.Rename(tmpPath, dst), "failed to move archive into place")
}
