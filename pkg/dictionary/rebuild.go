package dictionary

import (
	"bufio"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/bastiangx/wordfst/internal/utils"
	"github.com/bastiangx/wordfst/pkg/fst"
	"github.com/charmbracelet/log"
	"github.com/cockroachdb/errors"
)

// BuildStats describes a finished rebuild.
type BuildStats struct {
	Source   string
	Path     string
	Read     ReadStats
	Index    fst.Stats
	Duration time.Duration
}

// NeedsRebuild reports whether the index at indexPath is missing or older
// than the source. A missing source with an existing index is not stale; a
// missing source without an index is an error.
func NeedsRebuild(source, indexPath string) (bool, error) {
	indexTime, indexErr := utils.ModTime(indexPath)
	sourceTime, sourceErr := utils.ModTime(source)

	switch {
	case indexErr != nil && !errors.Is(indexErr, fs.ErrNotExist):
		return false, errors.Wrapf(indexErr, "stat index %s", indexPath)
	case sourceErr != nil && !errors.Is(sourceErr, fs.ErrNotExist):
		return false, errors.Wrapf(sourceErr, "stat source %s", source)
	case indexErr != nil && sourceErr != nil:
		return false, errors.Wrapf(sourceErr, "no index at %s and no source", indexPath)
	case indexErr != nil:
		return true, nil
	case sourceErr != nil:
		log.Debugf("Source %s missing, keeping index %s", source, indexPath)
		return false, nil
	}
	return sourceTime.After(indexTime), nil
}

// BuildFile compiles entries into an index at path. The index is written to
// a temporary file in the same directory, synced and renamed into place, so
// readers that still map the old file are unaffected.
func BuildFile(path string, entries []Entry) (fst.Stats, error) {
	dir := filepath.Dir(path)
	if err := utils.EnsureDir(dir); err != nil {
		return fst.Stats{}, errors.Wrapf(err, "creating index directory %s", dir)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".*.tmp")
	if err != nil {
		return fst.Stats{}, errors.Wrapf(err, "creating temp index in %s", dir)
	}
	tmpPath := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			tmp.Close()
			os.Remove(tmpPath)
		}
	}()

	w := bufio.NewWriterSize(tmp, 256*1024)
	b := fst.NewBuilder(w)
	for _, e := range entries {
		if err := b.Insert([]byte(e.Key), e.Weight); err != nil {
			return fst.Stats{}, err
		}
	}
	if err := b.Close(); err != nil {
		return fst.Stats{}, errors.Wrap(err, "writing index")
	}
	if err := w.Flush(); err != nil {
		return fst.Stats{}, errors.Wrap(err, "flushing index")
	}
	if err := tmp.Sync(); err != nil {
		return fst.Stats{}, errors.Wrap(err, "syncing index")
	}
	if err := tmp.Close(); err != nil {
		return fst.Stats{}, errors.Wrap(err, "closing index")
	}
	if err := os.Rename(tmpPath, path); err != nil {
		return fst.Stats{}, errors.Wrapf(err, "renaming index into %s", path)
	}
	committed = true
	return b.Stats(), nil
}

// Rebuild reads source and writes a fresh index at indexPath.
func Rebuild(source, indexPath string, opts ReadOptions) (BuildStats, error) {
	start := time.Now()
	stats := BuildStats{Source: source, Path: indexPath}

	entries, readStats, err := ReadFile(source, opts)
	stats.Read = readStats
	if err != nil {
		return stats, err
	}
	if readStats.DefaultedWeights > 0 {
		log.Warnf("%d entries in %s had malformed weights and default to 0", readStats.DefaultedWeights, source)
	}

	idx, err := BuildFile(indexPath, entries)
	if err != nil {
		return stats, errors.Wrapf(err, "building %s from %s", indexPath, source)
	}
	stats.Index = idx
	stats.Duration = time.Since(start)

	log.Infof("Built %s: %d keys, %d states, %d bytes in %v",
		indexPath, idx.Keys, idx.States, idx.Bytes, stats.Duration)
	return stats, nil
}

// EnsureIndex rebuilds the index when it is stale or force is set. It
// reports whether a build happened.
func EnsureIndex(source, indexPath string, force bool, opts ReadOptions) (bool, BuildStats, error) {
	if !force {
		stale, err := NeedsRebuild(source, indexPath)
		if err != nil {
			return false, BuildStats{}, err
		}
		if !stale {
			log.Debugf("Index %s is up to date", indexPath)
			return false, BuildStats{}, nil
		}
	}
	stats, err := Rebuild(source, indexPath, opts)
	return err == nil, stats, err
}
