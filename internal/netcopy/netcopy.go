// Package netcopy replicates the local data tree to one or more network
// destinations and locates the shared reference copy of the workbook.
package netcopy

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/rs/zerolog"
)

// ErrNoDestination indicates every configured destination was unusable.
var ErrNoDestination = errors.New("netcopy: nenhum destino acessivel")

var driveLetterPattern = regexp.MustCompile(`^[A-Za-z]:`)

// ParseDirs splits the configured destination list on ";" and drops blanks.
func ParseDirs(raw string) []string {
	var dirs []string
	for _, part := range strings.Split(raw, ";") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			dirs = append(dirs, trimmed)
		}
	}
	return dirs
}

// ResolveDir validates a destination path for this platform. Windows
// resolves mapped drive letters itself; elsewhere a drive-letter path has no
// meaning and is rejected so the caller can fall through to the next
// destination.
func ResolveDir(dir string) (string, error) {
	if runtime.GOOS == "windows" {
		return dir, nil
	}
	if driveLetterPattern.MatchString(dir) {
		return "", fmt.Errorf("netcopy: caminho com letra de unidade nao suportado nesta plataforma: %s", dir)
	}
	return dir, nil
}

// Replicator copies the local tree into <destination>/<destFolder> for the
// first destination that accepts it.
type Replicator struct {
	destinations []string
	destFolder   string
	logger       zerolog.Logger
}

// NewReplicator builds a replicator. An empty destination list disables
// replication; Enabled reports that.
func NewReplicator(destinations []string, destFolder string, logger zerolog.Logger) *Replicator {
	return &Replicator{
		destinations: destinations,
		destFolder:   destFolder,
		logger:       logger.With().Str("component", "netcopy").Logger(),
	}
}

// Enabled reports whether any destination is configured.
func (r *Replicator) Enabled() bool { return len(r.destinations) > 0 }

// ReferencePaths lists the candidate paths of a shared file across every
// destination, in configuration order. Paths are not checked for existence.
func (r *Replicator) ReferencePaths(relative ...string) []string {
	var paths []string
	for _, destination := range r.destinations {
		resolved, err := ResolveDir(destination)
		if err != nil {
			continue
		}
		parts := append([]string{resolved, r.destFolder}, relative...)
		paths = append(paths, filepath.Join(parts...))
	}
	return paths
}

// Replicate merges the source tree into the first destination that accepts
// it and returns the chosen target root. Later destinations are only tried
// after earlier ones fail; the last failure is returned when all do.
func (r *Replicator) Replicate(src string) (string, error) {
	if !r.Enabled() {
		return "", ErrNoDestination
	}

	lastErr := error(ErrNoDestination)
	for _, destination := range r.destinations {
		resolved, err := ResolveDir(destination)
		if err != nil {
			r.logger.Warn().Str("destination", destination).Msg(err.Error())
			lastErr = err
			continue
		}
		target := filepath.Join(resolved, r.destFolder)
		if err := copyTree(src, target); err != nil {
			r.logger.Warn().Str("destination", target).Err(err).Msg("replication failed")
			lastErr = err
			continue
		}
		r.logger.Info().Str("destination", target).Msg("replicated")
		return target, nil
	}
	return "", lastErr
}

// copyTree recursively merges src into dst, overwriting files and keeping
// anything in dst that src does not have.
func copyTree(src, dst string) error {
	entries, err := os.ReadDir(src)
	if err != nil {
		return fmt.Errorf("netcopy: read source: %w", err)
	}
	if err := os.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("netcopy: create destination: %w", err)
	}
	for _, entry := range entries {
		srcPath := filepath.Join(src, entry.Name())
		dstPath := filepath.Join(dst, entry.Name())
		if entry.IsDir() {
			if err := copyTree(srcPath, dstPath); err != nil {
				return err
			}
			continue
		}
		if err := CopyFile(srcPath, dstPath); err != nil {
			return err
		}
	}
	return nil
}

// CopyFile copies one file, preserving its modification time so that
// freshness comparisons between local and network copies stay meaningful.
func CopyFile(src, dst string) error {
	info, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("netcopy: stat source: %w", err)
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("netcopy: open source: %w", err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("netcopy: create parent: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("netcopy: create destination: %w", err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("netcopy: copy: %w", err)
	}
	if err := out.Close(); err != nil {
		return fmt.Errorf("netcopy: close destination: %w", err)
	}

	if err := os.Chtimes(dst, info.ModTime(), info.ModTime()); err != nil {
		return fmt.Errorf("netcopy: set mtime: %w", err)
	}
	return nil
}
