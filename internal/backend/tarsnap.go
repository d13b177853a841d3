package backend

import (
	"bufio"
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"backupmgr/internal/domain"
)

// DefaultTarsnapPath is where the tarsnap binary is expected unless the
// backend configuration overrides it.
const DefaultTarsnapPath = "/usr/local/bin/tarsnap"

// Tarsnap shells out to the tarsnap archiver. Archives are named
// hex(sha1(backendName||backupName))-unixtime-backupName so that a raw
// listing can be filtered back to (backend, backup) pairs without
// escaping arbitrary characters from either name.
type Tarsnap struct {
	name       string
	binaryPath string
	keyfile    string
	logger     *slog.Logger
}

// tarsnapSnapshot is the primed list token of a Tarsnap backend: the raw
// lines of one full --list-archives invocation.
type tarsnapSnapshot []string

// NewTarsnap builds a Tarsnap backend from its configured settings.
// Recognized settings: "keyfile" (optional) and "tarsnap_path"
// (optional, defaults to DefaultTarsnapPath).
func NewTarsnap(name string, settings map[string]any, logger *slog.Logger) (Backend, error) {
	if logger == nil {
		logger = slog.Default()
	}

	b := &Tarsnap{
		name:       name,
		binaryPath: DefaultTarsnapPath,
		logger:     logger.With("backend", name),
	}

	if keyfile, ok := settings["keyfile"]; ok {
		s, ok := keyfile.(string)
		if !ok {
			return nil, domain.NewConfigError("backend %q: keyfile must be a string", name)
		}
		b.keyfile = s
	}
	if path, ok := settings["tarsnap_path"]; ok {
		s, ok := path.(string)
		if !ok {
			return nil, domain.NewConfigError("backend %q: tarsnap_path must be a string", name)
		}
		b.binaryPath = s
	}

	return b, nil
}

// Name returns the configured backend name.
func (b *Tarsnap) Name() string {
	return b.name
}

// instanceIdentifier encodes backend and backup identity as a fixed-width
// hex digest, making the archive name safe to match with a generated
// regular expression.
func (b *Tarsnap) instanceIdentifier(backupName string) string {
	sum := sha1.Sum([]byte(b.name + backupName))
	return hex.EncodeToString(sum[:])
}

// InstanceName builds the full archive name for a backup performed at now.
func (b *Tarsnap) InstanceName(backupName string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s",
		b.instanceIdentifier(backupName), formatTimestamp(timestampOf(now)), backupName)
}

func timestampOf(t time.Time) float64 {
	return float64(t.UnixNano()) / float64(time.Second)
}

// formatTimestamp renders an epoch timestamp with at least one fractional
// digit, e.g. 1416279400.0.
func formatTimestamp(ts float64) string {
	s := strconv.FormatFloat(ts, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return s
}

// archivePattern matches listing lines belonging to backupName on this
// backend, capturing the timestamp.
func (b *Tarsnap) archivePattern(backupName string) *regexp.Regexp {
	return regexp.MustCompile(fmt.Sprintf(`^%s-(\d+(?:\.\d+)?)-%s$`,
		b.instanceIdentifier(backupName), regexp.QuoteMeta(backupName)))
}

// Perform creates one archive covering all source paths. The paths are
// exposed to tarsnap through a scratch directory of symlinks so the
// archive contains the configured member names rather than the absolute
// source paths; the scratch directory is removed unconditionally.
func (b *Tarsnap) Perform(ctx context.Context, paths map[string]string, backupName string, now time.Time) error {
	fullname := b.InstanceName(backupName, now)

	b.logger.Info("creating archive", "backup", backupName, "archive", fullname)

	stagingDir, err := os.MkdirTemp("", "backupmgr-")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer func() {
		if err := os.RemoveAll(stagingDir); err != nil {
			b.logger.Warn("failed to remove staging directory", "dir", stagingDir, "error", err)
		}
	}()

	names := make([]string, 0, len(paths))
	for path, name := range paths {
		if err := os.Symlink(path, filepath.Join(stagingDir, name)); err != nil {
			return fmt.Errorf("failed to stage %s: %w", path, err)
		}
		names = append(names, name)
	}
	sort.Strings(names)

	args := []string{"-C", stagingDir, "-H", "-cf", fullname}
	args = append(args, b.keyfileArgs()...)
	args = append(args, names...)

	_, err = b.run(ctx, args...)
	return err
}

// Archives lists the archives belonging to backupName, served from token
// if one was primed.
func (b *Tarsnap) Archives(ctx context.Context, backupName string, token ListToken) ([]domain.Archive, error) {
	var lines []string
	if token != nil {
		snapshot, ok := token.(tarsnapSnapshot)
		if !ok {
			return nil, fmt.Errorf("backend %s: foreign list token %T", b.name, token)
		}
		lines = snapshot
	} else {
		var err error
		lines, err = b.listLines(ctx)
		if err != nil {
			return nil, err
		}
	}

	pattern := b.archivePattern(backupName)

	var archives []domain.Archive
	for _, line := range lines {
		match := pattern.FindStringSubmatch(line)
		if match == nil {
			continue
		}
		ts, err := strconv.ParseFloat(match[1], 64)
		if err != nil {
			// The pattern only admits digits and a dot; a parse
			// failure here means a listing line we cannot trust.
			b.logger.Warn("skipping unparsable listing line", "line", line)
			continue
		}
		archives = append(archives, domain.Archive{
			BackendName: b.name,
			Timestamp:   ts,
			Fullname:    line,
			BackupName:  backupName,
		})
	}
	return archives, nil
}

// PrimedListToken fetches the full archive listing once for reuse across
// backups sharing this backend.
func (b *Tarsnap) PrimedListToken(ctx context.Context) (ListToken, error) {
	lines, err := b.listLines(ctx)
	if err != nil {
		return nil, err
	}
	return tarsnapSnapshot(lines), nil
}

// Restore unpacks the archive into the destination directory.
func (b *Tarsnap) Restore(ctx context.Context, archive domain.Archive, destination string) error {
	b.logger.Info("restoring archive", "archive", archive.Fullname, "destination", destination)

	args := []string{"-x", "-f", archive.Fullname, "-C", destination}
	args = append(args, b.keyfileArgs()...)
	_, err := b.run(ctx, args...)
	return err
}

// Destroy deletes the archive.
func (b *Tarsnap) Destroy(ctx context.Context, archive domain.Archive) error {
	b.logger.Info("destroying archive", "archive", archive.Fullname)

	args := []string{"-d", "-f", archive.Fullname}
	args = append(args, b.keyfileArgs()...)
	_, err := b.run(ctx, args...)
	return err
}

// Validate checks that the tarsnap binary exists.
func (b *Tarsnap) Validate(ctx context.Context) error {
	if _, err := os.Stat(b.binaryPath); err != nil {
		return fmt.Errorf("tarsnap binary not found at %s: %w", b.binaryPath, err)
	}
	return nil
}

func (b *Tarsnap) listLines(ctx context.Context) ([]string, error) {
	args := []string{"--list-archives"}
	args = append(args, b.keyfileArgs()...)

	output, err := b.run(ctx, args...)
	if err != nil {
		return nil, err
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}

// run executes tarsnap, folding its stderr into the log stream. Tarsnap
// chatters on stderr during normal operation, so it is logged rather
// than treated as part of a failure.
func (b *Tarsnap) run(ctx context.Context, args ...string) ([]byte, error) {
	b.logger.Debug("invoking tarsnap", "path", b.binaryPath, "args", args)

	// #nosec G204 -- binary path and arguments come from validated config
	cmd := exec.CommandContext(ctx, b.binaryPath, args...)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()

	toolLogger := b.logger.With("tool", "tarsnap")
	scanner := bufio.NewScanner(&stderr)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			toolLogger.Info(line)
		}
	}

	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("tarsnap invocation failed: %w", err)
	}
	return stdout.Bytes(), nil
}

func (b *Tarsnap) keyfileArgs() []string {
	if b.keyfile == "" {
		return nil
	}
	return []string{"--keyfile", b.keyfile}
}

// Ensure Tarsnap implements Backend.
var _ Backend = (*Tarsnap)(nil)
