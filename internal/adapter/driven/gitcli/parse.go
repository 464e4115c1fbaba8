package gitcli

import (
	"fmt"
	"strings"
	"time"

	"github.com/Team-mobabi/backend-sub000/internal/domain/model"
)

// logFormat lays out one commit per record: hash, parent hashes, author,
// ISO timestamp, and subject, separated by the unit separator byte and
// terminated by the record separator byte. Subjects never contain either.
const logFormat = "%H%x1f%P%x1f%an%x1f%aI%x1f%s%x1e"

const (
	unitSep   = "\x1f"
	recordSep = "\x1e"
)

// parseLog parses --pretty=format output produced with logFormat.
func parseLog(out string) ([]model.Commit, error) {
	var commits []model.Commit
	for _, record := range strings.Split(out, recordSep) {
		record = strings.TrimLeft(record, "\n")
		if record == "" {
			continue
		}
		fields := strings.Split(record, unitSep)
		if len(fields) != 5 {
			return nil, fmt.Errorf("malformed log record %q", record)
		}
		ts, err := time.Parse(time.RFC3339, fields[3])
		if err != nil {
			return nil, fmt.Errorf("parse commit timestamp %q: %w", fields[3], err)
		}
		commits = append(commits, model.Commit{
			Hash:      fields[0],
			Parents:   strings.Fields(fields[1]),
			Author:    fields[2],
			Timestamp: ts,
			Message:   fields[4],
		})
	}
	return commits, nil
}

// parseBranchHeads parses for-each-ref output with a NUL between name and
// hash, stripping the given ref prefix and skipping symbolic HEAD entries.
func parseBranchHeads(out, stripPrefix string) []model.BranchHead {
	heads := []model.BranchHead{}
	for _, line := range splitLines(out) {
		name, hash, ok := strings.Cut(line, "\x00")
		if !ok {
			continue
		}
		name = strings.TrimPrefix(name, stripPrefix)
		if name == "HEAD" || name == "origin" {
			continue
		}
		heads = append(heads, model.BranchHead{Name: name, Hash: hash})
	}
	return heads
}

// parseStatus parses `git status --porcelain` v1 output.
func parseStatus(out string) []model.StatusEntry {
	entries := []model.StatusEntry{}
	for _, line := range strings.Split(out, "\n") {
		if len(line) < 4 {
			continue
		}
		entry := model.StatusEntry{
			Index:    line[0],
			Worktree: line[1],
			Path:     line[3:],
		}
		if from, to, ok := strings.Cut(entry.Path, " -> "); ok {
			entry.From = from
			entry.Path = to
		}
		entries = append(entries, entry)
	}
	return entries
}

// parseAheadBehind parses `rev-list --left-right --count` output, which is
// "<left>\t<right>" with left counting commits only on the first ref.
func parseAheadBehind(out string) (ahead, behind int, err error) {
	fields := strings.Fields(out)
	if len(fields) != 2 {
		return 0, 0, fmt.Errorf("malformed rev-list count output %q", out)
	}
	if _, err := fmt.Sscanf(fields[0], "%d", &behind); err != nil {
		return 0, 0, fmt.Errorf("parse behind count %q: %w", fields[0], err)
	}
	if _, err := fmt.Sscanf(fields[1], "%d", &ahead); err != nil {
		return 0, 0, fmt.Errorf("parse ahead count %q: %w", fields[1], err)
	}
	return ahead, behind, nil
}

// splitLines splits output on newlines, dropping empty lines.
func splitLines(out string) []string {
	lines := []string{}
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
