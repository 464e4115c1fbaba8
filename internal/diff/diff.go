// Package diff parses raw git diff output -- unified patches, --numstat,
// and --name-status -- into structured records for the API layer. It never
// runs git itself.
package diff

import (
	"fmt"
	"strconv"
	"strings"
)

// LineKind classifies one line of a hunk.
type LineKind string

const (
	LineContext LineKind = "context"
	LineAdded   LineKind = "added"
	LineRemoved LineKind = "removed"
)

// Line is a single line within a hunk.
type Line struct {
	Kind    LineKind
	Content string
}

// Hunk is one @@ section of a file diff.
type Hunk struct {
	OldStart int
	OldLines int
	NewStart int
	NewLines int
	Header   string
	Lines    []Line
}

// FileDiff is the parsed diff of a single file.
type FileDiff struct {
	OldPath  string
	NewPath  string
	Status   string
	IsBinary bool
	Hunks    []Hunk
}

// Stat is the per-file addition/deletion count from --numstat. Binary
// files carry -1 for both counts.
type Stat struct {
	Path      string
	OldPath   string
	Additions int
	Deletions int
	IsBinary  bool
}

// NameStatus is one entry of --name-status output.
type NameStatus struct {
	Status  string
	Path    string
	OldPath string
	Score   int
}

// ParseUnified parses a unified diff into per-file records.
func ParseUnified(text string) ([]FileDiff, error) {
	files := []FileDiff{}
	var cur *FileDiff
	var hunk *Hunk

	flushHunk := func() {
		if cur != nil && hunk != nil {
			cur.Hunks = append(cur.Hunks, *hunk)
			hunk = nil
		}
	}
	flushFile := func() {
		flushHunk()
		if cur != nil {
			files = append(files, *cur)
			cur = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		switch {
		case strings.HasPrefix(line, "diff --git "):
			flushFile()
			oldPath, newPath, err := parseDiffHeader(line)
			if err != nil {
				return nil, err
			}
			cur = &FileDiff{OldPath: oldPath, NewPath: newPath, Status: "modified"}
		case cur == nil:
			// Preamble before the first file header.
			continue
		case strings.HasPrefix(line, "new file mode"):
			cur.Status = "added"
		case strings.HasPrefix(line, "deleted file mode"):
			cur.Status = "deleted"
		case strings.HasPrefix(line, "rename from "):
			cur.Status = "renamed"
			cur.OldPath = strings.TrimPrefix(line, "rename from ")
		case strings.HasPrefix(line, "rename to "):
			cur.NewPath = strings.TrimPrefix(line, "rename to ")
		case strings.HasPrefix(line, "Binary files "):
			cur.IsBinary = true
		case strings.HasPrefix(line, "@@"):
			flushHunk()
			h, err := parseHunkHeader(line)
			if err != nil {
				return nil, err
			}
			hunk = &h
		case hunk != nil && len(line) > 0:
			switch line[0] {
			case '+':
				hunk.Lines = append(hunk.Lines, Line{Kind: LineAdded, Content: line[1:]})
			case '-':
				hunk.Lines = append(hunk.Lines, Line{Kind: LineRemoved, Content: line[1:]})
			case ' ':
				hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: line[1:]})
			case '\\':
				// "\ No newline at end of file" -- not part of the content.
			}
		case hunk != nil:
			// An empty line inside a hunk is empty context.
			hunk.Lines = append(hunk.Lines, Line{Kind: LineContext, Content: ""})
		}
	}
	flushFile()

	return files, nil
}

// parseDiffHeader extracts the two paths from a "diff --git a/x b/y" line.
func parseDiffHeader(line string) (string, string, error) {
	rest := strings.TrimPrefix(line, "diff --git ")
	// Paths with spaces are rare in the header's unquoted form; split on
	// the " b/" boundary which cannot occur inside the a/ path unescaped.
	idx := strings.Index(rest, " b/")
	if idx < 0 || !strings.HasPrefix(rest, "a/") {
		return "", "", fmt.Errorf("malformed diff header %q", line)
	}
	return rest[2:idx], rest[idx+3:], nil
}

// parseHunkHeader parses "@@ -l,s +l,s @@ header".
func parseHunkHeader(line string) (Hunk, error) {
	rest := strings.TrimPrefix(line, "@@ ")
	marker := strings.Index(rest, " @@")
	if marker < 0 {
		return Hunk{}, fmt.Errorf("malformed hunk header %q", line)
	}
	ranges := rest[:marker]
	header := strings.TrimPrefix(rest[marker+3:], " ")

	var h Hunk
	h.Header = header
	oldPart, newPart, ok := strings.Cut(ranges, " ")
	if !ok {
		return Hunk{}, fmt.Errorf("malformed hunk ranges %q", line)
	}
	var err error
	if h.OldStart, h.OldLines, err = parseRange(oldPart, "-"); err != nil {
		return Hunk{}, fmt.Errorf("%v in %q", err, line)
	}
	if h.NewStart, h.NewLines, err = parseRange(newPart, "+"); err != nil {
		return Hunk{}, fmt.Errorf("%v in %q", err, line)
	}
	return h, nil
}

// parseRange parses "-l,s" or "+l,s"; a missing count means one line.
func parseRange(s, sign string) (start, count int, err error) {
	if !strings.HasPrefix(s, sign) {
		return 0, 0, fmt.Errorf("malformed range %q", s)
	}
	s = s[1:]
	startStr, countStr, hasCount := strings.Cut(s, ",")
	if start, err = strconv.Atoi(startStr); err != nil {
		return 0, 0, fmt.Errorf("malformed range start %q", s)
	}
	count = 1
	if hasCount {
		if count, err = strconv.Atoi(countStr); err != nil {
			return 0, 0, fmt.Errorf("malformed range count %q", s)
		}
	}
	return start, count, nil
}

// ParseNumstat parses --numstat output. A "-" count marks a binary file.
func ParseNumstat(text string) ([]Stat, error) {
	stats := []Stat{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.SplitN(line, "\t", 3)
		if len(fields) != 3 {
			return nil, fmt.Errorf("malformed numstat line %q", line)
		}
		stat := Stat{Path: fields[2]}
		if fields[0] == "-" || fields[1] == "-" {
			stat.IsBinary = true
			stat.Additions = -1
			stat.Deletions = -1
		} else {
			var err error
			if stat.Additions, err = strconv.Atoi(fields[0]); err != nil {
				return nil, fmt.Errorf("malformed numstat additions %q", line)
			}
			if stat.Deletions, err = strconv.Atoi(fields[1]); err != nil {
				return nil, fmt.Errorf("malformed numstat deletions %q", line)
			}
		}
		// Renames come through as "old => new" or "prefix{old => new}".
		if oldPath, newPath, ok := parseRenamePath(stat.Path); ok {
			stat.OldPath = oldPath
			stat.Path = newPath
		}
		stats = append(stats, stat)
	}
	return stats, nil
}

// parseRenamePath handles the two rename notations numstat emits.
func parseRenamePath(path string) (string, string, bool) {
	if open := strings.Index(path, "{"); open >= 0 {
		if end := strings.Index(path, "}"); end > open {
			inner := path[open+1 : end]
			if oldPart, newPart, ok := strings.Cut(inner, " => "); ok {
				prefix := path[:open]
				suffix := path[end+1:]
				return prefix + oldPart + suffix, prefix + newPart + suffix, true
			}
		}
		return "", "", false
	}
	if oldPath, newPath, ok := strings.Cut(path, " => "); ok {
		return oldPath, newPath, true
	}
	return "", "", false
}

// ParseNameStatus parses --name-status output, including scored rename and
// copy entries such as "R100\told\tnew".
func ParseNameStatus(text string) ([]NameStatus, error) {
	entries := []NameStatus{}
	for _, line := range strings.Split(text, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) < 2 {
			return nil, fmt.Errorf("malformed name-status line %q", line)
		}
		status := fields[0]
		entry := NameStatus{Status: status[:1]}
		if len(status) > 1 {
			score, err := strconv.Atoi(status[1:])
			if err != nil {
				return nil, fmt.Errorf("malformed name-status score %q", line)
			}
			entry.Score = score
		}
		switch entry.Status {
		case "R", "C":
			if len(fields) != 3 {
				return nil, fmt.Errorf("rename entry needs two paths %q", line)
			}
			entry.OldPath = fields[1]
			entry.Path = fields[2]
		default:
			entry.Path = fields[1]
		}
		entries = append(entries, entry)
	}
	return entries, nil
}
