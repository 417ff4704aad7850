package dataexport

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"igfollowers/pkg/instagram"
	"igfollowers/pkg/logger"
	"igfollowers/pkg/models"
)

// exportEntry is one follower record in Instagram's JSON data export.
// The username lives in the first string_list_data element.
type exportEntry struct {
	StringListData []struct {
		Value     string `json:"value"`
		Timestamp int64  `json:"timestamp"`
	} `json:"string_list_data"`
}

// ParseExport extracts follower usernames from an extracted Instagram
// data export directory. It reads every followers_*.json under the
// tree (falling back to followers.json for older exports), lowercases
// and sanitizes usernames, skips values that are not valid Instagram
// usernames, and drops duplicates, keeping the first occurrence.
func ParseExport(exportDir string) ([]models.Follower, error) {
	log := logger.GetLogger()

	info, err := os.Stat(exportDir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("export directory not found: %s", exportDir)
	}

	files, err := findFollowerFiles(exportDir)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no follower JSON files found in %s: expected files like connections/followers_and_following/followers_1.json (request the export in JSON format)", exportDir)
	}

	seen := make(map[string]bool)
	var followers []models.Follower

	for _, path := range files {
		log.DebugWithFields("Parsing export file", map[string]interface{}{
			"file": filepath.Base(path),
		})

		entries, err := readEntries(path)
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
		}

		for _, entry := range entries {
			if len(entry.StringListData) == 0 {
				continue
			}

			item := entry.StringListData[0]
			username := instagram.SanitizeUsername(strings.ToLower(strings.TrimSpace(item.Value)))
			if username == "" || seen[username] {
				continue
			}
			if !instagram.IsValidUsername(username) {
				log.DebugWithFields("Skipping invalid username", map[string]interface{}{
					"value": item.Value,
				})
				continue
			}
			seen[username] = true

			f := models.Follower{Username: username}
			if item.Timestamp > 0 {
				f.FollowedAt = time.Unix(item.Timestamp, 0).UTC()
			}
			followers = append(followers, f)
		}
	}

	log.InfoWithFields("Parsed data export", map[string]interface{}{
		"files":     len(files),
		"followers": len(followers),
	})

	return followers, nil
}

// findFollowerFiles walks the export tree for followers_*.json files,
// falling back to followers.json when the numbered form is absent.
func findFollowerFiles(root string) ([]string, error) {
	var numbered, plain []string

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		name := d.Name()
		switch {
		case strings.HasPrefix(name, "followers_") && strings.HasSuffix(name, ".json"):
			numbered = append(numbered, path)
		case name == "followers.json":
			plain = append(plain, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to scan export directory: %w", err)
	}

	files := numbered
	if len(files) == 0 {
		files = plain
	}
	sort.Strings(files)
	return files, nil
}

// readEntries decodes one export file. Most exports are a bare list;
// some wrap the list in an object keyed by relationship type.
func readEntries(path string) ([]exportEntry, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var entries []exportEntry
	if err := json.Unmarshal(content, &entries); err == nil {
		return entries, nil
	}

	var wrapped map[string]json.RawMessage
	if err := json.Unmarshal(content, &wrapped); err != nil {
		return nil, fmt.Errorf("unrecognized export format: %w", err)
	}

	for _, key := range []string{"relationships_followers", "followers"} {
		if raw, ok := wrapped[key]; ok {
			if err := json.Unmarshal(raw, &entries); err != nil {
				return nil, fmt.Errorf("unrecognized export format under %q: %w", key, err)
			}
			return entries, nil
		}
	}

	// Last resort: take the first value that decodes as an entry list
	for _, raw := range wrapped {
		if err := json.Unmarshal(raw, &entries); err == nil {
			return entries, nil
		}
	}

	return nil, fmt.Errorf("no follower list found in file")
}
