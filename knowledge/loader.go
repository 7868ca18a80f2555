package knowledge

import (
	"database/sql"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/xiaoyuanzhu-com/couplet-server/log"
	"gopkg.in/yaml.v3"
)

//go:embed data/couplets.json
var defaultCorpus []byte

// EmbeddedSource is reported by Base.Source for the built-in corpus
const EmbeddedSource = "embedded:couplets.json"

var (
	// ErrUnsupportedFormat is returned for knowledge base files with an unknown extension
	ErrUnsupportedFormat = errors.New("unsupported knowledge base format")

	// ErrEmptyKnowledgeBase is returned when a source holds no usable entries
	ErrEmptyKnowledgeBase = errors.New("knowledge base has no entries")
)

// Open loads the knowledge base at path, or the embedded corpus when path is empty.
func Open(path string) (*Base, error) {
	if path == "" {
		entries, err := parseJSON(defaultCorpus)
		if err != nil {
			return nil, fmt.Errorf("failed to parse embedded corpus: %w", err)
		}
		log.Info().Int("entries", len(entries)).Msg("knowledge base loaded from embedded corpus")
		return NewBase(entries, EmbeddedSource), nil
	}

	entries, err := Load(path)
	if err != nil {
		return nil, err
	}
	log.Info().Str("path", path).Int("entries", len(entries)).Msg("knowledge base loaded")
	return NewBase(entries, path), nil
}

// Load reads couplet pairs from a file. The format is chosen by extension:
//   - .json: [{"upper": "...", "lower": "..."}, ...]
//   - .yaml, .yml: the same list in YAML
//   - .sqlite, .sqlite3, .db: rows of a "couplets" table (upper, lower), in rowid order
//
// Entries with an empty upper or lower line are skipped.
func Load(path string) ([]Entry, error) {
	var (
		entries []Entry
		err     error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".json":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			entries, err = parseJSON(data)
		}
	case ".yaml", ".yml":
		var data []byte
		if data, err = os.ReadFile(path); err == nil {
			entries, err = parseYAML(data)
		}
	case ".sqlite", ".sqlite3", ".db":
		entries, err = loadSQLite(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load knowledge base %s: %w", path, err)
	}

	entries = compact(entries)
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyKnowledgeBase, path)
	}
	return entries, nil
}

func parseJSON(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return compact(entries), nil
}

func parseYAML(data []byte) ([]Entry, error) {
	var entries []Entry
	if err := yaml.Unmarshal(data, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

func loadSQLite(path string) ([]Entry, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?mode=ro")
	if err != nil {
		return nil, err
	}
	defer db.Close()

	rows, err := db.Query(`SELECT upper, lower FROM couplets ORDER BY rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Upper, &e.Lower); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// compact trims both lines and drops incomplete entries, keeping order
func compact(entries []Entry) []Entry {
	out := entries[:0]
	for _, e := range entries {
		e.Upper = strings.TrimSpace(e.Upper)
		e.Lower = strings.TrimSpace(e.Lower)
		if e.Upper == "" || e.Lower == "" {
			log.Debug().Str("upper", e.Upper).Str("lower", e.Lower).Msg("skipping incomplete knowledge base entry")
			continue
		}
		out = append(out, e)
	}
	return out
}
