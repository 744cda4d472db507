package dataset

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Key names one dataset file.
type Key string

const (
	NamesKey     Key = "birdMap.json"
	EndemicKey   Key = "endemic.json"
	TypeaheadKey Key = "pinyin_mapping.json"
)

// KeyInfo describes a dataset file.
type KeyInfo struct {
	Key         Key
	Description string
	// Required files fail the load when missing; the others degrade to empty.
	Required bool
	MinSize  int64
}

var supportedKeys = map[Key]KeyInfo{
	NamesKey: {
		Key:         NamesKey,
		Description: "English to localized name mapping",
		Required:    true,
		MinSize:     2, // "{}"
	},
	EndemicKey: {
		Key:         EndemicKey,
		Description: "Endemic region codes per species",
		MinSize:     2,
	},
	TypeaheadKey: {
		Key:         TypeaheadKey,
		Description: "Pinyin keys per species",
		MinSize:     2,
	},
}

// Keys returns the dataset keys in load order.
func Keys() []Key {
	return []Key{NamesKey, EndemicKey, TypeaheadKey}
}

// Info returns the description of key.
func Info(key Key) (KeyInfo, bool) {
	info, ok := supportedKeys[key]
	return info, ok
}

// ValidateFile checks that filename can hold the dataset for key.
func ValidateFile(filename string, key Key) error {
	info, ok := supportedKeys[key]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownKey, key)
	}
	fileInfo, err := os.Stat(filename)
	if err != nil {
		return fmt.Errorf("failed to stat file %s: %w", filename, err)
	}
	if fileInfo.IsDir() {
		return fmt.Errorf("%s is a directory", filename)
	}
	if fileInfo.Size() < info.MinSize {
		return fmt.Errorf("file %s is too small (%d bytes) for %s (minimum: %d bytes)",
			filename, fileInfo.Size(), info.Description, info.MinSize)
	}
	if ext := strings.ToLower(filepath.Ext(filename)); ext != ".json" {
		return fmt.Errorf("file %s has invalid extension %s (expected: .json)", filename, ext)
	}
	return nil
}
