package persist

import (
	"encoding/json"
	"errors"
	"os"
)

// Metadata tags a persisted JSON document with a header/version pair so
// that LoadJSON can refuse to load a file written by an incompatible format,
// the way the teacher's persist.Metadata does.
type Metadata struct {
	Header  string
	Version string
}

// ErrBadVersion is returned by LoadJSON when a file's Metadata does not
// match the Metadata the caller expects.
var ErrBadVersion = errors.New("persist: mismatched metadata version")

type document struct {
	Metadata
	Data json.RawMessage
}

// SaveJSON writes v to filename as JSON tagged with meta, first writing to a
// temp file and renaming over the destination so a crash mid-write cannot
// leave a half-written file in place.
func SaveJSON(meta Metadata, v interface{}, filename string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	doc := document{Metadata: meta, Data: data}
	tmp := filename + tempSuffix
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	enc.SetIndent("", "\t")
	if err := enc.Encode(doc); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, filename)
}

// LoadJSON reads filename, verifies its Metadata matches meta, and decodes
// its payload into v.
func LoadJSON(meta Metadata, v interface{}, filename string) error {
	f, err := os.Open(filename)
	if err != nil {
		return err
	}
	defer f.Close()
	var doc document
	if err := json.NewDecoder(f).Decode(&doc); err != nil {
		return err
	}
	if doc.Header != meta.Header || doc.Version != meta.Version {
		return ErrBadVersion
	}
	return json.Unmarshal(doc.Data, v)
}

const tempSuffix = "_temp"
