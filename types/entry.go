package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// EntryType tells directories and files apart.
type EntryType string

const (
	TypeDir  EntryType = "dir"
	TypeFile EntryType = "file"
)

// Props carries per-entry flags computed by tree listings.
type Props struct {
	HasSubdirectories bool `json:"hasSubdirectories"`
}

// Entry is one file or directory record returned by a disk.
//
// Path and Type are always set. The optional fields are pointers so that an
// absent field and an empty value stay distinguishable on the wire: a root
// level file has Dirname "" while a plain listing entry has no dirname at all.
// Backend specific fields (size, timestamp, visibility, ...) live in Meta and
// are flattened into the JSON object.
type Entry struct {
	Path      string
	Type      EntryType
	Basename  string
	Filename  *string
	Dirname   *string
	Extension *string
	ACL       *int
	Props     *Props
	Meta      map[string]any
}

// NewEntry builds a listing entry for path with basename and filename filled
// in from the path.
func NewEntry(p string, typ EntryType) Entry {
	p = strings.TrimRight(p, "/")
	info := SplitPath(p)
	return Entry{Path: p, Type: typ, Basename: info.Basename, Filename: &info.Filename}
}

func (e Entry) IsDir() bool { return e.Type == TypeDir }

// Clone returns a copy that shares no mutable state with e.
func (e Entry) Clone() Entry {
	c := e
	c.Filename = cloneString(e.Filename)
	c.Dirname = cloneString(e.Dirname)
	c.Extension = cloneString(e.Extension)
	if e.ACL != nil {
		v := *e.ACL
		c.ACL = &v
	}
	if e.Props != nil {
		v := *e.Props
		c.Props = &v
	}
	if e.Meta != nil {
		c.Meta = make(map[string]any, len(e.Meta))
		for k, v := range e.Meta {
			c.Meta[k] = v
		}
	}
	return c
}

// SetMeta stores a backend specific field.
func (e *Entry) SetMeta(key string, value any) {
	if e.Meta == nil {
		e.Meta = make(map[string]any)
	}
	e.Meta[key] = value
}

// Size returns the "size" metadata field, or 0.
func (e Entry) Size() int64 {
	switch v := e.Meta["size"].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case float64:
		return int64(v)
	}
	return 0
}

// String returns a formatted ls-style line for this entry.
func (e Entry) String() string {
	dirFlag := "-"
	name := e.Basename
	if e.IsDir() {
		dirFlag = "d"
		name += "/"
	}
	acl := ""
	if e.ACL != nil {
		acl = fmt.Sprintf(" [acl=%d]", *e.ACL)
	}
	return fmt.Sprintf("%s%s  %s", dirFlag, acl, name)
}

var reservedKeys = map[string]bool{
	"path": true, "type": true, "basename": true, "filename": true,
	"dirname": true, "extension": true, "acl": true, "props": true,
}

func (e Entry) MarshalJSON() ([]byte, error) {
	m := make(map[string]any, len(e.Meta)+8)
	for k, v := range e.Meta {
		if !reservedKeys[k] {
			m[k] = v
		}
	}
	m["path"] = e.Path
	m["type"] = e.Type
	m["basename"] = e.Basename
	if e.Filename != nil {
		m["filename"] = *e.Filename
	}
	if e.Dirname != nil {
		m["dirname"] = *e.Dirname
	}
	if e.Extension != nil {
		m["extension"] = *e.Extension
	}
	if e.ACL != nil {
		m["acl"] = *e.ACL
	}
	if e.Props != nil {
		m["props"] = e.Props
	}
	return json.Marshal(m)
}

func (e *Entry) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*e = Entry{}
	for k, v := range raw {
		var err error
		switch k {
		case "path":
			err = json.Unmarshal(v, &e.Path)
		case "type":
			err = json.Unmarshal(v, &e.Type)
		case "basename":
			err = json.Unmarshal(v, &e.Basename)
		case "filename":
			e.Filename = new(string)
			err = json.Unmarshal(v, e.Filename)
		case "dirname":
			e.Dirname = new(string)
			err = json.Unmarshal(v, e.Dirname)
		case "extension":
			e.Extension = new(string)
			err = json.Unmarshal(v, e.Extension)
		case "acl":
			e.ACL = new(int)
			err = json.Unmarshal(v, e.ACL)
		case "props":
			e.Props = new(Props)
			err = json.Unmarshal(v, e.Props)
		default:
			var val any
			if err = json.Unmarshal(v, &val); err == nil {
				e.SetMeta(k, val)
			}
		}
		if err != nil {
			return fmt.Errorf("entry field %q: %w", k, err)
		}
	}
	return nil
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}
