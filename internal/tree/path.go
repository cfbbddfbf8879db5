package tree

import (
	"fmt"
	"strings"
)

// Path addresses a collection or a document by alternating
// collection-name / document-id segments. An empty Path is the store root,
// an odd-length Path is a collection and an even-length Path is a document.
type Path []string

// Root returns the empty path
func Root() Path { return nil }

// ParsePath splits a slash-separated path such as "users/alice/settings"
func ParsePath(s string) (Path, error) {
	s = strings.Trim(s, "/")
	if s == "" {
		return Root(), nil
	}
	segments := strings.Split(s, "/")
	for i, seg := range segments {
		if seg == "" {
			return nil, fmt.Errorf("invalid path %q: empty segment at %d", s, i)
		}
	}
	return Path(segments), nil
}

// Collection returns the path of the named collection beneath p.
// p must be the root or a document.
func (p Path) Collection(name string) Path {
	return p.append(name)
}

// Doc returns the path of the document with id inside collection p
func (p Path) Doc(id string) Path {
	return p.append(id)
}

func (p Path) append(seg string) Path {
	out := make(Path, len(p)+1)
	copy(out, p)
	out[len(p)] = seg
	return out
}

// Parent drops the last segment
func (p Path) Parent() Path {
	if len(p) == 0 {
		return nil
	}
	return p[:len(p)-1:len(p)-1]
}

// ID returns the last segment: the document id or collection name
func (p Path) ID() string {
	if len(p) == 0 {
		return ""
	}
	return p[len(p)-1]
}

func (p Path) IsRoot() bool { return len(p) == 0 }
func (p Path) IsDocument() bool { return len(p) > 0 && len(p)%2 == 0 }
func (p Path) IsCollection() bool { return len(p)%2 == 1 }

func (p Path) String() string {
	return strings.Join(p, "/")
}

// Validate checks segment contents
func (p Path) Validate() error {
	for i, seg := range p {
		if seg == "" {
			return fmt.Errorf("invalid path %q: empty segment at %d", p.String(), i)
		}
		if strings.Contains(seg, "/") {
			return fmt.Errorf("invalid path segment %q: contains '/'", seg)
		}
	}
	return nil
}
