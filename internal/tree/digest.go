package tree

import (
	"encoding/binary"
	"encoding/hex"
	"hash"
	"math"
	"sort"

	"golang.org/x/crypto/blake2b"
)

// Digest is a content hash of a whole store
type Digest [blake2b.Size256]byte

func (d Digest) String() string {
	return hex.EncodeToString(d[:])
}

// Digest hashes every document path and its fields in canonical order, so
// two stores with equal content have equal digests regardless of the order
// their documents were discovered in.
func (s *Store) Digest() Digest {
	flat := s.Flatten()
	paths := make([]string, 0, len(flat))
	for p := range flat {
		paths = append(paths, p)
	}
	sort.Strings(paths)

	h, _ := blake2b.New256(nil)
	for _, p := range paths {
		writeString(h, p)
		writeFields(h, flat[p])
	}
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

// FieldsDigest hashes a single field map
func FieldsDigest(f Fields) Digest {
	h, _ := blake2b.New256(nil)
	writeFields(h, f)
	var d Digest
	copy(d[:], h.Sum(nil))
	return d
}

func writeFields(h hash.Hash, f Fields) {
	writeUint(h, uint64(len(f)))
	for _, k := range f.Keys() {
		writeString(h, k)
		writeValue(h, f[k])
	}
}

func writeValue(h hash.Hash, v Value) {
	h.Write([]byte{byte(v.kind)})
	switch v.kind {
	case KindBool:
		if v.b {
			h.Write([]byte{1})
		} else {
			h.Write([]byte{0})
		}
	case KindInt:
		writeUint(h, uint64(v.i))
	case KindFloat:
		writeUint(h, math.Float64bits(v.f))
	case KindString, KindRef:
		writeString(h, v.s)
	case KindBytes:
		writeUint(h, uint64(len(v.raw)))
		h.Write(v.raw)
	case KindTime:
		writeUint(h, uint64(v.t.Unix()))
		writeUint(h, uint64(v.t.Nanosecond()))
	case KindGeoPoint:
		writeUint(h, math.Float64bits(v.geo.Lat))
		writeUint(h, math.Float64bits(v.geo.Lng))
	case KindArray:
		writeUint(h, uint64(len(v.arr)))
		for _, item := range v.arr {
			writeValue(h, item)
		}
	case KindMap:
		writeFields(h, v.m)
	}
}

func writeString(h hash.Hash, s string) {
	writeUint(h, uint64(len(s)))
	h.Write([]byte(s))
}

func writeUint(h hash.Hash, u uint64) {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], u)
	h.Write(buf[:])
}
