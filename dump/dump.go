// Package dump encodes dispatcher introspection dumps as canonical CBOR.
//
// Canonical encoding makes the bytes a function of the registrations
// alone, so dumps from two processes can be compared with bytes.Equal or
// by Fingerprint.
package dump

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"

	"github.com/chazu/opdispatch/value"
	"github.com/fxamacker/cbor/v2"
)

var encMode cbor.EncMode

func init() {
	em, err := cbor.CanonicalEncOptions().EncMode()
	if err != nil {
		panic(fmt.Sprintf("dump: failed to create CBOR enc mode: %v", err))
	}
	encMode = em
}

// Marshal serializes a dump to canonical CBOR bytes.
func Marshal(d value.TypeInfoDump) ([]byte, error) {
	return encMode.Marshal(d)
}

// Unmarshal deserializes a dump from CBOR bytes.
func Unmarshal(data []byte) (value.TypeInfoDump, error) {
	var d value.TypeInfoDump
	if err := cbor.Unmarshal(data, &d); err != nil {
		return value.TypeInfoDump{}, fmt.Errorf("dump: unmarshal: %w", err)
	}
	return d, nil
}

// Fingerprint returns the hex SHA-256 of the canonical encoding of d.
func Fingerprint(d value.TypeInfoDump) (string, error) {
	data, err := Marshal(d)
	if err != nil {
		return "", err
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

// WriteFile writes the canonical encoding of the dispatcher's dump to path.
func WriteFile(path string, d *value.Dispatcher) error {
	data, err := Marshal(d.Dump())
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("dump: write %s: %w", path, err)
	}
	return nil
}

// ReadFile reads a dump written by WriteFile.
func ReadFile(path string) (value.TypeInfoDump, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return value.TypeInfoDump{}, fmt.Errorf("dump: read %s: %w", path, err)
	}
	return Unmarshal(data)
}

// Diff lists what is present in only one of two dumps, prefixed with "-"
// for a and "+" for b. Types come first, then table entries, class
// overrides and compound operators.
func Diff(a, b value.TypeInfoDump) []string {
	var out []string
	out = diffKeys(out, typeKeys(a.Types), typeKeys(b.Types))
	out = diffKeys(out, entryKeys(a.Entries), entryKeys(b.Entries))
	out = diffKeys(out, prefixed("class ", a.ClassOps), prefixed("class ", b.ClassOps))
	out = diffKeys(out, prefixed("compound ", a.CompoundOps), prefixed("compound ", b.CompoundOps))
	return out
}

func typeKeys(ts []value.TypeEntry) []string {
	keys := make([]string, len(ts))
	for i, t := range ts {
		keys[i] = fmt.Sprintf("type %s (%s)", t.Name, t.Class)
	}
	return keys
}

func entryKeys(es []value.OpEntry) []string {
	keys := make([]string, len(es))
	for i, e := range es {
		keys[i] = fmt.Sprintf("%s %s %s,%s -> %s", e.Table, e.Op, e.Left, e.Right, e.Result)
	}
	return keys
}

func prefixed(p string, ss []string) []string {
	keys := make([]string, len(ss))
	for i, s := range ss {
		keys[i] = p + s
	}
	return keys
}

// diffKeys appends the keys only in a, then the keys only in b.
func diffKeys(out, a, b []string) []string {
	inA := make(map[string]bool, len(a))
	for _, k := range a {
		inA[k] = true
	}
	inB := make(map[string]bool, len(b))
	for _, k := range b {
		inB[k] = true
	}
	for _, k := range a {
		if !inB[k] {
			out = append(out, "-"+k)
		}
	}
	for _, k := range b {
		if !inA[k] {
			out = append(out, "+"+k)
		}
	}
	return out
}
