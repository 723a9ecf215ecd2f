// Package idl loads the program interface schema (an Anchor IDL JSON file)
// that the record decoder consumes. The schema is externally supplied and
// versioned with the on-chain program; this package only reads it.
package idl

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"unicode"
)

// Field is one named, typed field of an event or instruction argument list.
type Field struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

// Event describes one event frame layout: an 8-byte discriminator followed
// by borsh-encoded fields in declaration order.
type Event struct {
	Name          string
	Discriminator [8]byte
	Fields        []Field
}

// Instruction describes one instruction layout: an 8-byte discriminator,
// borsh-encoded arguments, and the declared account order.
type Instruction struct {
	Name          string
	Discriminator [8]byte
	Accounts      []string
	Args          []Field
}

// IDL is the parsed program interface schema.
type IDL struct {
	Name    string
	Version string

	eventsByDisc       map[[8]byte]*Event
	instructionsByDisc map[[8]byte]*Instruction
}

// EventByDiscriminator resolves an event layout from the first 8 bytes of a
// record frame. Unknown discriminators return nil (forward compatibility:
// future record kinds must not abort a batch).
func (i *IDL) EventByDiscriminator(data []byte) *Event {
	if i == nil || len(data) < 8 {
		return nil
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	return i.eventsByDisc[disc]
}

// InstructionByDiscriminator resolves an instruction layout from the first
// 8 bytes of instruction data. Unknown discriminators return nil.
func (i *IDL) InstructionByDiscriminator(data []byte) *Instruction {
	if i == nil || len(data) < 8 {
		return nil
	}
	var disc [8]byte
	copy(disc[:], data[:8])
	return i.instructionsByDisc[disc]
}

// Events returns all declared events, for logging/tests.
func (i *IDL) Events() []*Event {
	if i == nil {
		return nil
	}
	out := make([]*Event, 0, len(i.eventsByDisc))
	for _, e := range i.eventsByDisc {
		out = append(out, e)
	}
	return out
}

// rawIDL covers both the legacy Anchor layout (event fields inline, no
// discriminators) and the current one (discriminators in the file, event
// fields under "types").
type rawIDL struct {
	Name     string `json:"name"`
	Metadata struct {
		Name    string `json:"name"`
		Version string `json:"version"`
	} `json:"metadata"`
	Version string `json:"version"`

	// Discriminators appear as JSON arrays of byte values, so they decode
	// into []int here rather than []byte (which encoding/json would read
	// as base64).
	Events []struct {
		Name          string  `json:"name"`
		Discriminator []int   `json:"discriminator"`
		Fields        []Field `json:"fields"`
	} `json:"events"`

	Instructions []struct {
		Name          string `json:"name"`
		Discriminator []int  `json:"discriminator"`
		Accounts      []struct {
			Name string `json:"name"`
		} `json:"accounts"`
		Args []Field `json:"args"`
	} `json:"instructions"`

	Types []struct {
		Name string `json:"name"`
		Type struct {
			Kind   string  `json:"kind"`
			Fields []Field `json:"fields"`
		} `json:"type"`
	} `json:"types"`
}

// Load reads and parses the IDL at path. A missing file is not an error:
// it returns (nil, nil) and the decoder degrades to zero decoded events.
func Load(path string) (*IDL, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to read IDL file: %w", err)
	}
	return Parse(content)
}

// Parse parses raw IDL JSON.
func Parse(content []byte) (*IDL, error) {
	var raw rawIDL
	if err := json.Unmarshal(content, &raw); err != nil {
		return nil, fmt.Errorf("failed to parse IDL JSON: %w", err)
	}

	typeFields := make(map[string][]Field, len(raw.Types))
	for _, t := range raw.Types {
		if t.Type.Kind == "struct" {
			typeFields[t.Name] = t.Type.Fields
		}
	}

	out := &IDL{
		Name:               raw.Name,
		Version:            raw.Version,
		eventsByDisc:       make(map[[8]byte]*Event, len(raw.Events)),
		instructionsByDisc: make(map[[8]byte]*Instruction, len(raw.Instructions)),
	}
	if out.Name == "" {
		out.Name = raw.Metadata.Name
	}
	if out.Version == "" {
		out.Version = raw.Metadata.Version
	}

	for _, e := range raw.Events {
		fields := e.Fields
		if len(fields) == 0 {
			fields = typeFields[e.Name]
		}
		ev := &Event{
			Name:          e.Name,
			Discriminator: discriminatorOrDefault(e.Discriminator, "event", e.Name),
			Fields:        fields,
		}
		out.eventsByDisc[ev.Discriminator] = ev
	}

	for _, ix := range raw.Instructions {
		accounts := make([]string, 0, len(ix.Accounts))
		for _, a := range ix.Accounts {
			accounts = append(accounts, a.Name)
		}
		in := &Instruction{
			Name:          ix.Name,
			Discriminator: discriminatorOrDefault(ix.Discriminator, "global", toSnake(ix.Name)),
			Accounts:      accounts,
			Args:          ix.Args,
		}
		out.instructionsByDisc[in.Discriminator] = in
	}

	return out, nil
}

// discriminatorOrDefault prefers the file-declared discriminator and falls
// back to the Anchor derivation sha256("<ns>:<name>")[:8].
func discriminatorOrDefault(declared []int, namespace, name string) [8]byte {
	var disc [8]byte
	if len(declared) >= 8 {
		for i := 0; i < 8; i++ {
			disc[i] = byte(declared[i])
		}
		return disc
	}
	sum := sha256.Sum256([]byte(namespace + ":" + name))
	copy(disc[:], sum[:8])
	return disc
}

// toSnake converts camelCase instruction names to the snake_case form the
// global discriminator namespace uses. Names already in snake_case pass
// through unchanged.
func toSnake(name string) string {
	if !strings.ContainsFunc(name, unicode.IsUpper) {
		return name
	}
	var b strings.Builder
	for i, r := range name {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}
