// Package decode turns one raw transaction into typed records using the
// program interface schema. Three strategies are attempted in order, first
// success wins: structured event frames from the runtime log, raw emitted
// program data lines, and finally the invoking instruction's own arguments
// plus account order.
package decode

import (
	"encoding/base64"
	"log/slog"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/heliograph-labs/heliograph/internal/idl"
	"github.com/heliograph-labs/heliograph/internal/ledger"
)

const programDataPrefix = "Program data: "

// Record is one decoded program record. Fields keep the schema's own field
// names (camelCase or snake_case, whichever the schema uses); the
// normalizer resolves that. Accounts is populated only by the
// instruction-argument tier, in the instruction's declared account order.
type Record struct {
	Name     string
	Fields   map[string]interface{}
	Accounts []string
}

// Decoder decodes transactions for one program against one schema.
type Decoder struct {
	programID string
	schema    *idl.IDL
}

// New creates a decoder. A nil schema is allowed: every transaction then
// decodes to zero records rather than failing.
func New(programID solana.PublicKey, schema *idl.IDL) *Decoder {
	return &Decoder{
		programID: programID.String(),
		schema:    schema,
	}
}

// Decode extracts all recognizable records from one transaction.
// Individual malformed records are dropped with a warning; they never fail
// the transaction.
func (d *Decoder) Decode(tx *ledger.Transaction) []Record {
	if d.schema == nil {
		return nil
	}

	records := d.decodeScopedLogFrames(tx)
	if len(records) > 0 {
		return records
	}

	records = d.decodeRawProgramData(tx)
	if len(records) > 0 {
		return records
	}

	return d.decodeInstructions(tx)
}

// decodeScopedLogFrames parses structured event frames, counting only the
// "Program data:" lines emitted while the mirrored program itself is
// executing. Frames from inner invocations of other programs are ignored.
func (d *Decoder) decodeScopedLogFrames(tx *ledger.Transaction) []Record {
	var records []Record
	var stack []string

	for _, line := range tx.LogMessages {
		switch {
		case isInvokeLine(line):
			stack = append(stack, invokedProgram(line))

		case isTerminationLine(line):
			if len(stack) > 0 {
				stack = stack[:len(stack)-1]
			}

		case strings.HasPrefix(line, programDataPrefix):
			if len(stack) == 0 || stack[len(stack)-1] != d.programID {
				continue
			}
			if rec := d.decodeEventFrame(line[len(programDataPrefix):], tx.Signature); rec != nil {
				records = append(records, *rec)
			}
		}
	}

	return records
}

// decodeRawProgramData retries every emitted-data line without invocation
// context. Some runtimes surface only the generic data line, so this tier
// trades precision for coverage; the discriminator check still guards
// against foreign frames.
func (d *Decoder) decodeRawProgramData(tx *ledger.Transaction) []Record {
	var records []Record
	for _, line := range tx.LogMessages {
		if !strings.HasPrefix(line, programDataPrefix) {
			continue
		}
		if rec := d.decodeEventFrame(line[len(programDataPrefix):], tx.Signature); rec != nil {
			records = append(records, *rec)
		}
	}
	return records
}

// decodeEventFrame decodes one base64 event frame: 8-byte discriminator
// followed by borsh-encoded fields. Unknown discriminators and malformed
// payloads return nil.
func (d *Decoder) decodeEventFrame(encoded, signature string) *Record {
	raw, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil || len(raw) < 8 {
		return nil
	}

	event := d.schema.EventByDiscriminator(raw)
	if event == nil {
		// Unknown future record kinds are expected; keep the batch going.
		return nil
	}

	fields, err := decodeFields(raw[8:], event.Fields)
	if err != nil {
		slog.Warn("[Decoder] Dropping malformed event record",
			"event", event.Name,
			"signature", signature,
			"error", err,
		)
		return nil
	}

	return &Record{Name: event.Name, Fields: fields}
}

// decodeInstructions reconstructs records from instruction arguments and
// the account list, for transactions that emitted no events at all.
func (d *Decoder) decodeInstructions(tx *ledger.Transaction) []Record {
	var records []Record

	for _, ix := range tx.Instructions {
		if int(ix.ProgramIDIndex) >= len(tx.AccountKeys) {
			continue
		}
		if tx.AccountKeys[ix.ProgramIDIndex].String() != d.programID {
			continue
		}

		data := []byte(ix.Data)
		instruction := d.schema.InstructionByDiscriminator(data)
		if instruction == nil {
			continue
		}

		fields, err := decodeFields(data[8:], instruction.Args)
		if err != nil {
			slog.Warn("[Decoder] Dropping malformed instruction record",
				"instruction", instruction.Name,
				"signature", tx.Signature,
				"error", err,
			)
			continue
		}

		accounts := make([]string, 0, len(ix.Accounts))
		for _, idx := range ix.Accounts {
			if int(idx) >= len(tx.AccountKeys) {
				break
			}
			accounts = append(accounts, tx.AccountKeys[idx].String())
		}

		records = append(records, Record{
			Name:     instruction.Name,
			Fields:   fields,
			Accounts: accounts,
		})
	}

	return records
}

// "Program log:", "Program data:" and "Program return:" lines carry free
// text that could contain the words below, so they are excluded before the
// suffix checks.
func isProgramStatusLine(line string) bool {
	return strings.HasPrefix(line, "Program ") &&
		!strings.HasPrefix(line, "Program log:") &&
		!strings.HasPrefix(line, programDataPrefix) &&
		!strings.HasPrefix(line, "Program return:")
}

func isInvokeLine(line string) bool {
	return isProgramStatusLine(line) && strings.Contains(line, " invoke [")
}

func isTerminationLine(line string) bool {
	return isProgramStatusLine(line) &&
		(strings.HasSuffix(line, " success") || strings.Contains(line, " failed"))
}

func invokedProgram(line string) string {
	rest := strings.TrimPrefix(line, "Program ")
	if idx := strings.IndexByte(rest, ' '); idx > 0 {
		return rest[:idx]
	}
	return rest
}
