package decode

import (
	"bytes"
	"encoding/base64"
	"encoding/binary"
	"testing"

	"github.com/gagliardetto/solana-go"
	"github.com/stretchr/testify/require"

	"github.com/heliograph-labs/heliograph/internal/idl"
	"github.com/heliograph-labs/heliograph/internal/ledger"
)

const testIDL = `{
  "metadata": {"name": "social", "version": "0.2.0"},
  "events": [
    {
      "name": "PostIndexed",
      "discriminator": [1, 2, 3, 4, 5, 6, 7, 8],
      "fields": [
        {"name": "author", "type": "pubkey"},
        {"name": "postId", "type": "u64"},
        {"name": "contentCid", "type": "string"},
        {"name": "visibility", "type": "u8"}
      ]
    }
  ],
  "instructions": [
    {
      "name": "follow",
      "discriminator": [21, 22, 23, 24, 25, 26, 27, 28],
      "accounts": [{"name": "follower"}, {"name": "following"}],
      "args": []
    },
    {
      "name": "create_post_index",
      "discriminator": [31, 32, 33, 34, 35, 36, 37, 38],
      "accounts": [{"name": "author"}, {"name": "postIndex"}],
      "args": [
        {"name": "postId", "type": "u64"},
        {"name": "contentCid", "type": "string"}
      ]
    }
  ]
}`

var (
	programKey = solana.PublicKeyFromBytes(bytes.Repeat([]byte{0x07}, 32))
	authorKey  = solana.PublicKeyFromBytes(bytes.Repeat([]byte{0xAA}, 32))
	otherKey   = solana.PublicKeyFromBytes(bytes.Repeat([]byte{0xBB}, 32))
)

func newTestDecoder(t *testing.T) *Decoder {
	t.Helper()
	schema, err := idl.Parse([]byte(testIDL))
	require.NoError(t, err)
	return New(programKey, schema)
}

func u64le(v uint64) []byte {
	b := make([]byte, 8)
	binary.LittleEndian.PutUint64(b, v)
	return b
}

func borshString(s string) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, uint32(len(s)))
	return append(b, s...)
}

// postIndexedFrame builds one well-formed event payload.
func postIndexedFrame(postID uint64) []byte {
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame = append(frame, authorKey.Bytes()...)
	frame = append(frame, u64le(postID)...)
	frame = append(frame, borshString("bafy-cid")...)
	frame = append(frame, 1)
	return frame
}

func dataLine(frame []byte) string {
	return "Program data: " + base64.StdEncoding.EncodeToString(frame)
}

func TestDecode_ScopedLogFrames(t *testing.T) {
	d := newTestDecoder(t)

	tx := &ledger.Transaction{
		Signature: "sig-1",
		LogMessages: []string{
			"Program " + otherKey.String() + " invoke [1]",
			dataLine(postIndexedFrame(99)), // foreign program's frame
			"Program " + otherKey.String() + " success",
			"Program " + programKey.String() + " invoke [1]",
			"Program log: Instruction: CreatePostIndex",
			dataLine(postIndexedFrame(42)),
			"Program " + programKey.String() + " success",
		},
	}

	records := d.Decode(tx)
	require.Len(t, records, 1)
	require.Equal(t, "PostIndexed", records[0].Name)
	require.Equal(t, authorKey.String(), records[0].Fields["author"])
	require.Equal(t, int64(42), records[0].Fields["postId"])
	require.Equal(t, "bafy-cid", records[0].Fields["contentCid"])
	require.Equal(t, int64(1), records[0].Fields["visibility"])
}

func TestDecode_NestedInvocationScoping(t *testing.T) {
	d := newTestDecoder(t)

	// The mirrored program invokes another program; that inner program's
	// frames must not be attributed to ours, but frames after the inner
	// call returns must.
	tx := &ledger.Transaction{
		Signature: "sig-nested",
		LogMessages: []string{
			"Program " + programKey.String() + " invoke [1]",
			"Program " + otherKey.String() + " invoke [2]",
			dataLine(postIndexedFrame(7)),
			"Program " + otherKey.String() + " success",
			dataLine(postIndexedFrame(8)),
			"Program " + programKey.String() + " success",
		},
	}

	records := d.Decode(tx)
	require.Len(t, records, 1)
	require.Equal(t, int64(8), records[0].Fields["postId"])
}

func TestDecode_RawProgramDataFallback(t *testing.T) {
	d := newTestDecoder(t)

	// No invocation context at all: the raw-data tier still decodes any
	// frame whose discriminator the schema recognizes.
	tx := &ledger.Transaction{
		Signature:   "sig-2",
		LogMessages: []string{dataLine(postIndexedFrame(7))},
	}

	records := d.Decode(tx)
	require.Len(t, records, 1)
	require.Equal(t, int64(7), records[0].Fields["postId"])
}

func TestDecode_UnknownDiscriminatorIgnored(t *testing.T) {
	d := newTestDecoder(t)

	frame := append([]byte{0xDE, 0xAD, 0xDE, 0xAD, 0xDE, 0xAD, 0xDE, 0xAD}, u64le(1)...)
	tx := &ledger.Transaction{
		Signature:   "sig-3",
		LogMessages: []string{dataLine(frame)},
	}

	require.Empty(t, d.Decode(tx))
}

func TestDecode_MalformedFrameDropped(t *testing.T) {
	d := newTestDecoder(t)

	// Known discriminator, truncated payload.
	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8, 0xAA}
	tx := &ledger.Transaction{
		Signature: "sig-4",
		LogMessages: []string{
			"Program " + programKey.String() + " invoke [1]",
			dataLine(frame),
			"Program " + programKey.String() + " success",
		},
	}

	require.Empty(t, d.Decode(tx))
}

func TestDecode_U64OverflowDropsRecord(t *testing.T) {
	d := newTestDecoder(t)

	frame := []byte{1, 2, 3, 4, 5, 6, 7, 8}
	frame = append(frame, authorKey.Bytes()...)
	frame = append(frame, u64le(1<<63)...) // past MaxInt64
	frame = append(frame, borshString("cid")...)
	frame = append(frame, 0)

	tx := &ledger.Transaction{
		Signature:   "sig-5",
		LogMessages: []string{dataLine(frame)},
	}

	require.Empty(t, d.Decode(tx))
}

func TestDecode_InstructionTier(t *testing.T) {
	d := newTestDecoder(t)

	data := []byte{31, 32, 33, 34, 35, 36, 37, 38}
	data = append(data, u64le(5)...)
	data = append(data, borshString("bafy-ix")...)

	tx := &ledger.Transaction{
		Signature:   "sig-6",
		LogMessages: []string{"Program log: no event frames here"},
		AccountKeys: []solana.PublicKey{authorKey, otherKey, programKey},
		Instructions: []solana.CompiledInstruction{
			{
				ProgramIDIndex: 2,
				Accounts:       []uint16{0, 1},
				Data:           solana.Base58(data),
			},
		},
	}

	records := d.Decode(tx)
	require.Len(t, records, 1)
	require.Equal(t, "create_post_index", records[0].Name)
	require.Equal(t, int64(5), records[0].Fields["postId"])
	require.Equal(t, "bafy-ix", records[0].Fields["contentCid"])
	require.Equal(t, []string{authorKey.String(), otherKey.String()}, records[0].Accounts)
}

func TestDecode_InstructionTierSkipsForeignPrograms(t *testing.T) {
	d := newTestDecoder(t)

	data := []byte{21, 22, 23, 24, 25, 26, 27, 28}
	tx := &ledger.Transaction{
		Signature:   "sig-7",
		AccountKeys: []solana.PublicKey{authorKey, otherKey},
		Instructions: []solana.CompiledInstruction{
			{
				ProgramIDIndex: 1, // not the mirrored program
				Accounts:       []uint16{0},
				Data:           solana.Base58(data),
			},
		},
	}

	require.Empty(t, d.Decode(tx))
}

func TestDecode_EventTierWinsOverInstructionTier(t *testing.T) {
	d := newTestDecoder(t)

	ixData := []byte{31, 32, 33, 34, 35, 36, 37, 38}
	ixData = append(ixData, u64le(100)...)
	ixData = append(ixData, borshString("from-ix")...)

	tx := &ledger.Transaction{
		Signature: "sig-8",
		LogMessages: []string{
			"Program " + programKey.String() + " invoke [1]",
			dataLine(postIndexedFrame(42)),
			"Program " + programKey.String() + " success",
		},
		AccountKeys: []solana.PublicKey{authorKey, otherKey, programKey},
		Instructions: []solana.CompiledInstruction{
			{ProgramIDIndex: 2, Accounts: []uint16{0, 1}, Data: solana.Base58(ixData)},
		},
	}

	records := d.Decode(tx)
	require.Len(t, records, 1)
	require.Equal(t, "PostIndexed", records[0].Name)
	require.Equal(t, int64(42), records[0].Fields["postId"])
}

func TestDecode_NilSchema(t *testing.T) {
	d := New(programKey, nil)
	tx := &ledger.Transaction{
		Signature:   "sig-9",
		LogMessages: []string{dataLine(postIndexedFrame(1))},
	}
	require.Nil(t, d.Decode(tx))
}
