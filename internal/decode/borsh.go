package decode

import (
	"fmt"
	"math"

	bin "github.com/gagliardetto/binary"
	"github.com/gagliardetto/solana-go"

	coreerrors "github.com/heliograph-labs/heliograph/internal/core/errors"
	"github.com/heliograph-labs/heliograph/internal/idl"
)

// decodeFields borsh-decodes a field list per the schema's declared layout.
// Pubkeys come out as base58 strings, integers as int64, so downstream
// never sees raw chain types.
func decodeFields(data []byte, fields []idl.Field) (map[string]interface{}, error) {
	dec := bin.NewBorshDecoder(data)
	out := make(map[string]interface{}, len(fields))

	for _, f := range fields {
		value, err := decodeField(dec, f.Type)
		if err != nil {
			return nil, fmt.Errorf("%w: field %q (%s): %v", coreerrors.ErrDecode, f.Name, f.Type, err)
		}
		out[f.Name] = value
	}

	return out, nil
}

func decodeField(dec *bin.Decoder, fieldType string) (interface{}, error) {
	switch fieldType {
	case "pubkey", "publicKey":
		raw, err := dec.ReadNBytes(32)
		if err != nil {
			return nil, err
		}
		return solana.PublicKeyFromBytes(raw).String(), nil

	case "string":
		length, err := dec.ReadUint32(bin.LE)
		if err != nil {
			return nil, err
		}
		raw, err := dec.ReadNBytes(int(length))
		if err != nil {
			return nil, err
		}
		return string(raw), nil

	case "bool":
		return dec.ReadBool()

	case "u8":
		v, err := dec.ReadUint8()
		return int64(v), err

	case "u16":
		v, err := dec.ReadUint16(bin.LE)
		return int64(v), err

	case "u32":
		v, err := dec.ReadUint32(bin.LE)
		return int64(v), err

	case "u64":
		v, err := dec.ReadUint64(bin.LE)
		if err != nil {
			return nil, err
		}
		// The store keys these as signed 64-bit columns; a value past
		// MaxInt64 cannot round-trip, so the record is rejected instead
		// of silently wrapping.
		if v > math.MaxInt64 {
			return nil, fmt.Errorf("u64 value %d overflows int64", v)
		}
		return int64(v), nil

	case "i8":
		v, err := dec.ReadInt8()
		return int64(v), err

	case "i16":
		v, err := dec.ReadInt16(bin.LE)
		return int64(v), err

	case "i32":
		v, err := dec.ReadInt32(bin.LE)
		return int64(v), err

	case "i64":
		return dec.ReadInt64(bin.LE)

	default:
		return nil, fmt.Errorf("unsupported field type %q", fieldType)
	}
}
