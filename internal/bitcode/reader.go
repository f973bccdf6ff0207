package bitcode

import (
	"bytes"
	"errors"
	"fmt"
	"io"

	"fortio.org/safecast"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/dshills/doccorpus/pkg/types"
)

// Record is a leaf entry: a record id, integer fields and an optional blob
type Record struct {
	ID     RecordID
	Fields []uint64
	Blob   []byte
}

type entryKind int

const (
	entryEnd entryKind = iota
	entryEnter
	entryRecord
)

type entry struct {
	kind   entryKind
	block  BlockID
	record Record
}

// blockReader is implemented by every block handler. readSubBlock must
// consume the whole sub-block, normally by calling Reader.readBlock.
type blockReader interface {
	parseRecord(rec Record) error
	readSubBlock(id BlockID) error
}

// Reader is a cursor over one fragment
type Reader struct {
	dec   *msgpack.Decoder
	depth int
}

// NewReader checks the fragment signature and positions the cursor at the
// first entry.
func NewReader(data []byte) (*Reader, error) {
	if len(data) < len(Magic) || !bytes.Equal(data[:len(Magic)], Magic[:]) {
		return nil, makeError("bad signature")
	}
	return &Reader{dec: msgpack.NewDecoder(bytes.NewReader(data[len(Magic):]))}, nil
}

func makeError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", types.ErrMalformedStream, fmt.Sprintf(format, args...))
}

func unexpectedRecord(id RecordID) error {
	return makeError("unexpected record with ID=%d", uint32(id))
}

func unexpectedSubBlock(id BlockID) error {
	return makeError("unexpected sub-block with ID=%d", uint32(id))
}

func wrongField(f FieldID) error {
	return makeError("unexpected FieldId=%d (%s)", uint8(f), f)
}

// streamError converts a decoder failure into a malformed-stream error.
// io.EOF is passed through so callers can tell a clean end of stream.
func streamError(err error) error {
	if errors.Is(err, io.EOF) {
		return io.EOF
	}
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return makeError("truncated stream")
	}
	return fmt.Errorf("%w: %v", types.ErrMalformedStream, err)
}

func (r *Reader) next() (entry, error) {
	n, err := r.dec.DecodeArrayLen()
	if err != nil {
		return entry{}, streamError(err)
	}
	if n < 1 {
		return entry{}, makeError("empty entry")
	}
	code, err := r.decodeUint()
	if err != nil {
		return entry{}, err
	}

	switch code {
	case codeEndBlock:
		if n != 1 {
			return entry{}, makeError("END_BLOCK with %d operands", n-1)
		}
		return entry{kind: entryEnd}, nil

	case codeEnterSubblock:
		if n != 2 {
			return entry{}, makeError("ENTER_SUBBLOCK with %d operands", n-1)
		}
		v, err := r.decodeUint()
		if err != nil {
			return entry{}, err
		}
		id, err := safecast.Conv[uint32](v)
		if err != nil {
			return entry{}, makeError("block id %d out of range", v)
		}
		return entry{kind: entryEnter, block: BlockID(id)}, nil

	case codeRecord:
		if n != 4 {
			return entry{}, makeError("RECORD with %d operands", n-1)
		}
		return r.readRecord()

	default:
		return entry{}, makeError("unknown abbreviation code %d", code)
	}
}

func (r *Reader) readRecord() (entry, error) {
	v, err := r.decodeUint()
	if err != nil {
		return entry{}, err
	}
	id, err := safecast.Conv[uint32](v)
	if err != nil {
		return entry{}, makeError("record id %d out of range", v)
	}
	rec := Record{ID: RecordID(id)}

	n, err := r.dec.DecodeArrayLen()
	if err != nil {
		return entry{}, unexpectedEOF(streamError(err))
	}
	if n > 0 {
		rec.Fields = make([]uint64, n)
		for i := range rec.Fields {
			if rec.Fields[i], err = r.decodeUint(); err != nil {
				return entry{}, err
			}
		}
	}

	rec.Blob, err = r.dec.DecodeBytes()
	if err != nil {
		return entry{}, unexpectedEOF(streamError(err))
	}
	return entry{kind: entryRecord, record: rec}, nil
}

// decodeUint reads an operand. The stream may not end inside an entry.
func (r *Reader) decodeUint() (uint64, error) {
	v, err := r.dec.DecodeUint64()
	if err != nil {
		return 0, unexpectedEOF(streamError(err))
	}
	return v, nil
}

func unexpectedEOF(err error) error {
	if err == io.EOF {
		return makeError("truncated stream")
	}
	return err
}

// readBlock feeds the entries of one block to b until its END_BLOCK.
// The ENTER_SUBBLOCK entry has already been consumed.
func (r *Reader) readBlock(b blockReader, id BlockID) error {
	if r.depth >= maxDepth {
		return makeError("blocks nested deeper than %d", maxDepth)
	}
	r.depth++
	defer func() { r.depth-- }()

	for {
		e, err := r.next()
		if err == io.EOF {
			return makeError("unexpected end of stream in %s block", id)
		}
		if err != nil {
			return err
		}

		switch e.kind {
		case entryEnd:
			return nil
		case entryRecord:
			if err := b.parseRecord(e.record); err != nil {
				return fmt.Errorf("%s block: %w", id, err)
			}
		case entryEnter:
			if err := b.readSubBlock(e.block); err != nil {
				return fmt.Errorf("%s block: %w", id, err)
			}
		}
	}
}

//------------------------------------------------
// record decoding

func wantFields(rec Record, n int) error {
	if len(rec.Fields) != n {
		return makeError("record ID=%d: expected %d fields, got %d", uint32(rec.ID), n, len(rec.Fields))
	}
	return nil
}

func decodeSymbolID(rec Record, dst *types.SymbolID) error {
	id, err := types.SymbolIDFromBytes(rec.Blob)
	if err != nil {
		return makeError("record ID=%d: %v", uint32(rec.ID), err)
	}
	*dst = id
	return nil
}

func decodeSymbolIDs(rec Record, dst *[]types.SymbolID) error {
	if len(rec.Blob)%types.SymbolIDSize != 0 {
		return makeError("record ID=%d: blob of %d bytes is not a list of ids", uint32(rec.ID), len(rec.Blob))
	}
	for off := 0; off < len(rec.Blob); off += types.SymbolIDSize {
		var id types.SymbolID
		copy(id[:], rec.Blob[off:off+types.SymbolIDSize])
		*dst = append(*dst, id)
	}
	return nil
}

func decodeString(rec Record, dst *string) error {
	if err := wantFields(rec, 0); err != nil {
		return err
	}
	*dst = string(rec.Blob)
	return nil
}

func decodeBool(rec Record, dst *bool) error {
	if err := wantFields(rec, 1); err != nil {
		return err
	}
	switch rec.Fields[0] {
	case 0:
		*dst = false
	case 1:
		*dst = true
	default:
		return makeError("record ID=%d: invalid boolean %d", uint32(rec.ID), rec.Fields[0])
	}
	return nil
}

func decodeUint32(rec Record, dst ...*uint32) error {
	if err := wantFields(rec, len(dst)); err != nil {
		return err
	}
	for i, d := range dst {
		v, err := safecast.Conv[uint32](rec.Fields[i])
		if err != nil {
			return makeError("record ID=%d: %v", uint32(rec.ID), err)
		}
		*d = v
	}
	return nil
}

// decodeEnum reads a one-field record holding a value no larger than limit
func decodeEnum[T ~uint8](rec Record, dst *T, limit T) error {
	if err := wantFields(rec, 1); err != nil {
		return err
	}
	v, err := safecast.Conv[uint8](rec.Fields[0])
	if err != nil || T(v) > limit {
		return makeError("record ID=%d: value %d out of range", uint32(rec.ID), rec.Fields[0])
	}
	*dst = T(v)
	return nil
}

func decodeLocation(rec Record, dst *types.Location) error {
	if err := wantFields(rec, 1); err != nil {
		return err
	}
	line, err := safecast.Conv[int](rec.Fields[0])
	if err != nil {
		return makeError("record ID=%d: %v", uint32(rec.ID), err)
	}
	*dst = types.Location{Line: line, Filename: string(rec.Blob)}
	return nil
}
