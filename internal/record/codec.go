package record

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"

	"lottoledger/internal/core"
)

// Codec serializes transactions, either a whole collection or one document.
type Codec interface {
	Name() string
	EncodeAll(txs []core.Transaction) ([]byte, error)
	DecodeAll(data []byte) ([]core.Transaction, error)
	Encode(tx core.Transaction) ([]byte, error)
	Decode(data []byte) (core.Transaction, error)
}

// Codec names accepted by NewCodec.
const (
	CodecJSON    = "json"
	CodecMsgpack = "msgpack"
)

// NewCodec returns the codec registered under name.
func NewCodec(name string) (Codec, error) {
	switch name {
	case "", CodecJSON:
		return JSON{}, nil
	case CodecMsgpack:
		return Msgpack{}, nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// JSON writes records as a JSON array, the format of the browser app.
type JSON struct{}

func (JSON) Name() string { return CodecJSON }

func (JSON) EncodeAll(txs []core.Transaction) ([]byte, error) {
	return json.Marshal(FromTransactions(txs))
}

func (JSON) DecodeAll(data []byte) ([]core.Transaction, error) {
	var recs []Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&recs); err != nil {
		return nil, fmt.Errorf("decode json records: %w", err)
	}
	return Transactions(recs), nil
}

func (JSON) Encode(tx core.Transaction) ([]byte, error) {
	return json.Marshal(FromTransaction(tx))
}

func (JSON) Decode(data []byte) (core.Transaction, error) {
	var rec Record
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&rec); err != nil {
		return core.Transaction{}, fmt.Errorf("decode json record: %w", err)
	}
	return rec.Transaction(), nil
}

// Msgpack writes records as a MessagePack array. Amounts are stored as
// decimal strings.
type Msgpack struct{}

func (Msgpack) Name() string { return CodecMsgpack }

func (Msgpack) EncodeAll(txs []core.Transaction) ([]byte, error) {
	return msgpack.Marshal(FromTransactions(txs))
}

func (Msgpack) DecodeAll(data []byte) ([]core.Transaction, error) {
	var recs []Record
	if err := msgpack.Unmarshal(data, &recs); err != nil {
		return nil, fmt.Errorf("decode msgpack records: %w", err)
	}
	return Transactions(recs), nil
}

func (Msgpack) Encode(tx core.Transaction) ([]byte, error) {
	return msgpack.Marshal(FromTransaction(tx))
}

func (Msgpack) Decode(data []byte) (core.Transaction, error) {
	var rec Record
	if err := msgpack.Unmarshal(data, &rec); err != nil {
		return core.Transaction{}, fmt.Errorf("decode msgpack record: %w", err)
	}
	return rec.Transaction(), nil
}
