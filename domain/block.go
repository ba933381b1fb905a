package domain

import (
	"fmt"
	"strconv"
	"strings"
)

var (
	ErrorInvalidBlockReference = fmt.Errorf("block must be 'pending', 'latest' or a block number")
)

type blockTag uint8

const (
	blockTagLatest blockTag = iota
	blockTagPending
	blockTagNumber
)

// BlockReference points at chain history: Pending, Latest or a finalized number.
// The zero value is Latest.
type BlockReference struct {
	tag    blockTag
	number uint64
}

func PendingBlock() BlockReference {
	return BlockReference{tag: blockTagPending}
}

func LatestBlock() BlockReference {
	return BlockReference{tag: blockTagLatest}
}

func BlockAt(n uint64) BlockReference {
	return BlockReference{tag: blockTagNumber, number: n}
}

func ParseBlockReference(s string) (BlockReference, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "latest":
		return LatestBlock(), nil
	case "pending":
		return PendingBlock(), nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return BlockReference{}, ErrorInvalidBlockReference
	}
	return BlockAt(n), nil
}

func (b BlockReference) IsPending() bool {
	return b.tag == blockTagPending
}

func (b BlockReference) IsLatest() bool {
	return b.tag == blockTagLatest
}

// Number returns the block number of a finalized reference.
func (b BlockReference) Number() (uint64, bool) {
	return b.number, b.tag == blockTagNumber
}

func (b BlockReference) String() string {
	switch b.tag {
	case blockTagPending:
		return "pending"
	case blockTagNumber:
		return strconv.FormatUint(b.number, 10)
	default:
		return "latest"
	}
}

// Resolve pins the reference to a concrete block using the current head.
func (b BlockReference) Resolve(head uint64) ResolvedBlock {
	switch b.tag {
	case blockTagPending:
		return ResolvedBlock{Number: head, Pending: true}
	case blockTagNumber:
		return ResolvedBlock{Number: b.number, Finalized: true}
	default:
		return ResolvedBlock{Number: head}
	}
}

// ResolvedBlock is a BlockReference after the head lookup. Finalized blocks
// never change; pending and latest ones are volatile.
type ResolvedBlock struct {
	Number    uint64
	Pending   bool
	Finalized bool
}

func (r ResolvedBlock) Volatile() bool {
	return !r.Finalized
}

func (r ResolvedBlock) String() string {
	if r.Pending {
		return "pending"
	}
	return strconv.FormatUint(r.Number, 10)
}

// BlockKey identifies one cache slot. Equality is structural.
type BlockKey struct {
	Query   string
	Block   uint64
	Pending bool
	Subject Address
	Extra   string
}

// NewBlockKey builds a key for block. Pending blocks share a single "pending"
// slot regardless of the head they were resolved against.
func NewBlockKey(query string, block ResolvedBlock, subject Address, extra string) BlockKey {
	key := BlockKey{Query: query, Subject: subject, Extra: extra, Pending: block.Pending}
	if !block.Pending {
		key.Block = block.Number
	}
	return key
}

func (k BlockKey) String() string {
	block := strconv.FormatUint(k.Block, 10)
	if k.Pending {
		block = "pending"
	}
	return k.Query + "|" + block + "|" + string(k.Subject) + "|" + k.Extra
}
