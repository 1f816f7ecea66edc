// Package ids derives and mints every identifier type in the UCP data
// model (§3.1): content-addressed BlockId, and the opaque DocumentId,
// SnapshotId, TransactionId, and SessionId.
package ids

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"strings"

	"github.com/google/uuid"
)

// BlockId is a 96-bit content-addressed identifier, rendered as "blk_"
// followed by 24 lowercase hex characters (28 characters total).
type BlockId string

const blockIDPrefix = "blk_"

// NewBlockID derives a BlockId from the tuple (namespace, typeTag, role,
// canonical) per §4.1: hash namespace, typeTag, role, and canonical with
// SHA-256, truncate to 12 bytes. Each field is length-prefixed rather
// than joined with a plain separator, so a ':' occurring inside
// namespace/typeTag/role (e.g. a role category containing one) can
// never shift bytes across a field boundary and collide two distinct
// tuples onto the same hash input.
func NewBlockID(namespace, typeTag, role string, canonical []byte) BlockId {
	var b strings.Builder
	writeLenPrefixed(&b, namespace)
	writeLenPrefixed(&b, typeTag)
	writeLenPrefixed(&b, role)
	writeLenPrefixed(&b, string(canonical))
	sum := sha256.Sum256([]byte(b.String()))
	return BlockId(blockIDPrefix + hex.EncodeToString(sum[:12]))
}

func writeLenPrefixed(b *strings.Builder, s string) {
	var lenBuf [8]byte
	binary.BigEndian.PutUint64(lenBuf[:], uint64(len(s)))
	b.Write(lenBuf[:])
	b.WriteString(s)
}

// Valid reports whether id has the correct shape (prefix + 24 hex chars).
func (id BlockId) Valid() bool {
	s := string(id)
	if !strings.HasPrefix(s, blockIDPrefix) {
		return false
	}
	hexPart := s[len(blockIDPrefix):]
	if len(hexPart) != 24 {
		return false
	}
	_, err := hex.DecodeString(hexPart)
	return err == nil
}

func (id BlockId) String() string { return string(id) }

// RootBlockID is the fixed, implementation-defined id every document's
// root block carries. It is a fixed all-zero value rather than a hash,
// so it does not depend on any namespace or content.
const RootBlockID BlockId = blockIDPrefix + "000000000000000000000000"

// DocumentId, SnapshotId, TransactionId, and SessionId are opaque unique
// values: only equality and hashing are meaningful. All four are backed
// by uuid.New(), the same mechanism the teacher store uses for document
// UUIDs (nanostore/store.go).
type (
	DocumentId    string
	SnapshotId    string
	TransactionId string
	SessionId     string
)

func NewDocumentID() DocumentId       { return DocumentId(uuid.New().String()) }
func NewSnapshotID() SnapshotId       { return SnapshotId(uuid.New().String()) }
func NewTransactionID() TransactionId { return TransactionId(uuid.New().String()) }
func NewSessionID() SessionId         { return SessionId(uuid.New().String()) }
