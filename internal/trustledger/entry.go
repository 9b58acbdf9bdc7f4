package trustledger

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// GenesisHash is the fixed hash of entry 0 and the anchor every later entry
// chains from.
const GenesisHash = "0000000000000000000000000000000000000000000000000000000000000000"

// ActorSystem is the actor recorded on entries written by the registry itself.
const ActorSystem = "registry-system"

// Entry is one audit record in the trust ledger.
type Entry struct {
	Index     int       `json:"index"`
	Timestamp time.Time `json:"timestamp"`
	Height    uint64    `json:"height"`    // logical height the mutation applied at
	Subject   string    `json:"subject"`   // facility/{id}, technician/{id}, admin
	Action    string    `json:"action"`    // register, update, status, renew, transfer, genesis
	Actor     string    `json:"actor"`     // calling principal
	DataHash  string    `json:"data_hash"` // SHA-256 of the JSON payload
	PrevHash  string    `json:"prev_hash"`
	Hash      string    `json:"hash"`
}

// hashEntry computes the chained hash of e. Never call it on the genesis entry.
func hashEntry(e *Entry) string {
	h := sha256.New()
	fmt.Fprintf(h, "%d|%s|%d|%s|%s|%s|%s|%s",
		e.Index, e.Timestamp.Format(time.RFC3339Nano), e.Height,
		e.Subject, e.Action, e.Actor, e.DataHash, e.PrevHash,
	)
	return hex.EncodeToString(h.Sum(nil))
}

func sha256Sum(data []byte) string {
	h := sha256.Sum256(data)
	return hex.EncodeToString(h[:])
}

func genesisEntry(ts time.Time) *Entry {
	return &Entry{
		Index:     0,
		Timestamp: ts,
		Action:    "genesis",
		Actor:     ActorSystem,
		DataHash:  GenesisHash,
		PrevHash:  GenesisHash,
		Hash:      GenesisHash,
	}
}

// verifyLink checks curr against its predecessor. prev is nil for index 0.
func verifyLink(prev, curr *Entry) error {
	if prev == nil {
		if curr.Hash != GenesisHash {
			return fmt.Errorf("genesis entry has wrong hash: got %q", curr.Hash)
		}
		return nil
	}
	if curr.PrevHash != prev.Hash {
		return fmt.Errorf("hash chain broken at index %d", curr.Index)
	}
	if curr.Hash != hashEntry(curr) {
		return fmt.Errorf("entry %d has invalid hash", curr.Index)
	}
	return nil
}
