// Package trustledger implements a hash-chained audit log of facility and
// technician mutations.
//
// The chain starts with a genesis entry whose Hash equals GenesisHash. Every
// later entry records its predecessor's hash, so Verify detects tampering.
package trustledger
