// Package types defines the record types shared by the fetcher, ranker and
// publisher. RankedRecord is also the on-disk shape of the published artifact,
// so its JSON tags are part of the contract with the downstream display.
package types
