package domain

import "sort"

// MultisigEntry is the multisig configuration of an account as returned by
// the node. It's never mutated, only replaced by a fresher fetch.
type MultisigEntry struct {
	AccountAddress       Address
	MinApproval          int
	MinRemoval           int
	CosignatoryAddresses Addresses
	MultisigAddresses    Addresses
}

// IsMultisig returns whether the account is controlled by cosignatories.
func (e MultisigEntry) IsMultisig() bool {
	return len(e.CosignatoryAddresses) > 0 || e.MinApproval != 0 || e.MinRemoval != 0
}

// HasCosigner returns whether the given address is a cosignatory of the
// account.
func (e MultisigEntry) HasCosigner(addr Address) bool {
	return e.CosignatoryAddresses.Contains(addr)
}

// IsCosignerOf returns whether the account is a cosignatory of the given
// multisig address.
func (e MultisigEntry) IsCosignerOf(addr Address) bool {
	return e.MultisigAddresses.Contains(addr)
}

// MultisigGraph maps a level to the multisig entries found at that depth.
// Level 0 is the anchor account, negative levels are the multisig accounts
// it cosigns for, positive levels are its cosignatories.
type MultisigGraph map[int][]MultisigEntry

// IsEmpty returns whether the graph holds no entries at all.
func (g MultisigGraph) IsEmpty() bool {
	for _, entries := range g {
		if len(entries) > 0 {
			return false
		}
	}
	return true
}

// MinLevel returns the most negative level of the graph, 0 if empty.
func (g MultisigGraph) MinLevel() int {
	min, first := 0, true
	for level := range g {
		if first || level < min {
			min, first = level, false
		}
	}
	return min
}

// Levels returns the level keys sorted in descending order.
func (g MultisigGraph) Levels() []int {
	levels := make([]int, 0, len(g))
	for level := range g {
		levels = append(levels, level)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(levels)))
	return levels
}

// EntryAt returns the entry for the given account at the given level.
func (g MultisigGraph) EntryAt(level int, addr Address) (*MultisigEntry, bool) {
	for _, entry := range g[level] {
		if entry.AccountAddress.Equals(addr) {
			e := entry
			return &e, true
		}
	}
	return nil, false
}

// Shift returns a copy of the graph with every level moved by offset.
func (g MultisigGraph) Shift(offset int) MultisigGraph {
	shifted := make(MultisigGraph, len(g))
	for level, entries := range g {
		shifted[level+offset] = append([]MultisigEntry(nil), entries...)
	}
	return shifted
}

// Merge returns a new graph with the entries of other appended level by level
// to those of g. Entries sharing the same account address at the same level
// are kept only once, the first occurrence wins.
func (g MultisigGraph) Merge(other MultisigGraph) MultisigGraph {
	merged := make(MultisigGraph, len(g))
	for level, entries := range g {
		merged[level] = dedupEntries(entries)
	}
	for level, entries := range other {
		merged[level] = dedupEntries(append(merged[level], entries...))
	}
	return merged
}

// Flatten returns every entry of the graph, from the highest level down to
// the root-most one. Entries of the same level keep their order.
func (g MultisigGraph) Flatten() []MultisigEntry {
	entries := make([]MultisigEntry, 0)
	for _, level := range g.Levels() {
		entries = append(entries, g[level]...)
	}
	return entries
}

func dedupEntries(entries []MultisigEntry) []MultisigEntry {
	seen := make(map[Address]struct{}, len(entries))
	list := make([]MultisigEntry, 0, len(entries))
	for _, entry := range entries {
		if _, ok := seen[entry.AccountAddress]; ok {
			continue
		}
		seen[entry.AccountAddress] = struct{}{}
		list = append(list, entry)
	}
	return list
}
