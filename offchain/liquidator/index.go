package liquidator

import (
	"sync"

	"cosmossdk.io/math"
	"github.com/google/btree"
)

const btreeDegree = 32

// WatchedAccount is one entry in the watch index.
type WatchedAccount struct {
	Address      string
	HealthFactor math.Int
	DebtDusd     math.Int
	UpdatedAt    int64
}

// accountItem wraps a watched account for use in btree.
// Ordered ascending by health factor so the riskiest accounts
// come first; ties break on address for a stable ordering.
type accountItem struct {
	account *WatchedAccount
}

// Less implements btree.Item
func (a *accountItem) Less(b btree.Item) bool {
	other := b.(*accountItem)
	if a.account.HealthFactor.Equal(other.account.HealthFactor) {
		return a.account.Address < other.account.Address
	}
	return a.account.HealthFactor.LT(other.account.HealthFactor)
}

// WatchIndex maintains a thread-safe index of accounts ordered by
// health factor. Lookups by address go through a map; ordered scans
// walk the btree.
type WatchIndex struct {
	mu       sync.RWMutex
	tree     *btree.BTree
	accounts map[string]*accountItem
}

// NewWatchIndex creates a new empty watch index
func NewWatchIndex() *WatchIndex {
	return &WatchIndex{
		tree:     btree.New(btreeDegree),
		accounts: make(map[string]*accountItem),
	}
}

// Upsert adds or updates an account. The old tree entry must be
// deleted before reinsertion because the factor is part of the key.
func (idx *WatchIndex) Upsert(address string, factor, debt math.Int, updatedAt int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	if existing, ok := idx.accounts[address]; ok {
		idx.tree.Delete(existing)
	}

	item := &accountItem{account: &WatchedAccount{
		Address:      address,
		HealthFactor: factor,
		DebtDusd:     debt,
		UpdatedAt:    updatedAt,
	}}
	idx.accounts[address] = item
	idx.tree.ReplaceOrInsert(item)
}

// Remove drops an account from the index
func (idx *WatchIndex) Remove(address string) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	item, ok := idx.accounts[address]
	if !ok {
		return
	}
	idx.tree.Delete(item)
	delete(idx.accounts, address)
}

// Get returns the watched account for an address, or nil
func (idx *WatchIndex) Get(address string) *WatchedAccount {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	item, ok := idx.accounts[address]
	if !ok {
		return nil
	}
	copy := *item.account
	return &copy
}

// Riskiest returns up to limit accounts with health factor below the
// threshold, ordered from lowest factor to highest.
func (idx *WatchIndex) Riskiest(threshold math.Int, limit int) []*WatchedAccount {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	result := make([]*WatchedAccount, 0, limit)
	idx.tree.Ascend(func(i btree.Item) bool {
		acct := i.(*accountItem).account
		if acct.HealthFactor.GTE(threshold) {
			return false
		}
		copy := *acct
		result = append(result, &copy)
		return len(result) < limit
	})
	return result
}

// Len returns the number of watched accounts
func (idx *WatchIndex) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.accounts)
}

// Clear removes all accounts from the index
func (idx *WatchIndex) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.tree.Clear(false)
	idx.accounts = make(map[string]*accountItem)
}
