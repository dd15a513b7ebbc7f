package cache

import (
	"fmt"

	"github.com/wrsmith108/love-rank-pulse-sub001/internal/domain/model"
)

// defaultNamespace versions the key space so a layout change can roll out
// without colliding with stale entries.
const defaultNamespace = "lb:v1"

// KeyBuilder produces every cache key and invalidation prefix from one
// canonical serialization, so the prefixes used for pattern deletes can
// never drift from the keys used for reads.
//
// Both key families are scope-first so that one prefix delete per family
// clears a whole scope, rank summaries included:
//
//	<ns>:page:<scope>:<scopeKey>:p<page>:l<limit>
//	<ns>:rank:<scope>:<scopeKey>:<playerID>
type KeyBuilder struct {
	namespace string
}

// NewKeyBuilder creates a builder with the given namespace, or the default
// when empty.
func NewKeyBuilder(namespace string) *KeyBuilder {
	if namespace == "" {
		namespace = defaultNamespace
	}
	return &KeyBuilder{namespace: namespace}
}

// Page returns the key for one leaderboard page.
func (k *KeyBuilder) Page(scope model.Scope, scopeKey string, page, limit int) string {
	return fmt.Sprintf("%s:p%d:l%d", k.segment("page", scope, scopeKey), page, limit)
}

// PagePrefix returns the prefix covering every page of a scope.
func (k *KeyBuilder) PagePrefix(scope model.Scope, scopeKey string) string {
	return k.segment("page", scope, scopeKey) + ":"
}

// ScopePrefix returns the page prefix covering an entire scope namespace,
// including every scope key under a country/session scope.
func (k *KeyBuilder) ScopePrefix(scope model.Scope) string {
	return fmt.Sprintf("%s:page:%s:", k.namespace, scope)
}

// PlayerRank returns the key for one player's rank summary in one scope.
func (k *KeyBuilder) PlayerRank(playerID string, scope model.Scope, scopeKey string) string {
	return fmt.Sprintf("%s:%s", k.segment("rank", scope, scopeKey), playerID)
}

// RankPrefix returns the prefix covering every player's rank summary in a
// scope, so a scope invalidation clears rank keys alongside page keys.
func (k *KeyBuilder) RankPrefix(scope model.Scope, scopeKey string) string {
	return k.segment("rank", scope, scopeKey) + ":"
}

// RankScopePrefix returns the rank prefix covering an entire scope
// namespace, including every scope key under a country/session scope.
func (k *KeyBuilder) RankScopePrefix(scope model.Scope) string {
	return fmt.Sprintf("%s:rank:%s:", k.namespace, scope)
}

func (k *KeyBuilder) segment(family string, scope model.Scope, scopeKey string) string {
	return fmt.Sprintf("%s:%s:%s:%s", k.namespace, family, scope, scopeKey)
}
