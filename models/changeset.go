// ABOUTME: This file defines the article changeset merged across content sources per refresh cycle
// ABOUTME: Merge is a set-union keyed by ArticleKey, commutative and idempotent

package models

// ArticleChangeSet is the union of new, updated and deleted articles
// produced by one refresh cycle. Each content source contributes one
// changeset; the router merges them before a single apply.
type ArticleChangeSet struct {
	NewArticles     map[ArticleKey]*Article
	UpdatedArticles map[ArticleKey]*Article
	DeletedArticles map[ArticleKey]*Article
}

// NewArticleChangeSet returns an empty changeset.
func NewArticleChangeSet() *ArticleChangeSet {
	return &ArticleChangeSet{
		NewArticles:     make(map[ArticleKey]*Article),
		UpdatedArticles: make(map[ArticleKey]*Article),
		DeletedArticles: make(map[ArticleKey]*Article),
	}
}

// AddNew records an article first seen this cycle.
func (cs *ArticleChangeSet) AddNew(article *Article) {
	cs.NewArticles[article.Key()] = article
}

// AddUpdated records an article whose content changed this cycle.
func (cs *ArticleChangeSet) AddUpdated(article *Article) {
	cs.UpdatedArticles[article.Key()] = article
}

// AddDeleted records an article removed by its source this cycle.
func (cs *ArticleChangeSet) AddDeleted(article *Article) {
	cs.DeletedArticles[article.Key()] = article
}

// Merge unions other into cs. Merge order is irrelevant: the operation
// is commutative and associative, and re-merging an already-seen
// article with identical content is a no-op.
func (cs *ArticleChangeSet) Merge(other *ArticleChangeSet) {
	if other == nil {
		return
	}
	for key, article := range other.NewArticles {
		cs.NewArticles[key] = article
	}
	for key, article := range other.UpdatedArticles {
		cs.UpdatedArticles[key] = article
	}
	for key, article := range other.DeletedArticles {
		cs.DeletedArticles[key] = article
	}
}

// IsEmpty reports whether the changeset carries no work.
func (cs *ArticleChangeSet) IsEmpty() bool {
	return len(cs.NewArticles) == 0 && len(cs.UpdatedArticles) == 0 && len(cs.DeletedArticles) == 0
}

// Counts returns the new/updated/deleted cardinalities, mostly for logging.
func (cs *ArticleChangeSet) Counts() (newCount, updatedCount, deletedCount int) {
	return len(cs.NewArticles), len(cs.UpdatedArticles), len(cs.DeletedArticles)
}
