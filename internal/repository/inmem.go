package repository

import (
	lru "github.com/hashicorp/golang-lru"
)

// InMemRepository memoizes render-execution results (render URL hash ->
// resolved download URL) for the lifetime of the process, bounded so a
// scan of many videos cannot grow it without limit.
type InMemRepository struct {
	cache *lru.Cache
}

func NewInMemRepository() (*InMemRepository, error) {
	cache, err := lru.New(10_000)
	if err != nil {
		return nil, err
	}

	return &InMemRepository{
		cache: cache,
	}, nil
}

func (r *InMemRepository) AddURL(key, url string) {
	r.cache.Add(key, url)
}

func (r *InMemRepository) GetURL(key string) (string, bool) {
	v, ok := r.cache.Get(key)
	if !ok {
		return "", false
	}

	url, ok := v.(string)
	if !ok {
		r.cache.Remove(key)
		return "", false
	}

	return url, true
}
