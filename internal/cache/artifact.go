package cache

import (
	"strconv"
	"time"

	"golang.org/x/sync/singleflight"
)

// Artifact is a rendered response body, such as an export file or a chart.
type Artifact struct {
	ContentType string
	Body        []byte
}

// ArtifactCache keeps rendered artifacts per snapshot generation. A new
// generation never sees an older generation's artifacts, and concurrent
// requests for the same missing artifact render it once.
type ArtifactCache struct {
	lru   *LRUCache[Artifact]
	group singleflight.Group
}

func NewArtifactCache(maxSize int, ttl time.Duration) *ArtifactCache {
	return &ArtifactCache{lru: NewLRUCache[Artifact](maxSize, ttl)}
}

// Get returns the artifact name for generation, rendering it on a miss.
// Failed renders are not cached.
func (a *ArtifactCache) Get(generation uint64, name string, render func() (Artifact, error)) (Artifact, bool, error) {
	key := strconv.FormatUint(generation, 10) + "/" + name
	if art, ok := a.lru.Get(key); ok {
		return art, true, nil
	}
	v, err, _ := a.group.Do(key, func() (any, error) {
		art, err := render()
		if err != nil {
			return Artifact{}, err
		}
		a.lru.Set(key, art)
		return art, nil
	})
	if err != nil {
		return Artifact{}, false, err
	}
	return v.(Artifact), false, nil
}

func (a *ArtifactCache) CleanExpired() int { return a.lru.CleanExpired() }

func (a *ArtifactCache) Size() int { return a.lru.Size() }

func (a *ArtifactCache) Stats() Stats { return a.lru.Stats() }
