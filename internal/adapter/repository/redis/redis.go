package redis

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/vadimbarashkov/shortlink/internal/entity"
)

const DefaultKeyPrefix = "shortlink:"

const (
	insertCodeTaken = -1
	insertURLTaken  = -2
)

// insertScript claims both index keys and writes the link hash in one step.
var insertScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 1 then return -2 end
if redis.call('EXISTS', KEYS[2]) == 1 then return -1 end
local id = redis.call('INCR', KEYS[3])
redis.call('HSET', ARGV[4] .. id,
	'id', id,
	'short_code', ARGV[1],
	'original_url', ARGV[2],
	'hit_count', 0,
	'created_at', ARGV[3],
	'updated_at', ARGV[3])
redis.call('SET', KEYS[1], id)
redis.call('SET', KEYS[2], id)
redis.call('ZADD', KEYS[4], 0, id)
return id
`)

var incrementScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then return false end
local link = ARGV[2] .. id
redis.call('HINCRBY', link, 'hit_count', 1)
redis.call('HSET', link, 'updated_at', ARGV[1])
redis.call('ZINCRBY', KEYS[2], 1, id)
return redis.call('HGETALL', link)
`)

var deleteScript = redis.NewScript(`
local id = redis.call('GET', KEYS[1])
if not id then return 0 end
local link = ARGV[1] .. id
local url = redis.call('HGET', link, 'original_url')
redis.call('DEL', link, KEYS[1])
if url then redis.call('DEL', ARGV[2] .. url) end
redis.call('ZREM', KEYS[2], id)
return 1
`)

// URLRepository keeps each link in a hash with string keys indexing it by
// short code and by original URL. A sorted set holds every id scored by hit count.
type URLRepository struct {
	client redis.UniversalClient
	prefix string
	now    func() time.Time
}

type Option func(*URLRepository)

func WithKeyPrefix(prefix string) Option {
	return func(r *URLRepository) {
		if prefix != "" {
			r.prefix = prefix
		}
	}
}

func NewURLRepository(client redis.UniversalClient, opts ...Option) *URLRepository {
	r := &URLRepository{
		client: client,
		prefix: DefaultKeyPrefix,
		now:    time.Now,
	}

	for _, opt := range opts {
		opt(r)
	}

	return r
}

func (r *URLRepository) seqKey() string { return r.prefix + "seq" }

func (r *URLRepository) hitsKey() string { return r.prefix + "hits" }

func (r *URLRepository) linkKeyPrefix() string { return r.prefix + "link:" }

func (r *URLRepository) linkKey(id string) string { return r.linkKeyPrefix() + id }

func (r *URLRepository) codeKey(shortCode string) string { return r.prefix + "code:" + shortCode }

func (r *URLRepository) urlKeyPrefix() string { return r.prefix + "url:" }

func (r *URLRepository) urlKey(originalURL string) string { return r.urlKeyPrefix() + originalURL }

func (r *URLRepository) findByIndex(ctx context.Context, indexKey string) (*entity.ShortLink, error) {
	id, err := r.client.Get(ctx, indexKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, entity.ErrShortLinkNotFound
		}
		return nil, fmt.Errorf("failed to get index key: %w", err)
	}

	fields, err := r.client.HGetAll(ctx, r.linkKey(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get link hash: %w", err)
	}

	// Deleted between the two reads.
	if len(fields) == 0 {
		return nil, entity.ErrShortLinkNotFound
	}

	return parseLink(fields)
}

func (r *URLRepository) FindByOriginalURL(ctx context.Context, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.FindByOriginalURL"

	link, err := r.findByIndex(ctx, r.urlKey(originalURL))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) FindByShortCode(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.FindByShortCode"

	link, err := r.findByIndex(ctx, r.codeKey(shortCode))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) ExistsByShortCode(ctx context.Context, shortCode string) (bool, error) {
	const op = "adapter.repository.redis.URLRepository.ExistsByShortCode"

	n, err := r.client.Exists(ctx, r.codeKey(shortCode)).Result()
	if err != nil {
		return false, fmt.Errorf("%s: failed to check short code key: %w", op, err)
	}

	return n > 0, nil
}

func (r *URLRepository) Insert(ctx context.Context, shortCode, originalURL string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.Insert"

	now := r.now()

	id, err := insertScript.Run(ctx, r.client,
		[]string{r.urlKey(originalURL), r.codeKey(shortCode), r.seqKey(), r.hitsKey()},
		shortCode, originalURL, now.UnixMicro(), r.linkKeyPrefix(),
	).Int64()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to run insert script: %w", op, err)
	}

	switch id {
	case insertURLTaken:
		return nil, fmt.Errorf("%s: %w", op, entity.ErrOriginalURLExists)
	case insertCodeTaken:
		return nil, fmt.Errorf("%s: %w", op, entity.ErrShortCodeExists)
	}

	ts := time.UnixMicro(now.UnixMicro())

	return &entity.ShortLink{
		ID:          id,
		ShortCode:   shortCode,
		OriginalURL: originalURL,
		CreatedAt:   ts,
		UpdatedAt:   ts,
	}, nil
}

func (r *URLRepository) IncrementHitCount(ctx context.Context, shortCode string) (*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.IncrementHitCount"

	pairs, err := incrementScript.Run(ctx, r.client,
		[]string{r.codeKey(shortCode), r.hitsKey()},
		r.now().UnixMicro(), r.linkKeyPrefix(),
	).StringSlice()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
		}
		return nil, fmt.Errorf("%s: failed to run increment script: %w", op, err)
	}

	fields := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[pairs[i]] = pairs[i+1]
	}

	link, err := parseLink(fields)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return link, nil
}

func (r *URLRepository) Delete(ctx context.Context, shortCode string) error {
	const op = "adapter.repository.redis.URLRepository.Delete"

	deleted, err := deleteScript.Run(ctx, r.client,
		[]string{r.codeKey(shortCode), r.hitsKey()},
		r.linkKeyPrefix(), r.urlKeyPrefix(),
	).Int64()
	if err != nil {
		return fmt.Errorf("%s: failed to run delete script: %w", op, err)
	}

	if deleted == 0 {
		return fmt.Errorf("%s: %w", op, entity.ErrShortLinkNotFound)
	}

	return nil
}

func (r *URLRepository) ListByHitCountDesc(ctx context.Context) ([]*entity.ShortLink, error) {
	const op = "adapter.repository.redis.URLRepository.ListByHitCountDesc"

	ids, err := r.client.ZRevRange(ctx, r.hitsKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read hits set: %w", op, err)
	}

	cmds := make([]*redis.MapStringStringCmd, 0, len(ids))

	_, err = r.client.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, id := range ids {
			cmds = append(cmds, pipe.HGetAll(ctx, r.linkKey(id)))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%s: failed to read link hashes: %w", op, err)
	}

	links := make([]*entity.ShortLink, 0, len(cmds))
	for _, cmd := range cmds {
		fields := cmd.Val()
		if len(fields) == 0 {
			continue
		}

		link, err := parseLink(fields)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		links = append(links, link)
	}

	// Equal scores come back in reverse lexicographic order of the id.
	slices.SortStableFunc(links, func(a, b *entity.ShortLink) int {
		if a.HitCount != b.HitCount {
			if a.HitCount > b.HitCount {
				return -1
			}
			return 1
		}
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})

	return links, nil
}

func parseLink(fields map[string]string) (*entity.ShortLink, error) {
	id, err := strconv.ParseInt(fields["id"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid id field: %w", err)
	}

	hitCount, err := strconv.ParseInt(fields["hit_count"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid hit_count field: %w", err)
	}

	createdAt, err := strconv.ParseInt(fields["created_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at field: %w", err)
	}

	updatedAt, err := strconv.ParseInt(fields["updated_at"], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at field: %w", err)
	}

	return &entity.ShortLink{
		ID:          id,
		ShortCode:   fields["short_code"],
		OriginalURL: fields["original_url"],
		HitCount:    hitCount,
		CreatedAt:   time.UnixMicro(createdAt),
		UpdatedAt:   time.UnixMicro(updatedAt),
	}, nil
}
