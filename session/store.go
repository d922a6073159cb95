package session

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrRedisUnavailable is returned when the backing Redis call fails.
var ErrRedisUnavailable = errors.New("redis unavailable")

// ErrSessionNotFound is returned when the caller presents no session token at all.
var ErrSessionNotFound = errors.New("session not found")

// ErrSessionExpiredOrInvalid is returned when a presented token has no live session.
var ErrSessionExpiredOrInvalid = errors.New("session expired or invalid")

// ErrTooManyActiveSessions is returned by Create when the user is at the session cap.
var ErrTooManyActiveSessions = errors.New("too many active sessions")

const (
	// DefaultTTL is the sliding lifetime of a session and its owner's index.
	DefaultTTL = 300 * time.Second
	// DefaultMaxSessions is the per-user cap on live sessions.
	DefaultMaxSessions = 3
)

// KEYS[1] session key, ARGV[1] session id, ARGV[2] user index key prefix.
const deleteSessionScript = `
local owner = redis.call("GET", KEYS[1])
if owner then
  redis.call("SREM", ARGV[2] .. owner, ARGV[1])
  redis.call("DEL", KEYS[1])
  return 1
end
return 0
`

var deleteSessionLua = redis.NewScript(deleteSessionScript)

// Options configures a [Store].
type Options struct {
	// Prefix namespaces every key. Empty keeps the bare session:{id} and
	// user_sessions:{uid} layout.
	Prefix      string
	TTL         time.Duration
	MaxSessions int
}

// Store is a Redis-backed session store. Each session is a forward key
// session:{id} holding the owning user id, reverse-indexed by the set
// user_sessions:{uid}. Both keys share a sliding TTL.
type Store struct {
	redis       redis.UniversalClient
	prefix      string
	ttl         time.Duration
	maxSessions int
	newID       func() (string, error)
}

// NewStore creates a session [Store] backed by the given Redis client.
// Zero TTL and MaxSessions fall back to [DefaultTTL] and [DefaultMaxSessions].
func NewStore(redis redis.UniversalClient, opts Options) *Store {
	if opts.TTL <= 0 {
		opts.TTL = DefaultTTL
	}
	if opts.MaxSessions <= 0 {
		opts.MaxSessions = DefaultMaxSessions
	}
	return &Store{
		redis:       redis,
		prefix:      opts.Prefix,
		ttl:         opts.TTL,
		maxSessions: opts.MaxSessions,
		newID:       newSessionID,
	}
}

func newSessionID() (string, error) {
	id, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// TTL returns the sliding session lifetime.
func (s *Store) TTL() time.Duration {
	return s.ttl
}

// MaxSessions returns the per-user live session cap.
func (s *Store) MaxSessions() int {
	return s.maxSessions
}

func (s *Store) key(sessionID string) string {
	return s.prefix + "session:" + sessionID
}

func (s *Store) userKeyPrefix() string {
	return s.prefix + "user_sessions:"
}

func (s *Store) userKey(userID int64) string {
	return s.userKeyPrefix() + strconv.FormatInt(userID, 10)
}

// Create starts a new session for userID and returns its token.
//
// The cap check and the write are separate round trips; concurrent creates
// for one user may overshoot the cap by the number of racers.
//
//	Performance: 1 SMEMBERS + 1 pipelined EXISTS batch + 1 MULTI/EXEC (SET, SADD, EXPIRE).
func (s *Store) Create(ctx context.Context, userID int64) (string, error) {
	count, err := s.Count(ctx, userID)
	if err != nil {
		return "", err
	}
	if count >= s.maxSessions {
		return "", ErrTooManyActiveSessions
	}

	sessionID, err := s.newID()
	if err != nil {
		return "", err
	}

	sessionKey := s.key(sessionID)
	userKey := s.userKey(userID)

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, sessionKey, strconv.FormatInt(userID, 10), s.ttl)
		pipe.SAdd(ctx, userKey, sessionID)
		pipe.Expire(ctx, userKey, s.ttl)
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return sessionID, nil
}

// Resolve returns the user owning sessionID and slides the TTL of the
// session key and of the user's index forward by the full window.
//
//	Performance: 1 GET + 1 pipelined EXPIRE pair.
func (s *Store) Resolve(ctx context.Context, sessionID string) (int64, error) {
	if sessionID == "" {
		return 0, ErrSessionNotFound
	}

	key := s.key(sessionID)
	raw, err := s.redis.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrSessionExpiredOrInvalid
		}
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		if delErr := s.redis.Del(ctx, key).Err(); delErr != nil {
			return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, delErr)
		}
		return 0, ErrSessionExpiredOrInvalid
	}

	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Expire(ctx, key, s.ttl)
		pipe.Expire(ctx, s.userKey(userID), s.ttl)
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	return userID, nil
}

// Get returns the session record without sliding its TTL.
func (s *Store) Get(ctx context.Context, sessionID string) (*Session, error) {
	if sessionID == "" {
		return nil, ErrSessionNotFound
	}

	key := s.key(sessionID)
	var (
		getCmd *redis.StringCmd
		ttlCmd *redis.DurationCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		getCmd = pipe.Get(ctx, key)
		ttlCmd = pipe.PTTL(ctx, key)
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	raw, err := getCmd.Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrSessionExpiredOrInvalid
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	userID, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, ErrSessionExpiredOrInvalid
	}

	sess := &Session{SessionID: sessionID, UserID: userID}
	if remaining := ttlCmd.Val(); remaining > 0 {
		sess.ExpiresAt = time.Now().Add(remaining)
	}
	return sess, nil
}

// Exists reports whether sessionID maps to a live session. It does not
// slide the TTL.
func (s *Store) Exists(ctx context.Context, sessionID string) (bool, error) {
	if sessionID == "" {
		return false, nil
	}
	n, err := s.redis.Exists(ctx, s.key(sessionID)).Result()
	if err != nil {
		return false, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return n == 1, nil
}

// Delete removes a session and its index membership in one script call.
// Deleting an absent session is a no-op.
//
//	Performance: 1 EVALSHA.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	err := deleteSessionLua.Run(
		ctx,
		s.redis,
		[]string{s.key(sessionID)},
		sessionID,
		s.userKeyPrefix(),
	).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return nil
}

// Count returns the number of live sessions for userID. Stale index
// members are reconciled first.
func (s *Store) Count(ctx context.Context, userID int64) (int, error) {
	ids, err := s.ListActive(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// ListActive returns the live session ids of userID, sorted. Index members
// whose forward key has already expired are removed as a side effect.
//
//	Performance: 1 SMEMBERS + 1 pipelined EXISTS batch + optional SREM.
func (s *Store) ListActive(ctx context.Context, userID int64) ([]string, error) {
	userKey := s.userKey(userID)

	members, err := s.redis.SMembers(ctx, userKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []string{}, nil
		}
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	if len(members) == 0 {
		return []string{}, nil
	}

	pipe := s.redis.Pipeline()
	existsCmds := make([]*redis.IntCmd, len(members))
	for i, id := range members {
		existsCmds[i] = pipe.Exists(ctx, s.key(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}

	live := make([]string, 0, len(members))
	stale := make([]interface{}, 0)
	for i, cmd := range existsCmds {
		n, cmdErr := cmd.Result()
		if cmdErr != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, cmdErr)
		}
		if n == 1 {
			live = append(live, members[i])
		} else {
			stale = append(stale, members[i])
		}
	}

	if len(stale) > 0 {
		if err := s.redis.SRem(ctx, userKey, stale...).Err(); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
		}
	}

	sort.Strings(live)
	return live, nil
}

// DeleteAllForUser removes every session of userID and its index, returning
// how many live sessions were removed.
//
// A session created between the read and delete phases survives this call
// and expires on its own.
func (s *Store) DeleteAllForUser(ctx context.Context, userID int64) (int, error) {
	ids, err := s.ListActive(ctx, userID)
	if err != nil {
		return 0, err
	}

	keys := make([]string, 0, len(ids))
	for _, id := range ids {
		keys = append(keys, s.key(id))
	}

	_, err = s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		if len(keys) > 0 {
			pipe.Del(ctx, keys...)
		}
		pipe.Del(ctx, s.userKey(userID))
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return len(ids), nil
}

// Ping returns a point-in-time Redis availability check and latency.
func (s *Store) Ping(ctx context.Context) (time.Duration, error) {
	start := time.Now()
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return time.Since(start), fmt.Errorf("%w: %v", ErrRedisUnavailable, err)
	}
	return time.Since(start), nil
}
