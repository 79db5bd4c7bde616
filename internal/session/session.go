// Package session holds per-user application state (auth session, cart,
// driver location) in Redis with an explicit lifecycle: state is created on
// login and wiped on logout rather than living in process-global variables.
package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// ErrNotFound is returned when no state exists for the key.
var ErrNotFound = errors.New("session: not found")

type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// State is the per-user application state snapshot.
type State struct {
	UserID    int64      `json:"user_id"`
	Role      string     `json:"role"`
	Cart      []CartItem `json:"cart"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// CartItem is a product selection pending checkout.
type CartItem struct {
	ProductID int64 `json:"product_id"`
	Quantity  int   `json:"quantity"`
}

// Position is a driver's last reported location.
type Position struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
	At  string  `json:"at"`
}

// Initialize connects to Redis and verifies the connection.
func Initialize(redisURL string, ttl time.Duration) (*Store, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Store{rdb: rdb, ttl: ttl}, nil
}

func stateKey(userID int64) string    { return fmt.Sprintf("state:%d", userID) }
func positionKey(userID int64) string { return fmt.Sprintf("driverpos:%d", userID) }

// Init creates fresh state for a user at login, replacing any leftovers.
func (s *Store) Init(ctx context.Context, userID int64, role string) (*State, error) {
	now := time.Now().UTC()
	st := &State{UserID: userID, Role: role, CreatedAt: now, UpdatedAt: now}
	if err := s.put(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// Get returns the user's current state.
func (s *Store) Get(ctx context.Context, userID int64) (*State, error) {
	val, err := s.rdb.Get(ctx, stateKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get state: %w", err)
	}
	var st State
	if err := json.Unmarshal([]byte(val), &st); err != nil {
		return nil, fmt.Errorf("failed to unmarshal state: %w", err)
	}
	return &st, nil
}

// SetCart replaces the user's cart, creating state if none exists yet.
func (s *Store) SetCart(ctx context.Context, userID int64, items []CartItem) error {
	st, err := s.Get(ctx, userID)
	if errors.Is(err, ErrNotFound) {
		st = &State{UserID: userID, CreatedAt: time.Now().UTC()}
	} else if err != nil {
		return err
	}
	st.Cart = items
	return s.put(ctx, st)
}

// Reset wipes all state for the user at logout.
func (s *Store) Reset(ctx context.Context, userID int64) error {
	return s.rdb.Del(ctx, stateKey(userID), positionKey(userID)).Err()
}

// SetDriverPosition caches the driver's last reported location.
func (s *Store) SetDriverPosition(ctx context.Context, userID int64, lat, lng float64) error {
	p := Position{Lat: lat, Lng: lng, At: time.Now().UTC().Format(time.RFC3339)}
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal position: %w", err)
	}
	return s.rdb.Set(ctx, positionKey(userID), data, s.ttl).Err()
}

// GetDriverPosition returns the driver's cached location.
func (s *Store) GetDriverPosition(ctx context.Context, userID int64) (*Position, error) {
	val, err := s.rdb.Get(ctx, positionKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get position: %w", err)
	}
	var p Position
	if err := json.Unmarshal([]byte(val), &p); err != nil {
		return nil, fmt.Errorf("failed to unmarshal position: %w", err)
	}
	return &p, nil
}

func (s *Store) put(ctx context.Context, st *State) error {
	st.UpdatedAt = time.Now().UTC()
	data, err := json.Marshal(st)
	if err != nil {
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	return s.rdb.Set(ctx, stateKey(st.UserID), data, s.ttl).Err()
}
