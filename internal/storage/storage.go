package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/search"
)

// ErrNotFound is returned when a key has no stored value.
var ErrNotFound = errors.New("not found")

// Storage keys
const (
	prefixEpisode = "episode/"
	prefixGame    = "game/"
	prefixResult  = "result/"
)

func episodeKey(id uuid.UUID) []byte {
	return []byte(prefixEpisode + id.String())
}

// gameIndexKey orders a game's episodes by turn.
func gameIndexKey(gameID string, turn int, id uuid.UUID) []byte {
	return []byte(fmt.Sprintf("%s%s/%06d/%s", prefixGame, gameID, turn, id))
}

func gamePrefix(gameID string) []byte {
	return []byte(prefixGame + gameID + "/")
}

func resultKey(gameID string) []byte {
	return []byte(prefixResult + gameID)
}

// Episode is one finished search: the plan it chose in canonical ids and
// what it cost.
type Episode struct {
	ID        uuid.UUID           `json:"id"`
	GameID    string              `json:"game_id"`
	Team      core.Team           `json:"team"`
	Turn      int                 `json:"turn"`
	Plan      []core.ActionFields `json:"plan"`
	Value     int                 `json:"value"`
	Nodes     int64               `json:"nodes"`
	Elapsed   time.Duration       `json:"elapsed"`
	Complete  bool                `json:"complete"`
	Masked    []int               `json:"masked,omitempty"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewEpisode records d as planned in game gameID.
func NewEpisode(gameID string, d search.Decision) *Episode {
	return &Episode{
		ID:        d.EpisodeID,
		GameID:    gameID,
		Team:      d.Team,
		Turn:      d.Turn,
		Plan:      d.Plan,
		Value:     d.Value,
		Nodes:     d.Nodes,
		Elapsed:   d.Elapsed,
		Complete:  d.Complete,
		Masked:    d.Masked,
		CreatedAt: time.Now(),
	}
}

// GameResult is the stored outcome of a battle.
type GameResult struct {
	GameID    string        `json:"game_id"`
	Winner    core.Team     `json:"winner"`
	Draw      bool          `json:"draw"`
	Reason    string        `json:"reason"`
	FinalTurn int           `json:"final_turn"`
	Duration  time.Duration `json:"duration"`
	Episodes  int           `json:"episodes"`
}

// Storage wraps BadgerDB for episode persistence
type Storage struct {
	db     *badger.DB
	logger zerolog.Logger
}

// Open opens (or creates) the database in dir.
func Open(dir string, logger zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions(dir)
	opts.Logger = nil // Disable logging
	return open(opts, logger)
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory(logger zerolog.Logger) (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger zerolog.Logger) (*Storage, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open episode store: %w", err)
	}
	s := &Storage{
		db:     db,
		logger: logger.With().Str("component", "Storage").Logger(),
	}
	s.logger.Info().Str("dir", opts.Dir).Bool("in_memory", opts.InMemory).Msg("Episode store opened")
	return s, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// SaveEpisode stores ep and indexes it under its game.
func (s *Storage) SaveEpisode(ep *Episode) error {
	if ep.ID == uuid.Nil {
		return fmt.Errorf("save episode: missing id")
	}
	data, err := json.Marshal(ep)
	if err != nil {
		return fmt.Errorf("encode episode %s: %w", ep.ID, err)
	}

	err = s.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(episodeKey(ep.ID), data); err != nil {
			return err
		}
		return txn.Set(gameIndexKey(ep.GameID, ep.Turn, ep.ID), nil)
	})
	if err != nil {
		return fmt.Errorf("save episode %s: %w", ep.ID, err)
	}

	s.logger.Debug().
		Str("episode", ep.ID.String()).
		Str("game_id", ep.GameID).
		Int("turn", ep.Turn).
		Msg("Episode saved")
	return nil
}

func getJSON(txn *badger.Txn, key []byte, v interface{}) error {
	item, err := txn.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return fmt.Errorf("%s: %w", key, ErrNotFound)
	}
	if err != nil {
		return err
	}
	return item.Value(func(val []byte) error {
		return json.Unmarshal(val, v)
	})
}

// LoadEpisode returns the episode stored under id.
func (s *Storage) LoadEpisode(id uuid.UUID) (*Episode, error) {
	ep := &Episode{}
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, episodeKey(id), ep)
	})
	if err != nil {
		return nil, err
	}
	return ep, nil
}

// GameEpisodes returns every episode of gameID ordered by turn.
func (s *Storage) GameEpisodes(gameID string) ([]*Episode, error) {
	var out []*Episode
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := gamePrefix(gameID)
		var ids []uuid.UUID
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			key := it.Item().Key()
			id, err := uuid.ParseBytes(key[len(key)-36:])
			if err != nil {
				return fmt.Errorf("index key %q: %w", key, err)
			}
			ids = append(ids, id)
		}
		for _, id := range ids {
			ep := &Episode{}
			if err := getJSON(txn, episodeKey(id), ep); err != nil {
				return err
			}
			out = append(out, ep)
		}
		return nil
	})
	return out, err
}

// CountEpisodes returns the number of stored episodes.
func (s *Storage) CountEpisodes() (int, error) {
	n := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(prefixEpisode)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

// SaveResult stores the outcome of a battle.
func (s *Storage) SaveResult(r *GameResult) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(resultKey(r.GameID), data)
	})
}

// LoadResult returns the stored outcome of gameID.
func (s *Storage) LoadResult(gameID string) (*GameResult, error) {
	r := &GameResult{}
	err := s.db.View(func(txn *badger.Txn) error {
		return getJSON(txn, resultKey(gameID), r)
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// DeleteGame removes a battle's episodes, index entries and result.
func (s *Storage) DeleteGame(gameID string) error {
	episodes, err := s.GameEpisodes(gameID)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		for _, ep := range episodes {
			if err := txn.Delete(episodeKey(ep.ID)); err != nil {
				return err
			}
			if err := txn.Delete(gameIndexKey(gameID, ep.Turn, ep.ID)); err != nil {
				return err
			}
		}
		return txn.Delete(resultKey(gameID))
	})
}
