package experience

import (
	"context"
	"sync"

	"github.com/rs/zerolog"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/events"
	"github.com/mitchelldurbincs/TacticalSearch/internal/storage"
)

// Collector buffers the trace records of one battle and writes them out when
// the buffer fills or the battle ends. It subscribes to game.ended.
type Collector struct {
	records []*structpb.Struct
	mu      sync.Mutex
	maxSize int
	gameID  string
	layer   PersistenceLayer
	logger  zerolog.Logger

	episodes int
	dropped  int
}

// NewCollector creates a collector for gameID that writes through layer.
func NewCollector(maxSize int, gameID string, layer PersistenceLayer, logger zerolog.Logger) *Collector {
	if maxSize < 1 {
		maxSize = 1
	}
	return &Collector{
		records: make([]*structpb.Struct, 0, maxSize),
		maxSize: maxSize,
		gameID:  gameID,
		layer:   layer,
		logger:  logger.With().Str("component", "experience_collector").Str("game_id", gameID).Logger(),
	}
}

// AddEpisode buffers ep, flushing first if the buffer is full.
func (c *Collector) AddEpisode(ctx context.Context, ep *storage.Episode) error {
	rec, err := EncodeEpisode(ep)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.records) >= c.maxSize {
		if err := c.flushLocked(ctx); err != nil {
			return err
		}
	}
	c.records = append(c.records, rec)
	c.episodes++
	return nil
}

// Flush writes every buffered record.
func (c *Collector) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.flushLocked(ctx)
}

func (c *Collector) flushLocked(ctx context.Context) error {
	if len(c.records) == 0 {
		return nil
	}
	if err := c.layer.Write(ctx, c.records); err != nil {
		return err
	}
	c.logger.Debug().Int("records", len(c.records)).Msg("Flushed trace records")
	c.records = c.records[:0]
	return nil
}

// Count returns the number of records waiting to be written.
func (c *Collector) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.records)
}

// ID implements events.Subscriber.
func (c *Collector) ID() string { return "experience_collector_" + c.gameID }

// InterestedIn implements events.Subscriber.
func (c *Collector) InterestedIn(eventType string) bool {
	return eventType == events.TypeGameEnded
}

// HandleEvent appends the battle result and flushes.
func (c *Collector) HandleEvent(event events.Event) {
	e, ok := event.(*events.GameEndedEvent)
	if !ok || e.GameID() != c.gameID {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	rec, err := EncodeResult(&storage.GameResult{
		GameID:    c.gameID,
		Winner:    e.Winner,
		Draw:      e.Draw,
		Reason:    e.Reason,
		FinalTurn: e.FinalTurn,
		Duration:  e.Duration,
		Episodes:  c.episodes,
	})
	if err != nil {
		c.dropped++
		c.logger.Error().Err(err).Msg("Failed to encode battle result")
		return
	}
	c.records = append(c.records, rec)
	if err := c.flushLocked(context.Background()); err != nil {
		c.dropped += len(c.records)
		c.logger.Error().Err(err).Int("records", len(c.records)).Msg("Failed to flush trace records")
		c.records = c.records[:0]
	}
}

// Dropped returns the number of records lost to encode or write failures.
func (c *Collector) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}
