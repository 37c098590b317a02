package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/metrics"
)

// Registry is the in-memory Store. One RWMutex guards participants,
// standings and history together so a game's updates land atomically.
type Registry struct {
	mu           sync.RWMutex
	participants map[string]model.Participant
	index        *standings
	games        []model.GameRecord
	gameIDs      map[string]struct{}
	maxHistory   int
}

var _ Store = (*Registry)(nil)

// NewRegistry returns an empty Registry.
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		participants: make(map[string]model.Participant),
		index:        newStandings(),
		gameIDs:      make(map[string]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func observeUpdate(start time.Time) {
	metrics.RecordRegistryUpdateLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

func observeQuery(start time.Time) {
	metrics.RecordRegistryQueryLatency(float64(time.Since(start).Nanoseconds()) / 1e6)
}

// Create adds a new participant.
func (r *Registry) Create(ctx context.Context, p model.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if p.ID == "" {
		return fmt.Errorf("%w: participant id is empty", model.ErrInvalidConfiguration)
	}
	defer observeUpdate(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.participants[p.ID]; ok {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, p.ID)
	}
	r.put(p)
	metrics.UpdateParticipants(len(r.participants))
	return nil
}

// Get returns a copy of the participant.
func (r *Registry) Get(ctx context.Context, id string) (model.Participant, error) {
	if err := ctx.Err(); err != nil {
		return model.Participant{}, err
	}
	defer observeQuery(time.Now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.participants[id]
	if !ok {
		return model.Participant{}, model.NotFound(id)
	}
	return p, nil
}

// List returns every participant ordered by id.
func (r *Registry) List(ctx context.Context) []model.Participant {
	defer observeQuery(time.Now())

	r.mu.RLock()
	out := make([]model.Participant, 0, len(r.participants))
	for _, p := range r.participants {
		out = append(out, p)
	}
	r.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Roster snapshots the requested participants. An empty ids slice returns
// the whole registry.
func (r *Registry) Roster(ctx context.Context, ids []string) (model.Roster, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	defer observeQuery(time.Now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	if len(ids) == 0 {
		out := make(model.Roster, len(r.participants))
		for id, p := range r.participants {
			out[id] = p
		}
		return out, nil
	}
	out := make(model.Roster, len(ids))
	for _, id := range ids {
		p, ok := r.participants[id]
		if !ok {
			return nil, model.NotFound(id)
		}
		out[id] = p
	}
	return out, nil
}

// SaveAll replaces existing participants. Unknown ids abort the whole batch.
func (r *Registry) SaveAll(ctx context.Context, ps []model.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	defer observeUpdate(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.checkKnown(ps); err != nil {
		return err
	}
	for _, p := range ps {
		r.put(p)
	}
	return nil
}

// RecordGame stores rec and updated together. A repeated game id returns
// model.ErrDuplicateGame and changes nothing.
func (r *Registry) RecordGame(ctx context.Context, rec model.GameRecord, updated []model.Participant) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if rec.Result.ID == "" {
		return fmt.Errorf("%w: game id is empty", model.ErrInvalidConfiguration)
	}
	defer observeUpdate(time.Now())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.gameIDs[rec.Result.ID]; ok {
		return fmt.Errorf("%w: %s", model.ErrDuplicateGame, rec.Result.ID)
	}
	if err := r.checkKnown(updated); err != nil {
		return err
	}
	for _, p := range updated {
		r.put(p)
	}
	r.appendGame(rec)
	return nil
}

// HasGame reports whether the game id was recorded.
func (r *Registry) HasGame(id string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.gameIDs[id]
	return ok
}

// Games returns up to limit records, newest first. A non-empty
// participantID keeps only games that participant played in; limit <= 0
// returns all of them.
func (r *Registry) Games(ctx context.Context, participantID string, limit int) []model.GameRecord {
	defer observeQuery(time.Now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]model.GameRecord, 0)
	for i := len(r.games) - 1; i >= 0; i-- {
		if limit > 0 && len(out) >= limit {
			break
		}
		rec := r.games[i]
		if participantID != "" {
			if _, ok := rec.Result.Involves(participantID); !ok {
				continue
			}
		}
		out = append(out, rec)
	}
	return out
}

// GameIDs returns every recorded game id, including ids whose records were
// trimmed from history.
func (r *Registry) GameIDs(ctx context.Context) []string {
	r.mu.RLock()
	ids := make([]string, 0, len(r.gameIDs))
	for id := range r.gameIDs {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Strings(ids)
	return ids
}

// Standings returns the top limit participants by rating. Equal ratings
// share a rank.
func (r *Registry) Standings(ctx context.Context, limit int) ([]Standing, error) {
	if limit < 1 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidLimit, limit)
	}
	defer observeQuery(time.Now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := r.index.top(limit)
	out := make([]Standing, 0, len(ids))
	for i, id := range ids {
		rank := i + 1
		if i > 0 && r.index.rating[id] == r.index.rating[ids[i-1]] {
			rank = out[i-1].Rank
		}
		out = append(out, standing(rank, r.participants[id]))
	}
	return out, nil
}

// Rank returns the standing of one participant.
func (r *Registry) Rank(ctx context.Context, id string) (Standing, error) {
	defer observeQuery(time.Now())

	r.mu.RLock()
	defer r.mu.RUnlock()
	rank, ok := r.index.rank(id)
	if !ok {
		return Standing{}, model.NotFound(id)
	}
	return standing(rank, r.participants[id]), nil
}

// Count returns the number of participants.
func (r *Registry) Count(ctx context.Context) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.participants)
}

func standing(rank int, p model.Participant) Standing {
	return Standing{
		Rank:        rank,
		ID:          p.ID,
		Name:        p.Name,
		Rating:      p.Rating,
		Sigma:       p.Sigma,
		GamesPlayed: p.GamesPlayed,
		Wins:        p.Wins,
	}
}

// put must be called with the write lock held.
func (r *Registry) put(p model.Participant) {
	r.participants[p.ID] = p
	r.index.upsert(p.ID, p.Rating)
}

func (r *Registry) checkKnown(ps []model.Participant) error {
	for _, p := range ps {
		if _, ok := r.participants[p.ID]; !ok {
			return model.NotFound(p.ID)
		}
	}
	return nil
}

func (r *Registry) appendGame(rec model.GameRecord) {
	r.gameIDs[rec.Result.ID] = struct{}{}
	r.games = append(r.games, rec)
	if r.maxHistory > 0 && len(r.games) > r.maxHistory {
		drop := len(r.games) - r.maxHistory
		r.games = append(r.games[:0:0], r.games[drop:]...)
	}
}
