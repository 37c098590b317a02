package repository

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/okian/rally/internal/domain/chemistry"
	"github.com/okian/rally/internal/domain/model"
	"github.com/okian/rally/pkg/metrics"
)

// JSONL line kinds.
const (
	KindParticipant = "participant"
	KindGame        = "game"
	KindChemistry   = "chemistry"
)

const (
	scanInitialBuffer = 1024 * 1024
	scanMaxBuffer     = 8 * 1024 * 1024
)

// Line is one JSONL record of an export.
type Line struct {
	Kind        string             `json:"kind"`
	Participant *model.Participant `json:"participant,omitempty"`
	Game        *model.GameRecord  `json:"game,omitempty"`
	Pair        *chemistry.Entry   `json:"pair,omitempty"`
}

type jsonlOptions struct {
	chemistry *chemistry.Table
}

// JSONLOption configures Export and Import.
type JSONLOption func(*jsonlOptions)

// WithChemistry exports the pair scores of t after the games, and loads
// imported pair lines into t. Without it pair lines are skipped.
func WithChemistry(t *chemistry.Table) JSONLOption {
	return func(o *jsonlOptions) { o.chemistry = t }
}

func jsonlConfig(opts []JSONLOption) jsonlOptions {
	var o jsonlOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Export writes every participant, then every retained game record, one per
// line.
func (r *Registry) Export(ctx context.Context, w io.Writer, opts ...JSONLOption) error {
	o := jsonlConfig(opts)
	ps := r.List(ctx)
	games := r.Games(ctx, "", 0)

	bw := bufio.NewWriter(w)
	enc := json.NewEncoder(bw)
	for i := range ps {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(Line{Kind: KindParticipant, Participant: &ps[i]}); err != nil {
			return fmt.Errorf("encode participant %s: %w", ps[i].ID, err)
		}
	}
	// Games come back newest first; export oldest first so a re-import
	// keeps history order.
	for i := len(games) - 1; i >= 0; i-- {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := enc.Encode(Line{Kind: KindGame, Game: &games[i]}); err != nil {
			return fmt.Errorf("encode game %s: %w", games[i].Result.ID, err)
		}
	}
	pairs := o.chemistry.Entries()
	for i := range pairs {
		if err := enc.Encode(Line{Kind: KindChemistry, Pair: &pairs[i]}); err != nil {
			return fmt.Errorf("encode chemistry %s/%s: %w", pairs[i].A, pairs[i].B, err)
		}
	}
	return bw.Flush()
}

// Import loads an export. Participants are created or replaced; game
// records whose id is already known are skipped. Chemistry lines replace
// the table given by WithChemistry once the whole stream has been read. It
// returns the number of records applied.
func (r *Registry) Import(ctx context.Context, rd io.Reader, opts ...JSONLOption) (int, error) {
	o := jsonlConfig(opts)
	var pairs []chemistry.Entry
	applied := 0
	err := scanLines(rd, func(lineNo int, line Line) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		switch line.Kind {
		case KindParticipant:
			if line.Participant == nil || line.Participant.ID == "" {
				return fmt.Errorf("%w: line %d: participant missing id", ErrInvalidRecord, lineNo)
			}
			r.mu.Lock()
			r.put(*line.Participant)
			r.mu.Unlock()
			applied++
		case KindGame:
			if line.Game == nil || line.Game.Result.ID == "" {
				return fmt.Errorf("%w: line %d: game missing id", ErrInvalidRecord, lineNo)
			}
			r.mu.Lock()
			_, seen := r.gameIDs[line.Game.Result.ID]
			if !seen {
				r.appendGame(*line.Game)
				applied++
			}
			r.mu.Unlock()
		case KindChemistry:
			if line.Pair == nil || line.Pair.A == "" || line.Pair.B == "" {
				return fmt.Errorf("%w: line %d: chemistry pair incomplete", ErrInvalidRecord, lineNo)
			}
			pairs = append(pairs, *line.Pair)
		default:
			return fmt.Errorf("%w: line %d: unknown kind %q", ErrInvalidRecord, lineNo, line.Kind)
		}
		return nil
	})
	metrics.UpdateParticipants(r.Count(ctx))
	if err == nil && o.chemistry != nil && len(pairs) > 0 {
		o.chemistry.Load(pairs)
		applied += len(pairs)
	}
	return applied, err
}

// ReadGameRecords returns the game records of a JSONL export, skipping
// every other kind of line.
func ReadGameRecords(rd io.Reader) ([]model.GameRecord, error) {
	var out []model.GameRecord
	err := scanLines(rd, func(lineNo int, line Line) error {
		if line.Kind != KindGame {
			return nil
		}
		if line.Game == nil {
			return fmt.Errorf("%w: line %d: game body missing", ErrInvalidRecord, lineNo)
		}
		out = append(out, *line.Game)
		return nil
	})
	return out, err
}

func scanLines(rd io.Reader, fn func(lineNo int, line Line) error) error {
	scanner := bufio.NewScanner(rd)
	scanner.Buffer(make([]byte, 0, scanInitialBuffer), scanMaxBuffer)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		raw := strings.TrimSpace(scanner.Text())
		if raw == "" {
			continue
		}
		var line Line
		if err := json.Unmarshal([]byte(raw), &line); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidRecord, lineNo, err)
		}
		if err := fn(lineNo, line); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan jsonl: %w", err)
	}
	return nil
}
