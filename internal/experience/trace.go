package experience

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/timestamppb"

	"github.com/mitchelldurbincs/TacticalSearch/internal/game/core"
	"github.com/mitchelldurbincs/TacticalSearch/internal/storage"
)

// Record kinds
const (
	KindEpisode = "episode"
	KindResult  = "result"
)

// timestamp renders t the way protojson renders a google.protobuf.Timestamp.
func timestamp(t time.Time) (string, error) {
	data, err := protojson.Marshal(timestamppb.New(t))
	if err != nil {
		return "", err
	}
	return strconv.Unquote(string(data))
}

func parseTimestamp(s string) (time.Time, error) {
	ts := &timestamppb.Timestamp{}
	if err := protojson.Unmarshal([]byte(strconv.Quote(s)), ts); err != nil {
		return time.Time{}, err
	}
	return ts.AsTime(), nil
}

func encodeAction(a core.ActionFields) map[string]interface{} {
	return map[string]interface{}{
		"kind":      int(a.Kind),
		"team":      int(a.Team),
		"acting_id": a.ActingID,
		"target_id": a.TargetID,
		"origin":    []interface{}{a.Origin.X, a.Origin.Y},
		"dest":      []interface{}{a.Dest.X, a.Dest.Y},
		"text":      a.String(),
	}
}

// EncodeEpisode converts ep into a trace record.
func EncodeEpisode(ep *storage.Episode) (*structpb.Struct, error) {
	recorded, err := timestamp(ep.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("episode %s: %w", ep.ID, err)
	}
	plan := make([]interface{}, len(ep.Plan))
	for i, a := range ep.Plan {
		plan[i] = encodeAction(a)
	}
	masked := make([]interface{}, len(ep.Masked))
	for i, id := range ep.Masked {
		masked[i] = id
	}
	return structpb.NewStruct(map[string]interface{}{
		"kind":        KindEpisode,
		"episode_id":  ep.ID.String(),
		"game_id":     ep.GameID,
		"team":        int(ep.Team),
		"turn":        ep.Turn,
		"plan":        plan,
		"value":       ep.Value,
		"nodes":       ep.Nodes,
		"elapsed_ms":  ep.Elapsed.Milliseconds(),
		"complete":    ep.Complete,
		"masked":      masked,
		"recorded_at": recorded,
	})
}

// EncodeResult converts a battle outcome into a trace record.
func EncodeResult(r *storage.GameResult) (*structpb.Struct, error) {
	return structpb.NewStruct(map[string]interface{}{
		"kind":        KindResult,
		"game_id":     r.GameID,
		"winner":      int(r.Winner),
		"draw":        r.Draw,
		"reason":      r.Reason,
		"final_turn":  r.FinalTurn,
		"duration_ms": r.Duration.Milliseconds(),
		"episodes":    r.Episodes,
	})
}

// GameIDOf returns the game id of any trace record.
func GameIDOf(rec *structpb.Struct) string {
	return rec.GetFields()["game_id"].GetStringValue()
}

// KindOf returns the record kind.
func KindOf(rec *structpb.Struct) string {
	return rec.GetFields()["kind"].GetStringValue()
}

func intField(fields map[string]*structpb.Value, name string) int {
	return int(fields[name].GetNumberValue())
}

func coordinate(v *structpb.Value) core.Coordinate {
	xy := v.GetListValue().GetValues()
	if len(xy) != 2 {
		return core.Coordinate{}
	}
	return core.Coordinate{X: int(xy[0].GetNumberValue()), Y: int(xy[1].GetNumberValue())}
}

// DecodeEpisode converts an episode trace record back.
func DecodeEpisode(rec *structpb.Struct) (*storage.Episode, error) {
	if kind := KindOf(rec); kind != KindEpisode {
		return nil, fmt.Errorf("record kind %q is not an episode", kind)
	}
	f := rec.GetFields()
	id, err := uuid.Parse(f["episode_id"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("episode id: %w", err)
	}
	created, err := parseTimestamp(f["recorded_at"].GetStringValue())
	if err != nil {
		return nil, fmt.Errorf("episode %s recorded_at: %w", id, err)
	}

	ep := &storage.Episode{
		ID:        id,
		GameID:    f["game_id"].GetStringValue(),
		Team:      core.Team(intField(f, "team")),
		Turn:      intField(f, "turn"),
		Value:     intField(f, "value"),
		Nodes:     int64(f["nodes"].GetNumberValue()),
		Elapsed:   time.Duration(intField(f, "elapsed_ms")) * time.Millisecond,
		Complete:  f["complete"].GetBoolValue(),
		CreatedAt: created,
	}
	for _, v := range f["plan"].GetListValue().GetValues() {
		af := v.GetStructValue().GetFields()
		ep.Plan = append(ep.Plan, core.ActionFields{
			Kind:     core.ActionKind(intField(af, "kind")),
			Team:     core.Team(intField(af, "team")),
			ActingID: intField(af, "acting_id"),
			TargetID: intField(af, "target_id"),
			Origin:   coordinate(af["origin"]),
			Dest:     coordinate(af["dest"]),
		})
	}
	for _, v := range f["masked"].GetListValue().GetValues() {
		ep.Masked = append(ep.Masked, int(v.GetNumberValue()))
	}
	return ep, nil
}
