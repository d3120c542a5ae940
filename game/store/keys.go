package store

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/wricardo/connect-x/game/engine"
)

// Kind tags what a SaveKey addresses
type Kind string

const (
	KindStat       Kind = "stat"
	KindReplay     Kind = "replay"
	KindCustomMode Kind = "custom_mode"
	KindSetting    Kind = "setting"
)

// Setting names
const (
	SettingPlayerSymbol = "player_symbol"
	SettingEnemySymbol  = "enemy_symbol"
	SettingDifficulty   = "difficulty"
	SettingDefaultMode  = "default_mode"
)

var settingDefaults = map[string]any{
	SettingPlayerSymbol: "X",
	SettingEnemySymbol:  "O",
	SettingDifficulty:   engine.DefaultDifficulty,
	SettingDefaultMode:  "connect4",
}

// SaveKey addresses one persisted value. Build keys with Stat, Replay,
// CustomMode or Setting.
type SaveKey struct {
	Kind Kind
	Name string
	Slot int
}

func Stat(name string) SaveKey    { return SaveKey{Kind: KindStat, Name: name} }
func Replay(slot int) SaveKey     { return SaveKey{Kind: KindReplay, Slot: slot} }
func CustomMode() SaveKey         { return SaveKey{Kind: KindCustomMode} }
func Setting(name string) SaveKey { return SaveKey{Kind: KindSetting, Name: name} }

// String is the storage encoding of the key, e.g. "stat:Wins" or "replay:3"
func (k SaveKey) String() string {
	switch k.Kind {
	case KindStat, KindSetting:
		return string(k.Kind) + ":" + k.Name
	case KindReplay:
		return string(k.Kind) + ":" + strconv.Itoa(k.Slot)
	default:
		return string(k.Kind)
	}
}

// ParseSaveKey is the inverse of SaveKey.String
func ParseSaveKey(s string) (SaveKey, error) {
	kind, rest, _ := strings.Cut(s, ":")
	switch Kind(kind) {
	case KindStat:
		if rest == "" {
			return SaveKey{}, fmt.Errorf("%w: stat key %q has no name", ErrInvalidKey, s)
		}
		return Stat(rest), nil
	case KindSetting:
		if rest == "" {
			return SaveKey{}, fmt.Errorf("%w: setting key %q has no name", ErrInvalidKey, s)
		}
		return Setting(rest), nil
	case KindReplay:
		slot, err := strconv.Atoi(rest)
		if err != nil || slot < 1 {
			return SaveKey{}, fmt.Errorf("%w: replay key %q needs a positive slot", ErrInvalidKey, s)
		}
		return Replay(slot), nil
	case KindCustomMode:
		if rest != "" {
			return SaveKey{}, fmt.Errorf("%w: %q", ErrInvalidKey, s)
		}
		return CustomMode(), nil
	}
	return SaveKey{}, fmt.Errorf("%w: unknown kind in %q", ErrInvalidKey, s)
}

// Default is the value a key reads as before anything was saved under it
func Default(k SaveKey) any {
	switch k.Kind {
	case KindStat:
		return 0
	case KindReplay:
		return EmptyReplay()
	case KindCustomMode:
		return engine.CustomTemplate()
	case KindSetting:
		return settingDefaults[k.Name]
	}
	return nil
}

// EmptyReplayName marks a replay slot that holds nothing
const EmptyReplayName = "Empty"

// EmptyReplay is the sentinel record of an unused replay slot
func EmptyReplay() *engine.Replay {
	mode, _ := engine.BuiltinMode("tictactoe")
	return &engine.Replay{
		Version:     engine.ReplayVersion,
		Name:        EmptyReplayName,
		Mode:        mode,
		PlayerMoves: []engine.Coord{},
		CpuMoves:    []engine.Coord{},
		Symbols:     engine.DefaultSymbols(),
	}
}

// IsEmptyReplay reports whether r is an unused slot. Every finished game has
// at least one move, so a replay without moves is always the sentinel.
func IsEmptyReplay(r *engine.Replay) bool {
	return r == nil || len(r.PlayerMoves)+len(r.CpuMoves) == 0
}
