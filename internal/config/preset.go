package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnknownMap       = errors.New("unknown experiment map")
	ErrSubgroupRequired = errors.New("adversarial map needs subgroup 1 or 2")
	ErrVMRequired       = errors.New("map presets need a positive vm number")
)

// Experiment maps.
const (
	MapCommonsHarvestOpen        = "commons-harvest-open"
	MapCommonsHarvestAdversarial = "commons-harvest-adversarial"
	MapCoins                     = "coins"
	MapExternalityMushrooms      = "externality-mushrooms"
)

// Preset is the broker port and agent id a lab machine uses for a map.
type Preset struct {
	Port    int
	AgentID string
}

// ResolvePreset picks port and agent for a map. Map names are matched
// case-insensitively with spaces or dashes ("Commons Harvest Open").
//
// Open harvest shares one server on 8084 and each machine plays its own
// number. The adversarial map splits the room into two servers (8084 and
// 8085) of two players each. Coins and mushrooms run one server per
// machine on 8080+vm with the human as agent 1.
func ResolvePreset(mapName string, subgroup, vm int) (Preset, error) {
	if vm <= 0 {
		return Preset{}, ErrVMRequired
	}
	switch normalizeMap(mapName) {
	case MapCommonsHarvestOpen:
		return Preset{Port: 8084, AgentID: fmt.Sprint(vm)}, nil
	case MapCommonsHarvestAdversarial:
		var port int
		switch subgroup {
		case 1:
			port = 8084
		case 2:
			port = 8085
		default:
			return Preset{}, ErrSubgroupRequired
		}
		return Preset{Port: port, AgentID: fmt.Sprint((vm+1)%2 + 1)}, nil
	case MapCoins, MapExternalityMushrooms:
		return Preset{Port: 8080 + vm, AgentID: "1"}, nil
	default:
		return Preset{}, fmt.Errorf("%w: %q", ErrUnknownMap, mapName)
	}
}

func normalizeMap(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(strings.ReplaceAll(name, "-", " "))), "-")
}
