package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/zurustar/intvm/pkg/vm"
	"github.com/zurustar/intvm/pkg/world"
)

// Map is a scene file: the objects placed on a map and its start point.
//
//	name = "arroyo"
//	map_vars = [0, 1]
//
//	[start]
//	tile = 20100
//
//	[[object]]
//	name = "Door"
//	kind = "scenery"
//	tile = 20102
//	door = true
//	locked = true
//	script = "door"
type Map struct {
	Name       string   `toml:"name"`
	MapVars    []int32  `toml:"map_vars"`
	Start      Start    `toml:"start"`
	Objects    []Object `toml:"object"`
	Prototypes []Object `toml:"prototype"`
}

// Start is where the player enters the map.
type Start struct {
	Tile        int32 `toml:"tile"`
	Elevation   int32 `toml:"elevation"`
	Orientation int32 `toml:"orientation"`
}

// Object describes an object placed on the map or a prototype for
// create_object_sid.
type Object struct {
	Name        string           `toml:"name"`
	Kind        string           `toml:"kind"`
	PID         int32            `toml:"pid"`
	Tile        int32            `toml:"tile"`
	Elevation   int32            `toml:"elevation"`
	Orientation int32            `toml:"orientation"`
	Script      string           `toml:"script"`
	Player      bool             `toml:"player"`
	Door        bool             `toml:"door"`
	Container   bool             `toml:"container"`
	Locked      bool             `toml:"locked"`
	Opened      bool             `toml:"opened"`
	Stats       map[string]int32 `toml:"stats"`
	Inventory   []Item           `toml:"inventory"`
}

// Item is a stack in an object's inventory.
type Item struct {
	Name  string `toml:"name"`
	PID   int32  `toml:"pid"`
	Count int32  `toml:"count"`
}

var kinds = map[string]vm.ObjectType{
	"item":    vm.TypeItem,
	"critter": vm.TypeCritter,
	"scenery": vm.TypeScenery,
	"wall":    vm.TypeWall,
	"tile":    vm.TypeTile,
	"misc":    vm.TypeMisc,
}

var stats = map[string]int32{
	"strength":     world.StatStrength,
	"intelligence": world.StatIntelligence,
	"max_hp":       world.StatMaxHP,
	"hp":           world.StatCurrentHP,
	"poison":       world.StatPoison,
	"radiation":    world.StatRadiation,
}

// LoadMap reads a map file.
func LoadMap(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}
	m, err := ParseMap(string(data))
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	return m, nil
}

// ParseMap decodes and validates a map.
func ParseMap(data string) (*Map, error) {
	var m Map
	md, err := toml.Decode(data, &m)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		return nil, fmt.Errorf("unknown keys: %v", undecoded)
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// Validate checks every object converts to a spec and at most one is the
// player.
func (m *Map) Validate() error {
	var errs []error
	players := 0
	for i, o := range m.Objects {
		if _, err := o.Spec(); err != nil {
			errs = append(errs, fmt.Errorf("object %d (%s): %w", i, o.Name, err))
		}
		if o.Player {
			players++
		}
	}
	for i, o := range m.Prototypes {
		if _, err := o.Spec(); err != nil {
			errs = append(errs, fmt.Errorf("prototype %d (%s): %w", i, o.Name, err))
		}
	}
	if players > 1 {
		errs = append(errs, fmt.Errorf("%d objects are marked player", players))
	}
	return errors.Join(errs...)
}

// Spec converts o into a world spawn spec.
func (o Object) Spec() (world.Spec, error) {
	kind, err := parseKind(o.Kind, o.PID)
	if err != nil {
		return world.Spec{}, err
	}
	spec := world.Spec{
		Name:        o.Name,
		PID:         o.PID,
		Type:        kind,
		Tile:        o.Tile,
		Elevation:   o.Elevation,
		Orientation: o.Orientation,
		Script:      o.Script,
		Player:      o.Player,
		Door:        o.Door,
		Container:   o.Container,
		Locked:      o.Locked,
		Opened:      o.Opened,
	}
	if o.Player && kind != vm.TypeCritter {
		return world.Spec{}, errors.New("the player must be a critter")
	}
	if len(o.Stats) > 0 {
		if kind != vm.TypeCritter {
			return world.Spec{}, errors.New("only critters have stats")
		}
		spec.Stats = make(map[int32]int32, len(o.Stats))
		for name, v := range o.Stats {
			n, err := parseStat(name)
			if err != nil {
				return world.Spec{}, err
			}
			spec.Stats[n] = v
		}
	}
	if len(o.Inventory) > 0 && !o.Container && kind != vm.TypeCritter {
		return world.Spec{}, errors.New("only critters and containers have an inventory")
	}
	for _, it := range o.Inventory {
		if it.Count < 0 {
			return world.Spec{}, fmt.Errorf("item %s: negative count", it.Name)
		}
		spec.Inventory = append(spec.Inventory, world.Item{Name: it.Name, PID: it.PID, Count: it.Count})
	}
	return spec, nil
}

// parseKind reads an object kind; an empty kind is taken from the type
// byte of the PID.
func parseKind(kind string, pid int32) (vm.ObjectType, error) {
	if kind == "" {
		t := vm.ObjectType(pid >> 24)
		if t < vm.TypeItem || t > vm.TypeMisc {
			return 0, fmt.Errorf("pid %#x has no valid object type", pid)
		}
		return t, nil
	}
	t, ok := kinds[strings.ToLower(kind)]
	if !ok {
		return 0, fmt.Errorf("unknown object kind %q", kind)
	}
	return t, nil
}

func parseStat(name string) (int32, error) {
	if n, ok := stats[strings.ToLower(name)]; ok {
		return n, nil
	}
	n, err := strconv.ParseInt(name, 10, 32)
	if err != nil || n < 0 || int32(n) >= world.StatCount {
		return 0, fmt.Errorf("unknown stat %q", name)
	}
	return int32(n), nil
}
