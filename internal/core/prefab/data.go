package prefab

import (
	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"

	"github.com/zeusync/forge/internal/core/asset"
	"github.com/zeusync/forge/internal/core/ecs"
	"github.com/zeusync/forge/internal/core/system"
)

// Data is the payload of one prefab entry. AddToEntity attaches whatever
// the data describes to e; entities holds the whole instance, main entity
// first, so data may link to siblings by entry index. Access declares every
// type AddToEntity touches and must work on a nil receiver.
type Data interface {
	AddToEntity(e ecs.Entity, w *ecs.World, entities []ecs.Entity) error
	Access() system.Access
}

// SubAssetLoader is implemented by data that references further assets.
// TriggerSubLoading starts those loads against progress and may rewrite
// the receiver, for example replacing a file name with the handle it
// resolved to. It reports whether anything was started. This is the only
// point where prefab data is mutated.
type SubAssetLoader interface {
	TriggerSubLoading(progress *asset.ProgressCounter, w *ecs.World) (bool, error)
}

// Component is data that inserts C unchanged. It (de)serializes as a plain C.
type Component[C any] struct {
	Value C
}

// NewComponent wraps v.
func NewComponent[C any](v C) *Component[C] {
	return &Component[C]{Value: v}
}

func (c *Component[C]) AddToEntity(e ecs.Entity, w *ecs.World, _ []ecs.Entity) error {
	_, _, err := ecs.Insert(w, e, c.Value)
	return err
}

func (*Component[C]) Access() system.Access {
	return system.NewAccess(system.Write[C]())
}

func (c *Component[C]) UnmarshalYAML(node *yaml.Node) error {
	return node.Decode(&c.Value)
}

func (c Component[C]) MarshalYAML() (any, error) {
	return c.Value, nil
}

func (c *Component[C]) UnmarshalJSON(data []byte) error {
	return json.Unmarshal(data, &c.Value)
}

func (c Component[C]) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Value)
}
