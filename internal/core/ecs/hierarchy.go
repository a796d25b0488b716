package ecs

// Parent links a child entity to its parent. Prefab instantiation writes it
// for entries that name a parent entry.
type Parent struct {
	Entity Entity
}

// Children lists live entities whose Parent is p, in storage order.
func Children(w *World, p Entity) []Entity {
	var out []Entity
	Components[Parent](w).Each(func(e Entity, parent *Parent) bool {
		if parent.Entity == p {
			out = append(out, e)
		}
		return true
	})
	return out
}
