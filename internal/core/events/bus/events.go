package bus

// Engine event types. Payload types live in the publishing packages.
const (
	EntityDeleted      = "entity.deleted"
	AssetLoaded        = "asset.loaded"
	AssetFailed        = "asset.failed"
	PrefabInstantiated = "prefab.instantiated"
	PrefabFailed       = "prefab.failed"
)
