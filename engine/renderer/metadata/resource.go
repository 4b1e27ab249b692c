package metadata

const (
	InvalidIDUint64 uint64 = 18446744073709551615
	InvalidID       uint32 = 4294967295
)

/** @brief Names of the asset kinds known to the engine. Used as the kind part of a resource key. */
const (
	/** @brief Two dimensional textures decoded from image files. */
	ResourceKindTexture = "texture"
	/** @brief Shader programs described by a .shadercfg file. */
	ResourceKindProgram = "program"
	/** @brief Geometry decoded from .obj, .gltf or .glb files. */
	ResourceKindGeometry = "geometry"
)
