package voxel

// Block is the material id stored in a voxel cell. Zero is air.
type Block uint8

const (
	Air Block = iota
	Grass
	Dirt
	Stone
	Wood
	Blue   // Default avatar build block
	Red    // Opponent defensive walls
	Orange // Fort roofs
	Leaves
	Dark
	Snow
)

// BlockCount is the number of defined block ids including air.
const BlockCount = int(Snow) + 1

// BlockInfo describes how a block looks to presentation layers.
type BlockInfo struct {
	Name  string `json:"name"`
	Color string `json:"color"`
}

// blockTable is indexed by block id and must stay exhaustive.
var blockTable = [BlockCount]BlockInfo{
	Air:    {Name: "air", Color: ""},
	Grass:  {Name: "grass", Color: "#4a7c3f"},
	Dirt:   {Name: "dirt", Color: "#8B6914"},
	Stone:  {Name: "stone", Color: "#888888"},
	Wood:   {Name: "wood", Color: "#6B4226"},
	Blue:   {Name: "blue", Color: "#3498db"},
	Red:    {Name: "red", Color: "#e74c3c"},
	Orange: {Name: "orange", Color: "#f39c12"},
	Leaves: {Name: "leaves", Color: "#2ecc71"},
	Dark:   {Name: "dark", Color: "#1a1a2e"},
	Snow:   {Name: "snow", Color: "#ecf0f1"},
}

// Solid reports whether the block occupies its cell.
func (b Block) Solid() bool {
	return b != Air
}

// Valid reports whether b is a defined block id.
func (b Block) Valid() bool {
	return int(b) < BlockCount
}

// Info returns the presentation properties of the block.
// Unknown ids fall back to stone so a corrupt cell still renders.
func (b Block) Info() BlockInfo {
	if !b.Valid() {
		return blockTable[Stone]
	}
	return blockTable[b]
}

// String returns the block name.
func (b Block) String() string {
	return b.Info().Name
}

// Next cycles through the placeable blocks 1..10, wrapping back to 1.
func (b Block) Next() Block {
	return Block(int(b)%(BlockCount-1) + 1)
}

// AllBlocks returns the presentation table for every solid block.
func AllBlocks() map[Block]BlockInfo {
	out := make(map[Block]BlockInfo, BlockCount-1)
	for id := Grass; int(id) < BlockCount; id++ {
		out[id] = blockTable[id]
	}
	return out
}
