package w3g

// Action events are dispatched to handlers registered with
// RegisterEventHandler while the action stream is parsed. Each type maps to
// one action record shape and carries only the fields that record defines;
// coordinates and object ids are reported as the raw dwords the game wrote.

// Paused signals a pause request by a player.
type Paused struct {
	Player uint8
}

// Resumed signals the game being resumed.
type Resumed struct {
	Player uint8
}

// SpeedSet carries an explicit game speed selection.
type SpeedSet struct {
	Player uint8
	Speed  uint8
}

// SpeedUp signals a speed increase by one step.
type SpeedUp struct {
	Player uint8
}

// SpeedDown signals a speed decrease by one step.
type SpeedDown struct {
	Player uint8
}

// GameSaved carries the file name of a save request.
type GameSaved struct {
	Player uint8
	Name   string
}

// SaveFinished signals that a pending save completed.
type SaveFinished struct {
	Player uint8
}

// Ability is an ability invocation without a target.
type Ability struct {
	Player uint8
	Flags  uint16
	ItemID uint32
}

// AbilityAtPoint is an ability invocation aimed at a map position.
type AbilityAtPoint struct {
	Player uint8
	Flags  uint16
	ItemID uint32
	X, Y   uint32
}

// AbilityOnObject is an ability invocation aimed at another object.
type AbilityOnObject struct {
	Player    uint8
	Flags     uint16
	ItemID    uint32
	X, Y      uint32
	ObjectID1 uint32
	ObjectID2 uint32
}

// ItemGiven is an item being given to or dropped on a target.
type ItemGiven struct {
	Player    uint8
	Flags     uint16
	ItemID    uint32
	X, Y      uint32
	TargetID1 uint32
	TargetID2 uint32
	ObjectID1 uint32 // the item object itself
	ObjectID2 uint32
}

// AbilityTwoTargets is the double-target ability form (for example
// right-click ordering a fetch between two points).
type AbilityTwoTargets struct {
	Player       uint8
	Flags        uint16
	FirstItemID  uint32
	FirstX       uint32
	FirstY       uint32
	SecondItemID uint32
	SecondX      uint32
	SecondY      uint32
}

// SelectionChanged reports units being added to or removed from the
// current selection. The selected objects themselves are not decoded.
type SelectionChanged struct {
	Player uint8
	Add    bool
	Count  uint16
}

// GroupAssigned reports a control group being (re)assigned.
type GroupAssigned struct {
	Player uint8
	Group  uint8
	Count  uint16
}

// GroupSelected reports a control group being recalled.
type GroupSelected struct {
	Player uint8
	Group  uint8
}

// SubgroupSelected reports a subgroup selection by object type. These
// events feed the selection frequency table.
type SubgroupSelected struct {
	Player    uint8
	ItemID    uint32
	ObjectID1 uint32
	ObjectID2 uint32
}

// GroundItemSelected reports an item on the ground being selected.
type GroundItemSelected struct {
	Player    uint8
	ObjectID1 uint32
	ObjectID2 uint32
}

// RevivalCanceled reports a hero revival being canceled.
type RevivalCanceled struct {
	Player    uint8
	ObjectID1 uint32
	ObjectID2 uint32
}

// QueueItemRemoved reports a unit being removed from a building queue.
type QueueItemRemoved struct {
	Player uint8
	Slot   uint8
	ItemID uint32
}

// AllyOptionsSet reports a change of alliance options towards a slot.
type AllyOptionsSet struct {
	Player uint8
	Slot   uint8
	Flags  uint32
}

// ResourcesTransferred reports gold and lumber being sent to a slot.
type ResourcesTransferred struct {
	Player uint8
	Slot   uint8
	Gold   uint32
	Lumber uint32
}

// ChatCommand is a map-trigger chat command (typed with a leading dash on
// most maps). Distinct from lobby or in-game chat, which arrives as
// ChatMessage.
type ChatCommand struct {
	Player  uint8
	Command string
}

// EscPressed reports the escape key closing a dialog.
type EscPressed struct {
	Player uint8
}

// MinimapPing reports a minimap signal.
type MinimapPing struct {
	Player   uint8
	X, Y     uint32
	Duration uint32
}

// MMD is one scoreboard-integration record emitted by the map. Key and
// Message are the two payload strings following the fixed filename.
type MMD struct {
	Player   uint8
	Key      string
	Message  string
	Checksum uint32
}

// ChatMessage is a raw chat block. The payload is handed over undecoded,
// exactly as stored between the length prefix and the next block.
type ChatMessage struct {
	Player uint8
	Raw    []byte
}

// CountdownUpdate is a timer control block (game start countdown).
type CountdownUpdate struct {
	Mode        uint32
	RemainingMS uint32
}
