package draw

type UndoEntry struct {
	OpID    string
	Kind    string
	Changes []BlockChange
}

// History keeps the last few ops per actor.
type History struct {
	max     int
	byActor map[string][]UndoEntry
}

func NewHistory(maxPerActor int) *History {
	if maxPerActor <= 0 {
		maxPerActor = 1
	}
	return &History{max: maxPerActor, byActor: map[string][]UndoEntry{}}
}

func (h *History) Push(actorID string, e UndoEntry) {
	list := append(h.byActor[actorID], e)
	if len(list) > h.max {
		list = append(list[:0:0], list[len(list)-h.max:]...)
	}
	h.byActor[actorID] = list
}

func (h *History) Pop(actorID string) (UndoEntry, bool) {
	list := h.byActor[actorID]
	if len(list) == 0 {
		return UndoEntry{}, false
	}
	e := list[len(list)-1]
	list[len(list)-1] = UndoEntry{}
	if len(list) == 1 {
		delete(h.byActor, actorID)
	} else {
		h.byActor[actorID] = list[:len(list)-1]
	}
	return e, true
}

func (h *History) Len(actorID string) int { return len(h.byActor[actorID]) }

// Forget drops an actor's history, e.g. when they disconnect.
func (h *History) Forget(actorID string) { delete(h.byActor, actorID) }
