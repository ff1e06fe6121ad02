package bufferpool

import "errors"

var ErrNoVictimAvailable = errors.New("no victim available")

// Frames is the read-only view of the pool a Replacer chooses from.
type Frames interface {
	Len() int
	PinCount(frameID int) uint64
}

type Replacer interface {
	// ChooseVictim returns ErrNoVictimAvailable if every frame is pinned.
	ChooseVictim(frames Frames) (int, error)
}

// FirstUnpinnedReplacer picks the first frame with a zero pin count in
// pool order. It keeps no history, so residency of a block says nothing
// about whether it will survive the next miss.
type FirstUnpinnedReplacer struct{}

var _ Replacer = FirstUnpinnedReplacer{}

func NewFirstUnpinnedReplacer() FirstUnpinnedReplacer {
	return FirstUnpinnedReplacer{}
}

func (FirstUnpinnedReplacer) ChooseVictim(frames Frames) (int, error) {
	for i := range frames.Len() {
		if frames.PinCount(i) == 0 {
			return i, nil
		}
	}
	return -1, ErrNoVictimAvailable
}
