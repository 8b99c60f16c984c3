package journal

import (
	"github.com/vibeforge/vibeforge/internal/core"
	"github.com/vibeforge/vibeforge/internal/logging"
)

// Recorder writes platform events to the journal
type Recorder struct {
	store *Store
	log   *logging.Logger
}

// NewRecorder creates a recorder for the given store
func NewRecorder(store *Store, log *logging.Logger) *Recorder {
	if log == nil {
		log = logging.Default()
	}
	return &Recorder{store: store, log: log.WithField("component", "journal")}
}

// eventDetails is the JSON stored alongside each entry
type eventDetails struct {
	Creator       core.Identity `json:"creator,omitempty"`
	Debited       uint64        `json:"debited,omitempty"`
	ActorReward   uint64        `json:"actor_reward,omitempty"`
	CreatorReward uint64        `json:"creator_reward,omitempty"`
	Count         uint64        `json:"count,omitempty"`
}

// Record appends one event
func (r *Recorder) Record(ev core.Event) (*Entry, error) {
	return r.store.Append(string(ev.Kind), string(ev.Actor), string(ev.ItemID), ev.At, eventDetails{
		Creator:       ev.Creator,
		Debited:       ev.Debited,
		ActorReward:   ev.ActorReward,
		CreatorReward: ev.CreatorReward,
		Count:         ev.Count,
	})
}

// Observe records ev. A failed append is logged; the mutation itself has
// already been applied and is not rolled back.
func (r *Recorder) Observe(ev core.Event) {
	if _, err := r.Record(ev); err != nil {
		r.log.WithError(err).Warn("journal append failed for %s by %s", ev.Kind, ev.Actor)
	}
}
