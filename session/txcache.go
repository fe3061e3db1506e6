package session

import (
	"sort"

	"github.com/USNavalResearchLaboratory/normcore/object"
	"github.com/USNavalResearchLaboratory/normcore/wire"
)

// TxCache retains a sender's transmitted objects so late NACKs can still
// be repaired, bounded by the count/size limits spec §6 exposes
// (tx_cache_count_min/max, tx_cache_size_max). Objects below countMin are
// never purged regardless of size pressure; beyond countMax, or once the
// aggregate byte size exceeds sizeMax, the oldest objects are evicted
// first.
type TxCache struct {
	countMin int
	countMax int
	sizeMax  int64

	order   []wire.ObjectId // ascending by ObjectId.Less, oldest first
	objects map[wire.ObjectId]*object.Object
	size    int64
}

func NewTxCache(countMin, countMax int, sizeMax int64) *TxCache {
	return &TxCache{
		countMin: countMin,
		countMax: countMax,
		sizeMax:  sizeMax,
		objects:  make(map[wire.ObjectId]*object.Object),
	}
}

// Insert adds a freshly-opened object, evicting from the front of order
// until within bounds.
func (c *TxCache) Insert(id wire.ObjectId, obj *object.Object) {
	c.objects[id] = obj
	c.size += int64(obj.Size)
	c.order = append(c.order, id)
	sort.Slice(c.order, func(i, j int) bool { return c.order[i].Less(c.order[j]) })
	c.evict()
}

func (c *TxCache) evict() []wire.ObjectId {
	var purged []wire.ObjectId
	for len(c.order) > c.countMin && (len(c.order) > c.countMax || (c.sizeMax > 0 && c.size > c.sizeMax)) {
		id := c.order[0]
		c.order = c.order[1:]
		if obj, ok := c.objects[id]; ok {
			c.size -= int64(obj.Size)
			obj.Close()
			delete(c.objects, id)
		}
		purged = append(purged, id)
	}
	return purged
}

// Get returns the cached object for id, if still retained.
func (c *TxCache) Get(id wire.ObjectId) (*object.Object, bool) {
	obj, ok := c.objects[id]
	return obj, ok
}

// Oldest reports the lowest ObjectId still retained, the floor below
// which a NACK is stale and should draw a CMD(SQUELCH) rather than a
// repair transmission (spec §4.4).
func (c *TxCache) Oldest() (wire.ObjectId, bool) {
	if len(c.order) == 0 {
		return 0, false
	}
	return c.order[0], true
}

// Len reports how many objects are currently retained.
func (c *TxCache) Len() int { return len(c.order) }

// NextPending scans the cache in transmission order for the first object
// that still has work outstanding (spec §4.6's Tx-timer: "advance to the
// next pending object once the current one completes").
func (c *TxCache) NextPending() (wire.ObjectId, *object.Object, bool) {
	for _, id := range c.order {
		obj, ok := c.objects[id]
		if !ok {
			continue
		}
		if obj.State != object.StateComplete {
			return id, obj, true
		}
	}
	return 0, nil, false
}
