package session

import "github.com/USNavalResearchLaboratory/normcore/wire"

// BuildSquelch answers a NACK that references an object id the tx cache
// has already purged: rather than silently ignoring it (which would leave
// the receiver stuck re-requesting forever), the sender names every
// object id it still cannot service below its current floor, so the
// receiver can give up on them (spec §4.4: "a sender receiving a NACK for
// an object below its retained range SHOULD respond CMD(SQUELCH)").
//
// requested is assumed sorted ascending; only ids strictly below floor
// are squelched.
func BuildSquelch(requested []wire.ObjectId, floor wire.ObjectId) (wire.CmdSquelchBody, bool) {
	var invalidated []wire.ObjectId
	for _, id := range requested {
		if id.Less(floor) {
			invalidated = append(invalidated, id)
		}
	}
	if len(invalidated) == 0 {
		return wire.CmdSquelchBody{}, false
	}
	return wire.CmdSquelchBody{Invalidated: invalidated}, true
}
