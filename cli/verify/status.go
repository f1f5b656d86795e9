package verify

import (
	"github.com/buger/goterm"

	"github.com/gridpro/gridpro/pkg/permission"
)

func GetDecisionString(decision permission.Decision) (msg string, color int) {
	switch decision.Reason {
	case permission.OK:
		msg = "Authorized"
		color = goterm.GREEN
	case permission.FingerprintMismatch:
		msg = "Modified since it was stored. Run `gridpro put` to authorize it again."
		color = goterm.RED
	case permission.Unsigned:
		msg = "Never authorized. Run `gridpro put` to authorize it."
		color = goterm.RED
	case permission.NotAllowed:
		msg = "Not in the allowlist"
		color = goterm.RED
	case permission.Missing:
		msg = "Not found"
		color = goterm.YELLOW
	default:
		msg = "Unknown"
		color = goterm.YELLOW
	}
	return msg, color
}
