package printer

import (
	"strings"

	"github.com/inkwell/inkwell-backend/internal/modules/job"
)

// Matches reports whether a printer can take a job. Pure and deterministic:
// the same inputs always yield the same answer.
//
// The printer must be online and manually on; OFF and PENDING_OFF both
// exclude it. The effective capability list is then scanned for any single
// entry satisfying every requested constraint. Unrequested constraints are
// always satisfied. An empty or malformed capability list fails closed.
func Matches(req job.Requirements, p *Printer) bool {
	if p == nil {
		return false
	}
	if p.OperationalStatus != Online || p.ManualStatus != ManualOn {
		return false
	}

	caps := p.EffectiveCapabilities()
	if len(caps) == 0 {
		return false
	}
	for _, c := range caps {
		if capabilitySatisfies(req, c) {
			return true
		}
	}
	return false
}

func capabilitySatisfies(req job.Requirements, c Capability) bool {
	media := strings.ToUpper(strings.TrimSpace(c.MediaType))
	if media != MediaColor && media != MediaMono {
		// Malformed entry: fail closed.
		return false
	}
	if req.Color && media != MediaColor {
		return false
	}
	if req.Duplex && !c.DuplexSupported {
		return false
	}
	if req.PaperSize != "" && !containsFold(c.PaperSizes, req.PaperSize) {
		return false
	}
	return true
}

func containsFold(sizes []string, want string) bool {
	for _, s := range sizes {
		if strings.EqualFold(strings.TrimSpace(s), want) {
			return true
		}
	}
	return false
}
