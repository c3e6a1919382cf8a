package models

import (
	"strings"
	"time"

	id "complyhub/pkg/domain"
	dErrors "complyhub/pkg/domain-errors"
)

// Zone groups domains of one standard. Code is unique within the standard.
type Zone struct {
	ID           id.ZoneID     `json:"id"`
	StandardID   id.StandardID `json:"standard_id"`
	Name         string        `json:"name"`
	Code         string        `json:"code"`
	Sequence     int           `json:"sequence"`
	DomainCount  int           `json:"domain_count"`
	ControlCount int           `json:"control_count"`
	Active       bool          `json:"active"`
	CreatedAt    time.Time     `json:"created_at"`
}

func NewZone(zoneID id.ZoneID, standardID id.StandardID, name, code string, now time.Time) (*Zone, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "zone name cannot be empty")
	}
	if standardID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "zone requires a standard")
	}
	return &Zone{
		ID:         zoneID,
		StandardID: standardID,
		Name:       name,
		Code:       strings.TrimSpace(code),
		Active:     true,
		CreatedAt:  now,
	}, nil
}

// Recount sets DomainCount and ControlCount from the zone's domains.
// Controls linked to several domains of the zone are counted per link.
func (z *Zone) Recount(domains []*Domain) {
	z.DomainCount, z.ControlCount = 0, 0
	for _, d := range domains {
		if d.ZoneID != z.ID {
			continue
		}
		z.DomainCount++
		z.ControlCount += len(d.ControlIDs)
	}
}
