// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"fmt"
	"strings"
)

// =============================================================================
// TEAM TYPE
// =============================================================================

// Team selects which backend agent answers a question. It is sent with
// every outbound message; locally it only drives labels.
type Team string

const (
	TeamGlobal Team = "global"
	TeamACAPS  Team = "acaps"
	TeamAMMC   Team = "ammc"
)

// Teams lists the selectable teams in display order.
var Teams = []Team{TeamGlobal, TeamACAPS, TeamAMMC}

// String returns the wire name of the team.
func (t Team) String() string {
	return string(t)
}

// Valid reports whether t is one of the known teams.
func (t Team) Valid() bool {
	for _, known := range Teams {
		if t == known {
			return true
		}
	}
	return false
}

// Label returns the long display name used in the header.
func (t Team) Label() string {
	switch t {
	case TeamGlobal:
		return "Team ACAPS + AMMC"
	case TeamACAPS:
		return "Agent ACAPS"
	case TeamAMMC:
		return "Agent AMMC"
	default:
		return string(t)
	}
}

// ShortLabel returns the compact name used in lists.
func (t Team) ShortLabel() string {
	switch t {
	case TeamGlobal:
		return "Global"
	case TeamACAPS:
		return "ACAPS"
	case TeamAMMC:
		return "AMMC"
	default:
		return string(t)
	}
}

// Description names the regulator(s) a team covers.
func (t Team) Description() string {
	switch t {
	case TeamGlobal:
		return "Coordination des deux régulateurs"
	case TeamACAPS:
		return "Autorité de Contrôle des Assurances et de la Prévoyance Sociale"
	case TeamAMMC:
		return "Autorité Marocaine du Marché des Capitaux"
	default:
		return ""
	}
}

// Next returns the team after t in display order, wrapping around.
func (t Team) Next() Team {
	for i, known := range Teams {
		if t == known {
			return Teams[(i+1)%len(Teams)]
		}
	}
	return TeamGlobal
}

// ParseTeam parses a wire or display name, case-insensitively.
func ParseTeam(s string) (Team, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "global", "team acaps + ammc":
		return TeamGlobal, nil
	case "acaps", "agent acaps":
		return TeamACAPS, nil
	case "ammc", "agent ammc":
		return TeamAMMC, nil
	}
	return "", fmt.Errorf("unknown team %q (want one of: global, acaps, ammc)", s)
}

// TeamLabel returns the short label for a raw team string received from
// the backend, falling back to the raw value for unknown names.
func TeamLabel(raw string) string {
	if t, err := ParseTeam(raw); err == nil {
		return t.ShortLabel()
	}
	return raw
}
