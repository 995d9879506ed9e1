package core

import (
	"strings"

	"github.com/encodeous/nyroute/state"
)

// Address classes, the first byte of an address hash
const (
	ClassLocal       byte = 'L'
	ClassTopological byte = 'T'
	ClassRouter      byte = 'R'
	ClassArea        byte = 'A'
	ClassMobile      byte = 'M'
)

// HashAddress computes the hash key of an AMQP address as seen by the router id in area.
//
//	amqp:/_topo/<area>/<router>/x   R<router>, L<x> for this router, A<area> for other areas
//	amqp:/_topo/<router>            R<router>
//	amqp:/_local/x                  Lx
//	amqp:/x                         M0x
func HashAddress(address, area, id string) string {
	p := strings.TrimPrefix(address, "amqp:")
	if strings.HasPrefix(p, "//") {
		p = p[2:]
		if i := strings.IndexByte(p, '/'); i != -1 {
			p = p[i:]
		} else {
			p = ""
		}
	}
	p = strings.TrimPrefix(p, "/")

	switch {
	case strings.HasPrefix(p, "_local/"):
		return string(ClassLocal) + strings.TrimPrefix(p, "_local/")
	case strings.HasPrefix(p, "_topo/"):
		segs := strings.SplitN(strings.TrimPrefix(p, "_topo/"), "/", 3)
		if len(segs) == 1 {
			return string(ClassRouter) + segs[0]
		}
		addrArea, router := segs[0], segs[1]
		if addrArea != area && addrArea != "all" {
			return string(ClassArea) + addrArea
		}
		if router == id || router == "all" {
			tail := ""
			if len(segs) == 3 {
				tail = segs[2]
			}
			return string(ClassLocal) + tail
		}
		return string(ClassRouter) + router
	default:
		return string([]byte{ClassMobile, state.AddressPhaseDefault}) + p
	}
}

// splitHash breaks a hash into its class, its phase (mobile addresses only) and its body
func splitHash(hash string) (class byte, phase byte, body string) {
	if hash == "" {
		return 0, 0, ""
	}
	if hash[0] == ClassMobile && len(hash) >= 2 {
		return ClassMobile, hash[1], hash[2:]
	}
	return hash[0], 0, hash[1:]
}

// overrideClass replaces the class of hash, and for mobile addresses, its phase
func overrideClass(hash string, class, phase byte) string {
	_, _, body := splitHash(hash)
	if class == ClassMobile {
		if phase == 0 {
			phase = state.AddressPhaseDefault
		}
		return string([]byte{class, phase}) + body
	}
	return string(class) + body
}

func isTopological(class byte) bool {
	switch class {
	case ClassLocal, ClassTopological, ClassRouter, ClassArea:
		return true
	}
	return false
}

// treatmentForHash classifies an address by the configured prefix matching its body.
// Unconfigured topological addresses go to the closest router, everything else is balanced.
func (c *Core) treatmentForHash(hash string) state.Treatment {
	class, _, body := splitHash(hash)
	if t, ok := c.cfg.LookupDistribution(body); ok {
		return t
	}
	if isTopological(class) {
		return state.TreatmentAnycastClosest
	}
	return state.TreatmentAnycastBalanced
}
