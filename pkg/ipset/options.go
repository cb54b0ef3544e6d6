package ipset

import (
	"fmt"
	"strconv"
)

// AddOption is optional per-entry extension data supplied with Add. An
// option is only meaningful when the set was created with the matching
// extension enabled; the engine does not enforce that and surfaces the
// native library's rejection instead.
type AddOption interface {
	fmt.Stringer
	encode(h Handle) error
}

// Timeout is the entry lifetime in seconds; zero makes it permanent.
type Timeout uint32

func (t Timeout) encode(h Handle) error {
	return setOpt(h, OptTimeout, uint32(t))
}

func (t Timeout) String() string {
	return "timeout " + strconv.FormatUint(uint64(t), 10)
}

// Bytes is the initial byte counter value (counters extension).
type Bytes uint64

func (b Bytes) encode(h Handle) error {
	return setOpt(h, OptBytes, uint64(b))
}

func (b Bytes) String() string {
	return "bytes " + strconv.FormatUint(uint64(b), 10)
}

// Packets is the initial packet counter value (counters extension).
type Packets uint64

func (p Packets) encode(h Handle) error {
	return setOpt(h, OptPackets, uint64(p))
}

func (p Packets) String() string {
	return "packets " + strconv.FormatUint(uint64(p), 10)
}

// SkbMark carries the skbinfo firewall mark and its mask. The native
// slot takes both packed into one 64-bit value, mark in the high half.
type SkbMark struct {
	Mark uint32
	Mask uint32
}

func (m SkbMark) encode(h Handle) error {
	packed := uint64(m.Mark)<<32 | uint64(m.Mask)
	return setOpt(h, OptSkbMark, packed)
}

func (m SkbMark) String() string {
	if m.Mask == ^uint32(0) {
		return fmt.Sprintf("skbmark 0x%x", m.Mark)
	}
	return fmt.Sprintf("skbmark 0x%x/0x%x", m.Mark, m.Mask)
}

// SkbPrio is the skbinfo tc class in MAJOR:MINOR form, packed into one
// 32-bit value with the major number in the high half.
type SkbPrio struct {
	Major uint16
	Minor uint16
}

func (p SkbPrio) encode(h Handle) error {
	packed := uint32(p.Major)<<16 | uint32(p.Minor)
	return setOpt(h, OptSkbPrio, packed)
}

func (p SkbPrio) String() string {
	return fmt.Sprintf("skbprio %x:%x", p.Major, p.Minor)
}

// SkbQueue is the skbinfo hardware queue number.
type SkbQueue uint16

func (q SkbQueue) encode(h Handle) error {
	return setOpt(h, OptSkbQueue, uint16(q))
}

func (q SkbQueue) String() string {
	return "skbqueue " + strconv.FormatUint(uint64(q), 10)
}

// Comment annotates an entry (comment extension). Must not contain NUL
// bytes.
type Comment string

func (c Comment) encode(h Handle) error {
	if err := checkName(string(c)); err != nil {
		return err
	}
	return setOpt(h, OptADTComment, string(c))
}

func (c Comment) String() string {
	return "comment " + string(c)
}

// Nomatch marks a net-typed entry as an exception: matching skips it as
// if it were not in the set.
type Nomatch struct{}

func (Nomatch) encode(h Handle) error {
	return setOpt(h, OptNomatch, true)
}

func (Nomatch) String() string {
	return "nomatch"
}
