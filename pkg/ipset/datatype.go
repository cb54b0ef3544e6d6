package ipset

import (
	"fmt"
	"net"
	"strconv"
	"strings"
)

// role is the slot hint applied when encoding positional data. Range
// creation for bitmap sets encodes the same data type into the from/to
// slots; everything else writes the exact-value slot.
type role int

const (
	roleExact role = iota
	roleFrom
	roleTo
)

// DataType is one element value stored in a set: a primitive network
// attribute or an ordered composition of two or three primitives. A
// DataType knows how to write itself into a session's pending option
// slots, parse itself from a text field of list output, render itself
// back to text and name itself for the method:type identifier.
type DataType interface {
	fmt.Stringer
	encode(h Handle, r role) error
	parse(s string) error
	typeName() string
}

// setOpt writes one slot and converts a rejection into ErrDataSet.
func setOpt(h Handle, opt Opt, value interface{}) error {
	if !h.DataSet(opt, value) {
		return reportError(ErrDataSet, h)
	}
	return nil
}

func checkName(s string) error {
	if s == "" {
		return newError(ErrName, "empty name", true)
	}
	if strings.ContainsRune(s, 0) {
		return newError(ErrName, "name contains NUL byte", true)
	}
	return nil
}

// IP holds an IPv4 or IPv6 address. The family slot is derived from the
// stored value.
type IP struct {
	Addr net.IP
}

// NewIP wraps addr. IPv4 addresses are normalized to 4-byte form.
func NewIP(addr net.IP) *IP {
	if v4 := addr.To4(); v4 != nil {
		addr = v4
	}
	return &IP{Addr: addr}
}

// ParseIP parses canonical IPv4 or IPv6 notation.
func ParseIP(s string) (*IP, error) {
	ip := &IP{}
	if err := ip.parse(s); err != nil {
		return nil, err
	}
	return ip, nil
}

func (ip *IP) family() Family {
	if ip.Addr.To4() == nil {
		return FamilyIPv6
	}
	return FamilyIPv4
}

func (ip *IP) encode(h Handle, r role) error {
	if err := setOpt(h, OptFamily, ip.family()); err != nil {
		return err
	}
	opt := OptIP
	switch r {
	case roleFrom:
		opt = OptIPFrom
	case roleTo:
		opt = OptIPTo
	}
	return setOpt(h, opt, ip.Addr)
}

func (ip *IP) parse(s string) error {
	// The field may carry trailing annotations; only the part up to the
	// first space belongs to the address.
	if i := strings.Index(s, " "); i >= 0 {
		s = s[:i]
	}
	addr := net.ParseIP(s)
	if addr == nil {
		return newError(ErrAddrParse, s, true)
	}
	if v4 := addr.To4(); v4 != nil {
		addr = v4
	}
	ip.Addr = addr
	return nil
}

func (ip *IP) String() string {
	return ip.Addr.String()
}

func (ip *IP) typeName() string { return "ip" }

// Net is an address plus prefix length.
type Net struct {
	Addr net.IP
	CIDR uint8
}

func NewNet(addr net.IP, cidr uint8) *Net {
	return &Net{Addr: NewIP(addr).Addr, CIDR: cidr}
}

// ParseNet parses "addr/prefix". The prefix defaults to 32 when the
// slash is absent.
func ParseNet(s string) (*Net, error) {
	n := &Net{}
	if err := n.parse(s); err != nil {
		return nil, err
	}
	return n, nil
}

func (n *Net) encode(h Handle, r role) error {
	ip := IP{Addr: n.Addr}
	if err := ip.encode(h, r); err != nil {
		return err
	}
	return setOpt(h, OptCIDR, n.CIDR)
}

func (n *Net) parse(s string) error {
	addr, cidr, found := strings.Cut(s, "/")
	ip := IP{}
	if err := ip.parse(addr); err != nil {
		return err
	}
	n.Addr = ip.Addr
	if !found {
		n.CIDR = 32
		return nil
	}
	v, err := strconv.ParseUint(cidr, 10, 8)
	if err != nil {
		return wrapError(ErrIntParse, cidr, err)
	}
	n.CIDR = uint8(v)
	return nil
}

func (n *Net) String() string {
	return fmt.Sprintf("%s/%d", n.Addr, n.CIDR)
}

func (n *Net) typeName() string { return "net" }

// Mac is a hardware address of exactly six octets.
type Mac struct {
	Octets [6]byte
}

func NewMac(octets [6]byte) *Mac {
	return &Mac{Octets: octets}
}

// ParseMac parses six colon-separated hex octets.
func ParseMac(s string) (*Mac, error) {
	m := &Mac{}
	if err := m.parse(s); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Mac) encode(h Handle, _ role) error {
	return setOpt(h, OptEther, m.Octets[:])
}

func (m *Mac) parse(s string) error {
	parts := strings.Split(s, ":")
	if len(parts) != 6 {
		return newError(ErrDataParse, s, true)
	}
	var octets [6]byte
	for i, p := range parts {
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return newError(ErrDataParse, s, true)
		}
		octets[i] = byte(v)
	}
	m.Octets = octets
	return nil
}

func (m *Mac) String() string {
	parts := make([]string, len(m.Octets))
	for i, o := range m.Octets {
		parts[i] = fmt.Sprintf("%02x", o)
	}
	return strings.Join(parts, ":")
}

func (m *Mac) typeName() string { return "mac" }

// Port is a 16-bit port number.
type Port uint16

func NewPort(v uint16) *Port {
	p := Port(v)
	return &p
}

func (p *Port) encode(h Handle, r role) error {
	opt := OptPort
	switch r {
	case roleFrom:
		opt = OptPortFrom
	case roleTo:
		opt = OptPortTo
	}
	return setOpt(h, opt, uint16(*p))
}

func (p *Port) parse(s string) error {
	v, err := strconv.ParseUint(s, 10, 16)
	if err != nil {
		return wrapError(ErrIntParse, s, err)
	}
	*p = Port(v)
	return nil
}

func (p *Port) String() string {
	return strconv.Itoa(int(*p))
}

func (p *Port) typeName() string { return "port" }

// Iface is a network interface name.
type Iface string

func NewIface(name string) *Iface {
	i := Iface(name)
	return &i
}

func (i *Iface) encode(h Handle, _ role) error {
	if err := checkName(string(*i)); err != nil {
		return err
	}
	return setOpt(h, OptIface, string(*i))
}

func (i *Iface) parse(s string) error {
	if err := checkName(s); err != nil {
		return err
	}
	*i = Iface(s)
	return nil
}

func (i *Iface) String() string {
	return string(*i)
}

func (i *Iface) typeName() string { return "iface" }

// Mark is a 32-bit firewall mark.
type Mark uint32

func NewMark(v uint32) *Mark {
	m := Mark(v)
	return &m
}

func (m *Mark) encode(h Handle, _ role) error {
	return setOpt(h, OptMark, uint32(*m))
}

func (m *Mark) parse(s string) error {
	v, err := strconv.ParseUint(s, 10, 32)
	if err != nil {
		return wrapError(ErrIntParse, s, err)
	}
	*m = Mark(v)
	return nil
}

func (m *Mark) String() string {
	return strconv.FormatUint(uint64(*m), 10)
}

func (m *Mark) typeName() string { return "mark" }

// SetMember names another set, for the list:set storage method.
type SetMember string

func NewSetMember(name string) *SetMember {
	s := SetMember(name)
	return &s
}

func (s *SetMember) encode(h Handle, _ role) error {
	if err := checkName(string(*s)); err != nil {
		return err
	}
	return setOpt(h, OptName, string(*s))
}

func (s *SetMember) parse(text string) error {
	if err := checkName(text); err != nil {
		return err
	}
	*s = SetMember(text)
	return nil
}

func (s *SetMember) String() string {
	return string(*s)
}

func (s *SetMember) typeName() string { return "set" }

// composite is the shared implementation behind Pair and Triple: an
// ordered tuple of primitives processed strictly left to right.
type composite struct {
	members []DataType
}

func (c *composite) encode(h Handle, r role) error {
	for _, m := range c.members {
		if err := m.encode(h, r); err != nil {
			return err
		}
	}
	return nil
}

func (c *composite) parse(s string) error {
	parts := strings.Split(s, ",")
	if len(parts) < len(c.members) {
		return newError(ErrInvalidOutput, s, true)
	}
	for i, m := range c.members {
		if err := m.parse(parts[i]); err != nil {
			return err
		}
	}
	return nil
}

func (c *composite) String() string {
	parts := make([]string, len(c.members))
	for i, m := range c.members {
		parts[i] = m.String()
	}
	return strings.Join(parts, ",")
}

func (c *composite) typeName() string {
	parts := make([]string, len(c.members))
	for i, m := range c.members {
		parts[i] = m.typeName()
	}
	return strings.Join(parts, ",")
}

// Pair is an ordered composition of two primitives.
type Pair struct {
	composite
}

func NewPair(a, b DataType) *Pair {
	return &Pair{composite{members: []DataType{a, b}}}
}

// A returns the first member.
func (p *Pair) A() DataType { return p.members[0] }

// B returns the second member.
func (p *Pair) B() DataType { return p.members[1] }

// Triple is an ordered composition of three primitives.
type Triple struct {
	composite
}

func NewTriple(a, b, c DataType) *Triple {
	return &Triple{composite{members: []DataType{a, b, c}}}
}

func (t *Triple) A() DataType { return t.members[0] }

func (t *Triple) B() DataType { return t.members[1] }

func (t *Triple) C() DataType { return t.members[2] }
